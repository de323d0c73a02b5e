// Package processor implements the Serialized Event Processor: the single
// writer of all network map state. Every state mutation runs on a
// dedicated one-worker pool so that reads composing a new state can never
// interleave with another mutation.
package processor

import (
	"fmt"
	"sync"
	"time"

	"github.com/oasisprotocol/netmapd/common/pubsub"
	"github.com/oasisprotocol/netmapd/common/service"
	"github.com/oasisprotocol/netmapd/common/workerpool"
	"github.com/oasisprotocol/netmapd/contenthash"
	"github.com/oasisprotocol/netmapd/netmap/node"
	"github.com/oasisprotocol/netmapd/netmap/params"
	"github.com/oasisprotocol/netmapd/netmap/signing"
	"github.com/oasisprotocol/netmapd/netmap/store"
)

// RebuildEvent is broadcast every time a new SignedNetworkMap has been
// produced.
type RebuildEvent struct {
	// MapHash is the content hash of the new SignedNetworkMap's bytes.
	MapHash string
}

// Config configures a Processor.
type Config struct {
	// ParamUpdateDelay is the default activation delay for parameter
	// updates that don't specify an explicit deadline.
	ParamUpdateDelay time.Duration
	// NetworkMapDelay is the rebuild debounce delay.
	NetworkMapDelay time.Duration
}

// Processor is the Serialized Event Processor.
type Processor struct {
	service.BaseBackgroundService

	authority *signing.Authority

	paramsBlobs store.BlobStore
	nodeBlobs   store.BlobStore
	mapBlobs    store.BlobStore
	text        store.TextStore

	pool   *workerpool.Pool
	broker *pubsub.Broker

	paramUpdateDelay time.Duration
	networkMapDelay  time.Duration

	timerMu         sync.Mutex
	rebuildTimer    *time.Timer
	activationTimer *time.Timer
}

// New creates a Processor. Start must be called before use.
func New(authority *signing.Authority, paramsBlobs, nodeBlobs, mapBlobs store.BlobStore, text store.TextStore, cfg Config) *Processor {
	return &Processor{
		BaseBackgroundService: *service.NewBaseBackgroundService("netmap/processor"),
		authority:             authority,
		paramsBlobs:           paramsBlobs,
		nodeBlobs:             nodeBlobs,
		mapBlobs:              mapBlobs,
		text:                  text,
		pool:                  workerpool.New("netmap/processor", &workerpool.PoolConfig{}),
		broker:                pubsub.NewBroker(false),
		paramUpdateDelay:      cfg.ParamUpdateDelay,
		networkMapDelay:       cfg.NetworkMapDelay,
	}
}

// WatchRebuilds subscribes to RebuildEvent notifications.
func (p *Processor) WatchRebuilds() *pubsub.Subscription {
	return p.broker.Subscribe()
}

// Start implements service.BackgroundService. It establishes the single
// worker thread and the initial network parameters/map, if they do not
// already exist.
func (p *Processor) Start() error {
	p.pool.Resize(1)

	if err := <-p.pool.Submit(p.createNetworkParameters); err != nil {
		return fmt.Errorf("%w: %s", ErrFatalBootstrap, err)
	}
	if err := <-p.pool.Submit(p.createNetworkMap); err != nil {
		return fmt.Errorf("%w: %s", ErrFatalBootstrap, err)
	}

	return nil
}

// Stop implements service.BackgroundService.
func (p *Processor) Stop() {
	p.timerMu.Lock()
	if p.rebuildTimer != nil {
		p.rebuildTimer.Stop()
	}
	if p.activationTimer != nil {
		p.activationTimer.Stop()
	}
	p.timerMu.Unlock()

	p.pool.Resize(0)
	p.BaseBackgroundService.Stop()
}

// createNetworkParameters establishes the bootstrap parameters if
// current-parameters does not already exist. Must run on the worker
// thread.
func (p *Processor) createNetworkParameters() error {
	if _, err := p.text.Get(KeyCurrentParameters); err == nil {
		return nil
	} else if err != store.ErrNotFound {
		return err
	}

	tmpl := params.Template(time.Now())
	signed, err := params.Sign(p.authority.Signer(), tmpl)
	if err != nil {
		return err
	}

	raw := signed.MarshalCBOR()
	hash := contenthash.New(raw).String()

	if err := p.paramsBlobs.Put(hash, raw); err != nil {
		return err
	}
	return p.text.Put(KeyCurrentParameters, hash)
}

// AddNode verifies and publishes a signed node info, returning a future
// that completes once the publish (or its rejection) has been applied.
func (p *Processor) AddNode(signed *node.SignedInfo) <-chan error {
	return p.pool.Submit(func() error {
		return p.addNode(signed)
	})
}

func (p *Processor) addNode(signed *node.SignedInfo) error {
	info, err := signed.Open()
	if err != nil {
		return ErrSignatureInvalid
	}
	if err := node.VerifyIdentities(signed, info); err != nil {
		return ErrSignatureInvalid
	}

	existing, err := p.nodeBlobs.GetAll()
	if err != nil {
		return err
	}

	nameToKey := map[string]string{}
	for _, raw := range existing {
		var otherSigned node.SignedInfo
		if uerr := otherSigned.UnmarshalCBOR(raw); uerr != nil {
			continue
		}
		otherInfo, operr := otherSigned.Open()
		if operr != nil {
			continue
		}
		for _, id := range otherInfo.Identities {
			nameToKey[id.Name] = otherSigned.Signature.PublicKey.String()
		}
	}

	var conflicts []string
	for _, id := range info.Identities {
		if owner, ok := nameToKey[id.Name]; ok && owner != signed.Signature.PublicKey.String() {
			conflicts = append(conflicts, id.Name)
		}
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("%w: %v", ErrNameConflict, conflicts)
	}

	hash := signed.Hash()
	if err := p.nodeBlobs.Put(hash, signed.MarshalCBOR()); err != nil {
		return err
	}

	p.scheduleNetworkMapRebuild()
	return nil
}

// DeleteNode removes a previously published node info by its content
// hash.
func (p *Processor) DeleteNode(hash string) <-chan error {
	return p.pool.Submit(func() error {
		if err := p.nodeBlobs.Delete(hash); err != nil {
			return err
		}
		p.scheduleNetworkMapRebuild()
		return nil
	})
}

// UpdateNetworkParameters enqueues application of change to the current
// network parameters, activating at the given time. A zero activation
// defaults to now plus the processor's configured paramUpdateDelay,
// producing a Pending update, or to now (activating immediately) when no
// positive delay is configured; pass an explicit past or present time to
// activate immediately instead.
func (p *Processor) UpdateNetworkParameters(change params.Change, description string, activation time.Time) <-chan error {
	return p.pool.Submit(func() error {
		return p.updateNetworkParameters(change, description, activation)
	})
}

func (p *Processor) updateNetworkParameters(change params.Change, description string, activation time.Time) error {
	if change == nil {
		return ErrBadInput
	}

	currentHash, err := p.text.Get(KeyCurrentParameters)
	if err != nil {
		return err
	}

	rawCurrent, err := p.paramsBlobs.Get(currentHash)
	if err != nil {
		return err
	}
	var currentSigned params.SignedNetworkParameters
	if err := currentSigned.UnmarshalCBOR(rawCurrent); err != nil {
		return err
	}
	current, err := currentSigned.Open()
	if err != nil {
		return err
	}

	next, err := params.Apply(current, change, time.Now())
	if err != nil {
		return err
	}

	nextSigned, err := params.Sign(p.authority.Signer(), next)
	if err != nil {
		return err
	}
	raw := nextSigned.MarshalCBOR()
	hash := contenthash.New(raw).String()
	if err := p.paramsBlobs.Put(hash, raw); err != nil {
		return err
	}

	if activation.IsZero() {
		if p.paramUpdateDelay > 0 {
			activation = time.Now().Add(p.paramUpdateDelay)
		} else {
			activation = time.Now()
		}
	}

	if !activation.After(time.Now()) {
		if err := p.text.Put(KeyCurrentParameters, hash); err != nil {
			return err
		}
		return p.createNetworkMap()
	}

	update := &ParametersUpdate{
		NewParametersHash: hash,
		Description:       description,
		UpdateDeadline:    activation,
	}
	if err := putParametersUpdate(p.text, update); err != nil {
		return err
	}

	p.scheduleNetworkMapRebuild()
	return nil
}

// scheduleNetworkMapRebuild debounces calls to createNetworkMap. Must run
// on the worker thread.
func (p *Processor) scheduleNetworkMapRebuild() {
	p.timerMu.Lock()
	defer p.timerMu.Unlock()

	if p.rebuildTimer != nil {
		p.rebuildTimer.Stop()
		p.rebuildTimer = nil
	}

	if p.networkMapDelay <= 0 {
		p.pool.Submit(p.createNetworkMap)
		return
	}

	delay := p.networkMapDelay
	if delay < time.Millisecond {
		delay = time.Millisecond
	}
	p.rebuildTimer = time.AfterFunc(delay, func() {
		p.pool.Submit(p.createNetworkMap)
	})
}

// createNetworkMap reads the current aggregate state, signs a fresh
// NetworkMap, and arms the pending update's activation timer if one
// exists. Must run on the worker thread.
func (p *Processor) createNetworkMap() error {
	currentHash, err := p.text.Get(KeyCurrentParameters)
	if err != nil {
		return err
	}

	pending, err := getParametersUpdate(p.text)
	if err != nil {
		return err
	}

	hashes, err := p.nodeBlobs.GetKeys()
	if err != nil {
		return err
	}

	m := &NetworkMap{
		NodeInfoHashes:       hashes,
		NetworkParameterHash: currentHash,
		ParametersUpdate:     pending,
	}

	signed, err := p.authority.Sign(MapSignatureContext, m)
	if err != nil {
		return err
	}
	raw := signed.MarshalCBOR()
	if err := p.mapBlobs.Put(KeyLatestNetworkMap, raw); err != nil {
		return err
	}

	p.broker.Broadcast(RebuildEvent{MapHash: contenthash.New(raw).String()})

	p.armActivationTimer(pending)
	return nil
}

func (p *Processor) armActivationTimer(pending *ParametersUpdate) {
	p.timerMu.Lock()
	defer p.timerMu.Unlock()

	if p.activationTimer != nil {
		p.activationTimer.Stop()
		p.activationTimer = nil
	}
	if pending == nil {
		return
	}

	delay := time.Until(pending.UpdateDeadline)
	if delay < time.Millisecond {
		delay = time.Millisecond
	}
	p.activationTimer = time.AfterFunc(delay, func() {
		p.pool.Submit(p.activate)
	})
}

// activate applies a pending parameters update once its deadline has
// passed. Must run on the worker thread.
func (p *Processor) activate() error {
	pending, err := getParametersUpdate(p.text)
	if err != nil {
		return err
	}
	if pending == nil {
		return nil
	}

	if err := p.text.Put(KeyCurrentParameters, pending.NewParametersHash); err != nil {
		return err
	}
	if err := p.text.Delete(KeyNextParamsUpdate); err != nil {
		return err
	}

	return p.createNetworkMap()
}

// CurrentNetworkMap returns the currently stored SignedNetworkMap bytes.
func (p *Processor) CurrentNetworkMap() ([]byte, error) {
	return p.mapBlobs.Get(KeyLatestNetworkMap)
}

// NetworkParameters returns the SignedNetworkParameters bytes stored
// under the given content hash.
func (p *Processor) NetworkParameters(hash string) ([]byte, error) {
	return p.paramsBlobs.Get(hash)
}

// NodeInfo returns the SignedNodeInfo bytes stored under the given content
// hash.
func (p *Processor) NodeInfo(hash string) ([]byte, error) {
	return p.nodeBlobs.Get(hash)
}

// CurrentParameters returns the content hash and decoded NetworkParameters
// currently pointed to by current-parameters.
func (p *Processor) CurrentParameters() (string, *params.NetworkParameters, error) {
	hash, err := p.text.Get(KeyCurrentParameters)
	if err != nil {
		return "", nil, err
	}

	raw, err := p.paramsBlobs.Get(hash)
	if err != nil {
		return "", nil, err
	}
	var signed params.SignedNetworkParameters
	if err := signed.UnmarshalCBOR(raw); err != nil {
		return "", nil, err
	}
	current, err := signed.Open()
	if err != nil {
		return "", nil, err
	}
	return hash, current, nil
}

// ListNodes returns the content hash and decoded node Info of every
// currently published node.
func (p *Processor) ListNodes() (map[string]*node.Info, error) {
	raw, err := p.nodeBlobs.GetAll()
	if err != nil {
		return nil, err
	}

	out := make(map[string]*node.Info, len(raw))
	for hash, data := range raw {
		var signed node.SignedInfo
		if err := signed.UnmarshalCBOR(data); err != nil {
			continue
		}
		info, err := signed.Open()
		if err != nil {
			continue
		}
		out[hash] = info
	}
	return out, nil
}
