package common

import (
	"context"
	"crypto/rand"
	"fmt"
	"path/filepath"
	"time"

	commonutil "github.com/oasisprotocol/netmapd/common"
	"github.com/oasisprotocol/netmapd/common/crypto/signature"
	fileSigner "github.com/oasisprotocol/netmapd/common/crypto/signature/signers/file"
	"github.com/oasisprotocol/netmapd/common/logging"
	"github.com/oasisprotocol/netmapd/common/persistent"
	"github.com/oasisprotocol/netmapd/common/service"
	"github.com/oasisprotocol/netmapd/config"
	"github.com/oasisprotocol/netmapd/netmap/api"
	"github.com/oasisprotocol/netmapd/netmap/migration"
	"github.com/oasisprotocol/netmapd/netmap/notary"
	"github.com/oasisprotocol/netmapd/netmap/params"
	"github.com/oasisprotocol/netmapd/netmap/processor"
	"github.com/oasisprotocol/netmapd/netmap/signing"
	"github.com/oasisprotocol/netmapd/netmap/store"
	"github.com/oasisprotocol/netmapd/netmap/watcher"
)

const notaryPattern = "*.pem"

// Node aggregates the network map service's components and their lifecycle.
type Node struct {
	logger *logging.Logger
	mgr    *service.Manager

	commonStore *persistent.CommonStore

	Processor *processor.Processor
	Watcher   *watcher.Watcher
	API       *api.Server
}

// Wait blocks until the node is asked to shut down.
func (n *Node) Wait() {
	n.mgr.Wait()
}

// Cleanup releases resources after Wait returns.
func (n *Node) Cleanup() {
	n.mgr.Cleanup()
	if n.commonStore != nil {
		_ = n.commonStore.Close()
	}
}

// NewNode constructs and starts every component of the network map service.
func NewNode(cfg *config.Config) (*Node, error) {
	logger := logging.GetLogger("netmapd")

	n := &Node{
		logger: logger,
		mgr:    service.NewManager(logger),
	}

	var startOK bool
	defer func() {
		if !startOK {
			n.mgr.Stop()
			n.Cleanup()
		}
	}()

	if err := commonutil.Mkdir(cfg.DBDir); err != nil {
		return nil, fmt.Errorf("failed to prepare database directory: %w", err)
	}

	signerFactory, err := fileSigner.NewFactory(cfg.DBDir, signature.SignerNetworkMap)
	if err != nil {
		return nil, fmt.Errorf("failed to construct signer factory: %w", err)
	}
	signer, err := signerFactory.Load("netmap")
	if err == signature.ErrNotExist {
		signer, err = signerFactory.Generate("netmap", rand.Reader)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load/generate network map signing key: %w", err)
	}
	logger.Info("loaded network map signing key", "public_key", signer.Public())
	authority := signing.New(signer)

	n.commonStore, err = persistent.NewCommonStore(cfg.DBDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open common store: %w", err)
	}

	paramsSvc, err := n.commonStore.GetServiceStore("netmap-parameters")
	if err != nil {
		return nil, err
	}
	nodeSvc, err := n.commonStore.GetServiceStore("netmap-nodes")
	if err != nil {
		return nil, err
	}
	mapSvc, err := n.commonStore.GetServiceStore("netmap-map")
	if err != nil {
		return nil, err
	}
	textSvc, err := n.commonStore.GetServiceStore("netmap-text")
	if err != nil {
		return nil, err
	}

	paramsBlobs := store.NewDBBlobStore(paramsSvc)
	nodeBlobs := store.NewDBBlobStore(nodeSvc)
	mapBlobs := store.NewDBBlobStore(mapSvc)
	text := store.NewDBTextStore(textSvc)

	if cfg.MigrateFSDir != "" {
		if err := n.runMigration(cfg, paramsBlobs, nodeBlobs, mapBlobs, text); err != nil {
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}

	n.Processor = processor.New(authority, paramsBlobs, nodeBlobs, mapBlobs, text, processor.Config{
		ParamUpdateDelay: cfg.ParamUpdateDelay,
		NetworkMapDelay:  cfg.NetworkMapDelay,
	})
	if err := n.Processor.Start(); err != nil {
		return nil, fmt.Errorf("failed to start processor: %w", err)
	}
	n.mgr.Register(n.Processor)

	if err := n.reconcileNotaries(cfg.NotaryDir); err != nil {
		logger.Warn("failed initial notary reconciliation", "err", err)
	}

	n.Watcher, err = watcher.New(cfg.NotaryDir, notaryPattern, watcher.DefaultInterval, func() {
		if err := n.reconcileNotaries(cfg.NotaryDir); err != nil {
			logger.Warn("failed to reconcile notaries after directory change", "err", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to construct notary directory watcher: %w", err)
	}
	if err := n.Watcher.Start(); err != nil {
		return nil, fmt.Errorf("failed to start notary directory watcher: %w", err)
	}
	n.mgr.Register(n.Watcher)

	n.API, err = api.New(n.Processor, api.Config{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		CacheTimeout: cfg.CacheTimeout,
		Username:     cfg.Username,
		Password:     cfg.Password,
		TLS:          cfg.TLS,
		CertPath:     cfg.CertPath,
		KeyPath:      cfg.KeyPath,
		Hostname:     cfg.Hostname,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to construct API server: %w", err)
	}
	if err := n.API.Start(); err != nil {
		return nil, fmt.Errorf("failed to start API server: %w", err)
	}
	n.mgr.Register(n.API)

	logger.Info("network map service ready", "port", cfg.Port)
	startOK = true
	return n, nil
}

func (n *Node) runMigration(cfg *config.Config, paramsBlobs, nodeBlobs, mapBlobs store.BlobStore, text store.TextStore) error {
	n.logger.Info("migrating legacy filesystem state", "dir", cfg.MigrateFSDir)

	fsParams, err := store.NewFSBlobStore(filepath.Join(cfg.MigrateFSDir, "parameters"))
	if err != nil {
		return err
	}
	fsNodes, err := store.NewFSBlobStore(filepath.Join(cfg.MigrateFSDir, "nodes"))
	if err != nil {
		return err
	}
	fsMap, err := store.NewFSBlobStore(filepath.Join(cfg.MigrateFSDir, "map"))
	if err != nil {
		return err
	}
	fsText, err := store.NewFSTextStore(filepath.Join(cfg.MigrateFSDir, "text.db"))
	if err != nil {
		return err
	}

	pairs := []migration.Pair{
		{Name: "network-parameters", Src: fsParams, Dst: paramsBlobs},
		{Name: "node-info", Src: fsNodes, Dst: nodeBlobs},
		{Name: "network-map", Src: fsMap, Dst: mapBlobs},
	}
	textPairs := []migration.TextPair{
		{
			Name: "pointers",
			Src:  fsText,
			Dst:  text,
			Keys: []string{processor.KeyCurrentParameters, processor.KeyNextParamsUpdate, processor.KeyLatestNetworkMap},
		},
	}

	return migration.Run(context.Background(), pairs, textPairs)
}

// reconcileNotaries diffs the watched notary certificate directory against
// the currently registered notaries and, if they differ, replaces the
// parameters' notary list wholesale via a single update call.
func (n *Node) reconcileNotaries(dir string) error {
	infos, err := notary.LoadDirectory(dir, notaryPattern)
	if err != nil {
		return err
	}
	wanted := notary.ToParams(infos)

	_, current, err := n.Processor.CurrentParameters()
	if err != nil {
		return err
	}

	if notarySetsEqual(current.Notaries, wanted) {
		return nil
	}

	return <-n.Processor.UpdateNetworkParameters(params.ReplaceNotaries{Notaries: wanted}, "notaries changed", time.Time{})
}

// notarySetsEqual reports whether have and want contain the same set of
// notary identities, ignoring order.
func notarySetsEqual(have, want []params.Notary) bool {
	if len(have) != len(want) {
		return false
	}

	haveByIdentity := map[string]bool{}
	for _, h := range have {
		haveByIdentity[h.Identity] = true
	}
	for _, w := range want {
		if !haveByIdentity[w.Identity] {
			return false
		}
	}
	return true
}
