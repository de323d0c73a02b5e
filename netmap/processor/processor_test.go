package processor

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/netmapd/common/crypto/signature"
	"github.com/oasisprotocol/netmapd/common/crypto/signature/signers/memory"
	"github.com/oasisprotocol/netmapd/netmap/node"
	"github.com/oasisprotocol/netmapd/netmap/params"
	"github.com/oasisprotocol/netmapd/netmap/signing"
	"github.com/oasisprotocol/netmapd/netmap/store"
)

func newTestProcessor(t *testing.T, cfg Config) *Processor {
	t.Helper()

	signer, err := memory.NewSigner(rand.Reader)
	require.NoError(t, err)
	authority := signing.New(signer)

	paramsBlobs, err := store.NewFSBlobStore(t.TempDir())
	require.NoError(t, err)
	nodeBlobs, err := store.NewFSBlobStore(t.TempDir())
	require.NoError(t, err)
	mapBlobs, err := store.NewFSBlobStore(t.TempDir())
	require.NoError(t, err)
	text, err := store.NewFSTextStore(t.TempDir() + "/text.db")
	require.NoError(t, err)

	p := New(authority, paramsBlobs, nodeBlobs, mapBlobs, text, cfg)
	require.NoError(t, p.Start())
	t.Cleanup(p.Stop)
	return p
}

func signedNode(t *testing.T, name string) (*node.SignedInfo, signature.Signer) {
	t.Helper()
	signer, err := memory.NewSigner(rand.Reader)
	require.NoError(t, err)

	info := &node.Info{Identities: []node.Identity{{Name: name, PublicKey: signer.Public()}}, Addresses: []string{"10.0.0.1:8080"}}
	signed, err := node.Sign(signer, info)
	require.NoError(t, err)
	return signed, signer
}

func TestStartEstablishesBootstrapParameters(t *testing.T) {
	require := require.New(t)

	p := newTestProcessor(t, Config{})

	hash, current, err := p.CurrentParameters()
	require.NoError(err)
	require.NotEmpty(hash)
	require.EqualValues(1, current.Epoch)
	require.Empty(current.Notaries)
}

func TestStartIsIdempotent(t *testing.T) {
	require := require.New(t)

	p := newTestProcessor(t, Config{})
	hash1, _, err := p.CurrentParameters()
	require.NoError(err)

	require.NoError(p.Start(), "starting an already-bootstrapped processor must not error")

	hash2, _, err := p.CurrentParameters()
	require.NoError(err)
	require.Equal(hash1, hash2, "re-running bootstrap must not replace existing parameters")
}

func TestAddNodePublishesAndRejectsNameConflict(t *testing.T) {
	require := require.New(t)

	p := newTestProcessor(t, Config{})

	signed, _ := signedNode(t, "O=Acme,C=US")
	require.NoError(<-p.AddNode(signed))

	nodes, err := p.ListNodes()
	require.NoError(err)
	require.Len(nodes, 1)

	conflicting, _ := signedNode(t, "O=Acme,C=US")
	err = <-p.AddNode(conflicting)
	require.ErrorIs(err, ErrNameConflict)
}

func TestAddNodeRejectsUnownedIdentity(t *testing.T) {
	require := require.New(t)

	p := newTestProcessor(t, Config{})

	signer, err := memory.NewSigner(rand.Reader)
	require.NoError(err)
	other, err := memory.NewSigner(rand.Reader)
	require.NoError(err)

	info := &node.Info{Identities: []node.Identity{{Name: "O=Acme,C=US", PublicKey: other.Public()}}}
	signed, err := node.Sign(signer, info)
	require.NoError(err)

	err = <-p.AddNode(signed)
	require.ErrorIs(err, ErrSignatureInvalid)
}

func TestDeleteNodeRemovesPublishedNode(t *testing.T) {
	require := require.New(t)

	p := newTestProcessor(t, Config{NetworkMapDelay: time.Millisecond})

	signed, _ := signedNode(t, "O=Acme,C=US")
	require.NoError(<-p.AddNode(signed))
	hash := signed.Hash()

	require.NoError(<-p.DeleteNode(hash))

	nodes, err := p.ListNodes()
	require.NoError(err)
	require.Empty(nodes)
}

func TestUpdateNetworkParametersImmediateActivation(t *testing.T) {
	require := require.New(t)

	p := newTestProcessor(t, Config{})

	_, before, err := p.CurrentParameters()
	require.NoError(err)

	change := params.AddNotary{Notary: params.Notary{Identity: "notary-1", Validating: true}}
	require.NoError(<-p.UpdateNetworkParameters(change, "add notary-1", time.Time{}))

	_, after, err := p.CurrentParameters()
	require.NoError(err)
	require.Equal(before.Epoch+1, after.Epoch)
	require.Len(after.Notaries, 1)
	require.Equal("notary-1", after.Notaries[0].Identity)
}

func TestUpdateNetworkParametersScheduledActivation(t *testing.T) {
	require := require.New(t)

	p := newTestProcessor(t, Config{NetworkMapDelay: time.Millisecond})

	_, before, err := p.CurrentParameters()
	require.NoError(err)

	change := params.AddNotary{Notary: params.Notary{Identity: "notary-1", Validating: true}}
	deadline := time.Now().Add(100 * time.Millisecond)
	require.NoError(<-p.UpdateNetworkParameters(change, "add notary-1", deadline))

	_, stillBefore, err := p.CurrentParameters()
	require.NoError(err)
	require.Equal(before.Epoch, stillBefore.Epoch, "scheduled update must not activate immediately")

	require.Eventually(func() bool {
		_, current, err := p.CurrentParameters()
		return err == nil && current.Epoch == before.Epoch+1
	}, 2*time.Second, 10*time.Millisecond, "scheduled update should activate after its deadline")
}

func TestUpdateNetworkParametersDefaultsToConfiguredDelay(t *testing.T) {
	require := require.New(t)

	p := newTestProcessor(t, Config{ParamUpdateDelay: 10 * time.Second, NetworkMapDelay: time.Millisecond})

	_, before, err := p.CurrentParameters()
	require.NoError(err)

	change := params.AddNotary{Notary: params.Notary{Identity: "notary-1", Validating: true}}
	start := time.Now()
	require.NoError(<-p.UpdateNetworkParameters(change, "add notary-1", time.Time{}))

	_, stillBefore, err := p.CurrentParameters()
	require.NoError(err)
	require.Equal(before.Epoch, stillBefore.Epoch, "an omitted activation must schedule a pending update, not apply immediately")

	update, err := getParametersUpdate(p.text)
	require.NoError(err)
	require.NotNil(update)
	require.Equal("add notary-1", update.Description)
	require.WithinDuration(start.Add(10*time.Second), update.UpdateDeadline, 2*time.Second)
}

func TestUpdateNetworkParametersRejectsNilChange(t *testing.T) {
	require := require.New(t)

	p := newTestProcessor(t, Config{})
	err := <-p.UpdateNetworkParameters(nil, "", time.Time{})
	require.ErrorIs(err, ErrBadInput)
}

func TestCurrentNetworkMapReflectsPublishedNodes(t *testing.T) {
	require := require.New(t)

	p := newTestProcessor(t, Config{})

	sub := p.WatchRebuilds()
	defer sub.Close()
	rebuilds := make(chan RebuildEvent, 4)
	sub.Unwrap(rebuilds)

	signed, _ := signedNode(t, "O=Acme,C=US")
	require.NoError(<-p.AddNode(signed))

	select {
	case <-rebuilds:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a rebuild event after publishing a node")
	}

	raw, err := p.CurrentNetworkMap()
	require.NoError(err)
	require.NotEmpty(raw)

	var signedMap SignedNetworkMap
	require.NoError(signedMap.UnmarshalCBOR(raw))
	m, err := signedMap.Open()
	require.NoError(err)
	require.Contains(m.NodeInfoHashes, signed.Hash())
}
