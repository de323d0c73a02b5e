package api

import (
	"bytes"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/netmapd/common/crypto/signature/signers/memory"
	"github.com/oasisprotocol/netmapd/netmap/node"
	"github.com/oasisprotocol/netmapd/netmap/processor"
	"github.com/oasisprotocol/netmapd/netmap/signing"
	"github.com/oasisprotocol/netmapd/netmap/store"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *processor.Processor) {
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

	proc := processor.New(authority, paramsBlobs, nodeBlobs, mapBlobs, text, processor.Config{})
	require.NoError(t, proc.Start())
	t.Cleanup(proc.Stop)

	if cfg.CacheTimeout == 0 {
		cfg.CacheTimeout = 2 * time.Second
	}
	s, err := New(proc, cfg)
	require.NoError(t, err)
	return s, proc
}

func signedNodeBytes(t *testing.T, name string) []byte {
	t.Helper()
	signer, err := memory.NewSigner(rand.Reader)
	require.NoError(t, err)

	info := &node.Info{Identities: []node.Identity{{Name: name, PublicKey: signer.Public()}}, Addresses: []string{"10.0.0.1:8080"}}
	signed, err := node.Sign(signer, info)
	require.NoError(t, err)
	return signed.MarshalCBOR()
}

func TestHandleNetworkMapServesCurrentMap(t *testing.T) {
	require := require.New(t)

	s, _ := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodGet, protocolPrefix, nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)

	require.Equal(http.StatusOK, w.Code)
	require.NotEmpty(w.Body.Bytes())
	require.Contains(w.Header().Get("Cache-Control"), "max-age=2")
}

func TestHandlePublishAndFetchNodeInfo(t *testing.T) {
	require := require.New(t)

	s, _ := newTestServer(t, Config{})

	raw := signedNodeBytes(t, "O=Acme,C=US")
	req := httptest.NewRequest(http.MethodPost, protocolPrefix+"/publish", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	require.Equal(http.StatusOK, w.Code)

	var signed node.SignedInfo
	require.NoError(signed.UnmarshalCBOR(raw))
	hash := signed.Hash()

	req = httptest.NewRequest(http.MethodGet, protocolPrefix+"/node-info/"+hash, nil)
	w = httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	require.Equal(http.StatusOK, w.Code)
	require.Equal(raw, w.Body.Bytes())
}

func TestHandlePublishRejectsNameConflict(t *testing.T) {
	require := require.New(t)

	s, _ := newTestServer(t, Config{})

	first := signedNodeBytes(t, "O=Acme,C=US")
	req := httptest.NewRequest(http.MethodPost, protocolPrefix+"/publish", bytes.NewReader(first))
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	require.Equal(http.StatusOK, w.Code)

	second := signedNodeBytes(t, "O=Acme,C=US")
	req = httptest.NewRequest(http.MethodPost, protocolPrefix+"/publish", bytes.NewReader(second))
	w = httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	require.Equal(http.StatusConflict, w.Code)
}

func TestFetchUnknownHashReturns404(t *testing.T) {
	require := require.New(t)

	s, _ := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodGet, protocolPrefix+"/node-info/deadbeef", nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	require.Equal(http.StatusNotFound, w.Code)
}

func TestFetchNodeInfoIsServedFromCacheOnSecondRequest(t *testing.T) {
	require := require.New(t)

	s, proc := newTestServer(t, Config{})

	raw := signedNodeBytes(t, "O=Acme,C=US")
	require.NoError(<-proc.AddNode(mustOpenSignedInfo(t, raw)))

	var signed node.SignedInfo
	require.NoError(signed.UnmarshalCBOR(raw))
	hash := signed.Hash()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, protocolPrefix+"/node-info/"+hash, nil)
		w := httptest.NewRecorder()
		s.srv.Handler.ServeHTTP(w, req)
		require.Equal(http.StatusOK, w.Code)
		require.Equal(raw, w.Body.Bytes())
	}

	cached, ok := s.blobCache.Get(hash)
	require.True(ok, "a fetched blob should populate the read-through cache")
	require.Equal(raw, cached.([]byte))
}

func mustOpenSignedInfo(t *testing.T, raw []byte) *node.SignedInfo {
	t.Helper()
	var signed node.SignedInfo
	require.NoError(t, signed.UnmarshalCBOR(raw))
	return &signed
}

func TestAdminEndpointsRequireAuthWhenConfigured(t *testing.T) {
	require := require.New(t)

	s, _ := newTestServer(t, Config{Username: "admin", Password: "secret"})

	req := httptest.NewRequest(http.MethodGet, adminPrefix+"/parameters", nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	require.Equal(http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, adminPrefix+"/parameters", nil)
	req.SetBasicAuth("admin", "secret")
	w = httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	require.Equal(http.StatusOK, w.Code)
}

func TestAdminWhitelistAppendReplaceClear(t *testing.T) {
	require := require.New(t)

	s, _ := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodPost, adminPrefix+"/whitelist", bytes.NewBufferString("pkg.Foo:abc123\n"))
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	require.Equal(http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodDelete, adminPrefix+"/whitelist", nil)
	w = httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	require.Equal(http.StatusOK, w.Code)
}

func TestAdminWhitelistRejectsMalformedLine(t *testing.T) {
	require := require.New(t)

	s, _ := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodPost, adminPrefix+"/whitelist", bytes.NewBufferString("not-a-valid-line"))
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	require.Equal(http.StatusBadRequest, w.Code)
}

func TestAdminNotaryAdd(t *testing.T) {
	require := require.New(t)

	s, proc := newTestServer(t, Config{})

	raw := signedNodeBytes(t, "O=Notary,C=US")
	req := httptest.NewRequest(http.MethodPost, adminPrefix+"/notary", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	require.Equal(http.StatusOK, w.Code)

	_, current, err := proc.CurrentParameters()
	require.NoError(err)
	require.Len(current.Notaries, 1)
	require.True(current.Notaries[0].Validating)
}

func TestNewGeneratesSelfSignedCertificateWhenTLSEnabled(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	s, _ := newTestServer(t, Config{
		TLS:      true,
		CertPath: dir + "/cert.pem",
		KeyPath:  dir + "/key.pem",
		Hostname: "netmap.example.test",
	})

	require.NotNil(s.tlsCert)
	require.NotNil(s.srv.TLSConfig)
	_, err := os.Stat(dir + "/cert.pem")
	require.NoError(err, "a self-signed certificate should be persisted on first boot")
}
