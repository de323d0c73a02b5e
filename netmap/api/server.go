// Package api implements the external HTTP adapter: it translates inbound
// requests into Processor calls and serves cached signed artifacts
// directly from the blob/text stores.
package api

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	golog "log"
	"net/http"
	"strings"
	"time"

	"github.com/oasisprotocol/netmapd/common/cache/lru"
	cryptoTLS "github.com/oasisprotocol/netmapd/common/crypto/tls"
	cerrors "github.com/oasisprotocol/netmapd/common/errors"
	"github.com/oasisprotocol/netmapd/common/service"
	"github.com/oasisprotocol/netmapd/contenthash"
	"github.com/oasisprotocol/netmapd/netmap/node"
	"github.com/oasisprotocol/netmapd/netmap/params"
	"github.com/oasisprotocol/netmapd/netmap/processor"
	"github.com/oasisprotocol/netmapd/netmap/store"
)

// defaultBlobCacheEntries bounds the in-memory read-through cache used for
// content-addressed blob fetches, which are safe to cache indefinitely
// since a given hash never changes its associated content.
const defaultBlobCacheEntries = 4096

const (
	protocolPrefix = "/network-map"
	adminPrefix    = "/admin/api"
)

// Config configures the Server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
	// CacheTimeout is the max-age advertised on the network map response.
	CacheTimeout time.Duration
	// Username and Password gate the admin surface, if both are set.
	Username string
	Password string
	// BlobCacheEntries bounds the content-addressed blob read-through
	// cache. defaultBlobCacheEntries is used if zero.
	BlobCacheEntries uint64
	// TLS, if true, serves over HTTPS using CertPath/KeyPath, generating a
	// self-signed certificate under those paths on first boot if absent.
	TLS      bool
	CertPath string
	KeyPath  string
	// Hostname is used as the CommonName of a self-signed certificate.
	Hostname string
}

// Server is the External API Adapter.
type Server struct {
	service.BaseBackgroundService

	proc *processor.Processor
	srv  *http.Server
	cfg  Config

	blobCache *lru.Cache

	tlsCert *tls.Certificate
}

// New creates a Server. Start must be called to begin serving. If
// cfg.TLS is set, a certificate is loaded from (or generated into)
// cfg.CertPath/cfg.KeyPath up front so a misconfiguration fails fast.
func New(proc *processor.Processor, cfg Config) (*Server, error) {
	entries := cfg.BlobCacheEntries
	if entries == 0 {
		entries = defaultBlobCacheEntries
	}
	blobCache, err := lru.New(lru.Capacity(entries, false))
	if err != nil {
		// Only fails if an Option itself errors; none of ours do.
		panic(err)
	}

	var tlsCert *tls.Certificate
	if cfg.TLS {
		tlsCert, err = cryptoTLS.LoadOrGenerate(cfg.CertPath, cfg.KeyPath, cfg.Hostname)
		if err != nil {
			return nil, fmt.Errorf("netmap/api: failed to load TLS certificate: %w", err)
		}
	}

	s := &Server{
		BaseBackgroundService: *service.NewBaseBackgroundService("netmap/api"),
		proc:                  proc,
		cfg:                   cfg,
		blobCache:             blobCache,
		tlsCert:               tlsCert,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(protocolPrefix, s.handleNetworkMap)
	mux.HandleFunc(protocolPrefix+"/publish", s.handlePublish)
	mux.HandleFunc(protocolPrefix+"/ack-parameters", s.handleAckParameters)
	mux.HandleFunc(protocolPrefix+"/node-info/", s.handleFetchNodeInfo)
	mux.HandleFunc(protocolPrefix+"/network-parameters/", s.handleFetchParameters)

	mux.HandleFunc(adminPrefix+"/notary", s.requireAuth(s.handleAdminNotary))
	mux.HandleFunc(adminPrefix+"/notary/", s.requireAuth(s.handleAdminNotaryDelete))
	mux.HandleFunc(adminPrefix+"/whitelist", s.requireAuth(s.handleAdminWhitelist))
	mux.HandleFunc(adminPrefix+"/node/", s.requireAuth(s.handleAdminNodeDelete))
	mux.HandleFunc(adminPrefix+"/nodes", s.requireAuth(s.handleAdminListNodes))
	mux.HandleFunc(adminPrefix+"/parameters", s.requireAuth(s.handleAdminParameters))

	s.srv = &http.Server{
		Addr:     cfg.Addr,
		Handler:  mux,
		ErrorLog: golog.New(ioutil.Discard, "netmap/api/http", 0),
	}
	if tlsCert != nil {
		s.srv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{*tlsCert}}
	}

	return s, nil
}

// Start implements service.BackgroundService.
func (s *Server) Start() error {
	go func() {
		var err error
		if s.tlsCert != nil {
			err = s.srv.ListenAndServeTLS("", "")
		} else {
			err = s.srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.Logger.Error("http server error", "err", err)
		}
	}()

	go func() {
		<-s.Quit()
		_ = s.srv.Close()
	}()

	return nil
}

// Stop implements service.BackgroundService.
func (s *Server) Stop() {
	_ = s.srv.Close()
	s.BaseBackgroundService.Stop()
}

func errMethodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	w.WriteHeader(http.StatusMethodNotAllowed)
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if s.cfg.Username == "" && s.cfg.Password == "" {
			next(w, req)
			return
		}
		user, pass, ok := req.BasicAuth()
		if !ok || user != s.cfg.Username || pass != s.cfg.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="netmap admin"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, req)
	}
}

func (s *Server) handleNetworkMap(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		errMethodNotAllowed(w, http.MethodGet)
		return
	}

	raw, err := s.proc.CurrentNetworkMap()
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", int(s.cfg.CacheTimeout.Seconds())))
	_, _ = w.Write(raw)
}

func (s *Server) handlePublish(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		errMethodNotAllowed(w, http.MethodPost)
		return
	}

	raw, err := ioutil.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusInternalServerError)
		return
	}

	var signed node.SignedInfo
	if err := signed.UnmarshalCBOR(raw); err != nil {
		http.Error(w, "malformed node info: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := <-s.proc.AddNode(&signed); err != nil {
		s.writeProcessorError(w, err)
		return
	}
	_, _ = io.WriteString(w, "published")
}

func (s *Server) handleAckParameters(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		errMethodNotAllowed(w, http.MethodPost)
		return
	}

	raw, err := ioutil.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusInternalServerError)
		return
	}

	s.Logger.Info("parameters acknowledgement received", "hash", strings.TrimSpace(string(raw)))
	_, _ = io.WriteString(w, "acknowledged")
}

func (s *Server) handleFetchNodeInfo(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		errMethodNotAllowed(w, http.MethodGet)
		return
	}

	key := strings.TrimPrefix(req.URL.Path, protocolPrefix+"/node-info/")
	raw, err := s.fetchCachedBlob(key, s.proc.NodeInfo)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(raw)
}

func (s *Server) handleFetchParameters(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		errMethodNotAllowed(w, http.MethodGet)
		return
	}

	key := strings.TrimPrefix(req.URL.Path, protocolPrefix+"/network-parameters/")
	raw, err := s.fetchCachedBlob(key, s.proc.NetworkParameters)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(raw)
}

// fetchCachedBlob validates that key is a well-formed content hash, then
// serves it from the read-through blob cache, populating the cache from
// fetch on a miss. Content-addressed blobs never change once written, so
// entries never need to be invalidated.
func (s *Server) fetchCachedBlob(key string, fetch func(string) ([]byte, error)) ([]byte, error) {
	var h contenthash.Hash
	if err := h.UnmarshalHex(key); err != nil {
		return nil, store.ErrNotFound
	}

	if cached, ok := s.blobCache.Get(key); ok {
		return cached.([]byte), nil
	}

	raw, err := fetch(key)
	if err != nil {
		return nil, err
	}

	_ = s.blobCache.Put(key, raw)
	return raw, nil
}

// handleAdminNotary accepts signed node info bytes for a notary (validating
// or non-validating) and registers it via F.updateNetworkParameters(AddNotary).
func (s *Server) handleAdminNotary(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		errMethodNotAllowed(w, http.MethodPost)
		return
	}

	raw, err := ioutil.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusInternalServerError)
		return
	}

	var signed node.SignedInfo
	if err := signed.UnmarshalCBOR(raw); err != nil {
		http.Error(w, "malformed node info: "+err.Error(), http.StatusBadRequest)
		return
	}
	info, err := signed.Open()
	if err != nil {
		http.Error(w, "signature verification failed", http.StatusBadRequest)
		return
	}

	validating := req.URL.Query().Get("validating") != "false"
	for _, id := range info.Identities {
		change := params.AddNotary{Notary: params.Notary{Identity: id.Name, Validating: validating}}
		if err := <-s.proc.UpdateNetworkParameters(change, "admin: added notary "+id.Name, time.Time{}); err != nil {
			s.writeProcessorError(w, err)
			return
		}
	}
	_, _ = io.WriteString(w, "notary added")
}

func (s *Server) handleAdminNotaryDelete(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodDelete {
		errMethodNotAllowed(w, http.MethodDelete)
		return
	}

	nameHash := strings.TrimPrefix(req.URL.Path, adminPrefix+"/notary/")
	change := params.RemoveNotary{NameHash: nameHash}
	if err := <-s.proc.UpdateNetworkParameters(change, "admin: removed notary "+nameHash, time.Time{}); err != nil {
		s.writeProcessorError(w, err)
		return
	}
	_, _ = io.WriteString(w, "notary removed")
}

// handleAdminWhitelist accepts a text body of "<fqn>:<sha256>" lines and
// applies an append, replace, or clear depending on the "mode" query param.
func (s *Server) handleAdminWhitelist(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		errMethodNotAllowed(w, "POST, PUT, DELETE")
		return
	}

	mode := req.URL.Query().Get("mode")
	if req.Method == http.MethodDelete {
		mode = "clear"
	}

	var change params.Change
	switch mode {
	case "clear":
		change = params.ClearWhiteList{}
	case "replace":
		entries, err := parseWhitelistBody(req.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		change = params.ReplaceWhiteList{Entries: entries}
	default:
		entries, err := parseWhitelistBody(req.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		change = params.AppendWhiteList{Entries: entries}
	}

	if err := <-s.proc.UpdateNetworkParameters(change, "admin: whitelist "+mode, time.Time{}); err != nil {
		s.writeProcessorError(w, err)
		return
	}
	_, _ = io.WriteString(w, "whitelist updated")
}

func parseWhitelistBody(body io.Reader) (map[string][]string, error) {
	raw, err := ioutil.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	out := map[string][]string{}
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("malformed whitelist line: %q", line)
		}
		out[parts[0]] = append(out[parts[0]], parts[1])
	}
	return out, nil
}

func (s *Server) handleAdminNodeDelete(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodDelete {
		errMethodNotAllowed(w, http.MethodDelete)
		return
	}

	hash := strings.TrimPrefix(req.URL.Path, adminPrefix+"/node/")
	if err := <-s.proc.DeleteNode(hash); err != nil {
		s.writeProcessorError(w, err)
		return
	}
	_, _ = io.WriteString(w, "node deleted")
}

func (s *Server) handleAdminListNodes(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		errMethodNotAllowed(w, http.MethodGet)
		return
	}

	nodes, err := s.proc.ListNodes()
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(nodes)
}

func (s *Server) handleAdminParameters(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		errMethodNotAllowed(w, http.MethodGet)
		return
	}

	hash, current, err := s.proc.CurrentParameters()
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Hash       string                    `json:"hash"`
		Parameters *params.NetworkParameters `json:"parameters"`
	}{Hash: hash, Parameters: current})
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if cerrors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.Logger.Error("storage error", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (s *Server) writeProcessorError(w http.ResponseWriter, err error) {
	switch {
	case cerrors.Is(err, processor.ErrSignatureInvalid), cerrors.Is(err, processor.ErrBadInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case cerrors.Is(err, processor.ErrNameConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.Logger.Error("processor error", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
