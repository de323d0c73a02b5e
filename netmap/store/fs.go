package store

import (
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FSBlobStore is a BlobStore backed by a flat directory, one file per key.
// It is the legacy backend, superseded by the BadgerDB backend but kept
// around as the migration orchestrator's source.
type FSBlobStore struct {
	mu  sync.RWMutex
	dir string
}

var _ BlobStore = (*FSBlobStore)(nil)

// NewFSBlobStore creates an FSBlobStore rooted at dir, creating dir if
// necessary.
func NewFSBlobStore(dir string) (*FSBlobStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, ErrStorageIO
	}
	return &FSBlobStore{dir: dir}, nil
}

func (s *FSBlobStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key))
}

// Put implements BlobStore.
func (s *FSBlobStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ioutil.WriteFile(s.path(key), value, 0o600); err != nil {
		return ErrStorageIO
	}
	return nil
}

// Get implements BlobStore.
func (s *FSBlobStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := ioutil.ReadFile(s.path(key))
	switch {
	case os.IsNotExist(err):
		return nil, ErrNotFound
	case err != nil:
		return nil, ErrStorageIO
	}
	return data, nil
}

// GetOrNil implements BlobStore.
func (s *FSBlobStore) GetOrNil(key string) ([]byte, error) {
	v, err := s.Get(key)
	if err == ErrNotFound {
		return nil, nil
	}
	return v, err
}

// Delete implements BlobStore.
func (s *FSBlobStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return ErrStorageIO
	}
	return nil
}

// GetAll implements BlobStore.
func (s *FSBlobStore) GetAll() (map[string][]byte, error) {
	keys, err := s.GetKeys()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		v, err := s.Get(k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// GetKeys implements BlobStore.
func (s *FSBlobStore) GetKeys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := ioutil.ReadDir(s.dir)
	if err != nil {
		return nil, ErrStorageIO
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		k, err := url.PathUnescape(e.Name())
		if err != nil {
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// FSTextStore is a TextStore backed by a single YAML-free flat file of
// newline-separated "key\tvalue" pairs, rewritten wholesale on every
// mutation. Simplicity over performance: the text store only ever holds a
// handful of named pointers.
type FSTextStore struct {
	mu   sync.RWMutex
	path string
}

var _ TextStore = (*FSTextStore)(nil)

// NewFSTextStore creates an FSTextStore backed by the file at path,
// creating its parent directory if necessary.
func NewFSTextStore(path string) (*FSTextStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, ErrStorageIO
	}
	return &FSTextStore{path: path}, nil
}

func (s *FSTextStore) load() (map[string]string, error) {
	data, err := ioutil.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, ErrStorageIO
	}

	out := map[string]string{}
	var key []byte
	var inValue bool
	var val []byte
	for _, b := range data {
		switch {
		case b == '\t' && !inValue:
			inValue = true
		case b == '\n':
			out[string(key)] = string(val)
			key, val, inValue = nil, nil, false
		case inValue:
			val = append(val, b)
		default:
			key = append(key, b)
		}
	}
	return out, nil
}

func (s *FSTextStore) save(m map[string]string) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data []byte
	for _, k := range keys {
		data = append(data, []byte(k)...)
		data = append(data, '\t')
		data = append(data, []byte(m[k])...)
		data = append(data, '\n')
	}

	return ioutil.WriteFile(s.path, data, 0o600)
}

// Put implements TextStore.
func (s *FSTextStore) Put(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return err
	}
	m[key] = value
	return s.save(m)
}

// Get implements TextStore.
func (s *FSTextStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := m[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// GetOrDefault implements TextStore.
func (s *FSTextStore) GetOrDefault(key, def string) string {
	v, err := s.Get(key)
	if err != nil {
		return def
	}
	return v
}

// Delete implements TextStore.
func (s *FSTextStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return err
	}
	delete(m, key)
	return s.save(m)
}

// Clear implements TextStore.
func (s *FSTextStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(map[string]string{})
}
