package store

import (
	"github.com/oasisprotocol/netmapd/common/cbor"
	"github.com/oasisprotocol/netmapd/common/persistent"
)

// DBBlobStore is a BlobStore backed by common/persistent.ServiceStore.
type DBBlobStore struct {
	svc *persistent.ServiceStore
}

var _ BlobStore = (*DBBlobStore)(nil)

// NewDBBlobStore creates a DBBlobStore over the given service store.
func NewDBBlobStore(svc *persistent.ServiceStore) *DBBlobStore {
	return &DBBlobStore{svc: svc}
}

// Put implements BlobStore.
func (s *DBBlobStore) Put(key string, value []byte) error {
	if err := s.svc.PutCBOR([]byte(key), &value); err != nil {
		return ErrStorageIO
	}
	return nil
}

// Get implements BlobStore.
func (s *DBBlobStore) Get(key string) ([]byte, error) {
	var value []byte
	err := s.svc.GetCBOR([]byte(key), &value)
	switch err {
	case nil:
		return value, nil
	case persistent.ErrNotFound:
		return nil, ErrNotFound
	default:
		return nil, ErrStorageIO
	}
}

// GetOrNil implements BlobStore.
func (s *DBBlobStore) GetOrNil(key string) ([]byte, error) {
	v, err := s.Get(key)
	if err == ErrNotFound {
		return nil, nil
	}
	return v, err
}

// Delete implements BlobStore.
func (s *DBBlobStore) Delete(key string) error {
	if err := s.svc.Delete([]byte(key)); err != nil {
		return ErrStorageIO
	}
	return nil
}

// GetAll implements BlobStore.
func (s *DBBlobStore) GetAll() (map[string][]byte, error) {
	out := map[string][]byte{}
	err := s.svc.ForEach(func(key, rawValue []byte) error {
		var value []byte
		if uerr := cbor.Unmarshal(rawValue, &value); uerr != nil {
			return uerr
		}
		out[string(key)] = value
		return nil
	})
	if err != nil {
		return nil, ErrStorageIO
	}
	return out, nil
}

// GetKeys implements BlobStore.
func (s *DBBlobStore) GetKeys() ([]string, error) {
	var keys []string
	err := s.svc.ForEach(func(key, _ []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		return nil, ErrStorageIO
	}
	return keys, nil
}

// DBTextStore is a TextStore backed by common/persistent.ServiceStore.
type DBTextStore struct {
	svc *persistent.ServiceStore
}

var _ TextStore = (*DBTextStore)(nil)

// NewDBTextStore creates a DBTextStore over the given service store.
func NewDBTextStore(svc *persistent.ServiceStore) *DBTextStore {
	return &DBTextStore{svc: svc}
}

// Put implements TextStore.
func (s *DBTextStore) Put(key, value string) error {
	if err := s.svc.PutCBOR([]byte(key), &value); err != nil {
		return ErrStorageIO
	}
	return nil
}

// Get implements TextStore.
func (s *DBTextStore) Get(key string) (string, error) {
	var value string
	err := s.svc.GetCBOR([]byte(key), &value)
	switch err {
	case nil:
		return value, nil
	case persistent.ErrNotFound:
		return "", ErrNotFound
	default:
		return "", ErrStorageIO
	}
}

// GetOrDefault implements TextStore.
func (s *DBTextStore) GetOrDefault(key, def string) string {
	v, err := s.Get(key)
	if err != nil {
		return def
	}
	return v
}

// Delete implements TextStore.
func (s *DBTextStore) Delete(key string) error {
	if err := s.svc.Delete([]byte(key)); err != nil {
		return ErrStorageIO
	}
	return nil
}

// Clear implements TextStore.
func (s *DBTextStore) Clear() error {
	var keys [][]byte
	err := s.svc.ForEach(func(key, _ []byte) error {
		keys = append(keys, append([]byte{}, key...))
		return nil
	})
	if err != nil {
		return ErrStorageIO
	}
	for _, k := range keys {
		if err := s.svc.Delete(k); err != nil {
			return ErrStorageIO
		}
	}
	return nil
}
