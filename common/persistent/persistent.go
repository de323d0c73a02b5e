// Package persistent implements common on-disk key/value storage backed by
// BadgerDB, shared by every component of the network map service that
// needs durable state: the parameter history, the node registry index,
// and the migration orchestrator's bookkeeping.
package persistent

import (
	"errors"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"

	badgerutil "github.com/oasisprotocol/netmapd/common/badger"
	"github.com/oasisprotocol/netmapd/common/cbor"
	"github.com/oasisprotocol/netmapd/common/logging"
)

// ErrNotFound is returned when a requested key does not exist.
var ErrNotFound = errors.New("persistent: key not found")

const dbFileName = "persistent-store.badger.db"

// CommonStore is a key/value store shared across services, namespaced by
// service name so that independent components never collide on keys.
type CommonStore struct {
	db *badger.DB
	gc *badgerutil.GCWorker
}

// NewCommonStore opens (creating if necessary) the common store rooted at
// dataDir.
func NewCommonStore(dataDir string) (*CommonStore, error) {
	logger := logging.GetLogger("common/persistent")

	opts := badger.DefaultOptions(filepath.Join(dataDir, dbFileName)).
		WithCompression(options.Snappy).
		WithSyncWrites(true).
		WithLogger(badgerutil.NewLogAdapter(logger))

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &CommonStore{
		db: db,
		gc: badgerutil.NewGCWorker(logger, db),
	}, nil
}

// GCWorker returns the store's value log garbage collector. Close stops it
// together with the store.
func (cs *CommonStore) GCWorker() *badgerutil.GCWorker {
	return cs.gc
}

// GetServiceStore returns a namespaced store for the given service name.
func (cs *CommonStore) GetServiceStore(name string) (*ServiceStore, error) {
	return &ServiceStore{
		db:     cs.db,
		prefix: []byte(name + "/"),
	}, nil
}

// Close halts the GC worker and closes the underlying database.
func (cs *CommonStore) Close() error {
	cs.gc.Close()
	return cs.db.Close()
}

// ServiceStore is a key/value store namespaced to a single service.
type ServiceStore struct {
	db     *badger.DB
	prefix []byte
}

func (s *ServiceStore) namespacedKey(key []byte) []byte {
	out := make([]byte, 0, len(s.prefix)+len(key))
	out = append(out, s.prefix...)
	out = append(out, key...)
	return out
}

// GetCBOR fetches the value stored under key, CBOR-decoding it into v.
// Returns ErrNotFound if the key does not exist.
func (s *ServiceStore) GetCBOR(key []byte, v interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.namespacedKey(key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			return ErrNotFound
		case err != nil:
			return err
		}

		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, v)
		})
	})
}

// PutCBOR CBOR-encodes v and stores it under key.
func (s *ServiceStore) PutCBOR(key []byte, v interface{}) error {
	data := cbor.Marshal(v)

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.namespacedKey(key), data)
	})
}

// Delete removes the value stored under key, if any.
func (s *ServiceStore) Delete(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(s.namespacedKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// ForEach iterates over every key/value pair in the service's namespace,
// invoking fn with the un-prefixed key and the raw CBOR-encoded value.
// Iteration stops early if fn returns an error, which is then returned.
func (s *ServiceStore) ForEach(fn func(key, rawValue []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(s.prefix); it.ValidForPrefix(s.prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)[len(s.prefix):]
			if err := item.Value(func(val []byte) error {
				return fn(key, val)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}
