// Package migration implements the one-shot boot-time migration from the
// legacy filesystem-backed stores to the BadgerDB-backed stores.
package migration

import (
	"context"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	cbackoff "github.com/oasisprotocol/netmapd/common/backoff"
	"github.com/oasisprotocol/netmapd/common/crypto/hash"
	"github.com/oasisprotocol/netmapd/common/logging"
	"github.com/oasisprotocol/netmapd/netmap/store"
)

var logger = logging.GetLogger("netmap/migration")

// Pair is a single migration unit: copy everything from Src into Dst,
// clearing Src on success.
type Pair struct {
	// Name identifies the migration for logging purposes, e.g.
	// "network-parameters" or "node-info".
	Name string
	Src  store.BlobStore
	Dst  store.BlobStore
}

// TextPair is a migration unit for a fixed set of well-known keys in the
// text store. Unlike BlobStore, TextStore has no enumeration primitive, so
// the caller supplies the pointer keys to copy.
type TextPair struct {
	Name string
	Src  store.TextStore
	Dst  store.TextStore
	Keys []string
}

// Run executes every blob Pair and TextPair concurrently via an errgroup,
// retrying a transient per-pair failure with exponential backoff before
// declaring that pair failed. Unlike errgroup's own Wait, which surfaces
// only the first error, Run lets every pair run to completion and
// aggregates all of their failures via multierr so the operator sees the
// full picture rather than a single truncated error.
//
// Run is idempotent: migrating an already-empty source store is a no-op.
func Run(ctx context.Context, pairs []Pair, textPairs []TextPair) error {
	g, _ := errgroup.WithContext(ctx)

	var mu sync.Mutex
	var errs error
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		errs = multierr.Append(errs, err)
		mu.Unlock()
	}

	for _, pair := range pairs {
		pair := pair
		g.Go(func() error {
			record(migrateWithRetry(pair.Name, func() error { return migrateBlobs(pair.Src, pair.Dst) }))
			return nil
		})
	}
	for _, tp := range textPairs {
		tp := tp
		g.Go(func() error {
			record(migrateWithRetry(tp.Name, func() error { return CopyKeys(tp.Src, tp.Dst, tp.Keys) }))
			return nil
		})
	}

	_ = g.Wait()
	return errs
}

func migrateWithRetry(name string, fn func() error) error {
	bo := cbackoff.NewExponentialBackOff()

	var lastErr error
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		lastErr = fn()
		if lastErr != nil {
			logger.Warn("migration step failed, retrying", "migration", name, "attempt", attempt, "err", lastErr)
		}
		return lastErr
	}, backoff.WithMaxRetries(bo, 5))

	if err != nil {
		return &migrationError{name: name, err: err}
	}
	return nil
}

type migrationError struct {
	name string
	err  error
}

func (e *migrationError) Error() string {
	return "migration " + e.name + ": " + e.err.Error()
}

func (e *migrationError) Unwrap() error {
	return e.err
}

// migrateBlobs copies every key from src to dst, clearing each from src
// once copied, and logs a running digest over the copied values so an
// operator can cross-check the migrated content against a prior dry run.
func migrateBlobs(src, dst store.BlobStore) error {
	keys, err := src.GetKeys()
	if err != nil {
		return err
	}

	builder := hash.NewBuilder()
	for _, key := range keys {
		value, err := src.Get(key)
		if err != nil {
			return err
		}
		if err := dst.Put(key, value); err != nil {
			return err
		}
		if err := src.Delete(key); err != nil {
			return err
		}
		_, _ = builder.Write(value)
	}

	if len(keys) > 0 {
		logger.Info("migrated blob store entries", "count", len(keys), "digest", builder.Build().String())
	}
	return nil
}

// CopyKeys copies the named keys from src to dst, skipping any that are
// absent in src, then clears those keys from src.
func CopyKeys(src, dst store.TextStore, keys []string) error {
	for _, key := range keys {
		value, err := src.Get(key)
		if err == store.ErrNotFound {
			continue
		}
		if err != nil {
			return err
		}
		if err := dst.Put(key, value); err != nil {
			return err
		}
		if err := src.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
