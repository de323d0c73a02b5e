package migration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/netmapd/netmap/store"
)

func TestRunMigratesBlobsAndClearsSource(t *testing.T) {
	require := require.New(t)

	src, err := store.NewFSBlobStore(t.TempDir())
	require.NoError(err)
	dst, err := store.NewFSBlobStore(t.TempDir())
	require.NoError(err)

	require.NoError(src.Put("a", []byte("one")))
	require.NoError(src.Put("b", []byte("two")))

	err = Run(context.Background(), []Pair{{Name: "test-blobs", Src: src, Dst: dst}}, nil)
	require.NoError(err)

	v, err := dst.Get("a")
	require.NoError(err)
	require.Equal([]byte("one"), v)
	v, err = dst.Get("b")
	require.NoError(err)
	require.Equal([]byte("two"), v)

	keys, err := src.GetKeys()
	require.NoError(err)
	require.Empty(keys, "source store should be cleared after a successful migration")
}

func TestRunTextPairCopiesOnlyNamedKeys(t *testing.T) {
	require := require.New(t)

	src, err := store.NewFSTextStore(t.TempDir() + "/src.txt")
	require.NoError(err)
	dst, err := store.NewFSTextStore(t.TempDir() + "/dst.txt")
	require.NoError(err)

	require.NoError(src.Put("current-parameters", "deadbeef"))
	require.NoError(src.Put("unrelated-key", "should-stay"))

	err = Run(context.Background(), nil, []TextPair{{
		Name: "test-text",
		Src:  src,
		Dst:  dst,
		Keys: []string{"current-parameters", "absent-key"},
	}})
	require.NoError(err)

	v, err := dst.Get("current-parameters")
	require.NoError(err)
	require.Equal("deadbeef", v)

	_, err = dst.Get("unrelated-key")
	require.Equal(store.ErrNotFound, err, "only named keys are migrated")

	_, err = src.Get("current-parameters")
	require.Equal(store.ErrNotFound, err, "migrated key is cleared from source")

	v, err = src.Get("unrelated-key")
	require.NoError(err)
	require.Equal("should-stay", v, "keys outside the migration's key list are left alone")
}

func TestRunIsIdempotentOnEmptySource(t *testing.T) {
	require := require.New(t)

	src, err := store.NewFSBlobStore(t.TempDir())
	require.NoError(err)
	dst, err := store.NewFSBlobStore(t.TempDir())
	require.NoError(err)

	err = Run(context.Background(), []Pair{{Name: "empty", Src: src, Dst: dst}}, nil)
	require.NoError(err)

	keys, err := dst.GetKeys()
	require.NoError(err)
	require.Empty(keys)
}

func TestRunAggregatesErrorsAcrossPairs(t *testing.T) {
	require := require.New(t)

	okSrc, err := store.NewFSBlobStore(t.TempDir())
	require.NoError(err)
	okDst, err := store.NewFSBlobStore(t.TempDir())
	require.NoError(err)
	require.NoError(okSrc.Put("k", []byte("v")))

	badSrc := &erroringBlobStore{}

	err = Run(context.Background(), []Pair{
		{Name: "good", Src: okSrc, Dst: okDst},
		{Name: "bad", Src: badSrc, Dst: okDst},
	}, nil)
	require.Error(err, "an unrecoverable failure in one pair surfaces in the aggregated error")

	v, getErr := okDst.Get("k")
	require.NoError(getErr)
	require.Equal([]byte("v"), v, "the good pair still completes despite the bad pair failing")
}

type erroringBlobStore struct{ store.BlobStore }

func (e *erroringBlobStore) GetKeys() ([]string, error) {
	return nil, store.ErrStorageIO
}
