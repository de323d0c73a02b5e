package persistent

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersistent(t *testing.T) {
	dir, err := ioutil.TempDir("", "oasis-core-unittests")
	assert.NoError(t, err)
	defer os.RemoveAll(dir)

	common, err := NewCommonStore(dir)
	assert.NoError(t, err, "NewCommonStore")

	svc, err := common.GetServiceStore("persistent_test")
	assert.NoError(t, err, "GetServiceStore")

	key := []byte("foo")
	val := "bar"

	err = svc.PutCBOR(key, &val)
	assert.NoError(t, err, "PutCBOR")

	var valOut string
	err = svc.GetCBOR(key, &valOut)
	assert.NoError(t, err, "GetCBOR")

	nonexistentKey := []byte("baz")
	err = svc.GetCBOR(nonexistentKey, &valOut)
	assert.Equal(t, ErrNotFound, err, "GetCBOR(nonexistent)")

	assert.NotNil(t, common.GCWorker(), "GCWorker")
	assert.NoError(t, common.Close(), "Close")
}

func TestServiceStoreForEachAndDelete(t *testing.T) {
	dir, err := ioutil.TempDir("", "oasis-core-unittests")
	assert.NoError(t, err)
	defer os.RemoveAll(dir)

	common, err := NewCommonStore(dir)
	assert.NoError(t, err, "NewCommonStore")
	defer common.Close()

	svc, err := common.GetServiceStore("persistent_foreach_test")
	assert.NoError(t, err, "GetServiceStore")

	assert.NoError(t, svc.PutCBOR([]byte("a"), stringPtr("1")))
	assert.NoError(t, svc.PutCBOR([]byte("b"), stringPtr("2")))

	seen := map[string]bool{}
	err = svc.ForEach(func(key, rawValue []byte) error {
		seen[string(key)] = true
		return nil
	})
	assert.NoError(t, err, "ForEach")
	assert.True(t, seen["a"])
	assert.True(t, seen["b"])

	assert.NoError(t, svc.Delete([]byte("a")))
	var out string
	assert.Equal(t, ErrNotFound, svc.GetCBOR([]byte("a"), &out))
}

func stringPtr(s string) *string {
	return &s
}
