package watcher

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testTimeout = 5 * time.Second

func TestWatcherFiresOnNewFile(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	changes := make(chan struct{}, 16)

	w, err := New(dir, "*.pem", 20*time.Millisecond, func() {
		changes <- struct{}{}
	})
	require.NoError(err)
	require.NoError(w.Start())
	defer w.Stop()

	select {
	case <-changes:
	case <-time.After(testTimeout):
		t.Fatal("expected an initial scan callback")
	}

	require.NoError(ioutil.WriteFile(filepath.Join(dir, "notary1.pem"), []byte("cert-one"), 0o600))

	select {
	case <-changes:
	case <-time.After(testTimeout):
		t.Fatal("expected a callback after a new file appeared")
	}
}

func TestWatcherIgnoresUnmatchedFiles(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	changes := make(chan struct{}, 16)

	w, err := New(dir, "*.pem", 20*time.Millisecond, func() {
		changes <- struct{}{}
	})
	require.NoError(err)
	require.NoError(w.Start())
	defer w.Stop()

	select {
	case <-changes:
	case <-time.After(testTimeout):
		t.Fatal("expected an initial scan callback")
	}

	require.NoError(ioutil.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignored"), 0o600))

	select {
	case <-changes:
		t.Fatal("a non-matching file must not trigger a callback")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherDoesNotRefireOnUnchangedContents(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	require.NoError(ioutil.WriteFile(filepath.Join(dir, "notary1.pem"), []byte("cert-one"), 0o600))

	changes := make(chan struct{}, 16)
	w, err := New(dir, "*.pem", 20*time.Millisecond, func() {
		changes <- struct{}{}
	})
	require.NoError(err)
	require.NoError(w.Start())
	defer w.Stop()

	select {
	case <-changes:
	case <-time.After(testTimeout):
		t.Fatal("expected an initial scan callback")
	}

	select {
	case <-changes:
		t.Fatal("an unchanged directory must not trigger a second callback")
	case <-time.After(200 * time.Millisecond):
	}
}
