// Package watcher implements the directory digest watcher: it polls a
// directory for a pattern of files and fires a callback whenever the
// order-independent digest of their contents changes, with an fsnotify
// watch used only to wake the poll loop early between ticks.
package watcher

import (
	"crypto/sha256"
	"encoding/hex"
	"io/ioutil"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oasisprotocol/netmapd/common/service"
)

// DefaultInterval is the default poll interval.
const DefaultInterval = 2 * time.Second

// Watcher polls a directory and invokes a callback when the digest of its
// matching files' contents changes.
type Watcher struct {
	service.BaseBackgroundService

	dir      string
	pattern  string
	interval time.Duration
	onChange func()

	lastDigest string
	fsw        *fsnotify.Watcher
	wake       chan struct{}
}

// New creates a Watcher over dir, watching files matching pattern, with
// the given poll interval (DefaultInterval if zero), invoking onChange
// whenever the aggregate digest differs from the last observed value.
func New(dir, pattern string, interval time.Duration, onChange func()) (*Watcher, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return &Watcher{
		BaseBackgroundService: *service.NewBaseBackgroundService("netmap/watcher"),
		dir:                   dir,
		pattern:               pattern,
		interval:              interval,
		onChange:              onChange,
		fsw:                   fsw,
		wake:                  make(chan struct{}, 1),
	}, nil
}

// Start implements service.BackgroundService.
func (w *Watcher) Start() error {
	go w.fsnotifyLoop()
	go w.pollLoop()
	return nil
}

// Stop implements service.BackgroundService.
func (w *Watcher) Stop() {
	_ = w.fsw.Close()
	w.BaseBackgroundService.Stop()
}

func (w *Watcher) fsnotifyLoop() {
	for {
		select {
		case <-w.Quit():
			return
		case _, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			select {
			case w.wake <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.Logger.Warn("fsnotify error", "err", err)
		}
	}
}

func (w *Watcher) pollLoop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.scan()
	for {
		select {
		case <-w.Quit():
			return
		case <-ticker.C:
			w.scan()
		case <-w.wake:
			w.scan()
		}
	}
}

// scan computes the current digest and invokes onChange iff it differs
// from the last observed digest. Never runs concurrently with itself: it
// is only ever called from pollLoop, a single goroutine.
func (w *Watcher) scan() {
	digest, err := w.digest()
	if err != nil {
		w.Logger.Warn("failed to scan watched directory", "err", err)
		return
	}

	if digest == w.lastDigest {
		return
	}
	w.lastDigest = digest

	if w.onChange != nil {
		w.onChange()
	}
}

func (w *Watcher) digest() (string, error) {
	entries, err := ioutil.ReadDir(w.dir)
	if err != nil {
		return "", err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(w.pattern, e.Name()); ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		data, err := ioutil.ReadFile(filepath.Join(w.dir, name))
		if err != nil {
			return "", err
		}
		sum := sha256.Sum256(data)
		h.Write([]byte(name))
		h.Write(sum[:])
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
