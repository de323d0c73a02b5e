package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/netmapd/common/logging"
)

type fakeService struct {
	BaseBackgroundService

	stopped  chan struct{}
	cleanups *int
}

func newFakeService(name string, cleanups *int) *fakeService {
	return &fakeService{
		BaseBackgroundService: *NewBaseBackgroundService(name),
		stopped:               make(chan struct{}, 1),
		cleanups:              cleanups,
	}
}

func (f *fakeService) Stop() {
	select {
	case f.stopped <- struct{}{}:
	default:
	}
	f.BaseBackgroundService.Stop()
}

func (f *fakeService) Cleanup() {
	*f.cleanups++
}

type cleanupFunc func()

func (f cleanupFunc) Cleanup() { f() }

func TestManagerStopsOthersWhenOneQuits(t *testing.T) {
	var cleanups int
	mgr := NewManager(logging.GetLogger("test"))
	trigger := newFakeService("trigger", &cleanups)
	other1 := newFakeService("other1", &cleanups)
	other2 := newFakeService("other2", &cleanups)

	mgr.Register(trigger)
	mgr.Register(other1)
	mgr.Register(other2)

	trigger.BaseBackgroundService.Stop()

	done := make(chan struct{})
	go func() {
		mgr.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after a registered service quit")
	}

	requireSignaled(t, other1.stopped)
	requireSignaled(t, other2.stopped)
}

func TestManagerCleanupRunsEveryService(t *testing.T) {
	require := require.New(t)

	var cleanups int
	mgr := NewManager(logging.GetLogger("test"))
	mgr.Register(newFakeService("a", &cleanups))
	mgr.RegisterCleanupOnly(cleanupFunc(func() { cleanups++ }), "b")

	mgr.Stop()
	mgr.Cleanup()

	require.Equal(2, cleanups)
}

func requireSignaled(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected service to be stopped")
	}
}
