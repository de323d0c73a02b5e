package service

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/oasisprotocol/netmapd/common/logging"
)

// Manager aggregates the lifecycle of a set of BackgroundServices: it waits
// for either an OS termination signal or the first registered service to
// quit on its own, then stops everything else and runs cleanup.
type Manager struct {
	logger *logging.Logger

	services []BackgroundService
	termCh   chan BackgroundService
	termSvc  BackgroundService
}

// NewManager creates an empty Manager.
func NewManager(logger *logging.Logger) *Manager {
	return &Manager{
		logger: logger,
		termCh: make(chan BackgroundService, 1),
	}
}

// Register adds srv to the set of managed services and starts watching its
// Quit channel.
func (m *Manager) Register(srv BackgroundService) {
	m.services = append(m.services, srv)
	go func() {
		<-srv.Quit()
		select {
		case m.termCh <- srv:
		default:
		}
	}()
}

// RegisterCleanupOnly adds svc so that its Cleanup is run at shutdown,
// without treating it as a service whose termination should be watched.
func (m *Manager) RegisterCleanupOnly(svc CleanupAble, name string) {
	m.services = append(m.services, NewCleanupOnlyService(svc, name))
}

// Wait blocks until a termination signal arrives or a registered service
// quits on its own, then stops every other registered service.
func (m *Manager) Wait() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case m.termSvc = <-m.termCh:
		m.logger.Info("background service terminated, propagating shutdown", "service", m.termSvc.Name())
	case <-sigCh:
		m.logger.Info("received termination signal")
	}

	for _, svc := range m.services {
		if svc != m.termSvc {
			svc.Stop()
		}
	}
}

// Stop stops every registered service without waiting for a signal.
func (m *Manager) Stop() {
	for _, svc := range m.services {
		svc.Stop()
	}
}

// Cleanup runs Cleanup on every registered service.
func (m *Manager) Cleanup() {
	for _, svc := range m.services {
		svc.Cleanup()
	}
}
