package service

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// Hub owns the coordinator's services
// Services start in registration order and stop in reverse
type Hub struct {
	mu       sync.Mutex
	services []Service
	names    map[string]bool
	started  []Service // Services that completed Start(), for rollback and teardown
}

// NewHub creates an empty service hub
func NewHub() *Hub {
	return &Hub{
		names: make(map[string]bool),
	}
}

// Register adds a service; names must be unique
func (h *Hub) Register(svc Service) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := svc.Name()
	if h.names[name] {
		return fmt.Errorf("service already registered: %s", name)
	}
	h.names[name] = true
	h.services = append(h.services, svc)
	return nil
}

// StartAll starts every registered service in order
// On failure, already-started services are stopped in reverse order and the start error is returned
func (h *Hub) StartAll() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.started = nil
	for _, svc := range h.services {
		if err := svc.Start(); err != nil {
			for i := len(h.started) - 1; i >= 0; i-- {
				if serr := h.started[i].Stop(); serr != nil {
					log.Printf("service %s rollback stop failed: %v", h.started[i].Name(), serr)
				}
			}
			h.started = nil
			return fmt.Errorf("service %s start failed: %w", svc.Name(), err)
		}
		h.started = append(h.started, svc)
	}
	return nil
}

// StopAll stops started services in reverse order
// Every service is stopped even if an earlier one fails; failures are logged and joined
func (h *Hub) StopAll() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	for i := len(h.started) - 1; i >= 0; i-- {
		svc := h.started[i]
		if err := svc.Stop(); err != nil {
			log.Printf("service %s stop failed: %v", svc.Name(), err)
			errs = append(errs, fmt.Errorf("service %s stop failed: %w", svc.Name(), err))
		}
	}
	h.started = nil
	return errors.Join(errs...)
}

// Names returns registered service names in start order
func (h *Hub) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, len(h.services))
	for i, svc := range h.services {
		names[i] = svc.Name()
	}
	return names
}
