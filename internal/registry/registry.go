// Package registry holds the runtime identity maps: name and alias lookups
// for live services and groups. It is an owned value, not process-global
// state, so embedding programs and tests stay hermetic.
package registry

import (
	"fmt"
	"sync"

	"github.com/loykin/stackup/internal/errdefs"
	"github.com/loykin/stackup/internal/service"
)

// Named is what the registry needs to know about a group runtime. The
// orchestrator owns the concrete type.
type Named interface {
	Name() string
	Aliases() []string
}

// Registry maps names and aliases to service and group runtimes. The two
// namespaces are separate: an identifier may be both a service identifier
// and a group identifier. The single lock is held only for lookups and
// inserts.
type Registry struct {
	mu       sync.Mutex
	services map[string]*service.Service
	groups   map[string]Named
}

func New() *Registry {
	return &Registry{
		services: make(map[string]*service.Service),
		groups:   make(map[string]Named),
	}
}

// PutService registers a service under its name and every alias. No key is
// inserted when any of them collides.
func (r *Registry) PutService(s *service.Service) error {
	keys := append([]string{s.Name()}, s.Spec().Aliases...)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		if _, ok := r.services[k]; ok {
			return fmt.Errorf("%w: service %q", errdefs.ErrAlreadyExists, k)
		}
	}
	for _, k := range keys {
		r.services[k] = s
	}
	return nil
}

// Service resolves a service by name or alias.
func (r *Registry) Service(name string) (*service.Service, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.services[name]
	return s, ok
}

// Services returns every registered service once.
func (r *Registry) Services() []*service.Service {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[*service.Service]struct{}, len(r.services))
	out := make([]*service.Service, 0, len(r.services))
	for _, s := range r.services {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// PutGroup registers a group runtime under its name and every alias.
func (r *Registry) PutGroup(g Named) error {
	keys := append([]string{g.Name()}, g.Aliases()...)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		if _, ok := r.groups[k]; ok {
			return fmt.Errorf("%w: group %q", errdefs.ErrAlreadyExists, k)
		}
	}
	for _, k := range keys {
		r.groups[k] = g
	}
	return nil
}

// Group resolves a group runtime by name or alias.
func (r *Registry) Group(name string) (Named, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[name]
	return g, ok
}

// Groups returns every registered group runtime once.
func (r *Registry) Groups() []Named {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[Named]struct{}, len(r.groups))
	out := make([]Named, 0, len(r.groups))
	for _, g := range r.groups {
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

// Clear drops every entry. It is permitted only while no service is in a
// running status.
func (r *Registry) Clear() error {
	for _, s := range r.Services() {
		if s.IsRunning() {
			return fmt.Errorf("%w: service %q", errdefs.ErrNotStopped, s.Name())
		}
	}
	r.mu.Lock()
	r.services = make(map[string]*service.Service)
	r.groups = make(map[string]Named)
	r.mu.Unlock()
	return nil
}
