package group

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/loykin/stackup/internal/config"
	"github.com/loykin/stackup/internal/metrics"
	"github.com/loykin/stackup/internal/service"
)

// Group is the runtime for one declared group: a bounded worker pool sized
// to the member count plus the barrier of the current start cycle. Driver
// tasks run on the orchestrator's long-lived context, so they outlive the
// start call that submitted them.
type Group struct {
	spec *config.GroupSpec
	orch *Orchestrator
	pool *errgroup.Group

	drivers sync.WaitGroup

	mu      sync.Mutex
	cycle   *barrier
	members []*service.Service
}

func newGroup(spec *config.GroupSpec, orch *Orchestrator) *Group {
	g := &Group{spec: spec, orch: orch, pool: &errgroup.Group{}}
	g.pool.SetLimit(len(spec.Services))
	return g
}

func (g *Group) Name() string { return g.spec.Name }

func (g *Group) Aliases() []string { return g.spec.Aliases }

// IsUp reports whether the latest start cycle's barrier has fully counted
// down. A group that has never been started is not up.
func (g *Group) IsUp() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cycle != nil && g.cycle.isUp()
}

// Start brings the group up: dependency groups first, synchronously and
// transitively, then every member service that is not already running is
// submitted to the pool. It blocks until each submitted service has fired
// one started-barrier event (or errored under ignore-errors), an error halts
// the cycle, or ctx is cancelled. Cancellation leaves already-started
// services running; nothing is rolled back.
func (g *Group) Start(ctx context.Context) error {
	if g.IsUp() {
		return nil
	}

	for _, dep := range g.spec.Dependencies {
		dg, err := g.orch.ensureGroup(dep)
		if err != nil {
			return err
		}
		if dg.IsUp() {
			continue
		}
		if err := dg.Start(ctx); err != nil {
			return err
		}
	}

	members := make([]*service.Service, 0, len(g.spec.Services))
	seen := make(map[*service.Service]struct{}, len(g.spec.Services))
	for _, ref := range g.spec.Services {
		s, err := g.orch.ensureService(ref)
		if err != nil {
			return err
		}
		// a name and an alias may reference the same service; count it once
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		members = append(members, s)
	}

	pending := make([]*service.Service, 0, len(members))
	for _, s := range members {
		if s.IsRunning() {
			slog.Info("service already started", "service", s.Name(), "group", g.Name())
			continue
		}
		pending = append(pending, s)
	}

	cycle := newBarrier(len(pending))
	g.mu.Lock()
	g.members = members
	g.cycle = cycle
	g.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	g.orch.subscribe(cycle, pending)
	defer g.orch.unsubscribe(cycle, pending)

	for _, s := range pending {
		s := s
		g.drivers.Add(1)
		g.pool.Go(func() error {
			defer g.drivers.Done()
			return s.Run(g.orch.ctx)
		})
	}

	if err := cycle.wait(ctx); err != nil {
		return err
	}
	metrics.IncGroupStart(g.Name())
	slog.Info("group is up", "group", g.Name(), "services", len(members))
	return nil
}

// Stop requests stop on every member concurrently and awaits each reaching
// stopped or its own stop timeout.
func (g *Group) Stop(ctx context.Context) error {
	g.mu.Lock()
	members := g.members
	g.mu.Unlock()
	if members == nil {
		// never started through this runtime; resolve whatever exists
		for _, ref := range g.spec.Services {
			if s, ok := g.orch.reg.Service(ref); ok {
				members = append(members, s)
			}
		}
	}

	var eg errgroup.Group
	for _, s := range members {
		if !s.IsRunning() {
			continue
		}
		s := s
		eg.Go(func() error { return s.Stop() })
	}
	err := eg.Wait()

	g.mu.Lock()
	g.cycle = nil
	g.mu.Unlock()
	return err
}

// awaitTermination waits up to grace for the group's driver tasks to finish
// before the pool is abandoned.
func (g *Group) awaitTermination(grace time.Duration) bool {
	done := make(chan struct{})
	go func() {
		g.drivers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(grace):
		slog.Warn("group workers did not terminate in time", "group", g.Name(), "grace", grace)
		return false
	}
}
