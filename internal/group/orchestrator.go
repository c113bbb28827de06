// Package group walks the dependency DAG: groups start in topological order
// behind a started barrier and stop in reverse level order on shutdown.
package group

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/loykin/stackup/internal/config"
	"github.com/loykin/stackup/internal/errdefs"
	"github.com/loykin/stackup/internal/registry"
	"github.com/loykin/stackup/internal/service"
)

// shutdownGrace is how long each group gets for worker teardown during
// shutdown-all.
const shutdownGrace = 5 * time.Second

// Orchestrator owns group runtimes for one configuration cycle. Service and
// group instances are created lazily through the registry on first
// reference.
type Orchestrator struct {
	cfg    *config.Config
	reg    *registry.Registry
	out    io.Writer
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	subs      map[string][]*barrier
	validated map[string]bool
}

func NewOrchestrator(cfg *config.Config, reg *registry.Registry, out io.Writer) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:       cfg,
		reg:       reg,
		out:       out,
		ctx:       ctx,
		cancel:    cancel,
		subs:      make(map[string][]*barrier),
		validated: make(map[string]bool),
	}
}

// StartGroup validates the subgraph rooted at name (once per config cycle)
// and starts it.
func (o *Orchestrator) StartGroup(ctx context.Context, name string) error {
	if err := o.validateOnce(name); err != nil {
		return err
	}
	g, err := o.ensureGroup(name)
	if err != nil {
		return err
	}
	return g.Start(ctx)
}

// StopGroup stops the named group's services.
func (o *Orchestrator) StopGroup(ctx context.Context, name string) error {
	g, err := o.ensureGroup(name)
	if err != nil {
		return err
	}
	return g.Stop(ctx)
}

// StartService runs a single service outside any group barrier.
func (o *Orchestrator) StartService(name string) error {
	s, err := o.ensureService(name)
	if err != nil {
		return err
	}
	if !s.CanStart() {
		return nil
	}
	go func() { _ = s.Run(o.ctx) }()
	return nil
}

// StopService stops a single service.
func (o *Orchestrator) StopService(name string) error {
	s, ok := o.reg.Service(name)
	if !ok {
		if _, exists := o.cfg.FindService(name); exists {
			return nil // declared but never instantiated
		}
		return fmt.Errorf("%w: %q", errdefs.ErrServiceNotFound, name)
	}
	return s.Stop()
}

// ShutdownAll stops every instantiated group level by level in reverse level
// order (dependants first, bare dependencies last), granting each group
// shutdownGrace for pool teardown, then cancels any remaining drivers.
func (o *Orchestrator) ShutdownAll(ctx context.Context) {
	for _, level := range o.stopOrder() {
		var eg errgroup.Group
		for _, g := range level {
			g := g
			eg.Go(func() error { return g.Stop(ctx) })
		}
		_ = eg.Wait()
		for _, g := range level {
			g.awaitTermination(shutdownGrace)
		}
	}
	o.cancel()
}

// stopOrder buckets instantiated groups by dependency level, deepest
// dependants first. level(g) = 0 when g has no dependencies, else
// 1+max(level(dep)).
func (o *Orchestrator) stopOrder() [][]*Group {
	levels := make(map[string]int)
	var levelOf func(name string, visiting map[string]bool) int
	levelOf = func(name string, visiting map[string]bool) int {
		gs, ok := o.cfg.FindGroup(name)
		if !ok || visiting[gs.Name] {
			return 0
		}
		if l, done := levels[gs.Name]; done {
			return l
		}
		visiting[gs.Name] = true
		l := 0
		for _, dep := range gs.Dependencies {
			if d := levelOf(dep, visiting) + 1; d > l {
				l = d
			}
		}
		delete(visiting, gs.Name)
		levels[gs.Name] = l
		return l
	}

	maxLevel := 0
	var live []*Group
	for _, named := range o.reg.Groups() {
		g, ok := named.(*Group)
		if !ok {
			continue
		}
		l := levelOf(g.Name(), make(map[string]bool))
		if l > maxLevel {
			maxLevel = l
		}
		live = append(live, g)
	}
	out := make([][]*Group, maxLevel+1)
	for _, g := range live {
		l := levels[g.Name()]
		// dependants first: higher levels stop earlier
		out[maxLevel-l] = append(out[maxLevel-l], g)
	}
	return out
}

// validateOnce runs the graph validator for a root at most once per config
// cycle.
func (o *Orchestrator) validateOnce(name string) error {
	gs, ok := o.cfg.FindGroup(name)
	if !ok {
		return fmt.Errorf("%w: %q", errdefs.ErrGroupNotFound, name)
	}
	o.mu.Lock()
	done := o.validated[gs.Name]
	o.mu.Unlock()
	if done {
		return nil
	}
	if err := o.cfg.ValidateGroup(gs.Name); err != nil {
		return err
	}
	o.mu.Lock()
	o.validated[gs.Name] = true
	o.mu.Unlock()
	return nil
}

// MarkValidated records that load-all already proved every group, so start
// operations skip re-validation for this config cycle.
func (o *Orchestrator) MarkValidated() {
	o.mu.Lock()
	for _, g := range o.cfg.Groups {
		o.validated[g.Name] = true
	}
	o.mu.Unlock()
}

// ensureGroup resolves a group runtime, instantiating and registering it on
// first reference.
func (o *Orchestrator) ensureGroup(name string) (*Group, error) {
	if named, ok := o.reg.Group(name); ok {
		if g, ok := named.(*Group); ok {
			return g, nil
		}
	}
	spec, ok := o.cfg.FindGroup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errdefs.ErrGroupNotFound, name)
	}
	g := newGroup(spec, o)
	if err := o.reg.PutGroup(g); err != nil {
		// lost a race with a concurrent ensure; use the registered one
		if named, ok := o.reg.Group(name); ok {
			if reg, ok := named.(*Group); ok {
				return reg, nil
			}
		}
		return nil, err
	}
	return g, nil
}

// ensureService resolves a service runtime, instantiating and registering it
// on first reference. Hooks route lifecycle events back through the
// orchestrator's subscription table.
func (o *Orchestrator) ensureService(name string) (*service.Service, error) {
	if s, ok := o.reg.Service(name); ok {
		return s, nil
	}
	spec, ok := o.cfg.FindService(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errdefs.ErrServiceNotFound, name)
	}
	hooks := service.Hooks{
		service.StatusStarted: o.onServiceStarted,
		service.StatusError:   o.onServiceError,
	}
	s := service.New(spec, hooks, o.onServiceException, o.out)
	if err := o.reg.PutService(s); err != nil {
		if reg, ok := o.reg.Service(name); ok {
			return reg, nil
		}
		return nil, err
	}
	return s, nil
}

// subscribe registers a start cycle's barrier for each pending service.
func (o *Orchestrator) subscribe(b *barrier, svcs []*service.Service) {
	o.mu.Lock()
	for _, s := range svcs {
		o.subs[s.Name()] = append(o.subs[s.Name()], b)
	}
	o.mu.Unlock()
}

func (o *Orchestrator) unsubscribe(b *barrier, svcs []*service.Service) {
	o.mu.Lock()
	for _, s := range svcs {
		cycles := o.subs[s.Name()]
		for i, c := range cycles {
			if c == b {
				o.subs[s.Name()] = append(cycles[:i], cycles[i+1:]...)
				break
			}
		}
		if len(o.subs[s.Name()]) == 0 {
			delete(o.subs, s.Name())
		}
	}
	o.mu.Unlock()
}

func (o *Orchestrator) cyclesFor(name string) []*barrier {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*barrier(nil), o.subs[name]...)
}

func (o *Orchestrator) onServiceStarted(s *service.Service, _ service.Status) {
	for _, c := range o.cyclesFor(s.Name()) {
		c.release(s.Name())
	}
}

func (o *Orchestrator) onServiceError(s *service.Service, _ service.Status) {
	if o.cfg.IgnoreErrors {
		slog.Warn("service reported an error; continuing", "service", s.Name())
		for _, c := range o.cyclesFor(s.Name()) {
			c.release(s.Name())
		}
		return
	}
	slog.Error("service reported an error; dependants will not be started", "service", s.Name())
	err := fmt.Errorf("%w: %s", errdefs.ErrServiceReported, s.Name())
	for _, c := range o.cyclesFor(s.Name()) {
		c.fail(err)
	}
}

func (o *Orchestrator) onServiceException(s *service.Service, err error) {
	slog.Error("exception while running service", "service", s.Name(), "error", err)
}
