// Package control is the thin adapter exposing load/start/stop/status
// operations to any caller: the CLI, tests, or the HTTP adapter.
package control

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/loykin/stackup/internal/config"
	"github.com/loykin/stackup/internal/errdefs"
	"github.com/loykin/stackup/internal/group"
	"github.com/loykin/stackup/internal/pattern"
	"github.com/loykin/stackup/internal/registry"
	"github.com/loykin/stackup/internal/service"
)

// StatusInfo is one row of a status snapshot. PID is set while the service
// is running.
type StatusInfo struct {
	Service string         `json:"service"`
	Status  service.Status `json:"-"`
	State   string         `json:"status"`
	PID     int            `json:"pid,omitempty"`
}

// Control owns the model, registry, and orchestrator of the current config
// cycle. All operations are idempotent with respect to the service state
// machine.
type Control struct {
	out io.Writer

	mu   sync.Mutex
	path string
	cfg  *config.Config
	reg  *registry.Registry
	orch *group.Orchestrator

	watcher *fsnotify.Watcher
	stale   atomic.Bool
}

// New builds a control surface writing service output to out; a nil out
// means stdout. The sink is wrapped so concurrent pipes interleave at line
// granularity.
func New(out io.Writer) *Control {
	if out == nil {
		out = os.Stdout
	}
	return &Control{out: pattern.NewSyncWriter(out)}
}

// LoadAll parses the config file, validates every declared group, and swaps
// in a fresh registry and orchestrator. The first validation failure aborts
// without mutating any runtime state.
func (c *Control) LoadAll(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.ValidateGraph(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.path = path
	c.cfg = cfg
	c.reg = registry.New()
	c.orch = group.NewOrchestrator(cfg, c.reg, c.out)
	c.orch.MarkValidated()
	c.stale.Store(false)
	slog.Info("configuration loaded", "path", path, "services", len(cfg.Services), "groups", len(cfg.Groups))
	return nil
}

// Reload re-reads the current config file. It is permitted only while no
// service is in a running status.
func (c *Control) Reload() error {
	c.mu.Lock()
	reg := c.reg
	path := c.path
	c.mu.Unlock()
	if path == "" {
		return fmt.Errorf("%w: nothing loaded yet", errdefs.ErrConfigInvalid)
	}
	if reg != nil {
		if err := reg.Clear(); err != nil {
			return err
		}
	}
	return c.LoadAll(path)
}

func (c *Control) snapshot() (*config.Config, *registry.Registry, *group.Orchestrator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg == nil {
		return nil, nil, nil, fmt.Errorf("%w: no configuration loaded", errdefs.ErrConfigInvalid)
	}
	return c.cfg, c.reg, c.orch, nil
}

// StartGroup starts the named group, dependencies first.
func (c *Control) StartGroup(ctx context.Context, name string) error {
	_, _, orch, err := c.snapshot()
	if err != nil {
		return err
	}
	return orch.StartGroup(ctx, name)
}

// StopGroup stops the named group's services concurrently.
func (c *Control) StopGroup(ctx context.Context, name string) error {
	_, _, orch, err := c.snapshot()
	if err != nil {
		return err
	}
	return orch.StopGroup(ctx, name)
}

// StartService runs one service outside any group barrier.
func (c *Control) StartService(name string) error {
	_, _, orch, err := c.snapshot()
	if err != nil {
		return err
	}
	return orch.StartService(name)
}

// StopService stops one service.
func (c *Control) StopService(name string) error {
	_, _, orch, err := c.snapshot()
	if err != nil {
		return err
	}
	return orch.StopService(name)
}

// Status returns a snapshot for one service, or for every declared service
// when name is empty. Services never instantiated report loaded.
func (c *Control) Status(name string) ([]StatusInfo, error) {
	cfg, reg, _, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	if name != "" {
		spec, ok := cfg.FindService(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", errdefs.ErrServiceNotFound, name)
		}
		return []StatusInfo{c.statusOf(reg, spec.Name)}, nil
	}
	out := make([]StatusInfo, 0, len(cfg.Services))
	for _, spec := range cfg.Services {
		out = append(out, c.statusOf(reg, spec.Name))
	}
	return out, nil
}

func (c *Control) statusOf(reg *registry.Registry, name string) StatusInfo {
	st := service.StatusLoaded
	pid := 0
	if s, ok := reg.Service(name); ok {
		st = s.Status()
		pid = s.PID()
	}
	return StatusInfo{Service: name, Status: st, State: st.String(), PID: pid}
}

// GroupNames lists every declared group in file order.
func (c *Control) GroupNames() []string {
	cfg, _, _, err := c.snapshot()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(cfg.Groups))
	for _, g := range cfg.Groups {
		names = append(names, g.Name)
	}
	return names
}

// Shutdown stops every group in reverse level order and tears the worker
// pools down.
func (c *Control) Shutdown(ctx context.Context) {
	c.mu.Lock()
	orch := c.orch
	c.mu.Unlock()
	if orch != nil {
		orch.ShutdownAll(ctx)
	}
}

// WatchConfig watches the loaded config file and flags the model stale on
// changes. It never hot-swaps: the operator applies the change with an
// explicit reload once everything is stopped.
func (c *Control) WatchConfig() error {
	c.mu.Lock()
	path := c.path
	c.mu.Unlock()
	if path == "" {
		return fmt.Errorf("%w: no configuration loaded", errdefs.ErrConfigInvalid)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(path); err != nil {
		_ = w.Close()
		return err
	}
	c.mu.Lock()
	c.watcher = w
	c.mu.Unlock()
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
					c.stale.Store(true)
					slog.Info("config file changed; run reload to apply", "path", ev.Name)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "error", err)
			}
		}
	}()
	return nil
}

// ConfigStale reports whether the watched config file changed after the last
// load.
func (c *Control) ConfigStale() bool { return c.stale.Load() }

// Close stops the config watcher, if any.
func (c *Control) Close() {
	c.mu.Lock()
	w := c.watcher
	c.watcher = nil
	c.mu.Unlock()
	if w != nil {
		_ = w.Close()
	}
}
