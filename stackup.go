// Package stackup supervises groups of long-running commands on a developer
// workstation: services are declared in a JSON or YAML file, clustered into
// groups, and started in dependency order behind started-pattern barriers.
package stackup

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/loykin/stackup/internal/config"
	"github.com/loykin/stackup/internal/control"
	"github.com/loykin/stackup/internal/metrics"
	iapi "github.com/loykin/stackup/internal/server"
	"github.com/loykin/stackup/internal/service"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Spec = service.Spec

type Status = service.Status

type StatusInfo = control.StatusInfo

const (
	StatusLoaded   = service.StatusLoaded
	StatusStarting = service.StatusStarting
	StatusStarted  = service.StatusStarted
	StatusError    = service.StatusError
	StatusStopping = service.StatusStopping
	StatusStopped  = service.StatusStopped
)

// Runtime is a thin facade over the internal control surface. It provides a
// stable public API for embedding.
type Runtime struct{ inner *control.Control }

// New builds a runtime writing service output to stdout.
func New() *Runtime { return &Runtime{inner: control.New(nil)} }

// NewWithOutput builds a runtime writing service output to w.
func NewWithOutput(w io.Writer) *Runtime { return &Runtime{inner: control.New(w)} }

func (r *Runtime) LoadAll(path string) error { return r.inner.LoadAll(path) }
func (r *Runtime) Reload() error             { return r.inner.Reload() }
func (r *Runtime) StartGroup(ctx context.Context, name string) error {
	return r.inner.StartGroup(ctx, name)
}
func (r *Runtime) StopGroup(ctx context.Context, name string) error {
	return r.inner.StopGroup(ctx, name)
}
func (r *Runtime) StartService(name string) error { return r.inner.StartService(name) }
func (r *Runtime) StopService(name string) error  { return r.inner.StopService(name) }
func (r *Runtime) Status(name string) ([]StatusInfo, error) {
	return r.inner.Status(name)
}
func (r *Runtime) GroupNames() []string         { return r.inner.GroupNames() }
func (r *Runtime) Shutdown(ctx context.Context) { r.inner.Shutdown(ctx) }
func (r *Runtime) WatchConfig() error           { return r.inner.WatchConfig() }
func (r *Runtime) ConfigStale() bool            { return r.inner.ConfigStale() }
func (r *Runtime) Close()                       { r.inner.Close() }

// LoadConfig parses and validates a configuration file without touching any
// runtime state.
func LoadConfig(path string) (*cfg.Config, error) {
	c, err := cfg.Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.ValidateGraph(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewHTTPServer starts an HTTP server exposing the control operations of the
// given runtime.
func NewHTTPServer(addr, basePath string, r *Runtime) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, r.inner)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the
// default registry. It returns any immediate listen error; otherwise it runs
// the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
