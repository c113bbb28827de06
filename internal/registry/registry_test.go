package registry

import (
	"context"
	"errors"
	"io"
	"runtime"
	"testing"
	"time"

	"github.com/loykin/stackup/internal/errdefs"
	"github.com/loykin/stackup/internal/service"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests require sh/sleep on Unix-like systems")
	}
}

func newService(t *testing.T, name string, aliases []string, command string) *service.Service {
	t.Helper()
	spec := service.Spec{Name: name, Aliases: aliases, Command: command}
	if err := spec.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return service.New(&spec, nil, nil, io.Discard)
}

type fakeGroup struct {
	name    string
	aliases []string
}

func (f fakeGroup) Name() string      { return f.name }
func (f fakeGroup) Aliases() []string { return f.aliases }

func TestServiceLookupByNameAndAlias(t *testing.T) {
	r := New()
	s := newService(t, "postgres", []string{"db", "pg"}, "true")
	if err := r.PutService(s); err != nil {
		t.Fatalf("put: %v", err)
	}
	for _, key := range []string{"postgres", "db", "pg"} {
		got, ok := r.Service(key)
		if !ok || got != s {
			t.Fatalf("lookup %q failed", key)
		}
	}
	if _, ok := r.Service("missing"); ok {
		t.Fatalf("unexpected hit for unknown name")
	}
	if n := len(r.Services()); n != 1 {
		t.Fatalf("Services must deduplicate aliases: got %d entries", n)
	}
}

func TestPutServiceRejectsCollisions(t *testing.T) {
	r := New()
	if err := r.PutService(newService(t, "api", []string{"a"}, "true")); err != nil {
		t.Fatalf("put: %v", err)
	}
	err := r.PutService(newService(t, "worker", []string{"a"}, "true"))
	if !errors.Is(err, errdefs.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
	// the failed insert must not leave partial keys behind
	if _, ok := r.Service("worker"); ok {
		t.Fatalf("failed insert leaked the name key")
	}
}

func TestGroupNamespaceIsSeparate(t *testing.T) {
	r := New()
	if err := r.PutService(newService(t, "db", nil, "true")); err != nil {
		t.Fatalf("put service: %v", err)
	}
	// the same identifier may name a group; the namespaces are separate
	if err := r.PutGroup(fakeGroup{name: "db"}); err != nil {
		t.Fatalf("put group: %v", err)
	}
	if err := r.PutGroup(fakeGroup{name: "apps", aliases: []string{"db"}}); !errors.Is(err, errdefs.ErrAlreadyExists) {
		t.Fatalf("expected collision inside the group namespace, got %v", err)
	}
}

func TestClearOnlyWhenNothingRuns(t *testing.T) {
	requireUnix(t)
	r := New()
	s := newService(t, "sleeper", nil, "sleep 2")
	if err := r.PutService(s); err != nil {
		t.Fatalf("put: %v", err)
	}
	go func() { _ = s.Run(context.Background()) }()
	deadline := time.Now().Add(3 * time.Second)
	for !s.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !s.IsRunning() {
		t.Fatalf("service did not start")
	}
	if err := r.Clear(); !errors.Is(err, errdefs.ErrNotStopped) {
		t.Fatalf("expected clear to be rejected while running, got %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := r.Clear(); err != nil {
		t.Fatalf("clear after stop: %v", err)
	}
	if _, ok := r.Service("sleeper"); ok {
		t.Fatalf("clear left entries behind")
	}
}
