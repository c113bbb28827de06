package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/loykin/stackup/internal/errdefs"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const yamlConfig = `
services:
  - name: postgres
    start: "postgres -D ./data"
    aliases: [db, pg]
    startedPatterns: ["database system is ready"]
    errorPatterns: ["fatal"]
    color: "0x1e90ff"
    stopTimeout: 10
  - name: api
    start: "npm run dev"
    stop: "npm run stop"
groups:
  - name: backend
    aliases: [be]
    services: [db, api]
ignoreErrors: true
maxDepth: 3
`

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "stackup.yaml", yamlConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Services) != 2 || len(cfg.Groups) != 1 {
		t.Fatalf("unexpected model size: %d services, %d groups", len(cfg.Services), len(cfg.Groups))
	}
	if !cfg.IgnoreErrors {
		t.Fatalf("ignoreErrors not honored")
	}
	if cfg.MaxDepth != 3 {
		t.Fatalf("maxDepth: got %d want 3", cfg.MaxDepth)
	}

	pg, ok := cfg.FindService("pg")
	if !ok {
		t.Fatalf("alias lookup failed")
	}
	if pg.Name != "postgres" {
		t.Fatalf("alias resolved to %q", pg.Name)
	}
	if pg.StopTimeout != 10 {
		t.Fatalf("stopTimeout: got %d want 10", pg.StopTimeout)
	}
	if pg.Color.R != 0x1e || pg.Color.G != 0x90 || pg.Color.B != 0xff {
		t.Fatalf("color not decoded: %+v", pg.Color)
	}

	api, _ := cfg.FindService("api")
	if api.Stop != "npm run stop" || api.StopIsSignal() {
		t.Fatalf("stop command not preserved: %q", api.Stop)
	}
	if api.StopTimeout != 5 {
		t.Fatalf("default stop timeout: got %d", api.StopTimeout)
	}

	if _, ok := cfg.FindGroup("be"); !ok {
		t.Fatalf("group alias lookup failed")
	}
	if err := cfg.ValidateGraph(); err != nil {
		t.Fatalf("validate graph: %v", err)
	}
}

const jsonConfig = `{
  "services": [
    {"name": "web", "start": "python -m http.server", "color": 255}
  ],
  "groups": [
    {"name": "frontend", "services": ["web"]}
  ]
}`

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "stackup.json", jsonConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxDepth != DefaultMaxDepth {
		t.Fatalf("default maxDepth: got %d want %d", cfg.MaxDepth, DefaultMaxDepth)
	}
	if cfg.IgnoreErrors {
		t.Fatalf("ignoreErrors must default to false")
	}
	web, ok := cfg.FindService("web")
	if !ok {
		t.Fatalf("service not loaded")
	}
	if web.Color.B != 255 || web.Color.R != 0 {
		t.Fatalf("integer color not decoded: %+v", web.Color)
	}
	if web.Stop != "SIGTERM" {
		t.Fatalf("default stop spec: got %q", web.Stop)
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	path := writeConfig(t, "stackup.toml", "services = []")
	if _, err := Load(path); !errors.Is(err, errdefs.ErrConfigInvalid) {
		t.Fatalf("expected config invalid, got %v", err)
	}
}

func TestLoadRejectsDuplicateServiceIdentifiers(t *testing.T) {
	path := writeConfig(t, "dup.yaml", `
services:
  - name: a
    start: "true"
  - name: b
    start: "true"
    aliases: [a]
`)
	if _, err := Load(path); !errors.Is(err, errdefs.ErrConfigInvalid) {
		t.Fatalf("expected config invalid, got %v", err)
	}
}

func TestLoadRejectsDuplicateGroupIdentifiers(t *testing.T) {
	path := writeConfig(t, "dup.yaml", `
services:
  - name: a
    start: "true"
groups:
  - name: g1
    services: [a]
  - name: g2
    aliases: [g1]
    services: [a]
`)
	if _, err := Load(path); !errors.Is(err, errdefs.ErrConfigInvalid) {
		t.Fatalf("expected config invalid, got %v", err)
	}
}

func TestLoadAllowsSameIdentifierAcrossNamespaces(t *testing.T) {
	path := writeConfig(t, "ns.yaml", `
services:
  - name: db
    start: "true"
groups:
  - name: db
    services: [db]
`)
	if _, err := Load(path); err != nil {
		t.Fatalf("service and group namespaces are separate: %v", err)
	}
}

func TestLoadRejectsEmptyGroup(t *testing.T) {
	path := writeConfig(t, "empty.yaml", `
services:
  - name: a
    start: "true"
groups:
  - name: g
    services: []
`)
	if _, err := Load(path); !errors.Is(err, errdefs.ErrConfigInvalid) {
		t.Fatalf("expected config invalid, got %v", err)
	}
}

func TestLoadRejectsBadMaxDepth(t *testing.T) {
	path := writeConfig(t, "depth.yaml", `
services:
  - name: a
    start: "true"
maxDepth: -2
`)
	if _, err := Load(path); !errors.Is(err, errdefs.ErrConfigInvalid) {
		t.Fatalf("expected config invalid, got %v", err)
	}
}

func TestValidateGraphRejectsCycle(t *testing.T) {
	path := writeConfig(t, "cycle.yaml", `
services:
  - name: s1
    start: "true"
  - name: s2
    start: "true"
groups:
  - name: a
    services: [s1]
    dependencies: [b]
  - name: b
    services: [s2]
    dependencies: [a]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.ValidateGraph(); !errors.Is(err, errdefs.ErrCircularDependency) {
		t.Fatalf("expected circular dependency, got %v", err)
	}
}

func TestValidateGraphRejectsDepth(t *testing.T) {
	path := writeConfig(t, "deep.yaml", `
services:
  - name: s1
    start: "true"
  - name: s2
    start: "true"
  - name: s3
    start: "true"
groups:
  - name: g1
    services: [s1]
    dependencies: [g2]
  - name: g2
    services: [s2]
    dependencies: [g3]
  - name: g3
    services: [s3]
maxDepth: 2
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.ValidateGraph(); !errors.Is(err, errdefs.ErrMaxDepthExceeded) {
		t.Fatalf("expected max depth exceeded, got %v", err)
	}
}

func TestValidateGraphRejectsUnknownServiceRef(t *testing.T) {
	path := writeConfig(t, "refs.yaml", `
services:
  - name: s1
    start: "true"
groups:
  - name: g
    services: [ghost]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.ValidateGraph(); !errors.Is(err, errdefs.ErrServiceNotFound) {
		t.Fatalf("expected service not found, got %v", err)
	}
}
