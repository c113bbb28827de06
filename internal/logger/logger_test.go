package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupLevels(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, "warn", false)
	l.Info("hidden")
	l.Warn("visible")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info must be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("warn must pass at warn level: %q", out)
	}
}

func TestSetupUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, "bogus", false)
	l.Debug("quiet")
	l.Info("loud")
	out := buf.String()
	if strings.Contains(out, "quiet") || !strings.Contains(out, "loud") {
		t.Fatalf("unexpected filtering: %q", out)
	}
}

func TestColorTextHandlerColorsLevels(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewColorTextHandler(&buf, nil, true))
	l.Error("bad thing")
	out := buf.String()
	if !strings.Contains(out, "\033[31m") {
		t.Fatalf("error output not colored: %q", out)
	}
	if !strings.Contains(out, "bad thing") {
		t.Fatalf("message lost: %q", out)
	}
}

func TestFileConfigWriters(t *testing.T) {
	dir := t.TempDir()
	c := FileConfig{Dir: dir}
	if !c.Enabled() {
		t.Fatalf("a dir-only config is enabled")
	}
	outW, errW, err := c.Writers("web")
	if err != nil {
		t.Fatalf("writers: %v", err)
	}
	if _, err := outW.Write([]byte("stdout line\n")); err != nil {
		t.Fatalf("write stdout: %v", err)
	}
	if _, err := errW.Write([]byte("stderr line\n")); err != nil {
		t.Fatalf("write stderr: %v", err)
	}
	_ = outW.Close()
	_ = errW.Close()

	b, err := os.ReadFile(filepath.Join(dir, "web.stdout.log"))
	if err != nil || !strings.Contains(string(b), "stdout line") {
		t.Fatalf("stdout log: %v %q", err, b)
	}
	b, err = os.ReadFile(filepath.Join(dir, "web.stderr.log"))
	if err != nil || !strings.Contains(string(b), "stderr line") {
		t.Fatalf("stderr log: %v %q", err, b)
	}
}

func TestFileConfigExplicitPathsOverrideDir(t *testing.T) {
	dir := t.TempDir()
	c := FileConfig{Dir: dir, StdoutPath: filepath.Join(dir, "custom.log")}
	outW, _, err := c.Writers("web")
	if err != nil {
		t.Fatalf("writers: %v", err)
	}
	_, _ = outW.Write([]byte("x\n"))
	_ = outW.Close()
	if _, err := os.Stat(filepath.Join(dir, "custom.log")); err != nil {
		t.Fatalf("explicit stdout path not used: %v", err)
	}
}

func TestFileConfigDisabled(t *testing.T) {
	var c FileConfig
	if c.Enabled() {
		t.Fatalf("zero config must be disabled")
	}
}
