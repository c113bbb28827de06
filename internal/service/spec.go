package service

import (
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/loykin/stackup/internal/errdefs"
	"github.com/loykin/stackup/internal/logger"
)

// identRe is the allowed charset for service and group identifiers.
var identRe = regexp.MustCompile(`^[A-Za-z0-9 _.-]+$`)

// ValidIdentifier reports whether name is usable as a service or group name
// or alias.
func ValidIdentifier(name string) bool { return identRe.MatchString(name) }

// stop signal names a stop spec may name instead of a command.
var stopSignals = map[string]struct{}{
	"SIGINT": {}, "SIGTERM": {}, "SIGHUP": {}, "SIGKILL": {}, "SIGQUIT": {},
}

// DefaultStopTimeout is the stop timeout in seconds when the spec omits one.
const DefaultStopTimeout = 5

// Spec describes a service: a single long-running command with identity,
// lifecycle, and observation rules. Specs are immutable once validated and
// shared by reference.
type Spec struct {
	Name    string   `json:"name" mapstructure:"name"`
	Aliases []string `json:"aliases" mapstructure:"aliases"`

	// Command is a single shell-evaluated string (sh -c / cmd /c).
	Command string `json:"start" mapstructure:"start"`
	// WorkDir defaults to the current directory.
	WorkDir string `json:"work_dir" mapstructure:"workDir"`
	// StdinFile, when set, is redirected to the start command's stdin.
	StdinFile string `json:"stdin" mapstructure:"stdin"`

	// Stop is either a signal name (SIGINT, SIGTERM, SIGHUP, SIGKILL,
	// SIGQUIT) or a shell command. Defaults to SIGTERM.
	Stop string `json:"stop" mapstructure:"stop"`
	// StopTimeout is in seconds, >= 1.
	StopTimeout int `json:"stop_timeout" mapstructure:"stopTimeout"`
	// StopStdinFile optionally feeds the stop command's stdin.
	StopStdinFile string `json:"stop_stdin" mapstructure:"stopStdin"`

	// StartedPatterns and ErrorPatterns are case-insensitive regexes matched
	// anywhere in each output line.
	StartedPatterns []string `json:"started_patterns" mapstructure:"startedPatterns"`
	ErrorPatterns   []string `json:"error_patterns" mapstructure:"errorPatterns"`

	Color Color `json:"color" mapstructure:"-"`

	// Log optionally copies the service's piped output into rotated files.
	Log logger.FileConfig `json:"log" mapstructure:"log"`

	started []*regexp.Regexp
	errors  []*regexp.Regexp
}

// Validate applies defaults, checks types and identifiers, and compiles
// patterns. It must succeed before the spec is run.
func (s *Spec) Validate() error {
	if !ValidIdentifier(s.Name) {
		return fmt.Errorf("%w: service name %q must match %s", errdefs.ErrConfigInvalid, s.Name, identRe)
	}
	for _, a := range s.Aliases {
		if !ValidIdentifier(a) {
			return fmt.Errorf("%w: service %s alias %q must match %s", errdefs.ErrConfigInvalid, s.Name, a, identRe)
		}
	}
	if strings.TrimSpace(s.Command) == "" {
		return fmt.Errorf("%w: service %s requires a start command", errdefs.ErrConfigInvalid, s.Name)
	}
	if s.Stop == "" {
		s.Stop = "SIGTERM"
	}
	if s.StopTimeout == 0 {
		s.StopTimeout = DefaultStopTimeout
	}
	if s.StopTimeout < 1 {
		return fmt.Errorf("%w: service %s stop timeout must be >= 1s", errdefs.ErrConfigInvalid, s.Name)
	}
	if s.WorkDir != "" {
		fi, err := os.Stat(s.WorkDir)
		if err != nil || !fi.IsDir() {
			return fmt.Errorf("%w: service %s work dir %q is not a readable directory", errdefs.ErrConfigInvalid, s.Name, s.WorkDir)
		}
	}
	if (s.Color == Color{}) {
		s.Color = White
	}
	var err error
	if s.started, err = compilePatterns(s.StartedPatterns); err != nil {
		return fmt.Errorf("%w: service %s started pattern: %v", errdefs.ErrConfigInvalid, s.Name, err)
	}
	if s.errors, err = compilePatterns(s.ErrorPatterns); err != nil {
		return fmt.Errorf("%w: service %s error pattern: %v", errdefs.ErrConfigInvalid, s.Name, err)
	}
	return nil
}

func compilePatterns(pats []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(pats))
	for _, p := range pats {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, err
		}
		res = append(res, re)
	}
	return res, nil
}

// StopIsSignal reports whether the stop spec names a signal instead of a
// command.
func (s *Spec) StopIsSignal() bool {
	_, ok := stopSignals[s.Stop]
	return ok
}

// BuildCommand wraps the start command in the host shell. The command string
// is always shell-evaluated, matching the configuration contract.
func (s *Spec) BuildCommand() *exec.Cmd {
	return shellCommand(s.Command)
}

// BuildStopCommand wraps the stop command in the host shell.
func (s *Spec) BuildStopCommand() *exec.Cmd {
	return shellCommand(s.Stop)
}

// Prefix is the tag prepended to every stdout line of the service.
func (s *Spec) Prefix() string {
	return "[" + s.Color.Paint(s.Name) + "]: "
}

// ErrorPrefix is the tag prepended to every stderr line of the service.
func (s *Spec) ErrorPrefix() string {
	return "[" + Color{R: 255}.Paint(s.Name) + "]: "
}
