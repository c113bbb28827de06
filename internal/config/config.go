// Package config reads the declarative configuration file (JSON or YAML,
// selected by extension) and turns it into the validated immutable model the
// rest of the runtime works from. Nothing is launched, and no runtime state
// is touched, before the whole model checks out.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/loykin/stackup/internal/errdefs"
	"github.com/loykin/stackup/internal/graph"
	"github.com/loykin/stackup/internal/logger"
	"github.com/loykin/stackup/internal/service"
)

// DefaultMaxDepth bounds the dependency graph when the file omits maxDepth.
const DefaultMaxDepth = 5

// GroupSpec declares a named set of services plus an ordered list of group
// dependencies. References are by name or alias.
type GroupSpec struct {
	Name         string   `json:"name" mapstructure:"name"`
	Aliases      []string `json:"aliases" mapstructure:"aliases"`
	Services     []string `json:"services" mapstructure:"services"`
	Dependencies []string `json:"dependencies" mapstructure:"dependencies"`
}

// Config is the loaded model: immutable once built, shared by reference.
type Config struct {
	Services     []*service.Spec
	Groups       []*GroupSpec
	MaxDepth     int
	IgnoreErrors bool
}

type fileService struct {
	Name            string             `mapstructure:"name"`
	Start           string             `mapstructure:"start"`
	Stop            string             `mapstructure:"stop"`
	StopTimeout     int                `mapstructure:"stopTimeout"`
	Aliases         []string           `mapstructure:"aliases"`
	Color           interface{}        `mapstructure:"color"`
	WorkDir         string             `mapstructure:"workDir"`
	StartedPatterns []string           `mapstructure:"startedPatterns"`
	ErrorPatterns   []string           `mapstructure:"errorPatterns"`
	Stdin           string             `mapstructure:"stdin"`
	StopStdin       string             `mapstructure:"stopStdin"`
	Log             *logger.FileConfig `mapstructure:"log"`
}

type fileConfig struct {
	Services     []fileService `mapstructure:"services"`
	Groups       []GroupSpec   `mapstructure:"groups"`
	MaxDepth     int           `mapstructure:"maxDepth"`
	IgnoreErrors bool          `mapstructure:"ignoreErrors"`
}

// Load parses and validates the configuration file at path.
func Load(path string) (*Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("%w: unsupported config extension %q", errdefs.ErrConfigInvalid, ext)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %v", errdefs.ErrConfigInvalid, err)
	}
	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("%w: %v", errdefs.ErrConfigInvalid, err)
	}
	return build(fc)
}

func build(fc fileConfig) (*Config, error) {
	cfg := &Config{
		MaxDepth:     fc.MaxDepth,
		IgnoreErrors: fc.IgnoreErrors,
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.MaxDepth < 1 {
		return nil, fmt.Errorf("%w: maxDepth must be >= 1", errdefs.ErrConfigInvalid)
	}

	// services: build specs and enforce identity uniqueness across names and
	// aliases in the service namespace
	seenSvc := make(map[string]struct{})
	for _, fs := range fc.Services {
		color, err := service.ParseColor(fs.Color)
		if err != nil {
			return nil, fmt.Errorf("%w: service %s: %v", errdefs.ErrConfigInvalid, fs.Name, err)
		}
		spec := &service.Spec{
			Name:            fs.Name,
			Aliases:         fs.Aliases,
			Command:         fs.Start,
			WorkDir:         fs.WorkDir,
			StdinFile:       fs.Stdin,
			Stop:            fs.Stop,
			StopTimeout:     fs.StopTimeout,
			StopStdinFile:   fs.StopStdin,
			StartedPatterns: fs.StartedPatterns,
			ErrorPatterns:   fs.ErrorPatterns,
			Color:           color,
		}
		if fs.Log != nil {
			spec.Log = *fs.Log
		}
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		for _, id := range append([]string{spec.Name}, spec.Aliases...) {
			if _, dup := seenSvc[id]; dup {
				return nil, fmt.Errorf("%w: duplicate service identifier %q", errdefs.ErrConfigInvalid, id)
			}
			seenSvc[id] = struct{}{}
		}
		cfg.Services = append(cfg.Services, spec)
	}

	// groups: identifiers, uniqueness in the group namespace, non-empty
	// service lists
	seenGrp := make(map[string]struct{})
	for i := range fc.Groups {
		g := fc.Groups[i]
		if !service.ValidIdentifier(g.Name) {
			return nil, fmt.Errorf("%w: group name %q is invalid", errdefs.ErrConfigInvalid, g.Name)
		}
		for _, a := range g.Aliases {
			if !service.ValidIdentifier(a) {
				return nil, fmt.Errorf("%w: group %s alias %q is invalid", errdefs.ErrConfigInvalid, g.Name, a)
			}
		}
		if len(g.Services) == 0 {
			return nil, fmt.Errorf("%w: group %s must list at least one service", errdefs.ErrConfigInvalid, g.Name)
		}
		seenRef := make(map[string]struct{}, len(g.Services))
		for _, ref := range g.Services {
			if _, dup := seenRef[ref]; dup {
				return nil, fmt.Errorf("%w: group %s lists service %q twice", errdefs.ErrConfigInvalid, g.Name, ref)
			}
			seenRef[ref] = struct{}{}
		}
		for _, id := range append([]string{g.Name}, g.Aliases...) {
			if _, dup := seenGrp[id]; dup {
				return nil, fmt.Errorf("%w: duplicate group identifier %q", errdefs.ErrConfigInvalid, id)
			}
			seenGrp[id] = struct{}{}
		}
		cfg.Groups = append(cfg.Groups, &g)
	}
	return cfg, nil
}

// FindService resolves a service spec by name or alias.
func (c *Config) FindService(name string) (*service.Spec, bool) {
	for _, s := range c.Services {
		if s.Name == name {
			return s, true
		}
		for _, a := range s.Aliases {
			if a == name {
				return s, true
			}
		}
	}
	return nil, false
}

// FindGroup resolves a group spec by name or alias.
func (c *Config) FindGroup(name string) (*GroupSpec, bool) {
	for _, g := range c.Groups {
		if g.Name == name {
			return g, true
		}
		for _, a := range g.Aliases {
			if a == name {
				return g, true
			}
		}
	}
	return nil, false
}

// GroupNode implements graph.Resolver.
func (c *Config) GroupNode(name string) (graph.Node, bool) {
	g, ok := c.FindGroup(name)
	if !ok {
		return graph.Node{}, false
	}
	return graph.Node{Name: g.Name, Services: g.Services, Dependencies: g.Dependencies}, true
}

// HasService implements graph.Resolver.
func (c *Config) HasService(name string) bool {
	_, ok := c.FindService(name)
	return ok
}

// ValidateGraph proves the dependency graph of every declared group is
// acyclic, fully resolvable, and within the depth bound. The first failure
// aborts; no runtime state has been touched at that point.
func (c *Config) ValidateGraph() error {
	for _, g := range c.Groups {
		if err := graph.Validate(g.Name, c, c.MaxDepth); err != nil {
			return err
		}
	}
	return nil
}

// ValidateGroup validates the subgraph rooted at one group.
func (c *Config) ValidateGroup(name string) error {
	return graph.Validate(name, c, c.MaxDepth)
}
