// Package graph proves the group-dependency relation is finite, acyclic,
// and within the configured depth bound before any process is launched.
package graph

import (
	"fmt"

	"github.com/loykin/stackup/internal/errdefs"
)

// Node is one group as the validator sees it: canonical name, service
// references, and group dependency references (names or aliases).
type Node struct {
	Name         string
	Services     []string
	Dependencies []string
}

// Resolver resolves references against the configuration model. Lookups
// accept names and aliases.
type Resolver interface {
	GroupNode(name string) (Node, bool)
	HasService(name string) bool
}

type color uint8

const (
	white color = iota
	gray
	black
)

// Validate walks the subgraph rooted at root depth-first, coloring nodes
// white/gray/black. A gray neighbor means a cycle. Depth is the current
// gray-frontier length (the root alone is depth 1); the first time it
// exceeds maxDepth the walk fails.
func Validate(root string, r Resolver, maxDepth int) error {
	colors := make(map[string]color)
	// reached records the deepest depth at which a black node was walked; a
	// longer path into it is walked again so its depth is measured too
	reached := make(map[string]int)
	var visit func(name string, depth int) error
	visit = func(name string, depth int) error {
		node, ok := r.GroupNode(name)
		if !ok {
			return fmt.Errorf("%w: group %q", errdefs.ErrGroupNotFound, name)
		}
		switch colors[node.Name] {
		case gray:
			return fmt.Errorf("%w: group %q depends on itself", errdefs.ErrCircularDependency, node.Name)
		case black:
			if depth <= reached[node.Name] {
				return nil
			}
		}
		if depth > maxDepth {
			return fmt.Errorf("%w: group %q exceeds dependency depth limit %d", errdefs.ErrMaxDepthExceeded, root, maxDepth)
		}
		colors[node.Name] = gray
		for _, svc := range node.Services {
			if !r.HasService(svc) {
				return fmt.Errorf("%w: group %q references service %q", errdefs.ErrServiceNotFound, node.Name, svc)
			}
		}
		for _, dep := range node.Dependencies {
			if err := visit(dep, depth+1); err != nil {
				return err
			}
		}
		colors[node.Name] = black
		reached[node.Name] = depth
		return nil
	}
	return visit(root, 1)
}
