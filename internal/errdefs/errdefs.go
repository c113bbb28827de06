// Package errdefs holds the closed set of error kinds surfaced by stackup
// operations. Callers discriminate with errors.Is; everything else is wrapped
// context around one of these sentinels.
package errdefs

import "errors"

var (
	// ErrConfigInvalid marks parsing or schema violations in the config file.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrServiceNotFound is returned when a service reference does not resolve.
	ErrServiceNotFound = errors.New("service not found")

	// ErrGroupNotFound is returned when a group reference does not resolve.
	ErrGroupNotFound = errors.New("group not found")

	// ErrCircularDependency is returned by the graph validator on a cycle.
	ErrCircularDependency = errors.New("circular dependency")

	// ErrMaxDepthExceeded is returned when the dependency graph is deeper
	// than the configured maximum.
	ErrMaxDepthExceeded = errors.New("max depth exceeded")

	// ErrAlreadyExists is returned on a registry insert whose name or alias
	// collides with an existing entry. It indicates a programming fault.
	ErrAlreadyExists = errors.New("already exists")

	// ErrSpawnFailed marks a process creation failure; the run aborts and the
	// service state returns to loaded.
	ErrSpawnFailed = errors.New("spawn failed")

	// ErrStopTimedOut is reported when a stop did not complete within the
	// service's stop timeout and the process tree was force-destroyed.
	ErrStopTimedOut = errors.New("stop timed out")

	// ErrServiceReported marks an error-pattern match: the service itself
	// announced a failure. The orchestrator halts on it unless the
	// configuration ignores errors.
	ErrServiceReported = errors.New("service reported error")

	// ErrNotStopped guards operations that require every service to be down,
	// such as registry clear and reload.
	ErrNotStopped = errors.New("services still running")
)
