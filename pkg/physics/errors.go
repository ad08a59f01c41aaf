package physics

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidArgument flags bad caller input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownEngine is returned by Open for an unregistered engine name.
	ErrUnknownEngine = errors.New("unknown physics engine")

	// ErrCapabilityUnsupported is returned when a scene format requires a
	// loader the engine build does not have.
	ErrCapabilityUnsupported = errors.New("loader not supported by engine build")
)

// UnsupportedUSDError reports that an OpenUSD file was requested but the
// engine build has no way to ingest it. It carries the capability probe so
// callers can explain what the build would need.
type UnsupportedUSDError struct {
	Path         string
	Engine       string
	Capabilities Capabilities
}

func (e *UnsupportedUSDError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "OpenUSD import is not available in engine %q (tried to load %s)", e.Engine, e.Path)
	fmt.Fprintf(&b, "; capabilities: xml=%t binary=%t usd=%t spec=%t",
		e.Capabilities.LoadXML, e.Capabilities.LoadBinary, e.Capabilities.LoadUSD, e.Capabilities.ParseSpec)
	b.WriteString("; a build with USD support enabled is required")
	return b.String()
}

func (e *UnsupportedUSDError) Unwrap() error { return ErrCapabilityUnsupported }

// IsMeshVolumeError reports whether a compile failure is the degenerate-mesh
// inertia failure that a shell-inertia retry can fix. Engines surface it as a
// message, not a sentinel, so this matches on the known message forms.
func IsMeshVolumeError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "mesh volume is too small") ||
		strings.Contains(msg, "mesh volume is negative")
}
