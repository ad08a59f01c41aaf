// Package physics defines the engine-neutral interfaces for loading and
// stepping rigid-body scenes. Concrete engines register themselves through
// Register; callers load scene files through LoadModel, which dispatches on
// the file extension.
package physics

// MeshInertia selects how an engine derives inertia from mesh geometry.
type MeshInertia int

const (
	// InertiaVolume integrates over the enclosed mesh volume. Degenerate
	// meshes with near-zero or negative volume make it fail.
	InertiaVolume MeshInertia = iota
	// InertiaShell integrates over the surface, which tolerates degenerate
	// meshes.
	InertiaShell
)

// Capabilities describes which scene formats an engine build can ingest.
type Capabilities struct {
	LoadXML    bool `json:"load_xml"`
	LoadBinary bool `json:"load_binary"`
	LoadUSD    bool `json:"load_usd"`
	// ParseSpec indicates support for the two-phase parse-then-compile path,
	// which is how USD files load on builds without a direct USD loader.
	ParseSpec bool `json:"parse_spec"`
}

// Engine is one simulation backend. Implementations must be safe for
// concurrent loads of distinct files.
type Engine interface {
	Name() string
	Capabilities() Capabilities

	// LoadXML loads a scene described in the engine's XML dialect.
	LoadXML(path string) (Model, error)
	// LoadBinary loads a precompiled scene snapshot.
	LoadBinary(path string) (Model, error)
	// LoadUSD loads an OpenUSD stage directly.
	LoadUSD(path string) (Model, error)
	// ParseSpec parses a scene file into an editable spec without compiling.
	ParseSpec(path string) (Spec, error)
}

// Spec is a parsed, not yet compiled scene. Edits apply to the next Compile.
type Spec interface {
	// SetMeshInertia switches every mesh asset in the spec to the given
	// inertia derivation.
	SetMeshInertia(m MeshInertia)
	Compile() (Model, error)
}

// Model is an immutable compiled scene. Mutable simulation state lives in the
// State values it creates.
type Model interface {
	// NQ is the size of the generalized position vector.
	NQ() int
	// NV is the size of the generalized velocity vector.
	NV() int
	// NU is the number of actuators.
	NU() int
	// Timestep is the integration step in seconds.
	Timestep() float64
	NewState() State
}

// State is the mutable side of a simulation. It is not safe for concurrent
// use.
type State interface {
	Time() float64
	// Steps is the number of integration steps taken since the last Reset.
	Steps() int

	// QPos and QVel return views of the current generalized coordinates.
	// Callers must copy before mutating or retaining.
	QPos() []float64
	QVel() []float64

	// SetCtrl writes the actuator control vector. Length must equal NU.
	SetCtrl(ctrl []float64) error

	// Reset restores the initial configuration.
	Reset()
	// Forward recomputes derived quantities without advancing time.
	Forward()
	// Step advances the simulation by one timestep.
	Step()
}
