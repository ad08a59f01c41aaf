package physics

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

type fakeModel struct{ nq, nv, nu int }

func (m *fakeModel) NQ() int           { return m.nq }
func (m *fakeModel) NV() int           { return m.nv }
func (m *fakeModel) NU() int           { return m.nu }
func (m *fakeModel) Timestep() float64 { return 0.002 }
func (m *fakeModel) NewState() State   { return nil }

type fakeSpec struct {
	inertia     MeshInertia
	compiles    int
	failVolume  bool
	failMessage string
}

func (s *fakeSpec) SetMeshInertia(m MeshInertia) { s.inertia = m }

func (s *fakeSpec) Compile() (Model, error) {
	s.compiles++
	if s.failVolume && s.inertia != InertiaShell {
		return nil, errors.New(s.failMessage)
	}
	return &fakeModel{}, nil
}

type fakeEngine struct {
	name  string
	caps  Capabilities
	spec  *fakeSpec
	calls []string
}

func (e *fakeEngine) Name() string               { return e.name }
func (e *fakeEngine) Capabilities() Capabilities { return e.caps }

func (e *fakeEngine) LoadXML(path string) (Model, error) {
	e.calls = append(e.calls, "xml")
	return &fakeModel{}, nil
}

func (e *fakeEngine) LoadBinary(path string) (Model, error) {
	e.calls = append(e.calls, "binary")
	return &fakeModel{}, nil
}

func (e *fakeEngine) LoadUSD(path string) (Model, error) {
	e.calls = append(e.calls, "usd")
	return &fakeModel{}, nil
}

func (e *fakeEngine) ParseSpec(path string) (Spec, error) {
	e.calls = append(e.calls, "spec")
	return e.spec, nil
}

func touch(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadModelDispatch(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"scene.xml", "xml"},
		{"scene.mjcf", "xml"},
		{"scene", "xml"},
		{"scene.mjb", "binary"},
		{"scene.MJB", "binary"},
		{"scene.usd", "usd"},
		{"scene.usda", "usd"},
		{"scene.USDC", "usd"},
	}

	for _, tt := range tests {
		eng := &fakeEngine{name: "fake", caps: Capabilities{LoadXML: true, LoadBinary: true, LoadUSD: true}}
		if _, err := LoadModel(eng, touch(t, tt.file)); err != nil {
			t.Errorf("LoadModel(%s): %v", tt.file, err)
			continue
		}
		if len(eng.calls) != 1 || eng.calls[0] != tt.want {
			t.Errorf("LoadModel(%s) called %v, want [%s]", tt.file, eng.calls, tt.want)
		}
	}
}

func TestLoadModelMissingFile(t *testing.T) {
	eng := &fakeEngine{name: "fake", caps: Capabilities{LoadXML: true}}
	_, err := LoadModel(eng, filepath.Join(t.TempDir(), "missing.xml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestLoadModelUSDDirect(t *testing.T) {
	eng := &fakeEngine{name: "fake", caps: Capabilities{LoadUSD: true, ParseSpec: true}}
	if _, err := LoadModel(eng, touch(t, "scene.usd")); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if len(eng.calls) != 1 || eng.calls[0] != "usd" {
		t.Errorf("calls = %v, want the direct loader preferred over the spec path", eng.calls)
	}
}

func TestLoadModelUSDSpecFallback(t *testing.T) {
	spec := &fakeSpec{}
	eng := &fakeEngine{name: "fake", caps: Capabilities{ParseSpec: true}, spec: spec}
	if _, err := LoadModel(eng, touch(t, "scene.usda")); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if spec.compiles != 1 {
		t.Errorf("compiles = %d, want 1", spec.compiles)
	}
}

func TestLoadModelUSDShellInertiaRetry(t *testing.T) {
	tests := []string{
		"compile error: mesh volume is too small: mesh 'cup_37'",
		"compile error: mesh volume is negative (mesh 'bowl_2')",
	}

	for _, msg := range tests {
		spec := &fakeSpec{failVolume: true, failMessage: msg}
		eng := &fakeEngine{name: "fake", caps: Capabilities{ParseSpec: true}, spec: spec}
		if _, err := LoadModel(eng, touch(t, "scene.usd")); err != nil {
			t.Errorf("%q: LoadModel: %v", msg, err)
			continue
		}
		if spec.compiles != 2 {
			t.Errorf("%q: compiles = %d, want exactly one retry", msg, spec.compiles)
		}
		if spec.inertia != InertiaShell {
			t.Errorf("%q: inertia = %v, want shell", msg, spec.inertia)
		}
	}
}

func TestLoadModelUSDOtherCompileErrorNoRetry(t *testing.T) {
	spec := &fakeSpec{failVolume: true, failMessage: "compile error: joint range is invalid"}
	eng := &fakeEngine{name: "fake", caps: Capabilities{ParseSpec: true}, spec: spec}
	_, err := LoadModel(eng, touch(t, "scene.usd"))
	if err == nil {
		t.Fatal("expected compile error")
	}
	if spec.compiles != 1 {
		t.Errorf("compiles = %d, want no retry on unrelated errors", spec.compiles)
	}
}

func TestLoadModelUSDUnsupported(t *testing.T) {
	eng := &fakeEngine{name: "fake", caps: Capabilities{LoadXML: true}}
	_, err := LoadModel(eng, touch(t, "scene.usdc"))

	var usdErr *UnsupportedUSDError
	if !errors.As(err, &usdErr) {
		t.Fatalf("err = %v, want *UnsupportedUSDError", err)
	}
	if !errors.Is(err, ErrCapabilityUnsupported) {
		t.Errorf("err does not unwrap to ErrCapabilityUnsupported")
	}
	if usdErr.Engine != "fake" {
		t.Errorf("engine = %q, want fake", usdErr.Engine)
	}
}

func TestLoadModelBinaryUnsupported(t *testing.T) {
	eng := &fakeEngine{name: "fake", caps: Capabilities{LoadXML: true}}
	if _, err := LoadModel(eng, touch(t, "scene.mjb")); !errors.Is(err, ErrCapabilityUnsupported) {
		t.Fatalf("err = %v, want ErrCapabilityUnsupported", err)
	}
}

func TestLoadModelInvalidArguments(t *testing.T) {
	if _, err := LoadModel(nil, "scene.xml"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil engine: err = %v, want ErrInvalidArgument", err)
	}
	eng := &fakeEngine{name: "fake", caps: Capabilities{LoadXML: true}}
	if _, err := LoadModel(eng, "  "); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("blank path: err = %v, want ErrInvalidArgument", err)
	}
}

func TestRegistry(t *testing.T) {
	Register("loader-test-engine", func() (Engine, error) {
		return &fakeEngine{name: "loader-test-engine", caps: Capabilities{LoadXML: true}}, nil
	})

	eng, err := Open("loader-test-engine")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if eng.Name() != "loader-test-engine" {
		t.Errorf("name = %q", eng.Name())
	}

	if _, err := Open("no-such-engine"); !errors.Is(err, ErrUnknownEngine) {
		t.Errorf("err = %v, want ErrUnknownEngine", err)
	}

	found := false
	for _, name := range ListEngines() {
		if name == "loader-test-engine" {
			found = true
		}
	}
	if !found {
		t.Errorf("ListEngines() = %v, missing registered engine", ListEngines())
	}
}

func TestProbeUSD(t *testing.T) {
	tests := []struct {
		caps Capabilities
		want bool
	}{
		{Capabilities{LoadUSD: true}, true},
		{Capabilities{ParseSpec: true}, true},
		{Capabilities{LoadXML: true, LoadBinary: true}, false},
	}

	for _, tt := range tests {
		got := ProbeUSD(&fakeEngine{name: "fake", caps: tt.caps})
		if got.Supported != tt.want {
			t.Errorf("ProbeUSD(%+v).Supported = %t, want %t", tt.caps, got.Supported, tt.want)
		}
		if tt.want && got.Loader == "" {
			t.Errorf("ProbeUSD(%+v) missing loader name", tt.caps)
		}
	}
}
