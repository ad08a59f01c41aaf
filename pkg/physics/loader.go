package physics

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var usdExtensions = map[string]bool{
	".usd":  true,
	".usda": true,
	".usdc": true,
}

// IsUSDPath reports whether path names an OpenUSD file by extension.
func IsUSDPath(path string) bool {
	return usdExtensions[strings.ToLower(filepath.Ext(path))]
}

// LoadModel loads a scene file with eng, dispatching on the extension:
// .mjb loads as a precompiled binary, .usd/.usda/.usdc as OpenUSD, anything
// else as XML. Missing files wrap fs.ErrNotExist.
func LoadModel(eng Engine, path string) (Model, error) {
	if eng == nil {
		return nil, fmt.Errorf("%w: engine is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: model path is required", ErrInvalidArgument)
	}

	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("model file %s: %w", path, fs.ErrNotExist)
		}
		return nil, err
	}

	caps := eng.Capabilities()
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case usdExtensions[ext]:
		return loadUSD(eng, caps, path)
	case ext == ".mjb":
		if !caps.LoadBinary {
			return nil, fmt.Errorf("%w: %s cannot load binary scenes", ErrCapabilityUnsupported, eng.Name())
		}
		return eng.LoadBinary(path)
	default:
		if !caps.LoadXML {
			return nil, fmt.Errorf("%w: %s cannot load XML scenes", ErrCapabilityUnsupported, eng.Name())
		}
		return eng.LoadXML(path)
	}
}

// loadUSD prefers the engine's direct USD loader, falls back to the
// parse-then-compile path, and retries exactly once with shell mesh inertia
// when compilation trips over a degenerate mesh volume.
func loadUSD(eng Engine, caps Capabilities, path string) (Model, error) {
	if caps.LoadUSD {
		return eng.LoadUSD(path)
	}
	if !caps.ParseSpec {
		return nil, &UnsupportedUSDError{Path: path, Engine: eng.Name(), Capabilities: caps}
	}

	spec, err := eng.ParseSpec(path)
	if err != nil {
		return nil, err
	}
	model, err := spec.Compile()
	if err == nil {
		return model, nil
	}
	if !IsMeshVolumeError(err) {
		return nil, err
	}

	// Common failure mode on large asset packs: near-zero mesh volumes break
	// volume-based inertia. Shell inertia tolerates them.
	slog.Debug("compile failed on mesh volume, retrying with shell inertia",
		"engine", eng.Name(), "path", path, "err", err)
	spec.SetMeshInertia(InertiaShell)
	return spec.Compile()
}
