package builder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/somombo/impalab/command"
)

// Manifest maps component names and languages to their runnable
// specs. It is produced by the build command and consumed read-only
// by the run command.
type Manifest struct {
	Generators           map[string]command.Spec `json:"generators"`
	AlgorithmExecutables map[string]command.Spec `json:"algorithm_executables"`
}

// NewManifest returns an empty manifest with both maps allocated.
func NewManifest() *Manifest {
	return &Manifest{
		Generators:           make(map[string]command.Spec),
		AlgorithmExecutables: make(map[string]command.Spec),
	}
}

// Load reads and decodes the manifest at path. A missing file is not
// an error: it returns (nil, nil) so callers can distinguish "no
// manifest" from a malformed one.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	return &m, nil
}

// Write serializes the manifest as indented JSON to path.
func (m *Manifest) Write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize manifest: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}

	return nil
}
