package lifecycle

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/fgp-tools/fgp/internal/errors"
)

// Manifest describes how to launch a service daemon. It lives at
// <service-dir>/service.toml and is written when the service is installed.
type Manifest struct {
	// Name is the service name, which must match the directory name.
	Name string `toml:"name"`

	// Command is the daemon executable to launch.
	Command string `toml:"command"`

	// Args are passed to the daemon after the command.
	Args []string `toml:"args,omitempty"`

	// Env entries ("KEY=VALUE") are appended to the daemon's environment.
	Env []string `toml:"env,omitempty"`
}

// LoadManifest reads and validates a service manifest.
func LoadManifest(path string) (*Manifest, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: manifest not found (%s)", errors.ErrManifestLoadFailed, path)
		}
		return nil, fmt.Errorf("%w: failed to stat manifest (%s): %w", errors.ErrManifestLoadFailed, path, err)
	}

	var m *Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("%w: failed to decode manifest (%s): %w", errors.ErrManifestLoadFailed, path, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: manifest is empty (%s)", errors.ErrManifestLoadFailed, path)
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrManifestLoadFailed, err)
	}

	return m, nil
}

func (m *Manifest) validate() error {
	if strings.TrimSpace(m.Command) == "" {
		return fmt.Errorf("manifest has empty command")
	}

	for _, kv := range m.Env {
		if !strings.Contains(kv, "=") {
			return fmt.Errorf("invalid env entry '%s', expected KEY=VALUE", kv)
		}
	}

	return nil
}
