// Package registry discovers installed FGP services by enumerating the
// services directory under the FGP home (~/.fgp/services by default).
//
// Each service occupies one sub-directory holding its manifest, pid file and
// daemon socket. Services are discovered, never created, here.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-hclog"
)

const (
	// ServicesDirName is the sub-directory of the FGP home that holds one
	// directory per installed service.
	ServicesDirName = "services"

	// SocketFileName is the daemon socket file inside a service directory.
	SocketFileName = "daemon.sock"

	// PIDFileName is the pid file inside a service directory.
	PIDFileName = "daemon.pid"

	// ManifestFileName is the service manifest inside a service directory.
	ManifestFileName = "service.toml"
)

// DirRegistry is a directory-backed service registry.
// It holds no state beyond its root path and is safe for concurrent use.
type DirRegistry struct {
	logger      hclog.Logger
	servicesDir string
}

// NewDirRegistry creates a registry rooted at <home>/services.
func NewDirRegistry(logger hclog.Logger, home string) (*DirRegistry, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if home == "" {
		return nil, fmt.Errorf("home directory cannot be empty")
	}

	return &DirRegistry{
		logger:      logger.Named("registry"),
		servicesDir: filepath.Join(home, ServicesDirName),
	}, nil
}

// ServicesDir returns the directory that holds all installed services.
func (r *DirRegistry) ServicesDir() string {
	return r.servicesDir
}

// List returns the names of all installed services in sorted order.
// A missing or unreadable services directory degrades to an empty list.
func (r *DirRegistry) List() []string {
	entries, err := os.ReadDir(r.servicesDir)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Debug("failed to read services directory", "dir", r.servicesDir, "error", err)
		}
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	return names
}

// ServiceDir returns the directory for the named service.
func (r *DirRegistry) ServiceDir(name string) string {
	return filepath.Join(r.servicesDir, name)
}

// SocketPath returns the daemon socket path for the named service.
func (r *DirRegistry) SocketPath(name string) string {
	return filepath.Join(r.servicesDir, name, SocketFileName)
}

// PIDPath returns the pid file path for the named service.
func (r *DirRegistry) PIDPath(name string) string {
	return filepath.Join(r.servicesDir, name, PIDFileName)
}

// ManifestPath returns the manifest path for the named service.
func (r *DirRegistry) ManifestPath(name string) string {
	return filepath.Join(r.servicesDir, name, ManifestFileName)
}

// Reachable reports whether the named service currently exposes a socket.
func (r *DirRegistry) Reachable(name string) bool {
	_, err := os.Stat(r.SocketPath(name))
	return err == nil
}
