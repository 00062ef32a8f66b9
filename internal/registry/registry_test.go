package registry_test

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/fgp-tools/fgp/internal/registry"
)

func newRegistry(t *testing.T) (*registry.DirRegistry, string) {
	t.Helper()

	home := t.TempDir()
	reg, err := registry.NewDirRegistry(hclog.NewNullLogger(), home)
	require.NoError(t, err)

	return reg, home
}

func installService(t *testing.T, home string, name string) string {
	t.Helper()

	dir := filepath.Join(home, registry.ServicesDirName, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	return dir
}

func TestNewDirRegistry_Validation(t *testing.T) {
	t.Parallel()

	_, err := registry.NewDirRegistry(nil, t.TempDir())
	require.ErrorContains(t, err, "logger cannot be nil")

	_, err = registry.NewDirRegistry(hclog.NewNullLogger(), "")
	require.ErrorContains(t, err, "home directory cannot be empty")
}

func TestList(t *testing.T) {
	t.Parallel()

	reg, home := newRegistry(t)

	installService(t, home, "gmail")
	installService(t, home, "calendar")

	// Stray files in the services directory are not services.
	require.NoError(t, os.WriteFile(
		filepath.Join(home, registry.ServicesDirName, "notes.txt"),
		[]byte("not a service"),
		0o644,
	))

	require.Equal(t, []string{"calendar", "gmail"}, reg.List())
}

func TestList_MissingServicesDir(t *testing.T) {
	t.Parallel()

	reg, _ := newRegistry(t)
	require.Empty(t, reg.List())
}

func TestPaths(t *testing.T) {
	t.Parallel()

	reg, home := newRegistry(t)

	servicesDir := filepath.Join(home, registry.ServicesDirName)
	require.Equal(t, servicesDir, reg.ServicesDir())
	require.Equal(t, filepath.Join(servicesDir, "gmail"), reg.ServiceDir("gmail"))
	require.Equal(t, filepath.Join(servicesDir, "gmail", registry.SocketFileName), reg.SocketPath("gmail"))
	require.Equal(t, filepath.Join(servicesDir, "gmail", registry.PIDFileName), reg.PIDPath("gmail"))
	require.Equal(t, filepath.Join(servicesDir, "gmail", registry.ManifestFileName), reg.ManifestPath("gmail"))
}

func TestReachable(t *testing.T) {
	t.Parallel()

	reg, home := newRegistry(t)
	installService(t, home, "gmail")

	require.False(t, reg.Reachable("gmail"))

	listener, err := net.Listen("unix", reg.SocketPath("gmail"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = listener.Close()
	})

	require.True(t, reg.Reachable("gmail"))
	require.False(t, reg.Reachable("unknown"))
}
