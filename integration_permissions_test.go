package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/fgp-tools/fgp/internal/fgpc"
	"github.com/fgp-tools/fgp/internal/lifecycle"
	"github.com/fgp-tools/fgp/internal/perms"
	"github.com/fgp-tools/fgp/internal/registry"
)

// TestDaemonFilePermissions verifies that files created when launching a
// daemon carry the expected permissions.
func TestDaemonFilePermissions(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	reg, err := registry.NewDirRegistry(hclog.NewNullLogger(), home)
	require.NoError(t, err)

	mgr, err := lifecycle.NewManager(hclog.NewNullLogger(), reg, fgpc.NewDialer(
		fgpc.WithDialTimeout(100*time.Millisecond),
	))
	require.NoError(t, err)

	serviceDir := reg.ServiceDir("gmail")
	require.NoError(t, os.MkdirAll(serviceDir, perms.RegularDir))
	require.NoError(t, os.WriteFile(
		reg.ManifestPath("gmail"),
		[]byte("command = \"sleep\"\nargs = [\"5\"]\n"),
		perms.RegularFile,
	))

	require.NoError(t, mgr.Start("gmail"))
	t.Cleanup(func() {
		_ = mgr.Stop("gmail")
	})

	for _, path := range []string{
		reg.PIDPath("gmail"),
		filepath.Join(serviceDir, "daemon.log"),
	} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.False(t, info.IsDir())
		require.Equal(t, perms.RegularFile, info.Mode().Perm(),
			"daemon runtime files should be world-readable but owner-writable (0644)")
	}
}
