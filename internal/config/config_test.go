package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/developer-mesh/docring/internal/config"
	docringerrors "github.com/developer-mesh/docring/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "docring.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Ring.VirtualNodes)
	assert.True(t, cfg.Admin.Enabled)
	assert.Equal(t, ":8090", cfg.Admin.ListenAddress)
}

func TestLoad_ValidConfigFile(t *testing.T) {
	path := writeConfig(t, `
ring:
  virtual_nodes: 2
  servers:
    - id: 1
      cache_capacity: 10
    - id: 2
      cache_capacity: 20
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Ring.VirtualNodes)
	require.Len(t, cfg.Ring.Servers, 2)
	assert.Equal(t, uint32(1), cfg.Ring.Servers[0].ID)
}

func TestLoad_RejectsDuplicateServerID(t *testing.T) {
	path := writeConfig(t, `
ring:
  servers:
    - id: 1
      cache_capacity: 10
    - id: 1
      cache_capacity: 20
`)
	_, err := config.Load(path)
	require.Error(t, err)
	var classified *docringerrors.ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, docringerrors.ClassValidation, classified.Class)
}

func TestLoad_RejectsServerIDAboveReplicaOffset(t *testing.T) {
	path := writeConfig(t, `
ring:
  servers:
    - id: 100000
      cache_capacity: 10
`)
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsNonPositiveCacheCapacity(t *testing.T) {
	path := writeConfig(t, `
ring:
  servers:
    - id: 1
      cache_capacity: 0
`)
	_, err := config.Load(path)
	require.Error(t, err)
}
