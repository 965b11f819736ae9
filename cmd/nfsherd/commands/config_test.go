package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8520", cfg.Listen)
	assert.False(t, cfg.Leader)
	assert.Equal(t, 30*time.Second, cfg.RequeueInterval())
	assert.Equal(t, 180*time.Second, cfg.ExecTimeout())
	assert.Equal(t, "nfsherd", cfg.Redis.KeyPrefix)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nfsherd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
leader: true
requeue_seconds: 5
roster:
  - h1
  - h2
cluster:
  api_url: "http://10.0.0.1:7443/1.0"
  user: admin
  password: secret
redis:
  addr: "10.0.0.2:6379"
  key_prefix: prod
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.True(t, cfg.Leader)
	assert.Equal(t, 5*time.Second, cfg.RequeueInterval())
	assert.Equal(t, []string{"h1", "h2"}, cfg.Roster)
	assert.Equal(t, "http://10.0.0.1:7443/1.0", cfg.Cluster.ApiUrl)
	assert.Equal(t, "admin", cfg.Cluster.User)
	assert.Equal(t, "10.0.0.2:6379", cfg.Redis.Addr)
	assert.Equal(t, "prod", cfg.Redis.KeyPrefix)
	// Untouched keys keep their defaults.
	assert.Equal(t, 180, cfg.ExecTimeoutSeconds)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/does/not/exist.yaml")
	require.Error(t, err)
}
