package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
database:
  host: db
  port: 5432
  dbname: church
storage:
  bucket: church-media
redis:
  addr: localhost:6379
jwt:
  secret: s3cret
`

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "s3", cfg.Storage.Driver)
	assert.Equal(t, "slides", cfg.Storage.Buckets.Slides)
	assert.Equal(t, "gallery", cfg.Storage.Buckets.Gallery)
	assert.Equal(t, "leaders", cfg.Storage.Buckets.Leaders)
	assert.Equal(t, "events", cfg.Storage.Buckets.Events)
	assert.Equal(t, 3*time.Second, cfg.Stores.LoadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Stores.UploadTimeout)
	assert.Equal(t, int64(5*1024*1024), cfg.Stores.MaxImageBytes)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestParse_Durations(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML + `
stores:
  load_timeout: 1500ms
  reconnect_initial: 1s
  reconnect_max: 10s
`))
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, cfg.Stores.LoadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Stores.ReconnectMax)
}

func TestParse_ValidationErrors(t *testing.T) {
	_, err := Parse([]byte(`
storage:
  driver: ftp
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database host")
	assert.Contains(t, err.Error(), `unknown storage driver "ftp"`)
	assert.Contains(t, err.Error(), "redis addr")
	assert.Contains(t, err.Error(), "jwt secret")
}

func TestParse_APNsRequiresKeys(t *testing.T) {
	_, err := Parse([]byte(minimalYAML + `
apns:
  enabled: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apns")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user= password= dbname=church sslmode=disable", cfg.Database.DSN())
}
