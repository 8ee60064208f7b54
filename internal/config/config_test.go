package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cheeseshop/internal/blob"
	"cheeseshop/internal/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cheeseshop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":5555", cfg.HTTP.Addr)
	assert.Equal(t, core.StorageSQLite, cfg.StorageOptions().Driver)
	assert.Equal(t, blob.DriverFilesystem, cfg.BlobConfig().Driver)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
http:
  addr: "127.0.0.1:8080"
  read_timeout: 3s
  cors_origins: ["https://shop.example"]
storage:
  driver: postgres
  postgres_dsn: postgres://u:p@db/cheese
blob:
  driver: s3
  s3:
    bucket: exports
    endpoint: http://minio:9000
    path_style: true
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTP.Addr)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTP.WriteTimeout)
	assert.Equal(t, []string{"https://shop.example"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, core.StorageOptions{Driver: core.StoragePostgres, SQLitePath: "cheeseshop.db", PostgresDSN: "postgres://u:p@db/cheese"}, cfg.StorageOptions())
	bc := cfg.BlobConfig()
	assert.Equal(t, blob.DriverS3, bc.Driver)
	assert.Equal(t, "exports", bc.S3.Bucket)
	assert.True(t, bc.S3.PathStyle)
	assert.True(t, cfg.LoggerConfig(false).Level == "debug")
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "storage:\n  driver: sqlite\n  sqlite_path: file.db\n")
	t.Setenv("CHEESESHOP_STORAGE_DRIVER", "memory")
	t.Setenv("CHEESESHOP_HTTP_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("CHEESESHOP_HTTP_WRITE_TIMEOUT", "1m")
	t.Setenv("CHEESESHOP_BLOB_S3_PATH_STYLE", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "file.db", cfg.Storage.SQLitePath)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, time.Minute, cfg.HTTP.WriteTimeout)
	assert.True(t, cfg.Blob.S3.PathStyle)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, IsKind(err, KindNotFound), "got %v", err)

	_, err = Load(writeConfig(t, "http: [unclosed"))
	assert.True(t, IsKind(err, KindInvalidConfig), "got %v", err)

	_, err = Load(writeConfig(t, "storage:\n  driver: oracle\nblob:\n  driver: ftp\n"))
	require.True(t, IsKind(err, KindInvalidConfig))
	assert.Contains(t, err.Error(), `unknown storage.driver "oracle"`)
	assert.Contains(t, err.Error(), `unknown blob.driver "ftp"`)

	t.Setenv("CHEESESHOP_HTTP_READ_TIMEOUT", "soon")
	_, err = Load("")
	assert.True(t, IsKind(err, KindInvalidConfig))
}

func TestValidateDriverRequirements(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = "postgres"
	cfg.Blob.Driver = "s3"
	cfg.Log.Level = "loud"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres_dsn")
	assert.Contains(t, err.Error(), "blob.s3.bucket")
	assert.Contains(t, err.Error(), "loud")
}
