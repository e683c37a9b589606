package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "popis.sqlite3", cfg.DB)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, BlobDB, cfg.Blob)
	assert.Equal(t, "/blobs", cfg.BlobURL)
	assert.Empty(t, cfg.Log)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("POPIS_ADDR", "127.0.0.1:9000")
	t.Setenv("POPIS_STORE", "Redis")
	t.Setenv("POPIS_REDIS_ADDR", "cache:6379")
	t.Setenv("POPIS_BLOB", "dir")
	t.Setenv("POPIS_BLOB_DIR", "/var/lib/popis")
	t.Setenv("POPIS_BLOB_URL", "https://cdn.example.com/img/")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.Equal(t, BlobDir, cfg.Blob)
	assert.Equal(t, "/var/lib/popis", cfg.BlobDir)
	assert.Equal(t, "https://cdn.example.com/img", cfg.BlobURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "popis.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":7000\"\ndb: stock.db\nlog: popis.log\n"), 0o644))
	t.Setenv("POPIS_DB", "env.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "env.db", cfg.DB, "environment wins over the file")
	assert.Equal(t, "popis.log", cfg.Log)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNormalizeAfterOverride(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Store = "Redis"
	cfg.RedisAddr = "localhost:6379"
	cfg.Blob = " DIR "
	cfg.BlobDir = t.TempDir()
	cfg.BlobURL = "/img//"
	cfg.Normalize()

	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, BlobDir, cfg.Blob)
	assert.Equal(t, "/img", cfg.BlobURL)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown store", func(c *Config) { c.Store = "postgres" }},
		{"unknown blob", func(c *Config) { c.Blob = "s3" }},
		{"empty addr", func(c *Config) { c.Addr = "" }},
		{"empty db", func(c *Config) { c.DB = "" }},
		{"redis without addr", func(c *Config) { c.Store = StoreRedis; c.RedisAddr = "" }},
		{"dir without path", func(c *Config) { c.Blob = BlobDir; c.BlobDir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
