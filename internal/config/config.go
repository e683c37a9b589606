// Package config loads runtime settings from defaults, an optional config
// file and POPIS_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Record store drivers.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Blob bucket drivers.
const (
	BlobDB  = "db"
	BlobDir = "dir"
)

// Config holds everything cmd/popis needs to wire the server.
type Config struct {
	Addr        string `mapstructure:"addr"`
	DB          string `mapstructure:"db"`
	Store       string `mapstructure:"store"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix"`
	Blob        string `mapstructure:"blob"`
	BlobDir     string `mapstructure:"blob_dir"`
	BlobURL     string `mapstructure:"blob_url"`
	Log         string `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("db", "popis.sqlite3")
	v.SetDefault("store", StoreSQLite)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_prefix", "popis:")
	v.SetDefault("blob", BlobDB)
	v.SetDefault("blob_dir", "blobs")
	v.SetDefault("blob_url", "/blobs")
	v.SetDefault("log", "")
}

// Load reads the configuration. If path is empty no file is read; otherwise
// the file must exist and its format is taken from the extension.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("POPIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Normalize folds driver names to lower case and drops trailing slashes from
// the blob URL. Call it again after changing fields outside Load.
func (c *Config) Normalize() {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	c.Blob = strings.ToLower(strings.TrimSpace(c.Blob))
	c.BlobURL = strings.TrimRight(c.BlobURL, "/")
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("listen address is empty")
	}
	switch c.Store {
	case StoreSQLite:
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("redis store selected but redis address is empty")
		}
	default:
		return fmt.Errorf("unknown record store %q (want %s or %s)", c.Store, StoreSQLite, StoreRedis)
	}
	switch c.Blob {
	case BlobDB:
	case BlobDir:
		if c.BlobDir == "" {
			return errors.New("directory bucket selected but blob directory is empty")
		}
	default:
		return fmt.Errorf("unknown blob bucket %q (want %s or %s)", c.Blob, BlobDB, BlobDir)
	}
	if c.DB == "" {
		return errors.New("database path is empty")
	}
	return nil
}
