// Package config loads and validates session configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem used for config discovery; replaceable in tests.
var AppFs = afero.NewOsFs()

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	// MaxSize is the maximum number of pooled connections.
	MaxSize int32
	// MinSize is the number of connections kept warm.
	MinSize int32
	// AcquireTimeout bounds how long a caller waits for a connection.
	AcquireTimeout time.Duration
}

// Config holds everything the session layer needs to reach a server.
// Beyond the RowsAsRecords display flag it is passed through to the
// transport unread.
type Config struct {
	Server   string
	Port     int
	User     string
	Password string
	Database string

	// ConnectTimeout bounds the transport handshake.
	ConnectTimeout time.Duration
	// RequestTimeout is the default per-request timeout (0 = none).
	RequestTimeout time.Duration

	Pool PoolConfig

	// RowsAsRecords selects name-keyed records over positional row arrays.
	// The choice applies connection-wide and is fixed per result set.
	RowsAsRecords bool

	// Debug enables debug logging.
	Debug bool
}

// Default returns a configuration with usable defaults.
func Default() *Config {
	return &Config{
		Port:           1433,
		ConnectTimeout: 15 * time.Second,
		RequestTimeout: 15 * time.Second,
		Pool: PoolConfig{
			MaxSize:        10,
			MinSize:        0,
			AcquireTimeout: 30 * time.Second,
		},
	}
}

// Load loads configuration from config file, environment, and .env files.
func Load() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName(".mssqlx")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "mssqlx"))

	v.SetEnvPrefix("MSSQLX")
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("port", def.Port)
	v.SetDefault("connect_timeout", def.ConnectTimeout)
	v.SetDefault("request_timeout", def.RequestTimeout)
	v.SetDefault("pool.max_size", def.Pool.MaxSize)
	v.SetDefault("pool.min_size", def.Pool.MinSize)
	v.SetDefault("pool.acquire_timeout", def.Pool.AcquireTimeout)
	v.SetDefault("rows_as_records", false)
	v.SetDefault("debug", false)

	// Config file is optional.
	_ = v.ReadInConfig()

	// Load .env if present, then .env.local with higher priority.
	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}

	cfg := &Config{
		Server:         v.GetString("server"),
		Port:           v.GetInt("port"),
		User:           v.GetString("user"),
		Password:       v.GetString("password"),
		Database:       v.GetString("database"),
		ConnectTimeout: v.GetDuration("connect_timeout"),
		RequestTimeout: v.GetDuration("request_timeout"),
		Pool: PoolConfig{
			MaxSize:        v.GetInt32("pool.max_size"),
			MinSize:        v.GetInt32("pool.min_size"),
			AcquireTimeout: v.GetDuration("pool.acquire_timeout"),
		},
		RowsAsRecords: v.GetBool("rows_as_records"),
		Debug:         v.GetBool("debug"),
	}

	// DATABASE_URL-style overrides from the environment win over the file.
	if s := os.Getenv("MSSQLX_SERVER"); s != "" {
		cfg.Server = s
	}
	if p := os.Getenv("MSSQLX_PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			cfg.Port = n
		}
	}

	return cfg, nil
}

// Validate checks that the configuration can produce a connection.
func (c *Config) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("config: server is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.Pool.MaxSize <= 0 {
		return fmt.Errorf("config: pool max_size must be positive")
	}
	if c.Pool.MinSize < 0 || c.Pool.MinSize > c.Pool.MaxSize {
		return fmt.Errorf("config: pool min_size must be within [0, max_size]")
	}
	return nil
}

// Addr returns the host:port the transport should dial.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server, c.Port)
}
