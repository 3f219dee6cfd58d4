package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverCSV    = "csv"
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	TokenTTL         time.Duration `env:"TOKEN_TTL,         default=12h"`
	AutosaveInterval time.Duration `env:"AUTOSAVE_INTERVAL, default=30s"`

	Store StoreConfig
	Mongo MongoConfig
	Redis RedisConfig
}

type StoreConfig struct {
	Driver     string `env:"STORE_DRIVER, default=csv"`
	DataDir    string `env:"DATA_DIR,     default=./data"`
	SQLitePath string `env:"SQLITE_PATH,  default=./data/taskpilot.db"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=taskpilot"`
}

// RedisConfig configures the session directory. An empty Addr keeps
// sessions in process memory.
type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

// IsDevelopment reports whether ENV selects the development profile.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from l. Tests pass an envconfig.MapLookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverCSV, DriverSQLite, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("config: STORE_DRIVER must be one of csv, sqlite, mongo, memory; got %q", c.Store.Driver)
	}
	if c.AutosaveInterval < 0 {
		return fmt.Errorf("config: AUTOSAVE_INTERVAL must not be negative")
	}
	return nil
}
