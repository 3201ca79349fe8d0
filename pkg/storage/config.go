package storage

import "time"

// Config for the storage backends
type Config struct {
	// Database config
	Driver      string        `mapstructure:"driver"` // "postgres" or "sqlite3"
	DatabaseURL string        `mapstructure:"database_url"`
	MaxConns    int           `mapstructure:"max_conns"`
	MinConns    int           `mapstructure:"min_conns"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
	MaxIdleTime time.Duration `mapstructure:"max_idle_time"`
	AutoMigrate bool          `mapstructure:"auto_migrate"`

	// Redis config
	RedisURL        string `mapstructure:"redis_url"`
	RedisPassword   string `mapstructure:"redis_password"`
	RedisDB         int    `mapstructure:"redis_db"`
	RedisMaxRetries int    `mapstructure:"redis_max_retries"`
	RedisPoolSize   int    `mapstructure:"redis_pool_size"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Driver:          string(DialectSQLite),
		DatabaseURL:     "file:billing.db?_foreign_keys=on",
		MaxConns:        20,
		MinConns:        2,
		Timeout:         10 * time.Second,
		MaxLifetime:     30 * time.Minute,
		MaxIdleTime:     5 * time.Minute,
		AutoMigrate:     true,
		RedisDB:         0,
		RedisMaxRetries: 3,
		RedisPoolSize:   10,
	}
}
