package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultSessionSecret = "default-secret-key-change-me"

type Config struct {
	Server  ServerConfig
	Gin     GinConfig
	DB      DBConfig
	Session SessionConfig
	Redis   RedisConfig
	Log     LogConfig
	Metrics MetricsConfig
}

type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type GinConfig struct {
	Mode string
}

type DBConfig struct {
	Driver        string
	Host          string
	Port          string
	User          string
	Password      string
	Name          string
	DSN           string
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

type SessionConfig struct {
	Store  string
	Secret string
	MaxAge int `mapstructure:"max_age"`
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	PoolSize int `mapstructure:"pool_size"`
}

type LogConfig struct {
	Level      string
	Output     string
	Path       string
	Filename   string
	MaxSize    int `mapstructure:"max_size"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAge     int `mapstructure:"max_age"`
}

type MetricsConfig struct {
	Enabled bool
}

// Load reads configuration from defaults, an optional file and the
// environment, in increasing order of precedence. Nested keys map to
// environment variables with underscores, e.g. db.host -> DB_HOST.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("gin.mode", "debug")

	v.SetDefault("db.driver", "mysql")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "3306")
	v.SetDefault("db.user", "taskuser")
	v.SetDefault("db.password", "taskpassword")
	v.SetDefault("db.name", "project_management")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.slow_threshold", 200*time.Millisecond)

	v.SetDefault("session.store", "redis")
	v.SetDefault("session.secret", defaultSessionSecret)
	v.SetDefault("session.max_age", 86400*7)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.path", "./logs")
	v.SetDefault("log.filename", "project-api.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.max_age", 7)

	v.SetDefault("metrics.enabled", true)
}

// Validate rejects unsupported drivers and stores, and a default session
// secret outside debug/test mode.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported db driver %q", c.DB.Driver)
	}

	switch c.Session.Store {
	case "redis", "memory", "cookie":
	default:
		return fmt.Errorf("unsupported session store %q", c.Session.Store)
	}

	if c.Session.MaxAge <= 0 {
		return fmt.Errorf("session max age must be positive")
	}

	if c.IsProduction() && c.Session.Secret == defaultSessionSecret {
		return fmt.Errorf("session secret must be set in release mode")
	}

	return nil
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.Gin.Mode == "release"
}

// RedisAddr returns host:port of the session redis.
func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}
