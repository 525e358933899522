// Package config provides runtime configuration for the checkout service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" parse naturally.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds the knobs for the HTTP server, the stores and the retry bound.
type Config struct {
	HTTPAddr        string   `yaml:"http_addr"`
	MySQLDSN        string   `yaml:"mysql_dsn"`
	RedisAddr       string   `yaml:"redis_addr"`
	MaxAttempts     int      `yaml:"max_attempts"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
}

func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		MySQLDSN:        "root:root@tcp(localhost:3306)/checkout?parseTime=true",
		RedisAddr:       "",
		MaxAttempts:     3,
		ShutdownTimeout: Duration(5 * time.Second),
		MaxOpenConns:    50,
		MaxIdleConns:    25,
		ConnMaxLifetime: Duration(5 * time.Minute),
	}
}

// Load builds the config from defaults, an optional YAML file and finally
// environment overrides, in that order of precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.MySQLDSN = getenv("MYSQL_DSN", cfg.MySQLDSN)
	cfg.RedisAddr = getenv("REDIS_ADDR", cfg.RedisAddr)
	cfg.MaxAttempts = atoienv("MAX_ATTEMPTS", cfg.MaxAttempts)
	cfg.MaxOpenConns = atoienv("MYSQL_MAX_OPEN_CONNS", cfg.MaxOpenConns)
	cfg.MaxIdleConns = atoienv("MYSQL_MAX_IDLE_CONNS", cfg.MaxIdleConns)
	cfg.ConnMaxLifetime = durenv("MYSQL_CONN_MAX_LIFETIME", cfg.ConnMaxLifetime)
	cfg.ShutdownTimeout = durenv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	return cfg, nil
}

func durenv(key string, def Duration) Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return Duration(d)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
