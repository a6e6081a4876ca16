package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ryhazerus/tick"
)

// Config is the daemon configuration. Values come from flags, TICK_*
// environment variables and an optional config file, in that order of
// precedence.
type Config struct {
	Addr          string `mapstructure:"addr"`
	Path          string `mapstructure:"path"`
	Key           string `mapstructure:"key"`
	Store         string `mapstructure:"store"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RestartPolicy string `mapstructure:"restart_policy"`
	LogLevel      string `mapstructure:"log_level"`
	Metrics       bool   `mapstructure:"metrics"`
}

func defaultConfig() Config {
	return Config{
		Addr:          ":9998",
		Path:          tick.DefaultPath,
		Key:           tick.DefaultKey,
		Store:         "memory",
		SQLitePath:    "tick.db",
		RedisAddr:     "localhost:6379",
		RestartPolicy: tick.ResetOnRestart.String(),
		LogLevel:      "info",
		Metrics:       true,
	}
}

// bindFlags registers every config key as a flag. Flag names use dashes,
// config keys use underscores.
func bindFlags(fs *pflag.FlagSet) {
	d := defaultConfig()
	fs.String("addr", d.Addr, "listen address")
	fs.String("path", d.Path, "HTTP path of the counter endpoint")
	fs.String("key", d.Key, "store key of the counter")
	fs.String("store", d.Store, "store backend: memory, sqlite, redis or tiered")
	fs.String("sqlite-path", d.SQLitePath, "SQLite database file (sqlite and tiered stores)")
	fs.String("redis-addr", d.RedisAddr, "Redis address (redis store)")
	fs.String("restart-policy", d.RestartPolicy, "first count after a restart: reset or resume")
	fs.String("log-level", d.LogLevel, "log level: debug, info, warn or error")
	fs.Bool("metrics", d.Metrics, "serve Prometheus metrics on /metrics")
}

func loadConfig(fs *pflag.FlagSet, cfgFile string) (Config, error) {
	v := viper.New()

	d := defaultConfig()
	v.SetDefault("addr", d.Addr)
	v.SetDefault("path", d.Path)
	v.SetDefault("key", d.Key)
	v.SetDefault("store", d.Store)
	v.SetDefault("sqlite_path", d.SQLitePath)
	v.SetDefault("redis_addr", d.RedisAddr)
	v.SetDefault("restart_policy", d.RestartPolicy)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("metrics", d.Metrics)

	v.SetEnvPrefix("tick")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return Config{}, fmt.Errorf("bind flags: %w", bindErr)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Store {
	case "memory", "sqlite", "redis", "tiered":
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if _, err := tick.ParseRestartPolicy(c.RestartPolicy); err != nil {
		return err
	}
	if c.Key == "" {
		return fmt.Errorf("key must not be empty")
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path %q must start with /", c.Path)
	}
	return nil
}
