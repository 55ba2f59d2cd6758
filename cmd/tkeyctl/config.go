package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/mchack-dev/go-tkey/tkey"
)

// Config is the tool configuration, merged from defaults, an optional
// config file, and command-line flags (flags win).
type Config struct {
	Port       string
	Speed      int
	Timeout    time.Duration
	MaxAppSize int

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
}

// loadConfig reads the configuration. With an empty path the file is looked
// up in ~/.config/tkeyctl and the working directory, and is optional.
func loadConfig(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("port", "")
	v.SetDefault("speed", tkey.DefaultSpeed)
	v.SetDefault("timeout", tkey.DefaultTimeout)
	v.SetDefault("max_app_size", tkey.DefaultMaxAppSize)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.config/tkeyctl")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return Config{
		Port:          v.GetString("port"),
		Speed:         v.GetInt("speed"),
		Timeout:       v.GetDuration("timeout"),
		MaxAppSize:    v.GetInt("max_app_size"),
		LogLevel:      v.GetString("log.level"),
		LogFile:       v.GetString("log.file"),
		LogMaxSizeMB:  v.GetInt("log.max_size_mb"),
		LogMaxBackups: v.GetInt("log.max_backups"),
	}, nil
}
