package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Tyrowin/threadchat/internal/server"
	"github.com/Tyrowin/threadchat/internal/store"
)

// Config keys. With AutomaticEnv each key is also read from the upper-cased
// environment variable, e.g. SERVER_PORT.
const (
	cfgKeyPort            = "server_port"
	cfgKeyAllowedOrigins  = "allowed_origins"
	cfgKeyMaxMessageSize  = "max_message_size"
	cfgKeySendBuffer      = "send_buffer_size"
	cfgKeyHistoryPage     = "history_page_size"
	cfgKeyRateBurst       = "rate_limit_burst"
	cfgKeyRateInterval    = "rate_limit_refill_interval"
	cfgKeyDatabasePath    = "database_path"
	cfgKeyLogLevel        = "log_level"
	cfgKeyShutdownTimeout = "shutdown_timeout"
	cfgKeySeed            = "seed"
)

// loadConfig merges defaults, an optional .env file, an optional config
// file, the environment and command flags, in increasing precedence.
func loadConfig(cmd *cobra.Command) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	defaults := server.NewConfig()
	v := viper.New()
	v.SetDefault(cfgKeyPort, defaults.Port)
	v.SetDefault(cfgKeyAllowedOrigins, defaults.AllowedOrigins)
	v.SetDefault(cfgKeyMaxMessageSize, defaults.MaxMessageSize)
	v.SetDefault(cfgKeySendBuffer, defaults.SendBufferSize)
	v.SetDefault(cfgKeyHistoryPage, defaults.HistoryPageSize)
	v.SetDefault(cfgKeyRateBurst, defaults.RateLimit.Burst)
	v.SetDefault(cfgKeyRateInterval, int(defaults.RateLimit.RefillInterval/time.Second))
	v.SetDefault(cfgKeyDatabasePath, "chat.db")
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetDefault(cfgKeyShutdownTimeout, 10)
	v.SetDefault(cfgKeySeed, false)

	if flagConfigFile != "" {
		v.SetConfigFile(flagConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if flagConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.AutomaticEnv()

	flags := map[string]string{
		cfgKeyDatabasePath: "db",
		cfgKeyLogLevel:     "log-level",
		cfgKeyPort:         "port",
		cfgKeySeed:         "seed",
	}
	for key, name := range flags {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	return v, nil
}

// serverConfig extracts the server settings. Origins may be a YAML list or a
// comma separated string.
func serverConfig(v *viper.Viper) server.Config {
	origins := v.GetStringSlice(cfgKeyAllowedOrigins)
	if raw, ok := v.Get(cfgKeyAllowedOrigins).(string); ok {
		origins = server.ParseOrigins(raw)
	}

	return server.Config{
		Port:            v.GetString(cfgKeyPort),
		AllowedOrigins:  origins,
		MaxMessageSize:  v.GetInt64(cfgKeyMaxMessageSize),
		SendBufferSize:  v.GetInt(cfgKeySendBuffer),
		HistoryPageSize: v.GetInt(cfgKeyHistoryPage),
		RateLimit: server.RateLimitConfig{
			Burst:          v.GetInt(cfgKeyRateBurst),
			RefillInterval: time.Duration(v.GetInt(cfgKeyRateInterval)) * time.Second,
		},
	}.Sanitize()
}

func storeConfig(v *viper.Viper) store.Config {
	return store.Config{Path: v.GetString(cfgKeyDatabasePath)}
}
