package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load builds the configuration from the defaults, the TOML file at path (if
// path is non-empty) and AUCTIOND_* environment variables, in that order.
// A .env file in the working directory is read when present. Malformed
// environment values are reported together; the result is otherwise not
// validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	_ = godotenv.Load()

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	setStr(&cfg.Server.Addr, "AUCTIOND_SERVER_ADDR")
	collect(setDuration(&cfg.Server.RequestTimeout, "AUCTIOND_SERVER_REQUEST_TIMEOUT"))
	setStr(&cfg.Log.Level, "AUCTIOND_LOG_LEVEL")

	collect(setDuration(&cfg.Bidding.AdmissionTimeout, "AUCTIOND_BIDDING_ADMISSION_TIMEOUT"))
	setStr(&cfg.Bidding.DefaultMinIncrement, "AUCTIOND_BIDDING_DEFAULT_MIN_INCREMENT")
	collect(setDuration(&cfg.Bidding.StoreTimeout, "AUCTIOND_BIDDING_STORE_TIMEOUT"))

	collect(setDuration(&cfg.Scheduler.Interval, "AUCTIOND_SCHEDULER_INTERVAL"))

	setStr(&cfg.Store.Driver, "AUCTIOND_STORE_DRIVER")
	setStr(&cfg.Store.SQLitePath, "AUCTIOND_STORE_SQLITE_PATH")

	collect(setInt(&cfg.Feed.BufferSize, "AUCTIOND_FEED_BUFFER_SIZE"))

	setStr(&cfg.Redis.Addr, "AUCTIOND_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "AUCTIOND_REDIS_PASSWORD")
	collect(setInt(&cfg.Redis.DB, "AUCTIOND_REDIS_DB"))
	collect(setBool(&cfg.Redis.TLSEnabled, "AUCTIOND_REDIS_TLS_ENABLED"))
	setStr(&cfg.Redis.ChannelPrefix, "AUCTIOND_REDIS_CHANNEL_PREFIX")

	// PORT is honoured for platforms that only inject a port number
	if p := os.Getenv("PORT"); p != "" && os.Getenv("AUCTIOND_SERVER_ADDR") == "" {
		if _, err := strconv.Atoi(p); err != nil {
			errs = append(errs, fmt.Errorf("PORT %q is not a port number", p))
		} else {
			cfg.Server.Addr = ":" + p
		}
	}
	return errors.Join(errs...)
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s=%q is not an integer", key, v)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s=%q is not a boolean", key, v)
	}
	*dst = b
	return nil
}

func setDuration(dst *duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s=%q is not a duration (e.g. 500ms, 5s)", key, v)
	}
	dst.Duration = d
	return nil
}
