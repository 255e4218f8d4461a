package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// duration lets TOML files carry values such as "250ms" or "1m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the full runtime configuration of the auction server.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
	Bidding   BiddingConfig   `toml:"bidding"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Store     StoreConfig     `toml:"store"`
	Feed      FeedConfig      `toml:"feed"`
	Redis     RedisConfig     `toml:"redis"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr"`
	RequestTimeout duration `toml:"request_timeout"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type BiddingConfig struct {
	AdmissionTimeout    duration `toml:"admission_timeout"`
	DefaultMinIncrement string   `toml:"default_min_increment"`
	StoreTimeout        duration `toml:"store_timeout"`
}

// MinIncrement parses DefaultMinIncrement. Validate has already rejected
// malformed values.
func (b BiddingConfig) MinIncrement() decimal.Decimal {
	d, err := decimal.NewFromString(b.DefaultMinIncrement)
	if err != nil {
		return decimal.NewFromInt(1)
	}
	return d
}

type SchedulerConfig struct {
	Interval duration `toml:"interval"`
}

// StoreConfig selects the durable store. Driver is "memory" or "sqlite".
type StoreConfig struct {
	Driver     string `toml:"driver"`
	SQLitePath string `toml:"sqlite_path"`
}

type FeedConfig struct {
	BufferSize int `toml:"buffer_size"`
}

// RedisConfig enables fan-out of events over redis pub/sub when Addr is set.
type RedisConfig struct {
	Addr          string `toml:"addr"`
	Password      string `toml:"password"`
	DB            int    `toml:"db"`
	TLSEnabled    bool   `toml:"tls_enabled"`
	ChannelPrefix string `toml:"channel_prefix"`
}

// Defaults returns a Config usable without any file or environment.
func Defaults() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080", RequestTimeout: duration{10 * time.Second}},
		Log:    LogConfig{Level: "info"},
		Bidding: BiddingConfig{
			AdmissionTimeout:    duration{2 * time.Second},
			DefaultMinIncrement: "1",
			StoreTimeout:        duration{5 * time.Second},
		},
		Scheduler: SchedulerConfig{Interval: duration{time.Second}},
		Store:     StoreConfig{Driver: "memory", SQLitePath: "data/auctions.db"},
		Feed:      FeedConfig{BufferSize: 256},
		Redis:     RedisConfig{ChannelPrefix: "auction:events:"},
	}
}

// Validate reports every problem in c at once.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.RequestTimeout.Duration < 0 {
		errs = append(errs, errors.New("server.request_timeout must not be negative"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if c.Bidding.AdmissionTimeout.Duration < 0 {
		errs = append(errs, errors.New("bidding.admission_timeout must not be negative"))
	}
	if c.Bidding.StoreTimeout.Duration <= 0 {
		errs = append(errs, errors.New("bidding.store_timeout must be positive"))
	}
	if d, err := decimal.NewFromString(c.Bidding.DefaultMinIncrement); err != nil || !d.IsPositive() {
		errs = append(errs, fmt.Errorf("bidding.default_min_increment %q must be a positive number", c.Bidding.DefaultMinIncrement))
	}
	if c.Scheduler.Interval.Duration <= 0 {
		errs = append(errs, errors.New("scheduler.interval must be positive"))
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of memory, sqlite", c.Store.Driver))
	}
	if c.Feed.BufferSize <= 0 {
		errs = append(errs, errors.New("feed.buffer_size must be positive"))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, errors.New("redis.db must not be negative"))
	}

	return errors.Join(errs...)
}
