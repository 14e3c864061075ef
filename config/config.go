// Package config loads fragment cache settings from YAML and opens the
// configured store.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.yaml.in/yaml/v3"

	"github.com/unkn0wn-root/fragcache"
	"github.com/unkn0wn-root/fragcache/store"
	"github.com/unkn0wn-root/fragcache/store/bigcache"
	"github.com/unkn0wn-root/fragcache/store/otter"
	"github.com/unkn0wn-root/fragcache/store/redis"
	"github.com/unkn0wn-root/fragcache/store/ristretto"
)

// Store drivers.
const (
	DriverOtter     = "otter"
	DriverBigcache  = "bigcache"
	DriverRistretto = "ristretto"
	DriverRedis     = "redis"
)

// Config is the top-level configuration.
type Config struct {
	KeyPrefix     string        `yaml:"key_prefix"`
	MaxKeyLen     int           `yaml:"max_key_len"`
	Disabled      bool          `yaml:"disabled"`
	DefaultExpire time.Duration `yaml:"default_expire"`
	Store         StoreConfig   `yaml:"store"`
}

// StoreConfig selects the backend store and carries its settings.
type StoreConfig struct {
	Driver    string          `yaml:"driver"` // otter, bigcache, ristretto, redis
	Otter     OtterConfig     `yaml:"otter"`
	Bigcache  BigcacheConfig  `yaml:"bigcache"`
	Ristretto RistrettoConfig `yaml:"ristretto"`
	Redis     RedisConfig     `yaml:"redis"`
}

type OtterConfig struct {
	MaxSize int           `yaml:"max_size"`
	MaxTTL  time.Duration `yaml:"max_ttl"`
}

type BigcacheConfig struct {
	LifeWindow         time.Duration `yaml:"life_window"`
	CleanWindow        time.Duration `yaml:"clean_window"`
	MaxEntriesInWindow int           `yaml:"max_entries_in_window"`
	MaxEntrySize       int           `yaml:"max_entry_size"`
	HardMaxCacheSizeMB int           `yaml:"hard_max_cache_size_mb"`
}

type RistrettoConfig struct {
	NumCounters int64 `yaml:"num_counters"`
	MaxCost     int64 `yaml:"max_cost"`
	BufferItems int64 `yaml:"buffer_items"`
	Metrics     bool  `yaml:"metrics"`
}

// RedisConfig holds connection settings. Addrs with more than one entry
// yields a cluster client.
type RedisConfig struct {
	Addrs     []string `yaml:"addrs"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	ScanCount int64    `yaml:"scan_count"`
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} patterns with environment variable values.
// Unset variables are left as-is.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := string(match[2 : len(match)-1])
		if val, ok := os.LookupEnv(name); ok {
			return []byte(val)
		}
		return match
	})
}

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	return &Config{
		KeyPrefix: "views/",
		MaxKeyLen: 250,
		Store: StoreConfig{
			Driver: DriverOtter,
			Otter:  OtterConfig{MaxSize: 10_000},
			Bigcache: BigcacheConfig{
				LifeWindow: 10 * time.Minute,
			},
			Ristretto: RistrettoConfig{
				NumCounters: 1e5,
				MaxCost:     64 << 20,
				BufferItems: 64,
			},
			Redis: RedisConfig{
				Addrs: []string{"localhost:6379"},
			},
		},
	}
}

// Load reads and parses a YAML config file, expanding environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(expandEnv(data), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings no store or manager would accept.
func (c *Config) Validate() error {
	if c.DefaultExpire < 0 {
		return fmt.Errorf("config: default_expire must not be negative, got %s", c.DefaultExpire)
	}
	if c.MaxKeyLen < 0 {
		return fmt.Errorf("config: max_key_len must not be negative, got %d", c.MaxKeyLen)
	}
	switch c.Store.Driver {
	case DriverOtter, DriverBigcache, DriverRistretto:
	case DriverRedis:
		if len(c.Store.Redis.Addrs) == 0 {
			return fmt.Errorf("config: redis driver needs at least one address")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// OpenStore builds the configured store. Redis clients are owned by the
// returned store and closed with it.
func (c *Config) OpenStore() (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	sc := c.Store
	switch sc.Driver {
	case DriverOtter:
		st, err = openOtter(sc.Otter)
	case DriverBigcache:
		st, err = openBigcache(sc.Bigcache)
	case DriverRistretto:
		st, err = openRistretto(sc.Ristretto)
	case DriverRedis:
		st, err = openRedis(sc.Redis)
	default:
		return nil, fmt.Errorf("config: unknown store driver %q", sc.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", sc.Driver, err)
	}
	return st, nil
}

func openOtter(oc OtterConfig) (store.Store, error) {
	s, err := otter.New(otter.Config{MaxSize: oc.MaxSize, MaxTTL: oc.MaxTTL})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openBigcache(bc BigcacheConfig) (store.Store, error) {
	s, err := bigcache.New(bigcache.Config{
		LifeWindow:         bc.LifeWindow,
		CleanWindow:        bc.CleanWindow,
		MaxEntriesInWindow: bc.MaxEntriesInWindow,
		MaxEntrySize:       bc.MaxEntrySize,
		HardMaxCacheSizeMB: bc.HardMaxCacheSizeMB,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openRistretto(rc RistrettoConfig) (store.Store, error) {
	s, err := ristretto.New(ristretto.Config{
		NumCounters: rc.NumCounters,
		MaxCost:     rc.MaxCost,
		BufferItems: rc.BufferItems,
		Metrics:     rc.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openRedis(rc RedisConfig) (store.Store, error) {
	client := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    rc.Addrs,
		Username: rc.Username,
		Password: rc.Password,
		DB:       rc.DB,
	})
	s, err := redis.New(redis.Config{Client: client, CloseClient: true, ScanCount: rc.ScanCount})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

// Options opens the configured store and returns manager options built from
// c. Callers fill in Codec, Logger and Hooks before passing them to New.
func Options[D any](c *Config) (fragcache.Options[D], error) {
	st, err := c.OpenStore()
	if err != nil {
		return fragcache.Options[D]{}, err
	}
	return fragcache.Options[D]{
		Store:         st,
		KeyPrefix:     c.KeyPrefix,
		MaxKeyLen:     c.MaxKeyLen,
		Disabled:      c.Disabled,
		DefaultExpire: c.DefaultExpire,
	}, nil
}
