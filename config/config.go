// Package config holds construction-time configuration for the
// connectivity engine, read once via viper.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Buffering selects which GutterSystem backend the facade constructs.
type Buffering string

const (
	// BufferingStandalone selects the in-memory sharded buffer.
	BufferingStandalone Buffering = "standalone"
	// BufferingTree selects the disk-backed buffering tree.
	BufferingTree Buffering = "tree"
)

// Config wraps a viper instance with typed getters over defaulted keys.
type Config struct {
	v *viper.Viper
}

// New returns a Config populated with defaults.
func New() *Config {
	v := viper.New()

	v.SetDefault("buffering_system", string(BufferingStandalone))
	v.SetDefault("snapshot_in_memory", true)
	v.SetDefault("disk_directory", "./graphcc-data")

	v.SetDefault("sketch.levels_extra", 5)
	v.SetDefault("workers.count", runtime.NumCPU())
	v.SetDefault("gutter.shard_count", runtime.NumCPU())
	v.SetDefault("gutter.lru_cache_size", 4096)

	v.SetDefault("logging.level", "info")

	return &Config{v: v}
}

// Set allows dynamic configuration changes, overriding a single key
// outside a config file — useful for tests and programmatic callers.
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// LoadFromFile merges settings from a config file (YAML, JSON, TOML — as
// supported by viper) on top of the defaults.
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	if err := c.v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return nil
}

// Buffering returns the selected GutterSystem backend.
func (c *Config) Buffering() Buffering { return Buffering(c.v.GetString("buffering_system")) }

// SnapshotInMemory reports whether resumable queries snapshot in RAM
// rather than to the on-disk backup file.
func (c *Config) SnapshotInMemory() bool { return c.v.GetBool("snapshot_in_memory") }

// DiskDirectory is the location for the gutter tree and the backup file.
func (c *Config) DiskDirectory() string { return c.v.GetString("disk_directory") }

// SketchLevelsExtra is the constant c in K = ceil(log2 N) + c.
func (c *Config) SketchLevelsExtra() int { return c.v.GetInt("sketch.levels_extra") }

// WorkerCount is the fixed worker pool size W.
func (c *Config) WorkerCount() int { return c.v.GetInt("workers.count") }

// GutterShardCount is the number of shards the in-memory gutter system
// partitions vertices across.
func (c *Config) GutterShardCount() int { return c.v.GetInt("gutter.shard_count") }

// GutterLRUCacheSize bounds the number of hot per-vertex buffers the
// disk-backed gutter tree keeps resident before it must read from disk.
func (c *Config) GutterLRUCacheSize() int { return c.v.GetInt("gutter.lru_cache_size") }

// CreateLogger builds a zerolog.Logger from the configured level.
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.v.GetString("logging.level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("component", "graphcc").Logger()
}

// NumLevels computes K = ceil(log2(n)) + c for n vertices.
func (c *Config) NumLevels(n uint64) int {
	return NumLevels(n, c.SketchLevelsExtra())
}

// NumLevels computes K = ceil(log2(n)) + extra directly, without a
// Config value — used by graph.LoadBinary, which must derive K from a
// header read off disk before any Config exists. For n <= 1 the
// ceil(log2(n)) term counts as 1.
func NumLevels(n uint64, extra int) int {
	bits := 0
	for v := n - 1; v > 0; v >>= 1 {
		bits++
	}
	if n <= 1 {
		bits = 1
	}
	return bits + extra
}

// defaultTimeout is a default bound for a single gutter batch fetch.
// Neither gutter backend reads it: their NextBatch calls are bounded
// only by the ctx they are given.
const defaultTimeout = 30 * time.Second

// DefaultTimeout returns the default NextBatch blocking timeout.
func DefaultTimeout() time.Duration { return defaultTimeout }
