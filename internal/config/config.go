// Package config loads queue settings from YAML files.
//
// Example file:
//
//	sync_writes: true
//	sync_interval: 1s
//	compression: snappy
//	min_compression_size: 1K
//	max_record_size: 10M
//	compact_threshold: 4M
//	min_free_disk_space: 0
//	log_level: info
//
// Sizes are byte counts, either plain integers or with a K, M, G or T suffix.
// Omitted keys keep their defaults; unknown keys are rejected.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"gopkg.in/yaml.v2"

	"github.com/vnykmshr/typedq/internal/format"
	"github.com/vnykmshr/typedq/internal/logging"
	"github.com/vnykmshr/typedq/internal/queue"
)

// Config holds queue and logging settings.
type Config struct {
	SyncWrites         bool
	SyncInterval       time.Duration
	Compression        format.CompressionType
	MinCompressionSize int
	MaxRecordSize      int64
	CompactThreshold   uint64
	MinFreeDiskSpace   int64
	LogLevel           logging.Level
}

// Default returns the configuration matching queue.DefaultOptions.
func Default() *Config {
	o := queue.DefaultOptions()
	return &Config{
		SyncWrites:         o.SyncWrites,
		SyncInterval:       o.SyncInterval,
		Compression:        o.Compression,
		MinCompressionSize: o.MinCompressionSize,
		MaxRecordSize:      o.MaxRecordSize,
		CompactThreshold:   o.CompactThreshold,
		MinFreeDiskSpace:   o.MinFreeDiskSpace,
		LogLevel:           logging.LevelInfo,
	}
}

// Parse overlays the YAML document in data onto c.
func (c *Config) Parse(data []byte) error {
	var aux struct {
		SyncWrites         *bool  `yaml:"sync_writes"`
		SyncInterval       string `yaml:"sync_interval"`
		Compression        string `yaml:"compression"`
		MinCompressionSize string `yaml:"min_compression_size"`
		MaxRecordSize      string `yaml:"max_record_size"`
		CompactThreshold   string `yaml:"compact_threshold"`
		MinFreeDiskSpace   string `yaml:"min_free_disk_space"`
		LogLevel           string `yaml:"log_level"`
	}

	if err := yaml.UnmarshalStrict(data, &aux); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if aux.SyncWrites != nil {
		c.SyncWrites = *aux.SyncWrites
	}

	if aux.SyncInterval != "" {
		d, err := time.ParseDuration(aux.SyncInterval)
		if err != nil {
			return fmt.Errorf("invalid sync_interval %q: %w", aux.SyncInterval, err)
		}
		c.SyncInterval = d
	}

	if aux.Compression != "" {
		ct, err := format.ParseCompression(aux.Compression)
		if err != nil {
			return fmt.Errorf("invalid compression: %w", err)
		}
		c.Compression = ct
	}

	sizes := []struct {
		key   string
		value string
		max   uint64
		set   func(n uint64)
	}{
		{"min_compression_size", aux.MinCompressionSize, math.MaxInt, func(n uint64) { c.MinCompressionSize = int(n) }}, //nolint:gosec // G115: bounded by max
		{"max_record_size", aux.MaxRecordSize, math.MaxInt64, func(n uint64) { c.MaxRecordSize = int64(n) }},            //nolint:gosec // G115: bounded by max
		{"compact_threshold", aux.CompactThreshold, math.MaxUint64, func(n uint64) { c.CompactThreshold = n }},
		{"min_free_disk_space", aux.MinFreeDiskSpace, math.MaxInt64, func(n uint64) { c.MinFreeDiskSpace = int64(n) }}, //nolint:gosec // G115: bounded by max
	}
	for _, sz := range sizes {
		if sz.value == "" {
			continue
		}
		n, err := parseSize(sz.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", sz.key, err)
		}
		if n > sz.max {
			return fmt.Errorf("invalid %s: %s is too large", sz.key, sz.value)
		}
		sz.set(n)
	}

	if aux.LogLevel != "" {
		level, err := logging.ParseLevel(aux.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log_level: %w", err)
		}
		c.LogLevel = level
	}

	return c.QueueOptions(nil).Validate()
}

// parseSize reads a byte count such as 1048576, 512K or 10M.
func parseSize(s string) (uint64, error) {
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, nil
	}
	n, err := bytefmt.ToBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, err)
	}
	return n, nil
}

// Load reads the YAML file at path on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is user-provided
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	c := Default()
	if err := c.Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// QueueOptions converts c to queue options using logger (nil = no logging).
func (c *Config) QueueOptions(logger logging.Logger) *queue.Options {
	o := queue.DefaultOptions()
	o.SyncWrites = c.SyncWrites
	o.SyncInterval = c.SyncInterval
	o.Compression = c.Compression
	o.MinCompressionSize = c.MinCompressionSize
	o.MaxRecordSize = c.MaxRecordSize
	o.CompactThreshold = c.CompactThreshold
	o.MinFreeDiskSpace = c.MinFreeDiskSpace
	if logger != nil {
		o.Logger = logger
	}
	return o
}
