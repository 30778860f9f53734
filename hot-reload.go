// hot-reload.go: dynamic configuration with Argus integration
//
// Copyright (c) 2025 Vektra Labs
// SPDX-License-Identifier: MPL-2.0

package scintilla

import (
	"fmt"
	"sync"
	"time"

	"github.com/agilira/argus"
)

// TunableConfig is the subset of Config that can change on a running Cache
// without reconstruction. Counters, Capacity, CacheWeight, Shards,
// SampleSize and the TTL wheel's geometry are load-bearing for
// already-admitted entries and the command pipeline's goroutines, so
// changing them requires building a new Cache instead; only
// NegativeCacheTTL is read fresh on every GetOrLoad call and can be
// swapped live.
type TunableConfig struct {
	// NegativeCacheTTL caches GetOrLoad loader errors for this duration.
	// Zero disables negative caching.
	NegativeCacheTTL time.Duration
}

// HotConfig watches a configuration file via Argus and applies the
// TunableConfig values it finds to cache as they change, without
// interrupting in-flight operations.
type HotConfig[K comparable, V any] struct {
	cache   *Cache[K, V]
	watcher *argus.Watcher
	mu      sync.RWMutex
	current TunableConfig

	// OnReload is called after a configuration reload is applied. Optional,
	// must be fast and non-blocking.
	OnReload func(old, new TunableConfig)

	logger Logger
}

// HotConfigOptions configures hot reload behavior.
type HotConfigOptions struct {
	// ConfigPath is the path to the configuration file to watch. Supports
	// JSON, YAML, TOML, HCL, INI and Properties, per Argus's format
	// detection.
	ConfigPath string

	// PollInterval is how often to check for configuration changes.
	// Default: 1 second. Minimum: 100ms.
	PollInterval time.Duration

	// OnReload is called after configuration is successfully reloaded.
	OnReload func(old, new TunableConfig)

	// Logger for hot reload operations. Defaults to NoOpLogger.
	Logger Logger
}

// NewHotConfig builds a HotConfig bound to cache and starts watching
// opts.ConfigPath immediately.
//
// Example configuration file (YAML):
//
//	cache:
//	  negative_cache_ttl: "30s"
//
// Supported keys:
//   - cache.negative_cache_ttl (duration string): see TunableConfig.
func NewHotConfig[K comparable, V any](cache *Cache[K, V], opts HotConfigOptions) (*HotConfig[K, V], error) {
	if opts.ConfigPath == "" {
		return nil, fmt.Errorf("config_path is required")
	}

	if opts.PollInterval == 0 {
		opts.PollInterval = 1 * time.Second
	} else if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}

	if opts.Logger == nil {
		opts.Logger = NoOpLogger{}
	}

	hc := &HotConfig[K, V]{
		cache:    cache,
		OnReload: opts.OnReload,
		logger:   opts.Logger,
		current:  TunableConfig{NegativeCacheTTL: cache.cfg.NegativeCacheTTL},
	}

	argusConfig := argus.Config{PollInterval: opts.PollInterval}
	watcher, err := argus.UniversalConfigWatcherWithConfig(opts.ConfigPath, hc.handleConfigChange, argusConfig)
	if err != nil {
		return nil, err
	}
	hc.watcher = watcher

	return hc, nil
}

// Start begins watching the configuration file for changes. A no-op if
// already running.
func (hc *HotConfig[K, V]) Start() error {
	if hc.watcher.IsRunning() {
		return nil
	}
	return hc.watcher.Start()
}

// Stop stops watching the configuration file.
func (hc *HotConfig[K, V]) Stop() error {
	return hc.watcher.Stop()
}

// Current returns the TunableConfig currently applied (thread-safe).
func (hc *HotConfig[K, V]) Current() TunableConfig {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.current
}

func (hc *HotConfig[K, V]) handleConfigChange(configData map[string]interface{}) {
	hc.mu.Lock()
	old := hc.current
	next := hc.parseConfig(configData, old)
	hc.current = next
	hc.mu.Unlock()

	hc.cache.negativeCacheTTL.Store(int64(next.NegativeCacheTTL))
	hc.logger.Info("scintilla: config reloaded", "negative_cache_ttl", next.NegativeCacheTTL)

	if hc.OnReload != nil {
		hc.OnReload(old, next)
	}
}

// parseDuration extracts a time.Duration from a string value.
func parseDuration(value interface{}) (time.Duration, bool) {
	if str, ok := value.(string); ok {
		if d, err := time.ParseDuration(str); err == nil {
			return d, true
		}
	}
	return 0, false
}

func (hc *HotConfig[K, V]) parseConfig(data map[string]interface{}, fallback TunableConfig) TunableConfig {
	cfg := fallback

	cacheSection, ok := data["cache"].(map[string]interface{})
	if !ok {
		if _, hasKey := data["negative_cache_ttl"]; hasKey {
			cacheSection = data
		} else {
			return cfg
		}
	}

	if ttl, ok := parseDuration(cacheSection["negative_cache_ttl"]); ok {
		cfg.NegativeCacheTTL = ttl
	}

	return cfg
}
