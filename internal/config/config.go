// Package config loads docring's runtime configuration: cache sizing, the
// initial server roster, and the toggles for virtual nodes, tracing and
// the admin HTTP surface. Modeled on the workspace's per-service
// internal/config packages (e.g. apps/rag-loader/internal/config).
package config

import (
	"os"

	"github.com/spf13/viper"

	docringerrors "github.com/developer-mesh/docring/pkg/errors"
)

// ServerSpec is one entry in the initial server roster.
type ServerSpec struct {
	ID            uint32 `mapstructure:"id"`
	CacheCapacity int    `mapstructure:"cache_capacity"`
}

// RingConfig controls the consistent-hash ring.
type RingConfig struct {
	VirtualNodes int          `mapstructure:"virtual_nodes"`
	Servers      []ServerSpec `mapstructure:"servers"`
}

// AdminConfig controls the read-only observability HTTP surface.
type AdminConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ListenAddress string `mapstructure:"listen_address"`
}

// ObservabilityConfig toggles metrics and tracing collection.
type ObservabilityConfig struct {
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
	LogLevel       string `mapstructure:"log_level"`
}

// Config is the complete, validated runtime configuration.
type Config struct {
	Ring          RingConfig          `mapstructure:"ring"`
	Admin         AdminConfig         `mapstructure:"admin"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	WorkloadFile  string              `mapstructure:"workload_file"`
}

// Load reads configuration from defaults, the file at path (if it
// exists), and environment variables prefixed DOCRING_, in that order of
// increasing precedence, then validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DOCRING")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, docringerrors.Newf(docringerrors.ClassValidation, "config.read", "reading %s: %v", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, docringerrors.Newf(docringerrors.ClassValidation, "config.unmarshal", "unmarshaling config: %v", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ring.virtual_nodes", 0)
	v.SetDefault("admin.enabled", true)
	v.SetDefault("admin.listen_address", ":8090")
	v.SetDefault("observability.metrics_enabled", true)
	v.SetDefault("observability.tracing_enabled", false)
	v.SetDefault("observability.log_level", "info")
}

// validate enforces the invariants the ring and server types assume:
// every server needs a positive cache capacity, ids must be below the
// virtual-node replica offset (100000) so id+200000 can never collide
// with another primary, and ids must be unique.
func validate(cfg *Config) error {
	if cfg.Ring.VirtualNodes < 0 || cfg.Ring.VirtualNodes > 2 {
		return docringerrors.Newf(docringerrors.ClassValidation, "config.virtual_nodes", "virtual_nodes must be 0, 1 or 2, got %d", cfg.Ring.VirtualNodes)
	}

	seen := make(map[uint32]bool, len(cfg.Ring.Servers))
	for _, s := range cfg.Ring.Servers {
		if s.ID >= 100000 {
			return docringerrors.Newf(docringerrors.ClassValidation, "config.server_id", "server id %d must be below 100000, reserved for virtual-node replicas", s.ID)
		}
		if s.CacheCapacity <= 0 {
			return docringerrors.Newf(docringerrors.ClassValidation, "config.cache_capacity", "server %d: cache_capacity must be positive, got %d", s.ID, s.CacheCapacity)
		}
		if seen[s.ID] {
			return docringerrors.Newf(docringerrors.ClassValidation, "config.duplicate_id", "duplicate server id %d", s.ID)
		}
		seen[s.ID] = true
	}

	if cfg.Admin.Enabled && cfg.Admin.ListenAddress == "" {
		return docringerrors.New(docringerrors.ClassValidation, "config.listen_address", "admin.listen_address must be set when admin.enabled is true")
	}
	return nil
}
