// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/0xastro/uhd/internal/core"
	"github.com/0xastro/uhd/internal/link"
	"github.com/0xastro/uhd/internal/log"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `u2ctl:` root key in YAML.
type GlobalConfig struct {
	Device  DeviceConfig  `mapstructure:"device" yaml:"device"`
	Link    link.Config   `mapstructure:"link" yaml:"link"`
	DSP     DSPConfig     `mapstructure:"dsp" yaml:"dsp"`
	Log     log.Config    `mapstructure:"log" yaml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ─── Device Identity ───

// DeviceConfig describes the simulated unit and its UDP ports.
type DeviceConfig struct {
	MAC         string      `mapstructure:"mac" yaml:"mac"`
	HWRev       HWRevConfig `mapstructure:"hw_rev" yaml:"hw_rev"`
	ControlPort uint16      `mapstructure:"ctrl_port" yaml:"ctrl_port"`
	DataPort    uint16      `mapstructure:"data_port" yaml:"data_port"`
	LinkSpeed   int         `mapstructure:"link_speed" yaml:"link_speed"` // Mb/s reported when the link opens
}

// HWRevConfig is the hardware revision reported by ID.
type HWRevConfig struct {
	Major uint8 `mapstructure:"major" yaml:"major"`
	Minor uint8 `mapstructure:"minor" yaml:"minor"`
}

// ─── DSP ───

// DSPConfig bounds the residual CIC factor accepted by CONFIG_TX/RX.
type DSPConfig struct {
	CICMin uint32 `mapstructure:"cic_min" yaml:"cic_min"`
	CICMax uint32 `mapstructure:"cic_max" yaml:"cic_max"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `u2ctl: ...`.
type configRoot struct {
	U2ctl GlobalConfig `mapstructure:"u2ctl" yaml:"u2ctl"`
}

// Load loads configuration from path; an empty path yields defaults plus
// environment overrides. Env vars use the U2CTL_ prefix
// (e.g. U2CTL_LOG_LEVEL overrides u2ctl.log.level).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// The "u2ctl." key prefix maps to "U2CTL_" through the replacer.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.U2ctl

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use the "u2ctl." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Device defaults
	v.SetDefault("u2ctl.device.mac", "00:50:c2:85:3f:ff")
	v.SetDefault("u2ctl.device.hw_rev.major", 3)
	v.SetDefault("u2ctl.device.hw_rev.minor", 0)
	v.SetDefault("u2ctl.device.ctrl_port", 49152)
	v.SetDefault("u2ctl.device.data_port", 49153)
	v.SetDefault("u2ctl.device.link_speed", 1000)

	// Link defaults
	v.SetDefault("u2ctl.link.type", "pcap")

	// DSP defaults
	v.SetDefault("u2ctl.dsp.cic_min", 1)
	v.SetDefault("u2ctl.dsp.cic_max", 128)

	// Log defaults
	v.SetDefault("u2ctl.log.level", "info")
	v.SetDefault("u2ctl.log.pattern", log.DefaultPattern)
	v.SetDefault("u2ctl.log.time", log.DefaultTimeLayout)
	v.SetDefault("u2ctl.log.appenders", []map[string]interface{}{{"type": "console"}})

	// Metrics defaults
	v.SetDefault("u2ctl.metrics.enabled", false)
	v.SetDefault("u2ctl.metrics.listen", ":9091")
	v.SetDefault("u2ctl.metrics.path", "/metrics")
}

// ValidateAndApplyDefaults validates configuration and fills runtime
// defaults that depend on other fields.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log ──
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be trace/debug/info/warn/error): %w", cfg.Log.Level, core.ErrConfigInvalid)
	}

	// ── Device ──
	if _, err := core.ParseMAC(cfg.Device.MAC); err != nil {
		return fmt.Errorf("invalid device.mac %q: %w", cfg.Device.MAC, core.ErrConfigInvalid)
	}
	if cfg.Device.ControlPort == 0 || cfg.Device.DataPort == 0 {
		return fmt.Errorf("device.ctrl_port and device.data_port are required: %w", core.ErrConfigInvalid)
	}
	if cfg.Device.ControlPort == cfg.Device.DataPort {
		return fmt.Errorf("device.ctrl_port and device.data_port must differ (both %d): %w", cfg.Device.ControlPort, core.ErrConfigInvalid)
	}

	// ── DSP ──
	if cfg.DSP.CICMin == 0 || cfg.DSP.CICMin > cfg.DSP.CICMax {
		return fmt.Errorf("invalid cic range [%d, %d]: %w", cfg.DSP.CICMin, cfg.DSP.CICMax, core.ErrConfigInvalid)
	}

	// ── Link ──
	known := false
	for _, d := range link.Drivers() {
		if d == cfg.Link.Type {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unsupported link.type: %s (available: %s): %w",
			cfg.Link.Type, strings.Join(link.Drivers(), ", "), core.ErrConfigInvalid)
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen is required when metrics.enabled=true: %w", core.ErrConfigInvalid)
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	return nil
}

// DeviceMAC returns the parsed device address.
func (cfg *GlobalConfig) DeviceMAC() core.MAC {
	m, _ := core.ParseMAC(cfg.Device.MAC)
	return m
}

// Dump writes the configuration as YAML under the `u2ctl:` root key.
func (cfg *GlobalConfig) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(configRoot{U2ctl: *cfg}); err != nil {
		return err
	}
	return enc.Close()
}
