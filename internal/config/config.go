// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Bridge   BridgeConfig   `mapstructure:"bridge" yaml:"bridge"`
	Selector SelectorConfig `mapstructure:"selector" yaml:"selector"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BridgeConfig controls the message bridge: who may talk to the agent and
// how detect bursts are paced.
type BridgeConfig struct {
	ParentOrigin      string        `mapstructure:"parent_origin" yaml:"parent_origin"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	StrictOriginCheck bool          `mapstructure:"strict_origin_check" yaml:"strict_origin_check"`
	AutoDetectParent  bool          `mapstructure:"auto_detect_parent" yaml:"auto_detect_parent"`
	FrameInterval     time.Duration `mapstructure:"frame_interval" yaml:"frame_interval"`
}

// SelectorConfig tunes the selector computation pipeline.
type SelectorConfig struct {
	Budget               time.Duration `mapstructure:"budget" yaml:"budget"`
	MaxDepth             int           `mapstructure:"max_depth" yaml:"max_depth"`
	PreferDataAttrs      bool          `mapstructure:"prefer_data_attrs" yaml:"prefer_data_attrs"`
	FilterUtilityClasses bool          `mapstructure:"filter_utility_classes" yaml:"filter_utility_classes"`
}

// ServerConfig configures the websocket endpoint controllers connect to.
type ServerConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// BrowserConfig holds settings for the headless browser instance backing
// live-page mode.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string `mapstructure:"args" yaml:"args"`
	ViewportWidth   int      `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight  int      `mapstructure:"viewport_height" yaml:"viewport_height"`
}

// NewDefaultConfig returns a Config populated with defaults only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	if err != nil {
		// Defaults are static; a failure here is a programming error.
		panic(fmt.Sprintf("default configuration invalid: %v", err))
	}
	return cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "editbridge")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Bridge --
	v.SetDefault("bridge.parent_origin", "")
	v.SetDefault("bridge.allowed_origins", []string{})
	v.SetDefault("bridge.strict_origin_check", false)
	v.SetDefault("bridge.auto_detect_parent", true)
	v.SetDefault("bridge.frame_interval", "16ms")

	// -- Selector --
	v.SetDefault("selector.budget", "50ms")
	v.SetDefault("selector.max_depth", 8)
	v.SetDefault("selector.prefer_data_attrs", true)
	v.SetDefault("selector.filter_utility_classes", true)

	// -- Server --
	v.SetDefault("server.listen", "127.0.0.1:7331")
	v.SetDefault("server.path", "/bridge")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 800)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Bridge.FrameInterval <= 0 {
		return fmt.Errorf("bridge.frame_interval must be a positive duration")
	}
	if c.Selector.Budget <= 0 {
		return fmt.Errorf("selector.budget must be a positive duration")
	}
	if c.Selector.MaxDepth <= 0 {
		return fmt.Errorf("selector.max_depth must be a positive integer")
	}
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is a required configuration field")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport dimensions must be positive")
	}
	return nil
}
