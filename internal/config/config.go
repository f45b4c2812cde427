// Package config handles configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Window  WindowConfig  `mapstructure:"window"`
	Render  RenderConfig  `mapstructure:"render"`
	Input   InputConfig   `mapstructure:"input"`
	Wayland WaylandConfig `mapstructure:"wayland"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// WindowConfig describes the toplevel window and its buffer
type WindowConfig struct {
	Title  string `mapstructure:"title"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
}

// RenderConfig selects the pixel producer
type RenderConfig struct {
	Mode string `mapstructure:"mode"` // gradient or triangle
}

// InputConfig contains keyboard settings
type InputConfig struct {
	ExitKey uint32 `mapstructure:"exit_key"` // Linux input event code, 1 is KEY_ESC
}

// WaylandConfig contains connection settings
type WaylandConfig struct {
	Display string `mapstructure:"display"` // Socket name or path, empty means WAYLAND_DISPLAY
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

// Render modes understood by the render package
const (
	ModeGradient = "gradient"
	ModeTriangle = "triangle"
)

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Window: WindowConfig{
			Title:  "waysurf",
			Width:  640,
			Height: 480,
		},
		Render: RenderConfig{
			Mode: ModeGradient,
		},
		Input: InputConfig{
			ExitKey: 1,
		},
		Wayland: WaylandConfig{
			Display: "",
		},
		Logging: LoggingConfig{
			LogLevel: "", // Empty means use LOG_LEVEL env var
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("waysurf")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		if dir := userConfigDir(); dir != "" {
			viper.AddConfigPath(dir)
		}
		viper.AddConfigPath(".") // Current directory (lowest priority)
	}

	viper.SetDefault("window.title", DefaultConfig.Window.Title)
	viper.SetDefault("window.width", DefaultConfig.Window.Width)
	viper.SetDefault("window.height", DefaultConfig.Window.Height)
	viper.SetDefault("render.mode", DefaultConfig.Render.Mode)
	viper.SetDefault("input.exit_key", DefaultConfig.Input.ExitKey)
	viper.SetDefault("wayland.display", DefaultConfig.Wayland.Display)
	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	if err := viper.ReadInConfig(); err != nil {
		// An explicit path that does not exist yet is not an error either,
		// config init creates it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}

	cfg = c
	return nil
}

// Validate checks that the window can be backed by a shared memory pool.
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d: both dimensions must be positive", c.Window.Width, c.Window.Height)
	}
	// wl_shm pool sizes and strides are int32 on the wire
	if int64(c.Window.Width)*int64(c.Window.Height)*4 > math.MaxInt32 {
		return fmt.Errorf("invalid window size %dx%d: buffer exceeds %d bytes", c.Window.Width, c.Window.Height, math.MaxInt32)
	}
	switch c.Render.Mode {
	case ModeGradient, ModeTriangle:
	default:
		return fmt.Errorf("invalid render mode %q (must be %s or %s)", c.Render.Mode, ModeGradient, ModeTriangle)
	}
	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return a copy of the defaults if not initialized
		c := DefaultConfig
		return &c
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Save writes the current configuration to GetConfigPath.
func Save() error {
	configPath := GetConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	c := Get()
	viper.Set("window.title", c.Window.Title)
	viper.Set("window.width", c.Window.Width)
	viper.Set("window.height", c.Window.Height)
	viper.Set("render.mode", c.Render.Mode)
	viper.Set("input.exit_key", c.Input.ExitKey)
	viper.Set("wayland.display", c.Wayland.Display)
	viper.Set("logging.log_level", c.Logging.LogLevel)

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}

	if dir := userConfigDir(); dir != "" {
		return filepath.Join(dir, "waysurf.toml")
	}
	return "waysurf.toml"
}

func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "waysurf")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "waysurf")
}
