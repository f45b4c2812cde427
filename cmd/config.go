package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/bnema/waysurf/internal/config"
	"github.com/bnema/waysurf/internal/logger"
	"github.com/bnema/waysurf/internal/ui"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage waysurf configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), formatConfig(config.Get(), config.GetConfigPath()))
		return err
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save current configuration to file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Save(); err != nil {
			return err
		}
		logger.Infof("Configuration saved to: %s", config.GetConfigPath())
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.GetConfigPath()
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(configPath); err == nil && !force {
			logger.Infof("Configuration file already exists at: %s", configPath)
			logger.Info("Use --force to overwrite")
			return nil
		}

		c := config.DefaultConfig
		if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("--interactive needs a terminal on stdin")
			}
			if err := editConfig(&c); err != nil {
				return err
			}
		}
		if err := c.Validate(); err != nil {
			return err
		}
		config.Set(&c)

		if err := config.Save(); err != nil {
			return err
		}

		logger.Infof("Configuration initialized at: %s", configPath)
		logger.Info("Use 'waysurf config show' to view current settings")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSaveCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().Bool("force", false, "Force overwrite existing configuration")
	configInitCmd.Flags().BoolP("interactive", "i", false, "Ask for the window settings instead of using defaults")
}

func formatConfig(c *config.Config, path string) string {
	out := ui.FormatHeader("Current Configuration", path) + "\n"

	out += ui.FormatSection("window") + "\n"
	out += ui.FormatKeyValue("title", c.Window.Title) + "\n"
	out += ui.FormatKeyValue("width", c.Window.Width) + "\n"
	out += ui.FormatKeyValue("height", c.Window.Height) + "\n"

	out += ui.FormatSection("render") + "\n"
	out += ui.FormatKeyValue("mode", c.Render.Mode) + "\n"

	out += ui.FormatSection("input") + "\n"
	out += ui.FormatKeyValue("exit_key", c.Input.ExitKey) + "\n"

	display := c.Wayland.Display
	if display == "" {
		display = "$WAYLAND_DISPLAY"
	}
	out += ui.FormatSection("wayland") + "\n"
	out += ui.FormatKeyValue("display", display) + "\n"

	level := c.Logging.LogLevel
	if level == "" {
		level = "$LOG_LEVEL"
	}
	out += ui.FormatSection("logging") + "\n"
	out += ui.FormatKeyValue("log_level", level)
	return out
}

// editConfig asks for the window settings with a huh form.
func editConfig(c *config.Config) error {
	width := strconv.Itoa(c.Window.Width)
	height := strconv.Itoa(c.Window.Height)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Window title").
				Value(&c.Window.Title),
			huh.NewInput().
				Title("Width").
				Description("Buffer width in pixels").
				Validate(validateDimension).
				Value(&width),
			huh.NewInput().
				Title("Height").
				Description("Buffer height in pixels").
				Validate(validateDimension).
				Value(&height),
			huh.NewSelect[string]().
				Title("Render mode").
				Options(
					huh.NewOption("Gradient", config.ModeGradient),
					huh.NewOption("Triangle", config.ModeTriangle),
				).
				Value(&c.Render.Mode),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("configuration cancelled: %w", err)
	}

	c.Window.Width, _ = strconv.Atoi(width)
	c.Window.Height, _ = strconv.Atoi(height)
	return nil
}

func validateDimension(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	if n <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}
