package cmd

import (
	"github.com/bnema/waysurf/internal/config"
	"github.com/bnema/waysurf/internal/logger"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "waysurf",
		Short: "waysurf - minimal Wayland window client",
		Long: `waysurf opens a single xdg-shell toplevel window on a Wayland compositor,
fills it from a shared memory buffer and stays up until the window is closed
or the exit key (Escape by default) is pressed.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

// Execute runs the root command
func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default $XDG_CONFIG_HOME/waysurf/waysurf.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config and LOG_LEVEL)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(globalsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(injectCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the configuration and applies the log level. The flag
// wins over the config file, which wins over LOG_LEVEL.
func setup(cmd *cobra.Command, args []string) error {
	config.SetConfigPath(configFile)
	if err := config.Init(); err != nil {
		return err
	}

	level := config.Get().Logging.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	if level != "" {
		logger.SetLevel(level)
	}
	logger.Debug("Configuration loaded", "path", config.GetConfigPath())
	return nil
}
