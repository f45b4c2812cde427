package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/waysurf/internal/config"
	"github.com/bnema/waysurf/internal/logger"
	"github.com/bnema/waysurf/internal/render"
	"github.com/bnema/waysurf/internal/session"
	"github.com/bnema/waysurf/internal/wayland"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the window and wait until it is closed",
	Long: `Connect to the compositor, open a toplevel window showing the rendered
image and dispatch events until the window is closed, the exit key is
pressed or the process is interrupted.`,
	RunE: runWindow,
}

func init() {
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "Window title")
	cmd.Flags().Int("width", 0, "Buffer width in pixels")
	cmd.Flags().Int("height", 0, "Buffer height in pixels")
	cmd.Flags().String("mode", "", "Render mode: gradient or triangle")
	cmd.Flags().String("display", "", "Wayland socket name or path (default $WAYLAND_DISPLAY)")
	cmd.Flags().Uint32("exit-key", 0, "Linux input event code that closes the window")
}

// runOptions merges the flags the user set into a copy of the loaded
// configuration.
func runOptions(cmd *cobra.Command) (config.Config, error) {
	cfg := *config.Get()
	flags := cmd.Flags()

	if flags.Changed("title") {
		cfg.Window.Title, _ = flags.GetString("title")
	}
	if flags.Changed("width") {
		cfg.Window.Width, _ = flags.GetInt("width")
	}
	if flags.Changed("height") {
		cfg.Window.Height, _ = flags.GetInt("height")
	}
	if flags.Changed("mode") {
		cfg.Render.Mode, _ = flags.GetString("mode")
	}
	if flags.Changed("display") {
		cfg.Wayland.Display, _ = flags.GetString("display")
	}
	if flags.Changed("exit-key") {
		cfg.Input.ExitKey, _ = flags.GetUint32("exit-key")
	}

	return cfg, cfg.Validate()
}

func runWindow(cmd *cobra.Command, args []string) error {
	cfg, err := runOptions(cmd)
	if err != nil {
		return err
	}

	renderer, err := render.New(cfg.Render.Mode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := wayland.Connect(cfg.Wayland.Display)
	if err != nil {
		return err
	}

	// Closing the connection is the only way to interrupt a blocked read.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	sess := session.New(conn, renderer, session.Options{
		Title:   cfg.Window.Title,
		Width:   cfg.Window.Width,
		Height:  cfg.Window.Height,
		ExitKey: cfg.Input.ExitKey,
	})

	logger.Debug("Opening window",
		"title", cfg.Window.Title,
		"width", cfg.Window.Width,
		"height", cfg.Window.Height,
		"mode", cfg.Render.Mode)

	runErr := sess.Run(ctx, conn)

	snap := sess.Snapshot()
	logFinal := logger.Debug
	if runErr != nil {
		logFinal = logger.Error
	}
	logFinal("Session finished",
		"phase", snap.Phase,
		"bound", snap.Bound,
		"configured", snap.Configured,
		"presents", snap.Presents,
		"reason", snap.StopReason)

	// After an interrupt the connection is already gone and the destroy
	// requests are expected to fail.
	if err := errors.Join(sess.Close(), conn.Close()); err != nil && runErr == nil && ctx.Err() == nil {
		logger.Warn("Cleanup failed", "error", err)
	}
	if runErr != nil {
		return runErr
	}

	logger.Info("Window closed", "reason", sess.StopReason())
	return nil
}
