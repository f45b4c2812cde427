package cmd

import (
	"time"

	"github.com/bnema/waysurf/internal/config"
	"github.com/bnema/waysurf/internal/input"
	"github.com/bnema/waysurf/internal/logger"
	"github.com/spf13/cobra"
)

var injectCmd = &cobra.Command{
	Use:   "inject-exit",
	Short: "Press the exit key through a virtual keyboard",
	Long: `Create a uinput virtual keyboard, wait for the delay and tap the exit key.
Run it next to 'waysurf run' to close the window without touching the
keyboard. Requires write access to /dev/uinput.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		delay, _ := cmd.Flags().GetDuration("delay")
		device, _ := cmd.Flags().GetString("device")
		key := config.Get().Input.ExitKey
		if cmd.Flags().Changed("key") {
			key, _ = cmd.Flags().GetUint32("key")
		}

		inj, err := input.NewInjector(device)
		if err != nil {
			return err
		}
		defer func() { _ = inj.Close() }()

		logger.Infof("Tapping key %d in %s", key, delay)
		if err := inj.TapAfter(cmd.Context(), delay, key); err != nil {
			return err
		}
		logger.Info("Key sent")
		return nil
	},
}

func init() {
	injectCmd.Flags().Duration("delay", 2*time.Second, "Time to wait before tapping, lets the window get focus")
	injectCmd.Flags().String("device", input.DefaultDevicePath, "uinput device path")
	injectCmd.Flags().Uint32("key", 0, "Key code to tap (default from config input.exit_key)")
}
