package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/bnema/waysurf/internal/config"
	"github.com/bnema/waysurf/internal/session"
	"github.com/bnema/waysurf/internal/ui"
	"github.com/bnema/waysurf/internal/wayland"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats for globals.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var globalsCmd = &cobra.Command{
	Use:   "globals",
	Short: "List the globals announced by the compositor",
	Long: `Connect to the compositor, perform one roundtrip and print every global it
announces, marking the ones waysurf binds and whether all required globals
are present.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		display, _ := cmd.Flags().GetString("display")
		if !cmd.Flags().Changed("display") {
			display = config.Get().Wayland.Display
		}
		format, _ := cmd.Flags().GetString("output")
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			format = outputJSON
		}
		switch format {
		case outputTable, outputJSON, outputYAML:
		default:
			return fmt.Errorf("invalid output format %q (must be %s, %s or %s)", format, outputTable, outputJSON, outputYAML)
		}

		infos, err := wayland.ListGlobals(display)
		if err != nil {
			return err
		}
		return printGlobals(cmd.OutOrStdout(), infos, format)
	},
}

func init() {
	globalsCmd.Flags().String("display", "", "Wayland socket name or path (default $WAYLAND_DISPLAY)")
	globalsCmd.Flags().StringP("output", "o", outputTable, "Output format: table, json or yaml")
	globalsCmd.Flags().Bool("json", false, "Shorthand for --output json")
}

func printGlobals(w io.Writer, infos []wayland.GlobalInfo, format string) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(infos); err != nil {
			return err
		}
		return enc.Close()
	}

	rows := make([][]string, 0, len(infos))
	present := make(map[string]bool)
	for _, info := range infos {
		bind := ""
		if info.Wanted {
			bind = strconv.FormatUint(uint64(info.BindAt), 10)
			present[info.Interface] = true
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(info.Name), 10),
			info.Interface,
			strconv.FormatUint(uint64(info.Version), 10),
			bind,
			globalNote(info),
		})
	}

	if _, err := fmt.Fprintln(w, ui.FormatHeader("Compositor globals", fmt.Sprintf("%d announced", len(infos)))); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ui.Table([]string{"Name", "Interface", "Version", "Bind", "Use"}, rows)); err != nil {
		return err
	}

	for _, iface := range session.RequiredInterfaces {
		line := ui.FormatResult(present[iface], iface)
		if !present[iface] {
			line += " (missing, the window cannot be opened)"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func globalNote(info wayland.GlobalInfo) string {
	switch {
	case !info.Wanted:
		return ""
	case info.Duplicated:
		return "duplicate"
	case info.Required:
		return "required"
	default:
		return "optional"
	}
}
