package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/runoshun/adr-sync/internal/app"
	"github.com/runoshun/adr-sync/internal/usecase"
)

// newStatusCommand creates the status command for a one-shot queue and cache read.
func newStatusCommand(c *app.Container) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue and cache status once",
		Long: `Read the backend queue and record cache status once and print them.

Formats:
  text  Human-readable summary (default)
  json  Machine-readable JSON
  yaml  Machine-readable YAML`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "text" && format != "json" && format != "yaml" {
				return fmt.Errorf("invalid format %q: must be text, json or yaml", format)
			}

			out, err := c.ShowStatusUseCase().Execute(cmd.Context(), usecase.ShowStatusInput{})
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), out, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or yaml")

	return cmd
}

func printStatus(w io.Writer, out *usecase.ShowStatusOutput, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	}

	q := out.Queue
	_, _ = fmt.Fprintf(w, "Queue:   %d active, %d pending, %d total\n", q.Active, q.Pending, q.Total)
	_, _ = fmt.Fprintf(w, "Workers: %d online\n", q.WorkersOnline)
	switch {
	case out.Cache.IsRebuilding:
		_, _ = fmt.Fprintln(w, "Cache:   rebuilding")
	case out.Cache.LastSyncTime != nil:
		_, _ = fmt.Fprintf(w, "Cache:   synced %s\n", out.Cache.LastSyncTime.Local().Format("2006-01-02 15:04:05"))
	default:
		_, _ = fmt.Fprintln(w, "Cache:   never synced")
	}
	return nil
}
