package cli

import (
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/runoshun/adr-sync/internal/app"
	"github.com/runoshun/adr-sync/internal/domain"
	"github.com/runoshun/adr-sync/internal/usecase"
)

// newConfigCommand creates the config command.
func newConfigCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `Manage adr-sync configuration files and settings.`,
		// No RunE: shows subcommand list when called without arguments
	}

	// Add subcommands
	cmd.AddCommand(newConfigShowCommand(c))
	cmd.AddCommand(newConfigTemplateCommand())
	cmd.AddCommand(newConfigInitCommand(c))

	return cmd
}

// newConfigShowCommand creates the config show subcommand.
func newConfigShowCommand(c *app.Container) *cobra.Command {
	var opts domain.LoadConfigOptions

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration",
		Long: `Display effective configuration after merging all sources.

Sources are merged in this order, later ones winning:
  built-in defaults, global config, project config (.adr-sync.toml),
  environment variables and .env (ADR_SYNC_*).

Use --ignore-global, --ignore-project or --ignore-env to exclude a source for debugging.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.ShowConfigUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ShowConfigInput{Options: opts})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()

			// Display loaded files section
			_, _ = fmt.Fprintln(w, "[Loaded from]")
			if !opts.IgnoreGlobal {
				printConfigSource(w, out.GlobalConfig)
			}
			if !opts.IgnoreProject {
				printConfigSource(w, out.ProjectConfig)
			}
			if !opts.IgnoreEnv {
				_, _ = fmt.Fprintln(w, "- environment (ADR_SYNC_*)")
			}
			_, _ = fmt.Fprintln(w)

			for _, warning := range out.Effective.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", warning)
			}

			// Display effective config in TOML format
			_, _ = fmt.Fprintln(w, "[Effective Config]")
			if err := toml.NewEncoder(w).Encode(out.Effective); err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			_, _ = fmt.Fprintln(w)
			_, _ = fmt.Fprintf(w, "# push channel: %s\n", out.PushURL)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.IgnoreGlobal, "ignore-global", false, "Ignore global configuration")
	cmd.Flags().BoolVar(&opts.IgnoreProject, "ignore-project", false, "Ignore project configuration (.adr-sync.toml)")
	cmd.Flags().BoolVar(&opts.IgnoreEnv, "ignore-env", false, "Ignore ADR_SYNC_* environment variables and .env")

	return cmd
}

func printConfigSource(w io.Writer, info domain.ConfigInfo) {
	if info.Exists {
		_, _ = fmt.Fprintf(w, "- %s\n", info.Path)
	} else {
		_, _ = fmt.Fprintf(w, "- %s (not found)\n", info.Path)
	}
}

// newConfigTemplateCommand creates the config template subcommand.
func newConfigTemplateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Output configuration template",
		Long: `Output a configuration file template with the built-in defaults to stdout.

It does not depend on existing configuration files and will work even if they are broken.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprint(cmd.OutOrStdout(), domain.RenderConfigTemplate(domain.NewDefaultConfig()))
			return nil
		},
	}

	return cmd
}

// newConfigInitCommand creates the config init subcommand.
func newConfigInitCommand(c *app.Container) *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate configuration file template",
		Long: `Generate a configuration file template.

By default, creates the project configuration file .adr-sync.toml in the current directory.
With --global, creates the global configuration file at ~/.config/adr-sync/config.toml.

Error conditions:
- Target file already exists: error`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.InitConfigUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.InitConfigInput{
				Global: global,
				Config: domain.NewDefaultConfig(),
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created config file: %s\n", out.Path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "Generate global configuration")

	return cmd
}
