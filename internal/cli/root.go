// Package cli provides the command-line interface for mzfresh.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/mzfresh/internal/adapter"
	"github.com/leapstack-labs/mzfresh/internal/cli/commands"
	"github.com/leapstack-labs/mzfresh/internal/cli/config"
	"github.com/leapstack-labs/mzfresh/internal/cli/output"
)

// Version is set at build time.
var Version = "0.1.0"

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "mzfresh",
		Short: "mzfresh - Freshness diagnostics for Materialize",
		Long: `mzfresh finds objects in a Materialize catalog whose write frontiers lag
behind the current time, walks their upstream dependencies, and points at the
edges where the delay accrues.

Catalogs are read live over the Postgres wire protocol, or offline from a
YAML snapshot captured with 'mzfresh snapshot export'.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			cmd.SetContext(config.WithLogger(cmd.Context(), logger))

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}
			logger.Debug("using provider", "type", cfg.Provider.Type)

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Dependency-aware freshness diagnostics for Materialize
`)

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./mzfresh.yaml)")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json)")
	pf.String("provider", "", "Catalog provider (materialize|file)")
	pf.String("dsn", "", "Materialize connection string")
	pf.String("snapshot-file", "", "YAML snapshot read by the file provider")
	pf.String("state", "", "Path to state database")
	pf.Bool("record-history", false, "Record reports in the state database")
	pf.String("metrics-textfile", "", "Write Prometheus metrics to this file after each command")
	pf.Bool("trace", false, "Print OpenTelemetry spans to stderr")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("provider", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return adapter.ListAdapters(), cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewMonitorCommand())
	rootCmd.AddCommand(commands.NewObjectCommand())
	rootCmd.AddCommand(commands.NewSnapshotCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for mzfresh.

To load completions:

Bash:
  $ source <(mzfresh completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ mzfresh completion bash > /etc/bash_completion.d/mzfresh
  # macOS:
  $ mzfresh completion bash > $(brew --prefix)/etc/bash_completion.d/mzfresh

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ mzfresh completion zsh > "${fpath[1]}/_mzfresh"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ mzfresh completion fish | source

  # To load completions for each session, execute once:
  $ mzfresh completion fish > ~/.config/fish/completions/mzfresh.fish

PowerShell:
  PS> mzfresh completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> mzfresh completion powershell > mzfresh.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
