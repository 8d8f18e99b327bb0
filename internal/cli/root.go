// Package cli provides the command-line interface for roadsync.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/roadsync/internal/cli/commands"
	"github.com/leapstack-labs/roadsync/internal/cli/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var closeLog func() error

	rootCmd := &cobra.Command{
		Use:   "roadsync",
		Short: "roadsync - road network chainage maintenance",
		Long: `roadsync keeps the linear referencing of a road network database
consistent: it imports staged objects, rebuilds 3D centerlines and
chainage, and runs the derived computations of each road in a fixed order.

Roads are processed one at a time. A failing road is logged and skipped.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			// Only batches write the log file.
			logCfg := *cfg
			if !commands.IsBatch(cmd) {
				logCfg.Logfile = ""
			}
			logger, closeFn, err := config.NewLogger(&logCfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			closeLog = closeFn

			if cfg.File != "" {
				logger.Debug("using config file", "path", cfg.File)
			}

			ctx := config.WithConfig(cmd.Context(), cfg)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if closeLog != nil {
				return closeLog()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./roadsync.yaml)")
	pf.String("project", "", "Project name; the database is dorgis_<project> unless --database is set")
	pf.String("host", "", "Database server")
	pf.Int("port", 0, "Database port")
	pf.String("database", "", "Database name")
	pf.String("user", "", "Database user")
	pf.String("password", "", "Database password")
	pf.String("sslmode", "", "Database SSL mode")
	pf.String("schema", "", "Schema of the road and object tables")
	pf.Int("srid", 0, "UTM zone SRID (detected from the roads when unset)")
	pf.StringSlice("road-codes", nil, "Comma-separated road codes")
	pf.String("logfile", "", "Log file (default: roadsync.log)")
	pf.BoolP("quiet", "q", false, "Do not log to the console and do not ask for confirmation")
	pf.BoolP("verbose", "v", false, "Debug logging")
	pf.BoolP("yes", "y", false, "Do not ask for confirmation")
	pf.String("journal", "", "SQLite file recording batch history")
	pf.String("pushgateway", "", "Prometheus Pushgateway URL for batch metrics")

	_ = rootCmd.RegisterFlagCompletionFunc("sslmode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewShiftCommand())
	rootCmd.AddCommand(commands.NewRebindCommand())
	rootCmd.AddCommand(commands.NewTasksCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command. Interrupts stop the batch after the road in
// progress.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, commands.ErrBatchFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for roadsync.

To load completions:

Bash:
  $ source <(roadsync completion bash)

  # To load completions for each session, execute once:
  $ roadsync completion bash > /etc/bash_completion.d/roadsync

Zsh:
  $ roadsync completion zsh > "${fpath[1]}/_roadsync"

Fish:
  $ roadsync completion fish > ~/.config/fish/completions/roadsync.fish

PowerShell:
  PS> roadsync completion powershell | Out-String | Invoke-Expression
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
