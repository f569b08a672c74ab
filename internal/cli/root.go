// Package cli provides the command-line interface for chatstat.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatstat/internal/cli/commands"
	"github.com/ccollicutt/chatstat/internal/cli/plugins"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	return run(os.Args[1:])
}

func run(args []string) int {
	rootCmd := NewRootCommand()

	// Unknown first words are tried as plugins before Cobra reports them.
	if name, ok := pluginCandidate(rootCmd, args); ok {
		if pluginPath, err := plugins.FindPlugin(name); err == nil {
			return plugins.Execute(pluginPath, args[1:])
		}
	}

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		if name, ok := pluginCandidate(rootCmd, args); ok {
			_, _ = fmt.Fprintln(os.Stderr, plugins.FormatNotFoundError(name))
			return 2
		}
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return commands.ExitCode
}

// pluginCandidate returns the first argument when it is neither a flag nor a
// built-in command.
func pluginCandidate(rootCmd *cobra.Command, args []string) (string, bool) {
	if len(args) == 0 || args[0] == "" || args[0][0] == '-' {
		return "", false
	}
	if isBuiltinCommand(rootCmd, args[0]) {
		return "", false
	}
	return args[0], true
}

// isBuiltinCommand checks if a command name is a built-in cobra command.
func isBuiltinCommand(rootCmd *cobra.Command, name string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name || cmd.HasAlias(name) {
			return true
		}
	}
	// Also check for special commands like help and completion
	return name == "help" || name == "completion"
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "chatstat",
		Short: "Parse exported chat transcripts and compute per-author statistics",
		Long: `chatstat turns exported messenger transcripts into a table of messages.

It handles:
  - Dialect detection (ios_a, ios_b, android, or custom dialects)
  - Multi-line messages and system notices
  - Per-author statistics: volume, message sizes, response times,
    weekday and time-of-day activity, participation

PLUGINS:
  chatstat supports plugins for extra statistics. Plugins are standalone
  binaries named chatstat-<command> that are automatically discovered and invoked.

  Plugin locations (searched in order):
    1. Same directory as the chatstat binary
    2. ~/.chatstat/plugins/
    3. Anywhere in PATH

  Known plugins:
    emoji        Per-author emoji frequency
    wordcloud    Word cloud images per author`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := commands.ParseLogLevel(logLevel)
			return err
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, commands.LogLevelFlag, commands.DefaultLogLevel,
		"Log level on stderr (debug|info|warn|error)")

	rootCmd.AddCommand(commands.NewParseCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewStatsCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
