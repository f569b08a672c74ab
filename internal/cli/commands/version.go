package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatstat/pkg/dialect"
)

// Version is set via ldflags at build time.
var Version = "dev"

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print the version of chatstat and the built-in dialects it recognizes.",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "chatstat %s (%s)\n", Version, runtime.Version())
			fmt.Fprintf(w, "dialects: %s\n", strings.Join(dialect.Names(dialect.Defaults()), ", "))
		},
	}
}
