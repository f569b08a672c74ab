package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatstat/pkg/config"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// LogLevelFlag is the persistent root flag that selects the slog level.
const LogLevelFlag = "log-level"

// DefaultLogLevel is used when the flag is absent.
const DefaultLogLevel = "warn"

// ParseLogLevel converts a flag value into a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q (use debug, info, warn, or error)", s)
	}
	return level, nil
}

// NewLogger builds the text logger the CLI writes to stderr.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// loggerFor returns a logger honouring the command's --log-level flag.
func loggerFor(cmd *cobra.Command) (*slog.Logger, error) {
	level := DefaultLogLevel
	if f := cmd.Flags().Lookup(LogLevelFlag); f != nil {
		level = f.Value.String()
	}
	return NewLogger(cmd.ErrOrStderr(), level)
}

func contextFor(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadConfig loads path, or the environment-only defaults when path is empty.
func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	if path == "" {
		cfg, err := config.LoadDefault()
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
