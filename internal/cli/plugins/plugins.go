// Package plugins provides exec-based plugin support for chatstat.
// Plugins are separate binaries named chatstat-<command> that are discovered
// and executed when an unknown command is invoked.
//
// This follows the same pattern used by kubectl and git for plugins.
package plugins

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Prefix is prepended to a command name to form the plugin binary name.
const Prefix = "chatstat-"

// BinaryEnv is set for plugins to the path of the chatstat binary that
// invoked them, so a plugin can run "$CHATSTAT_BIN parse -o json ...".
const BinaryEnv = "CHATSTAT_BIN"

// KnownPlugins lists statistics that live outside the core binary because
// they need rendering or language data. They get a message naming them.
var KnownPlugins = map[string]string{
	"emoji":     "Per-author emoji frequency over a transcript.",
	"wordcloud": "Word cloud images from the message bodies of each author.",
}

// ErrPluginNotFound is returned when no plugin binary can be located.
var ErrPluginNotFound = errors.New("plugin not found")

// SearchDirs returns the directories searched before PATH, in order: the
// directory holding the chatstat binary, then ~/.chatstat/plugins.
func SearchDirs() []string {
	var dirs []string
	if execPath, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(execPath))
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(homeDir, ".chatstat", "plugins"))
	}
	return dirs
}

// FindPlugin searches SearchDirs and then PATH for chatstat-<command> and
// returns the full path of the first executable found.
func FindPlugin(command string) (string, error) {
	if command == "" || strings.ContainsAny(command, `/\`) {
		return "", ErrPluginNotFound
	}
	return findIn(SearchDirs(), Prefix+command)
}

func findIn(dirs []string, name string) (string, error) {
	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	return "", ErrPluginNotFound
}

// Execute runs a plugin with the given arguments.
// It connects stdin, stdout, and stderr to the plugin process
// and returns the plugin's exit code.
func Execute(pluginPath string, args []string) int {
	cmd := exec.Command(pluginPath, args...) // #nosec G204 -- plugin paths come from FindPlugin
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = pluginEnv()

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing plugin: %v\n", err)
		return 2
	}

	return 0
}

func pluginEnv() []string {
	env := os.Environ()
	if self, err := os.Executable(); err == nil {
		env = append(env, BinaryEnv+"="+self)
	}
	return env
}

// FormatNotFoundError returns a helpful error message when a plugin is not found.
// If the command is a known plugin, includes what it does.
func FormatNotFoundError(command string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "unknown command %q for \"chatstat\"\n", command)

	if info, ok := KnownPlugins[command]; ok {
		fmt.Fprintf(&sb, "\n%q is available as a plugin.\n", command)
		sb.WriteString(info)
		sb.WriteString("\n\nInstall the plugin binary as one of:\n")
	} else {
		sb.WriteString("\nIf this is a plugin, install the binary as one of:\n")
	}

	name := Prefix + command
	fmt.Fprintf(&sb, "  - %s in the same directory as chatstat\n", name)
	fmt.Fprintf(&sb, "  - ~/.chatstat/plugins/%s\n", name)
	fmt.Fprintf(&sb, "  - %s anywhere in your PATH\n", name)

	sb.WriteString("\nRun 'chatstat --help' for usage.")

	return sb.String()
}

// isExecutable checks if a regular file exists with any execute bit set.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode()&0111 != 0
}
