package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/spacegraph/pkg/buildinfo"
	"github.com/matzehuels/spacegraph/pkg/config"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
)

// Exit codes returned by [ExitCode].
const (
	ExitOK        = 0
	ExitError     = 1
	ExitUsage     = 2
	ExitCancelled = 130 // shell convention for SIGINT
)

// SetVersion sets the version information displayed by --version.
// This is typically called by the main package with values injected via
// ldflags at build time.
func SetVersion(v, c, d string) {
	buildinfo.Version = v
	buildinfo.Commit = c
	buildinfo.Date = d
}

// loadConfig reads --config, or the default config file when one exists,
// and attaches the logger to the command context.
func (c *CLI) loadConfig(cmd *cobra.Command, args []string) error {
	path := c.configPath
	if path == "" {
		path = config.DefaultPath()
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		c.Config = cfg
		c.Logger.Debug("loaded config", "path", path)
	}
	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	return nil
}

// ExitCode maps a command error to a process exit code. Domain errors are
// classified through their registered codes.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return ExitCancelled
	}
	switch sgerrors.GetCode(sgerrors.FromDomain(err, "command failed")) {
	case sgerrors.ErrCodeCancelled:
		return ExitCancelled
	case sgerrors.ErrCodeInvalidInput, sgerrors.ErrCodeInvalidOptions, sgerrors.ErrCodeInvalidFormat,
		sgerrors.ErrCodeInvalidPath, sgerrors.ErrCodeInvalidName:
		return ExitUsage
	}
	return ExitError
}

// Describe returns the message printed for a failed command: the error
// code of a classified failure followed by the full error chain.
func Describe(err error) string {
	if code := sgerrors.GetCode(sgerrors.FromDomain(err, "")); code != "" && code != sgerrors.ErrCodeInternal {
		if sgerrors.GetCode(err) == "" {
			return string(code) + ": " + err.Error()
		}
	}
	return err.Error()
}
