// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cli implements the rep command: a request/reply benchmark
// server and client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"code.hybscloud.com/rep/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const usage = `Usage:
  rep server [url]
    or
  rep client [url]
`

var errUsage = errors.New("expected a server or client command")

// state is shared by the subcommands once the root has loaded the
// configuration.
type state struct {
	cfgFile  string
	logLevel string

	cfg *config.Config
	log zerolog.Logger
}

// NewRootCmd builds the rep command tree writing to stdout and stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	st := &state{}
	root := &cobra.Command{
		Use:           "rep",
		Short:         "Request/reply benchmark over a bounded pool of completion-driven workers",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          usageArgs(cobra.NoArgs),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := st.cfgFile
			if path == "" {
				path = config.DefaultPath()
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = st.logLevel
			}
			lvl, err := zerolog.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			st.cfg = cfg
			st.log = zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}).
				Level(lvl).With().Timestamp().Logger()
			return nil
		},
		RunE: func(*cobra.Command, []string) error {
			return errUsage
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetUsageTemplate(usage)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVar(&st.cfgFile, "config", "", "config file (default is ~/.rep/config.yaml)")
	root.PersistentFlags().StringVar(&st.logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")

	root.AddCommand(newServerCmd(st), newClientCmd(st))
	return root
}

// Execute runs the command with args and returns the process exit status.
// Anything other than a well-formed server or client invocation prints
// the usage and yields 1.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if err != errUsage {
		fmt.Fprintln(stderr, "Error:", err)
	}
	if errors.Is(err, errUsage) {
		fmt.Fprint(stderr, usage)
	}
	return 1
}

// usageArgs marks positional argument errors as usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return nil
	}
}
