package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/buildgrid/internal/app"
	"github.com/specialistvlad/buildgrid/internal/config"
)

// Exit codes returned through ExitError.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
	// Err is the failure behind the exit, if any.
	Err error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"file":             "buildfile",
	"directory":        "directory",
	"limit":            "limit",
	"log-level":        "log.level",
	"log-format":       "log.format",
	"healthcheck-port": "healthcheck.port",
}

// runner carries what every command needs to build an App.
type runner struct {
	outW    io.Writer
	errW    io.Writer
	appOpts []app.Option
}

// NewRootCommand creates the buildgrid command tree. Results go to outW,
// logs and command output to errW.
func NewRootCommand(outW, errW io.Writer, opts ...app.Option) *cobra.Command {
	r := &runner{outW: outW, errW: errW, appOpts: opts}

	root := &cobra.Command{
		Use:   "buildgrid [dependency...]",
		Short: "Build dependency graphs declared in HCL buildfiles",
		Long: `buildgrid reads rules, environments and targets from HCL buildfiles and
builds the requested dependencies, running only the steps whose outputs are
older than their inputs. Independent steps run concurrently.

Without a subcommand it behaves like "build".`,
		Example: `  # Build every chain of ./Buildfile.hcl
  buildgrid

  # Build one target with four concurrent commands
  buildgrid build -j 4 app

  # Show the environment a target provides
  buildgrid environment toolchain`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          r.build,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Message: err.Error(), Err: err}
	})

	pf := root.PersistentFlags()
	pf.String("config", "", "Path to a YAML settings file (default ./"+config.DefaultFile+" when present).")
	pf.StringP("file", "f", "Buildfile.hcl", "Path to a buildfile or a directory containing .hcl files.")
	pf.StringP("directory", "C", ".", "Change to this directory before doing anything.")
	pf.IntP("limit", "j", 0, "Maximum number of concurrent commands (default number of CPUs).")
	pf.String("log-level", "info", "Logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.String("log-format", "compact", "Log output format. Options: 'compact', 'text' or 'json'.")
	pf.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")

	root.AddCommand(
		&cobra.Command{
			Use:   "build [dependency...]",
			Short: "Build dependencies, or every chain when none are named",
			RunE:  r.build,
		},
		&cobra.Command{
			Use:   "list",
			Short: "List targets with their provisions and dependencies",
			Args:  cobra.NoArgs,
			RunE:  r.list,
		},
		&cobra.Command{
			Use:   "graph [dependency...]",
			Short: "Build dependencies and print the files they connect as a Graphviz digraph",
			RunE:  r.graph,
		},
		&cobra.Command{
			Use:   "environment <dependency>",
			Short: "Build a dependency and print the environment it provides as YAML",
			Args:  cobra.ExactArgs(1),
			RunE:  r.environment,
		},
	)
	return root
}

// Execute runs the command tree with args and converts failures into
// ExitErrors.
func Execute(ctx context.Context, args []string, outW, errW io.Writer, opts ...app.Option) error {
	root := NewRootCommand(outW, errW, opts...)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return &ExitError{Code: ExitFailure, Message: err.Error(), Err: err}
}

// newApp loads the configuration, applying the flags the user set, and
// changes into the configured directory.
func (r *runner) newApp(cmd *cobra.Command) (*app.App, error) {
	flags := cmd.Root().PersistentFlags()
	set := map[string]any{}
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		set[key] = f.Value.String()
	}
	file, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(config.Options{File: file, Flags: set})
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: err.Error(), Err: err}
	}
	if cfg.Directory != "" && cfg.Directory != "." {
		if err := os.Chdir(cfg.Directory); err != nil {
			return nil, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("changing directory: %v", err), Err: err}
		}
	}
	return app.New(cfg, r.errW, r.appOpts...), nil
}

func (r *runner) build(cmd *cobra.Command, args []string) error {
	a, err := r.newApp(cmd)
	if err != nil {
		return err
	}
	return a.Run(cmd.Context(), args...)
}

func (r *runner) list(cmd *cobra.Command, _ []string) error {
	a, err := r.newApp(cmd)
	if err != nil {
		return err
	}
	return a.List(cmd.Context(), r.outW)
}

func (r *runner) environment(cmd *cobra.Command, args []string) error {
	a, err := r.newApp(cmd)
	if err != nil {
		return err
	}
	return a.Environment(cmd.Context(), r.outW, args[0])
}

func (r *runner) graph(cmd *cobra.Command, args []string) error {
	a, err := r.newApp(cmd)
	if err != nil {
		return err
	}
	return a.Graph(cmd.Context(), r.outW, args...)
}
