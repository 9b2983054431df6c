package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vk/fakegridgo/internal/app"
	"github.com/vk/fakegridgo/internal/sampling"
	"github.com/vk/fakegridgo/internal/sink"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// usageError marks errors caused by bad input rather than a failed run.
func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// Version is set at build time.
var Version = "dev"

// NewRootCmd creates the fakegrid command tree. Records and tables are
// written to outW, logs to errW.
func NewRootCmd(outW, errW io.Writer) *cobra.Command {
	var cfgFile string

	// newApp loads the layered configuration and builds the app.
	newApp := func(cmd *cobra.Command, args []string) (*app.App, error) {
		var decl string
		if len(args) > 0 {
			decl = args[0]
		}
		cfg, err := loadConfig(cfgFile, cmd.Flags(), decl)
		if err != nil {
			return nil, usageError(err)
		}
		return app.NewApp(outW, errW, cfg), nil
	}

	generate := func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, args)
		if err != nil {
			return err
		}
		return a.Run(cmd.Context())
	}

	rootCmd := &cobra.Command{
		Use:   "fakegrid [DECLARATION]",
		Short: "fakegrid - concurrent fake record generator",
		Long: `fakegrid generates batches of fake records from a declaration of fields.

Fields may depend on other fields of the same record through their context;
every field is generated by its own goroutine once its dependencies are done.

A declaration is a .hcl, .yaml, .yml or .json file, or a directory of them.`,
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		RunE:          generate,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(outW)
	rootCmd.SetErr(errW)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./fakegrid.yaml)")
	flags.StringP("declaration", "d", "", "Path to the declaration file or directory.")
	flags.IntP("count", "n", 1, "Number of records to generate.")
	flags.Uint64("seed", 0, "Random seed. 0 picks a random seed and logs it.")
	flags.String("rng-mode", string(sampling.ModeDerived), "Random stream mode: 'derived' (one stream per field) or 'shared'.")
	flags.StringP("format", "f", sink.FormatJSON, fmt.Sprintf("Output format. Options: %v.", sink.Formats))
	flags.StringP("output", "o", "", "Output file; the database file for the sqlite format. Default is stdout.")
	flags.String("sqlite-table", sink.DefaultTable, "Table the sqlite format writes to.")
	flags.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flags.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	_ = rootCmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return sink.Formats, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("rng-mode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(sampling.ModeDerived), string(sampling.ModeShared)}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "generate [DECLARATION]",
		Short: "Generate records (the default command)",
		Example: `  # One record as JSON
  fakegrid generate patients.yaml

  # 100 reproducible records as a table
  fakegrid generate patients.hcl -n 100 --seed 42 -f table

  # Append 1000 records to a SQLite table
  fakegrid generate patients.yaml -n 1000 -f sqlite -o patients.db --sqlite-table patients`,
		Args: cobra.MaximumNArgs(1),
		RunE: generate,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "validate [DECLARATION]",
		Short: "Check a declaration without generating records",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, args)
			if err != nil {
				return err
			}
			return a.Validate(cmd.Context())
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "capabilities",
		Short: "List the registered capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, args)
			if err != nil {
				return err
			}
			return a.Capabilities(cmd.Context())
		},
	})

	return rootCmd
}

// Execute runs the command line given by args.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	rootCmd := NewRootCmd(outW, errW)
	rootCmd.SetArgs(args)

	// cobra parses flags and checks argument counts before the persistent
	// pre-run hook. Errors raised before it are usage errors.
	started := false
	rootCmd.PersistentPreRun = func(*cobra.Command, []string) { started = true }

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	if !started {
		return usageError(err)
	}
	return err
}
