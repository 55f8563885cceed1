package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	open Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the reliefctl command tree. open is called once per
// command to load the engine.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "reliefctl",
		Short: "Community relief fund from the command line",
		Long:  "Record donations, vote on relief proposals and inspect the fund.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return WrapExitError(ExitCommandError, "invalid flags",
					fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewDonateCommand(opts))
	cmd.AddCommand(NewVoteCommand(opts))
	cmd.AddCommand(NewProposalsCommand(opts))
	cmd.AddCommand(NewDonationsCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// withSession opens the engine, reports load warnings in verbose mode and
// closes the session after fn.
func (o *RootOptions) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *Session, out *OutputFormatter) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := o.formatter(cmd)

	s, err := o.open(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open relief store", err)
	}
	defer func() {
		if s.Close == nil {
			return
		}
		if cerr := s.Close(); cerr != nil && err == nil {
			err = WrapExitError(ExitCommandError, "failed to close relief store", cerr)
		}
	}()

	if s.Report.SeededProposals {
		out.VerboseLog("seeded default proposals")
	}
	for _, w := range s.Report.Warnings {
		out.VerboseLog("warning: %v", w)
	}
	return fn(ctx, s, out)
}
