package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"relief/internal/core"
)

// StatusView is the data behind `reliefctl status`.
type StatusView struct {
	Totals        core.Totals `json:"totals"`
	DonorCount    int         `json:"donorCount"`
	DonationCount int         `json:"donationCount"`
	ProposalCount int         `json:"proposalCount"`
	VotesCast     int         `json:"votesCast"`
}

// ProposalRow is one proposal with the current voter's flag.
type ProposalRow struct {
	core.Proposal
	HasVoted bool `json:"hasVoted"`
}

func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show fund totals and participation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(_ context.Context, s *Session, out *OutputFormatter) error {
				view := statusView(s)
				return out.Success(view, func(w io.Writer) {
					fmt.Fprintf(w, "Total funds:     %s\n", view.Totals.TotalFunds)
					fmt.Fprintf(w, "Deployed funds:  %s\n", view.Totals.DeployedFunds)
					fmt.Fprintf(w, "Available funds: %s\n", view.Totals.AvailableFunds)
					fmt.Fprintf(w, "Donations:       %d from %d donors\n", view.DonationCount, view.DonorCount)
					fmt.Fprintf(w, "Proposals:       %d (voted on %d)\n", view.ProposalCount, view.VotesCast)
				})
			})
		},
	}
}

func statusView(s *Session) StatusView {
	voted := 0
	for _, v := range s.Engine.VoteRecord() {
		if v {
			voted++
		}
	}
	return StatusView{
		Totals:        s.Engine.Totals(),
		DonorCount:    s.Engine.DonorCount(),
		DonationCount: len(s.Engine.Donations()),
		ProposalCount: len(s.Engine.Proposals()),
		VotesCast:     voted,
	}
}

// DonateOptions holds flags for the donate command.
type DonateOptions struct {
	*RootOptions
	Amount string
	Donor  string
}

func NewDonateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DonateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "donate --amount <amount> --donor <name>",
		Short: "Record a donation",
		Long: `Record a self-reported donation to the community fund.

Example:
  reliefctl donate --amount 25.50 --donor "Ana"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, s *Session, out *OutputFormatter) error {
				return donate(ctx, opts, s, out)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Amount, "amount", "", "donation amount, e.g. 25.50 or 25,50")
	cmd.Flags().StringVar(&opts.Donor, "donor", "", "donor display name")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("donor")

	return cmd
}

func donate(ctx context.Context, opts *DonateOptions, s *Session, out *OutputFormatter) error {
	cents, err := core.ParseDecimalToCents(opts.Amount)
	if err != nil {
		return reject(out, "invalid_donation", "amount must be a positive number", errors.Join(core.ErrInvalidDonation, err))
	}

	totals, err := s.Engine.Donate(ctx, core.Money{Cents: cents}, opts.Donor)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrInvalidDonation):
		msg := "invalid donation"
		if errors.Is(err, core.ErrEmptyDonor) {
			msg = "donor name is required"
		}
		return reject(out, "invalid_donation", msg, err)
	case errors.Is(err, core.ErrStoreWrite):
		_ = out.Error("store_unavailable", "donation recorded but not saved", true)
		return WrapExitError(ExitNotSaved, "donation not saved", err)
	default:
		return WrapExitError(ExitCommandError, "donation failed", err)
	}

	return out.Success(map[string]any{"totals": totals, "donorCount": s.Engine.DonorCount()}, func(w io.Writer) {
		fmt.Fprintf(w, "Thank you! Recorded %s. Total funds: %s\n", core.Money{Cents: cents}, totals.TotalFunds)
	})
}

func NewVoteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "vote <proposal-id>",
		Short: "Vote for a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid proposal id", err)
			}
			return opts.withSession(cmd, func(ctx context.Context, s *Session, out *OutputFormatter) error {
				return vote(ctx, id, s, out)
			})
		},
	}
}

func vote(ctx context.Context, id int64, s *Session, out *OutputFormatter) error {
	_, err := s.Engine.Vote(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrProposalNotFound):
		return reject(out, "proposal_not_found", fmt.Sprintf("no proposal with id %d", id), err)
	case errors.Is(err, core.ErrAlreadyVoted):
		return reject(out, "already_voted", "you have already voted on this proposal", err)
	case errors.Is(err, core.ErrStoreWrite):
		_ = out.Error("store_unavailable", "vote recorded but not saved", true)
		return WrapExitError(ExitNotSaved, "vote not saved", err)
	default:
		return WrapExitError(ExitCommandError, "vote failed", err)
	}

	p, _ := s.Engine.Proposal(id)
	return out.Success(ProposalRow{Proposal: p, HasVoted: true}, func(w io.Writer) {
		fmt.Fprintf(w, "Vote recorded for %q (%d votes)\n", p.Title, p.Votes)
	})
}

func NewProposalsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "proposals",
		Short: "List relief proposals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(_ context.Context, s *Session, out *OutputFormatter) error {
				voted := s.Engine.VoteRecord()
				rows := make([]ProposalRow, 0)
				for _, p := range s.Engine.Proposals() {
					rows = append(rows, ProposalRow{Proposal: p, HasVoted: voted[p.ID]})
				}
				return out.Success(rows, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tAMOUNT\tVOTES\tSTATUS\tVOTED")
					for _, r := range rows {
						mark := ""
						if r.HasVoted {
							mark = "yes"
						}
						fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
							r.ID, r.Title, r.EmergencyCategory.Label(), r.Amount, r.Votes, r.Status, mark)
					}
					_ = tw.Flush()
				})
			})
		},
	}
}

// DonationsOptions holds flags for the donations command.
type DonationsOptions struct {
	*RootOptions
	Limit int
}

func NewDonationsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DonationsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "donations",
		Short: "List donations, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Limit < 0 {
				return WrapExitError(ExitCommandError, "invalid flags", fmt.Errorf("--limit must not be negative"))
			}
			return opts.withSession(cmd, func(_ context.Context, s *Session, out *OutputFormatter) error {
				donations := s.Engine.RecentDonations()
				if opts.Limit > 0 && len(donations) > opts.Limit {
					donations = donations[:opts.Limit]
				}
				return out.Success(donations, func(w io.Writer) {
					if len(donations) == 0 {
						fmt.Fprintln(w, "No donations yet.")
						return
					}
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "WHEN\tDONOR\tAMOUNT")
					for _, d := range donations {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Timestamp.Format("2006-01-02 15:04"), d.Donor, d.Amount)
					}
					_ = tw.Flush()
				})
			})
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "show at most n donations (0 = all)")

	return cmd
}

// reject reports a refused action and maps it to ExitFailure.
func reject(out *OutputFormatter, code, message string, err error) error {
	_ = out.Error(code, message, false)
	return WrapExitError(ExitFailure, message, err)
}
