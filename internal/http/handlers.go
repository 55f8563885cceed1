package http

import (
	"errors"
	"net/http"

	"relief/internal/core"
	applog "relief/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.engine.Loaded() {
		ErrorResponse(http.StatusServiceUnavailable, CodeNotReady, "state not loaded").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	if s.metrics != nil {
		s.metrics.RateLimited()
	}
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldPath, r.URL.Path,
		applog.FieldClientIP, s.detector.ExtractClientIP(r))
	ErrorResponse(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, please try again later").Write(w)
}

func (s *Server) state() StateView {
	recent := s.engine.RecentDonations()
	count := len(recent)
	if len(recent) > recentDonationsLimit {
		recent = recent[:recentDonationsLimit]
	}
	return StateView{
		Totals:          s.engine.Totals(),
		Proposals:       proposalViews(s.engine.Proposals(), s.engine.VoteRecord()),
		DonorCount:      s.engine.DonorCount(),
		DonationCount:   count,
		RecentDonations: recent,
	}
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(s.state()).Write(w)
}

func (s *Server) handleListDonations(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"donations":  s.engine.RecentDonations(),
		"donorCount": s.engine.DonorCount(),
	}).Write(w)
}

func (s *Server) handleCreateDonation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := ParseDonationRequest(r)
	if err != nil {
		if errors.Is(err, core.ErrInvalidDonation) {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		BadRequestError(err.Error()).Write(w)
		return
	}

	totals, err := s.engine.Donate(ctx, req.Amount, req.Donor)
	switch {
	case err == nil:
		NewJSONResponse().Status(http.StatusCreated).Body(map[string]any{
			"totals":     totals,
			"donorCount": s.engine.DonorCount(),
		}).Write(w)
	case errors.Is(err, core.ErrInvalidDonation):
		UnprocessableEntityError(donationMessage(err)).Write(w)
	case errors.Is(err, core.ErrStoreWrite):
		StoreUnavailableError("donation recorded but not saved", s.state()).Write(w)
	default:
		applog.FromContext(ctx).ErrorContext(ctx, "Donation failed",
			applog.FieldErrorType, applog.ErrorTypeInternal, applog.FieldError, err)
		InternalServerError("donation failed").Write(w)
	}
}

func donationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyDonor):
		return "donor name is required"
	case errors.Is(err, core.ErrInvalidAmount):
		return "amount must be a positive number"
	default:
		return "invalid donation"
	}
}

func (s *Server) handleListProposals(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"proposals": proposalViews(s.engine.Proposals(), s.engine.VoteRecord()),
	}).Write(w)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := ParseProposalID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	p, ok := s.engine.Proposal(id)
	if !ok {
		NotFoundError(CodeProposalNotFound, "proposal not found").Write(w)
		return
	}
	NewJSONResponse().Body(proposalViews([]core.Proposal{p}, s.engine.VoteRecord())[0]).Write(w)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := ParseProposalID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	proposals, err := s.engine.Vote(ctx, id)
	switch {
	case err == nil:
		NewJSONResponse().Body(map[string]any{
			"proposals": proposalViews(proposals, s.engine.VoteRecord()),
		}).Write(w)
	case errors.Is(err, core.ErrProposalNotFound):
		NotFoundError(CodeProposalNotFound, "proposal not found").Write(w)
	case errors.Is(err, core.ErrAlreadyVoted):
		ConflictError("already voted on this proposal").Write(w)
	case errors.Is(err, core.ErrStoreWrite):
		StoreUnavailableError("vote recorded but not saved", s.state()).Write(w)
	default:
		applog.FromContext(ctx).ErrorContext(ctx, "Vote failed",
			applog.FieldErrorType, applog.ErrorTypeInternal, applog.FieldError, err)
		InternalServerError("vote failed").Write(w)
	}
}
