package ladderservice

import (
	"context"
	"fmt"
	"log/slog"

	ladderdb "github.com/Stouckie/Scrimpilot/app/modules/ladder/infrastructure/repositories"
	scrimdb "github.com/Stouckie/Scrimpilot/app/modules/scrim/infrastructure/repositories"
	"github.com/Stouckie/Scrimpilot/app/shared/platform"
	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
	"github.com/Stouckie/Scrimpilot/internal/ledger"
)

// ProofChecker attests proof links. Ladder matches have no private thread,
// so only authorship and attachment are checked.
type ProofChecker interface {
	Resolve(ctx context.Context, rawURL string) (platform.ProofClaim, error)
}

// ReportInput is the payload for ReportMatch.
type ReportInput struct {
	MatchID            string
	CaptainID          string
	Score              string
	VictoryProofURL    string
	ScoreboardProofURL string
	Note               string
}

func (s *Service) verifyProof(ctx context.Context, label, rawURL, reporterID string) error {
	claim, err := s.proofs.Resolve(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("%w: %s proof: %v", ErrProofRejected, label, err)
	}
	if claim.AuthorID != reporterID {
		return fmt.Errorf("%w: %s proof was not posted by the reporter", ErrProofRejected, label)
	}
	if !claim.HasAttachment {
		return fmt.Errorf("%w: %s proof carries no attachment", ErrProofRejected, label)
	}
	return nil
}

// ReportMatch records one team's result for a ladder match. A re-report
// replaces the team's previous one; the second report moves the match to
// arbitration and opens a ticket.
func (s *Service) ReportMatch(ctx context.Context, input ReportInput) (ladderdb.Match, error) {
	ctx, span := s.tracer.Start(ctx, "ladder.ReportMatch")
	defer span.End()
	start := s.now()
	s.metrics.RecordOperationAttempt(ctx, "report_match", "ladder")

	var (
		updatedLadder ladderdb.Ladder
		updated       ladderdb.Match
		bothReported  bool
	)
	err := func() error {
		team, err := s.captainTeam(ctx, input.CaptainID)
		if err != nil {
			return err
		}
		score, err := sharedtypes.NormalizeScore(input.Score)
		if err != nil {
			return err
		}
		if err := s.verifyProof(ctx, "victory", input.VictoryProofURL, input.CaptainID); err != nil {
			return err
		}
		if err := s.verifyProof(ctx, "scoreboard", input.ScoreboardProofURL, input.CaptainID); err != nil {
			return err
		}

		report := scrimdb.Report{
			TeamID:             team.ID,
			ReportedBy:         input.CaptainID,
			Score:              score,
			SubmittedAt:        s.now(),
			VictoryProofURL:    input.VictoryProofURL,
			ScoreboardProofURL: input.ScoreboardProofURL,
			Note:               input.Note,
		}
		_, err = s.ladders.Update(ctx, func(ladders []ladderdb.Ladder) ([]ladderdb.Ladder, error) {
			ladder, match, ok := ladderdb.FindByMatch(ladders, input.MatchID)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, input.MatchID)
			}
			if match.Final() {
				return nil, fmt.Errorf("match %s is already %s", match.ID, match.Status)
			}
			if team.ID != match.HostTeamID && team.ID != match.GuestTeamID {
				return nil, fmt.Errorf("%w: %s does not play in match %s", ErrNotCaptain, team.Name, match.ID)
			}
			match.Reports = scrimdb.UpsertReport(match.Reports, report)
			_, hostIn := scrimdb.FindReport(match.Reports, match.HostTeamID)
			_, guestIn := scrimdb.FindReport(match.Reports, match.GuestTeamID)
			bothReported = hostIn && guestIn
			if bothReported {
				match.Status = sharedtypes.StatusAwaitingArbitration
			}
			match.UpdatedAt = s.now()
			for i := range ladder.Matches {
				if ladder.Matches[i].ID == match.ID {
					ladder.Matches[i] = match
				}
			}
			ladder.UpdatedAt = s.now()
			updatedLadder = ladder
			updated = match
			return ledger.Replace(ladders, ladder), nil
		})
		return err
	}()
	defer s.instrument(ctx, "report_match", err, start)
	if err != nil {
		return ladderdb.Match{}, err
	}

	if bothReported {
		ticketID, err := s.tickets.CreateLadderTicket(ctx, updatedLadder, updated)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to open arbitration ticket",
				slog.String("match_id", updated.ID),
				slog.Any("error", err),
			)
			return updated, fmt.Errorf("failed to open arbitration ticket for %s: %w", updated.ID, err)
		}
		if err := s.attachTicket(ctx, updated.ID, ticketID); err != nil {
			return updated, err
		}
		updated.ArbitrationTicketID = ticketID
	}

	s.logger.InfoContext(ctx, "Ladder result reported",
		slog.String("match_id", updated.ID),
		slog.Bool("both_reported", bothReported),
	)
	return updated, nil
}

func (s *Service) attachTicket(ctx context.Context, matchID, ticketID string) error {
	_, err := s.ladders.Update(ctx, func(ladders []ladderdb.Ladder) ([]ladderdb.Ladder, error) {
		ladder, match, ok := ladderdb.FindByMatch(ladders, matchID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
		}
		match.ArbitrationTicketID = ticketID
		match.UpdatedAt = s.now()
		for i := range ladder.Matches {
			if ladder.Matches[i].ID == match.ID {
				ladder.Matches[i] = match
			}
		}
		return ledger.Replace(ladders, ladder), nil
	})
	return err
}
