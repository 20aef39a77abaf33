package scrimservice

import (
	"context"
	"fmt"
	"log/slog"

	scrimdb "github.com/Stouckie/Scrimpilot/app/modules/scrim/infrastructure/repositories"
	"github.com/Stouckie/Scrimpilot/app/shared/platform"
	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
	"github.com/Stouckie/Scrimpilot/internal/ledger"
)

// ReportInput is the payload for ReportScrim.
type ReportInput struct {
	ScrimID            string
	CaptainID          string
	Score              string
	VictoryProofURL    string
	ScoreboardProofURL string
	Note               string
}

// verifyProof resolves a proof link and checks it was posted by the reporter,
// inside the match thread, with an attachment.
func (s *Service) verifyProof(ctx context.Context, label, rawURL, reporterID, threadID string) (platform.ProofClaim, error) {
	claim, err := s.proofs.Resolve(ctx, rawURL)
	if err != nil {
		return platform.ProofClaim{}, fmt.Errorf("%w: %s proof: %v", ErrProofRejected, label, err)
	}
	if claim.AuthorID != reporterID {
		return platform.ProofClaim{}, fmt.Errorf("%w: %s proof was not posted by the reporter", ErrProofRejected, label)
	}
	if claim.ChannelID != threadID {
		return platform.ProofClaim{}, fmt.Errorf("%w: %s proof is not in the match thread", ErrProofRejected, label)
	}
	if !claim.HasAttachment {
		return platform.ProofClaim{}, fmt.Errorf("%w: %s proof carries no attachment", ErrProofRejected, label)
	}
	return claim, nil
}

// ReportScrim records one team's result declaration. A re-report replaces the
// team's previous one. Once both teams have reported the scrim moves to
// arbitration and an arbitration ticket is opened.
func (s *Service) ReportScrim(ctx context.Context, input ReportInput) (scrimdb.Scrim, error) {
	ctx, span := s.tracer.Start(ctx, "scrim.ReportScrim")
	defer span.End()
	start := s.now()
	s.metrics.RecordOperationAttempt(ctx, "report_scrim", "scrim")

	var updated scrimdb.Scrim
	bothReported := false
	err := func() error {
		team, err := s.captainTeam(ctx, input.CaptainID, false)
		if err != nil {
			return err
		}
		score, err := sharedtypes.NormalizeScore(input.Score)
		if err != nil {
			return err
		}

		scrim, err := s.Scrim(ctx, input.ScrimID)
		if err != nil {
			return err
		}
		if !scrim.Reportable() {
			return fmt.Errorf("%w: %s is %s", ErrWrongStatus, scrim.ID, scrim.Status)
		}
		if !scrim.Engaged(team.ID) {
			return fmt.Errorf("%w: %s does not play in scrim %s", ErrNotCaptain, team.Name, scrim.ID)
		}

		if _, err := s.verifyProof(ctx, "victory", input.VictoryProofURL, input.CaptainID, scrim.ThreadID); err != nil {
			return err
		}
		if _, err := s.verifyProof(ctx, "scoreboard", input.ScoreboardProofURL, input.CaptainID, scrim.ThreadID); err != nil {
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
		_, err = s.scrims.Update(ctx, func(scrims []scrimdb.Scrim) ([]scrimdb.Scrim, error) {
			scrim, ok := ledger.Find(scrims, input.ScrimID)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrScrimNotFound, input.ScrimID)
			}
			if !scrim.Reportable() {
				return nil, fmt.Errorf("%w: %s is %s", ErrWrongStatus, scrim.ID, scrim.Status)
			}
			scrim.Reports = scrimdb.UpsertReport(scrim.Reports, report)
			_, hostIn := scrimdb.FindReport(scrim.Reports, scrim.HostTeamID)
			_, guestIn := scrimdb.FindReport(scrim.Reports, scrim.GuestTeamID)
			bothReported = hostIn && guestIn
			if bothReported {
				scrim.Status = sharedtypes.StatusAwaitingArbitration
			}
			scrim.UpdatedAt = s.now()
			updated = scrim
			return ledger.Replace(scrims, scrim), nil
		})
		return err
	}()
	defer s.instrument(ctx, "report_scrim", err, start)
	if err != nil {
		return scrimdb.Scrim{}, err
	}

	if bothReported {
		if err := s.openArbitration(ctx, updated); err != nil {
			return updated, err
		}
		if err := s.scheduler.CancelMatch(ctx, updated.ID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to cancel match timers",
				slog.String("scrim_id", updated.ID),
				slog.Any("error", err),
			)
		}
	}

	s.logger.InfoContext(ctx, "Scrim result reported",
		slog.String("scrim_id", updated.ID),
		slog.Bool("both_reported", bothReported),
	)
	return updated, nil
}

// openArbitration opens the ticket for a fully reported scrim and stores its
// id. Ticket creation is idempotent, so a failed attempt can be retried by
// re-reporting.
func (s *Service) openArbitration(ctx context.Context, scrim scrimdb.Scrim) error {
	ticketID, err := s.tickets.CreateScrimTicket(ctx, scrim)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to open arbitration ticket",
			slog.String("scrim_id", scrim.ID),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to open arbitration ticket for %s: %w", scrim.ID, err)
	}
	_, err = s.scrims.Update(ctx, func(scrims []scrimdb.Scrim) ([]scrimdb.Scrim, error) {
		stored, ok := ledger.Find(scrims, scrim.ID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrScrimNotFound, scrim.ID)
		}
		stored.ArbitrationTicketID = ticketID
		stored.UpdatedAt = s.now()
		return ledger.Replace(scrims, stored), nil
	})
	return err
}
