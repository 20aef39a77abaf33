package arbservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	arbdb "github.com/Stouckie/Scrimpilot/app/modules/arbitration/infrastructure/repositories"
	ladderdb "github.com/Stouckie/Scrimpilot/app/modules/ladder/infrastructure/repositories"
	scrimdb "github.com/Stouckie/Scrimpilot/app/modules/scrim/infrastructure/repositories"
	"github.com/Stouckie/Scrimpilot/app/shared/platform"
	"github.com/Stouckie/Scrimpilot/app/shared/rating"
	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
	"github.com/Stouckie/Scrimpilot/config"
	"github.com/Stouckie/Scrimpilot/internal/ledger"
)

// DecideInput is one referee decision over a ticket.
type DecideInput struct {
	TicketID      string
	RefereeID     string
	Action        Action
	Justification string
	// ChosenScore resolves conflicting reports. Mandatory when the conflict
	// fallback requires a choice, honored whenever set.
	ChosenScore *sharedtypes.Score
}

// Decide applies a referee decision to a ticket and propagates it to the
// adjudicated match. A terminal ticket rejects further decisions.
func (s *Service) Decide(ctx context.Context, input DecideInput) (arbdb.Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "arbitration.Decide")
	defer span.End()
	start := s.now()
	s.metrics.RecordOperationAttempt(ctx, "decide", "arbitration")

	var updated arbdb.Ticket
	err := func() error {
		ticket, err := s.Ticket(ctx, input.TicketID)
		if err != nil {
			return err
		}
		if ticket.State.Terminal() {
			return fmt.Errorf("%w: %s is %s", ErrTicketClosed, ticket.ID, ticket.State)
		}

		switch input.Action {
		case ActionValidate:
			return s.validate(ctx, ticket, input, &updated)
		case ActionRefuse, ActionDispute, ActionNeedsInfo, ActionDisqualify:
			if strings.TrimSpace(input.Justification) == "" {
				return fmt.Errorf("%w: action %s", ErrJustificationRequired, input.Action)
			}
			return s.close(ctx, ticket, input, &updated)
		default:
			return fmt.Errorf("%w: %q", ErrUnknownAction, input.Action)
		}
	}()
	defer s.instrument(ctx, "decide", err, start)
	if err != nil {
		return arbdb.Ticket{}, err
	}

	s.refreshCard(ctx, updated)

	s.logger.InfoContext(ctx, "Arbitration decision applied",
		slog.String("ticket_id", updated.ID),
		slog.String("action", string(input.Action)),
		slog.String("state", string(updated.State)),
	)
	return updated, nil
}

// resolveScore picks the score a validation commits: an agreeing pair wins
// outright, a conflict resolves by referee choice or the configured fallback.
func (s *Service) resolveScore(ticket arbdb.Ticket, chosen *sharedtypes.Score) (sharedtypes.Score, error) {
	if chosen != nil {
		return *chosen, nil
	}
	if !ticket.Conflict && ticket.HostReport != nil {
		return ticket.HostReport.Score, nil
	}
	switch s.fallback {
	case config.FallbackHost:
		if ticket.HostReport == nil {
			return "", fmt.Errorf("%w: no host report to fall back on", ErrScoreChoiceRequired)
		}
		return ticket.HostReport.Score, nil
	default:
		return "", ErrScoreChoiceRequired
	}
}

func (s *Service) validate(ctx context.Context, ticket arbdb.Ticket, input DecideInput, updated *arbdb.Ticket) error {
	score, err := s.resolveScore(ticket, input.ChosenScore)
	if err != nil {
		return err
	}

	switch ticket.MatchType {
	case sharedtypes.MatchTypeLadder:
		err = s.settleLadderMatch(ctx, ticket.MatchID, score, input.RefereeID)
	default:
		err = s.settleScrim(ctx, ticket.MatchID, score, input.RefereeID)
	}
	if err != nil {
		return err
	}

	return s.storeDecision(ctx, ticket.ID, sharedtypes.TicketValidated, input, updated)
}

// close handles every non-validation disposition.
func (s *Service) close(ctx context.Context, ticket arbdb.Ticket, input DecideInput, updated *arbdb.Ticket) error {
	var (
		ticketState sharedtypes.TicketState
		matchStatus sharedtypes.MatchStatus
	)
	switch input.Action {
	case ActionRefuse:
		ticketState, matchStatus = sharedtypes.TicketRefused, sharedtypes.StatusRefused
	case ActionDispute:
		ticketState, matchStatus = sharedtypes.TicketDispute, sharedtypes.StatusDispute
	case ActionDisqualify:
		ticketState, matchStatus = sharedtypes.TicketDisqualified, sharedtypes.StatusDisqualified
	case ActionNeedsInfo:
		// The match stays reportable and the ticket stays open; the teams
		// are expected to re-report with better evidence.
		ticketState, matchStatus = sharedtypes.TicketNeedsInfo, sharedtypes.StatusAwaitingArbitration
	}

	// A refusal discards whatever result was on file; the other
	// dispositions keep it for the record.
	clearResult := input.Action == ActionRefuse

	var err error
	switch ticket.MatchType {
	case sharedtypes.MatchTypeLadder:
		err = s.setLadderMatchStatus(ctx, ticket.MatchID, matchStatus, clearResult)
	default:
		err = s.setScrimStatus(ctx, ticket.MatchID, matchStatus, clearResult)
	}
	if err != nil {
		return err
	}
	return s.storeDecision(ctx, ticket.ID, ticketState, input, updated)
}

func (s *Service) storeDecision(ctx context.Context, ticketID string, state sharedtypes.TicketState, input DecideInput, updated *arbdb.Ticket) error {
	_, err := s.tickets.Update(ctx, func(tickets []arbdb.Ticket) ([]arbdb.Ticket, error) {
		ticket, ok := ledger.Find(tickets, ticketID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, ticketID)
		}
		if ticket.State.Terminal() {
			return nil, fmt.Errorf("%w: %s is %s", ErrTicketClosed, ticket.ID, ticket.State)
		}
		ticket.State = state
		ticket.RefereeID = input.RefereeID
		ticket.Notes = strings.TrimSpace(input.Justification)
		ticket.UpdatedAt = s.now()
		*updated = ticket
		return ledger.Replace(tickets, ticket), nil
	})
	return err
}

func (s *Service) settleScrim(ctx context.Context, scrimID string, score sharedtypes.Score, refereeID string) error {
	_, err := s.scrims.Update(ctx, func(scrims []scrimdb.Scrim) ([]scrimdb.Scrim, error) {
		scrim, ok := ledger.Find(scrims, scrimID)
		if !ok {
			return nil, fmt.Errorf("scrim %s not found", scrimID)
		}
		at := s.now()
		scrim.Status = sharedtypes.StatusValidated
		scrim.Result = score
		scrim.ValidatedBy = refereeID
		scrim.ValidatedAt = &at
		scrim.UpdatedAt = at
		return ledger.Replace(scrims, scrim), nil
	})
	return err
}

func (s *Service) setScrimStatus(ctx context.Context, scrimID string, status sharedtypes.MatchStatus, clearResult bool) error {
	_, err := s.scrims.Update(ctx, func(scrims []scrimdb.Scrim) ([]scrimdb.Scrim, error) {
		scrim, ok := ledger.Find(scrims, scrimID)
		if !ok {
			return nil, fmt.Errorf("scrim %s not found", scrimID)
		}
		scrim.Status = status
		if clearResult {
			scrim.Result = ""
		}
		scrim.UpdatedAt = s.now()
		return ledger.Replace(scrims, scrim), nil
	})
	return err
}

// settleLadderMatch commits a validated ladder result: the match closes, the
// ratings move by Elo and the win/loss counters advance.
func (s *Service) settleLadderMatch(ctx context.Context, matchID string, score sharedtypes.Score, _ string) error {
	_, err := s.ladders.Update(ctx, func(ladders []ladderdb.Ladder) ([]ladderdb.Ladder, error) {
		ladder, match, ok := ladderdb.FindByMatch(ladders, matchID)
		if !ok {
			return nil, fmt.Errorf("ladder match %s not found", matchID)
		}
		at := s.now()
		match.Status = sharedtypes.StatusValidated
		match.Result = score
		match.CompletedAt = &at
		match.UpdatedAt = at
		for i := range ladder.Matches {
			if ladder.Matches[i].ID == match.ID {
				ladder.Matches[i] = match
			}
		}

		hostGames, guestGames, ok := score.Games()
		if !ok {
			return nil, fmt.Errorf("unreadable validated score %q", score)
		}
		outcome := 0.5
		switch {
		case hostGames > guestGames:
			outcome = 1
		case hostGames < guestGames:
			outcome = 0
		}
		hostIdx, guestIdx := -1, -1
		for i := range ladder.Entries {
			switch ladder.Entries[i].TeamID {
			case match.HostTeamID:
				hostIdx = i
			case match.GuestTeamID:
				guestIdx = i
			}
		}
		if hostIdx >= 0 && guestIdx >= 0 {
			update := rating.ComputeEloUpdate(ladder.Entries[hostIdx].Rating, ladder.Entries[guestIdx].Rating, outcome)
			ladder.Entries[hostIdx].Rating = update.NextHost
			ladder.Entries[guestIdx].Rating = update.NextGuest
			switch {
			case outcome == 1:
				ladder.Entries[hostIdx].Wins++
				ladder.Entries[guestIdx].Losses++
			case outcome == 0:
				ladder.Entries[guestIdx].Wins++
				ladder.Entries[hostIdx].Losses++
			}
		}
		ladder.UpdatedAt = at
		return ledger.Replace(ladders, ladder), nil
	})
	return err
}

func (s *Service) setLadderMatchStatus(ctx context.Context, matchID string, status sharedtypes.MatchStatus, clearResult bool) error {
	_, err := s.ladders.Update(ctx, func(ladders []ladderdb.Ladder) ([]ladderdb.Ladder, error) {
		ladder, match, ok := ladderdb.FindByMatch(ladders, matchID)
		if !ok {
			return nil, fmt.Errorf("ladder match %s not found", matchID)
		}
		match.Status = status
		if clearResult {
			match.Result = ""
		}
		match.UpdatedAt = s.now()
		for i := range ladder.Matches {
			if ladder.Matches[i].ID == match.ID {
				ladder.Matches[i] = match
			}
		}
		ladder.UpdatedAt = s.now()
		return ledger.Replace(ladders, ladder), nil
	})
	return err
}

// refreshCard reflects the decision onto the published referee card.
func (s *Service) refreshCard(ctx context.Context, ticket arbdb.Ticket) {
	if ticket.CardChannelID == "" || ticket.CardMessageID == "" {
		return
	}
	err := s.notifier.UpdateTicketCard(ctx, platform.MessageRef{
		ChannelID: ticket.CardChannelID,
		MessageID: ticket.CardMessageID,
	}, platform.CardUpdate{
		State:  string(ticket.State),
		Note:   ticket.Notes,
		Closed: ticket.State.Terminal(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to refresh ticket card",
			slog.String("ticket_id", ticket.ID),
			slog.Any("error", err),
		)
	}
}
