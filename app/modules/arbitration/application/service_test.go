package arbservice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	arbdb "github.com/Stouckie/Scrimpilot/app/modules/arbitration/infrastructure/repositories"
	ladderdb "github.com/Stouckie/Scrimpilot/app/modules/ladder/infrastructure/repositories"
	scrimdb "github.com/Stouckie/Scrimpilot/app/modules/scrim/infrastructure/repositories"
	"github.com/Stouckie/Scrimpilot/app/shared/platform"
	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
	"github.com/Stouckie/Scrimpilot/config"
	"github.com/Stouckie/Scrimpilot/internal/ledger"
	"github.com/Stouckie/Scrimpilot/internal/observability"
)

var baseTime = time.Date(2026, 5, 6, 21, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	tickets  *ledger.MemoryStore[arbdb.Ticket]
	scrims   *ledger.MemoryStore[scrimdb.Scrim]
	ladders  *ledger.MemoryStore[ladderdb.Ladder]
	notifier *platform.FakeNotifier
}

func newFixture(t *testing.T, fallback config.ConflictFallback) *fixture {
	t.Helper()
	f := &fixture{
		tickets:  ledger.NewMemoryStore[arbdb.Ticket](),
		scrims:   ledger.NewMemoryStore[scrimdb.Scrim](),
		ladders:  ledger.NewMemoryStore[ladderdb.Ladder](),
		notifier: &platform.FakeNotifier{},
	}
	f.svc = NewService(f.tickets, f.scrims, f.ladders, f.notifier, fallback,
		observability.NewTestLogger(), observability.NoOpMetrics{}, observability.Tracer())
	f.svc.WithClock(func() time.Time { return baseTime })
	return f
}

func report(teamID, by string, score sharedtypes.Score) scrimdb.Report {
	return scrimdb.Report{
		TeamID:             teamID,
		ReportedBy:         by,
		Score:              score,
		SubmittedAt:        baseTime,
		VictoryProofURL:    "https://proof/" + teamID + "-win",
		ScoreboardProofURL: "https://proof/" + teamID + "-board",
	}
}

// seedScrim stores a fully reported scrim and opens its ticket.
func (f *fixture) seedScrim(t *testing.T, hostScore, guestScore sharedtypes.Score) (scrimdb.Scrim, arbdb.Ticket) {
	t.Helper()
	ctx := context.Background()
	scrim := scrimdb.Scrim{
		ID:          "scrim-1",
		Status:      sharedtypes.StatusAwaitingArbitration,
		HostTeamID:  "team-a",
		GuestTeamID: "team-b",
		ThreadID:    "thread-1",
		Reports: []scrimdb.Report{
			report("team-a", "a-1", hostScore),
			report("team-b", "b-1", guestScore),
		},
	}
	_, err := f.scrims.Update(ctx, func(scrims []scrimdb.Scrim) ([]scrimdb.Scrim, error) {
		return append(scrims, scrim), nil
	})
	require.NoError(t, err)
	ticketID, err := f.svc.CreateScrimTicket(ctx, scrim)
	require.NoError(t, err)
	ticket, err := f.svc.Ticket(ctx, ticketID)
	require.NoError(t, err)
	return scrim, ticket
}

// seedLadderMatch stores a ladder with a fully reported match and its ticket.
func (f *fixture) seedLadderMatch(t *testing.T, hostScore, guestScore sharedtypes.Score) (ladderdb.Match, arbdb.Ticket) {
	t.Helper()
	ctx := context.Background()
	match := ladderdb.Match{
		ID:          "match-1",
		LadderID:    "ladder-1",
		HostTeamID:  "team-a",
		GuestTeamID: "team-b",
		QueueLevel:  sharedtypes.LevelOpen,
		Status:      sharedtypes.StatusAwaitingArbitration,
		Reports: []scrimdb.Report{
			report("team-a", "a-1", hostScore),
			report("team-b", "b-1", guestScore),
		},
	}
	ladder := ladderdb.Ladder{
		ID:     "ladder-1",
		Name:   "Open Weekly",
		Status: sharedtypes.LadderActive,
		Entries: []ladderdb.Entry{
			{TeamID: "team-a", Rating: 1000},
			{TeamID: "team-b", Rating: 1000},
		},
		Matches: []ladderdb.Match{match},
	}
	_, err := f.ladders.Update(ctx, func(ladders []ladderdb.Ladder) ([]ladderdb.Ladder, error) {
		return append(ladders, ladder), nil
	})
	require.NoError(t, err)
	ticketID, err := f.svc.CreateLadderTicket(ctx, ladder, match)
	require.NoError(t, err)
	ticket, err := f.svc.Ticket(ctx, ticketID)
	require.NoError(t, err)
	return match, ticket
}

func TestCreateScrimTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("agreeing reports open a clean ticket with a card", func(t *testing.T) {
		f := newFixture(t, config.FallbackRequireChoice)
		_, ticket := f.seedScrim(t, "A3-B1", "A3-B1")
		assert.Equal(t, sharedtypes.TicketPending, ticket.State)
		assert.False(t, ticket.Conflict)
		assert.Len(t, ticket.EvidenceURLs, 4)
		assert.Equal(t, "arbitration", ticket.CardChannelID)
		require.Len(t, f.notifier.Cards, 1)
	})

	t.Run("conflicting scores flag the ticket", func(t *testing.T) {
		f := newFixture(t, config.FallbackRequireChoice)
		_, ticket := f.seedScrim(t, "A3-B1", "A2-B3")
		assert.True(t, ticket.Conflict)
		assert.Contains(t, f.notifier.Cards[0].Summary, "A3-B1")
	})

	t.Run("a second create reuses the open ticket", func(t *testing.T) {
		f := newFixture(t, config.FallbackRequireChoice)
		scrim, ticket := f.seedScrim(t, "A3-B1", "A3-B1")

		// The guest re-reported a different score before retrying.
		scrim.Reports = scrimdb.UpsertReport(scrim.Reports, report("team-b", "b-1", "A2-B3"))
		againID, err := f.svc.CreateScrimTicket(ctx, scrim)
		require.NoError(t, err)
		assert.Equal(t, ticket.ID, againID)
		assert.Len(t, f.notifier.Cards, 1, "no duplicate card")

		refreshed, err := f.svc.Ticket(ctx, againID)
		require.NoError(t, err)
		assert.True(t, refreshed.Conflict)
		require.NotNil(t, refreshed.GuestReport)
		assert.Equal(t, sharedtypes.Score("A2-B3"), refreshed.GuestReport.Score)
	})
}

func TestDecideValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("agreeing scrim reports validate outright", func(t *testing.T) {
		f := newFixture(t, config.FallbackRequireChoice)
		_, ticket := f.seedScrim(t, "A3-B1", "A3-B1")

		decided, err := f.svc.Decide(ctx, DecideInput{
			TicketID: ticket.ID, RefereeID: "ref-1", Action: ActionValidate,
		})
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.TicketValidated, decided.State)
		assert.Equal(t, "ref-1", decided.RefereeID)

		stored, err := f.scrims.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.StatusValidated, stored[0].Status)
		assert.Equal(t, sharedtypes.Score("A3-B1"), stored[0].Result)
		assert.Equal(t, "ref-1", stored[0].ValidatedBy)
		require.NotNil(t, stored[0].ValidatedAt)

		require.Len(t, f.notifier.CardUpdates, 1)
		assert.True(t, f.notifier.CardUpdates[0].Closed)
	})

	t.Run("a validated ladder match moves Elo and counters", func(t *testing.T) {
		f := newFixture(t, config.FallbackRequireChoice)
		_, ticket := f.seedLadderMatch(t, "A3-B0", "A3-B0")

		_, err := f.svc.Decide(ctx, DecideInput{
			TicketID: ticket.ID, RefereeID: "ref-1", Action: ActionValidate,
		})
		require.NoError(t, err)

		stored, err := f.ladders.Read(ctx)
		require.NoError(t, err)
		ladder := stored[0]
		assert.Equal(t, 1012, ladder.Entries[0].Rating)
		assert.Equal(t, 988, ladder.Entries[1].Rating)
		assert.Equal(t, 1, ladder.Entries[0].Wins)
		assert.Equal(t, 1, ladder.Entries[1].Losses)
		assert.Equal(t, sharedtypes.StatusValidated, ladder.Matches[0].Status)
		require.NotNil(t, ladder.Matches[0].CompletedAt)
	})

	t.Run("a drawn ladder score moves no counters", func(t *testing.T) {
		f := newFixture(t, config.FallbackRequireChoice)
		_, ticket := f.seedLadderMatch(t, "A2-B2", "A2-B2")

		_, err := f.svc.Decide(ctx, DecideInput{
			TicketID: ticket.ID, RefereeID: "ref-1", Action: ActionValidate,
		})
		require.NoError(t, err)

		stored, err := f.ladders.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1000, stored[0].Entries[0].Rating)
		assert.Zero(t, stored[0].Entries[0].Wins)
		assert.Zero(t, stored[0].Entries[1].Wins)
	})

	t.Run("conflict requires a choice when configured so", func(t *testing.T) {
		f := newFixture(t, config.FallbackRequireChoice)
		_, ticket := f.seedScrim(t, "A3-B1", "A2-B3")

		_, err := f.svc.Decide(ctx, DecideInput{
			TicketID: ticket.ID, RefereeID: "ref-1", Action: ActionValidate,
		})
		assert.ErrorIs(t, err, ErrScoreChoiceRequired)

		chosen := sharedtypes.Score("A2-B3")
		decided, err := f.svc.Decide(ctx, DecideInput{
			TicketID: ticket.ID, RefereeID: "ref-1", Action: ActionValidate, ChosenScore: &chosen,
		})
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.TicketValidated, decided.State)

		stored, err := f.scrims.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, chosen, stored[0].Result)
	})

	t.Run("host fallback resolves conflicts without a choice", func(t *testing.T) {
		f := newFixture(t, config.FallbackHost)
		_, ticket := f.seedScrim(t, "A3-B1", "A2-B3")

		_, err := f.svc.Decide(ctx, DecideInput{
			TicketID: ticket.ID, RefereeID: "ref-1", Action: ActionValidate,
		})
		require.NoError(t, err)

		stored, err := f.scrims.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.Score("A3-B1"), stored[0].Result)
	})
}

func TestDecideClose(t *testing.T) {
	ctx := context.Background()

	t.Run("non-validation decisions require a justification", func(t *testing.T) {
		f := newFixture(t, config.FallbackRequireChoice)
		_, ticket := f.seedScrim(t, "A3-B1", "A3-B1")
		_, err := f.svc.Decide(ctx, DecideInput{
			TicketID: ticket.ID, RefereeID: "ref-1", Action: ActionRefuse,
		})
		assert.ErrorIs(t, err, ErrJustificationRequired)
	})

	t.Run("refusal clears the result", func(t *testing.T) {
		f := newFixture(t, config.FallbackRequireChoice)
		_, ticket := f.seedScrim(t, "A3-B1", "A3-B1")
		decided, err := f.svc.Decide(ctx, DecideInput{
			TicketID: ticket.ID, RefereeID: "ref-1", Action: ActionRefuse,
			Justification: "victory screenshot is cropped",
		})
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.TicketRefused, decided.State)

		stored, err := f.scrims.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.StatusRefused, stored[0].Status)
		assert.Empty(t, stored[0].Result)
	})

	t.Run("a dispute keeps the result on file", func(t *testing.T) {
		f := newFixture(t, config.FallbackRequireChoice)
		_, ticket := f.seedScrim(t, "A3-B1", "A3-B1")
		_, err := f.scrims.Update(ctx, func(scrims []scrimdb.Scrim) ([]scrimdb.Scrim, error) {
			scrims[0].Result = "A3-B1"
			return scrims, nil
		})
		require.NoError(t, err)

		decided, err := f.svc.Decide(ctx, DecideInput{
			TicketID: ticket.ID, RefereeID: "ref-1", Action: ActionDispute,
			Justification: "teams contest the last game",
		})
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.TicketDispute, decided.State)

		stored, err := f.scrims.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.StatusDispute, stored[0].Status)
		assert.Equal(t, sharedtypes.Score("A3-B1"), stored[0].Result)
	})

	t.Run("needs_info keeps the ticket open and the match reportable", func(t *testing.T) {
		f := newFixture(t, config.FallbackRequireChoice)
		_, ticket := f.seedScrim(t, "A3-B1", "A3-B1")
		decided, err := f.svc.Decide(ctx, DecideInput{
			TicketID: ticket.ID, RefereeID: "ref-1", Action: ActionNeedsInfo,
			Justification: "need the full scoreboard",
		})
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.TicketNeedsInfo, decided.State)
		assert.False(t, decided.State.Terminal())

		stored, err := f.scrims.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.StatusAwaitingArbitration, stored[0].Status)

		// The referee can still rule once better evidence lands.
		_, err = f.svc.Decide(ctx, DecideInput{
			TicketID: ticket.ID, RefereeID: "ref-1", Action: ActionValidate,
		})
		require.NoError(t, err)
	})

	t.Run("a closed ticket rejects further decisions", func(t *testing.T) {
		f := newFixture(t, config.FallbackRequireChoice)
		_, ticket := f.seedScrim(t, "A3-B1", "A3-B1")
		_, err := f.svc.Decide(ctx, DecideInput{
			TicketID: ticket.ID, RefereeID: "ref-1", Action: ActionValidate,
		})
		require.NoError(t, err)
		_, err = f.svc.Decide(ctx, DecideInput{
			TicketID: ticket.ID, RefereeID: "ref-2", Action: ActionRefuse,
			Justification: "second opinion",
		})
		assert.ErrorIs(t, err, ErrTicketClosed)
	})

	t.Run("unknown actions are rejected", func(t *testing.T) {
		f := newFixture(t, config.FallbackRequireChoice)
		_, ticket := f.seedScrim(t, "A3-B1", "A3-B1")
		_, err := f.svc.Decide(ctx, DecideInput{
			TicketID: ticket.ID, RefereeID: "ref-1", Action: Action("shrug"),
		})
		assert.ErrorIs(t, err, ErrUnknownAction)
	})

	t.Run("missing ticket", func(t *testing.T) {
		f := newFixture(t, config.FallbackRequireChoice)
		_, err := f.svc.Decide(ctx, DecideInput{TicketID: "missing", Action: ActionValidate})
		assert.ErrorIs(t, err, ErrTicketNotFound)
	})
}
