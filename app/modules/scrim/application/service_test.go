package scrimservice

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scrimdb "github.com/Stouckie/Scrimpilot/app/modules/scrim/infrastructure/repositories"
	teamdb "github.com/Stouckie/Scrimpilot/app/modules/team/infrastructure/repositories"
	userdb "github.com/Stouckie/Scrimpilot/app/modules/user/infrastructure/repositories"
	"github.com/Stouckie/Scrimpilot/app/shared/platform"
	"github.com/Stouckie/Scrimpilot/app/shared/roster"
	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
	"github.com/Stouckie/Scrimpilot/internal/ledger"
	"github.com/Stouckie/Scrimpilot/internal/observability"
)

type fakeTickets struct {
	fail  error
	calls []string
}

func (f *fakeTickets) CreateScrimTicket(_ context.Context, scrim scrimdb.Scrim) (string, error) {
	if f.fail != nil {
		return "", f.fail
	}
	f.calls = append(f.calls, scrim.ID)
	return fmt.Sprintf("ticket-%d", len(f.calls)), nil
}

type fakeScheduler struct {
	registered []string
	cancelled  []string
}

func (f *fakeScheduler) RegisterMatch(_ context.Context, matchID, _ string, _ time.Time) error {
	f.registered = append(f.registered, matchID)
	return nil
}

func (f *fakeScheduler) CancelMatch(_ context.Context, matchID string) error {
	f.cancelled = append(f.cancelled, matchID)
	return nil
}

type penalty struct {
	teamID   string
	delta    float64
	cooldown time.Duration
}

type fakeReliability struct {
	penalties []penalty
}

func (f *fakeReliability) ApplyPenalty(_ context.Context, teamID string, delta float64, cooldown time.Duration, _ string) error {
	f.penalties = append(f.penalties, penalty{teamID, delta, cooldown})
	return nil
}

var baseTime = time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	scrims   *ledger.MemoryStore[scrimdb.Scrim]
	teams    *ledger.MemoryStore[teamdb.Team]
	notifier *platform.FakeNotifier
	proofs   *platform.FakeProofResolver
	tickets  *fakeTickets
	sched    *fakeScheduler
	rel      *fakeReliability
	kickoff  time.Time
}

func seedTeam(ctx context.Context, t *testing.T, f *fixture, members *ledger.MemoryStore[userdb.Member], teamID, name, prefix string) {
	t.Helper()
	slots := make([]teamdb.RosterSlot, 0, 5)
	_, err := members.Update(ctx, func(records []userdb.Member) ([]userdb.Member, error) {
		for i := 1; i <= 5; i++ {
			id := fmt.Sprintf("%s-%d", prefix, i)
			records = append(records, userdb.Member{
				ID: id, PlatformID: id,
				Rank: sharedtypes.RankGold, SkillRating: 3,
			})
		}
		return records, nil
	})
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		slots = append(slots, teamdb.RosterSlot{PlayerID: fmt.Sprintf("%s-%d", prefix, i)})
	}
	_, err = f.teams.Update(ctx, func(teams []teamdb.Team) ([]teamdb.Team, error) {
		return append(teams, teamdb.Team{
			ID: teamID, Name: name,
			CaptainID:   prefix + "-1",
			Slots:       slots,
			Reliability: 100,
		}), nil
	})
	require.NoError(t, err)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		scrims:   ledger.NewMemoryStore[scrimdb.Scrim](),
		teams:    ledger.NewMemoryStore[teamdb.Team](),
		notifier: &platform.FakeNotifier{},
		proofs:   &platform.FakeProofResolver{Claims: map[string]platform.ProofClaim{}},
		tickets:  &fakeTickets{},
		sched:    &fakeScheduler{},
		rel:      &fakeReliability{},
		kickoff:  baseTime.Add(48 * time.Hour),
	}
	members := ledger.NewMemoryStore[userdb.Member]()
	seedTeam(ctx, t, f, members, "team-a", "Alpha", "a")
	seedTeam(ctx, t, f, members, "team-b", "Bravo", "b")
	f.svc = NewService(f.scrims, f.teams, members,
		f.rel, f.tickets, f.sched, f.notifier, f.proofs, 3,
		observability.NewTestLogger(), observability.NoOpMetrics{}, observability.Tracer())
	f.svc.WithClock(func() time.Time { return baseTime })
	return f
}

func (f *fixture) post(t *testing.T) scrimdb.Scrim {
	t.Helper()
	scrim, err := f.svc.PostScrim(context.Background(), PostInput{
		CaptainID:   "a-1",
		Category:    sharedtypes.CategorySG,
		Preset:      sharedtypes.PresetOpenQuick,
		ScheduledAt: f.kickoff,
	})
	require.NoError(t, err)
	return scrim
}

func (f *fixture) confirmed(t *testing.T) scrimdb.Scrim {
	t.Helper()
	ctx := context.Background()
	scrim := f.post(t)
	_, err := f.svc.AcceptScrim(ctx, scrim.ID, "b-1")
	require.NoError(t, err)
	scrim, err = f.svc.ConfirmScrim(ctx, scrim.ID, "a-1")
	require.NoError(t, err)
	return scrim
}

// grantProof registers a claim that passes every proof check for reporter.
func (f *fixture) grantProof(url, reporterID, threadID string) {
	f.proofs.Claims[url] = platform.ProofClaim{
		URL: url, AuthorID: reporterID, ChannelID: threadID, HasAttachment: true,
	}
}

func TestPostScrim(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes an open offer", func(t *testing.T) {
		f := newFixture(t)
		scrim := f.post(t)
		assert.Equal(t, sharedtypes.StatusPosted, scrim.Status)
		assert.Equal(t, sharedtypes.LevelOpen, scrim.QueueLevel)
		assert.Equal(t, "team-a", scrim.HostTeamID)
		require.Len(t, scrim.Rosters, 1)
		assert.Equal(t, 3.0, scrim.Rosters[0].DeclaredRating)
	})

	t.Run("rejects a kickoff in the past", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.PostScrim(ctx, PostInput{CaptainID: "a-1", ScheduledAt: baseTime})
		assert.ErrorIs(t, err, ErrPastKickoff)
	})

	t.Run("rejects a team on cooldown", func(t *testing.T) {
		f := newFixture(t)
		until := baseTime.Add(12 * time.Hour)
		_, err := f.teams.Update(ctx, func(teams []teamdb.Team) ([]teamdb.Team, error) {
			for i := range teams {
				if teams[i].ID == "team-a" {
					teams[i].CooldownUntil = &until
				}
			}
			return teams, nil
		})
		require.NoError(t, err)
		_, err = f.svc.PostScrim(ctx, PostInput{CaptainID: "a-1", ScheduledAt: f.kickoff})
		assert.ErrorIs(t, err, ErrTeamOnCooldown)
	})

	t.Run("rejects an understaffed roster", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.teams.Update(ctx, func(teams []teamdb.Team) ([]teamdb.Team, error) {
			for i := range teams {
				if teams[i].ID == "team-a" {
					teams[i].Slots = teams[i].Slots[:4]
				}
			}
			return teams, nil
		})
		require.NoError(t, err)
		_, err = f.svc.PostScrim(ctx, PostInput{CaptainID: "a-1", ScheduledAt: f.kickoff})
		assert.ErrorIs(t, err, roster.ErrNotReady)
	})

	t.Run("rejects a non-captain", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.PostScrim(ctx, PostInput{CaptainID: "a-2", ScheduledAt: f.kickoff})
		assert.ErrorIs(t, err, ErrNotCaptain)
	})
}

func TestAcceptScrim(t *testing.T) {
	ctx := context.Background()

	t.Run("books the scrim for the guest", func(t *testing.T) {
		f := newFixture(t)
		scrim := f.post(t)
		accepted, err := f.svc.AcceptScrim(ctx, scrim.ID, "b-1")
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.StatusAccepted, accepted.Status)
		assert.Equal(t, "team-b", accepted.GuestTeamID)
		assert.Len(t, accepted.Rosters, 2)
	})

	t.Run("host cannot accept its own offer", func(t *testing.T) {
		f := newFixture(t)
		scrim := f.post(t)
		_, err := f.svc.AcceptScrim(ctx, scrim.ID, "a-1")
		assert.ErrorIs(t, err, ErrOwnScrim)
	})

	t.Run("only posted scrims accept", func(t *testing.T) {
		f := newFixture(t)
		scrim := f.post(t)
		_, err := f.svc.AcceptScrim(ctx, scrim.ID, "b-1")
		require.NoError(t, err)
		_, err = f.svc.AcceptScrim(ctx, scrim.ID, "b-1")
		assert.ErrorIs(t, err, ErrWrongStatus)
	})
}

func TestConfirmScrim(t *testing.T) {
	ctx := context.Background()

	t.Run("balanced rosters confirm with a thread and timers", func(t *testing.T) {
		f := newFixture(t)
		scrim := f.confirmed(t)
		assert.Equal(t, sharedtypes.StatusConfirmed, scrim.Status)
		assert.Equal(t, "thread-1", scrim.ThreadID)
		assert.Equal(t, "checkin-1", scrim.CheckInMessageID)
		require.Len(t, scrim.CheckIns, 2)
		assert.Equal(t, []string{scrim.ID}, f.sched.registered)
		require.Len(t, f.notifier.Threads, 1)
		assert.Equal(t, "scrim-alpha-vs-bravo", f.notifier.Threads[0].Name)
		assert.Len(t, f.notifier.Threads[0].MemberIDs, 10)
	})

	t.Run("only the host captain confirms", func(t *testing.T) {
		f := newFixture(t)
		scrim := f.post(t)
		_, err := f.svc.AcceptScrim(ctx, scrim.ID, "b-1")
		require.NoError(t, err)
		_, err = f.svc.ConfirmScrim(ctx, scrim.ID, "b-1")
		assert.ErrorIs(t, err, ErrNotCaptain)
	})

	t.Run("thread creation failure aborts the confirm", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.FailThreadCreate = errors.New("gateway down")
		scrim := f.post(t)
		_, err := f.svc.AcceptScrim(ctx, scrim.ID, "b-1")
		require.NoError(t, err)
		_, err = f.svc.ConfirmScrim(ctx, scrim.ID, "a-1")
		require.Error(t, err)

		stored, err := f.svc.Scrim(ctx, scrim.ID)
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.StatusAccepted, stored.Status)
		assert.Empty(t, f.sched.registered)
	})

	t.Run("an incoherent roster downgrades to practice", func(t *testing.T) {
		f := newFixture(t)
		declared := []float64{0, 0, 3, 5, 5}
		_, err := f.teams.Update(ctx, func(teams []teamdb.Team) ([]teamdb.Team, error) {
			for i := range teams {
				if teams[i].ID != "team-a" {
					continue
				}
				for j := range teams[i].Slots {
					teams[i].Slots[j].DeclaredRating = &declared[j]
				}
			}
			return teams, nil
		})
		require.NoError(t, err)

		scrim := f.post(t)
		_, err = f.svc.AcceptScrim(ctx, scrim.ID, "b-1")
		require.NoError(t, err)
		scrim, err = f.svc.ConfirmScrim(ctx, scrim.ID, "a-1")
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.StatusPractice, scrim.Status)
		assert.Contains(t, scrim.PracticeReason, "spread too high")
	})
}

func TestReportScrim(t *testing.T) {
	ctx := context.Background()

	t.Run("single report stays pending, both trigger arbitration", func(t *testing.T) {
		f := newFixture(t)
		scrim := f.confirmed(t)
		f.grantProof("https://proof/a-win", "a-1", scrim.ThreadID)
		f.grantProof("https://proof/a-board", "a-1", scrim.ThreadID)
		f.grantProof("https://proof/b-win", "b-1", scrim.ThreadID)
		f.grantProof("https://proof/b-board", "b-1", scrim.ThreadID)

		updated, err := f.svc.ReportScrim(ctx, ReportInput{
			ScrimID: scrim.ID, CaptainID: "a-1", Score: "A3-B1",
			VictoryProofURL: "https://proof/a-win", ScoreboardProofURL: "https://proof/a-board",
		})
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.StatusConfirmed, updated.Status)
		assert.Len(t, updated.Reports, 1)
		assert.Empty(t, f.tickets.calls)

		// A re-report replaces the team's previous declaration.
		updated, err = f.svc.ReportScrim(ctx, ReportInput{
			ScrimID: scrim.ID, CaptainID: "a-1", Score: "A3-B2",
			VictoryProofURL: "https://proof/a-win", ScoreboardProofURL: "https://proof/a-board",
		})
		require.NoError(t, err)
		require.Len(t, updated.Reports, 1)
		assert.Equal(t, sharedtypes.Score("A3-B2"), updated.Reports[0].Score)

		updated, err = f.svc.ReportScrim(ctx, ReportInput{
			ScrimID: scrim.ID, CaptainID: "b-1", Score: "A3-B2",
			VictoryProofURL: "https://proof/b-win", ScoreboardProofURL: "https://proof/b-board",
		})
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.StatusAwaitingArbitration, updated.Status)
		assert.Equal(t, []string{scrim.ID}, f.tickets.calls)
		assert.Contains(t, f.sched.cancelled, scrim.ID)

		stored, err := f.svc.Scrim(ctx, scrim.ID)
		require.NoError(t, err)
		assert.Equal(t, "ticket-1", stored.ArbitrationTicketID)
	})

	t.Run("proof checks", func(t *testing.T) {
		f := newFixture(t)
		scrim := f.confirmed(t)
		f.proofs.Claims["https://proof/wrong-author"] = platform.ProofClaim{
			AuthorID: "b-1", ChannelID: scrim.ThreadID, HasAttachment: true,
		}
		f.proofs.Claims["https://proof/wrong-channel"] = platform.ProofClaim{
			AuthorID: "a-1", ChannelID: "elsewhere", HasAttachment: true,
		}
		f.proofs.Claims["https://proof/no-attachment"] = platform.ProofClaim{
			AuthorID: "a-1", ChannelID: scrim.ThreadID,
		}
		f.grantProof("https://proof/ok", "a-1", scrim.ThreadID)

		for _, url := range []string{
			"https://proof/wrong-author",
			"https://proof/wrong-channel",
			"https://proof/no-attachment",
			"https://proof/unresolved",
		} {
			_, err := f.svc.ReportScrim(ctx, ReportInput{
				ScrimID: scrim.ID, CaptainID: "a-1", Score: "A3-B1",
				VictoryProofURL: url, ScoreboardProofURL: "https://proof/ok",
			})
			assert.ErrorIs(t, err, ErrProofRejected, url)
		}
	})

	t.Run("unconfirmed scrims reject reports", func(t *testing.T) {
		f := newFixture(t)
		scrim := f.post(t)
		_, err := f.svc.ReportScrim(ctx, ReportInput{
			ScrimID: scrim.ID, CaptainID: "a-1", Score: "A3-B1",
		})
		assert.ErrorIs(t, err, ErrWrongStatus)
	})
}

func TestCancelScrim(t *testing.T) {
	ctx := context.Background()

	t.Run("early cancellation carries no penalty", func(t *testing.T) {
		f := newFixture(t)
		scrim := f.confirmed(t)
		cancelled, err := f.svc.CancelScrim(ctx, scrim.ID, "b-1", "schedule conflict")
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.StatusCancelled, cancelled.Status)
		assert.Equal(t, "team-b", cancelled.Cancellation.TeamID)
		assert.Empty(t, f.rel.penalties)
		assert.Contains(t, f.sched.cancelled, scrim.ID)
		assert.NotEmpty(t, f.notifier.ThreadPosts[scrim.ThreadID])
	})

	t.Run("cancelling inside the hour costs reliability", func(t *testing.T) {
		f := newFixture(t)
		scrim := f.confirmed(t)
		f.svc.WithClock(func() time.Time { return f.kickoff.Add(-30 * time.Minute) })
		_, err := f.svc.CancelScrim(ctx, scrim.ID, "a-1", "router died")
		require.NoError(t, err)
		require.Len(t, f.rel.penalties, 1)
		assert.Equal(t, penalty{"team-a", -LateCancelPenalty, 0}, f.rel.penalties[0])
	})

	t.Run("a late withdrawal of an unmatched posting still costs", func(t *testing.T) {
		f := newFixture(t)
		scrim := f.post(t)
		f.svc.WithClock(func() time.Time { return f.kickoff.Add(-30 * time.Minute) })
		cancelled, err := f.svc.CancelScrim(ctx, scrim.ID, "a-1", "found nobody")
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.StatusCancelled, cancelled.Status)
		require.Len(t, f.rel.penalties, 1)
		assert.Equal(t, penalty{"team-a", -LateCancelPenalty, 0}, f.rel.penalties[0])
	})

	t.Run("posted scrims are withdrawn by the host only", func(t *testing.T) {
		f := newFixture(t)
		scrim := f.post(t)
		_, err := f.svc.CancelScrim(ctx, scrim.ID, "b-1", "not mine")
		assert.ErrorIs(t, err, ErrNotCaptain)

		cancelled, err := f.svc.CancelScrim(ctx, scrim.ID, "a-1", "changed plans")
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.StatusCancelled, cancelled.Status)
	})

	t.Run("terminal scrims stay put", func(t *testing.T) {
		f := newFixture(t)
		scrim := f.confirmed(t)
		_, err := f.svc.CancelScrim(ctx, scrim.ID, "a-1", "first")
		require.NoError(t, err)
		_, err = f.svc.CancelScrim(ctx, scrim.ID, "b-1", "second")
		assert.ErrorIs(t, err, ErrWrongStatus)
	})
}

func TestCheckIn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scrim := f.confirmed(t)

	updated, err := f.svc.CheckIn(ctx, scrim.ID, "a-1")
	require.NoError(t, err)
	_, err = f.svc.CheckIn(ctx, scrim.ID, "a-1")
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)

	_, err = f.svc.CheckIn(ctx, scrim.ID, "a-2")
	require.NoError(t, err)
	updated, err = f.svc.CheckIn(ctx, scrim.ID, "a-3")
	require.NoError(t, err)
	for _, checkIn := range updated.CheckIns {
		if checkIn.TeamID == "team-a" {
			assert.NotNil(t, checkIn.CompletedAt, "third check-in completes the team")
		} else {
			assert.Nil(t, checkIn.CompletedAt)
		}
	}

	_, err = f.svc.CheckIn(ctx, scrim.ID, "stranger")
	assert.Error(t, err)
}

func TestApplyNoShow(t *testing.T) {
	ctx := context.Background()

	checkInAll := func(t *testing.T, f *fixture, scrimID, prefix string) {
		t.Helper()
		for i := 1; i <= 3; i++ {
			_, err := f.svc.CheckIn(ctx, scrimID, fmt.Sprintf("%s-%d", prefix, i))
			require.NoError(t, err)
		}
	}

	t.Run("absent team forfeits with penalty and cooldown", func(t *testing.T) {
		f := newFixture(t)
		scrim := f.confirmed(t)
		checkInAll(t, f, scrim.ID, "a")

		require.NoError(t, f.svc.ApplyNoShow(ctx, scrim.ID))

		stored, err := f.svc.Scrim(ctx, scrim.ID)
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.StatusNoShow, stored.Status)
		assert.Equal(t, []string{"team-b"}, stored.NoShowTeamIDs)
		require.Len(t, f.rel.penalties, 1)
		assert.Equal(t, penalty{"team-b", -NoShowPenalty, CooldownOpen}, f.rel.penalties[0])
		assert.Contains(t, f.sched.cancelled, scrim.ID)
		require.NotEmpty(t, f.notifier.ThreadPosts[scrim.ThreadID])
		assert.Contains(t, f.notifier.ThreadPosts[scrim.ThreadID][0], "Bravo")
	})

	t.Run("both teams present is a no-op", func(t *testing.T) {
		f := newFixture(t)
		scrim := f.confirmed(t)
		checkInAll(t, f, scrim.ID, "a")
		checkInAll(t, f, scrim.ID, "b")

		require.NoError(t, f.svc.ApplyNoShow(ctx, scrim.ID))

		stored, err := f.svc.Scrim(ctx, scrim.ID)
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.StatusConfirmed, stored.Status)
		assert.Empty(t, f.rel.penalties)
	})

	t.Run("check firing after cancellation is a no-op", func(t *testing.T) {
		f := newFixture(t)
		scrim := f.confirmed(t)
		_, err := f.svc.CancelScrim(ctx, scrim.ID, "a-1", "called off")
		require.NoError(t, err)

		require.NoError(t, f.svc.ApplyNoShow(ctx, scrim.ID))
		stored, err := f.svc.Scrim(ctx, scrim.ID)
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.StatusCancelled, stored.Status)
		assert.Empty(t, f.rel.penalties)
	})
}
