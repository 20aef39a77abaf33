// Package rating implements the skill-rating aggregation, roster balance
// checks and Elo update that gate match transitions.
package rating

import (
	"fmt"
	"math"
	"sort"
	"strings"

	sharedtypes "github.com/Stouckie/Scrimpilot/app/shared/types"
)

var rankSkillRatings = map[sharedtypes.Rank]float64{
	sharedtypes.RankIron:        0,
	sharedtypes.RankBronze:      1,
	sharedtypes.RankSilver:      2,
	sharedtypes.RankGold:        3,
	sharedtypes.RankPlatinum:    4,
	sharedtypes.RankEmerald:     5,
	sharedtypes.RankDiamond:     6,
	sharedtypes.RankMaster:      7,
	sharedtypes.RankGrandmaster: 8,
	sharedtypes.RankChallenger:  9.5,
}

// ForRank returns the numeric skill rating for a ladder rank.
func ForRank(rank sharedtypes.Rank) float64 {
	return rankSkillRatings[rank]
}

func round1(value float64) float64 {
	return math.Round(value*10) / 10
}

// TeamSkillRating computes the trimmed-mean team rating: with more than two
// values, the single lowest and highest are dropped before averaging, so one
// outlier rank cannot skew the team's declared strength. Rounded to one
// decimal.
func TeamSkillRating(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) > 2 {
		sorted = sorted[1 : len(sorted)-1]
	}
	var total float64
	for _, value := range sorted {
		total += value
	}
	return round1(total / float64(len(sorted)))
}

// BalanceOptions tune the roster coherence checks.
type BalanceOptions struct {
	// Window is the ± band around the team rating a player must fall in to
	// count as aligned.
	Window float64
	// MinAligned is the minimum number of aligned players.
	MinAligned int
	// MaxSpread is the maximum allowed max−min rating spread.
	MaxSpread float64
}

// DefaultBalanceOptions are the production guardrails.
var DefaultBalanceOptions = BalanceOptions{Window: 1.0, MinAligned: 3, MaxSpread: 4.0}

// BalanceResult reports the roster coherence computation. PracticeRequired is
// a soft flag: the match still happens, just tagged as practice.
type BalanceResult struct {
	TeamRating       float64
	Spread           float64
	AlignedCount     int
	PracticeRequired bool
	Reasons          []string
}

// ValidateRosterBalance computes the team rating, the spread, and how many
// players sit within the coherence window, flagging practice mode when the
// roster is too uneven.
func ValidateRosterBalance(values []float64, opts BalanceOptions) BalanceResult {
	if opts.Window == 0 && opts.MinAligned == 0 && opts.MaxSpread == 0 {
		opts = DefaultBalanceOptions
	}

	if len(values) == 0 {
		return BalanceResult{
			PracticeRequired: true,
			Reasons:          []string{"no players declared for the match"},
		}
	}

	teamRating := TeamSkillRating(values)
	lowest, highest := values[0], values[0]
	aligned := 0
	for _, value := range values {
		lowest = math.Min(lowest, value)
		highest = math.Max(highest, value)
		if value >= teamRating-opts.Window && value <= teamRating+opts.Window {
			aligned++
		}
	}
	spread := highest - lowest

	result := BalanceResult{
		TeamRating:   teamRating,
		Spread:       round1(spread),
		AlignedCount: aligned,
	}
	if spread > opts.MaxSpread {
		result.PracticeRequired = true
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("internal spread too high (%.1f > %.1f)", spread, opts.MaxSpread))
	}
	if aligned < opts.MinAligned {
		result.PracticeRequired = true
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("only %d player(s) within ±%.1f of the team rating (min %d)", aligned, opts.Window, opts.MinAligned))
	}
	return result
}

// Reason joins the balance reasons for display.
func (r BalanceResult) Reason() string {
	return strings.Join(r.Reasons, " ")
}

var levelTolerances = map[sharedtypes.QueueLevel]float64{
	sharedtypes.LevelOpen:    1.0,
	sharedtypes.LevelAcademy: 0.5,
	sharedtypes.LevelPro:     0.3,
}

// Tolerance returns the default matchup tolerance for a queue level; tighter
// at higher competitive levels. Unknown levels fall back to Open.
func Tolerance(level sharedtypes.QueueLevel) float64 {
	if tolerance, ok := levelTolerances[level]; ok {
		return tolerance
	}
	return levelTolerances[sharedtypes.LevelOpen]
}

// MatchupResult reports whether two team ratings are close enough to pair.
type MatchupResult struct {
	Balanced  bool
	Delta     float64
	Tolerance float64
}

// Matchup checks |hostRating−guestRating| against the queue-level tolerance.
// A non-nil custom tolerance overrides the level default.
func Matchup(hostRating, guestRating float64, level sharedtypes.QueueLevel, custom *float64) MatchupResult {
	tolerance := Tolerance(level)
	if custom != nil {
		tolerance = *custom
	}
	delta := math.Abs(hostRating - guestRating)
	return MatchupResult{
		Balanced:  delta <= tolerance,
		Delta:     round1(delta),
		Tolerance: tolerance,
	}
}
