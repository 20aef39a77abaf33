package ladderservice

import (
	"context"
	"sort"

	teamdb "github.com/Stouckie/Scrimpilot/app/modules/team/infrastructure/repositories"
)

// LeaderboardSize is how many rows a standings view carries.
const LeaderboardSize = 10

// LeaderboardRow is one team's standing.
type LeaderboardRow struct {
	Position    int     `json:"position"`
	TeamID      string  `json:"team_id"`
	TeamName    string  `json:"team_name"`
	Rating      int     `json:"rating"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Reliability float64 `json:"reliability"`
}

// Leaderboard returns the ladder's top teams by rating. The sort is stable,
// so teams on equal rating keep their entry order.
func (s *Service) Leaderboard(ctx context.Context, ladderID string) ([]LeaderboardRow, error) {
	ladder, err := s.Ladder(ctx, ladderID)
	if err != nil {
		return nil, err
	}
	teams, err := s.teams.Read(ctx)
	if err != nil {
		return nil, err
	}

	entries := append(ladder.Entries[:0:0], ladder.Entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Rating > entries[j].Rating
	})
	if len(entries) > LeaderboardSize {
		entries = entries[:LeaderboardSize]
	}

	rows := make([]LeaderboardRow, 0, len(entries))
	for i, entry := range entries {
		rows = append(rows, LeaderboardRow{
			Position:    i + 1,
			TeamID:      entry.TeamID,
			TeamName:    teamdb.NameOf(teams, entry.TeamID),
			Rating:      entry.Rating,
			Wins:        entry.Wins,
			Losses:      entry.Losses,
			Reliability: entry.Reliability,
		})
	}
	return rows, nil
}
