package ladderservice

import (
	"bytes"
	"context"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/xuri/excelize/v2"
)

// ExportLeaderboardXLSX renders the standings as a spreadsheet.
func (s *Service) ExportLeaderboardXLSX(ctx context.Context, ladderID string) ([]byte, error) {
	rows, err := s.Leaderboard(ctx, ladderID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []string{"Position", "Team", "Rating", "Wins", "Losses", "Reliability"}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}
	for i, row := range rows {
		values := []any{row.Position, row.TeamName, row.Rating, row.Wins, row.Losses, row.Reliability}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write leaderboard workbook: %w", err)
	}
	return buffer.Bytes(), nil
}

// LeaderboardChartPNG renders the standings as a rating bar chart.
func (s *Service) LeaderboardChartPNG(ctx context.Context, ladderID string) ([]byte, error) {
	rows, err := s.Leaderboard(ctx, ladderID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("ladder %s has no entries to chart", ladderID)
	}

	bars := make([]chart.Value, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, chart.Value{
			Label: row.TeamName,
			Value: float64(row.Rating),
		})
	}

	graph := chart.BarChart{
		Title:    "Ladder standings",
		Width:    800,
		Height:   400,
		BarWidth: 48,
		Bars:     bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render standings chart: %w", err)
	}
	return buffer.Bytes(), nil
}
