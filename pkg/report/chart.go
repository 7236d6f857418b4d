package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/pario-ai/modelbench/pkg/models"
)

// ErrNoScores is returned when a reviewer has nothing to chart.
var ErrNoScores = errors.New("no scores to chart")

// RenderChart draws a PNG bar chart of one reviewer's available scores, one
// bar per model and task, on a fixed 0 to 10 axis.
func RenderChart(w io.Writer, reviewerID string, scores []models.ReviewScore) error {
	var bars []chart.Value
	for _, s := range scores {
		if s.ReviewerID != reviewerID || s.Unavailable {
			continue
		}
		bars = append(bars, chart.Value{
			Value: float64(s.Score),
			Label: s.ModelID + " / " + TaskLabel(s.TaskID),
		})
	}
	if len(bars) == 0 {
		return fmt.Errorf("chart %s: %w", reviewerID, ErrNoScores)
	}

	graph := chart.BarChart{
		Title: reviewerID,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Width:    max(800, 160*len(bars)),
		Height:   480,
		BarWidth: 60,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 10},
		},
		Bars: bars,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("chart %s: %w", reviewerID, err)
	}
	return nil
}
