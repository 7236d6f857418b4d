package review

import (
	"math"

	"github.com/pario-ai/modelbench/pkg/models"
)

// Statistics computes mean, max and min per reviewer and task over the
// available scores, reviewer-major in the given order. Unavailable cells are
// skipped; a group with nothing left has Count 0. Parse failures count with
// their recorded score. Mean is rounded to precision decimal places.
func Statistics(scores []models.ReviewScore, reviewerIDs, taskIDs []string, precision int) []models.ReviewerStatistics {
	type group struct {
		sum, count, max, min int
	}
	groups := make(map[[2]string]*group)
	for _, s := range scores {
		if s.Unavailable {
			continue
		}
		k := [2]string{s.ReviewerID, s.TaskID}
		g, ok := groups[k]
		if !ok {
			g = &group{max: s.Score, min: s.Score}
			groups[k] = g
		}
		g.sum += s.Score
		g.count++
		g.max = max(g.max, s.Score)
		g.min = min(g.min, s.Score)
	}

	out := make([]models.ReviewerStatistics, 0, len(reviewerIDs)*len(taskIDs))
	for _, rid := range reviewerIDs {
		for _, tid := range taskIDs {
			st := models.ReviewerStatistics{ReviewerID: rid, TaskID: tid}
			if g, ok := groups[[2]string{rid, tid}]; ok {
				st.Count = g.count
				st.Mean = round(float64(g.sum)/float64(g.count), precision)
				st.Max = g.max
				st.Min = g.min
			}
			out = append(out, st)
		}
	}
	return out
}

func round(v float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}
