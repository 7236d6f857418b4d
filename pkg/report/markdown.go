package report

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pario-ai/modelbench/pkg/models"
)

// Report is everything needed to render one evaluation run.
type Report struct {
	Title       string
	GeneratedAt time.Time
	InputChars  int
	Models      []string
	Tasks       []string
	Reviewers   []models.Reviewer
	Candidates  []models.CandidateResult
	Scores      []models.ReviewScore
	Stats       []models.ReviewerStatistics
	// Precision is the number of decimals shown for statistic means.
	Precision int
	// Charts maps reviewer id to a chart image path relative to the report.
	Charts map[string]string
}

// DefaultTitle is used when a Report has no title.
const DefaultTitle = "Model Evaluation Report"

var titleCaser = cases.Title(language.English)

// TaskLabel returns the display name of a task id.
func TaskLabel(taskID string) string {
	return titleCaser.String(taskID)
}

// Markdown renders the report as a Markdown document.
func Markdown(r *Report) string {
	var b strings.Builder

	title := r.Title
	if title == "" {
		title = DefaultTitle
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Generated: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))

	b.WriteString("## Overview\n\n")
	fmt.Fprintf(&b, "- Input length: %d characters\n", r.InputChars)
	fmt.Fprintf(&b, "- Candidate models: %s\n", htmlText.Replace(strings.Join(r.Models, ", ")))
	labels := make([]string, len(r.Tasks))
	for i, t := range r.Tasks {
		labels[i] = TaskLabel(t)
	}
	fmt.Fprintf(&b, "- Tasks: %s\n", strings.Join(labels, ", "))
	b.WriteString("- Reviewers:\n")
	for _, rv := range r.Reviewers {
		fmt.Fprintf(&b, "  - %s (%s, %s)\n", htmlText.Replace(rv.ID), rv.Provider, htmlText.Replace(rv.Model))
	}
	b.WriteString("\n")

	cells := indexScores(r.Scores)
	for _, rv := range r.Reviewers {
		writeReviewer(&b, r, rv, cells)
	}

	writeAppendix(&b, r)
	return b.String()
}

type cellKey struct {
	reviewer, model, task string
}

func indexScores(scores []models.ReviewScore) map[cellKey]models.ReviewScore {
	m := make(map[cellKey]models.ReviewScore, len(scores))
	for _, s := range scores {
		m[cellKey{s.ReviewerID, s.ModelID, s.TaskID}] = s
	}
	return m
}

func writeReviewer(b *strings.Builder, r *Report, rv models.Reviewer, cells map[cellKey]models.ReviewScore) {
	fmt.Fprintf(b, "## Reviewer: %s\n\n", htmlText.Replace(rv.ID))

	b.WriteString("| Model |")
	for _, t := range r.Tasks {
		fmt.Fprintf(b, " %s Score | %s Critique |", TaskLabel(t), TaskLabel(t))
	}
	b.WriteString(" Average |\n|---|")
	for range r.Tasks {
		b.WriteString("---|---|")
	}
	b.WriteString("---|\n")

	for _, m := range r.Models {
		fmt.Fprintf(b, "| %s |", escapeCell(m))
		sum, n := 0, 0
		for _, t := range r.Tasks {
			s, ok := cells[cellKey{rv.ID, m, t}]
			if !ok || s.Unavailable {
				reason := "-"
				if ok {
					reason = escapeCell(s.Critique)
				}
				fmt.Fprintf(b, " N/A | %s |", reason)
				continue
			}
			score := fmt.Sprintf("%d", s.Score)
			if s.ParseFailed {
				score += " (unparsed)"
			}
			critique := "-"
			if s.Critique != "" {
				critique = escapeCell(s.Critique)
			}
			fmt.Fprintf(b, " %s | %s |", score, critique)
			sum += s.Score
			n++
		}
		if n == 0 {
			b.WriteString(" N/A |\n")
		} else {
			fmt.Fprintf(b, " %.1f |\n", float64(sum)/float64(n))
		}
	}
	b.WriteString("\n")

	b.WriteString("### Statistics\n\n")
	b.WriteString("| Task | Mean | Max | Min | Scored |\n|---|---|---|---|---|\n")
	for _, st := range r.Stats {
		if st.ReviewerID != rv.ID {
			continue
		}
		if st.Count == 0 {
			fmt.Fprintf(b, "| %s | no scores available | - | - | 0 |\n", TaskLabel(st.TaskID))
			continue
		}
		fmt.Fprintf(b, "| %s | %.*f | %d | %d | %d |\n", TaskLabel(st.TaskID), r.Precision, st.Mean, st.Max, st.Min, st.Count)
	}
	b.WriteString("\n")

	if path, ok := r.Charts[rv.ID]; ok && path != "" {
		fmt.Fprintf(b, "![%s scores](%s)\n\n", htmlText.Replace(rv.ID), path)
	}
}

func writeAppendix(b *strings.Builder, r *Report) {
	b.WriteString("## Appendix: Model Outputs\n")

	outputs := make(map[[2]string]models.CandidateResult, len(r.Candidates))
	for _, c := range r.Candidates {
		outputs[[2]string{c.ModelID, c.TaskID}] = c
	}

	for _, m := range r.Models {
		fmt.Fprintf(b, "\n### %s\n", htmlText.Replace(m))
		for _, t := range r.Tasks {
			c, ok := outputs[[2]string{m, t}]
			if !ok {
				continue
			}
			fmt.Fprintf(b, "\n#### %s\n\n", TaskLabel(t))
			fence := codeFence(c.Output)
			fmt.Fprintf(b, "%s\n%s\n%s\n", fence, c.Output, fence)
		}
	}
}

// htmlText escapes the characters the HTML renderer would otherwise pass
// through as raw markup.
var htmlText = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escapeCell makes text safe inside a Markdown table cell. <br> is the only
// raw HTML left in the result.
func escapeCell(s string) string {
	s = htmlText.Replace(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br>")
}

// codeFence returns a backtick fence longer than any backtick run in s.
func codeFence(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}
