package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pario-ai/modelbench/pkg/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleScores() []models.ReviewScore {
	return []models.ReviewScore{
		{ReviewerID: "openai:gpt-4o", ModelID: "llama3", TaskID: "summarize", Score: 8, Critique: "good"},
		{ReviewerID: "openai:gpt-4o", ModelID: "llama3", TaskID: "translate", Score: 1, Critique: "???", ParseFailed: true},
		{ReviewerID: "openai:gpt-4o", ModelID: "qwen3", TaskID: "summarize", Unavailable: true, Critique: "candidate model failed"},
	}
}

func TestRecordAndRunScores(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	id, err := s.RecordRun(ctx, models.RunRecord{
		StartedAt:    start,
		FinishedAt:   start.Add(time.Minute),
		InputChars:   120,
		Models:       2,
		Reviewers:    1,
		MarkdownPath: "reports/evaluation_report_20250601_120100.md",
	}, sampleScores())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("expected a uuid run id, got %q", id)
	}

	scores, err := s.RunScores(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(scores))
	}
	want := sampleScores()
	for i := range want {
		if scores[i] != want[i] {
			t.Errorf("score %d: got %+v, want %+v", i, scores[i], want[i])
		}
	}

	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	r := runs[0]
	if r.ID != id || r.InputChars != 120 || r.Models != 2 || !r.StartedAt.Equal(start) {
		t.Errorf("unexpected run: %+v", r)
	}
}

func TestRecordRunKeepsExplicitID(t *testing.T) {
	s := newTestStore(t)
	id, err := s.RecordRun(context.Background(), models.RunRecord{ID: "run-1", StartedAt: time.Now(), FinishedAt: time.Now()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if id != "run-1" {
		t.Errorf("expected run-1, got %q", id)
	}
}

func TestRecordRunDuplicateRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := models.RunRecord{ID: "dup", StartedAt: time.Now(), FinishedAt: time.Now()}

	if _, err := s.RecordRun(ctx, run, sampleScores()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RecordRun(ctx, run, sampleScores()); err == nil {
		t.Fatal("expected error for duplicate run id")
	}

	scores, err := s.RunScores(ctx, "dup")
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 3 {
		t.Errorf("failed insert must not leave extra scores, got %d", len(scores))
	}
}

func TestListRunsOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		at := base.Add(time.Duration(i) * time.Hour)
		if _, err := s.RecordRun(ctx, models.RunRecord{ID: id, StartedAt: at, FinishedAt: at}, nil); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("expected [c b], got %+v", runs)
	}
}

func TestSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	second := []models.ReviewScore{
		{ReviewerID: "openai:gpt-4o", ModelID: "llama3", TaskID: "summarize", Score: 6},
	}
	if _, err := s.RecordRun(ctx, models.RunRecord{StartedAt: time.Now(), FinishedAt: time.Now()}, sampleScores()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RecordRun(ctx, models.RunRecord{StartedAt: time.Now(), FinishedAt: time.Now()}, second); err != nil {
		t.Fatal(err)
	}

	summary, err := s.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary) != 2 {
		t.Fatalf("expected 2 rows (unavailable excluded), got %d: %+v", len(summary), summary)
	}
	if summary[0].ModelID != "llama3" || summary[0].TaskID != "summarize" || summary[0].Runs != 2 || summary[0].Average != 7 {
		t.Errorf("unexpected first row: %+v", summary[0])
	}
	if summary[1].TaskID != "translate" || summary[1].Average != 1 {
		t.Errorf("unexpected second row: %+v", summary[1])
	}
}

func TestMigrationIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s1, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s1.Close()

	s2, err := New(path)
	if err != nil {
		t.Fatalf("second open should succeed: %v", err)
	}
	s2.Close()
}
