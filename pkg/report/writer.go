package report

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// Artifacts are the files written for one report.
type Artifacts struct {
	Markdown string   `json:"markdown"`
	HTML     string   `json:"html"`
	Charts   []string `json:"charts,omitempty"`
}

// Writer persists reports as timestamped files in a directory.
type Writer struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithClock sets the time source used for file names and the report date.
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) { w.now = now }
}

// WithLogger sets the logger used for chart failures.
func WithLogger(l *slog.Logger) WriterOption {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWriter creates a Writer for dir.
func NewWriter(dir string, opts ...WriterOption) *Writer {
	w := &Writer{dir: dir, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Write renders charts, Markdown and HTML for r. A chart that cannot be
// drawn is logged and left out of the report.
func (w *Writer) Write(r *Report) (Artifacts, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("create report dir: %w", err)
	}

	now := w.now()
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = now
	}
	ts := now.Format("20060102_150405")

	var art Artifacts
	r.Charts = make(map[string]string, len(r.Reviewers))
	for _, rv := range r.Reviewers {
		name := fmt.Sprintf("chart_%s_%s.png", unsafeName.ReplaceAllString(rv.ID, "_"), ts)
		var buf bytes.Buffer
		if err := RenderChart(&buf, rv.ID, r.Scores); err != nil {
			w.logger.Warn("skipping chart", "reviewer", rv.ID, "error", err)
			continue
		}
		path := filepath.Join(w.dir, name)
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			w.logger.Warn("skipping chart", "reviewer", rv.ID, "error", err)
			continue
		}
		r.Charts[rv.ID] = name
		art.Charts = append(art.Charts, path)
	}

	markdown := Markdown(r)
	art.Markdown = filepath.Join(w.dir, "evaluation_report_"+ts+".md")
	if err := os.WriteFile(art.Markdown, []byte(markdown), 0o644); err != nil {
		return art, fmt.Errorf("write markdown report: %w", err)
	}

	title := r.Title
	if title == "" {
		title = DefaultTitle
	}
	page, err := HTML(markdown, title)
	if err != nil {
		return art, err
	}
	art.HTML = filepath.Join(w.dir, "evaluation_report_"+ts+".html")
	if err := os.WriteFile(art.HTML, page, 0o644); err != nil {
		return art, fmt.Errorf("write html report: %w", err)
	}

	return art, nil
}
