package models

import "time"

// RunRecord describes one completed benchmark run.
type RunRecord struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	InputChars   int       `json:"input_chars"`
	Models       int       `json:"models"`
	Reviewers    int       `json:"reviewers"`
	MarkdownPath string    `json:"markdown_path,omitempty"`
	HTMLPath     string    `json:"html_path,omitempty"`
}

// ScoreSummary aggregates available scores across runs.
type ScoreSummary struct {
	ReviewerID string  `json:"reviewer_id"`
	ModelID    string  `json:"model_id"`
	TaskID     string  `json:"task_id"`
	Runs       int     `json:"runs"`
	Average    float64 `json:"average"`
}
