package models

// Task identifiers understood by the runner and the review rubrics.
const (
	TaskSummarize = "summarize"
	TaskTranslate = "translate"
)

// FailedPrefix marks candidate output that records a failed call instead of model text.
const FailedPrefix = "ERROR: "

// CandidateResult is the output of one candidate model on one task.
type CandidateResult struct {
	ModelID string `json:"model_id"`
	TaskID  string `json:"task_id"`
	Output  string `json:"output"`
	Failed  bool   `json:"failed,omitempty"`
	Error   string `json:"error,omitempty"`
	Cached  bool   `json:"cached,omitempty"`
}

// Reviewer identifies a configured cloud reviewer.
type Reviewer struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// ReviewScore is one reviewer's verdict on one candidate result.
//
// Score is always within [1,10] when the cell is available. ParseFailed is
// set when the reviewer reply carried no recognizable score and the minimum
// was recorded instead. Unavailable cells carry no score at all.
type ReviewScore struct {
	ReviewerID  string `json:"reviewer_id"`
	ModelID     string `json:"model_id"`
	TaskID      string `json:"task_id"`
	Score       int    `json:"score"`
	Critique    string `json:"critique"`
	ParseFailed bool   `json:"parse_failed,omitempty"`
	Unavailable bool   `json:"unavailable,omitempty"`
	Raw         string `json:"raw,omitempty"`
}

// ReviewerStatistics summarizes one reviewer's available scores for one task.
type ReviewerStatistics struct {
	ReviewerID string  `json:"reviewer_id"`
	TaskID     string  `json:"task_id"`
	Count      int     `json:"count"`
	Mean       float64 `json:"mean"`
	Max        int     `json:"max"`
	Min        int     `json:"min"`
}
