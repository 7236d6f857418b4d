package models

// BudgetStatus shows live calls made to one provider against its limits.
// MaxCalls of 0 means unlimited; Remaining is then -1.
type BudgetStatus struct {
	Provider          string  `json:"provider"`
	Calls             int64   `json:"calls"`
	MaxCalls          int64   `json:"max_calls"`
	Remaining         int64   `json:"remaining"`
	RequestsPerMinute float64 `json:"requests_per_minute"`
}
