package models

// CacheEntry is a cached model or reviewer response as persisted on disk.
type CacheEntry struct {
	Key       string  `json:"key"`
	Content   string  `json:"content"`
	Timestamp float64 `json:"timestamp"` // unix seconds with fraction
}

// CacheStats reports cache performance metrics.
type CacheStats struct {
	Entries int64 `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}
