package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// HistoryEntry is a committed candidate text kept in the recent history.
type HistoryEntry struct {
	CandidateID string
	Text        string
	Score       int
	Tags        string // JSON array stored as text
	CreatedAt   time.Time
	IsOffline   bool
	RiskFlagged bool
	CommittedAt time.Time
}

// Generation is one accepted generation attempt and how it ended.
type Generation struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	SlotID         int       `json:"slot_id"`
	MainCategory   string    `json:"main_category"`
	SubCategory    string    `json:"sub_category"`
	Outcome        string    `json:"outcome"` // "succeeded", "fallback"
	Reason         string    `json:"reason,omitempty"`
	LatencyMs      int64     `json:"latency_ms"`
	CandidateCount int       `json:"candidate_count"`
}
