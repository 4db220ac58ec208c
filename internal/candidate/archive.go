package candidate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/forlove/internal/storage"
)

// HistoryStore defines the storage operations the Archive needs.
// Implemented by storage.Store.
type HistoryStore interface {
	AddHistory(e storage.HistoryEntry) error
	RecentHistory(limit int) ([]storage.HistoryEntry, error)
	ClearHistory() error
}

// Archive keeps the most recent committed candidates.
type Archive struct {
	store HistoryStore
}

func NewArchive(store HistoryStore) *Archive {
	return &Archive{store: store}
}

// Add records c as committed now.
func (a *Archive) Add(c Candidate) error {
	tags, err := json.Marshal(c.Tags)
	if err != nil {
		return fmt.Errorf("marshalling tags: %w", err)
	}
	return a.store.AddHistory(storage.HistoryEntry{
		CandidateID: c.ID.String(),
		Text:        c.Text,
		Score:       c.Score,
		Tags:        string(tags),
		CreatedAt:   c.CreatedAt,
		IsOffline:   c.IsOfflineTemplate,
		RiskFlagged: c.RiskFlagged,
		CommittedAt: time.Now(),
	})
}

// Recent returns up to limit committed candidates, newest first.
func (a *Archive) Recent(limit int) ([]Candidate, error) {
	entries, err := a.store.RecentHistory(limit)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	out := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		id, err := uuid.Parse(e.CandidateID)
		if err != nil {
			slog.Warn("skipping history entry with malformed id", "id", e.CandidateID, "error", err)
			continue
		}
		var tags []string
		if err := json.Unmarshal([]byte(e.Tags), &tags); err != nil {
			slog.Warn("history entry has malformed tags", "id", e.CandidateID, "error", err)
		}
		if tags == nil {
			tags = []string{}
		}
		out = append(out, Candidate{
			ID:                id,
			Text:              e.Text,
			Score:             e.Score,
			Tags:              tags,
			CreatedAt:         e.CreatedAt,
			IsOfflineTemplate: e.IsOffline,
			RiskFlagged:       e.RiskFlagged,
		})
	}
	return out, nil
}

func (a *Archive) Clear() error {
	return a.store.ClearHistory()
}
