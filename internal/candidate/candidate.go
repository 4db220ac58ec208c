// Package candidate defines generated candidate texts, the safety filter
// applied to them, and the archive of committed candidates.
package candidate

import (
	"time"

	"github.com/google/uuid"
)

// DefaultScore is assigned when the producer has no scoring signal.
const DefaultScore = 50

// Candidate is one generated text. It is immutable after construction
// except for RiskFlagged, which the safety filter sets.
type Candidate struct {
	ID                uuid.UUID `json:"id"`
	Text              string    `json:"text"`
	Score             int       `json:"score"`
	Tags              []string  `json:"tags"`
	CreatedAt         time.Time `json:"createdAt"`
	IsOfflineTemplate bool      `json:"isOfflineTemplate"`
	RiskFlagged       bool      `json:"riskFlagged"`
}

// Option customizes a Candidate built by New.
type Option func(*Candidate)

// WithScore sets the score, clamped to [0, 100].
func WithScore(score int) Option {
	return func(c *Candidate) { c.Score = min(100, max(0, score)) }
}

// WithTags sets the candidate tags.
func WithTags(tags ...string) Option {
	return func(c *Candidate) { c.Tags = append([]string(nil), tags...) }
}

// Offline marks the candidate as produced by the local fallback.
func Offline() Option {
	return func(c *Candidate) { c.IsOfflineTemplate = true }
}

// WithCreatedAt overrides the creation time.
func WithCreatedAt(t time.Time) Option {
	return func(c *Candidate) { c.CreatedAt = t }
}

// New builds a candidate with a fresh id.
func New(text string, opts ...Option) Candidate {
	c := Candidate{
		ID:        uuid.New(),
		Text:      text,
		Score:     DefaultScore,
		Tags:      []string{},
		CreatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// HasTag reports whether tag is among c's tags.
func (c Candidate) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Texts returns the texts of cs in order.
func Texts(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Text
	}
	return out
}
