// Package presenter owns what the user currently sees of a generation: which
// candidate is in the input field and which alternate is offered next.
package presenter

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kalambet/forlove/internal/candidate"
)

// ErrNoMoreAlternatives is returned when there is nothing to cycle to.
var ErrNoMoreAlternatives = errors.New("没有更多候选了")

// ErrNoAlternate is returned when committing without an alternate to commit.
var ErrNoAlternate = errors.New("no alternate candidate")

// maxDisplay is the most candidates a set ever shows.
const maxDisplay = 3

// Target is the text field candidates are written into.
type Target interface {
	// Insert appends text at the cursor.
	Insert(text string) error
	// ReplaceAll deletes everything in the field and inserts text.
	ReplaceAll(text string) error
}

// Archiver records texts the user received.
type Archiver interface {
	Add(c candidate.Candidate) error
}

// Snapshot is an immutable view of the presentation state.
type Snapshot struct {
	Candidates     []candidate.Candidate `json:"candidates"`
	AlternateIndex int                   `json:"alternateIndex"`
	DisplayCount   int                   `json:"displayCount"`
}

// Primary is the candidate inserted when the set arrived.
func (s Snapshot) Primary() (candidate.Candidate, bool) {
	if len(s.Candidates) == 0 {
		return candidate.Candidate{}, false
	}
	return s.Candidates[0], true
}

// Alternate is the candidate a commit would write.
func (s Snapshot) Alternate() (candidate.Candidate, bool) {
	if s.AlternateIndex < 1 || s.AlternateIndex >= len(s.Candidates) {
		return candidate.Candidate{}, false
	}
	return s.Candidates[s.AlternateIndex], true
}

// Observer is notified after every state change.
type Observer func(Snapshot)

// Presenter holds the current candidate set. It is safe for concurrent use;
// observers run outside the lock, in the order they subscribed.
type Presenter struct {
	target  Target
	archive Archiver

	mu             sync.Mutex
	candidates     []candidate.Candidate
	alternateIndex int
	displayCount   int
	observers      map[int]Observer
	nextObserver   int
}

// New creates a Presenter writing into target. archive may be nil.
func New(target Target, archive Archiver) *Presenter {
	return &Presenter{
		target:         target,
		archive:        archive,
		alternateIndex: 1,
		observers:      make(map[int]Observer),
	}
}

// Present replaces the set with cs and inserts the first candidate into the
// target. Only the first three candidates are kept. An empty set clears the
// state without touching the target.
func (p *Presenter) Present(cs []candidate.Candidate) error {
	if len(cs) > maxDisplay {
		cs = cs[:maxDisplay]
	}
	kept := append([]candidate.Candidate(nil), cs...)

	p.mu.Lock()
	p.candidates = kept
	p.displayCount = len(kept)
	p.alternateIndex = 1
	snap := p.snapshotLocked()
	p.mu.Unlock()

	var err error
	if len(kept) > 0 {
		if err = p.target.Insert(kept[0].Text); err != nil {
			err = fmt.Errorf("inserting primary candidate: %w", err)
		} else {
			p.record(kept[0])
		}
	}
	p.notify(snap)
	return err
}

// CycleAlternate toggles the offered alternate between the second and third
// candidate. It needs a full set of three.
func (p *Presenter) CycleAlternate() (candidate.Candidate, error) {
	p.mu.Lock()
	if len(p.candidates) < maxDisplay {
		p.mu.Unlock()
		return candidate.Candidate{}, ErrNoMoreAlternatives
	}
	if p.alternateIndex == 1 {
		p.alternateIndex = 2
	} else {
		p.alternateIndex = 1
	}
	c := p.candidates[p.alternateIndex]
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.notify(snap)
	return c, nil
}

// CommitAlternate replaces the whole target content with the current
// alternate. Repeating it leaves the target unchanged.
func (p *Presenter) CommitAlternate() (candidate.Candidate, error) {
	p.mu.Lock()
	if p.alternateIndex < 1 || p.alternateIndex >= len(p.candidates) {
		p.mu.Unlock()
		return candidate.Candidate{}, ErrNoAlternate
	}
	c := p.candidates[p.alternateIndex]
	p.mu.Unlock()

	if err := p.target.ReplaceAll(c.Text); err != nil {
		return c, fmt.Errorf("replacing with alternate: %w", err)
	}
	p.record(c)
	return c, nil
}

// Clear drops the set. The target keeps whatever it holds.
func (p *Presenter) Clear() {
	p.mu.Lock()
	p.candidates = nil
	p.alternateIndex = 1
	p.displayCount = 0
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.notify(snap)
}

// Snapshot returns the current state.
func (p *Presenter) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Subscribe registers fn and returns a function that removes it.
func (p *Presenter) Subscribe(fn Observer) func() {
	p.mu.Lock()
	id := p.nextObserver
	p.nextObserver++
	p.observers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.observers, id)
		p.mu.Unlock()
	}
}

func (p *Presenter) snapshotLocked() Snapshot {
	return Snapshot{
		Candidates:     append([]candidate.Candidate(nil), p.candidates...),
		AlternateIndex: p.alternateIndex,
		DisplayCount:   p.displayCount,
	}
}

func (p *Presenter) notify(snap Snapshot) {
	p.mu.Lock()
	fns := make([]Observer, 0, len(p.observers))
	for id := 0; id < p.nextObserver; id++ {
		if fn, ok := p.observers[id]; ok {
			fns = append(fns, fn)
		}
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (p *Presenter) record(c candidate.Candidate) {
	if p.archive == nil {
		return
	}
	if err := p.archive.Add(c); err != nil {
		slog.Warn("failed to archive candidate", "id", c.ID, "error", err)
	}
}
