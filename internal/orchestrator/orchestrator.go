// Package orchestrator runs generation requests: it gates them on permission
// and rate, keeps a single request in flight, and turns failures into local
// fallback candidates.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/forlove/internal/candidate"
	"github.com/kalambet/forlove/internal/catalog"
	"github.com/kalambet/forlove/internal/generator"
	"github.com/kalambet/forlove/internal/identity"
	"github.com/kalambet/forlove/internal/slots"
	"github.com/kalambet/forlove/internal/storage"
)

const (
	DefaultMinInterval = time.Second
	DefaultTimeout     = generator.DefaultTimeout

	// FallbackAdvisory is shown when local candidates replace remote ones.
	FallbackAdvisory = "网络不稳定，已切换本地备选"
	// PermissionAdvisory is shown when the host has not granted network access.
	PermissionAdvisory = "请在设置中开启“允许完全访问”"
)

var (
	// ErrPermissionDenied is the Err of a PermissionDenied outcome.
	ErrPermissionDenied = errors.New("full access not granted")
	// ErrTooSoon is the Err of a TooSoon outcome.
	ErrTooSoon = errors.New("generation requested too soon after the previous one")
)

// Kind classifies how a generation attempt ended.
type Kind string

const (
	Succeeded        Kind = "succeeded"
	Fallback         Kind = "fallback"
	TooSoon          Kind = "tooSoon"
	PermissionDenied Kind = "permissionDenied"
	Cancelled        Kind = "cancelled"
)

// Reason is why the remote attempt failed.
type Reason string

const (
	NetworkError      Reason = "networkError"
	MalformedResponse Reason = "malformedResponse"
)

// Outcome is the result of one Generate call.
type Outcome struct {
	ID         uuid.UUID             `json:"id"`
	Kind       Kind                  `json:"kind"`
	Reason     Reason                `json:"reason,omitempty"`
	Err        error                 `json:"-"`
	Candidates []candidate.Candidate `json:"candidates,omitempty"`
	Advisory   string                `json:"advisory,omitempty"`
}

// Delivered reports whether the outcome carries candidates for the user.
func (o Outcome) Delivered() bool {
	return o.Kind == Succeeded || o.Kind == Fallback
}

// Input is everything one generation needs.
type Input struct {
	Slot        slots.CategorySlot
	Content     string
	Identity    identity.UserIdentity
	ChatContext string
}

// Transport sends a wire request to the generation service.
type Transport interface {
	Generate(ctx context.Context, req generator.Request) ([]generator.WireCandidate, error)
}

// Entitlement reports whether network access is granted.
type Entitlement interface {
	HasFullAccess() bool
}

// StaticEntitlement is an Entitlement with a fixed answer.
type StaticEntitlement bool

func (s StaticEntitlement) HasFullAccess() bool { return bool(s) }

// FallbackGenerator produces local candidates.
type FallbackGenerator interface {
	Generate(main catalog.MainCategory, tag, content string) []candidate.Candidate
}

// Receiver is handed every delivered candidate set.
type Receiver interface {
	Present(cs []candidate.Candidate) error
}

// GenerationLog records the end of accepted attempts.
type GenerationLog interface {
	SaveGeneration(g storage.Generation) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds the Orchestrator's collaborators. Transport, Entitlement and
// Fallback are required.
type Config struct {
	Transport   Transport
	Entitlement Entitlement
	Fallback    FallbackGenerator
	Receiver    Receiver
	Log         GenerationLog
	Clock       Clock
	MinInterval time.Duration
	Timeout     time.Duration
}

// Orchestrator serialises generation requests. A new request cancels the
// one in flight; only the newest request's outcome is ever delivered.
type Orchestrator struct {
	transport   Transport
	entitlement Entitlement
	fallback    FallbackGenerator
	receiver    Receiver
	log         GenerationLog
	clock       Clock
	minInterval time.Duration
	timeout     time.Duration

	mu        sync.Mutex
	seq       uint64
	inFlight  bool
	cancel    context.CancelFunc
	lastStart time.Time

	// deliverMu orders deliveries so a superseded outcome cannot land after
	// the check that it is still current.
	deliverMu sync.Mutex
}

// New creates an Orchestrator. Zero durations take their defaults.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		transport:   cfg.Transport,
		entitlement: cfg.Entitlement,
		fallback:    cfg.Fallback,
		receiver:    cfg.Receiver,
		log:         cfg.Log,
		clock:       cfg.Clock,
		minInterval: cfg.MinInterval,
		timeout:     cfg.Timeout,
	}
	if o.clock == nil {
		o.clock = realClock{}
	}
	if o.minInterval <= 0 {
		o.minInterval = DefaultMinInterval
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}
	return o
}

// InFlight reports whether a request is awaiting its response.
func (o *Orchestrator) InFlight() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight
}

// Cancel abandons the request in flight, if any. Its outcome is Cancelled
// and nothing is delivered.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.seq++
	o.inFlight = false
}

// Generate runs one request to completion. Checks run in order: permission,
// then the minimum interval since the last accepted request, then any
// request in flight is cancelled. Rejected calls leave the state untouched.
func (o *Orchestrator) Generate(ctx context.Context, in Input) Outcome {
	if !o.entitlement.HasFullAccess() {
		return Outcome{Kind: PermissionDenied, Err: ErrPermissionDenied, Advisory: PermissionAdvisory}
	}

	o.mu.Lock()
	now := o.clock.Now()
	if !o.lastStart.IsZero() && now.Sub(o.lastStart) < o.minInterval {
		o.mu.Unlock()
		return Outcome{Kind: TooSoon, Err: ErrTooSoon}
	}
	if o.cancel != nil {
		o.cancel()
		slog.Debug("superseding in-flight generation", "seq", o.seq)
	}
	o.seq++
	seq := o.seq
	reqCtx, cancel := context.WithTimeout(ctx, o.timeout)
	o.cancel = cancel
	o.inFlight = true
	o.lastStart = now
	o.mu.Unlock()
	defer cancel()

	id := uuid.New()
	req := generator.NewRequest(in.Slot, in.Content, in.Identity, in.ChatContext)
	start := time.Now()
	wire, err := o.transport.Generate(reqCtx, req)
	latency := time.Since(start)

	if !o.current(seq) {
		slog.Debug("dropping superseded generation", "id", id)
		return Outcome{ID: id, Kind: Cancelled}
	}
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		o.finish(seq)
		return Outcome{ID: id, Kind: Cancelled, Err: err}
	}

	var out Outcome
	if err != nil {
		out = o.fallbackOutcome(id, in, err)
	} else {
		out = Outcome{ID: id, Kind: Succeeded, Candidates: toCandidates(wire, in.Slot.SelectedSubCategory)}
	}
	out.Candidates = candidate.Filter(out.Candidates)

	o.deliverMu.Lock()
	if !o.finish(seq) {
		o.deliverMu.Unlock()
		return Outcome{ID: id, Kind: Cancelled}
	}
	if o.receiver != nil {
		if err := o.receiver.Present(out.Candidates); err != nil {
			slog.Warn("failed to present candidates", "id", id, "error", err)
		}
	}
	o.deliverMu.Unlock()

	slog.Info("generation finished",
		"id", id,
		"slot", in.Slot.ID,
		"sub_category", in.Slot.SelectedSubCategory.Token(),
		"outcome", out.Kind,
		"reason", out.Reason,
		"latency_ms", latency.Milliseconds(),
	)
	o.record(id, in, out, latency)
	return out
}

func (o *Orchestrator) fallbackOutcome(id uuid.UUID, in Input, err error) Outcome {
	reason := NetworkError
	if generator.IsMalformed(err) {
		reason = MalformedResponse
	}
	slog.Warn("generation failed, using local fallback", "id", id, "reason", reason, "error", err)

	tag := in.Slot.SelectedSubCategory.DisplayName()
	return Outcome{
		ID:         id,
		Kind:       Fallback,
		Reason:     reason,
		Err:        err,
		Candidates: o.fallback.Generate(in.Slot.MainCategory, tag, in.Content),
		Advisory:   FallbackAdvisory,
	}
}

// current reports whether seq is still the newest request.
func (o *Orchestrator) current(seq uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return seq == o.seq
}

// finish returns to idle if seq is still the newest request.
func (o *Orchestrator) finish(seq uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if seq != o.seq {
		return false
	}
	o.inFlight = false
	o.cancel = nil
	return true
}

func (o *Orchestrator) record(id uuid.UUID, in Input, out Outcome, latency time.Duration) {
	if o.log == nil {
		return
	}
	g := storage.Generation{
		ID:             id.String(),
		CreatedAt:      o.clock.Now(),
		SlotID:         in.Slot.ID,
		MainCategory:   in.Slot.MainCategory.Token(),
		SubCategory:    in.Slot.SelectedSubCategory.Token(),
		Outcome:        string(out.Kind),
		Reason:         string(out.Reason),
		LatencyMs:      latency.Milliseconds(),
		CandidateCount: len(out.Candidates),
	}
	if err := o.log.SaveGeneration(g); err != nil {
		slog.Warn("failed to record generation", "id", id, "error", err)
	}
}

// toCandidates converts at most generator.CandidateCount wire candidates.
// A missing tone is replaced by the sub-category's display name.
func toCandidates(wire []generator.WireCandidate, sub catalog.SubCategory) []candidate.Candidate {
	if len(wire) > generator.CandidateCount {
		wire = wire[:generator.CandidateCount]
	}
	out := make([]candidate.Candidate, 0, len(wire))
	for _, wc := range wire {
		tag := wc.Tone
		if tag == "" {
			tag = sub.DisplayName()
		}
		out = append(out, candidate.New(wc.Text, candidate.WithTags(tag)))
	}
	return out
}
