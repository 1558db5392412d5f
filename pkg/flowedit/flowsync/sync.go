// Package flowsync keeps an Editor in step with a remote flow store.
//
// A Synchronizer owns two races. Saves are serialized, so the identifier
// the store assigns on first save is adopted before the next save goes
// out. Loads are tagged with a generation; a load that completes after the
// governing identifier has moved on is discarded instead of applied.
//
// Basic usage:
//
//	client, _ := remote.New("http://localhost:5001")
//	editor := flowedit.NewEditor()
//	s := flowsync.New(editor, client)
//
//	if err := s.SetFlowID(ctx, "65f0c1"); err != nil {
//	    // the editor still holds what it had before
//	}
//	res, err := s.Save(ctx)
package flowsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/randalmurphal/flowedit/pkg/flowedit"
	"github.com/randalmurphal/flowedit/pkg/flowedit/event"
	"github.com/randalmurphal/flowedit/pkg/flowedit/observability"
	"github.com/randalmurphal/flowedit/pkg/flowedit/remote"
)

// Sentinel errors for synchronizer operations.
var (
	// ErrStaleLoad indicates a load completed after the governing
	// identifier changed. The result was discarded.
	ErrStaleLoad = errors.New("stale load discarded")

	// ErrNoFlowID indicates a load was requested without an identifier.
	ErrNoFlowID = errors.New("no flow id")
)

// Remote is the store protocol the synchronizer needs. *remote.Client
// implements it.
type Remote interface {
	GetFlow(ctx context.Context, id string) (*flowedit.Flow, error)
	SaveFlow(ctx context.Context, f *flowedit.Flow) (remote.SaveResponse, error)
}

var _ Remote = (*remote.Client)(nil)

// SaveResult reports a completed save.
type SaveResult struct {
	ID      string
	Message string
	Version int64
	// Created is true when the store assigned a new identifier.
	Created bool
	// Adopted is false when the flow was replaced while the save was in
	// flight, so the returned identifier was not applied.
	Adopted bool
}

// Synchronizer loads and saves an Editor's flow.
type Synchronizer struct {
	editor  *flowedit.Editor
	remote  Remote
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	bus     event.Publisher
	onState func(from, to State)

	mu         sync.Mutex
	generation uint64
	governing  string
	state      State
	lastErr    error

	// applyMu orders generation checks with the editor updates they guard.
	// mu is never held while the editor runs, since the editor publishes
	// events and subscribers may call back into the synchronizer.
	applyMu sync.Mutex

	loads  singleflight.Group
	saveMu sync.Mutex
}

// New creates a synchronizer for editor backed by r.
func New(editor *flowedit.Editor, r Remote, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		editor:    editor,
		remote:    r,
		metrics:   observability.NoopMetrics{},
		spans:     observability.NoopSpanManager{},
		governing: editor.FlowID(),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current load state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the error of the most recent failed load, or nil.
func (s *Synchronizer) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// GoverningID returns the identifier loads are currently applied for.
func (s *Synchronizer) GoverningID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.governing
}

// SetFlowID makes id the governing identifier and loads it. Any load still
// in flight for a previous identifier will be discarded. An empty id only
// clears the identifier.
func (s *Synchronizer) SetFlowID(ctx context.Context, id string) error {
	if id == "" {
		s.mu.Lock()
		s.generation++
		s.governing = ""
		s.setStateLocked(StateIdle)
		s.mu.Unlock()
		s.applyMu.Lock()
		s.editor.SetFlowID("")
		s.applyMu.Unlock()
		return nil
	}
	_, err := s.Load(ctx, id)
	return err
}

// Load fetches id and, if id is still governing when the response arrives,
// replaces the editor's flow with it. On failure the editor is untouched.
// Concurrent loads of the same id share one request.
func (s *Synchronizer) Load(ctx context.Context, id string) (*flowedit.Flow, error) {
	if id == "" {
		return nil, ErrNoFlowID
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.governing = id
	s.setStateLocked(StateLoading)
	s.mu.Unlock()

	logger := observability.EnrichLogger(s.logger, id)
	observability.LogLoadStart(logger, id, gen)

	ctx, span := s.spans.StartLoadSpan(ctx, id)
	done := observability.TimedOperation()
	start := time.Now()

	v, err, _ := s.loads.Do(id, func() (any, error) {
		return s.remote.GetFlow(ctx, id)
	})
	s.metrics.RecordLoad(ctx, time.Since(start), err)
	s.spans.EndSpanWithError(span, err)

	s.applyMu.Lock()
	s.mu.Lock()
	if gen != s.generation {
		governing := s.governing
		s.mu.Unlock()
		s.applyMu.Unlock()
		s.metrics.RecordStaleDiscard(ctx)
		observability.LogLoadDiscarded(logger, id, governing)
		return nil, fmt.Errorf("%w: loaded %q, governing %q", ErrStaleLoad, id, governing)
	}

	if err != nil {
		s.lastErr = err
		s.setStateLocked(StateFailed)
		s.setStateLocked(StateIdle)
		s.mu.Unlock()
		s.applyMu.Unlock()
		observability.LogLoadError(logger, id, err, done())
		s.publish(ctx, event.New(event.FlowLoadFailed, id, event.WithData(err.Error())))
		return nil, fmt.Errorf("load flow %s: %w", id, err)
	}

	// The singleflight result is shared between callers; the editor
	// clones it on Replace.
	f := v.(*flowedit.Flow)
	if f.ID != "" && f.ID != id {
		s.governing = f.ID
	}
	s.mu.Unlock()

	s.editor.Replace(f)
	s.applyMu.Unlock()

	// A load started while the editor was being replaced now governs and
	// owns the state.
	s.mu.Lock()
	if gen == s.generation {
		s.lastErr = nil
		s.setStateLocked(StateLoaded)
	}
	s.mu.Unlock()

	observability.LogLoadComplete(logger, f.ID, done(), f.Len(), len(f.Edges()))
	return f.Clone(), nil
}

// Save sends the editor's current flow to the store and adopts the
// identifier and version it returns. Saves are serialized. If the save
// fails the identifier is left as it was, so a retry is safe.
//
// Adopting a store-assigned identifier does not trigger a reload.
func (s *Synchronizer) Save(ctx context.Context) (SaveResult, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	snap := s.editor.Snapshot()
	logger := observability.EnrichLogger(s.logger, snap.ID)

	ctx, span := s.spans.StartSaveSpan(ctx, snap.ID)
	done := observability.TimedOperation()
	start := time.Now()

	resp, err := s.remote.SaveFlow(ctx, snap)
	s.metrics.RecordSave(ctx, time.Since(start), resp.Size, err)
	s.spans.EndSpanWithError(span, err)
	if err != nil {
		observability.LogSaveError(logger, snap.ID, err, done())
		return SaveResult{}, fmt.Errorf("save flow: %w", err)
	}

	res := SaveResult{
		ID:      resp.ID,
		Message: resp.Message,
		Version: resp.Version,
		Created: snap.ID == "" || resp.Version == 1,
	}

	s.applyMu.Lock()
	res.Adopted = s.editor.AdoptID(snap.ID, resp.ID, resp.Version)
	if res.Adopted {
		s.mu.Lock()
		if s.governing == snap.ID {
			s.governing = resp.ID
		}
		s.mu.Unlock()
	}
	s.applyMu.Unlock()

	observability.LogSaveComplete(logger, resp.ID, done(), res.Created)
	s.publish(ctx, event.New(event.FlowSaved, resp.ID, event.WithData(resp.Message)))
	return res, nil
}

func (s *Synchronizer) setStateLocked(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	if s.onState != nil {
		s.onState(from, to)
	}
}

func (s *Synchronizer) publish(ctx context.Context, evt event.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, evt); err != nil && s.logger != nil {
		s.logger.Debug("event publish failed",
			slog.String("type", evt.Type),
			slog.String("error", err.Error()),
		)
	}
}
