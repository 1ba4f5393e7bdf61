package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ledgerhand/ledgerhand/internal/model"
)

var (
	// ErrSearchFailed indicates the similarity lookup could not complete.
	// The session returns to idle; the user retries by editing again.
	ErrSearchFailed = errors.New("similarity search failed")

	// ErrReplicationFailed indicates a candidate did not receive the
	// propagated explanation.
	ErrReplicationFailed = errors.New("replication failed")

	// ErrNoCandidates indicates confirm was called with nothing to confirm.
	ErrNoCandidates = errors.New("no candidates to confirm")

	// ErrSessionClosed indicates the session has been shut down.
	ErrSessionClosed = errors.New("session closed")
)

// State is the lifecycle phase of one editor session.
type State int

const (
	StateIdle State = iota
	StateEditing
	StateSearching
	StateHasCandidates
	StateNoCandidates
	StateSearchFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	case StateSearching:
		return "searching"
	case StateHasCandidates:
		return "has_candidates"
	case StateNoCandidates:
		return "no_candidates"
	case StateSearchFailed:
		return "search_failed"
	default:
		return "unknown"
	}
}

// DefaultDebounce is how long the session waits after the last edit
// before issuing a search.
const DefaultDebounce = 500 * time.Millisecond

// Option configures a Session.
type Option func(*Session)

// WithDebounce overrides the debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) { s.debounce = d }
}

// Session drives the interactive propagation workflow for a single
// transaction editor. Each edit restarts the debounce timer; only the
// last edit inside the window triggers a search. At most one search
// result is ever acted on: a response belonging to a superseded edit is
// discarded when it arrives, regardless of dispatch order.
type Session struct {
	searcher   Searcher
	replicator Replicator
	cancel     context.CancelFunc
	ctx        context.Context
	timer      *time.Timer

	mu          sync.Mutex
	state       State
	candidates  []Candidate
	lastErr     error
	explanation string
	seq         uint64
	closed      bool

	txn      model.Transaction
	debounce time.Duration
}

// New creates a session bound to one transaction. The transaction's
// description never changes; only the explanation is edited.
func New(txn model.Transaction, searcher Searcher, replicator Replicator, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		txn:         txn,
		searcher:    searcher,
		replicator:  replicator,
		debounce:    DefaultDebounce,
		state:       StateIdle,
		explanation: txn.Explanation,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Edit records a new explanation value and restarts the debounce timer.
// Any in-flight search is superseded; its response will be discarded.
func (s *Session) Edit(explanation string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.explanation = explanation
	s.state = StateEditing
	s.candidates = nil
	s.lastErr = nil
	s.seq++

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.dispatchSearch)
}

// dispatchSearch fires when the debounce window closes without another
// edit. It runs the search off the timer goroutine.
func (s *Session) dispatchSearch() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	seq := s.seq
	description := s.txn.Description
	explanation := s.explanation
	s.state = StateSearching
	s.mu.Unlock()

	go func() {
		candidates, err := s.searcher.Search(s.ctx, description, explanation)

		s.mu.Lock()
		defer s.mu.Unlock()

		// A newer edit supersedes this search; drop the response.
		if s.closed || s.seq != seq {
			slog.Debug("Discarding stale search response", "transaction", s.txn.ID)
			return
		}

		switch {
		case err != nil:
			s.state = StateSearchFailed
			s.lastErr = fmt.Errorf("%w: %v", ErrSearchFailed, err)
			slog.Warn("Similarity search failed", "transaction", s.txn.ID, "error", err)
		case len(candidates) == 0:
			s.state = StateNoCandidates
		default:
			s.state = StateHasCandidates
			s.candidates = candidates
		}
	}()
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Candidates returns the current candidate list, if any.
func (s *Session) Candidates() []Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Candidate, len(s.candidates))
	copy(out, s.candidates)
	return out
}

// LastError returns the most recent search error, if the session is in
// the failed state.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Confirm replicates the explanation to every candidate, one persistence
// call per candidate, sequentially. A failure for one candidate never
// blocks the remaining attempts; every outcome is recorded. The decision
// covers the whole candidate list; there is no per-candidate opt-out.
func (s *Session) Confirm(ctx context.Context) ([]ReplicationResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.state != StateHasCandidates || len(s.candidates) == 0 {
		s.mu.Unlock()
		return nil, ErrNoCandidates
	}
	candidates := make([]Candidate, len(s.candidates))
	copy(candidates, s.candidates)
	expected := s.explanation
	sourceID := s.txn.ID
	s.mu.Unlock()

	results := make([]ReplicationResult, 0, len(candidates))
	for _, candidate := range candidates {
		result := ReplicationResult{
			ReplicationOutcome: model.ReplicationOutcome{TargetID: candidate.ID},
		}

		written, err := s.replicator.Replicate(ctx, candidate.ID, sourceID)
		switch {
		case err != nil:
			result.Err = fmt.Errorf("%w for %s: %v", ErrReplicationFailed, candidate.ID, err)
		case written != expected:
			// The persisted text must match the source explanation exactly.
			result.Err = fmt.Errorf("%w for %s: persisted explanation differs from source", ErrReplicationFailed, candidate.ID)
		default:
			result.Explanation = written
		}

		results = append(results, result)
	}

	s.mu.Lock()
	s.state = StateIdle
	s.candidates = nil
	s.mu.Unlock()

	return results, nil
}

// Decline discards the current candidates and returns to idle.
func (s *Session) Decline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = nil
	s.lastErr = nil
	s.state = StateIdle
}

// Close shuts the session down. Pending timers are stopped and any
// in-flight search is abandoned.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.cancel()
}
