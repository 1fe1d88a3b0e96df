package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/gearscan/pkg/inference"
)

// StateKind enumerates the session states.
type StateKind int

const (
	StateIdle StateKind = iota
	StateScanning
	StateError
)

func (k StateKind) String() string {
	switch k {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Tone tells a presentation layer how to render the status text.
type Tone string

const (
	ToneInfo  Tone = "info"
	ToneBusy  Tone = "busy"
	ToneError Tone = "error"
)

// State is the session's externally visible condition. Message is set only
// for StateError.
type State struct {
	Kind    StateKind
	Message string
}

// Status returns operator-facing status text with its severity tone.
func (s State) Status() (string, Tone) {
	switch s.Kind {
	case StateScanning:
		return "Scanning...", ToneBusy
	case StateError:
		return s.Message, ToneError
	}
	return "Ready to scan", ToneInfo
}

// FrameSupplier provides one encoded frame per scan attempt.
// capture.FrameSource satisfies it.
type FrameSupplier interface {
	CaptureFrame() (string, error)
}

// Inferrer submits a frame to the detection engine. *inference.Client
// satisfies it.
type Inferrer interface {
	Infer(ctx context.Context, frameDataURL string) ([]inference.RawDetection, error)
}

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// SessionConfig holds everything a Session needs.
type SessionConfig struct {
	Inferrer Inferrer
	Catalog  Lookup          // optional; nil disables enrichment
	Log      Logger          // optional; nil = no logging
	Now      func() time.Time // optional clock
}

// Session is the scan orchestrator: it owns the idle/scanning/error state
// machine, enforces single-flight scanning, and maintains the history log.
// All methods are safe for concurrent use.
type Session struct {
	id  string
	inf Inferrer
	agg *Aggregator
	log Logger
	now func() time.Time

	mu        sync.Mutex
	state     State
	result    Result
	hasResult bool
	history   History
	attempt   uint64
	observers []chan State
}

func NewSession(cfg SessionConfig) *Session {
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		id:    uuid.NewString(),
		inf:   cfg.Inferrer,
		agg:   NewAggregator(cfg.Catalog),
		log:   log,
		now:   now,
		state: State{Kind: StateIdle},
	}
}

func (s *Session) ID() string { return s.id }

// StartScan begins an asynchronous scan attempt. It is a no-op while a scan
// is already in flight; callers observe completion through State, Result and
// Subscribe. Any failure lands the session in StateError without touching
// the history log.
func (s *Session) StartScan(ctx context.Context, frames FrameSupplier) {
	s.mu.Lock()
	if s.state.Kind == StateScanning {
		s.mu.Unlock()
		s.log.Debugf("session %s: scan already in flight, ignoring start", s.id)
		return
	}
	s.attempt++
	attempt := s.attempt
	s.state = State{Kind: StateScanning}
	s.mu.Unlock()

	s.log.Debugf("session %s: scan attempt %d started", s.id, attempt)
	s.notify()

	go s.run(ctx, attempt, frames)
}

func (s *Session) run(ctx context.Context, attempt uint64, frames FrameSupplier) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(attempt, fmt.Errorf("internal error: %v", r))
		}
	}()

	// Capture failures abort the attempt before any network call happens.
	frame, err := frames.CaptureFrame()
	if err != nil {
		s.fail(attempt, err)
		return
	}

	raw, err := s.inf.Infer(ctx, frame)
	if err != nil {
		s.fail(attempt, err)
		return
	}

	s.succeed(attempt, s.agg.Aggregate(raw))
}

func (s *Session) succeed(attempt uint64, res Result) {
	s.mu.Lock()
	if attempt != s.attempt || s.state.Kind != StateScanning {
		s.mu.Unlock()
		s.log.Debugf("session %s: discarding stale result for attempt %d", s.id, attempt)
		return
	}
	s.state = State{Kind: StateIdle}
	s.result = res
	s.hasResult = true
	s.history.Append(EntryForResult(s.now(), res))
	s.mu.Unlock()

	s.log.Infof("session %s: scan attempt %d finished with %d detections", s.id, attempt, len(res))
	s.notify()
}

func (s *Session) fail(attempt uint64, err error) {
	s.mu.Lock()
	if attempt != s.attempt || s.state.Kind != StateScanning {
		s.mu.Unlock()
		s.log.Debugf("session %s: discarding stale failure for attempt %d: %v", s.id, attempt, err)
		return
	}
	s.state = State{Kind: StateError, Message: fmt.Sprintf("Scan failed: %v", err)}
	s.mu.Unlock()

	s.log.Warnf("session %s: scan attempt %d failed: %v", s.id, attempt, err)
	s.notify()
}

// Reset clears the current result and returns the session to idle. An
// in-flight attempt is invalidated: its late completion is discarded.
// The history log is left untouched.
func (s *Session) Reset() {
	s.mu.Lock()
	s.attempt++
	s.state = State{Kind: StateIdle}
	s.result = nil
	s.hasResult = false
	s.mu.Unlock()

	s.notify()
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the most recent successful scan result, if any. A failed
// scan does not invalidate a previously stored result.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.hasResult
}

// History returns the bounded scan history, newest first.
func (s *Session) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Entries()
}

// Subscribe registers an observer for state changes. The channel is buffered;
// a slow consumer misses intermediate states rather than blocking the session.
func (s *Session) Subscribe() <-chan State {
	ch := make(chan State, 16)
	s.mu.Lock()
	s.observers = append(s.observers, ch)
	s.mu.Unlock()
	return ch
}

func (s *Session) notify() {
	s.mu.Lock()
	state := s.state
	observers := make([]chan State, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, ch := range observers {
		select {
		case ch <- state:
		default:
		}
	}
}
