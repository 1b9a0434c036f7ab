package session

// Package session owns the document-viewing security session: the state
// machine that collects exfiltration signals, escalates them through the
// judge, and enforces termination or expiry. One Session instance serves one
// view attempt and is never shared across viewers.

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"securedoc/internal/judge"
	"securedoc/internal/model"
)

// State is the session lifecycle state. TERMINATED and EXPIRED are terminal
// sinks: no signal, verdict or tick can leave them.
type State string

const (
	StateActive     State = "ACTIVE"
	StateWarned     State = "WARNED"
	StateTerminated State = "TERMINATED"
	StateExpired    State = "EXPIRED"
)

// Terminal reports whether the state is a sink.
func (s State) Terminal() bool {
	return s == StateTerminated || s == StateExpired
}

// UpdateType labels the projection frames pushed to the viewer.
type UpdateType string

const (
	UpdateTick       UpdateType = "tick"
	UpdateWarning    UpdateType = "warning"
	UpdateActive     UpdateType = "active" // warning cool-down elapsed
	UpdateTerminated UpdateType = "terminated"
	UpdateExpired    UpdateType = "expired"
)

// Update is the complete UI projection: the client renders {state, reason,
// timeLeft} and holds no security state of its own.
type Update struct {
	Type     UpdateType `json:"type"`
	State    State      `json:"state"`
	Reason   string     `json:"reason,omitempty"`
	TimeLeft int        `json:"timeLeft"`
}

// Revoker performs the irreversible revocation on termination. The
// implementation retries until both persisted effects land.
type Revoker interface {
	Revoke(ctx context.Context, secureID, reason string) error
}

// Config carries the locally-owned session policy knobs.
type Config struct {
	// WarnRevert is how long the session stays WARNED before auto-reverting.
	WarnRevert time.Duration
	// TickInterval is the expiry clock resolution.
	TickInterval time.Duration
}

const defaultTerminateReason = "Suspicious activity detected."

// verdictResult pairs a judgment with the attempt counter it was issued for.
type verdictResult struct {
	judge.Judgment
	attempt int
}

// Session is the state machine for one document-view attempt. All state is
// owned by a single run-loop goroutine; signals, judge replies and clock
// ticks may interleave in any order.
type Session struct {
	secureID string
	expireAt time.Time
	judge    judge.Judge
	revoker  Revoker
	cfg      Config
	log      *zap.Logger
	now      func() time.Time

	signals  chan string
	verdicts chan verdictResult
	updates  chan Update
	done     chan struct{}

	cancel    context.CancelFunc
	closeOnce sync.Once

	mu    sync.Mutex
	state State
}

// New builds a session for the given document. Identity and expiry are
// explicit inputs; nothing is read from ambient globals.
func New(secureID string, expireAt time.Time, j judge.Judge, r Revoker, cfg Config, log *zap.Logger) *Session {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.WarnRevert <= 0 {
		cfg.WarnRevert = 2 * time.Second
	}
	return &Session{
		secureID: secureID,
		expireAt: expireAt,
		judge:    j,
		revoker:  r,
		cfg:      cfg,
		log:      log.With(zap.String("secure_id", secureID)),
		now:      time.Now,
		signals:  make(chan string, 64),
		verdicts: make(chan verdictResult, 1),
		updates:  make(chan Update, 32),
		done:     make(chan struct{}),
		state:    StateActive,
	}
}

// Start launches the run loop. The session stops when ctx is canceled,
// Close is called, or a terminal state is reached.
func (s *Session) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
}

// Close tears the session down deterministically: the collector stops
// accepting signals, the clock stops, and an in-flight judge reply is
// discarded instead of being applied to a defunct session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Signal appends one observed signal label. It reports false once the
// session is terminal or torn down; a false return means the signal had no
// effect. It never blocks longer than the dispatch itself.
func (s *Session) Signal(label string) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case <-s.done:
		return false
	case s.signals <- label:
		return true
	}
}

// Updates streams UI projections. The channel closes when the session ends.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Done closes when the run loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) run(ctx context.Context) {
	defer close(s.updates)
	defer close(s.done)
	// Releases the in-flight judge call, if any, once the loop exits.
	defer s.cancel()

	clock := newExpiryClock(s.expireAt, s.cfg.TickInterval, s.now)
	defer clock.Stop()

	var (
		events   []string
		attempts int
		inflight bool
		dirty    bool
		warnC    <-chan time.Time
	)

	// Immediate projection so the viewer has a countdown before the first tick.
	s.emitTick(Update{Type: UpdateTick, State: StateActive, TimeLeft: clock.Remaining()})

	for {
		select {
		case <-ctx.Done():
			return

		case label := <-s.signals:
			// Arrival order is append order; every signal counts as its own
			// attempt, duplicates included.
			events = append(events, label)
			attempts++
			if inflight {
				// The running judge call keeps going; this signal rides the
				// next call together with the complete log.
				dirty = true
			} else {
				s.dispatch(ctx, events, attempts)
				inflight = true
			}

		case res := <-s.verdicts:
			inflight = false
			switch res.Verdict {
			case model.VerdictTerminate:
				reason := res.Reason
				if reason == "" {
					reason = defaultTerminateReason
				}
				s.setState(StateTerminated)
				s.log.Info("session terminated", zap.String("reason", reason), zap.Int("attempt", res.attempt))
				s.emit(ctx, Update{Type: UpdateTerminated, State: StateTerminated, Reason: reason, TimeLeft: clock.Remaining()})
				// Detached from the session context: the revocation must land
				// even though the session itself is over.
				if err := s.revoker.Revoke(context.WithoutCancel(ctx), s.secureID, reason); err != nil {
					s.log.Error("revocation failed", zap.Error(err))
				}
				return

			case model.VerdictWarning:
				reason := res.Reason
				if reason == "" {
					reason = "Security Warning!"
				}
				s.setState(StateWarned)
				s.emit(ctx, Update{Type: UpdateWarning, State: StateWarned, Reason: reason, TimeLeft: clock.Remaining()})
				warnC = time.After(s.cfg.WarnRevert)
			}
			if dirty {
				dirty = false
				s.dispatch(ctx, events, attempts)
				inflight = true
			}

		case <-warnC:
			warnC = nil
			if s.State() == StateWarned {
				s.setState(StateActive)
				s.emit(ctx, Update{Type: UpdateActive, State: StateActive, TimeLeft: clock.Remaining()})
			}

		case <-clock.C():
			if clock.Expired() {
				s.setState(StateExpired)
				s.log.Info("session expired")
				// Expiry does not revoke: the document's own expireAt already
				// renders it inaccessible.
				s.emit(ctx, Update{Type: UpdateExpired, State: StateExpired, TimeLeft: 0})
				return
			}
			s.emitTick(Update{Type: UpdateTick, State: s.State(), TimeLeft: clock.Remaining()})
		}
	}
}

// dispatch runs one judge pass off the loop goroutine with a snapshot of the
// complete log. A reply landing after the loop exits is dropped via ctx.
func (s *Session) dispatch(ctx context.Context, events []string, attempt int) {
	snapshot := make([]string, len(events))
	copy(snapshot, events)
	go func() {
		res := verdictResult{Judgment: s.judge.Judge(ctx, snapshot, attempt), attempt: attempt}
		select {
		case s.verdicts <- res:
		case <-ctx.Done():
		}
	}()
}

func (s *Session) emit(ctx context.Context, u Update) {
	select {
	case s.updates <- u:
	case <-ctx.Done():
	}
}

// emitTick drops the frame when the consumer lags; ticks are refreshed every
// interval anyway, and the run loop must not stall on a slow reader.
func (s *Session) emitTick(u Update) {
	select {
	case s.updates <- u:
	default:
	}
}
