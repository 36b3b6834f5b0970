package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"navalwar/internal/domain"
	"navalwar/internal/ports"
)

// Conn is one attached client of a match. Send must not block: transports queue the event
// and drop it when the client cannot keep up.
type Conn interface {
	ID() string
	Player() domain.Player
	Send(Event) error
}

// Session serializes every operation on one match record and fans the resulting events
// out to the attached connections.
type Session struct {
	id       string
	svc      *Service
	store    ports.SnapshotStore
	logger   ports.Logger
	now      func() time.Time
	interval time.Duration

	mu    sync.Mutex
	rec   *Record
	conns map[string]Conn
}

type SessionOption func(*Session)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithTickInterval sets the period of Run. Defaults to one second.
func WithTickInterval(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithStore persists the record after every change.
func WithStore(store ports.SnapshotStore) SessionOption {
	return func(s *Session) { s.store = store }
}

func newSession(id string, svc *Service, logger ports.Logger, opts []SessionOption) *Session {
	s := &Session{
		id:       id,
		svc:      svc,
		logger:   logger,
		now:      time.Now,
		interval: time.Second,
		conns:    make(map[string]Conn),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSession opens a fresh match in SETUP.
func NewSession(id string, svc *Service, logger ports.Logger, opts ...SessionOption) *Session {
	s := newSession(id, svc, logger, opts)
	s.rec = svc.NewRecord(id, s.now())
	return s
}

// ResumeSession continues a match from a stored record.
func ResumeSession(rec *Record, svc *Service, logger ports.Logger, opts ...SessionOption) *Session {
	s := newSession(rec.MatchID, svc, logger, opts)
	s.rec = rec
	return s
}

func (s *Session) ID() string { return s.id }

// Attach registers c and sends it the current view of its player.
func (s *Session) Attach(c Conn) error {
	if !c.Player().Valid() {
		return ErrNotParticipant
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conns[c.ID()] = c
	s.logger.Debug("match %s: conn %s attached as player %d (%d attached)", s.id, c.ID(), c.Player(), len(s.conns))
	s.dispatch(s.svc.stateEvents(s.rec, s.now(), nil, c.Player()))
	return nil
}

// Detach removes c. The match keeps running without it.
func (s *Session) Detach(c Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c.ID())
	s.logger.Debug("match %s: conn %s detached (%d attached)", s.id, c.ID(), len(s.conns))
}

func (s *Session) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.State.Finished()
}

// Phase reports the current phase of the match.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.State.Phase
}

// Label returns the lobby label of the match for the given number of seated players.
func (s *Session) Label(seated int) domain.LabelPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ComputeLabel(s.rec.State, seated)
}

// View returns the state p is allowed to see.
func (s *Session) View(p domain.Player) StateView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.svc.View(s.rec, p, s.now(), nil)
}

// Handle applies one action sent by from. Rejections are reported to the sender as an
// error event and returned.
func (s *Session) Handle(ctx context.Context, from Conn, a Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	events := s.svc.Settle(s.rec, now)
	settled := len(events) > 0

	out, err := s.svc.Apply(s.rec, from.Player(), a, now)
	if err != nil {
		if settled {
			s.commit(ctx, now)
			s.dispatch(events)
		}
		s.logger.Debug("match %s: %s from player %d rejected: %v", s.id, a.Kind, from.Player(), err)
		s.reject(from, a.Kind, err)
		return err
	}

	if settled || a.Kind.mutating() {
		s.commit(ctx, now)
	}
	s.dispatch(append(events, out...))
	return nil
}

// Tick advances the clock and broadcasts the clock summary. It reports whether the match
// is over.
func (s *Session) Tick(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	banks, phase := s.rec.Clock.BankMs, s.rec.State.Phase
	events := s.svc.Tick(s.rec, now)
	if s.rec.Clock.BankMs != banks || s.rec.State.Phase != phase {
		s.commit(ctx, now)
	}
	s.dispatch(events)
	return s.rec.State.Finished()
}

// Run ticks the session until the match finishes or ctx is done.
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.Tick(ctx) {
				s.logger.Info("match %s: finished, stopping clock", s.id)
				return nil
			}
		}
	}
}

// Reject sends an error event for a request the transport could not even decode.
func (s *Session) Reject(from Conn, kind ActionKind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject(from, kind, err)
}

func (s *Session) reject(from Conn, kind ActionKind, err error) {
	ev := Event{
		Kind:       EventError,
		Payload:    ErrorPayload{Action: kind, Reason: ErrorReason(err), Message: err.Error()},
		Recipients: []domain.Player{from.Player()},
	}
	if sendErr := from.Send(ev); sendErr != nil {
		s.logger.Warn("match %s: failed to send error to conn %s: %v", s.id, from.ID(), sendErr)
	}
}

// commit stamps and persists the record. A failed save is logged and the in-memory record
// stays authoritative.
func (s *Session) commit(ctx context.Context, now time.Time) {
	s.rec.UpdatedAt = now
	if s.store == nil {
		return
	}
	data, err := s.rec.Marshal()
	if err != nil {
		s.logger.Error("match %s: failed to encode record: %v", s.id, err)
		return
	}
	if err := s.store.Save(ctx, s.id, data); err != nil {
		s.logger.Error("match %s: failed to save record: %v", s.id, err)
	}
}

func (s *Session) dispatch(events []Event) {
	for _, ev := range events {
		for _, c := range s.conns {
			if !ev.For(c.Player()) {
				continue
			}
			if err := c.Send(ev); err != nil {
				s.logger.Warn("match %s: dropped %s for conn %s: %v", s.id, ev.Kind, c.ID(), err)
			}
		}
	}
}

// ErrorReason maps an action error to the reason tag sent to clients.
func ErrorReason(err error) string {
	if r := domain.ReasonOf(err); r != "" {
		return string(r)
	}
	switch {
	case errors.Is(err, ErrUnknownAction):
		return "UnknownAction"
	case errors.Is(err, ErrMalformedPayload):
		return "MalformedPayload"
	case errors.Is(err, ErrRateLimited):
		return "RateLimited"
	case errors.Is(err, ErrNotParticipant):
		return "NotParticipant"
	case errors.Is(err, ErrMatchNotFound):
		return "MatchNotFound"
	}
	return "Internal"
}
