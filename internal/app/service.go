package app

import (
	"errors"
	"math/rand"
	"time"

	"navalwar/internal/domain"
)

// Service contains naval-combat use-cases operating on a match record.
// It is not safe for concurrent use; callers serialize access per match.
type Service struct {
	rng      *rand.Rand
	settings domain.ClockSettings
}

// NewService constructs a Service with provided rng or a time-seeded default.
func NewService(rng *rand.Rand, settings domain.ClockSettings) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{rng: rng, settings: settings}
}

var (
	ErrNotParticipant = errors.New("not a participant of this match")
	ErrMatchNotFound  = errors.New("match not found")
)

// NewRecord creates a fresh match in SETUP.
func (s *Service) NewRecord(matchID string, now time.Time) *Record {
	return &Record{
		MatchID:   matchID,
		State:     domain.NewMatchState(),
		Clock:     domain.NewClock(s.settings, now),
		Kills:     domain.KillCounts{{}, {}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Apply runs one client action for actor and returns the events to dispatch.
// On error the record is left untouched.
func (s *Service) Apply(rec *Record, actor domain.Player, a Action, now time.Time) ([]Event, error) {
	if !actor.Valid() {
		return nil, ErrNotParticipant
	}
	st := rec.State

	switch a.Kind {
	case ActionSetupPiece, ActionClearSetup, ActionAutoSetup:
		if st.Phase == domain.PhaseSetup && rec.Ready.IsReady(actor) {
			return nil, domain.ErrAlreadyReady
		}
		var err error
		switch a.Kind {
		case ActionSetupPiece:
			err = st.PlaceAll(actor, a.Placements)
		case ActionClearSetup:
			err = st.ClearSetup(actor)
		default:
			_, err = st.AutoSetup(actor, s.rng)
		}
		if err != nil {
			return nil, err
		}
		return s.stateEvents(rec, now, nil, actor), nil

	case ActionSubmitSetup:
		if st.Phase != domain.PhaseSetup {
			return nil, domain.ErrBadPhase
		}
		if err := s.signalReady(rec, actor, now); err != nil {
			return nil, err
		}
		return s.stateEvents(rec, now, nil), nil

	case ActionMove, ActionTorpedo, ActionAirAttack, ActionDetonateBomb:
		prev := st.Turn
		var (
			o   domain.Outcome
			err error
		)
		switch a.Kind {
		case ActionMove:
			o, err = st.Move(actor, a.Src, a.Dst, a.Followers)
		case ActionTorpedo:
			o, err = st.Torpedo(actor, a.Torpedo, a.Launcher, a.Direction)
		case ActionAirAttack:
			o, err = st.AirAttack(actor, a.Carrier, a.Plane)
		default:
			o, err = st.DetonateBomb(actor, a.Bomb)
		}
		if err != nil {
			return nil, err
		}
		rec.Clock.Handover(st, prev, now)
		rec.Kills.Record(o)
		rec.logMove(actor, a.Kind, o, now)
		events := s.stateEvents(rec, now, resultView(a.Kind, o))
		return s.withFinish(rec, events), nil

	case ActionPause:
		d, err := rec.Clock.Pause(st, actor, a.Pause, now)
		if err != nil {
			return nil, err
		}
		events := []Event{{
			Kind:    EventPaused,
			Payload: PausedPayload{Type: a.Pause, Duration: int64(d / time.Second), Initiator: actor},
		}}
		return append(events, s.stateEvents(rec, now, nil)...), nil

	case ActionCancelPause:
		if err := rec.Clock.CancelPause(st, actor, now); err != nil {
			return nil, err
		}
		return s.stateEvents(rec, now, nil), nil

	case ActionResign:
		running := st.Turn
		if err := st.Resign(actor); err != nil {
			return nil, err
		}
		if rec.Clock.Live(running) {
			rec.Clock.EndTurn(running, now)
		}
		return s.withFinish(rec, s.stateEvents(rec, now, nil)), nil

	case ActionGroupCandidates:
		cells, err := st.GroupCandidates(actor, a.Coord)
		if err != nil {
			return nil, err
		}
		payload := GroupCandidatesPayload{Coord: PointOf(a.Coord), Group: points(cells)}
		return []Event{{Kind: EventGroupCandidates, Payload: payload, Recipients: []domain.Player{actor}}}, nil

	case ActionSpecialAttacks:
		attacks, err := st.SpecialAttacks(actor)
		if err != nil {
			return nil, err
		}
		return []Event{{Kind: EventSpecialAttacks, Payload: specialAttacksPayload(attacks), Recipients: []domain.Player{actor}}}, nil

	case ActionGetState:
		return s.stateEvents(rec, now, nil, actor), nil
	}
	return nil, ErrUnknownAction
}

// signalReady records a ready signal and starts the battle once both players are in.
func (s *Service) signalReady(rec *Record, p domain.Player, now time.Time) error {
	first, start, err := rec.Ready.Signal(p)
	if err != nil {
		return err
	}
	if !start {
		return nil
	}
	if err := rec.State.StartBattle(first); err != nil {
		return err
	}
	rec.Clock.StartTurn(first, now)
	return nil
}

// Settle brings the clock up to now and returns events only for the transitions it caused:
// an expired setup window, the end of a pause, or a lost bank.
func (s *Service) Settle(rec *Record, now time.Time) []Event {
	r := rec.Clock.Tick(rec.State, now)
	switch {
	case r.SetupExpired:
		for _, p := range []domain.Player{domain.Player1, domain.Player2} {
			if rec.Ready.IsReady(p) {
				continue
			}
			if rec.State.PlacedTotal(p) < domain.TotalQuota() {
				// Cannot fail in SETUP; a partial fill is still a valid setup.
				_, _ = rec.State.AutoSetup(p, s.rng)
			}
			_ = s.signalReady(rec, p, now)
		}
		return s.stateEvents(rec, now, nil)
	case r.TimedOut:
		return s.withFinish(rec, s.stateEvents(rec, now, nil))
	case r.Resumed:
		return s.stateEvents(rec, now, nil)
	}
	return nil
}

// Tick settles the clock and appends the periodic clock broadcast.
func (s *Service) Tick(rec *Record, now time.Time) []Event {
	events := s.Settle(rec, now)
	return append(events, Event{Kind: EventTick, Payload: s.TickView(rec, now)})
}

// TickView is the clock summary shared by both players.
func (s *Service) TickView(rec *Record, now time.Time) TickPayload {
	st, c := rec.State, rec.Clock
	v := TickPayload{
		Turn:     st.Turn,
		Phase:    st.Phase,
		BankMsP1: c.BankLeft(domain.Player1).Milliseconds(),
		BankMsP2: c.BankLeft(domain.Player2).Milliseconds(),
		Paused:   st.Phase == domain.PhasePaused,
		Finished: st.Finished(),
		Reason:   st.WinReason,
	}
	if st.Turn.Valid() {
		v.TurnLeftMs = c.TurnLeft(st.Turn, now).Milliseconds()
	}
	if v.Paused {
		v.PauseLeft = int64(c.PauseLeft(now) / time.Second)
		v.PauseBy = c.PauseInitiator
	}
	if st.Winner.Valid() {
		w := st.Winner
		v.Winner = &w
	}
	if st.Phase == domain.PhaseSetup && !c.SetupDeadline.IsZero() && now.Before(c.SetupDeadline) {
		v.SetupLeftMs = c.SetupDeadline.Sub(now).Milliseconds()
	}
	return v
}

// View builds the state p is allowed to see.
func (s *Service) View(rec *Record, p domain.Player, now time.Time, last *ResultView) StateView {
	return StateView{
		Player: p,
		State:  rec.State.View(p).Snapshot(),
		Clock:  s.TickView(rec, now),
		Ready:  append([]domain.Player(nil), rec.Ready.Order...),
		Kills:  rec.Kills,
		Last:   last,
	}
}

// stateEvents returns one filtered state update per recipient, both players by default.
func (s *Service) stateEvents(rec *Record, now time.Time, last *ResultView, only ...domain.Player) []Event {
	recipients := only
	if len(recipients) == 0 {
		recipients = []domain.Player{domain.Player1, domain.Player2}
	}
	events := make([]Event, 0, len(recipients))
	for _, p := range recipients {
		events = append(events, Event{
			Kind:       EventStateUpdate,
			Payload:    s.View(rec, p, now, last),
			Recipients: []domain.Player{p},
		})
	}
	return events
}

func (s *Service) withFinish(rec *Record, events []Event) []Event {
	if !rec.State.Finished() {
		return events
	}
	return append(events, Event{
		Kind: EventFinished,
		Payload: FinishedPayload{
			Winner: rec.State.Winner,
			Reason: rec.State.WinReason,
			Kills:  rec.Kills,
			Moves:  len(rec.Moves),
		},
	})
}

func resultView(kind ActionKind, o domain.Outcome) *ResultView {
	cells := make([]Point, 0, len(o.Casualties))
	for _, c := range o.Casualties {
		cells = append(cells, PointOf(c.At))
	}
	return &ResultView{
		Actor:      o.Actor,
		Action:     kind,
		Event:      o.Event,
		Captures:   o.Captures,
		SelfLosses: o.SelfLosses,
		Casualties: cells,
		ExtraTurn:  o.ExtraTurn,
	}
}

func points(cs []domain.Coord) []Point {
	out := make([]Point, 0, len(cs))
	for _, c := range cs {
		out = append(out, PointOf(c))
	}
	return out
}

func specialAttacksPayload(attacks []domain.SpecialAttack) SpecialAttacksPayload {
	out := SpecialAttacksPayload{Torpedo: []TorpedoOption{}, Air: []AirOption{}, Bomb: []Point{}}
	for _, a := range attacks {
		switch a.Kind {
		case domain.AttackTorpedo:
			dirs := make([]Point, 0, len(a.Directions))
			for _, d := range a.Directions {
				dirs = append(dirs, Point{d.DX, d.DY})
			}
			out.Torpedo = append(out.Torpedo, TorpedoOption{Torpedo: PointOf(a.Munition), TK: PointOf(a.Launcher), Directions: dirs})
		case domain.AttackAir:
			out.Air = append(out.Air, AirOption{Carrier: PointOf(a.Launcher), Plane: PointOf(a.Munition)})
		case domain.AttackBomb:
			out.Bomb = append(out.Bomb, PointOf(a.Munition))
		}
	}
	return out
}
