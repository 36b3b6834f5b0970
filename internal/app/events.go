package app

import "navalwar/internal/domain"

// EventKind identifies a server message.
type EventKind string

const (
	EventStateUpdate     EventKind = "game_state_update"
	EventTick            EventKind = "tick"
	EventPaused          EventKind = "game_paused"
	EventFinished        EventKind = "game_finished"
	EventGroupCandidates EventKind = "group_candidates"
	EventSpecialAttacks  EventKind = "special_attacks"
	EventError           EventKind = "error"
)

// EventKinds lists every server message kind in wire op-code order.
var EventKinds = []EventKind{
	EventStateUpdate, EventTick, EventPaused, EventFinished,
	EventGroupCandidates, EventSpecialAttacks, EventError,
}

// Event is an app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []domain.Player // empty means broadcast
}

// For reports whether p should receive the event.
func (e Event) For(p domain.Player) bool {
	if len(e.Recipients) == 0 {
		return true
	}
	for _, r := range e.Recipients {
		if r == p {
			return true
		}
	}
	return false
}

// StateView is the fog-of-war filtered state of a match as one player sees it.
type StateView struct {
	Player domain.Player       `json:"player"`
	State  domain.SnapshotJSON `json:"state"`
	Clock  TickPayload         `json:"clock"`
	Ready  []domain.Player     `json:"ready"`
	Kills  domain.KillCounts   `json:"kills"`
	Last   *ResultView         `json:"last,omitempty"`
}

// ResultView summarises the last action for both players.
type ResultView struct {
	Actor      domain.Player `json:"actor"`
	Action     ActionKind    `json:"action"`
	Event      domain.Event  `json:"event"`
	Captures   []domain.Kind `json:"captures"`
	SelfLosses []domain.Kind `json:"self_losses"`
	Casualties []Point       `json:"casualties"`
	ExtraTurn  bool          `json:"extra_turn"`
}

type TickPayload struct {
	Turn        domain.Player    `json:"turn"`
	Phase       domain.Phase     `json:"phase"`
	BankMsP1    int64            `json:"bank_ms_p1"`
	BankMsP2    int64            `json:"bank_ms_p2"`
	TurnLeftMs  int64            `json:"turn_left_ms"`
	Paused      bool             `json:"paused"`
	PauseLeft   int64            `json:"pause_left"`
	PauseBy     domain.Player    `json:"pause_by,omitempty"`
	Finished    bool             `json:"finished"`
	Winner      *domain.Player   `json:"winner"`
	Reason      domain.WinReason `json:"reason,omitempty"`
	SetupLeftMs int64            `json:"setup_left_ms,omitempty"`
}

type PausedPayload struct {
	Type      domain.PauseKind `json:"type"`
	Duration  int64            `json:"duration"`
	Initiator domain.Player    `json:"initiator"`
}

type FinishedPayload struct {
	Winner domain.Player     `json:"winner"`
	Reason domain.WinReason  `json:"reason"`
	Kills  domain.KillCounts `json:"kills"`
	Moves  int               `json:"moves"`
}

type GroupCandidatesPayload struct {
	Coord Point   `json:"coord"`
	Group []Point `json:"group"`
}

type TorpedoOption struct {
	Torpedo    Point   `json:"torpedo"`
	TK         Point   `json:"tk"`
	Directions []Point `json:"directions"`
}

type AirOption struct {
	Carrier Point `json:"carrier"`
	Plane   Point `json:"plane"`
}

type SpecialAttacksPayload struct {
	Torpedo []TorpedoOption `json:"torpedo"`
	Air     []AirOption     `json:"air"`
	Bomb    []Point         `json:"bomb"`
}

// ErrorPayload reports a rejected action to its sender.
type ErrorPayload struct {
	Action  ActionKind `json:"action,omitempty"`
	Reason  string     `json:"reason"`
	Message string     `json:"message"`
}
