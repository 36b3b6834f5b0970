package app

import (
	"encoding/json"
	"fmt"
	"time"

	"navalwar/internal/domain"
)

// MoveEntry is one line of the match history.
type MoveEntry struct {
	Seq        int           `json:"seq"`
	Player     domain.Player `json:"player"`
	Action     ActionKind    `json:"action"`
	Event      domain.Event  `json:"event"`
	Captures   []domain.Kind `json:"captures,omitempty"`
	SelfLosses []domain.Kind `json:"self_losses,omitempty"`
	At         time.Time     `json:"at"`
}

// Record is the authoritative, persisted row of a match.
type Record struct {
	MatchID   string             `json:"match_id"`
	State     *domain.MatchState `json:"state"`
	Clock     *domain.Clock      `json:"clock"`
	Ready     domain.Readiness   `json:"ready"`
	Kills     domain.KillCounts  `json:"kills"`
	Moves     []MoveEntry        `json:"moves"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Marshal encodes the record as the opaque snapshot handed to a SnapshotStore.
func (r *Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalRecord decodes a stored snapshot.
func UnmarshalRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode match record: %w", err)
	}
	if r.State == nil || r.Clock == nil {
		return nil, fmt.Errorf("decode match record %q: missing state or clock", r.MatchID)
	}
	return &r, nil
}

func (r *Record) logMove(p domain.Player, kind ActionKind, o domain.Outcome, now time.Time) {
	seq := 1
	if n := len(r.Moves); n > 0 {
		seq = r.Moves[n-1].Seq + 1
	}
	r.Moves = append(r.Moves, MoveEntry{
		Seq:        seq,
		Player:     p,
		Action:     kind,
		Event:      o.Event,
		Captures:   o.Captures,
		SelfLosses: o.SelfLosses,
		At:         now,
	})
	if len(r.Moves) > MaxMoveLog {
		r.Moves = r.Moves[len(r.Moves)-MaxMoveLog:]
	}
}
