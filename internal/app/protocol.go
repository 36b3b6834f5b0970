package app

import (
	"encoding/json"
	"errors"
	"fmt"

	"navalwar/internal/domain"
)

// ActionKind identifies a client request.
type ActionKind string

const (
	ActionSetupPiece      ActionKind = "setup_piece"
	ActionClearSetup      ActionKind = "clear_setup"
	ActionAutoSetup       ActionKind = "auto_setup"
	ActionSubmitSetup     ActionKind = "submit_setup"
	ActionMove            ActionKind = "make_move"
	ActionTorpedo         ActionKind = "torpedo_attack"
	ActionAirAttack       ActionKind = "air_attack"
	ActionDetonateBomb    ActionKind = "detonate_bomb"
	ActionPause           ActionKind = "pause"
	ActionCancelPause     ActionKind = "cancel_pause"
	ActionResign          ActionKind = "resign"
	ActionGroupCandidates ActionKind = "get_group_candidates"
	ActionSpecialAttacks  ActionKind = "get_special_attacks"
	ActionGetState        ActionKind = "get_state"
)

// ActionKinds lists every request kind in wire op-code order.
var ActionKinds = []ActionKind{
	ActionSetupPiece, ActionClearSetup, ActionAutoSetup, ActionSubmitSetup,
	ActionMove, ActionTorpedo, ActionAirAttack, ActionDetonateBomb,
	ActionPause, ActionCancelPause, ActionResign,
	ActionGroupCandidates, ActionSpecialAttacks, ActionGetState,
}

// mutating reports whether the action may change the match record.
func (k ActionKind) mutating() bool {
	switch k {
	case ActionGroupCandidates, ActionSpecialAttacks, ActionGetState:
		return false
	}
	return true
}

var (
	ErrUnknownAction    = errors.New("unknown action")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrRateLimited      = errors.New("too many requests")
)

// Envelope is the JSON frame exchanged over text transports.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Point is a board cell on the wire, encoded as [x, y].
type Point [2]int

func (p Point) Coord() domain.Coord { return domain.C(p[0], p[1]) }

// PointOf converts a cell to its wire form.
func PointOf(c domain.Coord) Point { return Point{c.X, c.Y} }

type PlacementJSON struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Kind string `json:"kind"`
}

type SetupPiecePayload struct {
	Placements []PlacementJSON `json:"placements"`
	// Single placement form.
	X    *int   `json:"x,omitempty"`
	Y    *int   `json:"y,omitempty"`
	Kind string `json:"kind,omitempty"`
}

type MovePayload struct {
	Src       Point    `json:"src"`
	Dst       Point    `json:"dst"`
	Followers [][4]int `json:"followers,omitempty"`
}

type TorpedoPayload struct {
	Torpedo   Point  `json:"torpedo"`
	Launcher  *Point `json:"launcher,omitempty"`
	TK        *Point `json:"tk,omitempty"`
	Direction Point  `json:"direction"`
}

type AirAttackPayload struct {
	Carrier Point `json:"carrier"`
	Plane   Point `json:"plane"`
}

type BombPayload struct {
	Bomb Point `json:"bomb"`
}

type PausePayload struct {
	Type string `json:"type"`
}

type CoordPayload struct {
	Coord Point `json:"coord"`
}

// Action is a decoded client request. Only the fields of its Kind are set.
type Action struct {
	Kind       ActionKind
	Placements []domain.Placement
	Src, Dst   domain.Coord
	Followers  []domain.Follower
	Torpedo    domain.Coord
	Launcher   domain.Coord
	Direction  domain.Direction
	Carrier    domain.Coord
	Plane      domain.Coord
	Bomb       domain.Coord
	Pause      domain.PauseKind
	Coord      domain.Coord
}

// DecodeEnvelope parses a {type, data} frame.
func DecodeEnvelope(raw []byte) (Action, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Action{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return DecodeAction(ActionKind(env.Type), env.Data)
}

// DecodeAction parses the payload of a request of the given kind.
func DecodeAction(kind ActionKind, data []byte) (Action, error) {
	a := Action{Kind: kind}
	unmarshal := func(v any) error {
		if len(data) == 0 {
			return fmt.Errorf("%w: %s needs a payload", ErrMalformedPayload, kind)
		}
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return nil
	}

	switch kind {
	case ActionClearSetup, ActionAutoSetup, ActionSubmitSetup, ActionCancelPause,
		ActionResign, ActionSpecialAttacks, ActionGetState:
		return a, nil

	case ActionSetupPiece:
		var p SetupPiecePayload
		if err := unmarshal(&p); err != nil {
			return a, err
		}
		list := p.Placements
		if p.X != nil && p.Y != nil && p.Kind != "" {
			list = append(list, PlacementJSON{X: *p.X, Y: *p.Y, Kind: p.Kind})
		}
		if len(list) == 0 {
			return a, fmt.Errorf("%w: no placements", ErrMalformedPayload)
		}
		for _, pl := range list {
			k, err := domain.ParseKind(pl.Kind)
			if err != nil {
				return a, err
			}
			a.Placements = append(a.Placements, domain.Placement{At: domain.C(pl.X, pl.Y), Kind: k})
		}

	case ActionMove:
		var p MovePayload
		if err := unmarshal(&p); err != nil {
			return a, err
		}
		a.Src, a.Dst = p.Src.Coord(), p.Dst.Coord()
		for _, f := range p.Followers {
			a.Followers = append(a.Followers, domain.Follower{From: domain.C(f[0], f[1]), To: domain.C(f[2], f[3])})
		}

	case ActionTorpedo:
		var p TorpedoPayload
		if err := unmarshal(&p); err != nil {
			return a, err
		}
		launcher := p.Launcher
		if launcher == nil {
			launcher = p.TK
		}
		if launcher == nil {
			return a, fmt.Errorf("%w: torpedo needs a launcher", ErrMalformedPayload)
		}
		dir, err := domain.ParseDirection(p.Direction[0], p.Direction[1])
		if err != nil {
			return a, err
		}
		a.Torpedo, a.Launcher, a.Direction = p.Torpedo.Coord(), launcher.Coord(), dir

	case ActionAirAttack:
		var p AirAttackPayload
		if err := unmarshal(&p); err != nil {
			return a, err
		}
		a.Carrier, a.Plane = p.Carrier.Coord(), p.Plane.Coord()

	case ActionDetonateBomb:
		var p BombPayload
		if err := unmarshal(&p); err != nil {
			return a, err
		}
		a.Bomb = p.Bomb.Coord()

	case ActionPause:
		var p PausePayload
		if err := unmarshal(&p); err != nil {
			return a, err
		}
		k, err := domain.ParsePauseKind(p.Type)
		if err != nil {
			return a, err
		}
		a.Pause = k

	case ActionGroupCandidates:
		var p CoordPayload
		if err := unmarshal(&p); err != nil {
			return a, err
		}
		a.Coord = p.Coord.Coord()

	default:
		return a, fmt.Errorf("%w: %q", ErrUnknownAction, kind)
	}
	return a, nil
}
