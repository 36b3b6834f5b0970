package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PieceJSON is the wire form of a piece.
type PieceJSON struct {
	Owner     Player   `json:"owner"`
	Kind      Kind     `json:"kind"`
	Alive     bool     `json:"alive"`
	VisibleTo []Player `json:"visibleTo,omitempty"`
}

// SnapshotJSON is the persisted and broadcast form of a MatchState. Board keys are "x,y".
type SnapshotJSON struct {
	Turn        Player                  `json:"turn"`
	Phase       Phase                   `json:"phase"`
	Winner      *Player                 `json:"winner"`
	WinReason   WinReason               `json:"winReason"`
	SetupCounts map[string]map[Kind]int `json:"setupCounts"`
	Board       map[string]PieceJSON    `json:"board"`
}

// ParseCoordKey decodes an "x,y" board key.
func ParseCoordKey(key string) (Coord, error) {
	xs, ys, ok := strings.Cut(key, ",")
	if !ok {
		return Coord{}, fmt.Errorf("coordinate key %q: missing comma", key)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return Coord{}, fmt.Errorf("coordinate key %q: %w", key, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return Coord{}, fmt.Errorf("coordinate key %q: %w", key, err)
	}
	return C(x, y), nil
}

// Snapshot converts the state into its wire form.
func (s *MatchState) Snapshot() SnapshotJSON {
	out := SnapshotJSON{
		Turn:        s.Turn,
		Phase:       s.Phase,
		WinReason:   s.WinReason,
		SetupCounts: make(map[string]map[Kind]int, 2),
		Board:       make(map[string]PieceJSON, s.Board.Len()),
	}
	if s.Winner.Valid() {
		w := s.Winner
		out.Winner = &w
	}
	for _, p := range []Player{Player1, Player2} {
		counts := make(map[Kind]int, len(s.SetupCounts[p.Index()]))
		for k, n := range s.SetupCounts[p.Index()] {
			counts[k] = n
		}
		out.SetupCounts[strconv.Itoa(int(p))] = counts
	}
	s.Board.Each(func(c Coord, p Piece) {
		out.Board[c.Key()] = PieceJSON{
			Owner:     p.Owner,
			Kind:      p.Kind,
			Alive:     p.Alive,
			VisibleTo: p.VisibleTo.Players(),
		}
	})
	return out
}

// Restore rebuilds a MatchState from its wire form.
func (snap SnapshotJSON) Restore() (*MatchState, error) {
	s := NewMatchState()
	s.Turn = snap.Turn
	s.Phase = snap.Phase
	s.WinReason = snap.WinReason
	if snap.Winner != nil {
		s.Winner = *snap.Winner
	}
	if !s.Turn.Valid() {
		return nil, fmt.Errorf("snapshot turn %d: %w", s.Turn, ErrUnknownPlayer)
	}
	if !s.Phase.Valid() {
		return nil, fmt.Errorf("snapshot phase %q: %w", s.Phase, ErrBadPhase)
	}
	if s.Winner != NoPlayer && !s.Winner.Valid() {
		return nil, fmt.Errorf("snapshot winner %d: %w", s.Winner, ErrUnknownPlayer)
	}
	for key, counts := range snap.SetupCounts {
		n, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("setup counts key %q: %w", key, err)
		}
		p, err := ParsePlayer(n)
		if err != nil {
			return nil, err
		}
		for k, c := range counts {
			if !k.Valid() {
				return nil, fmt.Errorf("setup counts kind %q: %w", k, ErrInvalidPieceType)
			}
			s.SetupCounts[p.Index()][k] = c
		}
	}
	for key, pj := range snap.Board {
		c, err := ParseCoordKey(key)
		if err != nil {
			return nil, err
		}
		if !c.InBounds() {
			return nil, fmt.Errorf("board cell %s: %w", c, ErrOutOfBounds)
		}
		if !pj.Owner.Valid() || !pj.Kind.Valid() {
			return nil, fmt.Errorf("board cell %s: bad piece %d/%q", c, pj.Owner, pj.Kind)
		}
		vis := VisibleTo(pj.VisibleTo...)
		if vis == 0 {
			vis = VisibleTo(pj.Owner)
		}
		s.Board.Put(c, Piece{Owner: pj.Owner, Kind: pj.Kind, Alive: true, VisibleTo: vis})
	}
	return s, nil
}

// MarshalJSON encodes the state as a snapshot.
func (s *MatchState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// UnmarshalJSON decodes a snapshot into s.
func (s *MatchState) UnmarshalJSON(data []byte) error {
	var snap SnapshotJSON
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	restored, err := snap.Restore()
	if err != nil {
		return err
	}
	*s = *restored
	return nil
}

// View returns a copy of the state whose board only holds what player may see.
// Setup counters of the opponent are hidden.
func (s *MatchState) View(player Player) *MatchState {
	v := s.Clone()
	v.Board = s.Board.VisibleFor(player)
	if player.Valid() {
		v.SetupCounts[player.Opponent().Index()] = map[Kind]int{}
	}
	return v
}
