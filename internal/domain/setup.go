package domain

import (
	"fmt"
	"math/rand"
)

// Placement is one requested setup placement.
type Placement struct {
	At   Coord
	Kind Kind
}

// InSetupZone reports whether c lies in owner's placement band.
func InSetupZone(owner Player, c Coord) bool {
	switch owner {
	case Player1:
		return c.Y >= P1ZoneMinY && c.Y <= P1ZoneMaxY
	case Player2:
		return c.Y >= P2ZoneMinY && c.Y <= P2ZoneMaxY
	default:
		return false
	}
}

// Place puts a new piece of kind at c for owner.
func (s *MatchState) Place(owner Player, c Coord, kind Kind) error {
	if !owner.Valid() {
		return ErrUnknownPlayer
	}
	if s.Phase != PhaseSetup {
		return reject(ReasonBadPhase, "not setup phase")
	}
	if !kind.Valid() {
		return reject(ReasonInvalidPieceType, string(kind))
	}
	if !c.InBounds() {
		return reject(ReasonOutOfBounds, c.String())
	}
	if !InSetupZone(owner, c) {
		return reject(ReasonInvalidZone, c.String())
	}
	if s.Board.Occupied(c) {
		return reject(ReasonCellOccupied, c.String())
	}
	counts := s.SetupCounts[owner.Index()]
	if counts[kind] >= kind.Quota() {
		return reject(ReasonQuotaExceeded, fmt.Sprintf("too many %s", kind))
	}

	s.Board.Put(c, NewPiece(owner, kind))
	counts[kind]++
	return nil
}

// PlaceAll applies a batch of placements, all or nothing.
func (s *MatchState) PlaceAll(owner Player, placements []Placement) error {
	next := s.Clone()
	for _, pl := range placements {
		if err := next.Place(owner, pl.At, pl.Kind); err != nil {
			return err
		}
	}
	*s = *next
	return nil
}

// ClearSetup removes every piece of owner and resets the owner's counters.
func (s *MatchState) ClearSetup(owner Player) error {
	if !owner.Valid() {
		return ErrUnknownPlayer
	}
	if s.Phase != PhaseSetup {
		return reject(ReasonBadPhase, "not setup phase")
	}
	s.Board.RemoveOwned(owner)
	s.SetupCounts[owner.Index()] = map[Kind]int{}
	return nil
}

// AutoSetup clears owner's zone and fills it with every required kind at random free cells.
// Cargo is placed next to a carrier when a free neighbour exists. Returns the number placed.
func (s *MatchState) AutoSetup(owner Player, rng *rand.Rand) (int, error) {
	if err := s.ClearSetup(owner); err != nil {
		return 0, err
	}

	free := s.freeZoneCells(owner)
	rng.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })

	placed := 0
	take := func(c Coord, kind Kind) bool {
		if err := s.Place(owner, c, kind); err != nil {
			return false
		}
		placed++
		return true
	}

	// Carriers first so their cargo has somewhere to go.
	order := make([]Kind, 0, len(Kinds))
	var cargo []Kind
	for _, k := range Kinds {
		if _, isCargo := CarrierOf(k); isCargo {
			cargo = append(cargo, k)
			continue
		}
		order = append(order, k)
	}
	order = append(order, cargo...)

	for _, kind := range order {
		for n := s.Placed(owner, kind); n < kind.Quota(); n++ {
			if carrier, isCargo := CarrierOf(kind); isCargo {
				if c, ok := s.freeNextToKind(owner, carrier, rng); ok && take(c, kind) {
					free = dropCoord(free, c)
					continue
				}
			}
			for len(free) > 0 {
				c := free[0]
				free = free[1:]
				if take(c, kind) {
					break
				}
			}
		}
	}
	return placed, nil
}

func (s *MatchState) freeZoneCells(owner Player) []Coord {
	var out []Coord
	for y := 0; y < BoardHeight; y++ {
		for x := 0; x < BoardWidth; x++ {
			c := C(x, y)
			if InSetupZone(owner, c) && !s.Board.Occupied(c) {
				out = append(out, c)
			}
		}
	}
	return out
}

// freeNextToKind picks a random free in-zone cell adjacent to one of owner's carrier pieces.
func (s *MatchState) freeNextToKind(owner Player, carrier Kind, rng *rand.Rand) (Coord, bool) {
	var candidates []Coord
	seen := map[Coord]bool{}
	s.Board.Each(func(c Coord, p Piece) {
		if p.Owner != owner || p.Kind != carrier {
			return
		}
		for _, n := range c.Neighbors4() {
			if seen[n] || !n.InBounds() || !InSetupZone(owner, n) || s.Board.Occupied(n) {
				continue
			}
			seen[n] = true
			candidates = append(candidates, n)
		}
	})
	if len(candidates) == 0 {
		return Coord{}, false
	}
	return candidates[rng.Intn(len(candidates))], true
}

func dropCoord(cs []Coord, c Coord) []Coord {
	for i := range cs {
		if cs[i] == c {
			return append(cs[:i], cs[i+1:]...)
		}
	}
	return cs
}

// Readiness tracks the order in which players finished their setup.
type Readiness struct {
	Order []Player
}

// IsReady reports whether p already signaled.
func (r *Readiness) IsReady(p Player) bool {
	for _, q := range r.Order {
		if q == p {
			return true
		}
	}
	return false
}

// Signal records p as ready. Once both players signaled, start is true and first is the
// player who signaled first.
func (r *Readiness) Signal(p Player) (first Player, start bool, err error) {
	if !p.Valid() {
		return NoPlayer, false, ErrUnknownPlayer
	}
	if r.IsReady(p) {
		return NoPlayer, false, ErrAlreadyReady
	}
	r.Order = append(r.Order, p)
	if len(r.Order) < 2 {
		return NoPlayer, false, nil
	}
	return r.Order[0], true, nil
}
