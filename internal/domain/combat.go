package domain

// Event tags the kind of resolution an action produced.
type Event string

const (
	EventMove       Event = "move"
	EventCapture    Event = "capture"
	EventRepelled   Event = "def_win"
	EventExchange   Event = "exchange"
	EventAtomic     Event = "ab_explode"
	EventTanker     Event = "tanker_boom"
	EventMineSwept  Event = "mine_swept"
	EventMineHit    Event = "mine_boom"
	EventStaticMine Event = "s_mine_boom"
	EventTorpedo    Event = "torpedo"
	EventAirStrike  Event = "air"
)

// Casualty is a piece removed from the board by an action.
type Casualty struct {
	At    Coord
	Piece Piece
}

// Outcome describes what an action did. Captures and SelfLosses are seen from the actor.
type Outcome struct {
	Actor      Player
	Event      Event
	Captures   []Kind
	SelfLosses []Kind
	Casualties []Casualty
	ExtraTurn  bool
}

// kill removes the piece at c and books it against its owner.
func (o *Outcome) kill(b *Board, c Coord) {
	p, ok := b.Remove(c)
	if !ok {
		return
	}
	p.Alive = false
	o.Casualties = append(o.Casualties, Casualty{At: c, Piece: p})
	if p.Owner == o.Actor {
		o.SelfLosses = append(o.SelfLosses, p.Kind)
	} else {
		o.Captures = append(o.Captures, p.Kind)
	}
}

// Verdict is the result of a strength comparison.
type Verdict int

const (
	DefenderWins Verdict = -1
	Exchange     Verdict = 0
	AttackerWins Verdict = 1
)

// Group is up to MaxGroupSize same-kind, same-owner pieces fighting together.
type Group struct {
	Owner Player
	Kind  Kind
	Cells []Coord
}

// Strength sums the ranks of the group members.
func (g Group) Strength() int {
	return g.Kind.Rank() * len(g.Cells)
}

// FindGroup collects living pieces of (owner, kind) connected to origin through same-kind
// neighbours, breadth first, stopping at MaxGroupSize. origin itself must match.
func FindGroup(b *Board, origin Coord, kind Kind, owner Player) Group {
	g := Group{Owner: owner, Kind: kind}
	matches := func(c Coord) bool {
		p, ok := b.At(c)
		return ok && p.Alive && p.Owner == owner && p.Kind == kind
	}
	if !matches(origin) {
		return g
	}

	seen := map[Coord]bool{origin: true}
	queue := []Coord{origin}
	for len(queue) > 0 && len(g.Cells) < MaxGroupSize {
		c := queue[0]
		queue = queue[1:]
		g.Cells = append(g.Cells, c)
		for _, n := range c.Neighbors4() {
			if seen[n] || !matches(n) {
				continue
			}
			seen[n] = true
			queue = append(queue, n)
		}
	}
	return g
}

// Compare decides group combat. The one-sided kill table applies only between single pieces,
// in whichever direction it matches.
func Compare(attacker, defender Group) Verdict {
	if len(attacker.Cells) == 1 && len(defender.Cells) == 1 {
		if IsSpecialKill(attacker.Kind, defender.Kind) {
			return AttackerWins
		}
		if IsSpecialKill(defender.Kind, attacker.Kind) {
			return DefenderWins
		}
	}
	sa, sd := attacker.Strength(), defender.Strength()
	switch {
	case sa > sd:
		return AttackerWins
	case sa < sd:
		return DefenderWins
	default:
		return Exchange
	}
}

// resolveContact settles the piece at src running into the enemy piece at dst.
// It mutates b and never advances the turn.
func resolveContact(b *Board, actor Player, src, dst Coord) Outcome {
	o := Outcome{Actor: actor}
	u, _ := b.At(src)
	v, _ := b.At(dst)

	switch {
	case u.Kind == KindAB || v.Kind == KindAB:
		o.Event = EventAtomic
		center := src
		if v.Kind == KindAB {
			center = dst
		}
		explode(b, center, &o)
		return o

	case u.Kind == KindTN || v.Kind == KindTN:
		o.Event = EventTanker
		o.kill(b, dst)
		o.kill(b, src)
		return o

	case v.Kind == KindM:
		if u.Kind == KindTR {
			o.Event = EventMineSwept
			o.kill(b, dst)
			b.Reveal(src)
			o.ExtraTurn = true
			return o
		}
		o.Event = EventMineHit
		o.kill(b, src)
		b.Reveal(dst)
		return o

	case v.Kind == KindSM:
		o.Event = EventStaticMine
		o.kill(b, src)
		b.Reveal(dst)
		return o
	}

	atk := FindGroup(b, src, u.Kind, u.Owner)
	def := FindGroup(b, dst, v.Kind, v.Owner)

	switch Compare(atk, def) {
	case AttackerWins:
		o.Event = EventCapture
		o.kill(b, dst)
		b.Relocate(src, dst)
		revealAll(b, atk.Cells, dst)
		revealAll(b, def.Cells)
	case DefenderWins:
		o.Event = EventRepelled
		o.kill(b, src)
		revealAll(b, atk.Cells)
		revealAll(b, def.Cells)
	default:
		o.Event = EventExchange
		for _, c := range def.Cells {
			o.kill(b, c)
		}
		for _, c := range atk.Cells {
			o.kill(b, c)
		}
	}
	return o
}

// explode clears the blast square around center. Bombs caught in the blast chain their own
// blast; a piece already marked dead is mid-detonation and is skipped.
func explode(b *Board, center Coord, o *Outcome) {
	if p, ok := b.At(center); ok {
		p.Alive = false
		b.Put(center, p)
	}
	for y := center.Y - BlastRadius; y <= center.Y+BlastRadius; y++ {
		for x := center.X - BlastRadius; x <= center.X+BlastRadius; x++ {
			c := C(x, y)
			if c == center || !c.InBounds() {
				continue
			}
			p, ok := b.At(c)
			if !ok || !p.Alive {
				continue
			}
			if p.Kind == KindAB {
				explode(b, c, o)
				continue
			}
			o.kill(b, c)
		}
	}
	o.kill(b, center)
}

// revealAll reveals every occupied cell in cells and extra.
func revealAll(b *Board, cells []Coord, extra ...Coord) {
	for _, c := range cells {
		b.Reveal(c)
	}
	for _, c := range extra {
		b.Reveal(c)
	}
}

// GroupCandidates returns the group player's piece at c would fight with.
func (s *MatchState) GroupCandidates(player Player, c Coord) ([]Coord, error) {
	if !c.InBounds() {
		return nil, reject(ReasonOutOfBounds, c.String())
	}
	p, ok := s.Board.At(c)
	if !ok {
		return nil, ErrEmptySource
	}
	if p.Owner != player {
		return nil, ErrNotYourPiece
	}
	return FindGroup(s.Board, c, p.Kind, player).Cells, nil
}
