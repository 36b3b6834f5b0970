package domain

// Follower is one cargo piece towed along by a moving carrier.
type Follower struct {
	From Coord
	To   Coord
}

// Move relocates the actor's piece from src to dst, or fights the enemy piece at dst.
// Followers are only honoured when the carrier lands on an empty cell.
func (s *MatchState) Move(actor Player, src, dst Coord, followers []Follower) (Outcome, error) {
	if err := s.requireTurn(actor); err != nil {
		return Outcome{}, err
	}
	if !src.InBounds() || !dst.InBounds() {
		return Outcome{}, reject(ReasonOutOfBounds, src.String()+"->"+dst.String())
	}
	u, ok := s.Board.At(src)
	if !ok {
		return Outcome{}, reject(ReasonEmptySource, src.String())
	}
	if u.Owner != actor {
		return Outcome{}, ErrNotYourPiece
	}
	if u.Kind.Immobile() {
		return Outcome{}, reject(ReasonImmobilePiece, string(u.Kind))
	}
	if !legalStep(s.Board, u.Kind, src, dst) {
		return Outcome{}, reject(ReasonIllegalMove, src.String()+"->"+dst.String())
	}

	next := s.Board.Clone()
	var o Outcome
	if v, occupied := next.At(dst); occupied {
		if v.Owner == actor {
			return Outcome{}, reject(ReasonCellOccupied, dst.String())
		}
		o = resolveContact(next, actor, src, dst)
	} else {
		o = Outcome{Actor: actor, Event: EventMove}
		next.Relocate(src, dst)
		if err := moveFollowers(next, actor, u.Kind, src, dst, followers); err != nil {
			return Outcome{}, err
		}
	}

	s.Board = next
	s.finishAction(o)
	return o, nil
}

// legalStep allows one orthogonal step, or two in a straight line over an empty cell for TK.
func legalStep(b *Board, kind Kind, src, dst Coord) bool {
	d := dst.Sub(src)
	if d.Unit() {
		return true
	}
	if kind != KindTK {
		return false
	}
	straight := (abs(d.DX) == 2 && d.DY == 0) || (abs(d.DY) == 2 && d.DX == 0)
	if !straight {
		return false
	}
	mid := C(src.X+d.DX/2, src.Y+d.DY/2)
	return !b.Occupied(mid)
}

func moveFollowers(b *Board, actor Player, carrier Kind, src, dst Coord, followers []Follower) error {
	if len(followers) == 0 {
		return nil
	}
	cargo, ok := carrier.Cargo()
	if !ok {
		return reject(ReasonIllegalMove, string(carrier)+" carries nothing")
	}
	for _, f := range followers {
		if !f.From.InBounds() || !f.To.InBounds() {
			return reject(ReasonOutOfBounds, "follower "+f.From.String()+"->"+f.To.String())
		}
		p, ok := b.At(f.From)
		if !ok {
			return reject(ReasonEmptySource, "follower "+f.From.String())
		}
		if p.Owner != actor {
			return reject(ReasonNotYourPiece, "follower "+f.From.String())
		}
		if p.Kind != cargo {
			return reject(ReasonInvalidPieceType, "follower "+string(p.Kind))
		}
		if !f.From.Adjacent(src) || !f.To.Adjacent(dst) {
			return reject(ReasonNotAdjacent, "follower "+f.From.String()+"->"+f.To.String())
		}
		if f.To != f.From && b.Occupied(f.To) {
			return reject(ReasonCellOccupied, "follower "+f.To.String())
		}
		b.Relocate(f.From, f.To)
	}
	return nil
}

// Torpedo fires the actor's torpedo adjacent to its launcher. It flies along dir and sinks the
// first piece it meets, friend or foe.
func (s *MatchState) Torpedo(actor Player, torpedo, launcher Coord, dir Direction) (Outcome, error) {
	if err := s.requireTurn(actor); err != nil {
		return Outcome{}, err
	}
	if !torpedo.InBounds() || !launcher.InBounds() {
		return Outcome{}, ErrOutOfBounds
	}
	if err := s.requireOwn(actor, torpedo, KindT); err != nil {
		return Outcome{}, err
	}
	if err := s.requireOwn(actor, launcher, KindTK); err != nil {
		return Outcome{}, err
	}
	if !torpedo.Adjacent(launcher) {
		return Outcome{}, reject(ReasonNotAdjacent, "torpedo must touch its launcher")
	}
	if !dir.Unit() {
		return Outcome{}, ErrInvalidDirection
	}
	if dir == launcher.Sub(torpedo) {
		return Outcome{}, ErrCannotShootBackward
	}

	next := s.Board.Clone()
	o := Outcome{Actor: actor, Event: EventTorpedo}
	for c := torpedo.Add(dir); c.InBounds(); c = c.Add(dir) {
		if next.Occupied(c) {
			o.kill(next, c)
			break
		}
	}
	o.kill(next, torpedo)
	next.Reveal(launcher)

	s.Board = next
	s.finishAction(o)
	return o, nil
}

// AirAttack launches the plane parked in front of its carrier. It sweeps AirStrikeRange cells
// toward the enemy and destroys everything on the way.
func (s *MatchState) AirAttack(actor Player, carrier, plane Coord) (Outcome, error) {
	if err := s.requireTurn(actor); err != nil {
		return Outcome{}, err
	}
	if !carrier.InBounds() || !plane.InBounds() {
		return Outcome{}, ErrOutOfBounds
	}
	if err := s.requireOwn(actor, carrier, KindA); err != nil {
		return Outcome{}, err
	}
	if err := s.requireOwn(actor, plane, KindS); err != nil {
		return Outcome{}, err
	}
	forward := Direction{DY: actor.Forward()}
	if plane != carrier.Add(forward) {
		return Outcome{}, reject(ReasonNotAdjacent, "plane must stand in front of its carrier")
	}

	next := s.Board.Clone()
	o := Outcome{Actor: actor, Event: EventAirStrike}
	c := plane
	for i := 0; i < AirStrikeRange; i++ {
		c = c.Add(forward)
		if !c.InBounds() {
			break
		}
		o.kill(next, c)
	}
	o.kill(next, plane)
	next.Reveal(carrier)

	s.Board = next
	s.finishAction(o)
	return o, nil
}

// DetonateBomb sets off the actor's atomic bomb.
func (s *MatchState) DetonateBomb(actor Player, bomb Coord) (Outcome, error) {
	if err := s.requireTurn(actor); err != nil {
		return Outcome{}, err
	}
	if !bomb.InBounds() {
		return Outcome{}, ErrOutOfBounds
	}
	p, ok := s.Board.At(bomb)
	if !ok || p.Kind != KindAB {
		return Outcome{}, reject(ReasonInvalidPieceType, "no bomb at "+bomb.String())
	}
	if p.Owner != actor {
		return Outcome{}, ErrNotYourPiece
	}

	next := s.Board.Clone()
	o := Outcome{Actor: actor, Event: EventAtomic}
	explode(next, bomb, &o)

	s.Board = next
	s.finishAction(o)
	return o, nil
}

// requireOwn checks that the actor owns a piece of kind at c.
func (s *MatchState) requireOwn(actor Player, c Coord, kind Kind) error {
	p, ok := s.Board.At(c)
	if !ok {
		return reject(ReasonEmptySource, c.String())
	}
	if p.Owner != actor {
		return reject(ReasonNotYourPiece, c.String())
	}
	if p.Kind != kind {
		return reject(ReasonInvalidPieceType, "want "+string(kind)+" at "+c.String())
	}
	return nil
}

// finishAction runs the victory check and hands the turn over unless the match ended or
// the outcome grants another move.
func (s *MatchState) finishAction(o Outcome) {
	if s.CheckVictory() || o.ExtraTurn {
		return
	}
	s.advanceTurn()
}

// AttackKind names a special attack.
type AttackKind string

const (
	AttackTorpedo AttackKind = "torpedo"
	AttackAir     AttackKind = "air"
	AttackBomb    AttackKind = "bomb"
)

// SpecialAttack is one currently available special attack.
type SpecialAttack struct {
	Kind       AttackKind
	Munition   Coord
	Launcher   Coord
	Directions []Direction
}

var unitDirections = []Direction{{DX: 0, DY: -1}, {DX: 1, DY: 0}, {DX: 0, DY: 1}, {DX: -1, DY: 0}}

// SpecialAttacks lists every torpedo, air strike and bomb the player could launch right now,
// ignoring whose turn it is.
func (s *MatchState) SpecialAttacks(player Player) ([]SpecialAttack, error) {
	if !player.Valid() {
		return nil, ErrUnknownPlayer
	}
	var out []SpecialAttack
	s.Board.Each(func(c Coord, p Piece) {
		if p.Owner != player {
			return
		}
		switch p.Kind {
		case KindT:
			for _, n := range c.Neighbors4() {
				l, ok := s.Board.At(n)
				if !ok || l.Owner != player || l.Kind != KindTK {
					continue
				}
				back := n.Sub(c)
				var dirs []Direction
				for _, d := range unitDirections {
					if d != back {
						dirs = append(dirs, d)
					}
				}
				out = append(out, SpecialAttack{Kind: AttackTorpedo, Munition: c, Launcher: n, Directions: dirs})
			}
		case KindA:
			plane := c.Add(Direction{DY: player.Forward()})
			if sp, ok := s.Board.At(plane); ok && sp.Owner == player && sp.Kind == KindS {
				out = append(out, SpecialAttack{Kind: AttackAir, Munition: plane, Launcher: c})
			}
		case KindAB:
			out = append(out, SpecialAttack{Kind: AttackBomb, Munition: c, Launcher: c})
		}
	})
	return out, nil
}
