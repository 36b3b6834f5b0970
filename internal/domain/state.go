package domain

import "fmt"

// Phase represents the lifecycle stage of a match.
type Phase string

const (
	// PhaseSetup is the initial placement phase.
	PhaseSetup Phase = "SETUP"
	// PhaseTurnP1 means player 1 is to act.
	PhaseTurnP1 Phase = "TURN_P1"
	// PhaseTurnP2 means player 2 is to act.
	PhaseTurnP2 Phase = "TURN_P2"
	// PhasePaused freezes the clocks without changing whose turn it is.
	PhasePaused Phase = "PAUSED"
	// PhaseFinished is terminal.
	PhaseFinished Phase = "FINISHED"
)

// Valid reports whether p is one of the five phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseSetup, PhaseTurnP1, PhaseTurnP2, PhasePaused, PhaseFinished:
		return true
	}
	return false
}

// InBattle reports whether the phase is one of the two turn phases.
func (p Phase) InBattle() bool {
	return p == PhaseTurnP1 || p == PhaseTurnP2
}

// Player is 1 or 2. The zero value means "nobody".
type Player int

const (
	NoPlayer Player = 0
	Player1  Player = 1
	Player2  Player = 2
)

// Valid reports whether p is 1 or 2.
func (p Player) Valid() bool {
	return p == Player1 || p == Player2
}

// Opponent returns the other player.
func (p Player) Opponent() Player {
	if p == Player1 {
		return Player2
	}
	return Player1
}

// Index maps a player onto 0..1 for per-player arrays.
func (p Player) Index() int {
	return int(p) - 1
}

// TurnPhase returns the turn phase in which p acts.
func (p Player) TurnPhase() Phase {
	if p == Player2 {
		return PhaseTurnP2
	}
	return PhaseTurnP1
}

// Forward is the y step pointing toward the enemy side.
func (p Player) Forward() int {
	if p == Player1 {
		return -1
	}
	return 1
}

// ParsePlayer validates a player number.
func ParsePlayer(n int) (Player, error) {
	p := Player(n)
	if !p.Valid() {
		return NoPlayer, reject(ReasonUnknownPlayer, fmt.Sprintf("player %d", n))
	}
	return p, nil
}

// WinReason tags how a match ended.
type WinReason string

const (
	WinBases  WinReason = "bases"
	WinMoves  WinReason = "moves"
	WinResign WinReason = "resign"
	WinTime   WinReason = "time"
)

// Coord is a board cell.
type Coord struct {
	X int
	Y int
}

// C is shorthand for Coord{x, y}.
func C(x, y int) Coord {
	return Coord{X: x, Y: y}
}

// Add offsets c by a direction.
func (c Coord) Add(d Direction) Coord {
	return Coord{X: c.X + d.DX, Y: c.Y + d.DY}
}

// Sub returns the vector from o to c.
func (c Coord) Sub(o Coord) Direction {
	return Direction{DX: c.X - o.X, DY: c.Y - o.Y}
}

// InBounds reports whether c lies on the board.
func (c Coord) InBounds() bool {
	return c.X >= 0 && c.X < BoardWidth && c.Y >= 0 && c.Y < BoardHeight
}

// Manhattan returns the taxicab distance between two cells.
func (c Coord) Manhattan(o Coord) int {
	return abs(c.X-o.X) + abs(c.Y-o.Y)
}

// Adjacent reports orthogonal adjacency.
func (c Coord) Adjacent(o Coord) bool {
	return c.Manhattan(o) == 1
}

// Neighbors4 returns the four orthogonal neighbours, possibly off-board.
func (c Coord) Neighbors4() [4]Coord {
	return [4]Coord{
		{c.X + 1, c.Y},
		{c.X - 1, c.Y},
		{c.X, c.Y + 1},
		{c.X, c.Y - 1},
	}
}

// Key returns the "x,y" wire form.
func (c Coord) Key() string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

func (c Coord) String() string {
	return "(" + c.Key() + ")"
}

// Direction is a step vector.
type Direction struct {
	DX int
	DY int
}

// Unit reports whether d is one of the four orthogonal unit steps.
func (d Direction) Unit() bool {
	return abs(d.DX)+abs(d.DY) == 1
}

// Visibility is the set of players allowed to see a piece.
type Visibility uint8

// VisibleTo builds a set from the given players.
func VisibleTo(players ...Player) Visibility {
	var v Visibility
	for _, p := range players {
		v = v.With(p)
	}
	return v
}

// Has reports membership.
func (v Visibility) Has(p Player) bool {
	if !p.Valid() {
		return false
	}
	return v&(1<<uint(p.Index())) != 0
}

// With returns v plus p.
func (v Visibility) With(p Player) Visibility {
	if !p.Valid() {
		return v
	}
	return v | 1<<uint(p.Index())
}

// Players lists the members in ascending order.
func (v Visibility) Players() []Player {
	out := make([]Player, 0, 2)
	for _, p := range []Player{Player1, Player2} {
		if v.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// Piece is a living unit on the board.
type Piece struct {
	Owner     Player
	Kind      Kind
	Alive     bool
	VisibleTo Visibility
}

// NewPiece creates a living piece visible only to its owner.
func NewPiece(owner Player, kind Kind) Piece {
	return Piece{Owner: owner, Kind: kind, Alive: true, VisibleTo: VisibleTo(owner)}
}

// Revealed returns the piece made visible to both players.
func (p Piece) Revealed() Piece {
	p.VisibleTo = VisibleTo(Player1, Player2)
	return p
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
