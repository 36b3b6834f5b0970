package domain

import (
	"errors"
	"testing"
)

// battle builds a state in turn's TURN phase holding exactly the given pieces.
// Keep a mobile piece for both sides unless the test is about the moves rule.
func battle(turn Player, pieces map[Coord]Piece) *MatchState {
	s := NewMatchState()
	s.Turn = turn
	s.Phase = turn.TurnPhase()
	for c, p := range pieces {
		s.Board.Put(c, p)
	}
	return s
}

func pc(owner Player, kind Kind) Piece {
	return NewPiece(owner, kind)
}

// Reserve pieces far from the action so the moves rule never fires by accident.
var (
	reserveP1 = C(13, 14)
	reserveP2 = C(13, 0)
)

func withReserves(pieces map[Coord]Piece) map[Coord]Piece {
	pieces[reserveP1] = pc(Player1, KindF)
	pieces[reserveP2] = pc(Player2, KindF)
	return pieces
}

func TestSetupToFirstMove(t *testing.T) {
	s := NewMatchState()
	if err := s.Place(Player1, C(0, 10), KindKR); err != nil {
		t.Fatal(err)
	}
	if err := s.Place(Player2, C(0, 4), KindES); err != nil {
		t.Fatal(err)
	}

	var r Readiness
	if _, _, err := r.Signal(Player1); err != nil {
		t.Fatal(err)
	}
	first, start, err := r.Signal(Player2)
	if err != nil || !start {
		t.Fatalf("expected battle start, err=%v", err)
	}
	if err := s.StartBattle(first); err != nil {
		t.Fatal(err)
	}
	if s.Phase != PhaseTurnP1 || s.Turn != Player1 {
		t.Fatalf("phase=%s turn=%d, want TURN_P1/1", s.Phase, s.Turn)
	}

	before := s.Board.Len()
	o, err := s.Move(Player1, C(0, 10), C(0, 9), nil)
	if err != nil {
		t.Fatalf("Move() error: %v", err)
	}
	if o.Event != EventMove {
		t.Fatalf("event = %s, want move", o.Event)
	}
	if s.Board.Len() != before {
		t.Fatalf("cell count changed: %d -> %d", before, s.Board.Len())
	}
	if p, ok := s.Board.At(C(0, 9)); !ok || p.Kind != KindKR {
		t.Fatalf("KR did not arrive at (0,9)")
	}
	if s.Board.Occupied(C(0, 10)) {
		t.Fatalf("source still occupied")
	}
	if s.Phase != PhaseTurnP2 || s.Turn != Player2 {
		t.Fatalf("phase=%s turn=%d, want TURN_P2/2", s.Phase, s.Turn)
	}
}

func TestMoveValidation(t *testing.T) {
	base := func() *MatchState {
		return battle(Player1, withReserves(map[Coord]Piece{
			C(5, 10): pc(Player1, KindKR),
			C(6, 10): pc(Player1, KindF),
			C(7, 10): pc(Player1, KindVMB),
			C(5, 5):  pc(Player2, KindKR),
		}))
	}
	tests := []struct {
		name     string
		prep     func(s *MatchState)
		actor    Player
		src, dst Coord
		want     error
	}{
		{name: "setup phase", prep: func(s *MatchState) { s.Phase = PhaseSetup }, actor: Player1, src: C(5, 10), dst: C(5, 9), want: ErrBadPhase},
		{name: "paused", prep: func(s *MatchState) { s.Phase = PhasePaused }, actor: Player1, src: C(5, 10), dst: C(5, 9), want: ErrBadPhase},
		{name: "not your turn", actor: Player2, src: C(5, 5), dst: C(5, 6), want: ErrNotYourTurn},
		{name: "out of bounds", actor: Player1, src: C(13, 14), dst: C(14, 14), want: ErrOutOfBounds},
		{name: "empty source", actor: Player1, src: C(0, 12), dst: C(0, 11), want: ErrEmptySource},
		{name: "enemy piece", actor: Player1, src: C(5, 5), dst: C(5, 6), want: ErrNotYourPiece},
		{name: "immobile", actor: Player1, src: C(7, 10), dst: C(7, 9), want: ErrImmobilePiece},
		{name: "diagonal", actor: Player1, src: C(5, 10), dst: C(6, 9), want: ErrIllegalMove},
		{name: "two cells", actor: Player1, src: C(5, 10), dst: C(5, 8), want: ErrIllegalMove},
		{name: "own piece", actor: Player1, src: C(5, 10), dst: C(6, 10), want: ErrCellOccupied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			if tt.prep != nil {
				tt.prep(s)
			}
			snap := s.Board.Clone()
			turn := s.Turn
			_, err := s.Move(tt.actor, tt.src, tt.dst, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Move() err = %v, want %v", err, tt.want)
			}
			if s.Board.Len() != snap.Len() || s.Turn != turn {
				t.Fatalf("rejected move mutated state")
			}
			snap.Each(func(c Coord, p Piece) {
				if q, ok := s.Board.At(c); !ok || q != p {
					t.Fatalf("cell %s changed after rejected move", c)
				}
			})
		})
	}
}

func TestFastBoatDoubleStep(t *testing.T) {
	s := battle(Player1, withReserves(map[Coord]Piece{
		C(3, 12): pc(Player1, KindTK),
		C(8, 12): pc(Player1, KindTK),
		C(8, 11): pc(Player1, KindF),
	}))
	if _, err := s.Move(Player1, C(3, 12), C(3, 10), nil); err != nil {
		t.Fatalf("TK double step rejected: %v", err)
	}

	s.Turn, s.Phase = Player1, PhaseTurnP1
	if _, err := s.Move(Player1, C(8, 12), C(8, 10), nil); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("blocked double step err = %v", err)
	}
	if _, err := s.Move(Player1, C(3, 10), C(5, 12), nil); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("bent double step err = %v", err)
	}
}

func TestMoveWithFollowers(t *testing.T) {
	s := battle(Player1, withReserves(map[Coord]Piece{
		C(5, 10): pc(Player1, KindES),
		C(5, 11): pc(Player1, KindM),
		C(4, 10): pc(Player1, KindM),
	}))
	_, err := s.Move(Player1, C(5, 10), C(5, 9), []Follower{
		{From: C(5, 11), To: C(5, 10)},
		{From: C(4, 10), To: C(4, 9)},
	})
	if err != nil {
		t.Fatalf("Move() with followers error: %v", err)
	}
	for _, c := range []Coord{C(5, 9), C(5, 10), C(4, 9)} {
		if !s.Board.Occupied(c) {
			t.Fatalf("expected piece at %s", c)
		}
	}
	if s.Board.Occupied(C(5, 11)) || s.Board.Occupied(C(4, 10)) {
		t.Fatalf("followers left their old cells occupied")
	}
}

func TestMoveWithBadFollowerRejectsWholeMove(t *testing.T) {
	tests := []struct {
		name     string
		follower Follower
		want     error
	}{
		{name: "wrong cargo", follower: Follower{From: C(6, 10), To: C(6, 9)}, want: ErrInvalidPieceType},
		{name: "too far from carrier", follower: Follower{From: C(5, 12), To: C(5, 10)}, want: ErrNotAdjacent},
		{name: "lands far from carrier", follower: Follower{From: C(5, 11), To: C(5, 11)}, want: ErrNotAdjacent},
		{name: "lands on a piece", follower: Follower{From: C(4, 10), To: C(4, 9)}, want: ErrCellOccupied},
		{name: "empty", follower: Follower{From: C(6, 11), To: C(6, 9)}, want: ErrEmptySource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := battle(Player1, withReserves(map[Coord]Piece{
				C(5, 10): pc(Player1, KindES),
				C(5, 11): pc(Player1, KindM),
				C(4, 10): pc(Player1, KindM),
				C(4, 9):  pc(Player1, KindF),
				C(6, 10): pc(Player1, KindT),
				C(5, 12): pc(Player1, KindM),
			}))
			_, err := s.Move(Player1, C(5, 10), C(5, 9), []Follower{tt.follower})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Move() err = %v, want %v", err, tt.want)
			}
			if p, ok := s.Board.At(C(5, 10)); !ok || p.Kind != KindES {
				t.Fatalf("carrier moved despite rejected follower")
			}
			if s.Turn != Player1 {
				t.Fatalf("turn advanced on rejected move")
			}
		})
	}
}

func TestCombatOutcomes(t *testing.T) {
	src, dst := C(5, 8), C(5, 7)
	tests := []struct {
		name      string
		pieces    map[Coord]Piece
		event     Event
		atSrc     Kind // "" means empty
		atDst     Kind
		captures  int
		selfLoss  int
		extraTurn bool
	}{
		{
			name:   "higher rank captures",
			pieces: map[Coord]Piece{src: pc(Player1, KindKR), dst: pc(Player2, KindF)},
			event:  EventCapture, atDst: KindKR, captures: 1,
		},
		{
			name:   "lower rank is repelled",
			pieces: map[Coord]Piece{src: pc(Player1, KindF), dst: pc(Player2, KindKR)},
			event:  EventRepelled, atDst: KindKR, selfLoss: 1,
		},
		{
			name:   "equal rank exchange",
			pieces: map[Coord]Piece{src: pc(Player1, KindKR), dst: pc(Player2, KindKR)},
			event:  EventExchange, captures: 1, selfLoss: 1,
		},
		{
			name: "defending group outweighs",
			pieces: map[Coord]Piece{
				src: pc(Player1, KindKR), dst: pc(Player2, KindF), C(6, 7): pc(Player2, KindF),
			},
			event: EventRepelled, atDst: KindF, selfLoss: 1,
		},
		{
			name: "attacking group outweighs",
			pieces: map[Coord]Piece{
				src: pc(Player1, KindF), C(4, 8): pc(Player1, KindF), dst: pc(Player2, KindKR),
			},
			event: EventCapture, atDst: KindF, captures: 1,
		},
		{
			name: "group exchange removes both groups",
			pieces: map[Coord]Piece{
				src: pc(Player1, KindKR), C(4, 8): pc(Player1, KindKR),
				dst: pc(Player2, KindKR), C(6, 7): pc(Player2, KindKR),
			},
			event: EventExchange, captures: 2, selfLoss: 2,
		},
		{
			name:   "submarine sinks dock carrier",
			pieces: map[Coord]Piece{src: pc(Player1, KindPL), dst: pc(Player2, KindBDK)},
			event:  EventCapture, atDst: KindPL, captures: 1,
		},
		{
			name:   "dock carrier attacking submarine loses",
			pieces: map[Coord]Piece{src: pc(Player1, KindBDK), dst: pc(Player2, KindPL)},
			event:  EventRepelled, atDst: KindPL, selfLoss: 1,
		},
		{
			name:   "missile submarine sinks cruiser",
			pieces: map[Coord]Piece{src: pc(Player1, KindKRPL), dst: pc(Player2, KindKR)},
			event:  EventCapture, atDst: KindKRPL, captures: 1,
		},
		{
			name:   "mine destroys attacker",
			pieces: map[Coord]Piece{src: pc(Player1, KindBDK), dst: pc(Player2, KindM)},
			event:  EventMineHit, atDst: KindM, selfLoss: 1,
		},
		{
			name:   "minesweeper clears mine",
			pieces: map[Coord]Piece{src: pc(Player1, KindTR), dst: pc(Player2, KindM)},
			event:  EventMineSwept, atSrc: KindTR, captures: 1, extraTurn: true,
		},
		{
			name:   "static mine stays",
			pieces: map[Coord]Piece{src: pc(Player1, KindTR), dst: pc(Player2, KindSM)},
			event:  EventStaticMine, atDst: KindSM, selfLoss: 1,
		},
		{
			name:   "tanker takes attacker with it",
			pieces: map[Coord]Piece{src: pc(Player1, KindBDK), dst: pc(Player2, KindTN)},
			event:  EventTanker, captures: 1, selfLoss: 1,
		},
		{
			name:   "attacking tanker explodes too",
			pieces: map[Coord]Piece{src: pc(Player1, KindTN), dst: pc(Player2, KindM)},
			event:  EventTanker, captures: 1, selfLoss: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := battle(Player1, withReserves(tt.pieces))
			o, err := s.Move(Player1, src, dst, nil)
			if err != nil {
				t.Fatalf("Move() error: %v", err)
			}
			if o.Event != tt.event {
				t.Fatalf("event = %s, want %s", o.Event, tt.event)
			}
			assertKind(t, s, src, tt.atSrc)
			assertKind(t, s, dst, tt.atDst)
			if len(o.Captures) != tt.captures || len(o.SelfLosses) != tt.selfLoss {
				t.Fatalf("captures=%v selfLosses=%v", o.Captures, o.SelfLosses)
			}
			if o.ExtraTurn != tt.extraTurn {
				t.Fatalf("extraTurn = %v", o.ExtraTurn)
			}
			wantTurn := Player2
			if tt.extraTurn {
				wantTurn = Player1
			}
			if s.Turn != wantTurn || s.Phase != wantTurn.TurnPhase() {
				t.Fatalf("turn=%d phase=%s, want %d", s.Turn, s.Phase, wantTurn)
			}
		})
	}
}

func TestCombatRevealsSurvivors(t *testing.T) {
	s := battle(Player1, withReserves(map[Coord]Piece{
		C(5, 8): pc(Player1, KindF),
		C(5, 7): pc(Player2, KindKR),
		C(6, 7): pc(Player2, KindKR),
	}))
	if _, err := s.Move(Player1, C(5, 8), C(5, 7), nil); err != nil {
		t.Fatal(err)
	}
	for _, c := range []Coord{C(5, 7), C(6, 7)} {
		p, _ := s.Board.At(c)
		if !p.VisibleTo.Has(Player1) {
			t.Fatalf("defender at %s not revealed to the attacker", c)
		}
	}
	if p, _ := s.Board.At(reserveP2); p.VisibleTo.Has(Player1) {
		t.Fatalf("uninvolved piece revealed")
	}
}

func TestAtomicContact(t *testing.T) {
	s := battle(Player1, withReserves(map[Coord]Piece{
		C(7, 8): pc(Player1, KindKR),
		C(7, 7): pc(Player2, KindAB),
		C(9, 9): pc(Player1, KindL),
		C(5, 5): pc(Player2, KindBDK),
		C(7, 4): pc(Player2, KindF),
	}))
	o, err := s.Move(Player1, C(7, 8), C(7, 7), nil)
	if err != nil {
		t.Fatal(err)
	}
	if o.Event != EventAtomic {
		t.Fatalf("event = %s", o.Event)
	}
	for _, c := range []Coord{C(7, 8), C(7, 7), C(9, 9), C(5, 5)} {
		if s.Board.Occupied(c) {
			t.Fatalf("%s survived the blast", c)
		}
	}
	if !s.Board.Occupied(C(7, 4)) {
		t.Fatalf("piece outside the blast destroyed")
	}
}

func TestDetonateBombChains(t *testing.T) {
	s := battle(Player1, withReserves(map[Coord]Piece{
		C(7, 12): pc(Player1, KindAB),
		C(9, 10): pc(Player2, KindAB),
		C(11, 8): pc(Player2, KindKR),
		C(2, 2):  pc(Player2, KindKR),
	}))
	o, err := s.DetonateBomb(Player1, C(7, 12))
	if err != nil {
		t.Fatalf("DetonateBomb() error: %v", err)
	}
	for _, c := range []Coord{C(7, 12), C(9, 10), C(11, 8)} {
		if s.Board.Occupied(c) {
			t.Fatalf("%s survived the chain", c)
		}
	}
	if !s.Board.Occupied(C(2, 2)) {
		t.Fatalf("far piece destroyed")
	}
	if len(o.Casualties) != 3 {
		t.Fatalf("casualties = %d, want 3", len(o.Casualties))
	}
	if s.Turn != Player2 {
		t.Fatalf("turn did not advance")
	}

	s.Turn, s.Phase = Player1, PhaseTurnP1
	before := s.Board.Len()
	if _, err := s.DetonateBomb(Player1, C(7, 12)); !errors.Is(err, ErrInvalidPieceType) {
		t.Fatalf("second detonation err = %v, want InvalidPieceType", err)
	}
	if s.Board.Len() != before {
		t.Fatalf("second detonation removed pieces")
	}
}

func TestDetonateBombValidation(t *testing.T) {
	s := battle(Player1, withReserves(map[Coord]Piece{
		C(3, 3):  pc(Player2, KindAB),
		C(3, 12): pc(Player1, KindKR),
	}))
	if _, err := s.DetonateBomb(Player1, C(3, 3)); !errors.Is(err, ErrNotYourPiece) {
		t.Fatalf("enemy bomb err = %v", err)
	}
	if _, err := s.DetonateBomb(Player1, C(3, 12)); !errors.Is(err, ErrInvalidPieceType) {
		t.Fatalf("non-bomb err = %v", err)
	}
	if _, err := s.DetonateBomb(Player2, C(3, 3)); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("off-turn err = %v", err)
	}
}

func TestTorpedo(t *testing.T) {
	pieces := func() map[Coord]Piece {
		return withReserves(map[Coord]Piece{
			C(3, 11): pc(Player1, KindTK),
			C(3, 10): pc(Player1, KindT),
			C(3, 7):  pc(Player2, KindBDK),
			C(3, 5):  pc(Player2, KindKR),
		})
	}

	s := battle(Player1, pieces())
	o, err := s.Torpedo(Player1, C(3, 10), C(3, 11), Direction{DY: -1})
	if err != nil {
		t.Fatalf("Torpedo() error: %v", err)
	}
	if s.Board.Occupied(C(3, 7)) {
		t.Fatalf("target survived")
	}
	if !s.Board.Occupied(C(3, 5)) {
		t.Fatalf("torpedo kept flying after its first hit")
	}
	if s.Board.Occupied(C(3, 10)) {
		t.Fatalf("torpedo not consumed")
	}
	if len(o.Captures) != 1 || o.Captures[0] != KindBDK {
		t.Fatalf("captures = %v", o.Captures)
	}
	if l, _ := s.Board.At(C(3, 11)); !l.VisibleTo.Has(Player2) {
		t.Fatalf("launcher not revealed")
	}
	if s.Turn != Player2 {
		t.Fatalf("turn did not advance")
	}

	tests := []struct {
		name              string
		torpedo, launcher Coord
		dir               Direction
		want              error
	}{
		{name: "backward", torpedo: C(3, 10), launcher: C(3, 11), dir: Direction{DY: 1}, want: ErrCannotShootBackward},
		{name: "diagonal", torpedo: C(3, 10), launcher: C(3, 11), dir: Direction{DX: 1, DY: 1}, want: ErrInvalidDirection},
		{name: "not a torpedo", torpedo: C(3, 11), launcher: C(3, 10), dir: Direction{DY: -1}, want: ErrInvalidPieceType},
		{name: "enemy launcher", torpedo: C(3, 10), launcher: C(3, 7), dir: Direction{DY: -1}, want: ErrNotYourPiece},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := battle(Player1, pieces())
			if _, err := s.Torpedo(Player1, tt.torpedo, tt.launcher, tt.dir); !errors.Is(err, tt.want) {
				t.Fatalf("Torpedo() err = %v, want %v", err, tt.want)
			}
			if !s.Board.Occupied(C(3, 10)) {
				t.Fatalf("rejected torpedo consumed")
			}
		})
	}

	far := battle(Player1, withReserves(map[Coord]Piece{
		C(3, 12): pc(Player1, KindTK),
		C(3, 10): pc(Player1, KindT),
	}))
	if _, err := far.Torpedo(Player1, C(3, 10), C(3, 12), Direction{DY: -1}); !errors.Is(err, ErrNotAdjacent) {
		t.Fatalf("detached torpedo err = %v", err)
	}
}

func TestTorpedoHitsFriendly(t *testing.T) {
	s := battle(Player1, withReserves(map[Coord]Piece{
		C(3, 11): pc(Player1, KindTK),
		C(3, 10): pc(Player1, KindT),
		C(3, 8):  pc(Player1, KindL),
		C(3, 6):  pc(Player2, KindL),
	}))
	o, err := s.Torpedo(Player1, C(3, 10), C(3, 11), Direction{DY: -1})
	if err != nil {
		t.Fatal(err)
	}
	if s.Board.Occupied(C(3, 8)) || !s.Board.Occupied(C(3, 6)) {
		t.Fatalf("torpedo must stop at the first piece, friend or foe")
	}
	if len(o.Captures) != 0 || len(o.SelfLosses) != 2 {
		t.Fatalf("captures=%v selfLosses=%v", o.Captures, o.SelfLosses)
	}
}

func TestAirAttack(t *testing.T) {
	s := battle(Player1, withReserves(map[Coord]Piece{
		C(5, 10): pc(Player1, KindA),
		C(5, 9):  pc(Player1, KindS),
		C(5, 7):  pc(Player1, KindF),
		C(5, 6):  pc(Player2, KindKR),
		C(5, 4):  pc(Player2, KindL),
		C(5, 3):  pc(Player2, KindBDK),
	}))
	o, err := s.AirAttack(Player1, C(5, 10), C(5, 9))
	if err != nil {
		t.Fatalf("AirAttack() error: %v", err)
	}
	for _, c := range []Coord{C(5, 9), C(5, 7), C(5, 6), C(5, 4)} {
		if s.Board.Occupied(c) {
			t.Fatalf("%s survived the sweep", c)
		}
	}
	if !s.Board.Occupied(C(5, 3)) {
		t.Fatalf("sweep went past its range")
	}
	if len(o.Captures) != 2 {
		t.Fatalf("captures = %v", o.Captures)
	}

	p2 := battle(Player2, withReserves(map[Coord]Piece{
		C(5, 3): pc(Player2, KindA),
		C(5, 4): pc(Player2, KindS),
		C(5, 8): pc(Player1, KindKR),
	}))
	if _, err := p2.AirAttack(Player2, C(5, 3), C(5, 4)); err != nil {
		t.Fatalf("player 2 AirAttack() error: %v", err)
	}
	if p2.Board.Occupied(C(5, 8)) {
		t.Fatalf("player 2 plane must fly toward higher rows")
	}

	behind := battle(Player1, withReserves(map[Coord]Piece{
		C(5, 10): pc(Player1, KindA),
		C(5, 11): pc(Player1, KindS),
	}))
	if _, err := behind.AirAttack(Player1, C(5, 10), C(5, 11)); !errors.Is(err, ErrNotAdjacent) {
		t.Fatalf("plane behind carrier err = %v", err)
	}
}

func TestVictoryByBases(t *testing.T) {
	s := battle(Player1, withReserves(map[Coord]Piece{
		C(5, 3): pc(Player1, KindKR),
		C(5, 2): pc(Player2, KindVMB),
		C(9, 2): pc(Player2, KindVMB),
	}))
	s.SetupCounts[Player2.Index()][KindVMB] = 2

	if _, err := s.Move(Player1, C(5, 3), C(5, 2), nil); err != nil {
		t.Fatal(err)
	}
	if s.Phase != PhaseFinished || s.Winner != Player1 || s.WinReason != WinBases {
		t.Fatalf("phase=%s winner=%d reason=%s", s.Phase, s.Winner, s.WinReason)
	}
	if s.Turn != Player1 {
		t.Fatalf("turn advanced after the match ended")
	}
}

func TestVictoryByMoves(t *testing.T) {
	s := battle(Player1, map[Coord]Piece{
		C(5, 8): pc(Player1, KindKR),
		C(5, 7): pc(Player2, KindF),
		C(0, 0): pc(Player2, KindSM),
	})
	if _, err := s.Move(Player1, C(5, 8), C(5, 7), nil); err != nil {
		t.Fatal(err)
	}
	if s.Phase != PhaseFinished || s.Winner != Player1 || s.WinReason != WinMoves {
		t.Fatalf("phase=%s winner=%d reason=%s", s.Phase, s.Winner, s.WinReason)
	}
	if _, err := s.Move(Player2, C(0, 0), C(0, 1), nil); !errors.Is(err, ErrBadPhase) {
		t.Fatalf("move after finish err = %v", err)
	}
}

func TestResign(t *testing.T) {
	s := NewMatchState()
	if err := s.Resign(Player2); err != nil {
		t.Fatal(err)
	}
	if s.Winner != Player1 || s.WinReason != WinResign || !s.Finished() {
		t.Fatalf("winner=%d reason=%s", s.Winner, s.WinReason)
	}
	if err := s.Resign(Player1); !errors.Is(err, ErrBadPhase) {
		t.Fatalf("second resign err = %v", err)
	}
}

func TestSpecialAttacks(t *testing.T) {
	s := battle(Player1, withReserves(map[Coord]Piece{
		C(3, 11): pc(Player1, KindTK),
		C(3, 10): pc(Player1, KindT),
		C(6, 11): pc(Player1, KindA),
		C(6, 10): pc(Player1, KindS),
		C(9, 12): pc(Player1, KindAB),
		C(1, 1):  pc(Player2, KindAB),
	}))
	got, err := s.SpecialAttacks(Player1)
	if err != nil {
		t.Fatal(err)
	}
	kinds := map[AttackKind]SpecialAttack{}
	for _, a := range got {
		kinds[a.Kind] = a
	}
	if len(got) != 3 || len(kinds) != 3 {
		t.Fatalf("attacks = %+v", got)
	}
	torp := kinds[AttackTorpedo]
	if torp.Munition != C(3, 10) || torp.Launcher != C(3, 11) || len(torp.Directions) != 3 {
		t.Fatalf("torpedo option = %+v", torp)
	}
	for _, d := range torp.Directions {
		if d == (Direction{DY: 1}) {
			t.Fatalf("backward direction offered")
		}
	}
	if kinds[AttackAir].Munition != C(6, 10) {
		t.Fatalf("air option = %+v", kinds[AttackAir])
	}
	if kinds[AttackBomb].Munition != C(9, 12) {
		t.Fatalf("bomb option = %+v", kinds[AttackBomb])
	}
}

func TestGroupCandidates(t *testing.T) {
	s := battle(Player1, withReserves(map[Coord]Piece{
		C(2, 10): pc(Player1, KindKR),
		C(3, 10): pc(Player1, KindKR),
		C(4, 10): pc(Player2, KindKR),
	}))
	cells, err := s.GroupCandidates(Player1, C(2, 10))
	if err != nil {
		t.Fatal(err)
	}
	if len(cells) != 2 {
		t.Fatalf("group = %v, want 2 cells", cells)
	}
	if _, err := s.GroupCandidates(Player1, C(4, 10)); !errors.Is(err, ErrNotYourPiece) {
		t.Fatalf("enemy group err = %v", err)
	}
}

func assertKind(t *testing.T, s *MatchState, c Coord, want Kind) {
	t.Helper()
	p, ok := s.Board.At(c)
	if want == "" {
		if ok {
			t.Fatalf("expected %s empty, found %s", c, p.Kind)
		}
		return
	}
	if !ok || p.Kind != want {
		t.Fatalf("expected %s at %s, found %+v", want, c, p)
	}
}
