package domain

// MatchState captures the engine-owned state of a single match.
type MatchState struct {
	Turn        Player
	Phase       Phase
	Board       *Board
	Winner      Player
	WinReason   WinReason
	SetupCounts [2]map[Kind]int
}

// NewMatchState returns a match in SETUP with player 1 nominally to move.
func NewMatchState() *MatchState {
	return &MatchState{
		Turn:        Player1,
		Phase:       PhaseSetup,
		Board:       NewBoard(),
		SetupCounts: [2]map[Kind]int{{}, {}},
	}
}

// Clone returns a deep copy.
func (s *MatchState) Clone() *MatchState {
	out := *s
	out.Board = s.Board.Clone()
	for i := range s.SetupCounts {
		out.SetupCounts[i] = make(map[Kind]int, len(s.SetupCounts[i]))
		for k, n := range s.SetupCounts[i] {
			out.SetupCounts[i][k] = n
		}
	}
	return &out
}

// Placed returns how many pieces of kind the player has deployed.
func (s *MatchState) Placed(p Player, k Kind) int {
	if !p.Valid() {
		return 0
	}
	return s.SetupCounts[p.Index()][k]
}

// PlacedTotal returns how many pieces the player has deployed.
func (s *MatchState) PlacedTotal(p Player) int {
	n := 0
	for _, c := range s.SetupCounts[p.Index()] {
		n += c
	}
	return n
}

// Finished reports whether the match reached its terminal phase.
func (s *MatchState) Finished() bool {
	return s.Phase == PhaseFinished
}

// Finish ends the match in favour of winner.
func (s *MatchState) Finish(winner Player, reason WinReason) {
	s.Phase = PhaseFinished
	s.Winner = winner
	s.WinReason = reason
}

// StartBattle leaves SETUP with first to move.
func (s *MatchState) StartBattle(first Player) error {
	if s.Phase != PhaseSetup {
		return reject(ReasonBadPhase, "battle already started")
	}
	s.Turn = first
	s.Phase = first.TurnPhase()
	return nil
}

// Resign ends the match with p as the loser.
func (s *MatchState) Resign(p Player) error {
	if !p.Valid() {
		return ErrUnknownPlayer
	}
	if s.Finished() {
		return reject(ReasonBadPhase, "match already finished")
	}
	s.Finish(p.Opponent(), WinResign)
	return nil
}

// CheckVictory ends the match when a side has lost its bases or every mobile piece.
// Player 1 is checked first, so simultaneous losses go to player 2.
func (s *MatchState) CheckVictory() bool {
	if s.Finished() {
		return true
	}
	for _, p := range []Player{Player1, Player2} {
		if s.lostBases(p) {
			s.Finish(p.Opponent(), WinBases)
			return true
		}
	}
	for _, p := range []Player{Player1, Player2} {
		if s.Board.Count(p, func(pc Piece) bool { return !pc.Kind.Immobile() }) == 0 {
			s.Finish(p.Opponent(), WinMoves)
			return true
		}
	}
	return false
}

// lostBases is true once a base was destroyed and fewer than MinBases remain.
// A player who never deployed bases cannot lose this way.
func (s *MatchState) lostBases(p Player) bool {
	alive := s.Board.Count(p, func(pc Piece) bool { return pc.Kind == KindVMB })
	deployed := s.Placed(p, KindVMB)
	return alive < MinBases && alive < deployed
}

// advanceTurn hands the move to the opponent.
func (s *MatchState) advanceTurn() {
	s.Turn = s.Turn.Opponent()
	if s.Phase.InBattle() {
		s.Phase = s.Turn.TurnPhase()
	}
}

func (s *MatchState) requireTurn(actor Player) error {
	if !actor.Valid() {
		return ErrUnknownPlayer
	}
	if !s.Phase.InBattle() {
		return reject(ReasonBadPhase, string(s.Phase))
	}
	if s.Turn != actor {
		return ErrNotYourTurn
	}
	return nil
}
