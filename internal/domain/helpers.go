package domain

// LowestAvailableSeat returns the first free seat as a player number. If full, returns NoPlayer.
func LowestAvailableSeat(seats *[2]string) Player {
	for i := 0; i < len(seats); i++ {
		if seats[i] == "" {
			return Player(i + 1)
		}
	}
	return NoPlayer
}

// LabelPayload holds the values needed for match label advertisement.
type LabelPayload struct {
	Open  bool   `json:"open"`
	Game  string `json:"game"`
	Phase string `json:"phase"`
}

// ComputeLabel derives the advertised label from match state and the number of seated players.
func ComputeLabel(s *MatchState, seated int) LabelPayload {
	open := s.Phase == PhaseSetup && seated < 2
	return LabelPayload{Open: open, Game: "naval", Phase: string(s.Phase)}
}

// ParseDirection validates a wire direction pair.
func ParseDirection(dx, dy int) (Direction, error) {
	d := Direction{DX: dx, DY: dy}
	if !d.Unit() {
		return Direction{}, ErrInvalidDirection
	}
	return d, nil
}

// KillCounts tallies the enemy kinds each player destroyed.
type KillCounts [2]map[Kind]int

// Record books the captures of an outcome for its actor.
func (k *KillCounts) Record(o Outcome) {
	if !o.Actor.Valid() || len(o.Captures) == 0 {
		return
	}
	i := o.Actor.Index()
	if k[i] == nil {
		k[i] = map[Kind]int{}
	}
	for _, kind := range o.Captures {
		k[i][kind]++
	}
}

// Total returns how many enemy pieces p destroyed.
func (k *KillCounts) Total(p Player) int {
	n := 0
	for _, c := range k[p.Index()] {
		n += c
	}
	return n
}
