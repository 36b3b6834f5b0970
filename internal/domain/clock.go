package domain

import "time"

// PauseKind selects one of the two one-shot pauses.
type PauseKind string

const (
	PauseShort PauseKind = "short"
	PauseLong  PauseKind = "long"
)

// ParsePauseKind validates a wire pause type.
func ParsePauseKind(s string) (PauseKind, error) {
	switch k := PauseKind(s); k {
	case PauseShort, PauseLong:
		return k, nil
	}
	return "", reject(ReasonUnknownPauseType, s)
}

// ClockSettings holds the time control of a match.
type ClockSettings struct {
	TurnAllowance time.Duration `json:"turn_allowance"`
	Bank          time.Duration `json:"bank"`
	ShortPause    time.Duration `json:"short_pause"`
	LongPause     time.Duration `json:"long_pause"`
	SetupWindow   time.Duration `json:"setup_window"`
}

// DefaultClockSettings returns the standard time control.
func DefaultClockSettings() ClockSettings {
	return ClockSettings{
		TurnAllowance: DefaultTurnAllowance,
		Bank:          DefaultBank,
		ShortPause:    DefaultShortPause,
		LongPause:     DefaultLongPause,
		SetupWindow:   DefaultSetupWindow,
	}
}

// Clock is the chess clock of a match: a fixed allowance per turn backed by a bank that is
// charged in whole seconds once the allowance runs out.
// Per-player fields are indexed by Player.Index.
type Clock struct {
	Settings       ClockSettings `json:"settings"`
	BankMs         [2]int64      `json:"bank_ms"`
	TurnStart      [2]time.Time  `json:"turn_start"`
	LastCharge     [2]time.Time  `json:"last_charge"`
	ShortUsed      [2]bool       `json:"short_used"`
	LongUsed       [2]bool       `json:"long_used"`
	PauseUntil     time.Time     `json:"pause_until"`
	PausedAt       time.Time     `json:"paused_at"`
	PauseInitiator Player        `json:"pause_initiator"`
	SetupDeadline  time.Time     `json:"setup_deadline"`
}

// NewClock returns a clock with full banks. A non-zero setup window arms the setup deadline.
func NewClock(settings ClockSettings, now time.Time) *Clock {
	bank := settings.Bank.Milliseconds()
	c := &Clock{Settings: settings, BankMs: [2]int64{bank, bank}}
	if settings.SetupWindow > 0 {
		c.SetupDeadline = now.Add(settings.SetupWindow)
	}
	return c
}

// StartTurn starts p's allowance at now.
func (c *Clock) StartTurn(p Player, now time.Time) {
	i := p.Index()
	c.TurnStart[i] = now
	c.LastCharge[i] = time.Time{}
}

// Live reports whether p's turn clock is running.
func (c *Clock) Live(p Player) bool {
	return !c.TurnStart[p.Index()].IsZero()
}

// Settle debits every whole second p has spent beyond the allowance since the last charge.
// It reports whether the bank is exhausted.
func (c *Clock) Settle(p Player, now time.Time) bool {
	i := p.Index()
	if c.TurnStart[i].IsZero() {
		return c.BankMs[i] <= 0
	}
	from := c.TurnStart[i].Add(c.Settings.TurnAllowance)
	if c.LastCharge[i].After(from) {
		from = c.LastCharge[i]
	}
	if over := now.Sub(from); over >= time.Second {
		secs := int64(over / time.Second)
		c.BankMs[i] -= secs * 1000
		if c.BankMs[i] < 0 {
			c.BankMs[i] = 0
		}
		c.LastCharge[i] = from.Add(time.Duration(secs) * time.Second)
	}
	return c.BankMs[i] <= 0
}

// EndTurn settles p and stops p's turn clock. Paused time is never charged.
func (c *Clock) EndTurn(p Player, now time.Time) {
	c.Settle(p, c.effectiveNow(now))
	c.TurnStart[p.Index()] = time.Time{}
	c.LastCharge[p.Index()] = time.Time{}
}

// Handover moves the running clock to whoever holds the turn in s after an action by prev.
// The clock keeps running when prev keeps the turn.
func (c *Clock) Handover(s *MatchState, prev Player, now time.Time) {
	if s.Finished() {
		c.EndTurn(prev, now)
		return
	}
	if s.Turn == prev {
		return
	}
	c.EndTurn(prev, now)
	c.StartTurn(s.Turn, now)
}

// effectiveNow freezes time at the pause instant while paused.
func (c *Clock) effectiveNow(now time.Time) time.Time {
	if !c.PausedAt.IsZero() {
		return c.PausedAt
	}
	return now
}

// TurnLeft returns what is left of p's allowance, zero when p's clock is idle.
func (c *Clock) TurnLeft(p Player, now time.Time) time.Duration {
	i := p.Index()
	if c.TurnStart[i].IsZero() {
		return 0
	}
	left := c.Settings.TurnAllowance - c.effectiveNow(now).Sub(c.TurnStart[i])
	if left < 0 {
		return 0
	}
	return left
}

// BankLeft returns p's remaining bank as last settled.
func (c *Clock) BankLeft(p Player) time.Duration {
	return time.Duration(c.BankMs[p.Index()]) * time.Millisecond
}

// Paused reports whether a pause is in progress.
func (c *Clock) Paused() bool {
	return !c.PausedAt.IsZero()
}

// PauseLeft returns how long the current pause still runs.
func (c *Clock) PauseLeft(now time.Time) time.Duration {
	if !c.Paused() || !now.Before(c.PauseUntil) {
		return 0
	}
	return c.PauseUntil.Sub(now)
}

// PauseUsed reports whether p already spent the pause of kind.
func (c *Clock) PauseUsed(p Player, kind PauseKind) bool {
	if kind == PauseLong {
		return c.LongUsed[p.Index()]
	}
	return c.ShortUsed[p.Index()]
}

// Pause freezes the match on p's own turn, consuming the pause of kind.
func (c *Clock) Pause(s *MatchState, p Player, kind PauseKind, now time.Time) (time.Duration, error) {
	if !p.Valid() {
		return 0, ErrUnknownPlayer
	}
	if !s.Phase.InBattle() {
		return 0, reject(ReasonBadPhase, string(s.Phase))
	}
	if s.Turn != p {
		return 0, ErrNotYourTurn
	}
	var d time.Duration
	switch kind {
	case PauseShort:
		d = c.Settings.ShortPause
	case PauseLong:
		d = c.Settings.LongPause
	default:
		return 0, reject(ReasonUnknownPauseType, string(kind))
	}
	if c.PauseUsed(p, kind) {
		return 0, reject(ReasonPauseUsed, string(kind)+" pause already used")
	}

	c.Settle(p, now)
	if kind == PauseLong {
		c.LongUsed[p.Index()] = true
	} else {
		c.ShortUsed[p.Index()] = true
	}
	c.PausedAt = now
	c.PauseUntil = now.Add(d)
	c.PauseInitiator = p
	s.Phase = PhasePaused
	return d, nil
}

// CancelPause ends the pause early. Only its initiator may cancel it.
func (c *Clock) CancelPause(s *MatchState, p Player, now time.Time) error {
	if s.Phase != PhasePaused || !c.Paused() {
		return ErrNotPaused
	}
	if p != c.PauseInitiator {
		return ErrNotPauseInitiator
	}
	c.resume(s, now)
	return nil
}

// resume shifts the running turn clock by the paused span and restores the turn phase.
func (c *Clock) resume(s *MatchState, at time.Time) {
	paused := at.Sub(c.PausedAt)
	if paused < 0 {
		paused = 0
	}
	i := s.Turn.Index()
	if !c.TurnStart[i].IsZero() {
		c.TurnStart[i] = c.TurnStart[i].Add(paused)
	}
	if !c.LastCharge[i].IsZero() {
		c.LastCharge[i] = c.LastCharge[i].Add(paused)
	}
	c.PausedAt = time.Time{}
	c.PauseUntil = time.Time{}
	c.PauseInitiator = NoPlayer
	if s.Phase == PhasePaused {
		s.Phase = s.Turn.TurnPhase()
	}
}

// TickResult reports the clock transitions a tick caused.
type TickResult struct {
	Resumed      bool
	TimedOut     bool
	SetupExpired bool
}

// Tick advances the clock to now: it ends an elapsed pause, charges the player on turn and
// finishes the match when that player's bank runs dry.
func (c *Clock) Tick(s *MatchState, now time.Time) TickResult {
	var r TickResult
	switch {
	case s.Finished():
		return r
	case s.Phase == PhaseSetup:
		r.SetupExpired = !c.SetupDeadline.IsZero() && !now.Before(c.SetupDeadline)
		return r
	case s.Phase == PhasePaused:
		if now.Before(c.PauseUntil) {
			return r
		}
		c.resume(s, c.PauseUntil)
		r.Resumed = true
	}

	if c.Settle(s.Turn, now) {
		loser := s.Turn
		c.EndTurn(loser, now)
		s.Finish(loser.Opponent(), WinTime)
		r.TimedOut = true
	}
	return r
}
