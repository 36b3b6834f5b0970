package domain

import "time"

// Board dimensions: x in [0,BoardWidth), y in [0,BoardHeight).
const (
	BoardWidth  = 14
	BoardHeight = 15
)

// Setup bands. Rows between the two bands are neutral water.
const (
	P1ZoneMinY = 10
	P1ZoneMaxY = 14
	P2ZoneMinY = 0
	P2ZoneMaxY = 4
)

const (
	// MaxGroupSize caps how many same-kind pieces fight as one group.
	MaxGroupSize = 3
	// BlastRadius is the half-width of the atomic bomb's square blast.
	BlastRadius = 2
	// AirStrikeRange is how many cells a plane sweeps.
	AirStrikeRange = 5
	// MinBases is the number of living naval bases a player must keep.
	MinBases = 2
)

// Default clock settings, overridable through config.
const (
	DefaultTurnAllowance = 30 * time.Second
	DefaultBank          = 15 * time.Minute
	DefaultShortPause    = 60 * time.Second
	DefaultLongPause     = 180 * time.Second
	DefaultSetupWindow   = 15 * time.Minute
)
