package domain

import "errors"

// Reason tags a rule violation.
type Reason string

const (
	ReasonBadPhase            Reason = "BadPhase"
	ReasonNotYourTurn         Reason = "NotYourTurn"
	ReasonOutOfBounds         Reason = "OutOfBounds"
	ReasonInvalidZone         Reason = "InvalidZone"
	ReasonCellOccupied        Reason = "CellOccupied"
	ReasonQuotaExceeded       Reason = "QuotaExceeded"
	ReasonEmptySource         Reason = "EmptySource"
	ReasonNotYourPiece        Reason = "NotYourPiece"
	ReasonImmobilePiece       Reason = "ImmobilePiece"
	ReasonIllegalMove         Reason = "IllegalMove"
	ReasonNotAdjacent         Reason = "NotAdjacent"
	ReasonInvalidDirection    Reason = "InvalidDirection"
	ReasonCannotShootBackward Reason = "CannotShootBackward"
	ReasonInvalidPieceType    Reason = "InvalidPieceType"
	ReasonPauseUsed           Reason = "PauseUsed"
	ReasonNotPaused           Reason = "NotPaused"
	ReasonNotPauseInitiator   Reason = "NotPauseInitiator"
	ReasonUnknownPauseType    Reason = "UnknownPauseType"
	ReasonAlreadyReady        Reason = "AlreadyReady"
	ReasonUnknownPlayer       Reason = "UnknownPlayer"
)

// RuleError is an expected, recoverable rejection of an action.
type RuleError struct {
	Reason Reason
	Detail string
}

func (e *RuleError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return string(e.Reason) + ": " + e.Detail
}

// Is matches any RuleError carrying the same reason.
func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	return ok && t.Reason == e.Reason
}

func reject(reason Reason, detail string) error {
	return &RuleError{Reason: reason, Detail: detail}
}

var (
	ErrBadPhase            = &RuleError{Reason: ReasonBadPhase}
	ErrNotYourTurn         = &RuleError{Reason: ReasonNotYourTurn}
	ErrOutOfBounds         = &RuleError{Reason: ReasonOutOfBounds}
	ErrInvalidZone         = &RuleError{Reason: ReasonInvalidZone}
	ErrCellOccupied        = &RuleError{Reason: ReasonCellOccupied}
	ErrQuotaExceeded       = &RuleError{Reason: ReasonQuotaExceeded}
	ErrEmptySource         = &RuleError{Reason: ReasonEmptySource}
	ErrNotYourPiece        = &RuleError{Reason: ReasonNotYourPiece}
	ErrImmobilePiece       = &RuleError{Reason: ReasonImmobilePiece}
	ErrIllegalMove         = &RuleError{Reason: ReasonIllegalMove}
	ErrNotAdjacent         = &RuleError{Reason: ReasonNotAdjacent}
	ErrInvalidDirection    = &RuleError{Reason: ReasonInvalidDirection}
	ErrCannotShootBackward = &RuleError{Reason: ReasonCannotShootBackward}
	ErrInvalidPieceType    = &RuleError{Reason: ReasonInvalidPieceType}
	ErrPauseUsed           = &RuleError{Reason: ReasonPauseUsed}
	ErrNotPaused           = &RuleError{Reason: ReasonNotPaused}
	ErrNotPauseInitiator   = &RuleError{Reason: ReasonNotPauseInitiator}
	ErrUnknownPauseType    = &RuleError{Reason: ReasonUnknownPauseType}
	ErrAlreadyReady        = &RuleError{Reason: ReasonAlreadyReady}
	ErrUnknownPlayer       = &RuleError{Reason: ReasonUnknownPlayer}
)

// ReasonOf extracts the reason tag, or "" when err is not a rule violation.
func ReasonOf(err error) Reason {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ""
}
