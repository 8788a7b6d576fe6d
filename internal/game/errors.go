package game

import "errors"

// Wager rejection errors. None of these mutate round state; the transport
// layer decides whether to surface them to the submitting participant.
var (
	ErrDuplicateWager = errors.New("participant already wagered this round")
	ErrRoundInactive  = errors.New("round is not accepting wagers")
	ErrInvalidSide    = errors.New("invalid side")
	ErrInvalidAmount  = errors.New("wager amount must be a positive number")
)
