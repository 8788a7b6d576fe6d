package game

import "fmt"

// Side is one of the two mutually exclusive wager targets.
type Side string

const (
	SideHead Side = "head"
	SideTale Side = "tale"
)

// String returns the wire representation of the side.
func (s Side) String() string { return string(s) }

// Outcome returns the outcome corresponding to this side winning.
func (s Side) Outcome() Outcome { return Outcome(s) }

// ParseSide validates a wire-format side string.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideHead, SideTale:
		return Side(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
}

// Outcome is the result of a settled round. A draw occurs when both side
// totals are equal, including when no wagers were placed at all.
type Outcome string

const (
	OutcomeHead Outcome = "head"
	OutcomeTale Outcome = "tale"
	OutcomeDraw Outcome = "draw"
)

// String returns the wire representation of the outcome.
func (o Outcome) String() string { return string(o) }
