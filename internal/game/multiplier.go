package game

import "math"

const (
	baseMultiplier = 1.5
	multiplierStep = 0.5

	// streakCap bounds payout risk: from a 10-win streak onward the
	// multiplier stays at 6.00.
	streakCap = 10
)

// Multiplier maps a win streak to the payout multiplier: 1.50 at streak 1,
// plus 0.50 per additional consecutive win, capped at 6.00. Settlement
// always records an outcome before reading the streak, so streak is at
// least 1 in practice; lower values are clamped so the multiplier never
// drops below the base.
func Multiplier(streak int) float64 {
	if streak < 1 {
		streak = 1
	}
	if streak > streakCap {
		streak = streakCap
	}
	m := baseMultiplier + float64(streak-1)*multiplierStep
	return math.Round(m*100) / 100
}
