package game

// Streak counts the consecutive identical outcomes at the tail of history,
// scanning backward from the most recent. Returns 0 for an empty history,
// otherwise at least 1. A draw breaks a run like any other distinct
// outcome, and draws form runs of their own.
func Streak(outcomes []Outcome) int {
	n := len(outcomes)
	if n == 0 {
		return 0
	}
	streak := 1
	for i := n - 2; i >= 0 && outcomes[i] == outcomes[n-1]; i-- {
		streak++
	}
	return streak
}
