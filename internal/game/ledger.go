package game

import "sort"

// Wager is a single participant's stake on a side for the active round.
// Immutable once recorded; discarded when the round resets.
type Wager struct {
	ParticipantID string  `json:"participantId"`
	Side          Side    `json:"side"`
	Amount        float64 `json:"amount"`
}

// Ledger holds the active round's wagers and the running side totals.
// A participant has at most one wager per round, and the totals always
// equal the sum of the recorded wagers for each side.
//
// The ledger is not safe for concurrent use; the engine serializes access.
type Ledger struct {
	wagers    map[string]Wager
	headTotal float64
	taleTotal float64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{wagers: make(map[string]Wager)}
}

// Place records a wager, rejecting a second wager from the same participant.
func (l *Ledger) Place(w Wager) error {
	if _, ok := l.wagers[w.ParticipantID]; ok {
		return ErrDuplicateWager
	}
	l.wagers[w.ParticipantID] = w
	l.add(w.Side, w.Amount)
	return nil
}

// Remove drops a participant's wager, if any, and reports whether one was
// recorded. The side total is adjusted to match the remaining wagers.
func (l *Ledger) Remove(participantID string) bool {
	w, ok := l.wagers[participantID]
	if !ok {
		return false
	}
	delete(l.wagers, participantID)
	l.add(w.Side, -w.Amount)
	return true
}

// Totals returns the live head and tale aggregates.
func (l *Ledger) Totals() (head, tale float64) {
	return l.headTotal, l.taleTotal
}

// Wagers returns a snapshot of the recorded wagers, ordered by participant
// ID for deterministic iteration.
func (l *Ledger) Wagers() []Wager {
	wagers := make([]Wager, 0, len(l.wagers))
	for _, w := range l.wagers {
		wagers = append(wagers, w)
	}
	sort.Slice(wagers, func(i, j int) bool {
		return wagers[i].ParticipantID < wagers[j].ParticipantID
	})
	return wagers
}

// Len returns the number of recorded wagers.
func (l *Ledger) Len() int { return len(l.wagers) }

// Clear drops all wagers and zeroes the totals.
func (l *Ledger) Clear() {
	l.wagers = make(map[string]Wager)
	l.headTotal = 0
	l.taleTotal = 0
}

func (l *Ledger) add(side Side, amount float64) {
	switch side {
	case SideHead:
		l.headTotal += amount
	case SideTale:
		l.taleTotal += amount
	}
}
