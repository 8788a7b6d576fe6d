package game

// PlayerResult is the per-participant outcome of one settlement. Results
// are computed fresh each round and are not persisted beyond the emitted
// settlement event.
type PlayerResult struct {
	Won         bool    `json:"won"`
	Amount      float64 `json:"amount"`
	OriginalBet float64 `json:"originalBet"`
	Side        Side    `json:"side"`
}

// Result is the outcome of settling one round.
type Result struct {
	HeadTotal  float64                 `json:"headTotal"`
	TaleTotal  float64                 `json:"taleTotal"`
	Winner     Outcome                 `json:"winner"`
	Streak     int                     `json:"streak"`
	Multiplier float64                 `json:"multiplier"`
	History    []Outcome               `json:"history"`
	Players    map[string]PlayerResult `json:"playerResults"`
}

// DetermineWinner applies the inverse rule: the side with the lower
// aggregate wins. Equal totals, including both zero, are a draw.
func DetermineWinner(headTotal, taleTotal float64) Outcome {
	switch {
	case taleTotal < headTotal:
		return OutcomeTale
	case headTotal < taleTotal:
		return OutcomeHead
	default:
		return OutcomeDraw
	}
}

// Settle determines the winner from the ledger totals, records the outcome
// in history, and computes per-participant payouts using the streak
// multiplier over the updated history. A draw matches no side, so every
// wager loses and pays zero. Settling an empty ledger is valid and yields
// a draw with an empty result map.
//
// Round state is untouched here; lifecycle transitions belong to the
// engine.
func Settle(ledger *Ledger, history *History) Result {
	head, tale := ledger.Totals()
	winner := DetermineWinner(head, tale)

	history.Push(winner)
	streak := Streak(history.Outcomes())
	multiplier := Multiplier(streak)

	players := make(map[string]PlayerResult, ledger.Len())
	for _, w := range ledger.Wagers() {
		won := w.Side.Outcome() == winner
		var payout float64
		if won {
			payout = w.Amount * multiplier
		}
		players[w.ParticipantID] = PlayerResult{
			Won:         won,
			Amount:      payout,
			OriginalBet: w.Amount,
			Side:        w.Side,
		}
	}

	return Result{
		HeadTotal:  head,
		TaleTotal:  tale,
		Winner:     winner,
		Streak:     streak,
		Multiplier: multiplier,
		History:    history.Outcomes(),
		Players:    players,
	}
}
