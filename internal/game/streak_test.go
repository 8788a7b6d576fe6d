package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreak(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		history []Outcome
		want    int
	}{
		{"empty", nil, 0},
		{"single", []Outcome{OutcomeHead}, 1},
		{"run at tail", []Outcome{OutcomeHead, OutcomeHead, OutcomeTale, OutcomeHead, OutcomeHead, OutcomeHead}, 3},
		{"draw breaks a run", []Outcome{OutcomeHead, OutcomeHead, OutcomeDraw}, 1},
		{"draws form their own run", []Outcome{OutcomeHead, OutcomeDraw, OutcomeDraw}, 2},
		{"whole window identical", []Outcome{OutcomeTale, OutcomeTale, OutcomeTale, OutcomeTale}, 4},
		{"alternating", []Outcome{OutcomeHead, OutcomeTale, OutcomeHead, OutcomeTale}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Streak(tt.history))
		})
	}
}
