package cooldown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return epoch.Add(time.Duration(ms) * time.Millisecond)
}

func TestGate_FirstTriggerAccepted(t *testing.T) {
	g := New(DefaultDuration)

	_, fired := g.Last()
	require.False(t, fired)

	require.True(t, g.TryTrigger(at(0)))

	last, fired := g.Last()
	require.True(t, fired)
	require.Equal(t, at(0), last)
}

func TestGate_GreedySubsequence(t *testing.T) {
	g := New(3000 * time.Millisecond)

	var accepted []int
	for _, ms := range []int{0, 1000, 3500, 4000, 7000} {
		if g.TryTrigger(at(ms)) {
			accepted = append(accepted, ms)
		}
	}

	require.Equal(t, []int{0, 3500, 7000}, accepted)
}

func TestGate_Boundary(t *testing.T) {
	tests := []struct {
		name  string
		after int
		want  bool
	}{
		{"one ms early", 2999, false},
		{"exactly duration", 3000, true},
		{"after duration", 3001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(3 * time.Second)
			require.True(t, g.TryTrigger(at(0)))
			require.Equal(t, tt.want, g.TryTrigger(at(tt.after)))
		})
	}
}

func TestGate_RejectedAttemptDoesNotExtend(t *testing.T) {
	g := New(3 * time.Second)

	require.True(t, g.TryTrigger(at(0)))
	for ms := 100; ms < 3000; ms += 100 {
		require.False(t, g.TryTrigger(at(ms)), "attempt at %dms", ms)
	}

	last, _ := g.Last()
	require.Equal(t, at(0), last)
	require.True(t, g.TryTrigger(at(3000)))
}

func TestGate_AcceptedTriggersAreSpaced(t *testing.T) {
	g := New(3 * time.Second)

	var accepted []time.Time
	for ms := 0; ms <= 20000; ms += 170 {
		if g.TryTrigger(at(ms)) {
			accepted = append(accepted, at(ms))
		}
	}

	require.NotEmpty(t, accepted)
	for i := 1; i < len(accepted); i++ {
		require.GreaterOrEqual(t, accepted[i].Sub(accepted[i-1]), 3*time.Second)
	}
}

func TestGate_Last(t *testing.T) {
	g := New(3 * time.Second)

	_, fired := g.Last()
	require.False(t, fired)

	require.True(t, g.TryTrigger(at(100)))
	require.False(t, g.TryTrigger(at(500)))

	last, fired := g.Last()
	require.True(t, fired)
	require.Equal(t, at(100), last, "a rejected trigger must not move the last trigger")
}

func TestGate_ZeroDuration(t *testing.T) {
	g := New(0)

	require.True(t, g.TryTrigger(at(0)))
	require.True(t, g.TryTrigger(at(0)))
	require.True(t, g.TryTrigger(at(1)))
}

func TestNew_NegativeDuration(t *testing.T) {
	g := New(-time.Second)
	require.Equal(t, time.Duration(0), g.Duration())
}
