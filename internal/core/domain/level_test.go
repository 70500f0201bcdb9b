package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for _, l := range Levels() {
		parsed, err := ParseLevel(string(l))
		require.NoError(t, err)
		require.Equal(t, l, parsed)
	}

	_, err := ParseLevel("BRONZE")
	require.ErrorIs(t, err, ErrInvalidLevel)

	// Lowercase is not normalized, stored values are always canonical
	_, err = ParseLevel("star")
	require.ErrorIs(t, err, ErrInvalidLevel)
}

func TestLevelTableValues(t *testing.T) {
	tests := []struct {
		level  Level
		amount float64
		quota  int
		limit  int
	}{
		{LevelStar, 300, 3, 3},
		{LevelSilver, 1000, 9, 3},
		{LevelGold, 2000, 18, 4},
		{LevelPlatinum, 5000, 27, 5},
		{LevelDiamond, 10000, 50, 6},
	}

	for _, tt := range tests {
		require.Equal(t, tt.amount, FixedAmount(tt.level), "amount for %s", tt.level)
		require.Equal(t, tt.quota, HelpQuota(tt.level), "quota for %s", tt.level)
		require.Equal(t, tt.limit, HelpLimit(tt.level), "limit for %s", tt.level)
	}
}

func TestLevelProgression(t *testing.T) {
	require.Equal(t, LevelStar, EntryLevel())

	next, ok := NextLevel(LevelStar)
	require.True(t, ok)
	require.Equal(t, LevelSilver, next)

	next, ok = NextLevel(LevelPlatinum)
	require.True(t, ok)
	require.Equal(t, LevelDiamond, next)

	_, ok = NextLevel(LevelDiamond)
	require.False(t, ok)
	require.True(t, IsTerminal(LevelDiamond))
	require.False(t, IsTerminal(LevelStar))
}

func TestCheckpointAtExactMatch(t *testing.T) {
	// STAR has no checkpoints at all
	for count := 0; count <= 10; count++ {
		_, ok := CheckpointAt(LevelStar, count)
		require.False(t, ok)
	}

	cp, ok := CheckpointAt(LevelSilver, 4)
	require.True(t, ok)
	require.Equal(t, UnblockUpgrade, cp.Action.Type)
	require.Equal(t, 2000.0, cp.Action.Amount)

	cp, ok = CheckpointAt(LevelSilver, 7)
	require.True(t, ok)
	require.Equal(t, UnblockSponsor, cp.Action.Type)

	// A count past a checkpoint never blocks retroactively
	_, ok = CheckpointAt(LevelSilver, 5)
	require.False(t, ok)
	_, ok = CheckpointAt(LevelSilver, 8)
	require.False(t, ok)
}

func TestBlockCheckpointsAscending(t *testing.T) {
	for _, l := range Levels() {
		cps := BlockCheckpoints(l)
		for i := 1; i < len(cps); i++ {
			require.Greater(t, cps[i].Count, cps[i-1].Count, "checkpoints for %s must ascend", l)
		}
		for _, cp := range cps {
			require.LessOrEqual(t, cp.Count, HelpQuota(l), "checkpoint beyond quota for %s", l)
		}
	}
}
