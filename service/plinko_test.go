package service

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dskdao/models"
)

func timeDate(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestPlinkoMultipliers_SupportedCombinations(t *testing.T) {
	for _, rows := range []int{8, 12, 16} {
		for _, risk := range []models.RiskLevel{models.RiskLevelLow, models.RiskLevelMedium, models.RiskLevelHigh} {
			table, err := PlinkoMultipliers(rows, risk)
			require.NoError(t, err)
			assert.Len(t, table, rows+1)
		}
	}
}

func TestPlinkoMultipliers_Unsupported(t *testing.T) {
	_, err := PlinkoMultipliers(10, models.RiskLevelLow)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = PlinkoMultipliers(16, models.RiskLevel("extreme"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExpectedPayoutRatio_HouseEdge(t *testing.T) {
	// Every table must pay out strictly below 1 in expectation
	for _, rows := range []int{8, 12, 16} {
		for _, risk := range []models.RiskLevel{models.RiskLevelLow, models.RiskLevelMedium, models.RiskLevelHigh} {
			ev, err := ExpectedPayoutRatio(rows, risk)
			require.NoError(t, err)
			assert.Less(t, ev, 1.0, "rows=%d risk=%s", rows, risk)
			assert.Greater(t, ev, 0.9, "rows=%d risk=%s pays out unreasonably little", rows, risk)
		}
	}
}

func TestWagerEngine_BetLimits(t *testing.T) {
	engine := NewWagerEngine(rand.NewSource(1), 10, 1000)

	_, _, err := engine.Play(9, models.RiskLevelLow, 16)
	assert.ErrorIs(t, err, ErrInvalidBet)

	_, _, err = engine.Play(1001, models.RiskLevelLow, 16)
	assert.ErrorIs(t, err, ErrInvalidBet)

	_, _, err = engine.Play(10, models.RiskLevelLow, 16)
	assert.NoError(t, err)

	_, _, err = engine.Play(1000, models.RiskLevelLow, 16)
	assert.NoError(t, err)
}

func TestWagerEngine_OutcomeShape(t *testing.T) {
	engine := NewWagerEngine(rand.NewSource(99), 1, 10000)

	for i := 0; i < 200; i++ {
		outcome, winAmount, err := engine.Play(100, models.RiskLevelMedium, 16)
		require.NoError(t, err)

		require.Len(t, outcome.Path, 16)
		sum := 0
		for _, step := range outcome.Path {
			assert.True(t, step == 0 || step == 1)
			sum += step
		}
		assert.Equal(t, sum, outcome.FinalSlot)

		table, err := PlinkoMultipliers(16, models.RiskLevelMedium)
		require.NoError(t, err)
		assert.Equal(t, table[outcome.FinalSlot], outcome.Multiplier)

		// Payout is floored, never rounded up
		assert.Equal(t, int64(float64(100)*outcome.Multiplier), winAmount)
		assert.LessOrEqual(t, float64(winAmount), 100*outcome.Multiplier)
	}
}

func TestWagerEngine_Deterministic(t *testing.T) {
	first := NewWagerEngine(rand.NewSource(7), 1, 10000)
	second := NewWagerEngine(rand.NewSource(7), 1, 10000)

	for i := 0; i < 50; i++ {
		a, winA, err := first.Play(500, models.RiskLevelHigh, 12)
		require.NoError(t, err)
		b, winB, err := second.Play(500, models.RiskLevelHigh, 12)
		require.NoError(t, err)

		assert.Equal(t, a.Path, b.Path)
		assert.Equal(t, a.FinalSlot, b.FinalSlot)
		assert.Equal(t, winA, winB)
	}
}

func TestWagerEngine_ConcurrentPlays(t *testing.T) {
	// One engine shared across goroutines, as in production
	engine := NewWagerEngine(rand.NewSource(42), 1, 10000)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				outcome, winAmount, err := engine.Play(100, models.RiskLevelMedium, 8)
				assert.NoError(t, err)
				assert.NotNil(t, outcome)
				assert.GreaterOrEqual(t, winAmount, int64(0))
			}
		}()
	}
	wg.Wait()
}

func TestWagerEngine_SimulatedHouseEdge(t *testing.T) {
	engine := NewWagerEngine(rand.NewSource(123), 1, 10000)

	const plays = 50000
	const bet = 100
	var wagered, paid int64
	for i := 0; i < plays; i++ {
		_, winAmount, err := engine.Play(bet, models.RiskLevelLow, 8)
		require.NoError(t, err)
		wagered += bet
		paid += winAmount
	}

	ratio := float64(paid) / float64(wagered)
	ev, err := ExpectedPayoutRatio(8, models.RiskLevelLow)
	require.NoError(t, err)

	// Low risk at 8 rows has modest variance, so 50k plays lands close
	assert.InDelta(t, ev, ratio, 0.03)
	assert.Less(t, ratio, 1.0)
}

func TestPeriodStart(t *testing.T) {
	// Wednesday 2025-06-18 15:30 UTC
	now := timeDate(2025, 6, 18, 15, 30)

	daily := PeriodStart(models.LeaderboardPeriodDaily, now)
	assert.Equal(t, timeDate(2025, 6, 18, 0, 0), daily)

	weekly := PeriodStart(models.LeaderboardPeriodWeekly, now)
	assert.Equal(t, timeDate(2025, 6, 16, 0, 0), weekly) // Monday

	all := PeriodStart(models.LeaderboardPeriodAll, now)
	assert.True(t, all.IsZero())
}

func TestPeriodStart_SundayBelongsToPriorMonday(t *testing.T) {
	// Sunday 2025-06-22
	now := timeDate(2025, 6, 22, 10, 0)

	weekly := PeriodStart(models.LeaderboardPeriodWeekly, now)
	assert.Equal(t, timeDate(2025, 6, 16, 0, 0), weekly)
}
