package service

import (
	"fmt"
	"math"
	"math/rand"

	"dskdao/models"
)

// plinkoTables maps row count and risk level to a multiplier table indexed
// by landing slot. The slot distribution is binomial over 0..rows, which
// concentrates outcomes near the center; tables are calibrated so the
// expected payout ratio stays below 1 at every row count and risk level.
var plinkoTables = map[int]map[models.RiskLevel][]float64{
	8: {
		models.RiskLevelLow:    {5.6, 2.1, 1.1, 1, 0.5, 1, 1.1, 2.1, 5.6},
		models.RiskLevelMedium: {13, 3, 1.3, 0.7, 0.4, 0.7, 1.3, 3, 13},
		models.RiskLevelHigh:   {29, 4, 1.5, 0.3, 0.2, 0.3, 1.5, 4, 29},
	},
	12: {
		models.RiskLevelLow:    {10, 3, 1.6, 1.4, 1.1, 1, 0.5, 1, 1.1, 1.4, 1.6, 3, 10},
		models.RiskLevelMedium: {33, 11, 4, 2, 1.1, 0.6, 0.3, 0.6, 1.1, 2, 4, 11, 33},
		models.RiskLevelHigh:   {170, 24, 8.1, 2, 0.7, 0.2, 0.2, 0.2, 0.7, 2, 8.1, 24, 170},
	},
	16: {
		models.RiskLevelLow:    {16, 9, 2, 1.4, 1.4, 1.2, 1.1, 1, 0.5, 1, 1.1, 1.2, 1.4, 1.4, 2, 9, 16},
		models.RiskLevelMedium: {110, 41, 10, 5, 3, 1.5, 1, 0.5, 0.3, 0.5, 1, 1.5, 3, 5, 10, 41, 110},
		models.RiskLevelHigh:   {1000, 130, 26, 9, 4, 2, 0.2, 0.2, 0.2, 0.2, 0.2, 2, 4, 9, 26, 130, 1000},
	},
}

// DefaultPlinkoRows is the row count used when the caller does not choose one
const DefaultPlinkoRows = 16

// PlinkoMultipliers returns the multiplier table for a row count and risk
// level, or an error for an unsupported combination.
func PlinkoMultipliers(rows int, riskLevel models.RiskLevel) ([]float64, error) {
	byRisk, ok := plinkoTables[rows]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported row count %d", ErrValidation, rows)
	}
	table, ok := byRisk[riskLevel]
	if !ok {
		return nil, fmt.Errorf("%w: unknown risk level %q", ErrValidation, riskLevel)
	}
	return table, nil
}

// WagerEngine simulates plays of the probability-cascade game. The rand
// source is injected so simulations are reproducible under a fixed seed.
type WagerEngine struct {
	rng    *rand.Rand
	minBet int64
	maxBet int64
}

// NewWagerEngine creates an engine with the given bet limits. One engine is
// shared across requests, so draws are serialized internally.
func NewWagerEngine(src rand.Source, minBet, maxBet int64) *WagerEngine {
	return &WagerEngine{
		rng:    newLockedRand(src),
		minBet: minBet,
		maxBet: maxBet,
	}
}

// Play simulates one drop: rows independent uniform left/right choices, one
// bit per row. The final slot is the count of right steps, so slots follow a
// binomial distribution. The win amount is floor(bet * multiplier).
func (e *WagerEngine) Play(betAmount int64, riskLevel models.RiskLevel, rows int) (*models.PlinkoOutcome, int64, error) {
	if betAmount < e.minBet || betAmount > e.maxBet {
		return nil, 0, fmt.Errorf("%w: bet %d outside range [%d, %d]", ErrInvalidBet, betAmount, e.minBet, e.maxBet)
	}

	multipliers, err := PlinkoMultipliers(rows, riskLevel)
	if err != nil {
		return nil, 0, err
	}

	path := make([]int, rows)
	slot := 0
	for i := range path {
		step := e.rng.Intn(2)
		path[i] = step
		slot += step
	}

	multiplier := multipliers[slot]
	winAmount := int64(math.Floor(float64(betAmount) * multiplier))

	outcome := &models.PlinkoOutcome{
		RiskLevel:  riskLevel,
		Rows:       rows,
		Path:       path,
		FinalSlot:  slot,
		Multiplier: multiplier,
	}

	return outcome, winAmount, nil
}

// ExpectedPayoutRatio computes sum(P(slot) * multiplier(slot)) for a table.
// House edge requires this to be below 1; exposed for calibration checks.
func ExpectedPayoutRatio(rows int, riskLevel models.RiskLevel) (float64, error) {
	multipliers, err := PlinkoMultipliers(rows, riskLevel)
	if err != nil {
		return 0, err
	}

	total := math.Pow(2, float64(rows))
	var ev float64
	for slot, mult := range multipliers {
		ev += binomial(rows, slot) / total * mult
	}
	return ev, nil
}

func binomial(n, k int) float64 {
	result := 1.0
	for i := 0; i < k; i++ {
		result = result * float64(n-i) / float64(i+1)
	}
	return result
}
