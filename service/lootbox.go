package service

import (
	"fmt"
	"math/rand"

	"dskdao/models"
)

// LootboxResolver selects one weighted-random reward from a lootbox table.
// The rand source is injected so draws are reproducible under a fixed seed.
type LootboxResolver struct {
	rng *rand.Rand
}

// NewLootboxResolver creates a resolver backed by the given source. One
// resolver is shared across requests, so draws are serialized internally.
func NewLootboxResolver(src rand.Source) *LootboxResolver {
	return &LootboxResolver{rng: newLockedRand(src)}
}

// Resolve draws one reward. Each entry is selected with probability
// weight/totalWeight; entries are scanned in the table's fixed order so the
// same draw always maps to the same entry.
func (r *LootboxResolver) Resolve(table *models.LootboxTable) (*models.LootboxReward, error) {
	if table == nil || len(table.Entries) == 0 || table.TotalWeight <= 0 {
		return nil, fmt.Errorf("%w: lootbox has no resolvable rewards", ErrEmptyTable)
	}

	draw := r.rng.Int63n(table.TotalWeight)

	var cumulative int64
	for i := range table.Entries {
		cumulative += table.Entries[i].Weight
		if draw < cumulative {
			return &table.Entries[i], nil
		}
	}

	// Unreachable: cumulative equals TotalWeight after the last entry and
	// draw < TotalWeight.
	return nil, fmt.Errorf("%w: draw %d exceeded total weight %d", ErrEmptyTable, draw, table.TotalWeight)
}
