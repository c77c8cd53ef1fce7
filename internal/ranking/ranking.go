// Package ranking partitions an already-fetched chunk list into importance
// tiers for display. It does no I/O and is recomputed from the full list on
// every render, so it has to stay cheap and side-effect free.
package ranking

import (
	"sort"

	"github.com/siftnotes/sift-backend/internal/types"
)

// Partitions holds the five display groups. They are disjoint and together
// contain every chunk that passed the filter.
type Partitions struct {
	Unranked      []*types.Chunk `json:"unranked"`
	Tier1         []*types.Chunk `json:"tier_1"`
	Tier2         []*types.Chunk `json:"tier_2"`
	Tier3         []*types.Chunk `json:"tier_3"`
	Deprioritized []*types.Chunk `json:"deprioritized"`
}

// Partition groups chunks by importance tier, newest first within each group.
// categoryFilter narrows to one category; empty means all.
func Partition(chunks []*types.Chunk, categoryFilter string) Partitions {
	var p Partitions
	for _, c := range chunks {
		if c == nil {
			continue
		}
		if categoryFilter != "" && c.Category != categoryFilter {
			continue
		}
		switch tier(c) {
		case types.ImportanceTier1:
			p.Tier1 = append(p.Tier1, c)
		case types.ImportanceTier2:
			p.Tier2 = append(p.Tier2, c)
		case types.ImportanceTier3:
			p.Tier3 = append(p.Tier3, c)
		case types.ImportanceDeprioritized:
			p.Deprioritized = append(p.Deprioritized, c)
		default:
			p.Unranked = append(p.Unranked, c)
		}
	}
	sortNewestFirst(p.Unranked)
	sortNewestFirst(p.Tier1)
	sortNewestFirst(p.Tier2)
	sortNewestFirst(p.Tier3)
	sortNewestFirst(p.Deprioritized)
	return p
}

func tier(c *types.Chunk) string {
	if c.Importance == nil {
		return ""
	}
	return *c.Importance
}

func sortNewestFirst(chunks []*types.Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].CreatedAt.After(chunks[j].CreatedAt)
	})
}

// TierChange applies an importance change to a local chunk speculatively,
// keeping the prior value so a failed store write can be rolled back without
// re-fetching the whole list.
type TierChange struct {
	chunk *types.Chunk
	prior *string
}

// Apply sets the chunk's tier locally and captures the previous value.
// Re-partition immediately after for a responsive view, then issue the store
// mutation; call Revert if the store rejects it.
func Apply(chunk *types.Chunk, importance *string) *TierChange {
	if chunk == nil {
		return nil
	}
	var prior *string
	if chunk.Importance != nil {
		v := *chunk.Importance
		prior = &v
	}
	if importance != nil {
		v := *importance
		chunk.Importance = &v
	} else {
		chunk.Importance = nil
	}
	return &TierChange{chunk: chunk, prior: prior}
}

func (tc *TierChange) Revert() {
	if tc == nil || tc.chunk == nil {
		return
	}
	tc.chunk.Importance = tc.prior
}
