package ranking

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/siftnotes/sift-backend/internal/types"
)

func chunkWith(category string, importance *string, age time.Duration) *types.Chunk {
	return &types.Chunk{
		ID:         uuid.New(),
		Category:   category,
		Importance: importance,
		CreatedAt:  time.Now().Add(-age),
	}
}

func tierPtr(v string) *string { return &v }

func partitionSlices(p Partitions) [][]*types.Chunk {
	return [][]*types.Chunk{p.Unranked, p.Tier1, p.Tier2, p.Tier3, p.Deprioritized}
}

func TestPartitionIsCompleteAndDisjoint(t *testing.T) {
	chunks := []*types.Chunk{
		chunkWith("ideas", nil, time.Minute),
		chunkWith("ideas", tierPtr(types.ImportanceTier1), 2*time.Minute),
		chunkWith("tasks", tierPtr(types.ImportanceTier2), 3*time.Minute),
		chunkWith("worries", tierPtr(types.ImportanceTier3), 4*time.Minute),
		chunkWith("gratitudes", tierPtr(types.ImportanceDeprioritized), 5*time.Minute),
		chunkWith("gratitudes", nil, 6*time.Minute),
	}

	p := Partition(chunks, "")

	seen := map[uuid.UUID]int{}
	total := 0
	for _, group := range partitionSlices(p) {
		for _, c := range group {
			seen[c.ID]++
			total++
		}
	}
	if total != len(chunks) {
		t.Fatalf("partitions hold %d chunks, input had %d", total, len(chunks))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("chunk %s appears %d times across partitions", id, n)
		}
	}
}

func TestPartitionGroupsByTier(t *testing.T) {
	cases := []struct {
		name       string
		importance *string
		pick       func(Partitions) []*types.Chunk
	}{
		{name: "unranked", importance: nil, pick: func(p Partitions) []*types.Chunk { return p.Unranked }},
		{name: "tier1", importance: tierPtr(types.ImportanceTier1), pick: func(p Partitions) []*types.Chunk { return p.Tier1 }},
		{name: "tier2", importance: tierPtr(types.ImportanceTier2), pick: func(p Partitions) []*types.Chunk { return p.Tier2 }},
		{name: "tier3", importance: tierPtr(types.ImportanceTier3), pick: func(p Partitions) []*types.Chunk { return p.Tier3 }},
		{name: "deprioritized", importance: tierPtr(types.ImportanceDeprioritized), pick: func(p Partitions) []*types.Chunk { return p.Deprioritized }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := chunkWith("ideas", tc.importance, time.Minute)
			p := Partition([]*types.Chunk{c}, "")
			got := tc.pick(p)
			if len(got) != 1 || got[0].ID != c.ID {
				t.Fatalf("chunk landed in the wrong partition")
			}
		})
	}
}

func TestPartitionSortsNewestFirst(t *testing.T) {
	older := chunkWith("ideas", nil, time.Hour)
	newer := chunkWith("ideas", nil, time.Minute)
	p := Partition([]*types.Chunk{older, newer}, "")
	if len(p.Unranked) != 2 {
		t.Fatalf("expected 2 unranked chunks, got %d", len(p.Unranked))
	}
	if p.Unranked[0].ID != newer.ID {
		t.Fatal("newest chunk not first within partition")
	}
}

func TestPartitionCategoryFilter(t *testing.T) {
	ideas := chunkWith("ideas", nil, time.Minute)
	tasks := chunkWith("tasks", nil, time.Minute)
	p := Partition([]*types.Chunk{ideas, tasks}, "ideas")
	if len(p.Unranked) != 1 || p.Unranked[0].ID != ideas.ID {
		t.Fatalf("category filter kept the wrong chunks: %+v", p.Unranked)
	}
}

func TestTierChangeApplyAndRevert(t *testing.T) {
	c := chunkWith("ideas", tierPtr(types.ImportanceTier2), time.Minute)

	change := Apply(c, tierPtr(types.ImportanceTier1))
	if c.Importance == nil || *c.Importance != types.ImportanceTier1 {
		t.Fatal("Apply did not set the new tier")
	}

	change.Revert()
	if c.Importance == nil || *c.Importance != types.ImportanceTier2 {
		t.Fatal("Revert did not restore the prior tier")
	}
}

func TestTierChangeRevertToUnranked(t *testing.T) {
	c := chunkWith("ideas", nil, time.Minute)

	change := Apply(c, tierPtr(types.ImportanceTier3))
	if c.Importance == nil {
		t.Fatal("Apply did not set the tier")
	}
	change.Revert()
	if c.Importance != nil {
		t.Fatal("Revert should restore unranked")
	}
}

func TestTierChangeToUnranked(t *testing.T) {
	c := chunkWith("ideas", tierPtr(types.ImportanceTier1), time.Minute)
	change := Apply(c, nil)
	if c.Importance != nil {
		t.Fatal("Apply(nil) should clear the tier")
	}
	change.Revert()
	if c.Importance == nil || *c.Importance != types.ImportanceTier1 {
		t.Fatal("Revert did not restore the captured tier")
	}
}
