package shard

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hyperdxio/switchboard/pkg/apperr"
	"github.com/hyperdxio/switchboard/pkg/types"
)

// namePrefix is the canonical shard naming scheme: shard-0 .. shard-(N-1)
const namePrefix = "shard-"

// Name returns the canonical name for shard index i
func Name(i int) string {
	return fmt.Sprintf("%s%d", namePrefix, i)
}

// Index parses a shard name back to its index
func Index(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, namePrefix)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// ValidName reports whether name addresses a shard within the
// configured capacity
func ValidName(name string, count int) bool {
	i, ok := Index(name)
	return ok && i < count
}

// Occupied builds the set of shards holding at least one active token
func Occupied(tokens []*types.IngestionToken) map[string]bool {
	occupied := make(map[string]bool)
	for _, t := range tokens {
		if t.Active() && t.AssignedShard != "" {
			occupied[t.AssignedShard] = true
		}
	}
	return occupied
}

// NextFree returns the lowest-index shard not present in occupied.
// The tie-break is deterministic: shard-0 is always tried first.
func NextFree(count int, occupied map[string]bool) (string, error) {
	for i := 0; i < count; i++ {
		name := Name(i)
		if !occupied[name] {
			return name, nil
		}
	}
	return "", apperr.New(apperr.KindShardsExhausted, "all %d shards are occupied", count)
}

// Statuses summarizes occupancy for the operator view. Shards beyond
// the configured capacity that still hold active tokens (capacity was
// shrunk under load) are included so the condition is visible.
func Statuses(count int, tokens []*types.IngestionToken) []types.ShardStatus {
	byShard := make(map[string]*types.ShardStatus)
	for i := 0; i < count; i++ {
		byShard[Name(i)] = &types.ShardStatus{Shard: Name(i)}
	}

	for _, t := range tokens {
		if !t.Active() || t.AssignedShard == "" {
			continue
		}
		st, ok := byShard[t.AssignedShard]
		if !ok {
			st = &types.ShardStatus{Shard: t.AssignedShard}
			byShard[t.AssignedShard] = st
		}
		st.ActiveTokens++
		// Lowest team id wins the display slot when an override
		// stacked two teams on one shard.
		if st.TeamID == "" || t.TeamID < st.TeamID {
			st.TeamID = t.TeamID
		}
	}

	out := make([]types.ShardStatus, 0, len(byShard))
	for _, st := range byShard {
		out = append(out, *st)
	}
	sort.Slice(out, func(a, b int) bool {
		ia, oka := Index(out[a].Shard)
		ib, okb := Index(out[b].Shard)
		if oka && okb {
			return ia < ib
		}
		return out[a].Shard < out[b].Shard
	})
	return out
}
