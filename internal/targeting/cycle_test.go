package targeting

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(id int64) *int64 { return &id }

// graphFrom builds an all-active graph from an edge map.
func graphFrom(edges map[int64]int64) Graph {
	g := make(Graph, len(edges))
	for id, t := range edges {
		g[id] = Edge{Active: true, Target: ptr(t)}
	}
	return g
}

func ids(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i + 1)
	}
	return out
}

func TestCycleIsSinglePermutation(t *testing.T) {
	for n := 2; n <= 25; n++ {
		for seed := uint64(0); seed < 10; seed++ {
			rng := rand.New(rand.NewPCG(seed, uint64(n)))
			edges := Cycle(ids(n), rng)
			require.Len(t, edges, n)

			inDegree := map[int64]int{}
			for from, to := range edges {
				assert.NotEqual(t, from, to, "n=%d seed=%d: fixed point", n, seed)
				inDegree[to]++
			}
			for _, id := range ids(n) {
				assert.Equal(t, 1, inDegree[id], "n=%d seed=%d: in-degree of %d", n, seed, id)
			}
			require.NoError(t, Verify(graphFrom(edges)), "n=%d seed=%d", n, seed)
		}
	}
}

func TestCycleTooFewTeams(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	assert.Empty(t, Cycle(nil, rng))
	assert.Empty(t, Cycle([]int64{7}, rng))
}

// Scenario: T1->T2->T3->T4->T1, T2 eliminated. T1 must now hunt T3.
func TestRepairFourTeams(t *testing.T) {
	g := graphFrom(map[int64]int64{1: 2, 2: 3, 3: 4, 4: 1})
	g[2] = Edge{Active: false, Target: ptr(3)}

	r, ok, err := Repair(g, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), r.Hunter)
	require.NotNil(t, r.NewTarget)
	assert.Equal(t, int64(3), *r.NewTarget)

	g[1] = Edge{Active: true, Target: r.NewTarget}
	require.NoError(t, Verify(g))
}

func TestRepairWalksPastInactiveChain(t *testing.T) {
	// 2 and 3 dropped out together; 2's stale edge leads to 3, then 4.
	g := graphFrom(map[int64]int64{1: 2, 2: 3, 3: 4, 4: 5, 5: 1})
	g[2] = Edge{Active: false, Target: ptr(3)}
	g[3] = Edge{Active: false, Target: ptr(4)}

	r, ok, err := Repair(g, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), r.Hunter)
	require.NotNil(t, r.NewTarget)
	assert.Equal(t, int64(4), *r.NewTarget)
}

func TestRepairLastTeamStanding(t *testing.T) {
	g := graphFrom(map[int64]int64{1: 2, 2: 1})
	g[2] = Edge{Active: false, Target: ptr(1)}

	r, ok, err := Repair(g, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), r.Hunter)
	assert.Nil(t, r.NewTarget)
}

func TestRepairNoHunter(t *testing.T) {
	g := graphFrom(map[int64]int64{1: 2, 2: 1})
	g[3] = Edge{Active: false}
	_, ok, err := Repair(g, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepairBoundedOnCorruptData(t *testing.T) {
	// 2 and 3 are inactive and point at each other; the walk never reaches an
	// active team or the hunter.
	g := Graph{
		1: {Active: true, Target: ptr(2)},
		2: {Active: false, Target: ptr(3)},
		3: {Active: false, Target: ptr(2)},
	}
	_, _, err := Repair(g, 2)
	assert.ErrorIs(t, err, ErrWalkExceeded)
}

func TestRepairTwoHuntersIsBroken(t *testing.T) {
	g := Graph{
		1: {Active: true, Target: ptr(3)},
		2: {Active: true, Target: ptr(3)},
		3: {Active: false, Target: ptr(1)},
	}
	_, _, err := Repair(g, 3)
	assert.ErrorIs(t, err, ErrCycleBroken)
}

// Eliminating teams one by one in cycle order always ends with a single
// active team that has no target.
func TestRepairRoundTrip(t *testing.T) {
	for n := 2; n <= 12; n++ {
		rng := rand.New(rand.NewPCG(42, uint64(n)))
		g := graphFrom(Cycle(ids(n), rng))

		// start the eliminations at the target of team 1 and follow the chain
		victim := *g[1].Target
		for round := 0; round < n-1; round++ {
			next := *g[victim].Target
			e := g[victim]
			e.Active = false
			g[victim] = e

			r, ok, err := Repair(g, victim)
			require.NoError(t, err, "n=%d round=%d", n, round)
			require.True(t, ok)
			h := g[r.Hunter]
			h.Target = r.NewTarget
			g[r.Hunter] = h
			require.NoError(t, Verify(g), "n=%d round=%d", n, round)

			if r.NewTarget == nil {
				break
			}
			victim = next
			if !g[victim].Active {
				victim = *r.NewTarget
			}
		}

		active := g.ActiveIDs()
		require.Len(t, active, 1, "n=%d", n)
		assert.Nil(t, g[active[0]].Target)
	}
}

func TestVerifyRejectsSubCycles(t *testing.T) {
	g := graphFrom(map[int64]int64{1: 2, 2: 1, 3: 4, 4: 3})
	assert.ErrorIs(t, Verify(g), ErrCycleBroken)
}

func TestVerifyRejectsSelfTarget(t *testing.T) {
	g := graphFrom(map[int64]int64{1: 1, 2: 3, 3: 2})
	assert.ErrorIs(t, Verify(g), ErrCycleBroken)
}

func TestVerifyRejectsMissingTarget(t *testing.T) {
	g := graphFrom(map[int64]int64{1: 2, 2: 3, 3: 1})
	g[3] = Edge{Active: true}
	assert.ErrorIs(t, Verify(g), ErrCycleBroken)
}

func TestVerifyLoneTeam(t *testing.T) {
	assert.NoError(t, Verify(Graph{1: {Active: true}}))
	assert.ErrorIs(t, Verify(Graph{1: {Active: true, Target: ptr(2)}, 2: {}}), ErrCycleBroken)
}

func TestSpliceBeforeFormerTarget(t *testing.T) {
	// 1->3->4->1 with 2 (formerly 1->2->3) coming back.
	g := graphFrom(map[int64]int64{1: 3, 3: 4, 4: 1})
	g[2] = Edge{Active: true, Target: ptr(3)}

	changes := Splice(g, 2, ptr(3))
	for id, target := range changes {
		e := g[id]
		e.Target = target
		g[id] = e
	}
	assert.Equal(t, int64(2), *g[1].Target)
	assert.Equal(t, int64(3), *g[2].Target)
	require.NoError(t, Verify(g))
}

func TestSpliceAfterAnchor(t *testing.T) {
	g := graphFrom(map[int64]int64{1: 3, 3: 1})
	g[2] = Edge{Active: true, Target: ptr(9)}
	g[9] = Edge{Active: false}

	changes := Splice(g, 2, ptr(9))
	for id, target := range changes {
		e := g[id]
		e.Target = target
		g[id] = e
	}
	require.NoError(t, Verify(g))
}

func TestSpliceIntoLoneTeam(t *testing.T) {
	g := Graph{1: {Active: true}, 2: {Active: true, Target: ptr(1)}}
	changes := Splice(g, 2, ptr(1))
	for id, target := range changes {
		e := g[id]
		e.Target = target
		g[id] = e
	}
	require.NoError(t, Verify(g))
}

func TestSpliceOnlyTeam(t *testing.T) {
	g := Graph{2: {Active: true, Target: ptr(1)}, 1: {}}
	changes := Splice(g, 2, ptr(1))
	require.Contains(t, changes, int64(2))
	assert.Nil(t, changes[2])
}

func TestPairs(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	pairs, odd := Pairs([]int64{1, 2, 3, 4, 5}, rng)
	require.Len(t, pairs, 2)
	require.NotNil(t, odd)

	seen := map[int64]bool{*odd: true}
	for _, p := range pairs {
		assert.NotEqual(t, p[0], p[1])
		seen[p[0]], seen[p[1]] = true, true
	}
	assert.Len(t, seen, 5)

	pairs, odd = Pairs([]int64{1, 2}, rng)
	assert.Len(t, pairs, 1)
	assert.Nil(t, odd)
}
