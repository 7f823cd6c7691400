// Package targeting holds the target-cycle algorithms: building the initial
// cycle, repairing it when a team drops out and checking its shape.
// It works on a plain id graph so it can be exercised without a store.
package targeting

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
)

var (
	// ErrWalkExceeded is returned when following stale edges takes more steps
	// than there are teams, which only happens on inconsistent data.
	ErrWalkExceeded = errors.New("target walk exceeded team count")
	// ErrCycleBroken is returned when the active edges are not a single cycle.
	ErrCycleBroken = errors.New("target cycle broken")
)

// Edge is one team's node in the target graph.
type Edge struct {
	Active bool
	Target *int64
}

// Graph maps team id to its node.
type Graph map[int64]Edge

// ActiveIDs returns the ids of active teams in ascending order.
func (g Graph) ActiveIDs() []int64 {
	ids := make([]int64, 0, len(g))
	for id, e := range g {
		if e.Active {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Cycle orders ids ascending, shuffles them and links position i to i+1 mod n.
// Fewer than two ids yield no edges.
func Cycle(ids []int64, rng *rand.Rand) map[int64]int64 {
	edges := make(map[int64]int64, len(ids))
	if len(ids) < 2 {
		return edges
	}
	order := append([]int64(nil), ids...)
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	for i, id := range order {
		edges[id] = order[(i+1)%len(order)]
	}
	return edges
}

// Reroute describes the repair after a team leaves the cycle.
type Reroute struct {
	Hunter int64
	// NewTarget is nil when the hunter is the last active team.
	NewTarget *int64
}

// Repair finds the active team that was hunting eliminated and computes its
// new target by walking forward from eliminated's former target past inactive
// teams. ok is false when no active team was hunting eliminated.
func Repair(g Graph, eliminated int64) (r Reroute, ok bool, err error) {
	var hunters []int64
	for id, e := range g {
		if id != eliminated && e.Active && e.Target != nil && *e.Target == eliminated {
			hunters = append(hunters, id)
		}
	}
	switch len(hunters) {
	case 0:
		return Reroute{}, false, nil
	case 1:
	default:
		return Reroute{}, false, fmt.Errorf("%w: %d teams target team %d", ErrCycleBroken, len(hunters), eliminated)
	}
	r.Hunter = hunters[0]

	next := g[eliminated].Target
	for steps := 0; next != nil; steps++ {
		if steps > len(g) {
			return Reroute{}, false, fmt.Errorf("%w: from team %d", ErrWalkExceeded, eliminated)
		}
		if *next == r.Hunter {
			return r, true, nil
		}
		node, found := g[*next]
		if !found {
			return Reroute{}, false, fmt.Errorf("%w: team %d points at unknown team %d", ErrCycleBroken, eliminated, *next)
		}
		if node.Active {
			id := *next
			r.NewTarget = &id
			return r, true, nil
		}
		next = node.Target
	}
	return r, true, nil
}

// Verify checks that the active teams form exactly one cycle covering all of
// them, or that a lone active team has no target.
func Verify(g Graph) error {
	active := g.ActiveIDs()
	switch len(active) {
	case 0:
		return nil
	case 1:
		if g[active[0]].Target != nil {
			return fmt.Errorf("%w: last team %d still has a target", ErrCycleBroken, active[0])
		}
		return nil
	}

	inDegree := make(map[int64]int, len(active))
	for _, id := range active {
		t := g[id].Target
		if t == nil {
			return fmt.Errorf("%w: team %d has no target", ErrCycleBroken, id)
		}
		if *t == id {
			return fmt.Errorf("%w: team %d targets itself", ErrCycleBroken, id)
		}
		if !g[*t].Active {
			return fmt.Errorf("%w: team %d targets inactive team %d", ErrCycleBroken, id, *t)
		}
		inDegree[*t]++
	}
	for _, id := range active {
		if inDegree[id] != 1 {
			return fmt.Errorf("%w: team %d is targeted %d times", ErrCycleBroken, id, inDegree[id])
		}
	}

	// in/out degree 1 everywhere; a single loop must visit every team
	start := active[0]
	cur := start
	for i := 1; i < len(active); i++ {
		cur = *g[cur].Target
		if cur == start {
			return fmt.Errorf("%w: sub-cycle of length %d", ErrCycleBroken, i)
		}
	}
	if *g[cur].Target != start {
		return fmt.Errorf("%w: walk did not return to team %d", ErrCycleBroken, start)
	}
	return nil
}

// Splice returns the edge updates that insert team back into the cycle.
// The team goes in front of formerTarget when that team is still active,
// otherwise after the lowest-id active team. The team itself must already be
// marked active in g.
func Splice(g Graph, team int64, formerTarget *int64) map[int64]*int64 {
	changes := make(map[int64]*int64)
	others := make([]int64, 0, len(g))
	for _, id := range g.ActiveIDs() {
		if id != team {
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		changes[team] = nil
		return changes
	}

	ptr := func(id int64) *int64 { return &id }

	if formerTarget != nil && *formerTarget != team && g[*formerTarget].Active {
		for _, id := range others {
			if t := g[id].Target; t != nil && *t == *formerTarget {
				changes[id] = ptr(team)
				changes[team] = ptr(*formerTarget)
				return changes
			}
		}
	}

	anchor := others[0]
	if t := g[anchor].Target; t != nil && *t != team {
		changes[team] = ptr(*t)
	} else {
		changes[team] = ptr(anchor)
	}
	changes[anchor] = ptr(team)
	return changes
}

// Pairs shuffles ids and pairs them up. With an odd count the leftover id is
// returned separately and gets no opponent.
func Pairs(ids []int64, rng *rand.Rand) (pairs [][2]int64, odd *int64) {
	order := append([]int64(nil), ids...)
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	for i := 0; i+1 < len(order); i += 2 {
		pairs = append(pairs, [2]int64{order[i], order[i+1]})
	}
	if len(order)%2 == 1 {
		last := order[len(order)-1]
		odd = &last
	}
	return pairs, odd
}
