package routing

import (
	"sort"
)

// construct builds the initial solution by cheapest insertion. Orders are taken by
// priority (highest first), then deadline, then ID; each goes to the cheapest feasible
// position over all vehicles. An order is dropped when no vehicle has room, or when every
// position makes a stop late and the cheapest one still costs more than leaving it out.
func (p *Problem) construct() Solution {
	order := make([]int, len(p.orders))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := p.orders[order[i]], p.orders[order[j]]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.Deadline.Equal(b.Deadline) {
			return a.Deadline.Before(b.Deadline)
		}
		return a.ID < b.ID
	})

	s := p.Empty()
	for _, o := range order {
		candidates := p.slots(s, o)
		best, onTime := -1, false
		for i, c := range candidates {
			onTime = onTime || !c.delays
			if best < 0 || c.delta < candidates[best].delta {
				best = i
			}
		}

		if best < 0 || (!onTime && candidates[best].delta > p.dropCost(o)) {
			s.Dropped = append(s.Dropped, o)
			continue
		}
		s = Insert{Order: o, Vehicle: candidates[best].vehicle, Pos: candidates[best].pos}.Apply(s)
	}
	sort.Ints(s.Dropped)
	return s
}
