package routing

import (
	"slices"
)

// Move is one local-search step. Apply never modifies its argument.
type Move interface {
	Apply(s Solution) Solution
}

// Relocate moves the order at From[Pos] to position ToPos of To. When To == From,
// ToPos indexes the route after removal.
type Relocate struct {
	From, Pos int
	To, ToPos int
}

func (m Relocate) Apply(s Solution) Solution {
	out := s.clone()
	order := s.Routes[m.From][m.Pos]
	out.Routes[m.From] = slices.Delete(slices.Clone(s.Routes[m.From]), m.Pos, m.Pos+1)
	out.Routes[m.To] = slices.Insert(slices.Clone(out.Routes[m.To]), m.ToPos, order)
	return out
}

// TwoOpt reverses the stops I..J (inclusive) of one vehicle's route.
type TwoOpt struct {
	Vehicle int
	I, J    int
}

func (m TwoOpt) Apply(s Solution) Solution {
	out := s.clone()
	seq := slices.Clone(s.Routes[m.Vehicle])
	slices.Reverse(seq[m.I : m.J+1])
	out.Routes[m.Vehicle] = seq
	return out
}

// Drop removes a delivery from a route and leaves the order unassigned. It is only
// offered for stops that make their route late.
type Drop struct {
	Vehicle, Pos int
}

func (m Drop) Apply(s Solution) Solution {
	out := s.clone()
	order := s.Routes[m.Vehicle][m.Pos]
	out.Routes[m.Vehicle] = slices.Delete(slices.Clone(s.Routes[m.Vehicle]), m.Pos, m.Pos+1)
	out.Dropped = append(out.Dropped, order)
	slices.Sort(out.Dropped)
	return out
}

// Insert assigns a dropped order to position Pos of a vehicle's route.
type Insert struct {
	Order        int
	Vehicle, Pos int
}

func (m Insert) Apply(s Solution) Solution {
	out := s.clone()
	out.Dropped = slices.DeleteFunc(out.Dropped, func(o int) bool { return o == m.Order })
	out.Routes[m.Vehicle] = slices.Insert(slices.Clone(s.Routes[m.Vehicle]), m.Pos, m.Order)
	return out
}

// neighbourhood enumerates every feasible move from s in a fixed order:
// relocations, 2-opt reversals, drops of stops that make their route late, then
// insertions of dropped orders.
func (p *Problem) neighbourhood(s Solution) []Move {
	var moves []Move

	loads := make([]int, len(s.Routes))
	for v, seq := range s.Routes {
		loads[v] = p.load(seq)
	}

	for from, seq := range s.Routes {
		for pos, o := range seq {
			for to := range s.Routes {
				if !p.compatible(to, o) {
					continue
				}
				if to == from {
					for toPos := 0; toPos < len(seq); toPos++ {
						if toPos != pos {
							moves = append(moves, Relocate{From: from, Pos: pos, To: to, ToPos: toPos})
						}
					}
					continue
				}
				if loads[to]+p.sizes[o] > p.vehicles[to].Capacity {
					continue
				}
				for toPos := 0; toPos <= len(s.Routes[to]); toPos++ {
					moves = append(moves, Relocate{From: from, Pos: pos, To: to, ToPos: toPos})
				}
			}
		}
	}

	for v, seq := range s.Routes {
		for i := 0; i < len(seq)-1; i++ {
			for j := i + 1; j < len(seq); j++ {
				moves = append(moves, TwoOpt{Vehicle: v, I: i, J: j})
			}
		}
	}

	for v, seq := range s.Routes {
		for pos := range seq {
			if p.delayedBy(seq, pos) {
				moves = append(moves, Drop{Vehicle: v, Pos: pos})
			}
		}
	}

	for _, o := range s.Dropped {
		for v, seq := range s.Routes {
			if !p.compatible(v, o) || loads[v]+p.sizes[o] > p.vehicles[v].Capacity {
				continue
			}
			for pos := 0; pos <= len(seq); pos++ {
				moves = append(moves, Insert{Order: o, Vehicle: v, Pos: pos})
			}
		}
	}

	return moves
}
