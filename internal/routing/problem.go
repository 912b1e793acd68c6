package routing

import (
	"math"
	"slices"
	"time"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

// Solution assigns order indexes to vehicles. Routes[v] is the visiting sequence of
// vehicle v; Dropped holds the orders left out. A Solution is never mutated in place:
// moves return a new value sharing untouched routes.
type Solution struct {
	Routes  [][]int
	Dropped []int
}

func (s Solution) clone() Solution {
	return Solution{
		Routes:  slices.Clone(s.Routes),
		Dropped: slices.Clone(s.Dropped),
	}
}

// Problem is the routing instance after pre-filtering: every order in it can be carried
// by at least one vehicle.
type Problem struct {
	orders   []domain.Order
	sizes    []int
	vehicles []domain.Vehicle
	opts     Options
	// dist[0] is the depot, dist[i+1] is order i.
	dist [][]float64
}

// NewProblem precomputes the distance matrix between the depot and all destinations.
func NewProblem(orders []domain.Order, vehicles []domain.Vehicle, distance DistanceFunc, opts Options) *Problem {
	opts = opts.withDefaults()
	if distance == nil {
		distance = Haversine
	}

	points := make([]domain.Coordinates, 0, len(orders)+1)
	points = append(points, opts.Depot)
	sizes := make([]int, len(orders))
	for i, o := range orders {
		points = append(points, o.Destination)
		sizes[i] = o.Size()
	}

	dist := make([][]float64, len(points))
	for i := range points {
		dist[i] = make([]float64, len(points))
		for j := range points {
			if i != j {
				dist[i][j] = distance(points[i], points[j])
			}
		}
	}

	return &Problem{orders: orders, sizes: sizes, vehicles: vehicles, opts: opts, dist: dist}
}

// Empty returns the solution with every route empty and nothing dropped.
func (p *Problem) Empty() Solution {
	return Solution{Routes: make([][]int, len(p.vehicles))}
}

// weight is the order priority used by penalties; unset priorities count as 1.
func (p *Problem) weight(order int) float64 {
	return float64(max(1, p.orders[order].Priority))
}

func (p *Problem) dropCost(order int) float64 {
	return p.opts.DropPenalty * p.weight(order)
}

// compatible reports whether vehicle v may ever carry order o.
func (p *Problem) compatible(v, o int) bool {
	return !p.orders[o].RequiresRefrigeration || p.vehicles[v].Refrigerated
}

func (p *Problem) load(seq []int) int {
	total := 0
	for _, o := range seq {
		total += p.sizes[o]
	}
	return total
}

// routeFeasible checks the hard constraints of one route.
func (p *Problem) routeFeasible(v int, seq []int) bool {
	if p.load(seq) > p.vehicles[v].Capacity {
		return false
	}
	for _, o := range seq {
		if !p.compatible(v, o) {
			return false
		}
	}
	return true
}

// Feasible checks capacity and refrigeration on every route.
func (p *Problem) Feasible(s Solution) bool {
	for v, seq := range s.Routes {
		if !p.routeFeasible(v, seq) {
			return false
		}
	}
	return true
}

// visit walks a route from the depot and back, calling fn for every stop.
func (p *Problem) visit(seq []int, fn func(order int, arrive time.Time, late bool)) (km float64, back time.Time) {
	t := p.opts.DepartAt.Add(p.opts.PrepTime)
	prev := 0
	for _, o := range seq {
		leg := p.dist[prev][o+1]
		km += leg
		t = t.Add(p.opts.travelTime(leg))
		deadline := p.orders[o].Deadline
		late := !deadline.IsZero() && t.After(deadline)
		if fn != nil {
			fn(o, t, late)
		}
		t = t.Add(p.opts.ServiceTime)
		prev = o + 1
	}
	if len(seq) > 0 {
		leg := p.dist[prev][0]
		km += leg
		t = t.Add(p.opts.travelTime(leg))
	}
	return km, t
}

// routeCost is the route's distance plus the lateness penalties of its stops.
func (p *Problem) routeCost(seq []int) float64 {
	km, late := p.routeParts(seq)
	return km + late
}

// routeParts splits a route's cost into distance and lateness penalty. Each late stop
// costs LatePenalty times its weight, however late it is.
func (p *Problem) routeParts(seq []int) (km, late float64) {
	km, _ = p.visit(seq, func(o int, _ time.Time, isLate bool) {
		if isLate {
			late += p.opts.LatePenalty * p.weight(o)
		}
	})
	return km, late
}

// slot is one capacity-feasible position for an unrouted order.
type slot struct {
	vehicle, pos int
	delta        float64
	// delays is set when the insertion makes some stop of the route late.
	delays bool
}

// slots lists every insertion of order o into s that respects refrigeration and
// capacity, by vehicle then position.
func (p *Problem) slots(s Solution, o int) []slot {
	var out []slot
	for v, seq := range s.Routes {
		if !p.compatible(v, o) || p.load(seq)+p.sizes[o] > p.vehicles[v].Capacity {
			continue
		}
		baseKm, baseLate := p.routeParts(seq)
		for pos := 0; pos <= len(seq); pos++ {
			km, late := p.routeParts(slices.Insert(slices.Clone(seq), pos, o))
			out = append(out, slot{
				vehicle: v,
				pos:     pos,
				delta:   km + late - baseKm - baseLate,
				delays:  late > baseLate+improvementEpsilon,
			})
		}
	}
	return out
}

// delayedBy reports whether removing the stop at pos leaves seq with a lower
// lateness penalty.
func (p *Problem) delayedBy(seq []int, pos int) bool {
	_, with := p.routeParts(seq)
	_, without := p.routeParts(slices.Delete(slices.Clone(seq), pos, pos+1))
	return with > without+improvementEpsilon
}

// serveOnTime puts back every dropped order that some vehicle can still take without
// making a stop late, at the cheapest such position.
func (p *Problem) serveOnTime(s Solution) Solution {
	for _, o := range slices.Clone(s.Dropped) {
		best := -1
		candidates := p.slots(s, o)
		for i, c := range candidates {
			if !c.delays && (best < 0 || c.delta < candidates[best].delta) {
				best = i
			}
		}
		if best >= 0 {
			s = Insert{Order: o, Vehicle: candidates[best].vehicle, Pos: candidates[best].pos}.Apply(s)
		}
	}
	return s
}

// Objective is total distance plus priority-weighted lateness and drop penalties.
// Infeasible solutions cost +Inf.
func (p *Problem) Objective(s Solution) float64 {
	if !p.Feasible(s) {
		return math.Inf(1)
	}
	total := 0.0
	for _, seq := range s.Routes {
		total += p.routeCost(seq)
	}
	for _, o := range s.Dropped {
		total += p.dropCost(o)
	}
	return total
}

// Evaluate returns the objective change of applying m to s.
func (p *Problem) Evaluate(s Solution, m Move) float64 {
	return p.Objective(m.Apply(s)) - p.Objective(s)
}
