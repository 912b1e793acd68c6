package routing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

// improvementEpsilon ignores objective changes caused by float noise.
const improvementEpsilon = 1e-9

// UnassignedReason says why an order is not on any route.
type UnassignedReason string

const (
	// ReasonExceedsCapacity: the order is larger than every compatible vehicle.
	ReasonExceedsCapacity UnassignedReason = "exceeds_capacity"
	// ReasonNoRefrigeratedVehicle: the order needs cold chain and the fleet has none.
	ReasonNoRefrigeratedVehicle UnassignedReason = "no_refrigerated_vehicle"
	// ReasonCapacityExceeded: fleet capacity is used up by higher-priority orders.
	ReasonCapacityExceeded UnassignedReason = "capacity_exceeded"
	// ReasonDeadlineConflict: a vehicle has room, but serving the order makes a stop late.
	ReasonDeadlineConflict UnassignedReason = "deadline_conflict"
)

// Unassigned is an order left off every route.
type Unassigned struct {
	Order  domain.Order     `json:"order"`
	Reason UnassignedReason `json:"reason"`
	Error  string           `json:"error,omitempty"`
	Err    error            `json:"-"`
}

// Plan is the planner output. Every input order appears exactly once, either on a
// route or in Unassigned.
type Plan struct {
	Routes     []domain.Route `json:"routes"`
	Unassigned []Unassigned   `json:"unassigned"`
	Objective  float64        `json:"objective"`
	Iterations int            `json:"iterations"`
}

// PlanRoutes assigns orders to vehicles and sequences each route. Orders no vehicle can
// ever carry are reported with a NoFeasibleVehicle error instead of failing the plan.
func PlanRoutes(ctx context.Context, orders []domain.Order, vehicles []domain.Vehicle, distance DistanceFunc, opts Options) (Plan, error) {
	if err := validateInputs(orders, vehicles); err != nil {
		return Plan{}, fmt.Errorf("plan routes: %w", err)
	}
	opts = opts.withDefaults()
	started := time.Now()

	plan := Plan{Unassigned: []Unassigned{}}
	var candidates []domain.Order
	for _, o := range orders {
		if reason, ok := prefilter(o, vehicles); !ok {
			err := domain.NoFeasibleVehicle(o.ID, string(reason))
			plan.Unassigned = append(plan.Unassigned, Unassigned{Order: o, Reason: reason, Error: err.Error(), Err: err})
			continue
		}
		candidates = append(candidates, o)
	}

	p := NewProblem(candidates, vehicles, distance, opts)
	s := p.construct()
	s, plan.Iterations = p.improve(ctx, s)
	s = p.serveOnTime(s)
	plan.Objective = p.Objective(s)
	plan.Routes = p.routes(s)

	for _, o := range s.Dropped {
		plan.Unassigned = append(plan.Unassigned, Unassigned{Order: p.orders[o], Reason: p.dropReason(s, o)})
	}
	sort.SliceStable(plan.Unassigned, func(i, j int) bool { return plan.Unassigned[i].Order.ID < plan.Unassigned[j].Order.ID })

	log.Debug().
		Int("orders", len(orders)).
		Int("routes", len(plan.Routes)).
		Int("unassigned", len(plan.Unassigned)).
		Int("iterations", plan.Iterations).
		Float64("objective", plan.Objective).
		Dur("duration", time.Since(started)).
		Msg("Routes planned")

	return plan, nil
}

func prefilter(o domain.Order, vehicles []domain.Vehicle) (UnassignedReason, bool) {
	hasCold := false
	for _, v := range vehicles {
		if v.CanCarry(o) {
			return "", true
		}
		hasCold = hasCold || v.Refrigerated
	}
	if o.RequiresRefrigeration && !hasCold {
		return ReasonNoRefrigeratedVehicle, false
	}
	return ReasonExceedsCapacity, false
}

// dropReason distinguishes a full fleet from an order whose every remaining position
// would make a stop late.
func (p *Problem) dropReason(s Solution, o int) UnassignedReason {
	for _, c := range p.slots(s, o) {
		if c.delays {
			return ReasonDeadlineConflict
		}
	}
	return ReasonCapacityExceeded
}

// improve runs best-improvement local search until no move lowers the objective or the
// iteration or time budget runs out. The objective never increases across iterations.
func (p *Problem) improve(ctx context.Context, s Solution) (Solution, int) {
	deadline := time.Now().Add(p.opts.TimeBudget)
	iterations := 0

	for iterations < p.opts.MaxIterations {
		if ctx.Err() != nil || time.Now().After(deadline) {
			break
		}
		move, ok := p.bestMove(s)
		if !ok {
			break
		}
		s = move.Apply(s)
		iterations++
	}
	return s, iterations
}

// bestMove evaluates the neighbourhood concurrently and returns the improving move with
// the lowest delta. Ties go to the move enumerated first.
func (p *Problem) bestMove(s Solution) (Move, bool) {
	moves := p.neighbourhood(s)
	if len(moves) == 0 {
		return nil, false
	}
	base := p.Objective(s)
	deltas := make([]float64, len(moves))

	chunk := (len(moves) + p.opts.Workers - 1) / p.opts.Workers
	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for lo := 0; lo < len(moves); lo += chunk {
		hi := min(lo+chunk, len(moves))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				deltas[i] = p.Objective(moves[i].Apply(s)) - base
			}
			return nil
		})
	}
	_ = g.Wait()

	best := -1
	for i, d := range deltas {
		if d < -improvementEpsilon && (best < 0 || d < deltas[best]) {
			best = i
		}
	}
	if best < 0 {
		return nil, false
	}
	return moves[best], true
}

// routes renders the non-empty vehicle sequences as domain routes.
func (p *Problem) routes(s Solution) []domain.Route {
	out := make([]domain.Route, 0, len(s.Routes))
	for v, seq := range s.Routes {
		if len(seq) == 0 {
			continue
		}
		vehicle := p.vehicles[v]
		load := p.load(seq)
		r := domain.Route{
			VehicleID: vehicle.ID,
			DepartAt:  p.opts.DepartAt.Add(p.opts.PrepTime),
			Load:      load,
			Capacity:  vehicle.Capacity,
			Feasible:  load <= vehicle.Capacity,
		}

		remaining := load
		km, back := p.visit(seq, func(o int, arrive time.Time, late bool) {
			order := p.orders[o]
			remaining -= p.sizes[o]
			if late {
				r.Feasible = false
			}
			r.Stops = append(r.Stops, domain.RouteStop{
				OrderID:     order.ID,
				Destination: order.Destination,
				ArriveAt:    arrive,
				Deadline:    order.Deadline,
				Late:        late,
				LoadAfter:   remaining,
				Priority:    order.Priority,
			})
		})
		r.TotalDistanceKm = km
		r.ReturnAt = back
		r.TotalDuration = back.Sub(r.DepartAt)
		out = append(out, r)
	}
	return out
}
