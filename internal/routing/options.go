package routing

import (
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

const earthRadiusKm = 6371.0

// DistanceFunc returns the travel distance in kilometres between two points.
type DistanceFunc func(a, b domain.Coordinates) float64

// Haversine is the great-circle distance in kilometres.
func Haversine(a, b domain.Coordinates) float64 {
	lat1, lat2 := a.Lat*math.Pi/180, b.Lat*math.Pi/180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Options tunes the planner. Zero values fall back to DefaultOptions, except PrepTime.
type Options struct {
	Depot    domain.Coordinates
	DepartAt time.Time

	// SpeedKmh of 24 matches 2.5 minutes per kilometre.
	SpeedKmh    float64
	ServiceTime time.Duration
	PrepTime    time.Duration

	LatePenalty float64
	DropPenalty float64

	MaxIterations int
	TimeBudget    time.Duration
	Workers       int
}

func DefaultOptions() Options {
	return Options{
		SpeedKmh:      24,
		ServiceTime:   5 * time.Minute,
		PrepTime:      10 * time.Minute,
		LatePenalty:   100,
		DropPenalty:   150,
		MaxIterations: 500,
		TimeBudget:    5 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SpeedKmh <= 0 {
		o.SpeedKmh = d.SpeedKmh
	}
	if o.ServiceTime <= 0 {
		o.ServiceTime = d.ServiceTime
	}
	if o.PrepTime < 0 {
		o.PrepTime = 0
	}
	if o.LatePenalty <= 0 {
		o.LatePenalty = d.LatePenalty
	}
	if o.DropPenalty <= 0 {
		o.DropPenalty = d.DropPenalty
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.TimeBudget <= 0 {
		o.TimeBudget = d.TimeBudget
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// travelTime converts kilometres to driving time at the configured speed.
func (o Options) travelTime(km float64) time.Duration {
	return time.Duration(math.Round(km * float64(time.Hour) / o.SpeedKmh))
}

func validateInputs(orders []domain.Order, vehicles []domain.Vehicle) error {
	seen := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		if o.ID == "" {
			return domain.InvalidArgument("routing: order without id")
		}
		if _, dup := seen[o.ID]; dup {
			return domain.InvalidArgument(fmt.Sprintf("routing: duplicate order %s", o.ID))
		}
		seen[o.ID] = struct{}{}
		for _, l := range o.Lines {
			if l.Quantity < 0 {
				return domain.InvalidArgument(fmt.Sprintf("routing: order %s has a negative line for %s", o.ID, l.Product))
			}
		}
	}
	for _, v := range vehicles {
		if v.Capacity < 0 {
			return domain.InvalidArgument(fmt.Sprintf("routing: vehicle %s has negative capacity", v.ID))
		}
	}
	return nil
}
