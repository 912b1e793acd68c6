package routing

import "math"

// Compactness grades the average route length.
const (
	CompactnessHigh   = "High"
	CompactnessMedium = "Medium"
	CompactnessLow    = "Low"
)

// Summary holds plan-level efficiency metrics.
type Summary struct {
	TotalRoutes         int     `json:"total_routes"`
	TotalDistanceKm     float64 `json:"total_distance_km"`
	TotalDeliveries     int     `json:"total_deliveries"`
	LateDeliveries      int     `json:"late_deliveries"`
	Unassigned          int     `json:"unassigned"`
	EstimatedTimeHours  float64 `json:"total_estimated_time_hours"`
	DistancePerDelivery float64 `json:"distance_per_delivery"`
	MinutesPerDelivery  float64 `json:"time_per_delivery"`
	VehicleUtilization  float64 `json:"vehicle_utilization"`
	RouteCompactness    string  `json:"route_compactness,omitempty"`
}

// Summary aggregates the plan. Utilisation is the share of used vehicles' capacity
// that is loaded, in percent.
func (p Plan) Summary() Summary {
	s := Summary{TotalRoutes: len(p.Routes), Unassigned: len(p.Unassigned)}
	var minutes float64
	var load, capacity int
	for _, r := range p.Routes {
		s.TotalDistanceKm += r.TotalDistanceKm
		s.TotalDeliveries += len(r.Stops)
		minutes += r.TotalDuration.Minutes()
		load += r.Load
		capacity += r.Capacity
		for _, st := range r.Stops {
			if st.Late {
				s.LateDeliveries++
			}
		}
	}

	s.TotalDistanceKm = round(s.TotalDistanceKm, 2)
	s.EstimatedTimeHours = round(minutes/60, 2)
	if s.TotalDeliveries > 0 {
		s.DistancePerDelivery = round(s.TotalDistanceKm/float64(s.TotalDeliveries), 2)
		s.MinutesPerDelivery = round(minutes/float64(s.TotalDeliveries), 2)
	}
	if capacity > 0 {
		s.VehicleUtilization = round(float64(load)/float64(capacity)*100, 1)
	}
	if s.TotalRoutes > 0 {
		switch avg := s.TotalDistanceKm / float64(s.TotalRoutes); {
		case avg < 15:
			s.RouteCompactness = CompactnessHigh
		case avg < 25:
			s.RouteCompactness = CompactnessMedium
		default:
			s.RouteCompactness = CompactnessLow
		}
	}
	return s
}

func round(v float64, places int) float64 {
	f := math.Pow(10, float64(places))
	return math.Round(v*f) / f
}
