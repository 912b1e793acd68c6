package forecast

import (
	"fmt"
	"runtime"
)

// Params controls forest training.
type Params struct {
	NumTrees        int     `json:"num_trees"`
	MaxDepth        int     `json:"max_depth"`
	MinLeafSize     int     `json:"min_leaf_size"`
	FeatureFraction float64 `json:"feature_fraction"`
	HoldoutFraction float64 `json:"holdout_fraction"`
	RecentDays      int     `json:"recent_days"`
	Seed            int64   `json:"seed"`
	// Workers bounds concurrent tree fitting; it never changes the result.
	Workers int `json:"-"`
}

// DefaultParams matches the production forest: 100 trees seeded with 42.
func DefaultParams() Params {
	return Params{
		NumTrees:        100,
		MaxDepth:        10,
		MinLeafSize:     3,
		FeatureFraction: 1.0,
		HoldoutFraction: 0.2,
		RecentDays:      14,
		Seed:            42,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.NumTrees == 0 {
		p.NumTrees = d.NumTrees
	}
	if p.MaxDepth == 0 {
		p.MaxDepth = d.MaxDepth
	}
	if p.MinLeafSize == 0 {
		p.MinLeafSize = d.MinLeafSize
	}
	if p.FeatureFraction == 0 {
		p.FeatureFraction = d.FeatureFraction
	}
	if p.RecentDays == 0 {
		p.RecentDays = d.RecentDays
	}
	if p.Workers <= 0 {
		p.Workers = runtime.GOMAXPROCS(0)
	}
	return p
}

// Validate rejects parameters the trainer cannot honour.
func (p Params) Validate() error {
	switch {
	case p.NumTrees < 1:
		return fmt.Errorf("num_trees must be positive, got %d", p.NumTrees)
	case p.MaxDepth < 1:
		return fmt.Errorf("max_depth must be positive, got %d", p.MaxDepth)
	case p.MinLeafSize < 1:
		return fmt.Errorf("min_leaf_size must be positive, got %d", p.MinLeafSize)
	case p.FeatureFraction <= 0 || p.FeatureFraction > 1:
		return fmt.Errorf("feature_fraction must be in (0, 1], got %g", p.FeatureFraction)
	case p.HoldoutFraction < 0 || p.HoldoutFraction >= 1:
		return fmt.Errorf("holdout_fraction must be in [0, 1), got %g", p.HoldoutFraction)
	case p.RecentDays < 7:
		return fmt.Errorf("recent_days must cover the weekly lag, got %d", p.RecentDays)
	}
	return nil
}
