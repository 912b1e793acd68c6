package config

import (
	"fmt"
	"time"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/forecast"
	"github.com/andresuchdata/shelflife/backend-go/internal/rotation"
	"github.com/andresuchdata/shelflife/backend-go/internal/routing"
)

// ToRotationParams builds the rotation settings for a run on runDate.
func (c OperationsConfig) ToRotationParams(runDate time.Time, catalog domain.Catalog) rotation.Params {
	p := rotation.DefaultParams(runDate)
	if c.LeadTimeDays > 0 {
		p.LeadTimeDays = c.LeadTimeDays
	}
	if c.SafetyStockFactor > 0 {
		p.SafetyStockFactor = c.SafetyStockFactor
	}
	if c.ExpiryHorizonDays >= 0 {
		p.ExpiryHorizonDays = c.ExpiryHorizonDays
	}
	p.Catalog = catalog
	return p
}

// ToRoutingOptions builds planner options for vehicles leaving depot at departAt.
func (c RoutingConfig) ToRoutingOptions(depot domain.Coordinates, departAt time.Time) routing.Options {
	return routing.Options{
		Depot:         depot,
		DepartAt:      departAt,
		SpeedKmh:      c.SpeedKmh,
		ServiceTime:   time.Duration(c.ServiceMinutes) * time.Minute,
		PrepTime:      time.Duration(c.PrepMinutes) * time.Minute,
		LatePenalty:   c.LatePenalty,
		DropPenalty:   c.DropPenalty,
		MaxIterations: c.MaxIterations,
		TimeBudget:    time.Duration(c.TimeBudgetSeconds) * time.Second,
		Workers:       c.Workers,
	}
}

// ToForecastParams overlays the configured forest size on the defaults.
func (c ModelConfig) ToForecastParams() forecast.Params {
	p := forecast.DefaultParams()
	if c.NumTrees > 0 {
		p.NumTrees = c.NumTrees
	}
	if c.MaxDepth > 0 {
		p.MaxDepth = c.MaxDepth
	}
	if c.MinLeafSize > 0 {
		p.MinLeafSize = c.MinLeafSize
	}
	p.Seed = c.Seed
	return p
}

// DSN returns the connection string, preferring DATABASE_URL when set.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
