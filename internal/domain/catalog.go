package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Catalog indexes products by name.
type Catalog map[string]Product

// DefaultCatalog is the perishable assortment the stores carry out of the box.
func DefaultCatalog() Catalog {
	p := func(name, category string, shelfLife int, cost, price string, cold bool, u Urgency) Product {
		return Product{
			Name:                  name,
			Category:              category,
			ShelfLifeDays:         shelfLife,
			UnitCost:              decimal.RequireFromString(cost),
			UnitPrice:             decimal.RequireFromString(price),
			RequiresRefrigeration: cold,
			Urgency:               u,
		}
	}

	products := []Product{
		p("Milk", "dairy", 7, "0.90", "1.49", true, UrgencyHigh),
		p("Bread", "bakery", 3, "1.10", "2.29", false, UrgencyLow),
		p("Eggs", "dairy", 21, "1.80", "3.19", true, UrgencyHigh),
		p("Bananas", "produce", 5, "0.25", "0.49", false, UrgencyMedium),
		p("Apples", "produce", 14, "0.35", "0.79", false, UrgencyMedium),
		p("Lettuce", "produce", 7, "0.60", "1.29", true, UrgencyMedium),
		p("Tomatoes", "produce", 7, "0.40", "0.99", false, UrgencyMedium),
		p("Chicken", "meat", 3, "3.50", "6.99", true, UrgencyUrgent),
		p("Yogurt", "dairy", 14, "0.45", "0.99", true, UrgencyHigh),
		p("Cheese", "dairy", 21, "2.40", "4.49", true, UrgencyHigh),
		p("Carrots", "produce", 14, "0.30", "0.69", false, UrgencyMedium),
		p("Potatoes", "produce", 30, "0.20", "0.49", false, UrgencyLow),
	}

	c := make(Catalog, len(products))
	for _, prod := range products {
		c[prod.Name] = prod
	}
	return c
}

// Names returns product names in ascending order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for n := range c {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Urgency returns the perishability class of a product, LOW when unknown.
func (c Catalog) Urgency(product string) Urgency {
	if p, ok := c[product]; ok && p.Urgency != 0 {
		return p.Urgency
	}
	return UrgencyLow
}

// ApplyTo derives the order's priority from its most perishable line
// and its refrigeration requirement from any line that needs it.
func (c Catalog) ApplyTo(o Order) Order {
	priority := UrgencyLow
	cold := o.RequiresRefrigeration
	for _, l := range o.Lines {
		if u := c.Urgency(l.Product); u > priority {
			priority = u
		}
		if p, ok := c[l.Product]; ok && p.RequiresRefrigeration {
			cold = true
		}
	}
	o.Priority = int(priority)
	o.RequiresRefrigeration = cold
	return o
}
