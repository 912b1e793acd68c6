package domain

import (
	"strings"
	"time"
)

// DateLayout is the day format used in reports, cache keys and CSV inputs.
const DateLayout = "2006-01-02"

// Urgency is the perishability class of a product; the order priority is its numeric value.
type Urgency int

const (
	UrgencyLow Urgency = iota + 1
	UrgencyMedium
	UrgencyHigh
	UrgencyUrgent
)

var urgencyLabels = map[Urgency]string{
	UrgencyLow:    "LOW",
	UrgencyMedium: "MEDIUM",
	UrgencyHigh:   "HIGH",
	UrgencyUrgent: "URGENT",
}

var urgencyCodes = map[string]Urgency{
	"low":    UrgencyLow,
	"medium": UrgencyMedium,
	"high":   UrgencyHigh,
	"urgent": UrgencyUrgent,
}

// String returns the human-readable label for an urgency level.
func (u Urgency) String() string {
	if label, ok := urgencyLabels[u]; ok {
		return label
	}

	return "LOW"
}

// ParseUrgency returns the urgency for a given label (case-insensitive).
func ParseUrgency(label string) (Urgency, bool) {
	u, ok := urgencyCodes[strings.ToLower(strings.TrimSpace(label))]

	return u, ok
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
