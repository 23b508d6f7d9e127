package server

import (
	"strings"
	"time"
)

// dateRangeQuery is embedded by list queries that filter on a date window.
// Bare dates expand to the whole UTC day so ?from=2024-06-01&to=2024-06-01
// covers that day.
type dateRangeQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}

func (q dateRangeQuery) bounds() (*time.Time, *time.Time, error) {
	from, ok := parseBound(q.From, false)
	if !ok {
		return nil, nil, newValidationError("from", "invalid_from", "from must be RFC3339 or YYYY-MM-DD")
	}
	to, ok := parseBound(q.To, true)
	if !ok {
		return nil, nil, newValidationError("to", "invalid_to", "to must be RFC3339 or YYYY-MM-DD")
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, newValidationError("to", "invalid_range", "to must not be before from")
	}
	return from, to, nil
}

func parseBound(value string, endOfDay bool) (*time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, true
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		parsed = parsed.UTC()
		return &parsed, true
	}
	day, err := time.Parse(time.DateOnly, trimmed)
	if err != nil {
		return nil, false
	}
	if endOfDay {
		day = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &day, true
}
