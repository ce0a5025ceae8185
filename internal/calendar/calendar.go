// Package calendar generates the rows of the date dimension.
package calendar

import (
	"fmt"
	"time"

	v1 "github.com/aevon-lab/project-dimsync/internal/api/v1"
	"github.com/aevon-lab/project-dimsync/internal/core/entity"
)

const (
	// Entity is the name the date dimension is registered under.
	Entity = "date"
	// KeyColumn holds the ISO date, e.g. 2024-03-31.
	KeyColumn = "date"

	dateLayout = "2006-01-02"
	maxDays    = 100 * 366
)

// Attributes lists the generated columns besides the key.
var Attributes = []string{
	"date_key", "year", "quarter", "month", "month_name",
	"day", "day_of_week", "day_name", "is_weekend", "is_holiday",
}

// CheckDefinition reports whether a configured date entity can hold the
// generated rows: a dimension keyed by KeyColumn declaring every attribute.
func CheckDefinition(def *entity.Definition) error {
	if !def.IsDimension() || def.BusinessKey != KeyColumn {
		return fmt.Errorf("calendar: entity %q must be a dimension keyed by %q", def.Name, KeyColumn)
	}
	declared := make(map[string]struct{})
	for _, col := range def.AttributeColumns() {
		declared[col] = struct{}{}
	}
	var missing []string
	for _, col := range Attributes {
		if _, ok := declared[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("calendar: entity %q does not declare %v", def.Name, missing)
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// Generate returns one record per day from start to end inclusive.
func Generate(start, end time.Time) ([]v1.Record, error) {
	start = truncateDay(start)
	end = truncateDay(end)
	if end.Before(start) {
		return nil, fmt.Errorf("calendar range: end %s before start %s", end.Format(dateLayout), start.Format(dateLayout))
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days > maxDays {
		return nil, fmt.Errorf("calendar range: %d days exceeds limit of %d", days, maxDays)
	}

	records := make([]v1.Record, 0, days)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		records = append(records, Row(d))
	}
	return records, nil
}

// Row builds the date dimension record for d. Weeks start on Monday
// (day_of_week 0).
func Row(d time.Time) v1.Record {
	weekday := (int(d.Weekday()) + 6) % 7
	return v1.Record{
		KeyColumn:     d.Format(dateLayout),
		"date_key":    d.Year()*10000 + int(d.Month())*100 + d.Day(),
		"year":        d.Year(),
		"quarter":     (int(d.Month())-1)/3 + 1,
		"month":       int(d.Month()),
		"month_name":  d.Month().String(),
		"day":         d.Day(),
		"day_of_week": weekday,
		"day_name":    d.Weekday().String(),
		"is_weekend":  weekday >= 5,
		"is_holiday":  false,
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
