// Package datesearch recognises search queries that refer to a date or a
// relative period and resolves them to an inclusive time range.
package datesearch

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/jinzhu/now"
)

// minFallbackLength is the shortest query handed to the general-purpose parser.
const minFallbackLength = 4

// Range is an inclusive [Start, End] interval.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether instant lies within the range, bounds included.
func (r Range) Contains(instant time.Time) bool {
	if instant.IsZero() {
		return false
	}
	return !instant.Before(r.Start) && !instant.After(r.End)
}

var monthsByName = map[string]time.Month{
	"january":   time.January,
	"jan":       time.January,
	"february":  time.February,
	"feb":       time.February,
	"march":     time.March,
	"mar":       time.March,
	"april":     time.April,
	"apr":       time.April,
	"may":       time.May,
	"june":      time.June,
	"jun":       time.June,
	"july":      time.July,
	"jul":       time.July,
	"august":    time.August,
	"aug":       time.August,
	"september": time.September,
	"sep":       time.September,
	"sept":      time.September,
	"october":   time.October,
	"oct":       time.October,
	"november":  time.November,
	"nov":       time.November,
	"december":  time.December,
	"dec":       time.December,
}

type datePattern struct {
	expression *regexp.Regexp
	layout     string
}

// yearlessDayShapes are the fallback forms accepted when the parsed date
// carries no year: "12/31", "oct 5", "5th may".
var yearlessDayShapes = []*regexp.Regexp{
	regexp.MustCompile(`^\d{1,2}/\d{1,2}$`),
	regexp.MustCompile(`^([a-z]+)\.?\s+\d{1,2}(?:st|nd|rd|th)?$`),
	regexp.MustCompile(`^\d{1,2}(?:st|nd|rd|th)?\s+([a-z]+)$`),
}

// maxYearlessLookback bounds the search for a past year holding a yearless
// day, which only matters for February 29.
const maxYearlessLookback = 8

var explicitPatterns = []datePattern{
	{expression: regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`), layout: "2006-1-2"},
	{expression: regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`), layout: "1/2/2006"},
	{expression: regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`), layout: "1-2-2006"},
}

// Parse resolves query against reference, which supplies both the current
// instant and the local time zone. The boolean is false when query is not a
// date query and should be matched as plain text.
func Parse(query string, reference time.Time) (Range, bool) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return Range{}, false
	}

	calendar := &now.Config{
		WeekStartDay: time.Sunday,
		TimeLocation: reference.Location(),
	}
	current := calendar.With(reference)

	switch normalized {
	case "today":
		return dayRange(calendar, reference), true
	case "yesterday":
		return dayRange(calendar, reference.AddDate(0, 0, -1)), true
	case "last week", "lastweek":
		return Range{
			Start: calendar.With(reference.AddDate(0, 0, -7)).BeginningOfDay(),
			End:   current.EndOfDay(),
		}, true
	case "last month", "lastmonth":
		return Range{
			Start: calendar.With(reference.AddDate(0, -1, 0)).BeginningOfDay(),
			End:   current.EndOfDay(),
		}, true
	case "this week", "thisweek":
		return Range{
			Start: current.BeginningOfWeek(),
			End:   current.EndOfDay(),
		}, true
	case "this month", "thismonth":
		return Range{
			Start: current.BeginningOfMonth(),
			End:   current.EndOfDay(),
		}, true
	}

	if month, ok := monthsByName[normalized]; ok {
		return monthRange(calendar, reference, month), true
	}

	for _, pattern := range explicitPatterns {
		if !pattern.expression.MatchString(normalized) {
			continue
		}
		parsed, err := time.ParseInLocation(pattern.layout, normalized, reference.Location())
		if err == nil {
			return dayRange(calendar, parsed), true
		}
	}

	if len(normalized) >= minFallbackLength {
		if parsed, ok := parseNatural(normalized, reference.Location()); ok {
			if parsed.Year() != 0 {
				return dayRange(calendar, parsed), true
			}
			if anchored, ok := anchorYearlessDay(normalized, parsed, reference); ok {
				return dayRange(calendar, anchored), true
			}
		}
	}

	return Range{}, false
}

func dayRange(calendar *now.Config, day time.Time) Range {
	local := calendar.With(day.In(calendar.TimeLocation))
	return Range{Start: local.BeginningOfDay(), End: local.EndOfDay()}
}

// monthRange covers the named month in the most recent year not later than
// reference.
func monthRange(calendar *now.Config, reference time.Time, month time.Month) Range {
	year := reference.Year()
	if month > reference.Month() {
		year--
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, reference.Location())
	anchored := calendar.With(first)
	return Range{Start: anchored.BeginningOfMonth(), End: anchored.EndOfMonth()}
}

func parseNatural(query string, location *time.Location) (parsed time.Time, ok bool) {
	// dateparse panics on a handful of malformed inputs.
	defer func() {
		if recover() != nil {
			parsed, ok = time.Time{}, false
		}
	}()
	value, err := dateparse.ParseIn(query, location)
	if err != nil || value.IsZero() {
		return time.Time{}, false
	}
	return value, true
}

// anchorYearlessDay places a date parsed without a year on its most recent
// occurrence not after reference. Queries that do not look like a day and
// month, such as "1.5kg", are rejected.
func anchorYearlessDay(query string, parsed, reference time.Time) (time.Time, bool) {
	if !isYearlessDay(query) {
		return time.Time{}, false
	}
	for year := reference.Year(); year >= reference.Year()-maxYearlessLookback; year-- {
		candidate := time.Date(year, parsed.Month(), parsed.Day(), 0, 0, 0, 0, reference.Location())
		if candidate.Month() != parsed.Month() || candidate.After(reference) {
			continue
		}
		return candidate, true
	}
	return time.Time{}, false
}

func isYearlessDay(query string) bool {
	for _, shape := range yearlessDayShapes {
		match := shape.FindStringSubmatch(query)
		if match == nil {
			continue
		}
		if len(match) < 2 {
			return true
		}
		if _, ok := monthsByName[match[1]]; ok {
			return true
		}
	}
	return false
}
