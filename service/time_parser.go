package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// TimeFormat identifies which format family matched a time expression
type TimeFormat string

const (
	TimeFormatRelative TimeFormat = "relative"
	TimeFormat12Hour   TimeFormat = "time_12h"
	TimeFormat24Hour   TimeFormat = "time_24h"
	TimeFormatNamedDay TimeFormat = "named_day"
	TimeFormatMonthDay TimeFormat = "month_day"
	TimeFormatFullDate TimeFormat = "full_date"
)

var (
	relativeRe       = regexp.MustCompile(`^(?:in\s+)?(?:(\d+)\s*w)?\s*(?:(\d+)\s*d)?\s*(?:(\d+)\s*h)?\s*(?:(\d+)\s*m)?$`)
	twelveHourRe     = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)$`)
	twentyFourHourRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	namedDayRe       = regexp.MustCompile(`^(tomorrow|monday|mon|tuesday|tues|tue|wednesday|wed|thursday|thurs|thur|thu|friday|fri|saturday|sat|sunday|sun)\s+(.+)$`)
	monthDayRe       = regexp.MustCompile(`^([a-z]+)\s+(\d{1,2})\s+(.+)$`)
)

var weekdays = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tues": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thurs": time.Thursday, "thur": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday,
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// fullDateLayouts are the fallback layouts for complete date-time input,
// interpreted as local to the supplied timezone
var fullDateLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02 3:04pm",
	"01/02/2006 15:04",
	"01/02/2006 3:04pm",
	"1/2/2006 15:04",
	"1/2/2006 3:04pm",
	"2006-01-02",
}

// ResolveLocation resolves an IANA timezone id, falling back to UTC with a
// logged warning when the id is unknown. Non-fatal by design of the callers.
func ResolveLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.WithFields(log.Fields{
			"timezone": tz,
		}).Warn("Unrecognized timezone id, falling back to UTC")
		return time.UTC
	}
	return loc
}

// ParseTimeExpression converts a human time expression to a UTC instant.
// Format families are tried in a fixed order and the first family whose
// structural pattern matches wins: if its value fails range validation the
// whole parse fails rather than falling through to a later family.
// Absolute families roll forward to the next valid occurrence when the
// computed local time is not after now.
func ParseTimeExpression(text string, loc *time.Location, now time.Time) (time.Time, TimeFormat, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return time.Time{}, "", &ParseError{Input: text, Reason: "empty expression"}
	}

	localNow := now.In(loc)

	// Family 1: relative durations, e.g. "10m", "1h30m", "in 2h 15m"
	if m := relativeRe.FindStringSubmatch(normalized); m != nil && hasDurationComponent(m) {
		d, err := relativeDuration(m)
		if err != nil {
			return time.Time{}, "", &ParseError{Input: text, Reason: err.Error()}
		}
		return now.Add(d).UTC(), TimeFormatRelative, nil
	}

	// Family 2: 12-hour clock, e.g. "10pm", "9:30 am"
	if m := twelveHourRe.FindStringSubmatch(normalized); m != nil {
		hour, minute, err := clockFrom12Hour(m)
		if err != nil {
			return time.Time{}, "", &ParseError{Input: text, Reason: err.Error()}
		}
		return nextOccurrenceOf(localNow, hour, minute).UTC(), TimeFormat12Hour, nil
	}

	// Family 3: 24-hour clock, e.g. "22:15"
	if m := twentyFourHourRe.FindStringSubmatch(normalized); m != nil {
		hour, minute, err := clockFrom24Hour(m)
		if err != nil {
			return time.Time{}, "", &ParseError{Input: text, Reason: err.Error()}
		}
		return nextOccurrenceOf(localNow, hour, minute).UTC(), TimeFormat24Hour, nil
	}

	// Family 4: named day plus time, e.g. "tomorrow 3pm", "friday 18:00"
	if m := namedDayRe.FindStringSubmatch(normalized); m != nil {
		hour, minute, err := parseClockPart(m[2])
		if err != nil {
			return time.Time{}, "", &ParseError{Input: text, Reason: err.Error()}
		}

		base := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), hour, minute, 0, 0, loc)
		if m[1] == "tomorrow" {
			return base.AddDate(0, 0, 1).UTC(), TimeFormatNamedDay, nil
		}

		// A named weekday always resolves to its next future occurrence:
		// asking for "monday" on a Monday means next week, not today.
		days := int(weekdays[m[1]] - localNow.Weekday())
		if days <= 0 {
			days += 7
		}
		return base.AddDate(0, 0, days).UTC(), TimeFormatNamedDay, nil
	}

	// Family 5: month, day and time, e.g. "dec 25 10am"
	if m := monthDayRe.FindStringSubmatch(normalized); m != nil {
		if month, ok := monthFromPrefix(m[1]); ok {
			t, err := resolveMonthDay(text, m, month, loc, localNow)
			if err != nil {
				return time.Time{}, "", err
			}
			return t.UTC(), TimeFormatMonthDay, nil
		}
	}

	// Family 6: full date-time fallback, local to the supplied timezone
	for _, layout := range fullDateLayouts {
		if t, err := time.ParseInLocation(layout, normalized, loc); err == nil {
			return t.UTC(), TimeFormatFullDate, nil
		}
	}

	return time.Time{}, "", &ParseError{Input: text, Reason: "unrecognized time format"}
}

// hasDurationComponent reports whether at least one unit group matched;
// a bare number with no unit never matches the relative family.
func hasDurationComponent(m []string) bool {
	return m[1] != "" || m[2] != "" || m[3] != "" || m[4] != ""
}

func relativeDuration(m []string) (time.Duration, error) {
	var total time.Duration
	units := []struct {
		group string
		unit  time.Duration
	}{
		{m[1], 7 * 24 * time.Hour},
		{m[2], 24 * time.Hour},
		{m[3], time.Hour},
		{m[4], time.Minute},
	}
	for _, u := range units {
		if u.group == "" {
			continue
		}
		n, err := strconv.Atoi(u.group)
		if err != nil {
			return 0, fmt.Errorf("invalid duration value %q", u.group)
		}
		total += time.Duration(n) * u.unit
	}
	if total <= 0 {
		return 0, fmt.Errorf("duration must be greater than zero")
	}
	return total, nil
}

func clockFrom12Hour(m []string) (int, int, error) {
	hour, _ := strconv.Atoi(m[1])
	if hour < 1 || hour > 12 {
		return 0, 0, fmt.Errorf("hour must be between 1 and 12")
	}

	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
		if minute > 59 {
			return 0, 0, fmt.Errorf("minute must be between 0 and 59")
		}
	}

	// 12am is midnight, 12pm is noon
	hour = hour % 12
	if m[3] == "pm" {
		hour += 12
	}
	return hour, minute, nil
}

func clockFrom24Hour(m []string) (int, int, error) {
	hour, _ := strconv.Atoi(m[1])
	if hour > 23 {
		return 0, 0, fmt.Errorf("hour must be between 0 and 23")
	}
	minute, _ := strconv.Atoi(m[2])
	if minute > 59 {
		return 0, 0, fmt.Errorf("minute must be between 0 and 59")
	}
	return hour, minute, nil
}

// parseClockPart parses the trailing time of day of a compound expression
// using the 12-hour then 24-hour families
func parseClockPart(s string) (int, int, error) {
	s = strings.TrimSpace(s)
	if m := twelveHourRe.FindStringSubmatch(s); m != nil {
		return clockFrom12Hour(m)
	}
	if m := twentyFourHourRe.FindStringSubmatch(s); m != nil {
		return clockFrom24Hour(m)
	}
	return 0, 0, fmt.Errorf("invalid time of day %q", s)
}

// nextOccurrenceOf returns today's local date at the given clock time,
// pushed to tomorrow when that instant is not after now
func nextOccurrenceOf(localNow time.Time, hour, minute int) time.Time {
	t := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), hour, minute, 0, 0, localNow.Location())
	if !t.After(localNow) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func monthFromPrefix(word string) (time.Month, bool) {
	if len(word) < 3 {
		return 0, false
	}
	month, ok := months[word[:3]]
	return month, ok
}

func resolveMonthDay(input string, m []string, month time.Month, loc *time.Location, localNow time.Time) (time.Time, error) {
	day, _ := strconv.Atoi(m[2])
	if day < 1 || day > 31 {
		return time.Time{}, &ParseError{Input: input, Reason: "day must be between 1 and 31"}
	}

	hour, minute, err := parseClockPart(m[3])
	if err != nil {
		return time.Time{}, &ParseError{Input: input, Reason: err.Error()}
	}

	t := time.Date(localNow.Year(), month, day, hour, minute, 0, 0, loc)
	if t.Month() != month || t.Day() != day {
		// time.Date normalizes impossible dates like Feb 31; reject them
		return time.Time{}, &ParseError{Input: input, Reason: "invalid calendar date"}
	}

	// Dates already passed this year roll to next year
	if !t.After(localNow) {
		t = time.Date(localNow.Year()+1, month, day, hour, minute, 0, 0, loc)
		if t.Month() != month || t.Day() != day {
			return time.Time{}, &ParseError{Input: input, Reason: "invalid calendar date"}
		}
	}
	return t, nil
}
