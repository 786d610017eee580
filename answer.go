package main

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var matchupRegex = regexp.MustCompile(`^([A-Za-z][A-Za-z .'-]*[A-Za-z.])\s*(?:@|vs\.?)\s*([A-Za-z][A-Za-z .'-]*[A-Za-z.])$`)

// FieldAnswer is one structured (field, value) produced by parsing a user
// answer. An identity answer may produce two (away and home team).
type FieldAnswer struct {
	Field Field
	Value string
}

// ParseAnswer turns free text for the pending askable field into structured
// field values. A returned error means the answer did not fit the field's
// expected shape and the driver should enter CLARIFY.
func ParseAnswer(field Field, text string, now time.Time) ([]FieldAnswer, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty answer")
	}

	switch field {
	case FieldIdentity:
		if m := matchupRegex.FindStringSubmatch(text); len(m) == 3 {
			// Convention is away @ home.
			return []FieldAnswer{
				{Field: FieldAwayTeam, Value: strings.TrimSpace(m[1])},
				{Field: FieldHomeTeam, Value: strings.TrimSpace(m[2])},
			}, nil
		}
		return []FieldAnswer{{Field: FieldBinderTitle, Value: text}}, nil
	case FieldGameDate:
		date, err := parseGameDate(text, now)
		if err != nil {
			return nil, err
		}
		return []FieldAnswer{{Field: FieldGameDate, Value: date}}, nil
	case FieldGameTime:
		clock, err := parseGameTime(text)
		if err != nil {
			return nil, err
		}
		return []FieldAnswer{{Field: FieldGameTime, Value: clock}}, nil
	case FieldTimezone:
		tz, err := parseTimezone(text)
		if err != nil {
			return nil, err
		}
		return []FieldAnswer{{Field: FieldTimezone, Value: tz}}, nil
	case FieldControlRoom, FieldVenue, FieldBroadcastFeed:
		return []FieldAnswer{{Field: field, Value: text}}, nil
	}
	return nil, fmt.Errorf("unknown field %q", field)
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"January 2, 2006",
}

// Month-day layouts with no year: the year comes from now, rolled forward
// if the date already passed.
var monthDayLayouts = []string{
	"Jan 2",
	"January 2",
	"01/02",
	"1/2",
}

func parseGameDate(text string, now time.Time) (string, error) {
	lower := strings.ToLower(text)
	switch lower {
	case "today", "tonight":
		return now.Format("2006-01-02"), nil
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format("2006-01-02"), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	for _, layout := range monthDayLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			t = time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
			if t.Before(now.AddDate(0, 0, -1)) {
				t = t.AddDate(1, 0, 0)
			}
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", text)
}

var timeLayouts = []string{
	"15:04",
	"3:04 PM",
	"3:04PM",
	"3 PM",
	"3PM",
}

func parseGameTime(text string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(text))
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("unrecognized time %q", text)
}

var timezoneAliases = map[string]string{
	"et":       "ET",
	"est":      "ET",
	"edt":      "ET",
	"eastern":  "ET",
	"ct":       "CT",
	"cst":      "CT",
	"cdt":      "CT",
	"central":  "CT",
	"mt":       "MT",
	"mst":      "MT",
	"mdt":      "MT",
	"mountain": "MT",
	"pt":       "PT",
	"pst":      "PT",
	"pdt":      "PT",
	"pacific":  "PT",
}

func parseTimezone(text string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(text))
	key = strings.TrimSuffix(key, " time")
	if tz, ok := timezoneAliases[key]; ok {
		return tz, nil
	}
	// Accept IANA names as-is (e.g. America/New_York).
	if _, err := time.LoadLocation(strings.TrimSpace(text)); err == nil && strings.Contains(text, "/") {
		return strings.TrimSpace(text), nil
	}
	return "", fmt.Errorf("unrecognized timezone %q", text)
}

// clarifyText is the retry copy shown when an answer does not parse into
// the pending field's shape.
func clarifyText(field Field) string {
	switch field {
	case FieldGameDate:
		return "I couldn't read that as a date. Try something like 2026-01-15, Jan 15, or \"today\"."
	case FieldGameTime:
		return "I couldn't read that as a start time. Try 19:00 or 7:30 PM."
	case FieldTimezone:
		return "I couldn't place that timezone. ET, CT, MT, PT, or an IANA name like America/Denver."
	}
	return "Sorry, I couldn't read that — mind rephrasing?"
}
