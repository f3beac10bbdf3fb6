package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// dateFormats are the layouts statements and models commonly use
var dateFormats = []string{
	isoDate,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02-01-2006",
	"02.01.2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"02-Jan-2006",
	"01/02/06",
	"1/2/06",
	"02/01/06",
}

// monthDayFormats are layouts that leave the year to the statement header
var monthDayFormats = []string{
	"2 Jan",
	"Jan 2",
	"2 January",
	"January 2",
	"2-Jan",
}

// stripCodeFence removes a surrounding markdown code block
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// jsonObject slices text down to the outermost JSON object
func jsonObject(text string) (string, error) {
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return "", fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return "", fmt.Errorf("invalid JSON object in response")
	}

	return text[startIdx : endIdx+1], nil
}

// parseResultJSON parses model output into a Result
func parseResultJSON(text string) (*Result, error) {
	text, err := jsonObject(stripCodeFence(text))
	if err != nil {
		return nil, err
	}

	var result Result
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	if result.Transactions == nil {
		result.Transactions = []Transaction{}
	}
	for i := range result.Transactions {
		tx := &result.Transactions[i]
		tx.Description = strings.TrimSpace(tx.Description)
		tx.Type = TransactionType(strings.ToLower(strings.TrimSpace(string(tx.Type))))
		if d, ok := parseDate(tx.Date); ok {
			tx.Date = d.Format(isoDate)
		}
	}

	return &result, nil
}

// parseDate tries each known layout in turn
func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, format := range dateFormats {
		if d, err := time.Parse(format, value); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// parseMonthDay parses a date printed without a year
func parseMonthDay(value string) (time.Month, int, bool) {
	value = strings.TrimSpace(value)
	for _, format := range monthDayFormats {
		if d, err := time.Parse(format, value); err == nil {
			return d.Month(), d.Day(), true
		}
	}
	return 0, 0, false
}

// parseDateInPeriod parses value, taking the year from period when the
// value carries none. A year-less date lands in whichever year of the
// period contains it.
func parseDateInPeriod(value string, period *Period) (time.Time, bool) {
	if d, ok := parseDate(value); ok {
		return d, true
	}
	month, day, ok := parseMonthDay(value)
	if !ok {
		return time.Time{}, false
	}
	from, to, ok := periodBounds(period)
	if !ok {
		return time.Time{}, false
	}
	for year := to.Year(); year >= from.Year(); year-- {
		d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if !d.Before(from) && !d.After(to) {
			return d, true
		}
	}
	return time.Date(to.Year(), month, day, 0, 0, 0, 0, time.UTC), true
}

// periodBounds parses a statement period. A period with one side missing
// is treated as that single day.
func periodBounds(period *Period) (time.Time, time.Time, bool) {
	if period == nil {
		return time.Time{}, time.Time{}, false
	}
	from, fromOK := parseDate(period.From)
	to, toOK := parseDate(period.To)
	switch {
	case fromOK && toOK:
		if to.Before(from) {
			from, to = to, from
		}
		return from, to, true
	case fromOK:
		return from, from, true
	case toOK:
		return to, to, true
	default:
		return time.Time{}, time.Time{}, false
	}
}
