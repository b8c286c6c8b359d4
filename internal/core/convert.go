package core

// convert.go turns raw strings into typed cells and typed cells into the
// numbers the comparator uses.
//
// Two callers care about this:
//   - The CSV parser infers cell kinds the way a spreadsheet application
//     would when opening the file (numbers, TRUE/FALSE, dates).
//   - The comparator needs the JavaScript Number() view of a cell so that
//     "10" sorts after "9" while "A10" still sorts as text.

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// numericRegex validates that a string is a decimal number.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// radixRegex matches the prefixed integer literals Number() accepts.
var radixRegex = regexp.MustCompile(`^0([xX][0-9a-fA-F]+|[oO][0-7]+|[bB][01]+)$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling.
// Time-of-day layouts come first so "2024-01-02 13:04" keeps its time.
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		time.RFC3339, "2006-01-02T15:04:05",
		"2006-01-02 15:04:05", "2006-01-02 15:04", "2006/01/02 15:04:05", "2006/1/2 15:04",
		"1/2/2006 15:04:05", "1/2/2006 15:04",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006-01-02", "2006/01/02", "2006/1/2", "2006.01.02",
		"Jan 2, 2006", "2 Jan 2006", "2-Jan-06", "2-Jan-2006",
		"2006年1月2日",
	}
)

// ToNumber returns the Number() coercion of a cell and whether it is a
// real number (not NaN). Empty cells are never numeric.
func ToNumber(c Cell) (float64, bool) {
	switch c.Kind {
	case CellNumber:
		return c.Number, !math.IsNaN(c.Number)
	case CellDate:
		return float64(c.Time.UnixMilli()), true
	case CellBool:
		if c.Bool {
			return 1, true
		}
		return 0, true
	case CellText:
		if c.Text == "" {
			return 0, false
		}
		return ParseNumber(c.Text)
	default:
		return 0, false
	}
}

// ParseNumber parses s with Number() rules: surrounding whitespace is
// ignored, a blank string is zero, Infinity and 0x/0o/0b literals are
// accepted, and anything else that is not a plain decimal is NaN.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimFunc(s, isJSSpace)
	if s == "" {
		return 0, true
	}

	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}

	if radixRegex.MatchString(s) {
		base := 16
		switch s[1] {
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		n, ok := new(big.Int).SetString(s[2:], base)
		if !ok {
			return 0, false
		}
		f, _ := new(big.Float).SetInt(n).Float64()
		return f, true
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func isJSSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// ParseDate parses s using the known date layouts.
// Supports multiple date formats and handles 2-digit years with pivot.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// ParseBool accepts the spellings spreadsheet applications write for booleans.
func ParseBool(s string) (bool, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRUE":
		return true, true
	case "FALSE":
		return false, true
	default:
		return false, false
	}
}

// InferCell types a raw text value from a delimited file.
//
// Excel-style ="..." wrappers force text (they exist to keep leading zeros
// on codes like ="00123"). Plain decimals become numbers, TRUE/FALSE become
// booleans and, when dates is set, recognized dates become dates. Everything
// else stays text, including values with leading zeros.
func InferCell(s string, dates bool) Cell {
	if s == "" {
		return Text("")
	}
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		return Text(s[2 : len(s)-1])
	}

	trimmed := strings.TrimSpace(s)
	if numericRegex.MatchString(trimmed) && !hasLeadingZero(trimmed) {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return Number(f)
		}
	}
	if b, ok := ParseBool(trimmed); ok {
		return Bool(b)
	}
	if dates {
		if t, ok := ParseDate(trimmed); ok {
			return Date(t)
		}
	}
	return Text(s)
}

// hasLeadingZero reports integer strings like "007" that are identifiers, not numbers.
func hasLeadingZero(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) > 1 && s[0] == '0' && s[1] != '.' && s[1] != 'e' && s[1] != 'E'
}
