package core

import (
	"strings"
	"unicode"

	"github.com/JonMunkholm/salesmerge/internal/mojibake"
)

// NormalizeStats counts what normalization changed across a set of rows.
type NormalizeStats struct {
	RepairedHeaders int
	RepairedCells   int
	Collisions      int
}

// Normalize repairs and trims a raw parsed row.
//
// Headers become trim(Repair(header)); text values become
// trim(Repair(value)); numbers, dates and booleans pass through. Two raw
// headers that normalize to the same string collide and the later value wins.
func Normalize(raw Row) Row {
	row, _ := normalizeRow(raw)
	return row
}

// NormalizeAll normalizes every row and reports aggregate statistics.
func NormalizeAll(rows []Row) ([]Row, NormalizeStats) {
	var stats NormalizeStats
	out := make([]Row, len(rows))
	for i, raw := range rows {
		row, s := normalizeRow(raw)
		out[i] = row
		stats.RepairedHeaders += s.RepairedHeaders
		stats.RepairedCells += s.RepairedCells
		stats.Collisions += s.Collisions
	}
	return out, stats
}

// NormalizeHeaders applies header normalization to a list of column names.
// Names that collide after normalization are listed once, at their first
// position.
func NormalizeHeaders(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, h := range raw {
		key := trim(mojibake.Repair(h))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func normalizeRow(raw Row) (Row, NormalizeStats) {
	var stats NormalizeStats
	row := NewRow(raw.Len())

	raw.Each(func(header string, c Cell) {
		fixed, decision := mojibake.Diagnose(header)
		if decision == mojibake.Repaired {
			stats.RepairedHeaders++
		}
		key := trim(fixed)

		if c.Kind == CellText {
			text, decision := mojibake.Diagnose(c.Text)
			if decision == mojibake.Repaired {
				stats.RepairedCells++
			}
			c = Text(trim(text))
		}

		if _, exists := row.Get(key); exists {
			stats.Collisions++
		}
		row.Set(key, c)
	})

	return row, stats
}

// trim removes leading and trailing Unicode whitespace and byte order marks.
func trim(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}
