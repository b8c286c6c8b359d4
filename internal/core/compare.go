package core

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultCollation is the locale used for text ordering when none is configured.
const DefaultCollation = "zh-Hant"

// comparator orders sort-key values. It wraps a collator, which keeps
// internal buffers and must not be shared between goroutines.
type comparator struct {
	coll *collate.Collator
}

func newComparator(tag language.Tag) *comparator {
	return &comparator{coll: collate.New(tag)}
}

// compare returns a negative number when a sorts before b, zero when they
// tie and a positive number otherwise. present reports whether each row has
// the sort key at all.
//
// The rules, in order:
//  1. identical values (including both missing) tie;
//  2. a missing or null value sorts after anything present;
//  3. two values that both read as numbers compare numerically, except
//     that the empty string never counts as a number;
//  4. anything else compares by collation of the display strings.
//
// Rule 3 is decided per pair, so a column mixing codes like "10" and "1a"
// is not totally ordered.
func (c *comparator) compare(a Cell, aok bool, b Cell, bok bool) int {
	aNull := !aok || a.IsEmpty()
	bNull := !bok || b.IsEmpty()

	switch {
	case aNull && bNull:
		return 0
	case aok && bok && a.Equal(b):
		return 0
	case aNull:
		return 1
	case bNull:
		return -1
	}

	if na, ok := ToNumber(a); ok {
		if nb, ok := ToNumber(b); ok {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			default:
				return 0
			}
		}
	}

	return c.coll.CompareString(a.String(), b.String())
}
