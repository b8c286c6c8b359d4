// Package mojibake recovers Traditional Chinese text that an upstream
// spreadsheet parser decoded with a single-byte Western codepage.
//
// Legacy .xls reports frequently store Big5 text while declaring (or being
// guessed as) Latin-1 / Windows-1252. The parser then emits one Unicode code
// point per original byte. Repair reverses that: it recovers the byte
// sequence, re-decodes it as Big5, and keeps the result only when it
// actually produced Chinese.
//
// The strategy is a fixed decision table evaluated in order:
//
//	step  condition                                    decision
//	1     any rune in U+4E00..U+9FFF                   KeepCJK      (unchanged)
//	2     every rune <= 0x7F                           KeepASCII    (unchanged)
//	3     a rune >= 0x100 outside the CP1252 table     KeepForeign  (unchanged)
//	4,5   Big5 decode yields no CJK ideograph          KeepNotBig5  (unchanged)
//	      otherwise                                    Repaired     (decoded text)
//
// None of the Keep* outcomes are errors.
package mojibake

import (
	"golang.org/x/text/encoding/traditionalchinese"
)

// Version identifies the revision of the decision table above.
const Version = "5"

// Decision records which row of the decision table applied to a value.
type Decision int

const (
	KeepCJK Decision = iota
	KeepASCII
	KeepForeign
	KeepNotBig5
	Repaired
)

func (d Decision) String() string {
	switch d {
	case KeepCJK:
		return "keep_cjk"
	case KeepASCII:
		return "keep_ascii"
	case KeepForeign:
		return "keep_foreign"
	case KeepNotBig5:
		return "keep_not_big5"
	case Repaired:
		return "repaired"
	default:
		return "unknown"
	}
}

// cp1252Bytes maps the Windows-1252 glyphs of the 0x80-0x9F block back to
// the byte they were decoded from. 0x81, 0x8D, 0x8F, 0x90 and 0x9D are
// undefined in CP1252 and arrive as U+0081 etc., which step 3 already
// handles as plain Latin-1.
var cp1252Bytes = map[rune]byte{
	'\u20AC': 0x80, // €
	'\u201A': 0x82, // ‚
	'\u0192': 0x83, // ƒ
	'\u201E': 0x84, // „
	'\u2026': 0x85, // …
	'\u2020': 0x86, // †
	'\u2021': 0x87, // ‡
	'\u02C6': 0x88, // ˆ
	'\u2030': 0x89, // ‰
	'\u0160': 0x8A, // Š
	'\u2039': 0x8B, // ‹
	'\u0152': 0x8C, // Œ
	'\u017D': 0x8E, // Ž
	'\u2018': 0x91, // ‘
	'\u2019': 0x92, // ’
	'\u201C': 0x93, // “
	'\u201D': 0x94, // ”
	'\u2022': 0x95, // •
	'\u2013': 0x96, // –
	'\u2014': 0x97, // —
	'\u02DC': 0x98, // ˜
	'\u2122': 0x99, // ™
	'\u0161': 0x9A, // š
	'\u203A': 0x9B, // ›
	'\u0153': 0x9C, // œ
	'\u017E': 0x9E, // ž
	'\u0178': 0x9F, // Ÿ
}

// Repair returns the best-effort corrected form of s.
// Repair(Repair(s)) == Repair(s) for every s.
func Repair(s string) string {
	out, _ := Diagnose(s)
	return out
}

// Diagnose runs the decision table and reports which rule decided.
func Diagnose(s string) (string, Decision) {
	if HasCJK(s) {
		return s, KeepCJK
	}
	if isASCII(s) {
		return s, KeepASCII
	}

	raw, ok := recoverBytes(s)
	if !ok {
		return s, KeepForeign
	}

	// The Big5 decoder substitutes U+FFFD for invalid sequences instead of
	// failing, so an error here means something other than bad input.
	decoded, err := traditionalchinese.Big5.NewDecoder().Bytes(raw)
	if err != nil || !hasCJKBytes(decoded) {
		return s, KeepNotBig5
	}
	return string(decoded), Repaired
}

// HasCJK reports whether s contains a CJK Unified Ideograph (U+4E00-U+9FFF).
func HasCJK(s string) bool {
	for _, r := range s {
		if isIdeograph(r) {
			return true
		}
	}
	return false
}

func hasCJKBytes(b []byte) bool {
	return HasCJK(string(b))
}

func isIdeograph(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return false
		}
	}
	return true
}

// recoverBytes maps each rune back to the single byte it was decoded from.
func recoverBytes(s string) ([]byte, bool) {
	raw := make([]byte, 0, len(s))
	for _, r := range s {
		if r < 0x100 {
			raw = append(raw, byte(r))
			continue
		}
		b, ok := cp1252Bytes[r]
		if !ok {
			return nil, false
		}
		raw = append(raw, b)
	}
	return raw, true
}
