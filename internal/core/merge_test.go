package core

import (
	"log/slog"
	"testing"
	"time"

	"golang.org/x/text/language"
)

func fileOf(name string, rows ...Row) ProcessedFile {
	f := ProcessedFile{ID: name, Name: name, RowCount: len(rows), Data: rows}
	if len(rows) > 0 {
		f.Headers = rows[0].Keys()
	}
	return f
}

func keyValues(t *testing.T, rows []Row, key string) []string {
	t.Helper()
	out := make([]string, len(rows))
	for i, r := range rows {
		c, ok := r.Get(key)
		if !ok {
			out[i] = "<absent>"
			continue
		}
		out[i] = c.String()
	}
	return out
}

func assertOrder(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d rows %q, want %d %q", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %q, want %q", got, want)
		}
	}
}

// ============================================================================
// Merge
// ============================================================================

func TestMerge_NumericTextSortsNumerically(t *testing.T) {
	a := fileOf("a.xlsx",
		rowOf("单号", "10", "品名", "x"),
		rowOf("单号", "2", "品名", "y"),
	)
	b := fileOf("b.xlsx", rowOf("单号", "1", "品名", "z"))

	got := Merge([]ProcessedFile{a, b}, "单号")

	assertOrder(t, keyValues(t, got, "单号"), "1", "2", "10")
	assertOrder(t, keyValues(t, got, "品名"), "z", "y", "x")
}

func TestMerge_TrimsSortKey(t *testing.T) {
	f := fileOf("a.xlsx", rowOf("單號", 3), rowOf("單號", 1))
	got := Merge([]ProcessedFile{f}, "  單號 ")
	assertOrder(t, keyValues(t, got, "單號"), "1", "3")
}

func TestMerge_PreservesRowCount(t *testing.T) {
	files := []ProcessedFile{
		fileOf("a", rowOf("k", 1), rowOf("k", 2), rowOf("k", 3)),
		fileOf("empty"),
		fileOf("b", rowOf("other", "x"), rowOf("k", nil)),
	}
	got := Merge(files, "k")
	if len(got) != 5 {
		t.Errorf("len(Merge) = %d, want 5", len(got))
	}
}

func TestMerge_StableForTies(t *testing.T) {
	a := fileOf("a",
		rowOf("k", "A", "seq", 1),
		rowOf("k", "B", "seq", 2),
		rowOf("k", "A", "seq", 3),
	)
	b := fileOf("b",
		rowOf("k", "A", "seq", 4),
		rowOf("k", "B", "seq", 5),
	)

	got := Merge([]ProcessedFile{a, b}, "k")
	assertOrder(t, keyValues(t, got, "seq"), "1", "3", "4", "2", "5")
}

func TestMerge_MissingKeysSinkInOrder(t *testing.T) {
	f := fileOf("a",
		rowOf("name", "no-key-1"),
		rowOf("k", 5, "name", "five"),
		rowOf("k", nil, "name", "null-key"),
		rowOf("k", 1, "name", "one"),
		rowOf("name", "no-key-2"),
	)

	got := Merge([]ProcessedFile{f}, "k")
	assertOrder(t, keyValues(t, got, "name"), "one", "five", "no-key-1", "null-key", "no-key-2")
}

// Blank cells from the sheet readers are empty text, not null, so they sort
// ahead of every value instead of sinking with absent keys.
func TestMerge_BlankKeyTextSortsFirst(t *testing.T) {
	f := fileOf("a",
		rowOf("k", "B", "name", "b"),
		rowOf("k", nil, "name", "null-key"),
		rowOf("k", "", "name", "blank-1"),
		rowOf("name", "no-key"),
		rowOf("k", 7, "name", "seven"),
		rowOf("k", "", "name", "blank-2"),
		rowOf("k", "A", "name", "a"),
	)

	got := Merge([]ProcessedFile{f}, "k")
	assertOrder(t, keyValues(t, got, "name"), "blank-1", "blank-2", "seven", "a", "b", "null-key", "no-key")
}

func TestMerge_SortKeyAbsentEverywhereKeepsOrder(t *testing.T) {
	files := []ProcessedFile{
		fileOf("a", rowOf("x", 3), rowOf("x", 1)),
		fileOf("b", rowOf("x", 2)),
	}
	got := Merge(files, "單號")
	assertOrder(t, keyValues(t, got, "x"), "3", "1", "2")
}

func TestMerge_DoesNotModifyInput(t *testing.T) {
	f := fileOf("a", rowOf("k", 2), rowOf("k", 1))
	_ = Merge([]ProcessedFile{f}, "k")
	assertOrder(t, keyValues(t, f.Data, "k"), "2", "1")
}

func TestMerge_EmptyInput(t *testing.T) {
	if got := Merge(nil, "k"); len(got) != 0 {
		t.Errorf("Merge(nil) = %d rows, want 0", len(got))
	}
}

// ============================================================================
// Comparator
// ============================================================================

func TestCompare(t *testing.T) {
	cmp := newComparator(language.Make(DefaultCollation))
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b Cell
		aok  bool
		bok  bool
		want int // sign only
	}{
		{name: "both absent", aok: false, bok: false, want: 0},
		{name: "identical text", a: Text("A1"), b: Text("A1"), aok: true, bok: true, want: 0},
		{name: "absent sorts after present", b: Text("x"), aok: false, bok: true, want: 1},
		{name: "present sorts before absent", a: Text("x"), aok: true, bok: false, want: -1},
		{name: "null sorts after present", a: Empty(), b: Number(1), aok: true, bok: true, want: 1},
		{name: "numeric text 10 after 9", a: Text("10"), b: Text("9"), aok: true, bok: true, want: 1},
		{name: "number against numeric text", a: Number(2), b: Text("10"), aok: true, bok: true, want: -1},
		{name: "equal numbers different kinds", a: Number(7), b: Text("7"), aok: true, bok: true, want: 0},
		{name: "bool coerces to one", a: Bool(true), b: Number(2), aok: true, bok: true, want: -1},
		{name: "dates compare by time", a: Date(day), b: Date(day.Add(time.Hour)), aok: true, bok: true, want: -1},
		{name: "number against word is lexicographic", a: Number(5), b: Text("abc"), aok: true, bok: true, want: -1},
		{name: "empty string is not a number", a: Text(""), b: Text("5"), aok: true, bok: true, want: -1},
		{name: "collation ignores case first", a: Text("apple"), b: Text("Banana"), aok: true, bok: true, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cmp.compare(tt.a, tt.aok, tt.b, tt.bok)
			if sign(got) != tt.want {
				t.Errorf("compare(%v, %v) = %d, want sign %d", tt.a, tt.b, got, tt.want)
			}
			if back := cmp.compare(tt.b, tt.bok, tt.a, tt.aok); sign(back) != -tt.want {
				t.Errorf("compare(%v, %v) = %d, want sign %d", tt.b, tt.a, back, -tt.want)
			}
		})
	}
}

// Mixed numeric and alphanumeric codes are ordered pair by pair, which is
// not transitive. This pins the known cycle so a change is deliberate.
func TestCompare_MixedColumnCycle(t *testing.T) {
	cmp := newComparator(language.Make(DefaultCollation))
	lt := func(a, b string) bool {
		return cmp.compare(Text(a), true, Text(b), true) < 0
	}

	if !lt("2", "10") {
		t.Error(`"2" should sort before "10" numerically`)
	}
	if !lt("10", "1a") {
		t.Error(`"10" should sort before "1a" lexicographically`)
	}
	if !lt("1a", "2") {
		t.Error(`"1a" should sort before "2" lexicographically`)
	}
}

func TestCompare_TransitiveOnUniformColumns(t *testing.T) {
	cmp := newComparator(language.Make(DefaultCollation))
	columns := map[string][]Cell{
		"numeric": {Text("10"), Number(3), Text("-1"), Text("2.5"), Number(100), Text("0")},
		"text":    {Text("B-2"), Text("a-1"), Text("客戶"), Text("Z"), Text("門市"), Text("a-10")},
	}

	for name, cells := range columns {
		t.Run(name, func(t *testing.T) {
			for _, a := range cells {
				for _, b := range cells {
					for _, c := range cells {
						ab := cmp.compare(a, true, b, true)
						bc := cmp.compare(b, true, c, true)
						ac := cmp.compare(a, true, c, true)
						if ab <= 0 && bc <= 0 && ac > 0 {
							t.Errorf("not transitive: %v <= %v <= %v but %v > %v", a, b, c, a, c)
						}
					}
				}
			}
		})
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// ============================================================================
// Merger configuration
// ============================================================================

func TestNewMerger_Locale(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{"", "zh-Hant"},
		{"en", "en"},
		{" zh-TW ", "zh-TW"},
		{"not a locale!", "zh-Hant"},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			m := NewMerger(tt.locale, slog.New(slog.DiscardHandler))
			if got := m.Locale(); got != tt.want {
				t.Errorf("Locale() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ============================================================================
// CheckSortKey
// ============================================================================

func TestCheckSortKey(t *testing.T) {
	withKey := fileOf("a", rowOf("單號", 1, "品名", "x"))
	noKey := fileOf("b", rowOf("a", 1, "b", 2, "c", 3, "d", 4, "e", 5, "f", 6))
	empty := fileOf("empty")

	t.Run("present in one file", func(t *testing.T) {
		if w := CheckSortKey([]ProcessedFile{noKey, withKey}, "單號"); w != nil {
			t.Errorf("CheckSortKey() = %v, want nil", w)
		}
	})

	t.Run("key is trimmed", func(t *testing.T) {
		if w := CheckSortKey([]ProcessedFile{withKey}, " 單號 "); w != nil {
			t.Errorf("CheckSortKey() = %v, want nil", w)
		}
	})

	t.Run("missing everywhere samples first file", func(t *testing.T) {
		w := CheckSortKey([]ProcessedFile{noKey, empty}, "單號")
		if w == nil {
			t.Fatal("CheckSortKey() = nil, want warning")
		}
		if len(w.Available) != MaxSampleHeaders {
			t.Errorf("Available = %q, want %d headers", w.Available, MaxSampleHeaders)
		}
		if w.Available[0] != "a" || !w.Truncated {
			t.Errorf("warning = %+v, want sample starting at a and truncated", w)
		}
	})

	t.Run("first file empty", func(t *testing.T) {
		w := CheckSortKey([]ProcessedFile{empty, noKey}, "單號")
		if w == nil || len(w.Available) != 0 || w.Truncated {
			t.Errorf("CheckSortKey() = %+v, want empty warning", w)
		}
	})
}

// ============================================================================
// Columns
// ============================================================================

func TestColumns_UnionInFirstSeenOrder(t *testing.T) {
	rows := []Row{
		rowOf("單號", 1, "品名", "x"),
		rowOf("數量", 3, "單號", 2),
		rowOf("備註", "late"),
	}
	got := Columns(rows)
	assertOrder(t, got, "單號", "品名", "數量", "備註")
}
