package core

import (
	"context"
	"strconv"
	"time"
)

// CellKind identifies the type of a parsed cell value.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellDate
	CellBool
)

func (k CellKind) String() string {
	switch k {
	case CellText:
		return "text"
	case CellNumber:
		return "number"
	case CellDate:
		return "date"
	case CellBool:
		return "bool"
	default:
		return "empty"
	}
}

// Cell is a single parsed value. Only the field matching Kind is meaningful.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Time   time.Time
	Bool   bool
}

// Text returns a text cell.
func Text(s string) Cell { return Cell{Kind: CellText, Text: s} }

// Number returns a numeric cell.
func Number(f float64) Cell { return Cell{Kind: CellNumber, Number: f} }

// Date returns a date cell.
func Date(t time.Time) Cell { return Cell{Kind: CellDate, Time: t} }

// Bool returns a boolean cell.
func Bool(b bool) Cell { return Cell{Kind: CellBool, Bool: b} }

// Empty returns an empty cell.
func Empty() Cell { return Cell{} }

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool { return c.Kind == CellEmpty }

// String returns the display form used for lexicographic comparison and CSV output.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellDate:
		if c.Time.Hour() == 0 && c.Time.Minute() == 0 && c.Time.Second() == 0 {
			return c.Time.Format("2006-01-02")
		}
		return c.Time.Format("2006-01-02 15:04:05")
	case CellBool:
		return strconv.FormatBool(c.Bool)
	default:
		return ""
	}
}

// Equal reports whether two cells hold the same kind and value.
func (c Cell) Equal(o Cell) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case CellText:
		return c.Text == o.Text
	case CellNumber:
		return c.Number == o.Number
	case CellDate:
		return c.Time.Equal(o.Time)
	case CellBool:
		return c.Bool == o.Bool
	default:
		return true
	}
}

// Row is an ordered mapping from column header to cell.
// Setting an existing key replaces its value but keeps its position.
type Row struct {
	keys   []string
	values map[string]Cell
}

// NewRow creates an empty row with room for n columns.
func NewRow(n int) Row {
	return Row{
		keys:   make([]string, 0, n),
		values: make(map[string]Cell, n),
	}
}

// Set assigns a value to key.
func (r *Row) Set(key string, c Cell) {
	if r.values == nil {
		r.values = make(map[string]Cell)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = c
}

// Get returns the value for key and whether it is present.
func (r Row) Get(key string) (Cell, bool) {
	c, ok := r.values[key]
	return c, ok
}

// Keys returns the column headers in insertion order.
func (r Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of columns in the row.
func (r Row) Len() int { return len(r.keys) }

// Each calls fn for every column in insertion order.
func (r Row) Each(fn func(key string, c Cell)) {
	for _, k := range r.keys {
		fn(k, r.values[k])
	}
}

// Sheet is one worksheet as returned by a parser backend.
type Sheet struct {
	Name     string
	Rows     []Row
	Codepage int // Codepage the text was decoded with, 0 if the format carries none

	// Headers is the column order reported by the backend, if it reports
	// one. The first row's keys are always included.
	Headers []string
}

// Workbook is the parser output: sheet names in file order plus their contents.
type Workbook struct {
	SheetNames []string
	Sheets     map[string]Sheet
}

// FirstSheet returns the first sheet in file order.
func (w *Workbook) FirstSheet() (Sheet, bool) {
	if w == nil || len(w.SheetNames) == 0 {
		return Sheet{}, false
	}
	s, ok := w.Sheets[w.SheetNames[0]]
	return s, ok
}

// ParseOptions are the hints passed to a parser backend.
type ParseOptions struct {
	DatesAsValues bool // Materialize date-formatted serials as dates
	SkipFormulas  bool // Use cached values, never formula text
	SkipStyles    bool // Ignore styling records
	Codepage      int  // Codepage hint for legacy binary formats
}

// DefaultParseOptions returns the options ingestion always requests.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		DatesAsValues: true,
		SkipFormulas:  true,
		SkipStyles:    true,
		Codepage:      950,
	}
}

// Source is a file handed to ingestion.
type Source struct {
	ID   string // Optional preassigned identifier
	Name string // Display name including extension
	Data []byte
}

// Backend parses raw file bytes into a workbook.
// Implementations: the in-process parser and the out-of-process bridge.
type Backend interface {
	Parse(ctx context.Context, src Source, opts ParseOptions) (*Workbook, error)
}

// ProcessedFile is the result of ingesting one file. It is immutable once created.
type ProcessedFile struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	RowCount int       `json:"rowCount"`
	Headers  []string  `json:"headers"`
	Data     []Row     `json:"-"`
	Error    string    `json:"error,omitempty"`
	Loaded   time.Time `json:"loadedAt"`
}

// HasHeader reports whether header is one of the file's normalized headers.
func (f ProcessedFile) HasHeader(header string) bool {
	for _, h := range f.Headers {
		if h == header {
			return true
		}
	}
	return false
}
