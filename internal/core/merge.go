package core

import (
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// MaxSampleHeaders is how many headers a SortKeyWarning lists.
const MaxSampleHeaders = 5

// Merger concatenates the rows of several files and orders them by one column.
// A Merger is safe for concurrent use; each call builds its own collator.
type Merger struct {
	tag    language.Tag
	logger *slog.Logger
}

// NewMerger creates a merger that orders text with the given BCP 47 locale.
// An empty or unparsable locale falls back to DefaultCollation.
func NewMerger(locale string, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = DefaultCollation
	}
	tag, err := language.Parse(locale)
	if err != nil {
		logger.Warn("invalid collation locale, using default",
			slog.String("locale", locale),
			slog.String("default", DefaultCollation),
		)
		tag = language.Make(DefaultCollation)
	}
	return &Merger{tag: tag, logger: logger}
}

// Locale returns the collation locale in use.
func (m *Merger) Locale() string {
	return m.tag.String()
}

// Merge returns every row of files, in file order then row order, stably
// sorted ascending by sortKey. The key is trimmed before use. Rows lacking
// the key sink to the end in their original relative order. Input files are
// not modified.
func (m *Merger) Merge(files []ProcessedFile, sortKey string) []Row {
	key := strings.TrimSpace(sortKey)

	total := 0
	for _, f := range files {
		total += len(f.Data)
	}
	rows := make([]Row, 0, total)
	for _, f := range files {
		rows = append(rows, f.Data...)
	}

	cmp := newComparator(m.tag)
	slices.SortStableFunc(rows, func(a, b Row) int {
		va, aok := a.Get(key)
		vb, bok := b.Get(key)
		return cmp.compare(va, aok, vb, bok)
	})

	m.logger.Debug("merged rows",
		slog.Int("files", len(files)),
		slog.Int("rows", len(rows)),
		slog.String("sort_key", key),
	)
	return rows
}

// Merge merges files with the default collation.
func Merge(files []ProcessedFile, sortKey string) []Row {
	return NewMerger(DefaultCollation, slog.Default()).Merge(files, sortKey)
}

// CheckSortKey returns a warning when no file lists sortKey among its
// headers. The warning samples the first file's headers.
func CheckSortKey(files []ProcessedFile, sortKey string) *SortKeyWarning {
	key := strings.TrimSpace(sortKey)
	for _, f := range files {
		if f.HasHeader(key) {
			return nil
		}
	}

	w := &SortKeyWarning{SortKey: key, Available: []string{}}
	if len(files) > 0 {
		headers := files[0].Headers
		n := min(len(headers), MaxSampleHeaders)
		w.Available = append(w.Available, headers[:n]...)
		w.Truncated = len(headers) > MaxSampleHeaders
	}
	return w
}

// Columns returns the union of the rows' keys in first-seen order.
// It is the column layout of the exported sheet.
func Columns(rows []Row) []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, r := range rows {
		for _, k := range r.keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}
	return cols
}
