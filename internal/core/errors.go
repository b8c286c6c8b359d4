package core

import (
	"errors"
	"fmt"
	"strings"
)

// NoDataMessage is the soft error attached to files whose first sheet has no rows.
const NoDataMessage = "No data found in the first sheet"

var (
	// ErrNoFiles is returned when an export is requested with an empty working set.
	ErrNoFiles = errors.New("no files to merge")

	// ErrUnsupportedFormat is returned by parsers for files they cannot read.
	ErrUnsupportedFormat = errors.New("unsupported file type")

	// ErrFileTooLarge is returned when a source exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrFileNotFound is returned when a file id is not in the working set.
	ErrFileNotFound = errors.New("file not found")
)

// ParseError reports that a file's bytes could not be parsed.
// It is isolated to one file and never aborts sibling ingests.
type ParseError struct {
	FileName string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.FileName, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SortKeyWarning is the advisory raised when the requested sort column is
// absent from every file. The merge itself can still run: every row then
// sinks to the end in its original order.
type SortKeyWarning struct {
	SortKey   string
	Available []string // Sample of headers from the first file
	Truncated bool     // More headers exist than Available lists
}

func (w *SortKeyWarning) Error() string {
	sample := strings.Join(w.Available, ", ")
	if w.Truncated {
		sample += "..."
	}
	return fmt.Sprintf("sort key %q missing from all files (available: %s)", w.SortKey, sample)
}

// IsSortKeyWarning reports whether err carries a SortKeyWarning.
func IsSortKeyWarning(err error) (*SortKeyWarning, bool) {
	var w *SortKeyWarning
	if errors.As(err, &w) {
		return w, true
	}
	return nil, false
}
