// Package templates renders the HTML pages of the merge server.
package templates

import (
	"strings"
	"time"
)

// FileView is one row of the working-set table.
type FileView struct {
	ID       string
	Name     string
	RowCount int
	Headers  []string
	Error    string
	Loaded   time.Time
}

// Columns joins the file's headers for display.
func (f FileView) Columns() string {
	return strings.Join(f.Headers, ", ")
}

// HistoryView is one recent merge.
type HistoryView struct {
	OutputName string
	SortKey    string
	Files      int
	TotalRows  int
	CreatedAt  time.Time
}

// When formats the merge time for the history list.
func (h HistoryView) When() string {
	return h.CreatedAt.Format("2006-01-02 15:04")
}

// DashboardData is everything the dashboard shows.
type DashboardData struct {
	Files      []FileView
	TotalRows  int
	SortKey    string
	OutputName string
	History    []HistoryView
}
