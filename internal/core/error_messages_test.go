package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "file too large maps correctly",
			err:         fmt.Errorf("%w: 200MB exceeds limit", ErrFileTooLarge),
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum size limit",
		},
		{
			name:        "unsupported type maps correctly",
			err:         fmt.Errorf("%w: .pdf", ErrUnsupportedFormat),
			wantCode:    "FILE002",
			wantMessage: "Only .xls, .xlsx and .csv files can be merged",
		},
		{
			name:        "empty sheet maps correctly",
			err:         errors.New(NoDataMessage),
			wantCode:    "FILE005",
			wantMessage: "The first sheet has no data rows",
		},
		{
			name:        "missing file maps correctly",
			err:         ErrFileNotFound,
			wantCode:    "FILE006",
			wantMessage: "File is not in the working set",
		},
		{
			name:        "no files to merge maps correctly",
			err:         ErrNoFiles,
			wantCode:    "MRG001",
			wantMessage: "There is nothing to merge",
		},
		{
			name:        "sort key warning maps before parse",
			err:         &SortKeyWarning{SortKey: "parse x"},
			wantCode:    "MRG002",
			wantMessage: "Sort column was not found in any file",
		},
		{
			name:        "corrupt zip maps correctly",
			err:         &ParseError{FileName: "a.xlsx", Err: errors.New("zip: not a valid zip file")},
			wantCode:    "PARSE001",
			wantMessage: "The spreadsheet could not be read",
		},
		{
			name:        "generic parse error maps correctly",
			err:         &ParseError{FileName: "a.xls", Err: errors.New("unexpected EOF")},
			wantCode:    "PARSE002",
			wantMessage: "The file could not be parsed",
		},
		{
			name:        "limiter timeout maps correctly",
			err:         ErrTooManyUploads,
			wantCode:    "UPL002",
			wantMessage: "System is busy processing other imports",
		},
		{
			name:        "deadline maps correctly",
			err:         context.DeadlineExceeded,
			wantCode:    "UPL005",
			wantMessage: "Request timed out",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("FILE TOO LARGE"),
			wantCode:    "FILE001",
			wantMessage: "File exceeds the maximum size limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrNoFiles)

	expected := "There is nothing to merge (Code: MRG001). Import at least one report first"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error is not user facing", err: nil, want: false},
		{name: "known error is user facing", err: ErrUnsupportedFormat, want: true},
		{name: "unknown error is not user facing", err: errors.New("random internal error xyz"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}
