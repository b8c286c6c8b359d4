// Package core provides the business logic for merging spreadsheet reports.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the configured size limit
//	          Action: Split the report or raise UPLOAD_MAX_FILE_SIZE
//	          Patterns: "file too large"
//
//	FILE002 - Unsupported type: Only .xls, .xlsx and .csv can be merged
//	          Action: Save the report as .xlsx and try again
//	          Patterns: "unsupported file type"
//
//	FILE003 - Encoding error: File contains characters that could not be decoded
//	          Action: Save the file as UTF-8 or Big5
//	          Patterns: "encoding error"
//
//	FILE004 - No file: No file was selected
//	          Action: Please select at least one report
//	          Patterns: "no file provided"
//
//	FILE005 - Empty sheet: The first sheet has no data rows
//	          Action: Check that the report's data is on the first sheet
//	          Patterns: "no data found"
//
//	FILE006 - Not in working set: The file was removed or never imported
//	          Action: Refresh the file list
//	          Patterns: "file not found"
//
// # Parse Errors (PARSE001-PARSE099)
//
//	PARSE001 - Corrupt workbook: The spreadsheet could not be read
//	           Action: Open the file in Excel, save it again, and re-import
//	           Patterns: "zip: not a valid zip file", "ole2", "not a valid"
//
//	PARSE002 - Parse failure: The file could not be parsed
//	           Action: Check that the file is a valid spreadsheet
//	           Patterns: "parse "
//
// # Merge Errors (MRG001-MRG099)
//
//	MRG001 - No files: Nothing to merge
//	         Action: Import at least one report first
//	         Patterns: "no files to merge"
//
//	MRG002 - Sort key missing: Sort column not found in any file
//	         Action: Check the column name or merge anyway
//	         Patterns: "sort key"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many imports in progress
//	UPL004 - Request cancelled
//	UPL005 - Request timeout
//
// # Rate Limiting (RATE001)
//
// # Default Error (ERR000)
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns come first.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors (FILE001-FILE006)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the report into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "Only .xls, .xlsx and .csv files can be merged",
			Action:  "Save the report as .xlsx and try again",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains characters that could not be decoded",
			Action:  "Save the file as UTF-8 or Big5",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select at least one report",
			Code:    "FILE004",
		},
	},
	{
		pattern: "no data found",
		msg: UserMessage{
			Message: "The first sheet has no data rows",
			Action:  "Check that the report's data is on the first sheet",
			Code:    "FILE005",
		},
	},
	{
		pattern: "file not found",
		msg: UserMessage{
			Message: "File is not in the working set",
			Action:  "Refresh the file list",
			Code:    "FILE006",
		},
	},

	// =========================================================================
	// Merge Errors (MRG001-MRG002)
	// Checked before parse errors: a sort key named "parse x" must not
	// be reported as a parse failure.
	// =========================================================================
	{
		pattern: "no files to merge",
		msg: UserMessage{
			Message: "There is nothing to merge",
			Action:  "Import at least one report first",
			Code:    "MRG001",
		},
	},
	{
		pattern: "sort key",
		msg: UserMessage{
			Message: "Sort column was not found in any file",
			Action:  "Check the column name or merge anyway",
			Code:    "MRG002",
		},
	},

	// =========================================================================
	// Parse Errors (PARSE001-PARSE002)
	// =========================================================================
	{
		pattern: "not a valid zip file",
		msg: UserMessage{
			Message: "The spreadsheet could not be read",
			Action:  "Open the file in Excel, save it again, and re-import",
			Code:    "PARSE001",
		},
	},
	{
		pattern: "ole2",
		msg: UserMessage{
			Message: "The spreadsheet could not be read",
			Action:  "Open the file in Excel, save it again, and re-import",
			Code:    "PARSE001",
		},
	},
	{
		pattern: "parse ",
		msg: UserMessage{
			Message: "The file could not be parsed",
			Action:  "Check that the file is a valid spreadsheet",
			Code:    "PARSE002",
		},
	},

	// =========================================================================
	// Upload Errors (UPL002-UPL005)
	// =========================================================================
	{
		pattern: "too many concurrent",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try importing fewer files at once",
			Code:    "UPL005",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
