// Package core provides the business logic for merging sales reports.
//
// This package contains the domain logic independent of any UI or
// transport layer. It is used by the web handlers and the merge CLI.
//
// # Pipeline
//
//  1. A [Backend] parses file bytes into a [Workbook]. The in-process parser
//     lives in internal/sheet, the subprocess bridge in internal/bridge.
//  2. [Ingester.Ingest] takes the first sheet and runs every row through
//     [Normalize], which repairs Big5 text that was decoded as Latin-1 or
//     Windows-1252 and trims headers and text values.
//  3. [Service.IngestBatch] ingests files concurrently under a
//     [ParseLimiter] and adds them to the [Workspace] in input order.
//  4. [Merger.Merge] concatenates the working set and stable-sorts it by
//     the sort key. Rows without the key sink to the end.
//  5. An [Exporter] writes the merged rows as one spreadsheet.
//
// # Sort Order
//
// Values that both read as numbers compare numerically, so "9" sorts
// before "10". Everything else compares by locale collation ("zh-Hant" by
// default). The choice is made for each pair of values.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE006: File errors (size, type, encoding, empty sheet)
//   - PARSE001-PARSE002: Parser failures
//   - MRG001-MRG002: Merge errors (nothing to merge, missing sort key)
//   - UPL002-UPL005: Upload errors (busy, cancelled, timeout)
//
// An empty first sheet is not an error: the [ProcessedFile] carries
// [NoDataMessage] in its Error field and contributes no rows.
package core
