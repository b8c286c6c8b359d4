// Package sheet reads and writes spreadsheet files.
//
// The Parser reads .xlsx (excelize), legacy .xls (extrame/xls) and .csv
// files into core workbooks; xlrd-go identifies the container. Only what ingestion needs is materialized:
// cell values, never styles or formula text. The Writer exports merged rows
// as a single-sheet .xlsx file.
package sheet

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/yamitzky/xlrd-go/xlrd"

	"github.com/JonMunkholm/salesmerge/internal/core"
)

// Format is a spreadsheet container format.
type Format int

const (
	FormatUnknown Format = iota
	FormatXLSX
	FormatXLS
	FormatCSV
)

func (f Format) String() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatXLS:
		return "xls"
	case FormatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

// Detect picks the format from the file's signature, falling back to the
// extension. A ZIP container is only xlsx when it holds xl/workbook.xml;
// xlsb and ods packages are reported as unknown.
func Detect(name string, data []byte) Format {
	var kind string
	var err error
	if len(data) > 0 {
		kind, err = xlrd.InspectFormat(name, data)
	}
	switch {
	case err != nil:
		// Truncated ZIP: let the xlsx reader report it.
		return FormatXLSX
	case kind == "xls":
		return FormatXLS
	case kind == "xlsx", kind == "zip":
		return FormatXLSX
	case kind != "":
		return FormatUnknown
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	case ".csv", ".txt":
		return FormatCSV
	}
	return FormatUnknown
}

// Parser is the in-process parser backend.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse implements core.Backend.
func (p *Parser) Parse(ctx context.Context, src core.Source, opts core.ParseOptions) (*core.Workbook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format := Detect(src.Name, src.Data)
	p.logger.Debug("parsing file",
		slog.String("file", src.Name),
		slog.String("format", format.String()),
		slog.Int("bytes", len(src.Data)),
	)

	switch format {
	case FormatXLSX:
		return parseXLSX(src.Data, opts)
	case FormatXLS:
		return parseXLS(src.Data, opts)
	case FormatCSV:
		return parseCSV(src.Data, opts)
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, filepath.Ext(src.Name))
	}
}

// singleSheet wraps one parsed sheet as a workbook.
func singleSheet(s core.Sheet) *core.Workbook {
	return &core.Workbook{
		SheetNames: []string{s.Name},
		Sheets:     map[string]core.Sheet{s.Name: s},
	}
}
