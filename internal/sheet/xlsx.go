package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/salesmerge/internal/core"
)

// Built-in number formats that display a date or time. 27-36 and 50-58 are
// the East Asian locale date formats.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// xlsxSheet reads typed cells from one excelize worksheet.
type xlsxSheet struct {
	f        *excelize.File
	name     string
	date1904 bool
	dates    bool
	styles   map[int]bool // style id -> displays a date
}

func parseXLSX(data []byte, opts core.ParseOptions) (wb *core.Workbook, err error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &core.Workbook{Sheets: map[string]core.Sheet{}}, nil
	}

	xs := &xlsxSheet{
		f:      f,
		name:   sheets[0],
		dates:  opts.DatesAsValues,
		styles: make(map[int]bool),
	}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		xs.date1904 = *props.Date1904
	}

	grid, err := xs.grid()
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", xs.name, err)
	}

	wb = singleSheet(core.Sheet{Name: xs.name, Rows: tabulate(grid)})
	wb.SheetNames = sheets
	return wb, nil
}

// grid returns the sheet's cells. Display values come from the cell's
// number format; numbers, booleans and dates are typed from the raw value.
func (xs *xlsxSheet) grid() ([][]core.Cell, error) {
	display, err := xs.f.GetRows(xs.name)
	if err != nil {
		return nil, err
	}
	raw, err := xs.f.GetRows(xs.name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	grid := make([][]core.Cell, len(display))
	for r, values := range display {
		cells := make([]core.Cell, len(values))
		for c, shown := range values {
			rawValue := shown
			if r < len(raw) && c < len(raw[r]) {
				rawValue = raw[r][c]
			}
			cell, err := xs.cell(c+1, r+1, shown, rawValue)
			if err != nil {
				return nil, err
			}
			cells[c] = cell
		}
		grid[r] = cells
	}
	return grid, nil
}

func (xs *xlsxSheet) cell(col, row int, shown, raw string) (core.Cell, error) {
	if raw == "" && shown == "" {
		return core.Text(""), nil
	}

	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return core.Cell{}, err
	}
	typ, err := xs.f.GetCellType(xs.name, ref)
	if err != nil {
		return core.Cell{}, err
	}

	switch typ {
	case excelize.CellTypeBool:
		return core.Bool(raw == "1" || strings.EqualFold(raw, "true")), nil

	case excelize.CellTypeDate:
		if t, ok := core.ParseDate(raw); ok && xs.dates {
			return core.Date(t), nil
		}
		return core.Text(shown), nil

	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return core.Text(shown), nil
		}
		if xs.dates && xs.isDateStyle(ref) {
			if t, err := excelize.ExcelDateToTime(n, xs.date1904); err == nil {
				return core.Date(t), nil
			}
		}
		return core.Number(n), nil

	default:
		return core.Text(shown), nil
	}
}

// isDateStyle reports whether the cell's number format displays a date.
func (xs *xlsxSheet) isDateStyle(ref string) bool {
	id, err := xs.f.GetCellStyle(xs.name, ref)
	if err != nil || id == 0 {
		return false
	}
	if v, ok := xs.styles[id]; ok {
		return v
	}

	isDate := false
	if style, err := xs.f.GetStyle(id); err == nil && style != nil {
		isDate = builtinDateFormats[style.NumFmt]
		if !isDate && style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		}
	}
	xs.styles[id] = isDate
	return isDate
}

// isDateFormatCode reports whether a custom number format code contains
// date or time tokens outside quoted literals and bracketed sections.
func isDateFormatCode(code string) bool {
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case ch == '"':
			inQuote = !inQuote
		case inQuote:
		case ch == '\\' || ch == '_' || ch == '*':
			i++ // next byte is a literal or padding
		case ch == '[':
			inBracket = true
		case ch == ']':
			inBracket = false
		case inBracket:
		default:
			switch ch | 0x20 { // lowercase ASCII letters
			case 'y', 'm', 'd', 'h', 's':
				return true
			}
		}
	}
	return false
}
