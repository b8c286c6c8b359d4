package sheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/salesmerge/internal/core"
)

// MergedSheetName is the name of the only sheet in an exported workbook.
const MergedSheetName = "Merged Data"

// Extension is the extension of exported files.
const Extension = ".xlsx"

// dateTimeNumFmt is the built-in "m/d/yy h:mm" format; dateNumFmt is "m/d/yy".
const (
	dateNumFmt     = 14
	dateTimeNumFmt = 22
)

// Writer exports merged rows as an .xlsx workbook. It implements core.Exporter.
type Writer struct {
	SheetName string
}

// NewWriter creates a writer that names its sheet MergedSheetName.
func NewWriter() *Writer {
	return &Writer{SheetName: MergedSheetName}
}

// Export writes rows to w. The header row is the union of row keys in
// first-seen order; a row without a column gets a blank cell there.
func (wr *Writer) Export(w io.Writer, rows []core.Row) (err error) {
	name := wr.SheetName
	if name == "" {
		name = MergedSheetName
	}

	f := excelize.NewFile()
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: dateNumFmt})
	if err != nil {
		return fmt.Errorf("date style: %w", err)
	}
	dateTimeStyle, err := f.NewStyle(&excelize.Style{NumFmt: dateTimeNumFmt})
	if err != nil {
		return fmt.Errorf("date style: %w", err)
	}

	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}

	cols := core.Columns(rows)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	values := make([]any, len(cols))
	for i, row := range rows {
		for j, col := range cols {
			c, ok := row.Get(col)
			if !ok {
				values[j] = nil
				continue
			}
			values[j] = cellValue(c, dateStyle, dateTimeStyle)
		}
		ref, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(ref, values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func cellValue(c core.Cell, dateStyle, dateTimeStyle int) any {
	switch c.Kind {
	case core.CellText:
		return c.Text
	case core.CellNumber:
		return c.Number
	case core.CellBool:
		return c.Bool
	case core.CellDate:
		style := dateStyle
		if c.Time.Hour() != 0 || c.Time.Minute() != 0 || c.Time.Second() != 0 {
			style = dateTimeStyle
		}
		return excelize.Cell{StyleID: style, Value: c.Time}
	default:
		return nil
	}
}

// EnsureExtension appends .xlsx unless name already ends with it.
func EnsureExtension(name string) string {
	if strings.HasSuffix(name, Extension) {
		return name
	}
	return name + Extension
}
