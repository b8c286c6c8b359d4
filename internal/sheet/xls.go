package sheet

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/extrame/xls"

	"github.com/JonMunkholm/salesmerge/internal/core"
	"github.com/JonMunkholm/salesmerge/internal/mojibake"
)

var errNoWorkbookStream = errors.New("no Workbook or Book stream in ole2 container")

// parseXLS reads the first sheet of a BIFF workbook.
//
// BIFF8 strings arrive UTF-16 decoded, or one rune per byte for compressed
// strings; the latter are Latin-1 mojibake when the file holds Big5, which
// the normalizer repairs. BIFF5 strings arrive as the raw codepage bytes and
// are decoded here, see biffText.
func parseXLS(data []byte, opts core.ParseOptions) (wb *core.Workbook, err error) {
	defer func() {
		// The BIFF reader panics on some truncated records.
		if r := recover(); r != nil {
			wb, err = nil, fmt.Errorf("open xls: malformed ole2 workbook: %v", r)
		}
	}()

	// The charset argument is not used by the ole2 reader.
	book, err := xls.OpenReader(bytes.NewReader(data), "")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if book == nil {
		return nil, fmt.Errorf("open xls: %w", errNoWorkbookStream)
	}

	text := newBIFFText(book.Is5ver, int(book.Codepage), opts.Codepage)

	names := make([]string, 0, book.NumSheets())
	for i := 0; i < book.NumSheets(); i++ {
		if s := book.GetSheet(i); s != nil {
			names = append(names, text.decode(s.Name))
		}
	}

	first := book.GetSheet(0)
	if first == nil {
		return &core.Workbook{SheetNames: names, Sheets: map[string]core.Sheet{}}, nil
	}

	var grid [][]core.Cell
	for r := 0; r <= int(first.MaxRow); r++ {
		row := first.Row(r)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]core.Cell, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells[c] = core.InferCell(text.decode(row.Col(c)), opts.DatesAsValues)
		}
		grid = append(grid, cells)
	}

	wb = singleSheet(core.Sheet{
		Name:     names[0],
		Rows:     tabulate(grid),
		Codepage: text.codepage.Number,
	})
	wb.SheetNames = names
	return wb, nil
}

// biffText decodes the 8-bit strings of BIFF5 workbooks.
type biffText struct {
	enabled  bool
	codepage mojibake.Codepage
}

func newBIFFText(biff5 bool, declared, hint int) biffText {
	if !biff5 {
		return biffText{codepage: mojibake.ResolveCodepage(mojibake.CodepageUTF16LE)}
	}
	return biffText{enabled: true, codepage: biffCodepage(declared, hint)}
}

// biffCodepage picks the codec for BIFF5 strings. A double-byte hint
// overrides whatever the file declares, since legacy exports routinely
// declare a Western or a vendor codepage while storing Big5. Otherwise the
// declared CODEPAGE record is used, legacy aliases included, and a missing,
// Unicode or unknown declaration falls back to the hint.
func biffCodepage(declared, hint int) mojibake.Codepage {
	if mojibake.IsDoubleByte(hint) {
		return mojibake.ResolveCodepage(hint)
	}
	switch declared {
	case 0, mojibake.CodepageUTF16LE, mojibake.CodepageUTF16BE, mojibake.CodepageUTF8:
		return mojibake.ResolveCodepage(hint)
	}
	cp := mojibake.ResolveCodepage(declared)
	if cp.Number == mojibake.CodepageUTF8 {
		return mojibake.ResolveCodepage(hint)
	}
	return cp
}

// decode converts raw codepage bytes held in s to UTF-8. Strings the codec
// rejects are returned unchanged for the normalizer to judge.
func (t biffText) decode(s string) string {
	if !t.enabled || s == "" {
		return s
	}
	out, err := t.codepage.Encoding.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return out
}
