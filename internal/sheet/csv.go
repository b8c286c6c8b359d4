package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/salesmerge/internal/core"
	"github.com/JonMunkholm/salesmerge/internal/mojibake"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// parseCSV reads a delimited text file as a single sheet named "Sheet1".
func parseCSV(data []byte, opts core.ParseOptions) (*core.Workbook, error) {
	text, cp, err := decodeText(data, opts.Codepage)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	grid := make([][]core.Cell, len(records))
	for i, rec := range records {
		cells := make([]core.Cell, len(rec))
		for j, v := range rec {
			cells[j] = core.InferCell(v, opts.DatesAsValues)
		}
		grid[i] = cells
	}

	return singleSheet(core.Sheet{
		Name:     "Sheet1",
		Rows:     tabulate(grid),
		Codepage: cp,
	}), nil
}

// decodeText returns the file as UTF-8 and the codepage it was read with.
//
// A byte order mark decides the encoding. Without one, valid UTF-8 is used
// as is and anything else is decoded with the hinted codepage (Big5 unless
// configured otherwise). Bytes the codepage cannot map become U+FFFD.
func decodeText(data []byte, hint int) (string, int, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8), bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return "", 0, fmt.Errorf("encoding error: %w", err)
		}
		cp := mojibake.CodepageUTF8
		switch {
		case bytes.HasPrefix(data, bomUTF16LE):
			cp = mojibake.CodepageUTF16LE
		case bytes.HasPrefix(data, bomUTF16BE):
			cp = mojibake.CodepageUTF16BE
		}
		return string(out), cp, nil

	case utf8.Valid(data):
		return string(data), mojibake.CodepageUTF8, nil
	}

	cp := mojibake.ResolveCodepage(hint)
	out, err := cp.Encoding.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "\uFFFD"), mojibake.CodepageUTF8, nil
	}
	return strings.ToValidUTF8(string(out), "\uFFFD"), cp.Number, nil
}

// sniffDelimiter picks tab when the first line has tabs and no commas.
func sniffDelimiter(text string) rune {
	line, _, _ := strings.Cut(text, "\n")
	if strings.Contains(line, "\t") && !strings.Contains(line, ",") {
		return '\t'
	}
	return ','
}
