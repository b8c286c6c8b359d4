package sheet

import (
	"strconv"

	"github.com/JonMunkholm/salesmerge/internal/core"
)

// emptyHeader names columns whose header cell is blank.
const emptyHeader = "__EMPTY"

// tabulate turns a cell grid into keyed rows.
//
// The first non-blank row is the header row. Blank headers become
// __EMPTY, __EMPTY_1, ... and repeated headers get _1, _2, ... suffixes.
// Blank data rows are skipped. Every data row carries every header; cells
// past the end of a short row are empty text.
func tabulate(grid [][]core.Cell) []core.Row {
	start := -1
	width := 0
	for i, cells := range grid {
		if start < 0 && !isBlankRow(cells) {
			start = i
		}
		width = max(width, len(cells))
	}
	if start < 0 {
		return nil
	}

	headers := headerNames(grid[start], width)

	rows := make([]core.Row, 0, len(grid)-start-1)
	for _, cells := range grid[start+1:] {
		if isBlankRow(cells) {
			continue
		}
		row := core.NewRow(width)
		for col, h := range headers {
			c := core.Text("")
			if col < len(cells) && !cells[col].IsEmpty() {
				c = cells[col]
			}
			row.Set(h, c)
		}
		rows = append(rows, row)
	}
	return rows
}

// headerNames makes unique header names for width columns.
func headerNames(cells []core.Cell, width int) []string {
	names := make([]string, width)
	counts := make(map[string]int, width)

	for col := range names {
		val := ""
		if col < len(cells) {
			val = cells[col].String()
		}
		if val == "" {
			val = emptyHeader
		}

		name := val
		if n, seen := counts[val]; !seen {
			counts[val] = 1
		} else {
			for {
				name = val + "_" + strconv.Itoa(n)
				n++
				if _, taken := counts[name]; !taken {
					break
				}
			}
			counts[val] = n
			counts[name] = 1
		}
		names[col] = name
	}
	return names
}

func isBlankRow(cells []core.Cell) bool {
	for _, c := range cells {
		if c.Kind != core.CellEmpty && !(c.Kind == core.CellText && c.Text == "") {
			return false
		}
	}
	return true
}
