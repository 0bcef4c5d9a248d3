package lifetable

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// The published pages carry two tables: a navigation header and the data
// table. Within the data table's grid, row 0 is the title, row 1 holds the
// column labels, rows 2 and 3 hold units and column numbers, and data
// starts at row 4. Each data row lays the male table in columns 0-6 and
// the female table in columns 8-14, with column 7 as a visual separator.
const (
	tableIndex   = 1
	headerRow    = 1
	firstDataRow = 4
	maleWidth    = 7
	femaleStart  = 8

	// missingCell is the placeholder the SSA uses for cells it leaves
	// blank, a single no-break space.
	missingCell = " "
)

// cell is one cleaned grid value. A missing cell has ok set to false.
type cell struct {
	text string
	ok   bool
}

// parseTable extracts the life-table grid from one page and reshapes it
// into a frame with age, sex and year columns followed by the table's
// actuarial columns. Rows missing any value are dropped independently per
// sex; any cell that is neither numeric nor the missing placeholder fails
// the parse.
func parseTable(r io.Reader, year int) (dataframe.DataFrame, error) {
	grid, err := extractGrid(r)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if len(grid) <= firstDataRow {
		return dataframe.DataFrame{}, fmt.Errorf("table has %d rows, want more than %d", len(grid), firstDataRow)
	}

	names, err := columnNames(grid[headerRow])
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	male := newHalf(names, year, "M")
	female := newHalf(names, year, "F")

	for i, row := range grid[firstDataRow:] {
		if blankRow(row) {
			continue
		}

		maleCells, err := parseCells(row, 0, maleWidth)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("row %d: %w", firstDataRow+i, err)
		}
		femaleCells, err := parseCells(row, femaleStart, femaleStart+maleWidth)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("row %d: %w", firstDataRow+i, err)
		}

		male.append(maleCells)
		female.append(femaleCells)
	}

	df := male.frame().RBind(female.frame())
	if df.Err != nil {
		return df, fmt.Errorf("combining sexes: %w", df.Err)
	}

	return df, nil
}

// extractGrid returns the text of every cell in the page's data table, one
// slice per table row.
func extractGrid(r io.Reader) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	table := doc.Find("table").Eq(tableIndex)
	if table.Length() == 0 {
		return nil, fmt.Errorf("page has no table at index %d", tableIndex)
	}

	var grid [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			row = append(row, cell.Text())
		})
		grid = append(grid, row)
	})

	return grid, nil
}

// columnNames cleans the labels of the male half of the header row, which
// both halves share. The age column is published as "x" and the life
// expectancy column has no label at all; both are renamed to the names
// the artifact uses.
func columnNames(row []string) ([]string, error) {
	if len(row) < maleWidth {
		return nil, fmt.Errorf("header has %d columns, want at least %d", len(row), maleWidth)
	}

	names := make([]string, maleWidth)
	for i := range names {
		name := strings.Join(strings.Fields(row[i]), " ")
		switch name {
		case "x":
			name = "age"
		case "":
			name = "ex"
		}
		names[i] = name
	}

	return names, nil
}

// blankRow reports whether every cell is empty once placeholders and
// whitespace are removed. The tables intersperse such rows as visual
// spacers between age groups.
func blankRow(row []string) bool {
	for _, c := range row {
		c = strings.ReplaceAll(c, missingCell, "")
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseCells cleans and validates the half-row spanning [from, to).
// Positions past the end of a short row count as missing, so a truncated
// half is dropped rather than misaligned.
func parseCells(row []string, from, to int) ([]cell, error) {
	cells := make([]cell, 0, to-from)
	for i := from; i < to; i++ {
		var c cell
		if i < len(row) {
			text := strings.ReplaceAll(row[i], "\n", "")
			text = strings.ReplaceAll(text, ",", "")
			if text != missingCell {
				text = strings.TrimSpace(text)
				if _, err := strconv.ParseFloat(text, 64); err != nil {
					return nil, fmt.Errorf("column %d: cannot parse %q as a number", i, row[i])
				}
				c = cell{text: text, ok: true}
			}
		}
		cells = append(cells, c)
	}

	return cells, nil
}

// half accumulates the complete rows for one sex before frame assembly.
type half struct {
	names []string
	sex   string
	year  int
	rows  [][]string
}

func newHalf(names []string, year int, sex string) *half {
	return &half{names: names, sex: sex, year: year}
}

// append keeps the row unless any of its cells is missing.
func (h *half) append(cells []cell) {
	vals := make([]string, len(cells))
	for i, c := range cells {
		if !c.ok {
			return
		}
		vals[i] = c.text
	}
	h.rows = append(h.rows, vals)
}

// frame builds the half's dataframe with columns age, sex, year and then
// the actuarial columns in table order. Numeric cells stay as their
// cleaned text so values round-trip into the artifact unchanged.
func (h *half) frame() dataframe.DataFrame {
	n := len(h.rows)

	ages := make([]string, n)
	sexes := make([]string, n)
	years := make([]int, n)
	actuarial := make([][]string, len(h.names)-1)
	for i := range actuarial {
		actuarial[i] = make([]string, n)
	}

	for r, row := range h.rows {
		ages[r] = row[0]
		sexes[r] = h.sex
		years[r] = h.year
		for c, v := range row[1:] {
			actuarial[c][r] = v
		}
	}

	cols := make([]series.Series, 0, len(h.names)+2)
	cols = append(cols,
		series.New(ages, series.String, h.names[0]),
		series.New(sexes, series.String, "sex"),
		series.New(years, series.Int, "year"),
	)
	for i, name := range h.names[1:] {
		cols = append(cols, series.New(actuarial[i], series.String, name))
	}

	return dataframe.New(cols...)
}
