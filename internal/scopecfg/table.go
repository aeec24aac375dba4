package scopecfg

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/xuri/excelize/v2"
)

const (
	// maxTableRows caps how many data rows feed the estimation prompt.
	maxTableRows = 100

	// wideColumnCount is the column count above which the keyword filter
	// kicks in.
	wideColumnCount = 10
)

// columnKeywords select estimation-relevant columns from wide sheets.
var columnKeywords = []string{
	"epic", "feature", "requirement", "size",
	"small", "medium", "large", "dev hours", "hours",
}

// LoadTable reads the scope config sheet and renders it as aligned text
// suitable for inclusion in an estimation prompt.
//
// The first row is treated as the header. Data is capped at maxTableRows.
// Sheets wider than wideColumnCount are reduced to columns whose header
// contains an estimation keyword; if no header matches, all columns are
// kept.
func LoadTable(path string) (string, error) {
	rows, err := readSheet(path)
	if err != nil {
		return "", err
	}

	if len(rows) == 0 {
		return "", nil
	}

	header := rows[0]
	data := rows[1:]
	if len(data) > maxTableRows {
		data = data[:maxTableRows]
	}

	if len(header) > wideColumnCount {
		if keep := keywordColumns(header); len(keep) > 0 {
			header = selectColumns(header, keep)
			filtered := make([][]string, len(data))
			for i, row := range data {
				filtered[i] = selectColumns(row, keep)
			}
			data = filtered
		}
	}

	return render(header, data), nil
}

// SizeHours derives a size-to-hours lookup from the scope sheet.
//
// The first header containing "size" becomes the key column and the
// first containing "hour" the value column; keys are lowercased. Sheets
// missing either column yield an empty map, as do rows whose hours cell
// does not parse as a number.
func SizeHours(path string) (map[string]float64, error) {
	rows, err := readSheet(path)
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	if len(rows) == 0 {
		return out, nil
	}

	sizeCol, hoursCol := -1, -1
	for i, col := range rows[0] {
		lower := strings.ToLower(col)
		if sizeCol < 0 && strings.Contains(lower, "size") {
			sizeCol = i
		}
		if hoursCol < 0 && strings.Contains(lower, "hour") {
			hoursCol = i
		}
	}
	if sizeCol < 0 || hoursCol < 0 {
		return out, nil
	}

	for _, row := range rows[1:] {
		if sizeCol >= len(row) || hoursCol >= len(row) {
			continue
		}
		size := strings.ToLower(strings.TrimSpace(row[sizeCol]))
		if size == "" {
			continue
		}
		hours, err := strconv.ParseFloat(strings.TrimSpace(row[hoursCol]), 64)
		if err != nil {
			continue
		}
		out[size] = hours
	}

	return out, nil
}

// readSheet dispatches on the file extension.
func readSheet(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".xlsx":
		return readXLSX(path)
	case ".xls":
		return nil, fmt.Errorf("legacy .xls is not supported, convert the scope config to .xlsx or .csv")
	default:
		return nil, fmt.Errorf("unsupported scope config type %q", filepath.Ext(path))
	}
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scope config: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("xlsx has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read xlsx sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// keywordColumns returns indexes of headers containing an estimation keyword.
func keywordColumns(header []string) []int {
	var keep []int
	for i, col := range header {
		lower := strings.ToLower(col)
		for _, keyword := range columnKeywords {
			if strings.Contains(lower, keyword) {
				keep = append(keep, i)
				break
			}
		}
	}
	return keep
}

// selectColumns projects a row onto the kept column indexes.
// Short rows yield empty cells rather than panics.
func selectColumns(row []string, keep []int) []string {
	out := make([]string, len(keep))
	for i, idx := range keep {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out
}

// render produces an aligned plain-text table.
func render(header []string, data [][]string) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range data {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()

	return strings.TrimRight(buf.String(), "\n")
}
