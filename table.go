package letter2pdf

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Required column names of a message export. Order in the file is irrelevant.
const (
	ColumnSubject   = "Subject"
	ColumnContent   = "Content"
	ColumnCreatedAt = "Created_At"
)

// RequiredColumns lists the columns every export must carry.
var RequiredColumns = []string{ColumnSubject, ColumnContent, ColumnCreatedAt}

const utf8BOM = "\ufeff"

// ReadRecords parses a header-bearing CSV export. Columns are located by exact
// name; a missing required column fails the whole table with ErrMissingColumns.
// Every data row takes the next index, so output names stay aligned with row
// positions. Short rows read as empty cells.
func ReadRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	cols, err := locateColumns(header)
	if err != nil {
		return nil, err
	}

	var records []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(records)+1, err)
		}
		records = append(records, Record{
			Index:     len(records),
			Subject:   cell(row, cols[ColumnSubject]),
			Body:      cell(row, cols[ColumnContent]),
			CreatedAt: cell(row, cols[ColumnCreatedAt]),
		})
	}
	return records, nil
}

// ReadRecordsFile opens path and parses it with ReadRecords.
func ReadRecordsFile(path string) ([]Record, error) {
	f, err := os.Open(path) // #nosec G304 -- input path is operator-provided
	if err != nil {
		return nil, fmt.Errorf("opening input table: %w", err)
	}
	defer func() { _ = f.Close() }()

	records, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// locateColumns maps each required column to its position. The first
// occurrence of a duplicated name wins.
func locateColumns(header []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		if _, seen := pos[name]; !seen {
			pos[name] = i
		}
	}

	var missing []string
	cols := make(map[string]int, len(RequiredColumns))
	for _, name := range RequiredColumns {
		i, ok := pos[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[name] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return cols, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
