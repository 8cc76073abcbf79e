// Package ingest loads CSV files into the engine's RawRow shape. The
// header-to-column-index mapping and row-by-row read loop follow the
// teacher's CSV ingestion style (originally used to load bank
// transaction CSVs into a database batch); here it builds in-memory
// RawRow maps instead of SQL insert batches, since the engine takes
// its input as data rather than reading it itself.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"reconciliation-engine/internal/types"
)

// LoadCSV reads a CSV file's header and rows into RawRow-shaped maps
// keyed by the lower-cased, trimmed header name, mirroring the
// teacher's colMap construction. Every cell is a string; ParseAmount
// and date parsing happen later during normalization.
func LoadCSV(r io.Reader) ([]types.RawRow, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: failed to read header: %w", err)
	}

	columns := make([]string, len(header))
	for i, col := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(col))
	}

	var rows []types.RawRow
	rowNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("ingest: row %d: %w", rowNum+1, err)
		}
		rowNum++

		row := make(types.RawRow, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	return rows, columns, nil
}
