package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ppiankov/sonarsweep/internal/models"
)

// ErrEmptyTable is returned when asked to persist a table without rows.
var ErrEmptyTable = errors.New("no records to write")

// WriteCSV writes the table to path, replacing any existing file. The
// header is the table's column list; missing cells are empty.
func WriteCSV(path string, table *models.MetricTable) error {
	if table.Len() == 0 {
		return ErrEmptyTable
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := EncodeCSV(f, table); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// EncodeCSV writes the table as CSV to w.
func EncodeCSV(w io.Writer, table *models.MetricTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(table.Rows()); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// ReadCSV loads a table written by WriteCSV. Header columns outside the
// canonical list are ignored; a header without the repo column is an error.
func ReadCSV(path string) (*models.MetricTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return DecodeCSV(f)
}

// DecodeCSV parses CSV produced by EncodeCSV. The CSV does not carry the
// scan outcome, so records with at least one server measure count as
// scanned. Test columns alone do not.
func DecodeCSV(r io.Reader) (*models.MetricTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty table: no header")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	repoIdx := -1
	present := make(map[string]bool, len(header))
	for i, name := range header {
		if name == models.ColumnRepo {
			repoIdx = i
		}
		present[name] = true
	}
	if repoIdx < 0 {
		return nil, fmt.Errorf("header has no %q column", models.ColumnRepo)
	}

	var records []models.RepositoryRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec := models.RepositoryRecord{Metrics: make(map[string]models.Value)}
		for i, cell := range row {
			if i >= len(header) {
				break
			}
			name := header[i]
			switch {
			case i == repoIdx:
				rec.Name = cell
			case cell == "" || !models.IsCanonicalColumn(name):
			default:
				rec.Metrics[name] = models.String(cell)
			}
		}
		rec.ScanSucceeded = hasMeasure(rec.Metrics)
		records = append(records, rec)
	}

	columns := make([]string, 0, len(header))
	for _, c := range models.CanonicalColumns {
		if present[c] {
			columns = append(columns, c)
		}
	}

	return &models.MetricTable{Columns: columns, Records: records}, nil
}

func hasMeasure(metrics map[string]models.Value) bool {
	for _, m := range models.MeasureMetrics {
		if _, ok := metrics[m]; ok {
			return true
		}
	}
	return false
}
