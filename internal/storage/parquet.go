package storage

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/ppiankov/sonarsweep/internal/models"
)

// ParquetRow is one repository in the Parquet export. Metrics a repository
// does not report are stored as nulls.
type ParquetRow struct {
	Repo                   string   `parquet:"repo,snappy"`
	Bugs                   *float64 `parquet:"bugs,optional,snappy"`
	Vulnerabilities        *float64 `parquet:"vulnerabilities,optional,snappy"`
	CodeSmells             *float64 `parquet:"code_smells,optional,snappy"`
	Coverage               *float64 `parquet:"coverage,optional,snappy"`
	TestCoverage           *float64 `parquet:"test_coverage,optional,snappy"`
	Ncloc                  *float64 `parquet:"ncloc,optional,snappy"`
	Complexity             *float64 `parquet:"complexity,optional,snappy"`
	DuplicatedLinesDensity *float64 `parquet:"duplicated_lines_density,optional,snappy"`
	SecurityHotspots       *float64 `parquet:"security_hotspots,optional,snappy"`
	ReliabilityRating      *float64 `parquet:"reliability_rating,optional,snappy"`
	SecurityRating         *float64 `parquet:"security_rating,optional,snappy"`
	SqaleRating            *float64 `parquet:"sqale_rating,optional,snappy"`
	TestPassed             *float64 `parquet:"test_passed,optional,snappy"`
	TestFailed             *float64 `parquet:"test_failed,optional,snappy"`
}

// ParquetRows converts the table records. Non-numeric cells become nulls.
func ParquetRows(table *models.MetricTable) []ParquetRow {
	if table == nil {
		return nil
	}

	rows := make([]ParquetRow, 0, len(table.Records))
	for _, rec := range table.Records {
		num := func(name string) *float64 {
			v, ok := rec.Float(name)
			if !ok {
				return nil
			}
			return &v
		}
		rows = append(rows, ParquetRow{
			Repo:                   rec.Name,
			Bugs:                   num(models.MetricBugs),
			Vulnerabilities:        num(models.MetricVulnerabilities),
			CodeSmells:             num(models.MetricCodeSmells),
			Coverage:               num(models.MetricCoverage),
			TestCoverage:           num(models.MetricTestCoverage),
			Ncloc:                  num(models.MetricNcloc),
			Complexity:             num(models.MetricComplexity),
			DuplicatedLinesDensity: num(models.MetricDuplicatedLinesDensity),
			SecurityHotspots:       num(models.MetricSecurityHotspots),
			ReliabilityRating:      num(models.MetricReliabilityRating),
			SecurityRating:         num(models.MetricSecurityRating),
			SqaleRating:            num(models.MetricSqaleRating),
			TestPassed:             num(models.MetricTestPassed),
			TestFailed:             num(models.MetricTestFailed),
		})
	}
	return rows
}

// ExportParquet writes the table to a Parquet file at path.
func ExportParquet(path string, table *models.MetricTable) error {
	if table.Len() == 0 {
		return ErrEmptyTable
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[ParquetRow](file)
	if _, err := writer.Write(ParquetRows(table)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}
