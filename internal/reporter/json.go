package reporter

import (
	"encoding/json"
	"io"
	"time"

	"github.com/ppiankov/sonarsweep/internal/models"
)

// JSONReporter generates machine-readable JSON reports
type JSONReporter struct {
	writer io.Writer
	pretty bool
}

// NewJSONReporter creates a new JSON reporter
func NewJSONReporter(writer io.Writer, pretty bool) *JSONReporter {
	return &JSONReporter{
		writer: writer,
		pretty: pretty,
	}
}

type jsonRepository struct {
	Repo        string                  `json:"repo"`
	AnalysisKey string                  `json:"analysis_key,omitempty"`
	Scan        string                  `json:"scan"`
	Metrics     map[string]models.Value `json:"metrics"`
}

type jsonDocument struct {
	Timestamp    string              `json:"timestamp"`
	Summary      models.TableSummary `json:"summary"`
	Trend        *models.Trend       `json:"trend,omitempty"`
	Columns      []string            `json:"columns,omitempty"`
	Repositories []jsonRepository    `json:"repositories,omitempty"`
}

// Generate writes the run with one entry per repository. Only metrics of
// the table's columns are included.
func (r *JSONReporter) Generate(run *models.Run) error {
	doc := r.document(run)
	if run.Table != nil {
		doc.Columns = run.Table.Columns
		doc.Repositories = make([]jsonRepository, 0, run.Table.Len())
		for _, rec := range run.Table.Records {
			metrics := make(map[string]models.Value, len(rec.Metrics))
			for _, c := range run.Table.Columns {
				if v, ok := rec.Metrics[c]; ok {
					metrics[c] = v
				}
			}
			doc.Repositories = append(doc.Repositories, jsonRepository{
				Repo:        rec.Name,
				AnalysisKey: rec.AnalysisKey,
				Scan:        ScanStatus(rec),
				Metrics:     metrics,
			})
		}
	}
	return r.write(doc)
}

// GenerateSummaryOnly writes the summary and trend without per-repository rows.
func (r *JSONReporter) GenerateSummaryOnly(run *models.Run) error {
	return r.write(r.document(run))
}

func (r *JSONReporter) document(run *models.Run) jsonDocument {
	return jsonDocument{
		Timestamp: run.Timestamp.Format(time.RFC3339),
		Summary:   run.Summary,
		Trend:     run.Trend,
	}
}

func (r *JSONReporter) write(v interface{}) error {
	var data []byte
	var err error

	if r.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	if _, err := r.writer.Write(data); err != nil {
		return err
	}

	// Add trailing newline for terminal output
	_, err = r.writer.Write([]byte("\n"))
	return err
}
