package models

// MetricTable is the ordered set of repository records together with the
// normalized column list used when the table is persisted.
type MetricTable struct {
	Columns []string           `json:"columns"`
	Records []RepositoryRecord `json:"records"`
}

// NewMetricTable builds a table from records. Columns follow the canonical
// order and only those present in at least one record are kept; the repo
// column is always present. Metrics outside the canonical list are dropped.
func NewMetricTable(records []RepositoryRecord) *MetricTable {
	present := map[string]bool{ColumnRepo: true}
	for _, r := range records {
		for name := range r.Metrics {
			present[name] = true
		}
	}

	columns := make([]string, 0, len(CanonicalColumns))
	for _, c := range CanonicalColumns {
		if present[c] {
			columns = append(columns, c)
		}
	}

	return &MetricTable{
		Columns: columns,
		Records: records,
	}
}

// Len returns the number of rows.
func (t *MetricTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// HasColumns reports whether every named column is in the table.
func (t *MetricTable) HasColumns(names ...string) bool {
	for _, n := range names {
		if !t.HasColumn(n) {
			return false
		}
	}
	return true
}

// HasColumn reports whether a column is in the table.
func (t *MetricTable) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Row returns the cells of row i in column order. Missing cells are empty.
func (t *MetricTable) Row(i int) []string {
	rec := t.Records[i]
	row := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		if v, ok := rec.Get(c); ok {
			row[j] = v.String()
		}
	}
	return row
}

// Rows returns every row in column order.
func (t *MetricTable) Rows() [][]string {
	rows := make([][]string, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		rows = append(rows, t.Row(i))
	}
	return rows
}
