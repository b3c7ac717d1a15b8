package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ppiankov/sonarsweep/internal/aggregator"
	"github.com/ppiankov/sonarsweep/internal/models"
)

func testRecords() []models.RepositoryRecord {
	return []models.RepositoryRecord{
		{
			Name:          "web",
			AnalysisKey:   "web",
			ScanSucceeded: true,
			Metrics: map[string]models.Value{
				models.MetricBugs:            models.String("2"),
				models.MetricVulnerabilities: models.String("0"),
				models.MetricCodeSmells:      models.String("40"),
				models.MetricCoverage:        models.String("72.5"),
				models.MetricNcloc:           models.String("1200"),
			},
		},
		{
			Name:          "api",
			AnalysisKey:   "api",
			ScanSucceeded: true,
			UsedFallback:  true,
			Metrics: map[string]models.Value{
				models.MetricBugs:            models.String("5"),
				models.MetricVulnerabilities: models.String("1"),
				models.MetricCodeSmells:      models.String("3"),
				models.MetricTestCoverage:    models.Number(30.5),
				models.MetricNcloc:           models.String("800"),
			},
		},
		{Name: "broken"},
	}
}

func testRun() *models.Run {
	table := models.NewMetricTable(testRecords())
	return &models.Run{
		Timestamp: time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC),
		Table:     table,
		Summary:   aggregator.Summarize(table),
	}
}

func names(records []models.RepositoryRecord) string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return strings.Join(out, ",")
}

// --- Filter tests ---

func TestApplyFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter filterState
		want   string
	}{
		{"no filter", filterState{}, "web,api,broken"},
		{"status failed", filterState{Status: "failed"}, "broken"},
		{"status fallback", filterState{Status: "fallback"}, "api"},
		{"search", filterState{SearchText: "we"}, "web"},
		{"search case insensitive", filterState{SearchText: "API"}, "api"},
		{"combined", filterState{Status: "ok", SearchText: "api"}, ""},
		{"no match", filterState{SearchText: "nonexistent"}, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := names(applyFilters(testRecords(), tt.filter)); got != tt.want {
				t.Errorf("applyFilters = %q, want %q", got, tt.want)
			}
		})
	}
}

// --- Sort tests ---

func TestSortRecords(t *testing.T) {
	tests := []struct {
		field sortField
		want  string
	}{
		{sortByName, "api,broken,web"},
		{sortByDefects, "web,api,broken"},
		{sortByBugs, "api,web,broken"},
		{sortByVulnerabilities, "api,web,broken"},
		{sortByCodeSmells, "web,api,broken"},
		{sortByCoverage, "api,web,broken"},
		{sortByNcloc, "web,api,broken"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(sortFieldName(tt.field), func(t *testing.T) {
			records := testRecords()
			sortRecords(records, tt.field)
			if got := names(records); got != tt.want {
				t.Errorf("sortRecords(%s) = %q, want %q", sortFieldName(tt.field), got, tt.want)
			}
		})
	}
}

func TestSortFieldName(t *testing.T) {
	if sortFieldName(sortByCoverage) != "coverage" {
		t.Errorf("unexpected name %q", sortFieldName(sortByCoverage))
	}
	if sortFieldName(sortField(99)) != "unknown" {
		t.Error("out of range field should be unknown")
	}
}

// --- Table tests ---

func TestBuildRows(t *testing.T) {
	records := testRecords()
	rows := buildRows(records)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	web := rows[0]
	if web[0] != "web" || web[1] != "ok" || web[2] != "2" || web[5] != "72.5%" || web[6] != "1200" {
		t.Errorf("unexpected web row: %v", web)
	}
	if rows[1][1] != "fallback" || rows[1][5] != "30.5%" {
		t.Errorf("unexpected api row: %v", rows[1])
	}
	for i, c := range rows[2][2:] {
		if c != "-" {
			t.Errorf("broken column %d = %q, want -", i+2, c)
		}
	}
}

func TestBuildRowsEmpty(t *testing.T) {
	if rows := buildRows(nil); len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

// --- Header and detail tests ---

func TestRenderHeader(t *testing.T) {
	out := renderHeader(testRun(), nil, 100)
	for _, frag := range []string{"sonarsweep", "Repos: 3 (2 scanned)", "Defects: 51", "B:7", "Coverage: 51.5%"} {
		if !strings.Contains(out, frag) {
			t.Errorf("expected header to contain %q\n%s", frag, out)
		}
	}
	if strings.Contains(out, "Trend:") {
		t.Error("no sparkline expected without trend data")
	}
}

func TestRenderHeaderWithTrend(t *testing.T) {
	run := testRun()
	run.Trend = &models.Trend{Direction: models.TrendImproving, ChangePercent: -12.5}
	out := renderHeader(run, []int{60, 55, 51}, 100)
	if !strings.Contains(out, "↓ -12.5%") {
		t.Errorf("expected trend indicator in header\n%s", out)
	}
	if !strings.Contains(out, "Trend:") || !strings.Contains(out, "[60→51]") {
		t.Errorf("expected sparkline in header\n%s", out)
	}
}

func TestRenderDetailNil(t *testing.T) {
	if out := renderDetail(nil, nil, 80); !strings.Contains(out, "No repository selected") {
		t.Errorf("unexpected detail: %s", out)
	}
}

func TestRenderDetailShowsMetrics(t *testing.T) {
	run := testRun()
	rec := run.Table.Records[0]
	rec.Duration = 1500 * time.Millisecond
	out := renderDetail(&rec, run.Table.Columns, 120)
	for _, frag := range []string{"web", "ok", "key: web", "took: 1.5s", "code_smells:", "40", "coverage:", "72.5", "ncloc:"} {
		if !strings.Contains(out, frag) {
			t.Errorf("expected detail to contain %q\n%s", frag, out)
		}
	}
	if strings.Contains(out, "test_coverage:") {
		t.Error("metrics the record lacks should be omitted")
	}
}

func TestRenderDetailNoMetrics(t *testing.T) {
	rec := models.RepositoryRecord{Name: "broken"}
	out := renderDetail(&rec, models.CanonicalColumns, 80)
	if !strings.Contains(out, "failed") || !strings.Contains(out, "No metrics") {
		t.Errorf("unexpected detail: %s", out)
	}
}

func TestRenderSparkline(t *testing.T) {
	if renderSparkline(nil) != "" {
		t.Error("empty input should render empty")
	}
	if got := renderSparkline([]int{5, 5, 5}); !strings.HasPrefix(got, "▅▅▅") {
		t.Errorf("constant series: %q", got)
	}
	got := renderSparkline([]int{0, 7})
	if !strings.HasPrefix(got, "▁█") || !strings.HasSuffix(got, "[0→7]") {
		t.Errorf("increasing series: %q", got)
	}
}

// --- Model state tests ---

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestModelInit(t *testing.T) {
	if cmd := New(testRun(), nil).Init(); cmd != nil {
		t.Error("Init should return nil cmd")
	}
}

func TestModelInitialSort(t *testing.T) {
	m := New(testRun(), nil)
	if got := names(m.filteredRecords); got != "api,broken,web" {
		t.Errorf("expected name order, got %q", got)
	}
	if sel := m.selectedRecord(); sel == nil || sel.Name != "api" {
		t.Errorf("expected api selected, got %v", sel)
	}
}

func TestModelEmptyRun(t *testing.T) {
	m := New(&models.Run{Timestamp: time.Now()}, nil)
	if m.selectedRecord() != nil {
		t.Error("nothing should be selected")
	}
	if !strings.Contains(m.View(), "0/0 repositories") {
		t.Error("expected empty footer count")
	}
}

func TestModelWindowResize(t *testing.T) {
	updated, _ := New(testRun(), nil).Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	model := updated.(Model)
	if model.width != 120 || model.height != 40 {
		t.Errorf("expected 120x40, got %dx%d", model.width, model.height)
	}

	updated, _ = model.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	if updated.(Model).width != 40 {
		t.Error("small resize not applied")
	}
}

func TestModelQuit(t *testing.T) {
	_, cmd := New(testRun(), nil).Update(runeKey('q'))
	if cmd == nil {
		t.Error("expected quit command, got nil")
	}
}

func TestModelCycleSort(t *testing.T) {
	m := New(testRun(), nil)
	updated, _ := m.Update(runeKey('s'))
	model := updated.(Model)
	if model.sortBy != sortByDefects {
		t.Errorf("expected sort by defects, got %d", model.sortBy)
	}
	if !strings.Contains(model.statusMsg, "defects") {
		t.Errorf("expected status to mention sort field, got %q", model.statusMsg)
	}
	if got := names(model.filteredRecords); got != "web,api,broken" {
		t.Errorf("unexpected order %q", got)
	}

	for i := 1; i < sortFieldCount; i++ {
		updated, _ = updated.(Model).Update(runeKey('s'))
	}
	if updated.(Model).sortBy != sortByName {
		t.Error("sort should wrap back to name")
	}
}

func TestModelSearch(t *testing.T) {
	updated, _ := New(testRun(), nil).Update(runeKey('/'))
	model := updated.(Model)
	if model.mode != modeSearch {
		t.Fatalf("expected modeSearch, got %d", model.mode)
	}
	if !strings.Contains(model.View(), "/ ") {
		t.Error("expected search prompt in view")
	}

	model.searchInput.SetValue("web")
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(Model)
	if model.mode != modeNormal || model.filters.SearchText != "web" {
		t.Fatalf("unexpected state: mode %d search %q", model.mode, model.filters.SearchText)
	}
	if got := names(model.filteredRecords); got != "web" {
		t.Errorf("expected only web, got %q", got)
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEscape})
	model = updated.(Model)
	if model.filters.SearchText != "" || len(model.filteredRecords) != 3 {
		t.Errorf("esc should clear the search, got %q with %d rows", model.filters.SearchText, len(model.filteredRecords))
	}
}

func TestModelSearchEscape(t *testing.T) {
	m := New(testRun(), nil)
	m.mode = modeSearch
	m.searchInput.SetValue("abc")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	model := updated.(Model)
	if model.mode != modeNormal || model.searchInput.Value() != "" {
		t.Errorf("expected normal mode with empty input, got %d %q", model.mode, model.searchInput.Value())
	}
}

func TestModelFilterStatus(t *testing.T) {
	updated, _ := New(testRun(), nil).Update(runeKey('f'))
	model := updated.(Model)
	if model.mode != modeFilterStatus {
		t.Fatalf("expected modeFilterStatus, got %d", model.mode)
	}
	if out := model.View(); !strings.Contains(out, "Filter by scan status:") || !strings.Contains(out, "All") {
		t.Error("expected status list in view")
	}

	for i := 0; i < 5; i++ {
		updated, _ = updated.(Model).Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	model = updated.(Model)
	if model.statusCursor != len(statusChoices) {
		t.Fatalf("cursor should stop at last choice, got %d", model.statusCursor)
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(Model)
	if model.filters.Status != "failed" || model.statusMsg != "Filter: failed" {
		t.Errorf("unexpected filter %q status %q", model.filters.Status, model.statusMsg)
	}
	if got := names(model.filteredRecords); got != "broken" {
		t.Errorf("expected only broken, got %q", got)
	}
}

func TestModelFilterStatusNavigateAndEscape(t *testing.T) {
	m := New(testRun(), nil)
	m.mode = modeFilterStatus

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	model := updated.(Model)
	if model.statusCursor != 0 {
		t.Errorf("cursor should stay at 0, got %d", model.statusCursor)
	}

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if updated.(Model).filters.Status != "" {
		t.Error("All should leave the status filter empty")
	}

	model.mode = modeFilterStatus
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyEscape})
	if updated.(Model).mode != modeNormal {
		t.Error("esc should leave the filter menu")
	}
}

func TestModelClearFilter(t *testing.T) {
	m := New(testRun(), nil)
	m.filters = filterState{Status: "ok"}
	m.statusMsg = "Filter: ok"
	m.rebuildTable()
	if len(m.filteredRecords) != 1 {
		t.Fatalf("expected 1 ok record, got %d", len(m.filteredRecords))
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	model := updated.(Model)
	if model.filters.Status != "" || model.statusMsg != "" {
		t.Errorf("expected filters cleared, got %+v %q", model.filters, model.statusMsg)
	}
	if len(model.filteredRecords) != 3 {
		t.Errorf("expected all 3 records after clear, got %d", len(model.filteredRecords))
	}
}

func TestModelCopy(t *testing.T) {
	m := New(testRun(), nil)
	m.copySelectedRecord()
	if m.statusMsg != "Copied!" {
		t.Fatalf("unexpected status %q", m.statusMsg)
	}
	if m.clipboard != "api,5,1,3,,30.5,800" {
		t.Errorf("unexpected clipboard %q", m.clipboard)
	}
}

func TestModelCopyNoSelection(t *testing.T) {
	m := New(testRun(), nil)
	m.filteredRecords = nil
	m.table.SetRows(nil)

	m.copySelectedRecord()
	if m.statusMsg != "Nothing to copy" {
		t.Errorf("expected 'Nothing to copy', got %q", m.statusMsg)
	}
}

func TestModelView(t *testing.T) {
	m := New(testRun(), nil)
	m.width = 100
	out := m.View()
	for _, frag := range []string{"sonarsweep", "q:quit", "3/3 repositories", "Repository", "key: api"} {
		if !strings.Contains(out, frag) {
			t.Errorf("expected view to contain %q", frag)
		}
	}
}

func TestModelViewWithTrend(t *testing.T) {
	trend := &aggregator.TrendSummary{RunsAnalyzed: 3, TimeRange: "Last 2 days", DefectSparkline: []int{70, 60, 51}}
	if out := New(testRun(), trend).View(); !strings.Contains(out, "Trend:") {
		t.Error("expected sparkline in view with trend data")
	}
}

func TestStyles(t *testing.T) {
	for _, s := range []string{"ok", "fallback", "failed", "unknown"} {
		_ = statusStyle(s).Render("x")
	}
	for _, d := range []string{models.TrendImproving, models.TrendDegrading, models.TrendStable} {
		_ = trendStyle(d).Render("x")
	}
}

func TestModelDoesNotMutateRun(t *testing.T) {
	run := testRun()
	m := New(run, nil)
	m.filters = filterState{Status: "failed"}
	m.rebuildTable()

	if len(m.allRecords) != 3 {
		t.Errorf("allRecords mutated: %d", len(m.allRecords))
	}
	if names(run.Table.Records) != "web,api,broken" {
		t.Errorf("run records reordered: %s", names(run.Table.Records))
	}
}
