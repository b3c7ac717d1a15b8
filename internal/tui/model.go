package tui

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/sonarsweep/internal/aggregator"
	"github.com/ppiankov/sonarsweep/internal/models"
)

// mode represents the current UI interaction mode.
type mode int

const (
	modeNormal mode = iota
	modeSearch
	modeFilterStatus
)

const defaultTableHeight = 15

// Model is the Bubble Tea model for browsing one run's metric table.
type Model struct {
	// Data (immutable after init)
	run        *models.Run
	trend      *aggregator.TrendSummary
	columns    []string
	allRecords []models.RepositoryRecord

	// UI state
	table           table.Model
	searchInput     textinput.Model
	filteredRecords []models.RepositoryRecord
	filters         filterState
	sortBy          sortField
	mode            mode
	statusCursor    int
	width           int
	height          int
	statusMsg       string
	// clipboard is captured here for testing instead of writing to stdout
	clipboard string
}

// New creates a new TUI model for a run. trend may be nil.
func New(run *models.Run, trend *aggregator.TrendSummary) Model {
	var records []models.RepositoryRecord
	columns := models.CanonicalColumns
	if run.Table != nil {
		records = make([]models.RepositoryRecord, len(run.Table.Records))
		copy(records, run.Table.Records)
		columns = run.Table.Columns
	}

	sortRecords(records, sortByName)
	t := newTable(buildRows(records), defaultTableHeight)

	ti := textinput.New()
	ti.Placeholder = "search..."
	ti.CharLimit = 64

	return Model{
		run:             run,
		trend:           trend,
		columns:         columns,
		allRecords:      records,
		filteredRecords: records,
		table:           t,
		searchInput:     ti,
		sortBy:          sortByName,
		mode:            modeNormal,
		width:           80,
		height:          24,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		tableH := msg.Height - headerHeight - detailHeight - 3
		if tableH < 3 {
			tableH = 3
		}
		m.table.SetHeight(tableH)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	switch m.mode {
	case modeSearch:
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	default:
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeSearch:
		return m.handleSearchKey(msg)
	case modeFilterStatus:
		return m.handleFilterStatusKey(msg)
	default:
		return m.handleNormalKey(msg)
	}
}

func (m Model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Search):
		m.mode = modeSearch
		m.searchInput.Focus()
		return m, textinput.Blink
	case key.Matches(msg, keys.FilterStatus):
		m.mode = modeFilterStatus
		m.statusCursor = 0
		return m, nil
	case key.Matches(msg, keys.Sort):
		m.sortBy = (m.sortBy + 1) % sortField(sortFieldCount)
		m.rebuildTable()
		m.statusMsg = fmt.Sprintf("Sort: %s", sortFieldName(m.sortBy))
		return m, nil
	case key.Matches(msg, keys.Copy):
		m.copySelectedRecord()
		return m, nil
	case key.Matches(msg, keys.ClearFilter):
		m.filters = filterState{}
		m.searchInput.SetValue("")
		m.statusMsg = ""
		m.rebuildTable()
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filters.SearchText = m.searchInput.Value()
		m.mode = modeNormal
		m.searchInput.Blur()
		m.rebuildTable()
		return m, nil
	case "esc":
		m.mode = modeNormal
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) handleFilterStatusKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.statusCursor > 0 {
			m.statusCursor--
		}
	case "down", "j":
		if m.statusCursor < len(statusChoices) {
			m.statusCursor++
		}
	case "enter":
		if m.statusCursor == 0 {
			m.filters.Status = ""
		} else {
			m.filters.Status = statusChoices[m.statusCursor-1]
		}
		m.mode = modeNormal
		m.rebuildTable()
		if m.filters.Status != "" {
			m.statusMsg = fmt.Sprintf("Filter: %s", m.filters.Status)
		} else {
			m.statusMsg = ""
		}
	case "esc":
		m.mode = modeNormal
	}
	return m, nil
}

func (m *Model) rebuildTable() {
	filtered := applyFilters(m.allRecords, m.filters)
	sortRecords(filtered, m.sortBy)
	m.filteredRecords = filtered
	m.table.SetRows(buildRows(filtered))
	if m.table.Cursor() >= len(filtered) {
		m.table.SetCursor(0)
	}
}

func (m *Model) selectedRecord() *models.RepositoryRecord {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.filteredRecords) {
		return nil
	}
	return &m.filteredRecords[cursor]
}

// copySelectedRecord writes the selected row as CSV to the clipboard via OSC 52.
func (m *Model) copySelectedRecord() {
	rec := m.selectedRecord()
	if rec == nil {
		m.statusMsg = "Nothing to copy"
		return
	}
	cells := make([]string, len(m.columns))
	for i, col := range m.columns {
		if v, ok := rec.Get(col); ok {
			cells[i] = v.String()
		}
	}
	text := strings.Join(cells, ",")
	m.clipboard = text
	m.statusMsg = "Copied!"
	fmt.Printf("\033]52;c;%s\a", base64.StdEncoding.EncodeToString([]byte(text)))
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	var sparkline []int
	if m.trend != nil {
		sparkline = m.trend.DefectSparkline
	}
	b.WriteString(renderHeader(m.run, sparkline, m.width))
	b.WriteString("\n")

	if m.mode == modeSearch {
		b.WriteString(styleSearchPrompt.Render("/ "))
		b.WriteString(m.searchInput.View())
		b.WriteString("\n")
	}

	if m.mode == modeFilterStatus {
		b.WriteString(m.renderStatusFilter())
		b.WriteString("\n")
	}

	b.WriteString(m.table.View())
	b.WriteString("\n")

	b.WriteString(renderDetail(m.selectedRecord(), m.columns, m.width))
	b.WriteString("\n")

	b.WriteString(m.renderFooter())

	return b.String()
}

func (m *Model) renderStatusFilter() string {
	var b strings.Builder
	b.WriteString("Filter by scan status:\n")

	options := append([]string{"All"}, statusChoices...)
	for i, opt := range options {
		cursor := "  "
		if i == m.statusCursor {
			cursor = "> "
		}
		b.WriteString(fmt.Sprintf("%s%s\n", cursor, opt))
	}
	return b.String()
}

func (m *Model) renderFooter() string {
	left := "q:quit  /:search  f:status  s:sort  c:copy  esc:clear"
	right := fmt.Sprintf("%d/%d repositories", len(m.filteredRecords), len(m.allRecords))

	if m.statusMsg != "" {
		right = m.statusMsg + "  " + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return styleFooter.Render(left + strings.Repeat(" ", gap) + right)
}

// Run starts the Bubble Tea program for the browse command.
func Run(run *models.Run, trend *aggregator.TrendSummary) error {
	p := tea.NewProgram(New(run, trend), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
