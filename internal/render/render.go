// Package render draws the report and summary chart images from a
// persisted metric table.
package render

import (
	"fmt"
	"image/color"
	"os"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/ppiankov/sonarsweep/internal/logging"
	"github.com/ppiankov/sonarsweep/internal/models"
	"github.com/ppiankov/sonarsweep/internal/storage"
)

// Default output files, relative to the working directory.
const (
	DefaultReportPath  = "sonar_report.png"
	DefaultSummaryPath = "sonar_summary.png"
)

// Options sets the image sizes.
type Options struct {
	ReportWidth   vg.Length
	ReportHeight  vg.Length
	SummaryWidth  vg.Length
	SummaryHeight vg.Length
}

// DefaultOptions mirrors a 12x10 inch report and a 10x6 inch summary.
func DefaultOptions() Options {
	return Options{
		ReportWidth:   12 * vg.Inch,
		ReportHeight:  10 * vg.Inch,
		SummaryWidth:  10 * vg.Inch,
		SummaryHeight: 6 * vg.Inch,
	}
}

// Renderer writes chart images.
type Renderer struct {
	opts Options
	log  *logging.Logger
}

// New creates a Renderer. Zero sizes fall back to DefaultOptions.
func New(opts Options, log *logging.Logger) *Renderer {
	def := DefaultOptions()
	if opts.ReportWidth <= 0 || opts.ReportHeight <= 0 {
		opts.ReportWidth, opts.ReportHeight = def.ReportWidth, def.ReportHeight
	}
	if opts.SummaryWidth <= 0 || opts.SummaryHeight <= 0 {
		opts.SummaryWidth, opts.SummaryHeight = def.SummaryWidth, def.SummaryHeight
	}
	return &Renderer{opts: opts, log: log}
}

// Render reads the table at tablePath and writes both images, replacing
// existing files.
func (r *Renderer) Render(tablePath, reportPath, summaryPath string) error {
	table, err := storage.ReadCSV(tablePath)
	if err != nil {
		r.log.Errorf("cannot read table %s: %v", tablePath, err)
		return fmt.Errorf("read table: %w", err)
	}
	r.log.Verbosef("loaded %d rows from %s", table.Len(), tablePath)

	return r.RenderTable(table, reportPath, summaryPath)
}

// RenderTable writes both images from an in-memory table.
func (r *Renderer) RenderTable(table *models.MetricTable, reportPath, summaryPath string) error {
	if err := r.WriteReport(table, reportPath); err != nil {
		return err
	}
	r.log.Infof("report image written: %s", reportPath)

	written, err := r.WriteSummary(table, summaryPath)
	if err != nil {
		return err
	}
	if written {
		r.log.Infof("summary image written: %s", summaryPath)
	} else {
		r.log.Warnf("no defect metrics in table, summary image skipped")
	}
	return nil
}

// WriteReport draws the 2x2 panel grid to path.
func (r *Renderer) WriteReport(table *models.MetricTable, path string) error {
	plots, err := r.reportPlots(table)
	if err != nil {
		return err
	}

	img := vgimg.New(r.opts.ReportWidth, r.opts.ReportHeight)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      2,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}

	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		for i := range plots[j] {
			plots[j][i].Draw(canvases[j][i])
		}
	}
	return writePNG(img, path)
}

// WriteSummary draws horizontal bars of the defect totals present in the
// table. Returns false without touching path when none is present.
func (r *Renderer) WriteSummary(table *models.MetricTable, path string) (bool, error) {
	p, ok, err := summaryPlot(table)
	if err != nil || !ok {
		return false, err
	}

	img := vgimg.New(r.opts.SummaryWidth, r.opts.SummaryHeight)
	p.Draw(draw.New(img))
	if err := writePNG(img, path); err != nil {
		return false, err
	}
	return true, nil
}

// panel is one cell of the report grid.
type panel struct {
	title    string
	required []string
	build    func(title string, table *models.MetricTable) (*plot.Plot, error)
}

var panels = [2][2]panel{
	{
		{
			title:    "Defects",
			required: []string{models.MetricBugs, models.MetricVulnerabilities, models.MetricCodeSmells},
			build:    defectsPlot,
		},
		{
			title:    "Quality ratings (1-5)",
			required: []string{models.MetricReliabilityRating, models.MetricSecurityRating, models.MetricSqaleRating},
			build:    ratingsPlot,
		},
	},
	{
		{
			title:    "Complexity vs size",
			required: []string{models.MetricComplexity, models.MetricNcloc},
			build:    complexityPlot,
		},
		{
			title:    "Security and duplication",
			required: []string{models.MetricSecurityHotspots, models.MetricDuplicatedLinesDensity},
			build:    securityPlot,
		},
	},
}

func (r *Renderer) reportPlots(table *models.MetricTable) ([][]*plot.Plot, error) {
	plots := make([][]*plot.Plot, 2)
	for j := range panels {
		plots[j] = make([]*plot.Plot, 2)
		for i, pn := range panels[j] {
			if !table.HasColumns(pn.required...) {
				r.log.Verbosef("panel %q skipped: needs %s", pn.title, strings.Join(pn.required, ", "))
				plots[j][i] = emptyPlot(pn.title)
				continue
			}
			p, err := pn.build(pn.title, table)
			if err != nil {
				return nil, fmt.Errorf("panel %q: %w", pn.title, err)
			}
			plots[j][i] = p
		}
	}
	return plots, nil
}

func emptyPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title + " (no data)"
	p.HideAxes()
	return p
}

var (
	colorBugs        = rgb(0xff, 0x6b, 0x6b)
	colorVulns       = rgb(0xff, 0xa7, 0x26)
	colorSmells      = rgb(0x42, 0xa5, 0xf5)
	colorReliability = rgb(0xab, 0x47, 0xbc)
	colorSecurity    = rgb(0xec, 0x40, 0x7a)
	colorSqale       = rgb(0xff, 0xca, 0x28)
	colorScatter     = rgb(0x80, 0x00, 0x80)
	colorHotspots    = rgb(0xef, 0x53, 0x50)
	colorDuplication = rgb(0x26, 0xa6, 0x9a)
)

func rgb(r, g, b uint8) color.Color {
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// bar is one labelled category of a bar chart.
type bar struct {
	label string
	value float64
	color color.Color
	text  string
}

// addBars adds one single-value bar chart per category so each bar keeps
// its own colour, plus a value label above it.
func addBars(p *plot.Plot, bars []bar, horizontal bool) error {
	names := make([]string, len(bars))
	xys := make(plotter.XYs, len(bars))
	texts := make([]string, len(bars))

	for i, b := range bars {
		chart, err := plotter.NewBarChart(plotter.Values{b.value}, vg.Points(40))
		if err != nil {
			return err
		}
		chart.XMin = float64(i)
		chart.Color = b.color
		chart.Horizontal = horizontal
		p.Add(chart)

		names[i] = b.label
		texts[i] = b.text
		if horizontal {
			xys[i] = plotter.XY{X: b.value, Y: float64(i)}
		} else {
			xys[i] = plotter.XY{X: float64(i), Y: b.value}
		}
	}

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return err
	}
	p.Add(labels)

	if horizontal {
		p.NominalY(names...)
	} else {
		p.NominalX(names...)
	}
	return nil
}

func defectsPlot(title string, table *models.MetricTable) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Count"
	p.Y.Min = 0

	bugs := Sum(table, models.MetricBugs)
	vulns := Sum(table, models.MetricVulnerabilities)
	smells := Sum(table, models.MetricCodeSmells)

	err := addBars(p, []bar{
		{label: "Bugs", value: bugs, color: colorBugs, text: formatCount(bugs)},
		{label: "Vulnerabilities", value: vulns, color: colorVulns, text: formatCount(vulns)},
		{label: "Code smells", value: smells, color: colorSmells, text: formatCount(smells)},
	}, false)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func ratingsPlot(title string, table *models.MetricTable) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Mean rating"

	rel, _ := Mean(table, models.MetricReliabilityRating)
	sec, _ := Mean(table, models.MetricSecurityRating)
	sqale, _ := Mean(table, models.MetricSqaleRating)

	err := addBars(p, []bar{
		{label: "Reliability", value: rel, color: colorReliability, text: formatRating(rel)},
		{label: "Security", value: sec, color: colorSecurity, text: formatRating(sec)},
		{label: "Maintainability", value: sqale, color: colorSqale, text: formatRating(sqale)},
	}, false)
	if err != nil {
		return nil, err
	}
	p.Y.Min = 0
	p.Y.Max = 5
	return p, nil
}

func complexityPlot(title string, table *models.MetricTable) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Lines of code (ncloc)"
	p.Y.Label.Text = "Cyclomatic complexity"

	var xys plotter.XYs
	var names []string
	for _, rec := range table.Records {
		x, okX := finite(rec, models.MetricNcloc)
		y, okY := finite(rec, models.MetricComplexity)
		if !okX || !okY {
			continue
		}
		xys = append(xys, plotter.XY{X: x, Y: y})
		names = append(names, rec.Name)
	}
	if len(xys) == 0 {
		return emptyPlot(title), nil
	}

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Color = colorScatter
	scatter.GlyphStyle.Radius = vg.Points(4)
	p.Add(scatter, plotter.NewGrid())

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: names})
	if err != nil {
		return nil, err
	}
	p.Add(labels)
	return p, nil
}

func securityPlot(title string, table *models.MetricTable) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Value"
	p.Y.Min = 0

	hotspots := Sum(table, models.MetricSecurityHotspots)
	dup, _ := Mean(table, models.MetricDuplicatedLinesDensity)

	err := addBars(p, []bar{
		{label: "Security hotspots", value: hotspots, color: colorHotspots, text: formatCount(hotspots)},
		{label: "Duplication (%)", value: dup, color: colorDuplication, text: formatRating(dup)},
	}, false)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// summaryMetrics are the totals drawn in the summary image, in order.
var summaryMetrics = []struct {
	column string
	label  string
	color  color.Color
}{
	{models.MetricBugs, "Bugs", rgb(0xe7, 0x4c, 0x3c)},
	{models.MetricVulnerabilities, "Vulnerabilities", rgb(0xf3, 0x9c, 0x12)},
	{models.MetricCodeSmells, "Code Smells", rgb(0x34, 0x98, 0xdb)},
	{models.MetricSecurityHotspots, "Security Hotspots", rgb(0x9b, 0x59, 0xb6)},
}

func summaryPlot(table *models.MetricTable) (*plot.Plot, bool, error) {
	var bars []bar
	for _, m := range summaryMetrics {
		if !table.HasColumn(m.column) {
			continue
		}
		v := Sum(table, m.column)
		bars = append(bars, bar{label: m.label, value: v, color: m.color, text: formatCount(v)})
	}
	if len(bars) == 0 {
		return nil, false, nil
	}

	p := plot.New()
	p.Title.Text = "Main metrics summary"
	p.X.Label.Text = "Count"
	p.X.Min = 0
	if err := addBars(p, bars, true); err != nil {
		return nil, false, err
	}
	p.Add(plotter.NewGrid())
	return p, true, nil
}

func writePNG(img *vgimg.Canvas, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
