// Package viz renders correlation results and prediction diagnostics.
//
// Interactive views (heatmap, strong-pair graph) build on go-echarts and
// save as self-contained HTML; static diagnostics build on gonum/plot and
// save as PNG.
package viz

import (
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ezoic/predsql/pkg/errors"
	"github.com/ezoic/predsql/pkg/log"
	"github.com/ezoic/predsql/stats"
)

// correlationColors runs blue (-1) through white (0) to red (+1).
var correlationColors = []string{"#313695", "#74add1", "#ffffff", "#f46d43", "#a50026"}

// CorrelationHeatmap builds a heatmap over the full correlation matrix with
// a diverging visual map from -1 to 1. NaN entries emit no cell, so
// degenerate pairs render as blanks.
func CorrelationHeatmap(m *stats.CorrelationMatrix, title string) *charts.HeatMap {
	names := m.Names()
	data := make([]opts.HeatMapData, 0, len(names)*len(names))
	for i := range names {
		for j := range names {
			r := m.At(i, j)
			if math.IsNaN(r) {
				continue
			}
			// Three decimals keep the in-cell labels readable.
			data = append(data, opts.HeatMapData{
				Value: [3]interface{}{j, i, math.Round(r*1000) / 1000},
			})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: names, AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: names}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        -1,
			Max:        1,
			InRange:    &opts.VisualMapInRange{Color: correlationColors},
		}),
	)
	hm.AddSeries("correlation", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true)}),
	)
	return hm
}

// CorrelationGraph builds a force graph of the strong pairs: nodes are
// columns sized by how many strong relationships they join, links carry
// |r| as their value and edge label.
func CorrelationGraph(m *stats.CorrelationMatrix, threshold float64, title string) *charts.Graph {
	pairs := m.StrongPairs(threshold)

	degree := make(map[string]int)
	for _, p := range pairs {
		degree[p.A]++
		degree[p.B]++
	}

	names := m.Names()
	nodes := make([]opts.GraphNode, 0, len(names))
	for _, name := range names {
		nodes = append(nodes, opts.GraphNode{
			Name:       name,
			SymbolSize: 10 + 6*degree[name],
		})
	}

	links := make([]opts.GraphLink, 0, len(pairs))
	for _, p := range pairs {
		links = append(links, opts.GraphLink{
			Source: p.A,
			Target: p.B,
			Value:  float32(math.Abs(p.R)),
		})
	}

	g := charts.NewGraph()
	g.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	g.AddSeries("correlation", nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Layout:    "force",
			Force:     &opts.GraphForce{Repulsion: 400, EdgeLength: 120},
			Roam:      opts.Bool(true),
			EdgeLabel: &opts.EdgeLabel{Show: opts.Bool(true), Formatter: "{c}"},
		}),
	)
	return g
}

// WriteHTML renders the given charts onto one page saved at path.
func WriteHTML(path string, cs ...components.Charter) (err error) {
	const op = "viz.WriteHTML"
	if len(cs) == 0 {
		return errors.NewValueError(op, "at least one chart is required")
	}

	page := components.NewPage()
	page.AddCharts(cs...)

	f, cerr := os.Create(path)
	if cerr != nil {
		return errors.Wrapf(cerr, "%s: failed to create file", op)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errors.Wrapf(closeErr, "%s: failed to close file", op)
		}
	}()

	if err = page.Render(f); err != nil {
		return errors.Wrapf(err, "%s: failed to render page", op)
	}

	logger := log.GetLoggerWithName("viz")
	logger.Debug("wrote HTML page", "path", path, "charts", len(cs))
	return nil
}
