package pipeline

import (
	"bufio"
	"fmt"
	"io"

	"github.com/anstrom/nmap-parse/internal/facts"
	"github.com/anstrom/nmap-parse/internal/metrics"
	"github.com/anstrom/nmap-parse/internal/render"
)

// RenderStats counts what happened to each fact of a set.
type RenderStats struct {
	Rendered int
	Filtered int
	Failed   int
}

// Renderer writes facts through a template, honoring a port filter.
type Renderer struct {
	template *render.Template
	filter   render.PortFilter
	reporter Reporter
	metrics  *metrics.PrometheusMetrics
}

// NewRenderer creates a renderer. A nil filter passes every fact; pm may be nil.
func NewRenderer(template *render.Template, filter render.PortFilter, reporter Reporter,
	pm *metrics.PrometheusMetrics) *Renderer {
	if reporter == nil {
		reporter = Discard
	}
	return &Renderer{
		template: template,
		filter:   filter,
		reporter: reporter,
		metrics:  pm,
	}
}

// Render writes one line per fact that passes the filter and renders
// cleanly. Render errors go to the reporter; only a failure to write to w
// is returned.
func (r *Renderer) Render(w io.Writer, set *facts.Set) (RenderStats, error) {
	var stats RenderStats
	out := bufio.NewWriter(w)

	for _, fact := range set.Facts() {
		if !r.filter.Allows(fact.Port) {
			stats.Filtered++
			r.metrics.IncrementFiltered()
			continue
		}

		line, err := r.template.Execute(fact)
		if err != nil {
			stats.Failed++
			r.metrics.IncrementRenderErrors()
			r.reporter.Report(err)
			continue
		}

		if _, err := fmt.Fprintln(out, line); err != nil {
			return stats, fmt.Errorf("failed to write output: %w", err)
		}
		stats.Rendered++
		r.metrics.IncrementRendered()
	}

	if err := out.Flush(); err != nil {
		return stats, fmt.Errorf("failed to write output: %w", err)
	}
	return stats, nil
}
