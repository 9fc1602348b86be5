package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	apperrors "github.com/anstrom/nmap-parse/internal/errors"
	"github.com/anstrom/nmap-parse/internal/pipeline"
)

// printSummary writes a per-source table followed by the render totals.
func printSummary(w io.Writer, results []pipeline.SourceResult, stats pipeline.RenderStats) {
	table := tablewriter.NewWriter(w)
	table.Header("Source", "Kind", "Status", "Facts", "New", "Duration", "Error")

	var failed int
	for i := range results {
		result := &results[i]

		status := "OK"
		errText := ""
		if !result.Succeeded() {
			failed++
			status = "Failed"
			errText = string(apperrors.GetCode(result.Err))
		}

		_ = table.Append([]string{
			result.Source.Path,
			string(result.Source.Kind),
			status,
			strconv.Itoa(len(result.Facts)),
			strconv.Itoa(result.Added),
			result.Duration.Round(time.Microsecond).String(),
			errText,
		})
	}

	_ = table.Render()

	fmt.Fprintf(w, "\nSources: %d (%d failed)\n", len(results), failed)
	fmt.Fprintf(w, "Rendered: %d, filtered: %d, render errors: %d\n",
		stats.Rendered, stats.Filtered, stats.Failed)
}
