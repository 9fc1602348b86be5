package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSource(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.RecordSource("gnmap", StatusSuccess, 3, 10*time.Millisecond)
	pm.RecordSource("gnmap", StatusSuccess, 0, time.Millisecond)
	pm.RecordSource("xml", StatusFailed, 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.sourcesTotal.WithLabelValues("gnmap", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.sourcesTotal.WithLabelValues("xml", StatusFailed)))
	assert.Equal(t, 3.0, testutil.ToFloat64(pm.factsParsed.WithLabelValues("gnmap")))
	assert.Equal(t, 2, testutil.CollectAndCount(pm.sourceParseDuration))
}

func TestOutputCounters(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.AddDuplicatesDropped(2)
	pm.AddDuplicatesDropped(0)
	pm.IncrementRendered()
	pm.IncrementRendered()
	pm.IncrementFiltered()
	pm.IncrementRenderErrors()

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.duplicatesDropped))
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.factsRendered))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.factsFiltered))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.renderErrors))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var pm *PrometheusMetrics

	assert.NotPanics(t, func() {
		pm.RecordSource("xml", StatusSuccess, 1, time.Second)
		pm.AddDuplicatesDropped(1)
		pm.IncrementRendered()
		pm.IncrementFiltered()
		pm.IncrementRenderErrors()
		pm.MarkRunFinished(time.Now())
	})
	assert.NoError(t, pm.WriteTextfile(filepath.Join(t.TempDir(), "unused.prom")))
}

func TestWriteTextfile(t *testing.T) {
	pm := NewPrometheusMetrics()
	pm.RecordSource("xml", StatusSuccess, 4, 5*time.Millisecond)
	pm.IncrementRendered()
	pm.MarkRunFinished(time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "nmap_parse.prom")
	require.NoError(t, pm.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `nmap_parse_sources_total{kind="xml",status="success"} 1`)
	assert.Contains(t, out, `nmap_parse_facts_parsed_total{kind="xml"} 4`)
	assert.Contains(t, out, "nmap_parse_facts_rendered_total 1")
	assert.Contains(t, out, "nmap_parse_last_run_timestamp_seconds 1.7e+09")
}
