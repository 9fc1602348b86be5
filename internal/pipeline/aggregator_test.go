package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/anstrom/nmap-parse/internal/errors"
	"github.com/anstrom/nmap-parse/internal/facts"
	"github.com/anstrom/nmap-parse/internal/metrics"
	"github.com/anstrom/nmap-parse/internal/parser"
	"github.com/anstrom/nmap-parse/internal/pipeline/mocks"
)

func testdata(name string) string {
	return filepath.Join("testdata", name)
}

// isCode matches errors carrying the given code.
func isCode(code errors.ErrorCode) gomock.Matcher {
	return gomock.Cond(func(x any) bool {
		err, ok := x.(error)
		return ok && errors.IsCode(err, code)
	})
}

func TestSourcesFromPaths(t *testing.T) {
	sources := SourcesFromPaths([]string{"a.gnmap", "b.XML", "c.txt"})
	assert.Equal(t, []Source{
		{Path: "a.gnmap", Kind: parser.KindGreppable},
		{Path: "b.XML", Kind: parser.KindMarkup},
		{Path: "c.txt", Kind: parser.KindUnknown},
	}, sources)
}

func TestCollectCrossFormatMerge(t *testing.T) {
	ctrl := gomock.NewController(t)
	reporter := mocks.NewMockReporter(ctrl)
	reporter.EXPECT().Report(gomock.Any()).Times(0)

	agg := NewAggregator(AggregatorConfig{Workers: 1}, reporter, nil)
	set, results := agg.Collect(context.Background(),
		SourcesFromPaths([]string{testdata("a.gnmap"), testdata("ab.xml")}))

	assert.Equal(t, []facts.PortFact{
		{Host: "10.0.0.1", Port: "22"},
		{Host: "10.0.0.2", Port: "80"},
	}, set.Facts())

	require.Len(t, results, 2)
	assert.True(t, results[0].Succeeded())
	assert.Equal(t, 1, results[0].Added)
	assert.True(t, results[1].Succeeded())
	assert.Len(t, results[1].Facts, 2)
	assert.Equal(t, 1, results[1].Added)
}

func TestCollectReportsAndSkipsFailedSources(t *testing.T) {
	ctrl := gomock.NewController(t)
	reporter := mocks.NewMockReporter(ctrl)

	gomock.InOrder(
		reporter.EXPECT().Report(isCode(errors.CodeUnsupportedFormat)),
		reporter.EXPECT().Report(isCode(errors.CodeMalformedInput)),
		reporter.EXPECT().Report(isCode(errors.CodeMalformedInput)),
	)

	paths := []string{
		testdata("notes.txt"),
		testdata("a.gnmap"),
		testdata("broken.xml"),
		testdata("missing.gnmap"),
		testdata("ab.xml"),
	}

	agg := NewAggregator(AggregatorConfig{Workers: 1}, reporter, nil)
	set, results := agg.Collect(context.Background(), SourcesFromPaths(paths))

	assert.Equal(t, []facts.PortFact{
		{Host: "10.0.0.1", Port: "22"},
		{Host: "10.0.0.2", Port: "80"},
	}, set.Facts())

	succeeded := 0
	for _, r := range results {
		if r.Succeeded() {
			succeeded++
		}
	}
	assert.Equal(t, 2, succeeded)
	assert.Nil(t, results[2].Facts, "a malformed source keeps no partial facts")
}

func TestCollectAllSourcesFail(t *testing.T) {
	collector := &Collector{}
	agg := NewAggregator(AggregatorConfig{}, collector, nil)

	set, _ := agg.Collect(context.Background(),
		SourcesFromPaths([]string{testdata("broken.xml"), testdata("scan.txt")}))

	assert.Equal(t, 0, set.Len())
	assert.Len(t, collector.Errors, 2)
}

func TestCollectDedupAcrossSources(t *testing.T) {
	outputs := map[string][]facts.PortFact{
		"one":   {{Host: "A", Port: "22"}, {Host: "B", Port: "80"}, {Host: "A", Port: "22"}},
		"two":   {{Host: "C", Port: "443"}, {Host: "B", Port: "80"}},
		"three": {{Host: "A", Port: "22"}, {Host: "D", Port: "25"}},
	}
	parse := func(path string, kind parser.Kind) ([]facts.PortFact, error) {
		return outputs[path], nil
	}

	pm := metrics.NewPrometheusMetrics()
	agg := NewAggregator(AggregatorConfig{}, nil, pm).WithParseFunc(parse)
	set, results := agg.Collect(context.Background(), []Source{
		{Path: "one", Kind: parser.KindGreppable},
		{Path: "two", Kind: parser.KindMarkup},
		{Path: "three", Kind: parser.KindGreppable},
	})

	assert.Equal(t, []facts.PortFact{
		{Host: "A", Port: "22"},
		{Host: "B", Port: "80"},
		{Host: "C", Port: "443"},
		{Host: "D", Port: "25"},
	}, set.Facts())
	assert.Equal(t, []int{2, 1, 1}, []int{results[0].Added, results[1].Added, results[2].Added})
}

func TestCollectConcurrentMatchesSequential(t *testing.T) {
	var paths []string
	for i := 0; i < 12; i++ {
		paths = append(paths, fmt.Sprintf("src-%02d", i))
	}

	// Every source shares some facts with its neighbours so ordering matters.
	parse := func(path string, kind parser.Kind) ([]facts.PortFact, error) {
		var n int
		if _, err := fmt.Sscanf(path, "src-%d", &n); err != nil {
			return nil, err
		}
		if n == 5 {
			return nil, errors.ErrMalformedInput(path, fmt.Errorf("bad"))
		}
		return []facts.PortFact{
			{Host: fmt.Sprintf("10.0.0.%d", n%4), Port: "22"},
			{Host: fmt.Sprintf("10.0.0.%d", n), Port: fmt.Sprintf("%d", 8000+n%3)},
		}, nil
	}

	sources := make([]Source, len(paths))
	for i, p := range paths {
		sources[i] = Source{Path: p, Kind: parser.KindGreppable}
	}

	seqReports := &Collector{}
	seqSet, _ := NewAggregator(AggregatorConfig{Workers: 1}, seqReports, nil).
		WithParseFunc(parse).
		Collect(context.Background(), sources)

	for _, workers := range []int{2, 4, 32} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			reports := &Collector{}
			set, _ := NewAggregator(AggregatorConfig{Workers: workers}, reports, nil).
				WithParseFunc(parse).
				Collect(context.Background(), sources)

			assert.Equal(t, seqSet.Facts(), set.Facts())
			assert.Equal(t, seqReports.Errors, reports.Errors)
		})
	}
}

func TestCollectCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	parse := func(path string, kind parser.Kind) ([]facts.PortFact, error) {
		calls++
		return []facts.PortFact{{Host: "A", Port: "22"}}, nil
	}

	collector := &Collector{}
	set, results := NewAggregator(AggregatorConfig{}, collector, nil).
		WithParseFunc(parse).
		Collect(ctx, []Source{{Path: "a.gnmap", Kind: parser.KindGreppable}})

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, set.Len())
	require.Len(t, collector.Errors, 1)
	assert.True(t, errors.IsCode(collector.Errors[0], errors.CodeCanceled))
	assert.False(t, results[0].Succeeded())
}
