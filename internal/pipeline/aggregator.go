package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/anstrom/nmap-parse/internal/errors"
	"github.com/anstrom/nmap-parse/internal/facts"
	"github.com/anstrom/nmap-parse/internal/logging"
	"github.com/anstrom/nmap-parse/internal/metrics"
	"github.com/anstrom/nmap-parse/internal/parser"
	"github.com/anstrom/nmap-parse/internal/workers"
)

// Source is one input file and the grammar used to read it.
type Source struct {
	Path string
	Kind parser.Kind
}

// SourcesFromPaths classifies paths by file extension, keeping their order.
func SourcesFromPaths(paths []string) []Source {
	sources := make([]Source, len(paths))
	for i, path := range paths {
		sources[i] = Source{Path: path, Kind: parser.KindFromPath(path)}
	}
	return sources
}

// SourceResult is the outcome of one source.
type SourceResult struct {
	Source   Source
	Facts    []facts.PortFact
	Added    int
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the source was parsed.
func (r SourceResult) Succeeded() bool {
	return r.Err == nil
}

// ParseFunc reads one source. parser.ParseFile is the default.
type ParseFunc func(path string, kind parser.Kind) ([]facts.PortFact, error)

// AggregatorConfig holds aggregator settings.
type AggregatorConfig struct {
	// Workers is the number of sources parsed concurrently; 1 or less parses sequentially.
	Workers int
}

// Aggregator parses sources and merges their facts.
type Aggregator struct {
	config   AggregatorConfig
	reporter Reporter
	metrics  *metrics.PrometheusMetrics
	logger   *logging.Logger
	parse    ParseFunc
}

// NewAggregator creates an aggregator. reporter receives per-source
// failures; pm may be nil.
func NewAggregator(config AggregatorConfig, reporter Reporter, pm *metrics.PrometheusMetrics) *Aggregator {
	if reporter == nil {
		reporter = Discard
	}
	return &Aggregator{
		config:   config,
		reporter: reporter,
		metrics:  pm,
		logger:   logging.Default().WithComponent("aggregator"),
		parse:    parser.ParseFile,
	}
}

// WithParseFunc replaces the parser, mainly for tests.
func (a *Aggregator) WithParseFunc(parse ParseFunc) *Aggregator {
	a.parse = parse
	return a
}

// Collect parses every source and returns the merged fact set together with
// one result per source, in the order given.
func (a *Aggregator) Collect(ctx context.Context, sources []Source) (*facts.Set, []SourceResult) {
	results := make([]SourceResult, len(sources))
	for i, src := range sources {
		results[i].Source = src
	}

	if a.config.Workers > 1 && len(sources) > 1 {
		a.parseConcurrently(ctx, results)
	} else {
		for i := range results {
			a.parseOne(ctx, &results[i])
		}
	}

	return a.merge(results), results
}

// parseConcurrently runs one job per source. Each job writes only its own
// slot in results.
func (a *Aggregator) parseConcurrently(ctx context.Context, results []SourceResult) {
	pool := workers.New(ctx, workers.Config{
		Size:      min(a.config.Workers, len(results)),
		QueueSize: len(results),
	})
	pool.Start()

	for i := range results {
		result := &results[i]
		job := workers.NewFuncJob(fmt.Sprintf("parse-%d", i), "parse", func(ctx context.Context) error {
			a.parseOne(ctx, result)
			return result.Err
		})
		if err := pool.Submit(job); err != nil {
			result.Err = errors.WrapSourceError(errors.CodeCanceled, "Source not parsed", result.Source.Path, err)
		}
	}

	pool.Shutdown()
}

func (a *Aggregator) parseOne(ctx context.Context, result *SourceResult) {
	if err := ctx.Err(); err != nil {
		result.Err = errors.WrapSourceError(errors.CodeCanceled, "Source not parsed", result.Source.Path, err)
		return
	}

	start := time.Now()
	parsed, err := a.parse(result.Source.Path, result.Source.Kind)
	result.Duration = time.Since(start)
	if err != nil {
		result.Err = err
		return
	}
	result.Facts = parsed
}

// merge reports failures and deduplicates facts, strictly in source order.
func (a *Aggregator) merge(results []SourceResult) *facts.Set {
	set := facts.NewSet()

	for i := range results {
		result := &results[i]
		kind := string(result.Source.Kind)

		if result.Err != nil {
			a.logger.Debug("Source skipped", "source", result.Source.Path, "kind", kind, "error", result.Err)
			a.metrics.RecordSource(kind, metrics.StatusFailed, 0, result.Duration)
			a.reporter.Report(result.Err)
			continue
		}

		result.Added = set.AddAll(result.Facts)
		a.metrics.RecordSource(kind, metrics.StatusSuccess, len(result.Facts), result.Duration)
		a.metrics.AddDuplicatesDropped(len(result.Facts) - result.Added)
		a.logger.Debug("Source parsed",
			"source", result.Source.Path,
			"kind", kind,
			"facts", len(result.Facts),
			"new", result.Added,
			"duration", result.Duration)
	}

	return set
}
