package pipeline

//go:generate mockgen -source=reporter.go -destination=mocks/reporter.go -package=mocks

// Reporter receives the recoverable errors of a run: unsupported or
// malformed sources and facts that fail to render. Implementations decide
// how to surface them; the pipeline continues after every report.
type Reporter interface {
	Report(err error)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(err error)

// Report calls f(err).
func (f ReporterFunc) Report(err error) {
	f(err)
}

// Discard is a Reporter that drops every error.
var Discard Reporter = ReporterFunc(func(error) {})

// Collector is a Reporter that keeps every error in order.
type Collector struct {
	Errors []error
}

// Report appends err.
func (c *Collector) Report(err error) {
	c.Errors = append(c.Errors, err)
}
