// Package pipeline runs nmap-parse end to end: it parses every source,
// merges the results into an ordered, deduplicated fact set and renders the
// surviving facts.
//
// Failures never stop a run. A source that cannot be parsed, or a fact that
// cannot be rendered, is handed to the Reporter and skipped. Reports are
// delivered in source order, then fact order, whether or not sources are
// parsed concurrently.
package pipeline
