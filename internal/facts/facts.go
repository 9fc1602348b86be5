// Package facts holds the data model shared by the parsers, the aggregator
// and the renderer: a single open-port observation and the ordered,
// deduplicated set built from all inputs.
package facts

import "fmt"

// PortFact is a single (host, open port) observation.
// Port is kept as the token found in the input rather than a number.
type PortFact struct {
	Host string
	Port string
}

// String returns "host:port".
func (f PortFact) String() string {
	return fmt.Sprintf("%s:%s", f.Host, f.Port)
}

// Set is an insertion-ordered collection of unique port facts.
// The first occurrence of a pair keeps its position.
type Set struct {
	order []PortFact
	seen  map[PortFact]struct{}
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{
		order: make([]PortFact, 0),
		seen:  make(map[PortFact]struct{}),
	}
}

// Add appends f unless an equal fact is already present.
// It reports whether f was added.
func (s *Set) Add(f PortFact) bool {
	if _, exists := s.seen[f]; exists {
		return false
	}
	s.seen[f] = struct{}{}
	s.order = append(s.order, f)
	return true
}

// AddAll adds facts in order and returns how many were new.
func (s *Set) AddAll(facts []PortFact) int {
	added := 0
	for _, f := range facts {
		if s.Add(f) {
			added++
		}
	}
	return added
}

// Len returns the number of unique facts.
func (s *Set) Len() int {
	return len(s.order)
}

// Facts returns a copy of the facts in insertion order.
func (s *Set) Facts() []PortFact {
	out := make([]PortFact, len(s.order))
	copy(out, s.order)
	return out
}
