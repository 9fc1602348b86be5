package render

import "strings"

// PortFilter is an allow-list of port tokens. An empty filter allows every port.
type PortFilter map[string]struct{}

// ParsePortFilter splits a comma-separated list such as "22,80,443".
// Tokens are trimmed and empty tokens dropped, so " 80" selects port 80 and
// a list with no tokens left, such as ",", is no filter at all: every port
// passes rather than none.
func ParsePortFilter(list string) PortFilter {
	filter := make(PortFilter)
	for _, token := range strings.Split(list, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		filter[token] = struct{}{}
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}

// Allows reports whether port passes the filter.
func (f PortFilter) Allows(port string) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[port]
	return ok
}
