package parser

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/anstrom/nmap-parse/internal/facts"
)

const (
	hostPrefix  = "Host:"
	portsMarker = "Ports:"
	openMarker  = "/open/"

	initialLineBytes = 64 * 1024
)

// MaxLineBytes bounds a single greppable line. Hosts with thousands of open
// ports produce long lines, so this is well above bufio's default.
var MaxLineBytes = 16 * 1024 * 1024

// ParseGreppable extracts open ports from nmap greppable output.
//
// A port entry counts as open when it contains "/open/" anywhere, so a
// service or version field containing that text also matches.
func ParseGreppable(r io.Reader) ([]facts.PortFact, error) {
	var result []facts.PortFact

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialLineBytes), MaxLineBytes)

	for scanner.Scan() {
		result = append(result, parseGreppableLine(scanner.Text())...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read greppable output: %w", err)
	}

	return result, nil
}

// parseGreppableLine returns the open ports of one "Host:" record.
func parseGreppableLine(line string) []facts.PortFact {
	if !strings.HasPrefix(line, hostPrefix) {
		return nil
	}

	head, _, _ := strings.Cut(line, "\t")
	fields := strings.Fields(head)
	if len(fields) < 2 {
		return nil
	}
	host := fields[1]

	_, ports, found := strings.Cut(line, portsMarker)
	if !found {
		return nil
	}

	var result []facts.PortFact
	for _, entry := range strings.Split(ports, ",") {
		entry = strings.TrimSpace(entry)
		if !strings.Contains(entry, openMarker) {
			continue
		}
		port, _, _ := strings.Cut(entry, "/")
		result = append(result, facts.PortFact{Host: host, Port: port})
	}
	return result
}
