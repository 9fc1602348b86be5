package parser

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/anstrom/nmap-parse/internal/errors"
	"github.com/anstrom/nmap-parse/internal/facts"
	"github.com/anstrom/nmap-parse/internal/logging"
)

// Kind identifies the grammar of an input source.
type Kind string

const (
	KindUnknown   Kind = "unknown"
	KindGreppable Kind = "gnmap"
	KindMarkup    Kind = "xml"
)

// KindFromPath selects the grammar from the file extension, ignoring case.
func KindFromPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gnmap":
		return KindGreppable
	case ".xml":
		return KindMarkup
	default:
		return KindUnknown
	}
}

// ParseFunc parses a single source.
type ParseFunc func(r io.Reader) ([]facts.PortFact, error)

// ForKind returns the parser for k, or false when no grammar matches.
func ForKind(k Kind) (ParseFunc, bool) {
	switch k {
	case KindGreppable:
		return ParseGreppable, true
	case KindMarkup:
		return ParseMarkup, true
	default:
		return nil, false
	}
}

// ParseFile opens path and parses it with the grammar of kind.
// Errors are *errors.SourceError carrying CodeUnsupportedFormat or
// CodeMalformedInput.
func ParseFile(path string, kind Kind) ([]facts.PortFact, error) {
	parse, ok := ForKind(kind)
	if !ok {
		return nil, errors.ErrUnsupportedFormat(path)
	}

	file, err := os.Open(path) //nolint:gosec // paths are supplied by the operator
	if err != nil {
		return nil, errors.ErrMalformedInput(path, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Default().WithSource(path).WithError(err).Warn("Failed to close source")
		}
	}()

	result, err := parse(file)
	if err != nil {
		return nil, errors.ErrMalformedInput(path, err)
	}
	return result, nil
}
