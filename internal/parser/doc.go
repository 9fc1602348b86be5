// Package parser turns nmap scan output into port facts.
//
// Two grammars are supported, each with its own parser:
//
//   - Greppable output (.gnmap): ParseGreppable reads "Host:" lines and
//     extracts the open entries listed after the "Ports:" marker.
//   - XML output (.xml): ParseMarkup decodes the document into a typed tree
//     and walks host/ports/port/state elements.
//
// Both parsers are atomic per source: on a read or decode failure they
// return an error and no facts. Records that are merely incomplete (a
// "Host:" line without an address, a host without ports) are skipped
// silently.
//
// ParseFile selects the parser from a Kind, normally derived from the file
// extension with KindFromPath, and wraps failures in the coded errors of
// internal/errors.
package parser
