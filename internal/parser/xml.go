package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/anstrom/nmap-parse/internal/facts"
)

const stateOpen = "open"

// Document is the root of an nmap XML report. The root element name is not
// checked; only its direct host children are read.
type Document struct {
	XMLName xml.Name
	Hosts   []HostElement `xml:"host"`
}

// HostElement is a <host> element.
type HostElement struct {
	Addresses []AddressElement `xml:"address"`
	Ports     []PortsElement   `xml:"ports"`
}

// AddressElement is an <address> element.
type AddressElement struct {
	Addr     *string `xml:"addr,attr"`
	AddrType *string `xml:"addrtype,attr"`
}

// PortsElement is a <ports> element.
type PortsElement struct {
	Ports []PortElement `xml:"port"`
}

// PortElement is a <port> element.
type PortElement struct {
	Protocol *string        `xml:"protocol,attr"`
	PortID   *string        `xml:"portid,attr"`
	States   []StateElement `xml:"state"`
}

// StateElement is a <state> element.
type StateElement struct {
	State  *string `xml:"state,attr"`
	Reason *string `xml:"reason,attr"`
}

// Address returns the addr attribute of the first <address> child.
// A missing element, a missing attribute and an empty value all yield false.
func (h HostElement) Address() (string, bool) {
	if len(h.Addresses) == 0 {
		return "", false
	}
	addr, ok := attr(h.Addresses[0].Addr)
	if !ok || addr == "" {
		return "", false
	}
	return addr, true
}

// PortList returns the first <ports> child.
func (h HostElement) PortList() (PortsElement, bool) {
	if len(h.Ports) == 0 {
		return PortsElement{}, false
	}
	return h.Ports[0], true
}

// ID returns the portid attribute as written in the document.
func (p PortElement) ID() (string, bool) {
	return attr(p.PortID)
}

// State returns the state attribute of the first <state> child.
func (p PortElement) State() (string, bool) {
	if len(p.States) == 0 {
		return "", false
	}
	return attr(p.States[0].State)
}

// IsOpen reports whether the port's state is exactly "open".
func (p PortElement) IsOpen() bool {
	state, ok := p.State()
	return ok && state == stateOpen
}

func attr(v *string) (string, bool) {
	if v == nil {
		return "", false
	}
	return *v, true
}

// DecodeDocument reads a complete XML document. Anything other than
// whitespace, comments or processing instructions after the root element is
// an error.
func DecodeDocument(r io.Reader) (*Document, error) {
	decoder := xml.NewDecoder(r)

	var doc Document
	if err := decoder.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty XML document")
		}
		return nil, fmt.Errorf("failed to decode XML: %w", err)
	}

	if err := expectEOF(decoder); err != nil {
		return nil, err
	}
	return &doc, nil
}

func expectEOF(decoder *xml.Decoder) error {
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to decode XML: %w", err)
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
			continue
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return fmt.Errorf("unexpected text after root element")
			}
		default:
			return fmt.Errorf("unexpected content after root element")
		}
	}
}

// ParseMarkup extracts open ports from nmap XML output. A host without a
// non-empty addr is skipped, and so is an open port without a portid: no
// fact is produced with an empty port.
func ParseMarkup(r io.Reader) ([]facts.PortFact, error) {
	doc, err := DecodeDocument(r)
	if err != nil {
		return nil, err
	}
	return doc.OpenPorts(), nil
}

// OpenPorts walks the document in order and returns one fact per open port.
// Hosts without an address or a ports element, and ports without a portid,
// are skipped.
func (d *Document) OpenPorts() []facts.PortFact {
	var result []facts.PortFact
	for _, host := range d.Hosts {
		addr, ok := host.Address()
		if !ok {
			continue
		}
		ports, ok := host.PortList()
		if !ok {
			continue
		}
		for _, port := range ports.Ports {
			if !port.IsOpen() {
				continue
			}
			id, ok := port.ID()
			if !ok {
				continue
			}
			result = append(result, facts.PortFact{Host: addr, Port: id})
		}
	}
	return result
}
