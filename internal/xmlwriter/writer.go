// =============================================================================
// Property Feed Converter - XML Writer Module
// =============================================================================
//
// This module serializes the element trees produced by the document builders.
// Output is UTF-8 with an XML declaration and two-space indentation:
//
//   <?xml version="1.0" encoding="UTF-8"?>
//   <realestates:houseBuy xmlns:realestates="..." xmlns:xlink="..." xmlns:common="...">
//     <externalId>V-1</externalId>
//     <address>
//       <street>Street in Marbella</street>
//       ...
//     </address>
//     <descriptionNote><![CDATA[Villa: ...]]></descriptionNote>
//     ...
//   </realestates:houseBuy>
//
// Only the root element carries a prefix. Body elements are unqualified.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Namespaces declared on every document root.
const (
	NamespaceRealEstates = "http://rest.immobilienscout24.de/schema/offer/realestates/1.0"
	NamespaceXLink       = "http://www.w3.org/1999/xlink"
	NamespaceCommon      = "http://rest.immobilienscout24.de/schema/common/1.0"

	xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"
	indent         = "  "
)

// =============================================================================
// ELEMENT TREE
// =============================================================================

// XMLElement is one node of a document under construction.
type XMLElement struct {
	XMLName    xml.Name
	Attributes []xml.Attr
	Value      string
	Children   []*XMLElement

	// CDATA emits Value as a character-data section instead of escaped text.
	CDATA bool
}

// newRoot creates the prefixed root element with all namespace declarations.
func newRoot(local string) *XMLElement {
	return &XMLElement{
		XMLName: xml.Name{Space: "realestates", Local: local},
		Attributes: []xml.Attr{
			{Name: xml.Name{Space: "xmlns", Local: "realestates"}, Value: NamespaceRealEstates},
			{Name: xml.Name{Space: "xmlns", Local: "xlink"}, Value: NamespaceXLink},
			{Name: xml.Name{Space: "xmlns", Local: "common"}, Value: NamespaceCommon},
		},
	}
}

// child appends a new empty element named name and returns it.
func (e *XMLElement) child(name string) *XMLElement {
	c := &XMLElement{XMLName: xml.Name{Local: name}}
	e.Children = append(e.Children, c)
	return c
}

// text appends a text element.
func (e *XMLElement) text(name, value string) *XMLElement {
	c := e.child(name)
	c.Value = value
	return c
}

// cdata appends a character-data element.
func (e *XMLElement) cdata(name, value string) *XMLElement {
	c := e.text(name, value)
	c.CDATA = true
	return c
}

// Find returns the first descendant (depth first) named local, or nil.
func (e *XMLElement) Find(local string) *XMLElement {
	for _, c := range e.Children {
		if c.XMLName.Local == local {
			return c
		}
		if found := c.Find(local); found != nil {
			return found
		}
	}
	return nil
}

// =============================================================================
// SERIALIZATION
// =============================================================================

// Marshal serializes root as a complete document.
func Marshal(root *XMLElement) []byte {
	var buffer bytes.Buffer
	buffer.WriteString(xmlDeclaration)
	writeElement(&buffer, root, 0)
	return buffer.Bytes()
}

// writeElement writes an element and its children with indentation.
func writeElement(buffer *bytes.Buffer, element *XMLElement, level int) {
	buffer.WriteString(strings.Repeat(indent, level))

	name := qualifiedName(element.XMLName)
	buffer.WriteString("<")
	buffer.WriteString(name)

	for _, attr := range element.Attributes {
		fmt.Fprintf(buffer, " %s=\"%s\"", qualifiedName(attr.Name), escapeXML(attr.Value))
	}

	switch {
	case element.CDATA:
		buffer.WriteString(">")
		buffer.WriteString(wrapCDATA(element.Value))
	case len(element.Children) == 0 && element.Value == "":
		buffer.WriteString("/>\n")
		return
	case len(element.Children) == 0:
		buffer.WriteString(">")
		buffer.WriteString(escapeXML(element.Value))
	default:
		buffer.WriteString(">\n")
		for _, child := range element.Children {
			writeElement(buffer, child, level+1)
		}
		buffer.WriteString(strings.Repeat(indent, level))
	}

	buffer.WriteString("</")
	buffer.WriteString(name)
	buffer.WriteString(">\n")
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// wrapCDATA wraps s in a CDATA section. A "]]>" inside s is split across two
// sections.
func wrapCDATA(s string) string {
	return "<![CDATA[" + strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>") + "]]>"
}

// escapeXML escapes special characters for XML.
func escapeXML(s string) string {
	var buffer bytes.Buffer

	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&apos;")
		default:
			buffer.WriteRune(r)
		}
	}

	return buffer.String()
}

// =============================================================================
// WELL-FORMEDNESS
// =============================================================================

// CheckWellFormed parses data once and reports the first syntax error. A
// document must have exactly one root element.
func CheckWellFormed(data []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	depth, roots := 0, 0
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("malformed document: %w", err)
		}
		switch tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}

	if roots != 1 {
		return fmt.Errorf("malformed document: expected one root element, found %d", roots)
	}
	return nil
}
