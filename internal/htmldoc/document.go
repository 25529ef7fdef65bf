// Package htmldoc wraps goquery behind the small query surface the
// extraction tiers need: select, scoped select, trimmed text, attributes.
// Parsing never fails; malformed input yields an empty document and the
// pipeline treats an empty document as "no data".
package htmldoc

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is a queryable view over parsed HTML. A Document obtained from
// Scoped restricts all operations to that subtree.
type Document struct {
	sel *goquery.Selection
}

// Parse builds a Document from raw bytes. Inputs the parser cannot make
// sense of come back as an empty document, never an error.
func Parse(data []byte) *Document {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Document{}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return &Document{}
	}
	return &Document{sel: doc.Selection}
}

// Empty reports whether the document holds no queryable content.
func (d *Document) Empty() bool {
	return d == nil || d.sel == nil || strings.TrimSpace(d.sel.Text()) == ""
}

// First returns the first node matching the selector, or an empty document.
func (d *Document) First(selector string) *Document {
	if d == nil || d.sel == nil {
		return &Document{}
	}
	found := d.sel.Find(selector).First()
	if found.Length() == 0 {
		return &Document{}
	}
	return &Document{sel: found}
}

// All returns every node matching the selector as individual documents.
func (d *Document) All(selector string) []*Document {
	if d == nil || d.sel == nil {
		return nil
	}
	var out []*Document
	d.sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &Document{sel: s})
	})
	return out
}

// Scoped anchors a subtree at the first selector match. All operations on
// the returned document stay inside that subtree.
func (d *Document) Scoped(selector string) *Document {
	return d.First(selector)
}

// Exists reports whether the document points at at least one node.
func (d *Document) Exists() bool {
	return d != nil && d.sel != nil && d.sel.Length() > 0
}

// Text returns the node's text content with surrounding whitespace trimmed
// and internal runs of whitespace collapsed to single spaces.
func (d *Document) Text() string {
	if d == nil || d.sel == nil {
		return ""
	}
	return strings.Join(strings.Fields(d.sel.Text()), " ")
}

// RawText returns the node's text content trimmed but not collapsed.
func (d *Document) RawText() string {
	if d == nil || d.sel == nil {
		return ""
	}
	return strings.TrimSpace(d.sel.Text())
}

// Attr returns an attribute value from the first node.
func (d *Document) Attr(name string) (string, bool) {
	if d == nil || d.sel == nil {
		return "", false
	}
	v, ok := d.sel.Attr(name)
	return strings.TrimSpace(v), ok
}

// HTML returns the inner HTML of the node, or "" when unavailable.
func (d *Document) HTML() string {
	if d == nil || d.sel == nil {
		return ""
	}
	h, err := d.sel.Html()
	if err != nil {
		return ""
	}
	return h
}
