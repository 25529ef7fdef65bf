// Package structured reads the embedded schema.org JSON-LD blocks on a
// profile page and lifts the canonical identity fields. Structured data is
// authoritative for identity; rankings found in its description text are
// only a secondary source, so the description is returned raw for the
// dispatcher rather than interpreted here.
package structured

import (
	"encoding/json"
	"strings"

	"github.com/jshin42/highschooltrends/internal/htmldoc"
	"github.com/jshin42/highschooltrends/internal/schema"
)

// Lifted field confidences. Identity fields in machine-readable blocks are
// the most trustworthy source the page offers.
const (
	ConfidenceName    = 95
	ConfidenceContact = 90
	ConfidenceAddress = 90
)

// Data holds the fields lifted from a HighSchool entity block. Empty
// strings mean the block did not carry the key.
type Data struct {
	Name        string
	Telephone   string
	Street      string
	City        string
	State       string
	Zip         string
	Description string
}

// Found reports whether any identity field was lifted.
func (d *Data) Found() bool {
	return d != nil && (d.Name != "" || d.Telephone != "" || d.Street != "" ||
		d.City != "" || d.State != "" || d.Zip != "")
}

// Extract scans every JSON-LD block for a HighSchool entity and lifts its
// identity fields. Malformed blocks are skipped with a parse error; a page
// with no usable block yields (nil, errs).
func Extract(doc *htmldoc.Document) (*Data, []schema.ExtractionError) {
	var errs []schema.ExtractionError

	blocks := doc.All(`script[type="application/ld+json"]`)
	if len(blocks) == 0 {
		return nil, errs
	}

	for _, block := range blocks {
		raw := strings.TrimSpace(block.RawText())
		if raw == "" {
			continue
		}
		var payload any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			errs = append(errs, schema.NewError("structured_data", schema.ErrParse,
				schema.MethodStructuredData, "malformed JSON-LD block: "+err.Error()))
			continue
		}
		for _, entity := range flatten(payload) {
			if !isHighSchool(entity) {
				continue
			}
			return lift(entity), errs
		}
	}
	return nil, errs
}

// flatten yields every candidate entity in a payload: the object itself,
// members of a top-level array, and members of an @graph array.
func flatten(payload any) []map[string]any {
	var out []map[string]any
	switch v := payload.(type) {
	case map[string]any:
		out = append(out, v)
		if graph, ok := v["@graph"].([]any); ok {
			for _, item := range graph {
				if m, ok := item.(map[string]any); ok {
					out = append(out, m)
				}
			}
		}
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

// isHighSchool accepts @type as a string or a list of strings.
func isHighSchool(entity map[string]any) bool {
	switch t := entity["@type"].(type) {
	case string:
		return strings.EqualFold(t, "HighSchool")
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, "HighSchool") {
				return true
			}
		}
	}
	return false
}

func lift(entity map[string]any) *Data {
	d := &Data{
		Name:        str(entity["name"]),
		Telephone:   str(entity["telephone"]),
		Description: str(entity["description"]),
	}
	// The feed nests the postal address under location.address; some
	// captures carry it at the top level instead.
	address, _ := dig(entity, "location", "address").(map[string]any)
	if address == nil {
		address, _ = entity["address"].(map[string]any)
	}
	if address != nil {
		d.Street = str(address["streetAddress"])
		d.City = str(address["addressLocality"])
		d.State = str(address["addressRegion"])
		d.Zip = str(address["postalCode"])
	}
	return d
}

// dig walks nested maps by key, returning nil when any level is absent.
func dig(m map[string]any, keys ...string) any {
	var current any = m
	for _, key := range keys {
		node, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = node[key]
	}
	return current
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
