// Package selector implements ordered-selector field extraction: for each
// field an ordered list of CSS selectors is tried most-specific first, and
// the first candidate that validates wins. Confidence combines the
// selector's position in the list with the validation strictness.
package selector

import (
	"fmt"
	"strings"

	"github.com/jshin42/highschooltrends/internal/htmldoc"
	"github.com/jshin42/highschooltrends/internal/ranking"
	"github.com/jshin42/highschooltrends/internal/schema"
)

// Position scores by rank in the selector list.
const (
	scoreFirst  = 95
	scoreMiddle = 85
	scoreLast   = 70
)

// Result is one validated field extraction.
type Result struct {
	Field      string
	Text       string
	Number     *float64
	Confidence float64
	Selector   string
}

// Extractor applies configured selector lists to parsed documents.
type Extractor struct {
	selectors map[string][]string
}

// New creates an extractor over the given per-field selector lists.
func New(selectors map[string][]string) *Extractor {
	return &Extractor{selectors: selectors}
}

// positionScore maps a selector's index within its list to a base score.
func positionScore(index, total int) float64 {
	switch {
	case index == 0:
		return scoreFirst
	case index == total-1:
		return scoreLast
	default:
		return scoreMiddle
	}
}

// candidateText pulls the raw candidate for a field from a matched node.
// Website and phone prefer the link target over the anchor text.
func candidateText(field string, node *htmldoc.Document) string {
	switch field {
	case "website":
		if href, ok := node.Attr("href"); ok && href != "" {
			return href
		}
	case "phone":
		if href, ok := node.Attr("href"); ok && strings.HasPrefix(href, "tel:") {
			return strings.TrimPrefix(href, "tel:")
		}
	}
	return node.Text()
}

// Extract tries each selector for the field in order and returns the first
// validating value. The boolean reports whether a value was found; the
// error list carries the misses and rejects accumulated along the way.
func (e *Extractor) Extract(doc *htmldoc.Document, field string) (Result, []schema.ExtractionError, bool) {
	selectors := e.selectors[field]
	if len(selectors) == 0 {
		return Result{}, []schema.ExtractionError{
			schema.NewError(field, schema.ErrMissingElement, schema.MethodSelector, "no selectors configured"),
		}, false
	}

	var errs []schema.ExtractionError
	matchedAny := false
	for i, sel := range selectors {
		node := doc.First(sel)
		if !node.Exists() {
			continue
		}
		matchedAny = true
		raw := candidateText(field, node)
		value, ok := validateField(field, raw)
		if !ok {
			errs = append(errs, schema.NewError(field, schema.ErrValidation, schema.MethodSelector,
				fmt.Sprintf("selector %q yielded invalid value %q", sel, truncate(raw, 60))))
			continue
		}
		return Result{
			Field:      field,
			Text:       value.text,
			Number:     value.number,
			Confidence: positionScore(i, len(selectors)) * value.factor,
			Selector:   sel,
		}, errs, true
	}

	kind := schema.ErrSelectorMiss
	msg := fmt.Sprintf("no selector matched (%d tried)", len(selectors))
	if matchedAny {
		kind = schema.ErrParse
		msg = "all matched candidates failed validation"
	}
	errs = append(errs, schema.NewError(field, kind, schema.MethodSelector, msg))
	return Result{}, errs, false
}

// RankingFragments collects the text of each ranking-context selector in
// priority order for the dispatcher. Missing selectors yield no fragment;
// priorities keep their configured positions so the authoritative selector
// stays priority 1 even when later selectors are the only ones matching.
func RankingFragments(doc *htmldoc.Document, contextSelectors []string) []ranking.Fragment {
	var out []ranking.Fragment
	for i, sel := range contextSelectors {
		node := doc.First(sel)
		if !node.Exists() {
			continue
		}
		out = append(out, ranking.Fragment{Selector: sel, Priority: i + 1, Text: node.Text()})
	}
	return out
}

// Normalize validates a raw candidate outside the selector iteration, for
// callers seeding fields from other tiers (structured data). It returns
// the normalized text, the numeric value when the field is numeric, and
// the validation factor.
func Normalize(field, raw string) (text string, number *float64, factor float64, ok bool) {
	value, ok := validateField(field, raw)
	if !ok {
		return "", nil, 0, false
	}
	return value.text, value.number, value.factor, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
