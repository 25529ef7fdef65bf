package ranking

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jshin42/highschooltrends/internal/htmldoc"
)

// Verdict is the unranked classifier output. Confidence 0 means the
// classifier found no evidence either way and the dispatcher must decide.
type Verdict struct {
	Unranked   bool
	Confidence float64
	Reason     string
}

// visible rank patterns that disqualify an explicit unranked marker when
// they appear inside the same ranking-section subtree.
var (
	reVisibleRanked  = regexp.MustCompile(`(?i)ranked\s*#\s*\d+`)
	reVisibleInRank  = regexp.MustCompile(`(?i)#\d{1,2}(?:,\d{3})?\d{0,3}\s+in\s+(national|state)`)
	reSelfRanked     = regexp.MustCompile(`(?i)is\s+ranked\s*#\s*\d`)
	reSelfUnranked   = regexp.MustCompile(`(?i)this\s+school\s+is\s+(?:currently\s+)?unranked`)
	unrankedIndicators = []string{
		"ranking not available",
		"insufficient data for ranking",
		"not ranked this year",
	}
)

// countOccurrences counts non-overlapping case-insensitive occurrences.
func countOccurrences(haystack, needle string) int {
	return strings.Count(strings.ToLower(haystack), strings.ToLower(needle))
}

// Classify decides ranked vs unranked before the dispatcher runs. The
// decision procedure is ordered; the first rule with evidence wins.
//
// Rule 1 is scoped: the explicit "Unranked" marker only counts inside the
// subtree anchored by sectionSelector, and only when that subtree shows no
// visible rank pattern. The scoping is what keeps promotional blurbs about
// nearby institutions from flipping the verdict.
func Classify(doc *htmldoc.Document, sectionSelector, schoolName, slug string) Verdict {
	if doc.Empty() {
		return Verdict{Unranked: false, Confidence: 0, Reason: "empty document"}
	}
	body := doc.Text()

	// 1. Scoped explicit marker.
	if sectionSelector != "" {
		section := doc.Scoped(sectionSelector)
		if section.Exists() {
			sectionText := section.Text()
			hasVisibleRank := reVisibleRanked.MatchString(sectionText) || reVisibleInRank.MatchString(sectionText)
			if !hasVisibleRank {
				for _, strong := range append(section.All("strong"), section.All("b")...) {
					if strings.EqualFold(strings.TrimSpace(strong.Text()), "unranked") {
						return Verdict{
							Unranked:   true,
							Confidence: 95,
							Reason:     fmt.Sprintf("explicit marker in ranking section (%s)", sectionSelector),
						}
					}
				}
			}
		}
	}

	// 2. Counted body markers.
	ranked := countOccurrences(body, "Ranked School")
	unranked := countOccurrences(body, "Unranked School")
	// "Unranked School" also contains "ranked School"; discount the overlap.
	ranked -= unranked
	if ranked > unranked {
		return Verdict{Unranked: false, Confidence: 90, Reason: "ranked-school markers outnumber unranked"}
	}

	// 3. Self-referential ranked sentence.
	if ident := selfIdentifier(body, schoolName, slug); ident != "" {
		return Verdict{Unranked: false, Confidence: 95, Reason: fmt.Sprintf("self-referential ranked sentence (%s)", ident)}
	}

	// 4. Self-referential unranked sentence.
	if reSelfUnranked.MatchString(body) {
		return Verdict{Unranked: true, Confidence: 90, Reason: "self-referential unranked sentence"}
	}

	// 5. Strong textual unranked indicators.
	for _, strong := range append(doc.All("strong"), doc.All("b")...) {
		if strings.EqualFold(strings.TrimSpace(strong.Text()), "unranked") {
			return Verdict{Unranked: true, Confidence: 90, Reason: "strong unranked marker in body"}
		}
	}
	lower := strings.ToLower(body)
	for _, indicator := range unrankedIndicators {
		if strings.Contains(lower, indicator) {
			return Verdict{Unranked: true, Confidence: 90, Reason: fmt.Sprintf("textual indicator %q", indicator)}
		}
	}

	// 6. Default: let the dispatcher do the work.
	return Verdict{Unranked: false, Confidence: 0, Reason: "no unranked evidence"}
}

// selfIdentifier returns the matched identifier when the body contains a
// "<school> is ranked #N" sentence naming the school itself.
func selfIdentifier(body, schoolName, slug string) string {
	for _, ident := range []string{schoolName, slugWords(slug)} {
		ident = strings.TrimSpace(ident)
		if ident == "" {
			continue
		}
		idx := strings.Index(strings.ToLower(body), strings.ToLower(ident))
		if idx < 0 {
			continue
		}
		// The ranked clause must follow the identifier closely enough to
		// belong to the same sentence.
		window := body[idx:]
		if len(window) > len(ident)+120 {
			window = window[:len(ident)+120]
		}
		if reSelfRanked.MatchString(window) {
			return ident
		}
	}
	return ""
}

// slugWords turns "lincoln-high-school" into "lincoln high school".
func slugWords(slug string) string {
	return strings.TrimSpace(strings.ReplaceAll(slug, "-", " "))
}
