// Package ranking recognizes ranking statements in profile text and
// classifies unranked pages. The dispatcher is a pure function over
// selector-tagged text fragments; the classifier is a pure function over
// the parsed document. Both are exposed standalone so they can be tested
// without the assembler.
package ranking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jshin42/highschooltrends/internal/schema"
)

// Fragment is one piece of dispatcher input: the text yielded by a single
// ranking-context selector, tagged with that selector's priority. Priority
// 1 is the authoritative inline element; only it can satisfy the
// authoritative pattern.
type Fragment struct {
	Selector string
	Priority int
	Text     string
}

// ParsedNational is a recognized national rank.
type ParsedNational struct {
	Rank       int
	RankEnd    *int
	Precision  schema.NationalPrecision
	Confidence float64
}

// ParsedState is a recognized state rank.
type ParsedState struct {
	Rank       int
	Precision  schema.StatePrecision
	Confidence float64
	StateName  string
}

// Extraction is the dispatcher output. Either side may be nil.
type Extraction struct {
	National *ParsedNational
	State    *ParsedState
}

// Pattern confidences, in precedence order.
const (
	confAuthoritative = 98
	confStandard      = 95
	confLoose         = 85
)

var (
	reAuthoritative = regexp.MustCompile(`(?i)ranked\s*#\s*(\d{1,2},\d{3}|\d{1,5})`)
	reRange         = regexp.MustCompile(`#\s*(\d{1,2},\d{3})\s*-\s*#?\s*(\d{1,2},\d{3})`)
	reComposite     = regexp.MustCompile(`(?i)#\s*(\d{1,2},\d{3}|\d{1,5})\s+in\s+national\s+rankings\s+#\s*(\d{1,2},\d{3}|\d{1,5})\s+in\s+([a-z][a-z ]+?)\s+high\s+schools?\b`)
	reStateOnly     = regexp.MustCompile(`(?i)#\s*(\d{1,2},\d{3}|\d{1,5})\s+in\s+([a-z][a-z ]+?)\s+high\s+schools?\b`)
	reNational      = regexp.MustCompile(`(?i)#\s*(\d{1,2},\d{3}|\d{1,5})\s+in\s+national\s+rankings?\b`)
	reLooseNational = regexp.MustCompile(`(?i)#\s*(\d{1,2},\d{3}|\d{1,5})[^#]{0,80}?\bnational\b`)
	reLooseState    = regexp.MustCompile(`#\s*(\d{1,2},\d{3}|\d{1,5})(?:\s+in)?\s+([A-Z][a-zA-Z]+)`)
)

func parseRankGroup(s string) (int, bool) {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil || n < 1 || n > schema.MaxNationalRank {
		return 0, false
	}
	return n, true
}

// Dispatch runs the pattern precedence over the given fragments and emits
// at most one national and one state rank. A pattern that would fill an
// already-filled slot is skipped, so higher-precedence matches preempt
// lower ones. Running it twice on the same input yields identical output.
func Dispatch(fragments []Fragment) (Extraction, []schema.ExtractionError) {
	var ext Extraction
	var errs []schema.ExtractionError

	authoritative := ""
	var parts []string
	for _, f := range fragments {
		if f.Priority == 1 && authoritative == "" {
			authoritative = f.Text
		}
		if t := strings.TrimSpace(f.Text); t != "" {
			parts = append(parts, t)
		}
	}
	full := strings.Join(parts, " ")
	if full == "" {
		return ext, errs
	}

	// 1. Authoritative inline rank, bound positionally to the
	// highest-priority selector's text.
	if authoritative != "" {
		if m := reAuthoritative.FindStringSubmatch(authoritative); m != nil {
			if n, ok := parseRankGroup(m[1]); ok {
				prec, end := DerivePrecision(n)
				ext.National = &ParsedNational{Rank: n, RankEnd: end, Precision: prec, Confidence: confAuthoritative}
			} else {
				errs = append(errs, schema.NewError("national_rank", schema.ErrValidation, schema.MethodRegex,
					fmt.Sprintf("authoritative rank out of range: %s", m[1])))
			}
		}
	}

	// 2. Bucket-2 range.
	if ext.National == nil {
		if m := reRange.FindStringSubmatch(full); m != nil {
			start, okS := parseRankGroup(m[1])
			end, okE := parseRankGroup(m[2])
			switch {
			case !okS || !okE:
				errs = append(errs, schema.NewError("national_rank", schema.ErrParse, schema.MethodRegex,
					fmt.Sprintf("unparseable range %s-%s", m[1], m[2])))
			case start < schema.RangeRankMin || start > schema.RangeRankMax || end < start || end > schema.RangeRankMax:
				errs = append(errs, schema.NewError("national_rank", schema.ErrValidation, schema.MethodRegex,
					fmt.Sprintf("range %d-%d violates bucket boundaries", start, end)))
			default:
				e := end
				ext.National = &ParsedNational{Rank: start, RankEnd: &e, Precision: schema.PrecisionRange, Confidence: confStandard}
			}
		}
	}

	// 3. Composite national + state. Tried before its substring
	// state-only pattern so the composite wins when both would match.
	if m := reComposite.FindStringSubmatch(full); m != nil && IsStateName(m[3]) {
		if ext.National == nil {
			if n, ok := parseRankGroup(m[1]); ok {
				prec, end := DerivePrecision(n)
				ext.National = &ParsedNational{Rank: n, RankEnd: end, Precision: prec, Confidence: confStandard}
			}
		}
		if ext.State == nil {
			if n, ok := parseRankGroup(m[2]); ok && n <= schema.MaxStateRank {
				ext.State = &ParsedState{Rank: n, Precision: schema.StatePrecisionExact, Confidence: confStandard, StateName: CanonicalStateName(m[3])}
			} else {
				errs = append(errs, schema.NewError("state_rank", schema.ErrValidation, schema.MethodRegex,
					fmt.Sprintf("state rank out of range: %s", m[2])))
			}
		}
	}

	// 4. State-only.
	if ext.State == nil {
		if m := reStateOnly.FindStringSubmatch(full); m != nil {
			name := strings.TrimSpace(m[2])
			if IsStateName(name) && !strings.EqualFold(name, "national") {
				if n, ok := parseRankGroup(m[1]); ok && n <= schema.MaxStateRank {
					ext.State = &ParsedState{Rank: n, Precision: schema.StatePrecisionStateOnly, Confidence: confStandard, StateName: CanonicalStateName(name)}
				} else {
					errs = append(errs, schema.NewError("state_rank", schema.ErrValidation, schema.MethodRegex,
						fmt.Sprintf("state rank out of range: %s", m[1])))
				}
			}
		}
	}

	// 5. Standard national.
	if ext.National == nil {
		if m := reNational.FindStringSubmatch(full); m != nil {
			if n, ok := parseRankGroup(m[1]); ok {
				prec, end := DerivePrecision(n)
				ext.National = &ParsedNational{Rank: n, RankEnd: end, Precision: prec, Confidence: confStandard}
			} else {
				errs = append(errs, schema.NewError("national_rank", schema.ErrValidation, schema.MethodRegex,
					fmt.Sprintf("national rank out of range: %s", m[1])))
			}
		}
	}

	// 6. Loose national fallback.
	if ext.National == nil {
		if m := reLooseNational.FindStringSubmatch(full); m != nil {
			if n, ok := parseRankGroup(m[1]); ok {
				prec, end := DerivePrecision(n)
				ext.National = &ParsedNational{Rank: n, RankEnd: end, Precision: prec, Confidence: confLoose}
			}
		}
	}

	// 7. Loose state fallback. The trailing capitalized word must not be
	// "National"; a word outside the closed list is kept verbatim.
	if ext.State == nil {
		for _, m := range reLooseState.FindAllStringSubmatch(full, -1) {
			word := m[2]
			if strings.EqualFold(word, "national") {
				continue
			}
			n, ok := parseRankGroup(m[1])
			if !ok || n > schema.MaxStateRank {
				continue
			}
			name := word
			if canonical := CanonicalStateName(word); canonical != "" {
				name = canonical
			}
			ext.State = &ParsedState{Rank: n, Precision: schema.StatePrecisionEstimated, Confidence: confLoose, StateName: name}
			break
		}
	}

	return ext, errs
}
