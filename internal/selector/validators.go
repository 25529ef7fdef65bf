package selector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jshin42/highschooltrends/internal/parse"
)

// Validation factors applied to the selector position score. A strict
// format match keeps the full score; a loose recovery is discounted.
const (
	factorStrict = 1.0
	factorLoose  = 0.6
)

var (
	gradesStrict = regexp.MustCompile(`^(K-|PK-)?\d{1,2}-\d{1,2}$`)
	gradesLoose  = regexp.MustCompile(`(K-|PK-)?\d{1,2}-\d{1,2}`)
	zipStrict    = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	zipLoose     = regexp.MustCompile(`\d{5}(-\d{4})?`)
	nonDigits    = regexp.MustCompile(`\D`)
	hostLike     = regexp.MustCompile(`^[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}(/\S*)?$`)

	// Phrases that mark an error page masquerading as content.
	nameBlacklist = []string{
		"page not found", "404", "access denied", "forbidden",
		"are you a robot", "error",
	}
)

// fieldValue is a validated, normalized field candidate.
type fieldValue struct {
	text   string
	number *float64
	factor float64
}

func strictValue(text string) (fieldValue, bool) {
	return fieldValue{text: text, factor: factorStrict}, true
}

func looseValue(text string) (fieldValue, bool) {
	return fieldValue{text: text, factor: factorLoose}, true
}

func numberValue(text string, n float64, factor float64) (fieldValue, bool) {
	return fieldValue{text: text, number: &n, factor: factor}, true
}

func reject() (fieldValue, bool) {
	return fieldValue{}, false
}

// percentageFields enumerates fields parsed through the percentage path;
// the demographics subset additionally accepts fraction-scaled decimals.
var percentageFields = map[string]bool{
	"ap_participation_rate": false, "ap_pass_rate": false,
	"math_proficiency": false, "reading_proficiency": false,
	"science_proficiency": false, "graduation_rate": false,
	"college_readiness_index": false,
	"white_pct":               true, "asian_pct": true, "hispanic_pct": true,
	"black_pct": true, "american_indian_pct": true, "two_or_more_pct": true,
	"female_pct": true, "male_pct": true, "econ_disadvantaged_pct": true,
}

// validateField normalizes and validates a raw candidate for one field.
// A false return means the candidate is unusable from this selector and
// the next selector in the list should be tried.
func validateField(field, raw string) (fieldValue, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return reject()
	}

	if allowFraction, isPct := percentageFields[field]; isPct {
		v, conf, ok := parse.Percentage(text, parse.PercentageOpts{AllowFraction: allowFraction})
		if !ok {
			return reject()
		}
		factor := factorStrict
		if conf == parse.ConfidenceScaledDecimal {
			factor = factorLoose
		}
		return numberValue(fmt.Sprintf("%g", v), v, factor)
	}

	switch field {
	case "name":
		if len(text) < 5 || len(text) > 100 {
			return reject()
		}
		lower := strings.ToLower(text)
		for _, phrase := range nameBlacklist {
			if strings.Contains(lower, phrase) {
				return reject()
			}
		}
		return strictValue(text)

	case "grades":
		if gradesStrict.MatchString(text) {
			return strictValue(text)
		}
		if m := gradesLoose.FindString(text); m != "" {
			return looseValue(m)
		}
		return reject()

	case "zip_code":
		if zipStrict.MatchString(text) {
			return strictValue(text)
		}
		if m := zipLoose.FindString(text); m != "" {
			return looseValue(m)
		}
		return reject()

	case "phone":
		digits := nonDigits.ReplaceAllString(text, "")
		if len(digits) == 11 && strings.HasPrefix(digits, "1") {
			digits = digits[1:]
			if formatted := formatPhone(digits); formatted != "" {
				return looseValue(formatted)
			}
			return reject()
		}
		if formatted := formatPhone(digits); formatted != "" {
			return strictValue(formatted)
		}
		return reject()

	case "website":
		if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
			return strictValue(text)
		}
		if hostLike.MatchString(text) {
			return looseValue("https://" + text)
		}
		return reject()

	case "setting":
		if len(text) > 50 {
			return reject()
		}
		return strictValue(text)

	case "enrollment", "full_time_teachers":
		n, _, ok := parse.Integer(text)
		if !ok || n <= 0 {
			return reject()
		}
		f := float64(n)
		return numberValue(fmt.Sprintf("%d", n), f, factorStrict)

	case "student_teacher_ratio":
		canonical, _, ok := parse.Ratio(text)
		if !ok {
			return reject()
		}
		return strictValue(canonical)

	case "street", "city", "state":
		if len(text) < 2 || len(text) > 120 {
			return reject()
		}
		return strictValue(text)

	default:
		return strictValue(text)
	}
}

func formatPhone(digits string) string {
	if len(digits) != 10 {
		return ""
	}
	return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
}
