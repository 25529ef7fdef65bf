// Package assemble orchestrates one document's extraction: structured-data
// bootstrap, unranked classification, ranking dispatch, selector sweep,
// confidence scoring, and status tagging. The assembler exclusively owns
// the in-progress record; every tier returns contributions it merges.
package assemble

import (
	"fmt"
	"time"

	"github.com/jshin42/highschooltrends/internal/config"
	"github.com/jshin42/highschooltrends/internal/confidence"
	"github.com/jshin42/highschooltrends/internal/htmldoc"
	"github.com/jshin42/highschooltrends/internal/observe"
	"github.com/jshin42/highschooltrends/internal/ranking"
	"github.com/jshin42/highschooltrends/internal/schema"
	"github.com/jshin42/highschooltrends/internal/selector"
	"github.com/jshin42/highschooltrends/internal/structured"
)

// Status coverage cutoffs over the mandatory field set.
const (
	extractedCoverage = 0.8
	partialCoverage   = 0.3
)

// mandatoryFields is the set whose coverage drives the status tag. The
// ranking slot counts as populated once either a rank or an unranked
// verdict is present.
var mandatoryFields = []string{
	"name", "grades", "street", "city", "state", "zip_code", "phone",
	"website", "enrollment", "student_teacher_ratio",
}

// Assembler builds SchoolRecords from captured documents.
type Assembler struct {
	cfg        *config.Config
	extractor  *selector.Extractor
	weights    confidence.Weights
	thresholds confidence.Thresholds
	obs        observe.Observer
}

// New creates an assembler. The observer must not be nil; use
// observe.Nop() when no logging is wanted.
func New(cfg *config.Config, obs observe.Observer) *Assembler {
	return &Assembler{
		cfg:       cfg,
		extractor: selector.New(cfg.Selectors),
		weights:   confidence.DefaultWeights(),
		thresholds: confidence.Thresholds{
			MinOverall:    cfg.Thresholds.MinOverall,
			MinIdentity:   cfg.Thresholds.MinIdentity,
			MinSupporting: cfg.Thresholds.MinSupporting,
		},
		obs: obs,
	}
}

// Extract runs the full per-document pipeline. It never returns an error:
// total failures come back as a failed record with a synthetic error.
func (a *Assembler) Extract(capture schema.CaptureRecord, body []byte) schema.ExtractionResult {
	start := time.Now()
	a.obs.DocumentStarted(capture)

	rec := schema.SchoolRecord{
		Slug:             capture.Slug,
		SourceYear:       capture.SourceYear,
		SourceFile:       capture.FilePath,
		ExtractionStatus: schema.StatusExtracting,
	}
	var errs []schema.ExtractionError
	fieldConf := map[string]float64{}

	doc := htmldoc.Parse(body)
	if doc.Empty() {
		synthetic := schema.NewError("document", schema.ErrMissingElement, schema.MethodHeuristic,
			"document parsed to an empty tree")
		a.obs.Error(capture.Slug, synthetic)
		rec.ExtractionStatus = schema.StatusFailed
		rec.ExtractionErrors = []schema.ExtractionError{synthetic}
		rec.ExtractedAt = time.Now()
		return schema.ExtractionResult{Record: rec, Errors: rec.ExtractionErrors, Elapsed: time.Since(start)}
	}

	// Structured data seeds identity and location.
	sdata := a.seedStructured(doc, &rec, fieldConf, &errs)

	// Unranked verdict gates the dispatcher.
	verdict := a.classify(doc, &rec, sdata, &errs)
	if verdict.Unranked && verdict.Confidence >= 90 {
		rec.IsUnranked = true
		reason := verdict.Reason
		rec.UnrankedReason = &reason
		fieldConf["is_unranked"] = verdict.Confidence
		a.obs.UnrankedDecision(capture.Slug, verdict.Reason, verdict.Confidence)
	} else {
		a.dispatchRankings(doc, sdata, &rec, fieldConf, &errs)
	}

	// Selector sweep over the remaining fields.
	a.sweepFields(doc, &rec, fieldConf, &errs)

	scores := confidence.Score(&rec, fieldConf, a.weights, a.thresholds)
	rec.CategoryConfidences = scores.Categories
	rec.OverallConfidence = scores.Overall
	rec.ExtractionStatus = a.deriveStatus(&rec)
	rec.ExtractionErrors = errs
	rec.ExtractedAt = time.Now()

	a.obs.RecordCompleted(capture.Slug, rec.ExtractionStatus, rec.OverallConfidence, len(errs))
	return schema.ExtractionResult{
		Record:   rec,
		Errors:   errs,
		Accepted: scores.Accepted,
		Elapsed:  time.Since(start),
	}
}

// seedStructured lifts identity fields from JSON-LD. Values still pass the
// field validators; a structured value that fails validation is recorded
// and skipped rather than trusted.
func (a *Assembler) seedStructured(doc *htmldoc.Document, rec *schema.SchoolRecord, fieldConf map[string]float64, errs *[]schema.ExtractionError) *structured.Data {
	var data *structured.Data
	a.guard("structured_data", schema.MethodStructuredData, errs, func() {
		var serrs []schema.ExtractionError
		data, serrs = structured.Extract(doc)
		*errs = append(*errs, serrs...)
	})
	if data == nil {
		return nil
	}

	seed := func(field, raw string, conf float64) {
		if raw == "" {
			return
		}
		text, number, _, ok := selector.Normalize(field, raw)
		if !ok {
			*errs = append(*errs, schema.NewError(field, schema.ErrValidation, schema.MethodStructuredData,
				fmt.Sprintf("structured value %q failed validation", raw)))
			return
		}
		a.setField(rec, field, text, number)
		fieldConf[field] = conf
		a.obs.FieldExtracted(rec.Slug, field, conf)
	}

	seed("name", data.Name, structured.ConfidenceName)
	seed("phone", data.Telephone, structured.ConfidenceContact)
	seed("street", data.Street, structured.ConfidenceAddress)
	seed("city", data.City, structured.ConfidenceAddress)
	seed("state", data.State, structured.ConfidenceAddress)
	seed("zip_code", data.Zip, structured.ConfidenceAddress)
	return data
}

func (a *Assembler) classify(doc *htmldoc.Document, rec *schema.SchoolRecord, sdata *structured.Data, errs *[]schema.ExtractionError) ranking.Verdict {
	name := ""
	if rec.Name != nil {
		name = *rec.Name
	} else if sdata != nil {
		name = sdata.Name
	}
	verdict := ranking.Verdict{}
	a.guard("is_unranked", schema.MethodHeuristic, errs, func() {
		verdict = ranking.Classify(doc, a.cfg.Ranking.SectionSelector, name, rec.Slug)
	})
	return verdict
}

// dispatchRankings feeds ranking-context fragments to the dispatcher. The
// structured-data description is appended as a trailing low-priority
// fragment: the HTML body stays authoritative when the two disagree.
func (a *Assembler) dispatchRankings(doc *htmldoc.Document, sdata *structured.Data, rec *schema.SchoolRecord, fieldConf map[string]float64, errs *[]schema.ExtractionError) {
	fragments := selector.RankingFragments(doc, a.cfg.Ranking.ContextSelectors)
	bodyCount := len(fragments)
	if sdata != nil && sdata.Description != "" {
		fragments = append(fragments, ranking.Fragment{
			Selector: "jsonld:description",
			Priority: len(a.cfg.Ranking.ContextSelectors) + 1,
			Text:     sdata.Description,
		})
	}
	if len(fragments) == 0 {
		*errs = append(*errs, schema.NewError("national_rank", schema.ErrMissingElement, schema.MethodSelector,
			"no ranking context selector matched"))
		return
	}

	var ext ranking.Extraction
	a.guard("national_rank", schema.MethodRegex, errs, func() {
		var derrs []schema.ExtractionError
		ext, derrs = ranking.Dispatch(fragments)
		*errs = append(*errs, derrs...)
		if bodyCount < len(fragments) {
			// Every slot the body fills on its own keeps the body's value;
			// the description only fills slots the body leaves empty.
			body, _ := ranking.Dispatch(fragments[:bodyCount])
			if body.National != nil {
				ext.National = body.National
			}
			if body.State != nil {
				ext.State = body.State
			}
		}
	})

	precision := ""
	if ext.National != nil {
		n := ext.National
		rec.NationalRank = &n.Rank
		rec.NationalRankEnd = n.RankEnd
		p := n.Precision
		rec.NationalRankPrecision = &p
		fieldConf["national_rank"] = n.Confidence
		precision = string(n.Precision)
		a.obs.FieldExtracted(rec.Slug, "national_rank", n.Confidence)
	}
	if ext.State != nil {
		s := ext.State
		rec.StateRank = &s.Rank
		p := s.Precision
		rec.StateRankPrecision = &p
		if conf, ok := fieldConf["state_rank"]; !ok || s.Confidence > conf {
			fieldConf["state_rank"] = s.Confidence
		}
		if precision == "" {
			precision = string(s.Precision)
		}
		a.obs.FieldExtracted(rec.Slug, "state_rank", s.Confidence)
	}
	if ext.National != nil || ext.State != nil {
		a.obs.RankingResolved(rec.Slug, rec.NationalRank, rec.StateRank, precision)
	}
}

// sweepFields runs the ordered-selector extractor over every configured
// field, merging results over structured-data seeds only on strictly
// higher confidence.
func (a *Assembler) sweepFields(doc *htmldoc.Document, rec *schema.SchoolRecord, fieldConf map[string]float64, errs *[]schema.ExtractionError) {
	for _, field := range config.FieldNames() {
		var res selector.Result
		var ok bool
		a.guard(field, schema.MethodSelector, errs, func() {
			var ferrs []schema.ExtractionError
			res, ferrs, ok = a.extractor.Extract(doc, field)
			if existing, seeded := fieldConf[field]; ok && seeded {
				if res.Confidence <= existing {
					// Keep the higher-confidence seed; the selector result
					// is discarded without an error entry.
					ok = false
					return
				}
				// Two tiers produced validating values; the override is
				// recorded so downstream consumers can see the tie-break.
				*errs = append(*errs, schema.NewError(field, schema.ErrAmbiguous, schema.MethodSelector,
					fmt.Sprintf("selector value overrode structured seed (%.0f > %.0f)", res.Confidence, existing)))
			}
			*errs = append(*errs, ferrs...)
		})
		if !ok {
			continue
		}
		a.setField(rec, field, res.Text, res.Number)
		fieldConf[field] = res.Confidence
		a.obs.FieldExtracted(rec.Slug, field, res.Confidence)
	}
}

// guard converts a panicking component into a method_failure error so one
// broken tier never aborts the document.
func (a *Assembler) guard(field string, method schema.Method, errs *[]schema.ExtractionError, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e := schema.NewError(field, schema.ErrMethodFailure, method, fmt.Sprintf("internal failure: %v", r))
			*errs = append(*errs, e)
			a.obs.Error(field, e)
		}
	}()
	fn()
}

// setField writes a validated value into its typed record slot.
func (a *Assembler) setField(rec *schema.SchoolRecord, field, text string, number *float64) {
	setStr := func(dst **string) {
		v := text
		*dst = &v
	}
	setInt := func(dst **int) {
		if number == nil {
			return
		}
		v := int(*number)
		*dst = &v
	}
	setFloat := func(dst **float64) {
		if number == nil {
			return
		}
		v := *number
		*dst = &v
	}

	switch field {
	case "name":
		setStr(&rec.Name)
	case "grades":
		setStr(&rec.Grades)
	case "street":
		setStr(&rec.Street)
	case "city":
		setStr(&rec.City)
	case "state":
		setStr(&rec.State)
	case "zip_code":
		setStr(&rec.ZipCode)
	case "phone":
		setStr(&rec.Phone)
	case "website":
		setStr(&rec.Website)
	case "setting":
		setStr(&rec.SettingClassification)
	case "enrollment":
		setInt(&rec.Enrollment)
	case "student_teacher_ratio":
		setStr(&rec.StudentTeacherRatio)
	case "full_time_teachers":
		setInt(&rec.FullTimeTeachers)
	case "ap_participation_rate":
		setFloat(&rec.APParticipationRate)
	case "ap_pass_rate":
		setFloat(&rec.APPassRate)
	case "math_proficiency":
		setFloat(&rec.MathProficiency)
	case "reading_proficiency":
		setFloat(&rec.ReadingProficiency)
	case "science_proficiency":
		setFloat(&rec.ScienceProficiency)
	case "graduation_rate":
		setFloat(&rec.GraduationRate)
	case "college_readiness_index":
		setFloat(&rec.CollegeReadiness)
	case "white_pct":
		setFloat(&rec.WhitePct)
	case "asian_pct":
		setFloat(&rec.AsianPct)
	case "hispanic_pct":
		setFloat(&rec.HispanicPct)
	case "black_pct":
		setFloat(&rec.BlackPct)
	case "american_indian_pct":
		setFloat(&rec.AmericanIndianPct)
	case "two_or_more_pct":
		setFloat(&rec.TwoOrMorePct)
	case "female_pct":
		setFloat(&rec.FemalePct)
	case "male_pct":
		setFloat(&rec.MalePct)
	case "econ_disadvantaged_pct":
		setFloat(&rec.EconDisadvantagedPct)
	}
}

// deriveStatus tags the record from mandatory-field coverage. A record
// with no ranking resolution can never be tagged extracted.
func (a *Assembler) deriveStatus(rec *schema.SchoolRecord) schema.ExtractionStatus {
	populated := 0
	for _, field := range mandatoryFields {
		if a.fieldPopulated(rec, field) {
			populated++
		}
	}
	rankingResolved := rec.IsUnranked || rec.NationalRank != nil || rec.StateRank != nil
	if rankingResolved {
		populated++
	}
	coverage := float64(populated) / float64(len(mandatoryFields)+1)

	switch {
	case coverage >= extractedCoverage && rankingResolved:
		return schema.StatusExtracted
	case coverage >= extractedCoverage:
		// Rank-less records cap at partial so "extracted" always implies a
		// ranking resolution.
		return schema.StatusPartial
	case coverage >= partialCoverage:
		return schema.StatusPartial
	default:
		return schema.StatusFailed
	}
}

func (a *Assembler) fieldPopulated(rec *schema.SchoolRecord, field string) bool {
	switch field {
	case "name":
		return rec.Name != nil
	case "grades":
		return rec.Grades != nil
	case "street":
		return rec.Street != nil
	case "city":
		return rec.City != nil
	case "state":
		return rec.State != nil
	case "zip_code":
		return rec.ZipCode != nil
	case "phone":
		return rec.Phone != nil
	case "website":
		return rec.Website != nil
	case "enrollment":
		return rec.Enrollment != nil
	case "student_teacher_ratio":
		return rec.StudentTeacherRatio != nil
	default:
		return false
	}
}
