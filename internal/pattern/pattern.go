// Package pattern provides the offline hallucination heuristics: a fixed
// battery of deterministic checks run against generated text before any
// network verification. No I/O is performed here.
package pattern

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jgowrie/advocate/internal/citation"
	"github.com/jgowrie/advocate/internal/schema"
)

// Rules holds the configurable tables the checks consult. Zero values fall
// back to the built-in defaults via DefaultRules.
type Rules struct {
	// CommonSurnames flags "X v Y" case names where both parties end in one
	// of these tokens.
	CommonSurnames []string `yaml:"common_surnames"`
	// EstablishmentYears maps a court abbreviation to the year the court was
	// created. A citation predating it is impossible.
	EstablishmentYears map[string]int `yaml:"establishment_years"`
	// MaxPages maps a reporter series to the largest plausible page number.
	MaxPages map[string]int `yaml:"max_pages"`
	// Placeholders are literal case-name strings that only appear in
	// template or example text, never in real output.
	Placeholders []string `yaml:"placeholders"`
}

// DefaultRules returns the built-in rule tables.
func DefaultRules() Rules {
	return Rules{
		CommonSurnames: []string{
			"Smith", "Jones", "Williams", "Brown", "Wilson", "Taylor",
			"Johnson", "White", "Martin", "Anderson", "Thompson", "Nguyen",
			"Thomas", "Walker", "Harris", "Lee", "Ryan", "Robinson",
			"Kelly", "King",
		},
		EstablishmentYears: map[string]int{
			"HCA":     1903,
			"FCA":     1977,
			"FCAFC":   1977,
			"FamCA":   1976,
			"FamCAFC": 1976,
			"FCCA":    2013,
			"AATA":    1976,
			"NSWCA":   1966,
			"NSWCCA":  1912,
			"VSCA":    1995,
			"NZSC":    2004,
			"UKSC":    2009,
		},
		MaxPages: map[string]int{
			"CLR":   700,
			"ALR":   800,
			"FCR":   700,
			"ALJR":  1200,
			"NSWLR": 800,
			"VR":    700,
		},
		Placeholders: []string{
			"Test v Example",
			"Example v Example",
			"A v B",
			"X v Y",
			"John Doe v Jane Doe",
		},
	}
}

// Merge overlays o onto r, field by field. Empty fields in o leave r's value
// in place; populated maps are merged key-wise so a config file can adjust a
// single court without restating the whole table.
func (r Rules) Merge(o Rules) Rules {
	if len(o.CommonSurnames) > 0 {
		r.CommonSurnames = o.CommonSurnames
	}
	if len(o.Placeholders) > 0 {
		r.Placeholders = o.Placeholders
	}
	for k, v := range o.EstablishmentYears {
		if r.EstablishmentYears == nil {
			r.EstablishmentYears = map[string]int{}
		}
		r.EstablishmentYears[k] = v
	}
	for k, v := range o.MaxPages {
		if r.MaxPages == nil {
			r.MaxPages = map[string]int{}
		}
		r.MaxPages[k] = v
	}
	return r
}

// Validator runs the pattern battery. Now is swappable so future-date tests
// are not tied to the wall clock.
type Validator struct {
	rules    Rules
	surnames map[string]bool
	Now      func() time.Time
}

// New returns a Validator over the given rules.
func New(rules Rules) *Validator {
	sn := make(map[string]bool, len(rules.CommonSurnames))
	for _, s := range rules.CommonSurnames {
		sn[strings.ToLower(s)] = true
	}
	return &Validator{rules: rules, surnames: sn, Now: time.Now}
}

// singleLetterNameRe matches party names that are a single letter, as in
// "A v B" or "R v X" variants that slip past the literal placeholder list.
// "R v Name" (the Crown) is legitimate, so only flag when BOTH sides are
// single letters.
var singleLetterNameRe = regexp.MustCompile(`\b([A-Z])\s+v\s+([A-Z])\b`)

// Validate runs every check against text and returns the union of findings.
// A citation matching several checks yields several issues; deduplication is
// the consumer's concern. Deterministic: identical text yields identical
// issues.
func (v *Validator) Validate(text string) []schema.ValidationIssue {
	var issues []schema.ValidationIssue

	issues = append(issues, v.checkPlaceholders(text)...)
	issues = append(issues, v.checkGenericNames(text)...)

	for _, c := range citation.Extract(text) {
		issues = append(issues, v.checkFutureDate(c)...)
		issues = append(issues, v.checkEstablishment(c)...)
		issues = append(issues, v.checkPagePlausibility(c)...)
	}

	return issues
}

// checkPlaceholders flags literal template case names and both-single-letter
// party pairs anywhere in the text.
func (v *Validator) checkPlaceholders(text string) []schema.ValidationIssue {
	var issues []schema.ValidationIssue
	for _, p := range v.rules.Placeholders {
		if strings.Contains(text, p) {
			issues = append(issues, schema.ValidationIssue{
				Citation: p,
				Category: schema.CategoryGenericName,
				Severity: schema.SeverityHardFail,
				Action:   schema.ActionRemove,
				Detail:   fmt.Sprintf("placeholder case name %q", p),
			})
		}
	}
	for _, m := range singleLetterNameRe.FindAllStringSubmatch(text, -1) {
		name := m[0]
		if containsPlaceholder(v.rules.Placeholders, name) {
			continue // already reported by the literal scan
		}
		issues = append(issues, schema.ValidationIssue{
			Citation: name,
			Category: schema.CategoryGenericName,
			Severity: schema.SeverityHardFail,
			Action:   schema.ActionRemove,
			Detail:   "single-letter party names",
		})
	}
	return issues
}

func containsPlaceholder(placeholders []string, name string) bool {
	for _, p := range placeholders {
		if p == name {
			return true
		}
	}
	return false
}

// caseNameScanRe finds "X v Y" case names anywhere in the text. Party tokens
// are runs of capitalized words.
var caseNameScanRe = regexp.MustCompile(`\b([A-Z][\w'&.-]*(?:\s+[A-Z][\w'&.-]*)*)\s+v\s+([A-Z][\w'&.-]*(?:\s+[A-Z][\w'&.-]*)*)`)

// checkGenericNames flags case names where both party surnames appear in the
// common-surname table. The scan runs over the raw text, not the extracted
// citations: a hallucinated case mentioned without any citation must still be
// caught. One common surname alone is unremarkable; two reads like invented
// filler.
func (v *Validator) checkGenericNames(text string) []schema.ValidationIssue {
	var issues []schema.ValidationIssue
	for _, m := range caseNameScanRe.FindAllStringSubmatch(text, -1) {
		if !v.isCommonSurname(m[1]) || !v.isCommonSurname(m[2]) {
			continue
		}
		issues = append(issues, schema.ValidationIssue{
			Citation: strings.Join(strings.Fields(m[0]), " "),
			Category: schema.CategoryGenericName,
			Severity: schema.SeverityWarn,
			Action:   schema.ActionFlag,
			Detail:   fmt.Sprintf("both parties (%s, %s) are common surnames", m[1], m[2]),
		})
	}
	return issues
}

// isCommonSurname checks the final token of a party name against the table.
func (v *Validator) isCommonSurname(party string) bool {
	fields := strings.Fields(party)
	if len(fields) == 0 {
		return false
	}
	return v.surnames[strings.ToLower(fields[len(fields)-1])]
}

// checkFutureDate flags citation years after the current calendar year.
func (v *Validator) checkFutureDate(c schema.Citation) []schema.ValidationIssue {
	if c.Year <= v.Now().Year() {
		return nil
	}
	return []schema.ValidationIssue{{
		Citation: c.Raw,
		Category: schema.CategoryFutureDate,
		Severity: schema.SeverityHardFail,
		Action:   schema.ActionRegenerate,
		Detail:   fmt.Sprintf("citation year %d is in the future", c.Year),
	}}
}

// checkEstablishment flags citations predating the cited court's creation.
// Courts absent from the table pass; unknown abbreviations are the online
// verifier's problem, not a pattern failure.
func (v *Validator) checkEstablishment(c schema.Citation) []schema.ValidationIssue {
	est, ok := v.rules.EstablishmentYears[c.Court]
	if !ok || c.Year >= est {
		return nil
	}
	return []schema.ValidationIssue{{
		Citation: c.Raw,
		Category: schema.CategoryImpossibleCourt,
		Severity: schema.SeverityHardFail,
		Action:   schema.ActionRegenerate,
		Detail:   fmt.Sprintf("%s was established in %d; a %d citation is impossible", c.Court, est, c.Year),
	}}
}

// checkPagePlausibility flags traditional citations whose page number
// exceeds the plausible maximum for the report series.
func (v *Validator) checkPagePlausibility(c schema.Citation) []schema.ValidationIssue {
	if c.Kind != schema.KindTraditional {
		return nil
	}
	max, ok := v.rules.MaxPages[c.Court]
	if !ok {
		return nil
	}
	page, err := strconv.Atoi(c.Number)
	if err != nil || page <= max {
		return nil
	}
	return []schema.ValidationIssue{{
		Citation: c.Raw,
		Category: schema.CategoryMalformedFormat,
		Severity: schema.SeverityWarn,
		Action:   schema.ActionFlag,
		Detail:   fmt.Sprintf("page %d exceeds plausible maximum %d for %s", page, max, c.Court),
	}}
}

// Escalate raises warn-severity generic-name findings to hard failures.
// Strict commands call this so that filler case names block acceptance.
func Escalate(issues []schema.ValidationIssue) []schema.ValidationIssue {
	out := make([]schema.ValidationIssue, len(issues))
	for i, is := range issues {
		if is.Severity == schema.SeverityWarn && is.Category == schema.CategoryGenericName {
			is.Severity = schema.SeverityHardFail
			is.Action = schema.ActionRegenerate
		}
		out[i] = is
	}
	return out
}
