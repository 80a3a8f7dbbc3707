package pattern

import (
	"reflect"
	"testing"
	"time"

	"github.com/jgowrie/advocate/internal/schema"
)

// newTestValidator pins the clock so future-date checks are stable.
func newTestValidator() *Validator {
	v := New(DefaultRules())
	v.Now = func() time.Time {
		return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	}
	return v
}

func findCategory(issues []schema.ValidationIssue, cat schema.IssueCategory) *schema.ValidationIssue {
	for i := range issues {
		if issues[i].Category == cat {
			return &issues[i]
		}
	}
	return nil
}

func TestValidateCleanText(t *testing.T) {
	v := newTestValidator()
	issues := v.Validate("Native title was recognised in Mabo v Queensland [1992] HCA 23.")
	if len(issues) != 0 {
		t.Errorf("clean text produced %d issues: %+v", len(issues), issues)
	}
}

func TestValidateFutureDate(t *testing.T) {
	v := newTestValidator()
	issues := v.Validate("As held in Karabes v Novak [2030] HCA 5.")
	is := findCategory(issues, schema.CategoryFutureDate)
	if is == nil {
		t.Fatalf("future-dated citation produced no finding; got %+v", issues)
	}
	if is.Severity != schema.SeverityHardFail {
		t.Errorf("future-date severity = %s, want HARD_FAIL", is.Severity)
	}
	if is.Action != schema.ActionRegenerate {
		t.Errorf("future-date action = %s, want REGENERATE", is.Action)
	}
}

func TestValidateCurrentYearNotFuture(t *testing.T) {
	v := newTestValidator()
	issues := v.Validate("Decided this year: [2026] HCA 1.")
	if is := findCategory(issues, schema.CategoryFutureDate); is != nil {
		t.Errorf("current-year citation flagged as future: %+v", is)
	}
}

func TestValidateImpossibleCourt(t *testing.T) {
	v := newTestValidator()
	// The High Court was established in 1903.
	issues := v.Validate("An early decision, [1890] HCA 1, settled the point.")
	is := findCategory(issues, schema.CategoryImpossibleCourt)
	if is == nil {
		t.Fatalf("pre-establishment citation produced no finding; got %+v", issues)
	}
	if is.Severity != schema.SeverityHardFail {
		t.Errorf("impossible-court severity = %s, want HARD_FAIL", is.Severity)
	}
}

func TestValidateGenericName(t *testing.T) {
	v := newTestValidator()
	issues := v.Validate("The principle comes from Smith v Jones [2019] HCA 10.")
	is := findCategory(issues, schema.CategoryGenericName)
	if is == nil {
		t.Fatal("both-common-surname case name produced no finding")
	}
	if is.Severity != schema.SeverityWarn {
		t.Errorf("generic-name severity = %s, want WARN by default", is.Severity)
	}
}

func TestValidateGenericNameWithoutCitation(t *testing.T) {
	v := newTestValidator()
	// A hallucinated case can be named in prose with no citation at all; the
	// surname check must not depend on an adjacent citation.
	issues := v.Validate("As held in Smith v Jones, the duty of care applies to the respondent.")
	is := findCategory(issues, schema.CategoryGenericName)
	if is == nil {
		t.Fatal("bare generic case name produced no finding")
	}
	if is.Severity != schema.SeverityWarn {
		t.Errorf("generic-name severity = %s, want WARN by default", is.Severity)
	}
}

func TestValidateGenericNameNeedsBothParties(t *testing.T) {
	v := newTestValidator()
	// One common surname alone is unremarkable; real case names are not
	// penalised for a repeated uncommon surname either.
	for _, text := range []string{
		"See Smith v Czarnikow [2019] HCA 10.",
		"See Karabes v Karabes [2019] FamCAFC 3.",
	} {
		if is := findCategory(v.Validate(text), schema.CategoryGenericName); is != nil {
			t.Errorf("%q wrongly flagged generic: %+v", text, is)
		}
	}
}

func TestValidatePlaceholders(t *testing.T) {
	v := newTestValidator()
	issues := v.Validate("As the cases show (see Test v Example [2020] HCA 1) the rule holds.")
	is := findCategory(issues, schema.CategoryGenericName)
	if is == nil {
		t.Fatal("placeholder case name produced no finding")
	}
	if is.Severity != schema.SeverityHardFail {
		t.Errorf("placeholder severity = %s, want HARD_FAIL", is.Severity)
	}
}

func TestValidateSingleLetterParties(t *testing.T) {
	v := newTestValidator()
	issues := v.Validate("The decision in Q v W [2020] NSWSC 12 is on point.")
	is := findCategory(issues, schema.CategoryGenericName)
	if is == nil {
		t.Fatal("single-letter party names produced no finding")
	}
	if is.Severity != schema.SeverityHardFail {
		t.Errorf("single-letter severity = %s, want HARD_FAIL", is.Severity)
	}
}

func TestValidateCrownProsecutionNotFlagged(t *testing.T) {
	v := newTestValidator()
	issues := v.Validate("Sentencing principles from R v Olbrich [1999] HCA 54 apply.")
	if is := findCategory(issues, schema.CategoryGenericName); is != nil {
		t.Errorf("Crown prosecution style wrongly flagged: %+v", is)
	}
}

func TestValidatePagePlausibility(t *testing.T) {
	v := newTestValidator()
	issues := v.Validate("The passage at (1992) 175 CLR 9999 is often cited.")
	is := findCategory(issues, schema.CategoryMalformedFormat)
	if is == nil {
		t.Fatal("implausible page number produced no finding")
	}
	if is.Severity != schema.SeverityWarn {
		t.Errorf("page-plausibility severity = %s, want WARN", is.Severity)
	}
}

func TestValidateDeterministic(t *testing.T) {
	v := newTestValidator()
	text := "Smith v Jones [2030] HCA 99 and Test v Example [2020] HCA 1 and (1992) 175 CLR 9999."
	a := v.Validate(text)
	b := v.Validate(text)
	if !reflect.DeepEqual(a, b) {
		t.Error("Validate is not deterministic for identical input")
	}
	if len(a) == 0 {
		t.Fatal("expected findings for a text full of defects")
	}
}

func TestEscalate(t *testing.T) {
	issues := []schema.ValidationIssue{
		{Category: schema.CategoryGenericName, Severity: schema.SeverityWarn, Action: schema.ActionFlag},
		{Category: schema.CategoryMalformedFormat, Severity: schema.SeverityWarn, Action: schema.ActionFlag},
	}
	out := Escalate(issues)
	if out[0].Severity != schema.SeverityHardFail || out[0].Action != schema.ActionRegenerate {
		t.Errorf("generic-name not escalated: %+v", out[0])
	}
	if out[1].Severity != schema.SeverityWarn {
		t.Errorf("unrelated warn escalated: %+v", out[1])
	}
	// The input slice is untouched.
	if issues[0].Severity != schema.SeverityWarn {
		t.Error("Escalate mutated its input")
	}
}

func TestRulesMerge(t *testing.T) {
	base := DefaultRules()
	merged := base.Merge(Rules{
		EstablishmentYears: map[string]int{"NTSC": 1911},
		MaxPages:           map[string]int{"CLR": 750},
	})
	if merged.EstablishmentYears["NTSC"] != 1911 {
		t.Error("overlay key not merged into establishment table")
	}
	if merged.EstablishmentYears["HCA"] != 1903 {
		t.Error("merge dropped an existing establishment entry")
	}
	if merged.MaxPages["CLR"] != 750 {
		t.Error("overlay did not replace the CLR page cap")
	}
	if len(merged.CommonSurnames) != len(base.CommonSurnames) {
		t.Error("empty overlay field replaced the surname table")
	}
}
