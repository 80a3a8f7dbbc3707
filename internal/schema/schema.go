// Package schema defines the canonical data types shared across the citation
// verification pipeline.
package schema

import "time"

// CitationKind classifies the shape of an extracted citation.
type CitationKind string

const (
	// KindMediumNeutral is the court-issued form "[2019] HCA 23".
	KindMediumNeutral CitationKind = "MEDIUM_NEUTRAL"
	// KindTraditional is the report-series form "(1992) 175 CLR 1".
	KindTraditional CitationKind = "TRADITIONAL"
	// KindInternational covers recognized UK/US/NZ report series.
	KindInternational CitationKind = "INTERNATIONAL"
	// KindUnrecognized is anything citation-shaped that no matcher claims.
	KindUnrecognized CitationKind = "UNRECOGNIZED"
)

// Span locates a citation occurrence inside the source text.
type Span struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// End returns the exclusive end offset of the span.
func (s Span) End() int { return s.Offset + s.Length }

// Citation is a normalized legal reference extracted from generated text.
// A single logical citation may carry multiple spans when the same case is
// cited in parallel form (medium-neutral immediately followed by traditional).
type Citation struct {
	Raw          string       `json:"raw"`
	Spans        []Span       `json:"spans"`
	Kind         CitationKind `json:"kind"`
	Year         int          `json:"year"`
	Court        string       `json:"court"` // court abbreviation or reporter series
	Number       string       `json:"number"`
	Volume       string       `json:"volume,omitempty"` // traditional citations only
	CaseName     string       `json:"case_name,omitempty"`
	Jurisdiction string       `json:"jurisdiction,omitempty"`
}

// IssueCategory classifies a validation finding.
type IssueCategory string

const (
	CategoryGenericName              IssueCategory = "generic-name"
	CategoryFutureDate               IssueCategory = "future-date"
	CategoryImpossibleCourt          IssueCategory = "impossible-court"
	CategoryMalformedFormat          IssueCategory = "malformed-format"
	CategoryUnverifiedOnline         IssueCategory = "unverified-online"
	CategoryInternationalUnconfirmed IssueCategory = "international-unconfirmed"
)

// Severity distinguishes blocking findings from advisories.
type Severity string

const (
	SeverityHardFail Severity = "HARD_FAIL"
	SeverityWarn     Severity = "WARN"
)

// SuggestedAction is the recommended disposition for an issue.
type SuggestedAction string

const (
	ActionRemove     SuggestedAction = "REMOVE"
	ActionFlag       SuggestedAction = "FLAG"
	ActionRegenerate SuggestedAction = "REGENERATE"
)

// ValidationIssue is a single human-readable finding against a citation.
type ValidationIssue struct {
	Citation string          `json:"citation"`
	Category IssueCategory   `json:"category"`
	Severity Severity        `json:"severity"`
	Action   SuggestedAction `json:"action"`
	Detail   string          `json:"detail,omitempty"`
}

// HasHardFail reports whether any issue in the list is blocking.
func HasHardFail(issues []ValidationIssue) bool {
	for _, is := range issues {
		if is.Severity == SeverityHardFail {
			return true
		}
	}
	return false
}

// VerificationRecord is a cache entry describing the outcome of one citation
// lookup. Records are immutable after creation.
type VerificationRecord struct {
	Key       string    `json:"key"`
	Verified  bool      `json:"verified"`
	Reason    string    `json:"reason"`
	URL       string    `json:"url,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Well-known VerificationRecord reasons. Callers compare against these rather
// than parsing reason text.
const (
	ReasonFound         = "found on database"
	ReasonNotFound      = "not found on database"
	ReasonUnavailable   = "verification unavailable"
	ReasonInternational = "international authority — not checkable in local database"
	ReasonUnrecognized  = "unrecognized citation format"
	ReasonPatternReject = "rejected by pattern validation"
	ReasonBreakerOpen   = "verification suspended (circuit breaker open)"
)

// Unavailable reports whether the record represents a transport failure
// rather than a confirmed-absent citation. A transport failure must never be
// treated as proof of hallucination.
func (r VerificationRecord) Unavailable() bool {
	return r.Reason == ReasonUnavailable || r.Reason == ReasonBreakerOpen
}

// OutcomeState is the terminal state of one verification pass.
type OutcomeState string

const (
	StateAccepted         OutcomeState = "ACCEPTED"
	StateRetrying         OutcomeState = "RETRYING"
	StateSurgicallyEdited OutcomeState = "SURGICALLY_EDITED"
	StateRejected         OutcomeState = "REJECTED"
	StateDiscarded        OutcomeState = "DISCARDED"
)

// Result is the full outcome of running the verification pipeline over one
// generated text.
type Result struct {
	State           OutcomeState      `json:"state"`
	Text            string            `json:"text"` // cleaned/edited output text
	Issues          []ValidationIssue `json:"issues"`
	VerifiedCount   int               `json:"verified_count"`
	UnverifiedCount int               `json:"unverified_count"`
	Attempts        int               `json:"attempts"`
	// RemovedSpans lists citations removed because they were confirmed fake.
	// Unconfirmed lists citations kept even though they could not be checked
	// (international series, lookup endpoint unreachable). The two must never
	// be conflated in user-facing output.
	RemovedSpans []string `json:"removed_spans,omitempty"`
	Unconfirmed  []string `json:"unconfirmed,omitempty"`
	RejectedFor  []string `json:"rejected_for,omitempty"`
}
