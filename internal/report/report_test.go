package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/jgowrie/advocate/internal/schema"
)

func sampleResult() *schema.Result {
	return &schema.Result{
		State:           schema.StateSurgicallyEdited,
		Text:            "The court held that X applies.",
		VerifiedCount:   1,
		UnverifiedCount: 1,
		Attempts:        1,
		Issues: []schema.ValidationIssue{{
			Citation: "[2025] HCA 99",
			Category: schema.CategoryUnverifiedOnline,
			Severity: schema.SeverityWarn,
			Action:   schema.ActionRemove,
			Detail:   "not found on database",
		}},
		RemovedSpans: []string{"in Smith v Jones [2025] HCA 99"},
		Unconfirmed:  []string{"[1932] AC 562"},
	}
}

func TestRenderJSON(t *testing.T) {
	b, err := RenderJSON(sampleResult())
	if err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}
	var round schema.Result
	if err := json.Unmarshal(b, &round); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if round.State != schema.StateSurgicallyEdited {
		t.Errorf("State = %s after round trip", round.State)
	}
	if len(round.RemovedSpans) != 1 || len(round.Unconfirmed) != 1 {
		t.Error("removed/unconfirmed lists lost in round trip")
	}
}

func TestRenderJSONNil(t *testing.T) {
	if _, err := RenderJSON(nil); err == nil {
		t.Error("RenderJSON accepted a nil result")
	}
}

func TestRenderMarkdownSections(t *testing.T) {
	out := RenderMarkdown(sampleResult())

	// Removed and unconfirmed citations appear under separate headings.
	if !strings.Contains(out, "### Removed (confirmed unverifiable)") {
		t.Error("removed section missing")
	}
	if !strings.Contains(out, "~~in Smith v Jones [2025] HCA 99~~") {
		t.Error("removed citation not struck through")
	}
	if !strings.Contains(out, "### Kept without confirmation") {
		t.Error("unconfirmed section missing")
	}
	if !strings.Contains(out, "[1932] AC 562") {
		t.Error("unconfirmed citation not listed")
	}

	removedIdx := strings.Index(out, "in Smith v Jones")
	unconfirmedIdx := strings.Index(out, "[1932] AC 562")
	if removedIdx < 0 || unconfirmedIdx < 0 || removedIdx > unconfirmedIdx {
		t.Error("removed and unconfirmed sections out of order")
	}

	if !strings.Contains(out, "| [2025] HCA 99 |") {
		t.Error("findings table missing the issue")
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "The court held that X applies.") {
		t.Error("cleaned text not rendered after the report")
	}
}

func TestRenderMarkdownRejected(t *testing.T) {
	res := &schema.Result{
		State:       schema.StateRejected,
		RejectedFor: []string{"Smith v Jones [2025] HCA 99"},
	}
	out := RenderMarkdown(res)
	if !strings.Contains(out, "### Rejected") {
		t.Error("rejected section missing")
	}
	if !strings.Contains(out, "Smith v Jones [2025] HCA 99") {
		t.Error("rejected citation not named")
	}
	if strings.Contains(out, "---") {
		t.Error("rejected result rendered output text")
	}
}

func TestMdEscape(t *testing.T) {
	res := &schema.Result{
		State: schema.StateAccepted,
		Issues: []schema.ValidationIssue{{
			Citation: "odd|name",
			Detail:   "line\nbreak",
		}},
	}
	out := RenderMarkdown(res)
	if !strings.Contains(out, `odd\|name`) {
		t.Error("pipe not escaped in table cell")
	}
	if strings.Contains(out, "line\nbreak") {
		t.Error("newline survived into a table cell")
	}
}
