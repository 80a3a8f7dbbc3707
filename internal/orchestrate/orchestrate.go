// Package orchestrate runs the citation verification state machine over
// generated text: pattern checks, extraction, online verification, then the
// command policy decides between acceptance, regeneration, surgical editing,
// discarding the unit, and terminal rejection.
//
// States: GENERATED → PATTERN_CHECKED → EXTRACTED → ONLINE_CHECKED →
// {ACCEPTED, RETRYING, SURGICALLY_EDITED, DISCARDED, REJECTED}.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jgowrie/advocate/internal/citation"
	"github.com/jgowrie/advocate/internal/edit"
	"github.com/jgowrie/advocate/internal/llm"
	"github.com/jgowrie/advocate/internal/pattern"
	"github.com/jgowrie/advocate/internal/policy"
	"github.com/jgowrie/advocate/internal/schema"
	"github.com/jgowrie/advocate/internal/verify"
)

// ErrRejected is returned when a strict command exhausts its retries and the
// policy forbids returning unverifiable content. The wrapping error names the
// citations that remain unresolved.
var ErrRejected = errors.New("orchestrate: unverifiable citations after retries exhausted")

// antiHallucinationInstruction is appended to the prompt on regeneration.
const antiHallucinationInstruction = "IMPORTANT: Use only real, verifiable case citations. " +
	"Every citation must refer to a decision you are certain exists. " +
	"If you are not certain a citation is real, omit it entirely rather than guessing."

// critiqueInstruction drives the optional self-review stage.
const critiqueInstruction = "Review your previous answer and remove or correct any case citation " +
	"you are not certain is real. Return the full corrected text and nothing else."

// Orchestrator wires the pipeline stages together. All collaborators are
// injected; none are package globals.
type Orchestrator struct {
	validator *pattern.Validator
	verifier  *verify.Verifier
	provider  llm.Provider
}

// New returns an Orchestrator over the given collaborators.
func New(validator *pattern.Validator, verifier *verify.Verifier, provider llm.Provider) *Orchestrator {
	return &Orchestrator{validator: validator, verifier: verifier, provider: provider}
}

// Run generates text for req and drives it through the verification state
// machine under pol. On RETRYING the original request is re-sent with a
// strengthened anti-hallucination instruction; attempts are bounded by
// pol.MaxAttempts. Only the REJECTED state returns an error.
func (o *Orchestrator) Run(ctx context.Context, req llm.Request, pol policy.Policy) (schema.Result, error) {
	text, err := o.provider.Complete(ctx, req)
	if err != nil {
		return schema.Result{}, fmt.Errorf("orchestrate: complete: %w", err)
	}
	if pol.HasStage(policy.StageCritique) {
		if text, err = o.Critique(ctx, req, text); err != nil {
			return schema.Result{}, err
		}
	}

	attempts := 1
	for {
		res := o.Check(ctx, text, pol)
		res.Attempts = attempts

		if res.State != schema.StateRetrying {
			return o.settle(text, res, pol)
		}
		if attempts > pol.MaxAttempts {
			// Retries exhausted: the command's fallback decides.
			return o.settle(text, res, pol)
		}

		retryReq := llm.AppendInstruction(req, antiHallucinationInstruction)
		text, err = o.provider.Complete(ctx, retryReq)
		if err != nil {
			return schema.Result{}, fmt.Errorf("orchestrate: regenerate: %w", err)
		}
		if pol.HasStage(policy.StageCritique) {
			if text, err = o.Critique(ctx, retryReq, text); err != nil {
				return schema.Result{}, err
			}
		}
		attempts++
	}
}

// Pass verifies existing text without any generation: one pipeline pass, then
// the command fallback applied directly. Retrying is meaningless with nothing
// to regenerate, so strict policies settle through their fallback instead.
func (o *Orchestrator) Pass(ctx context.Context, text string, pol policy.Policy) (schema.Result, error) {
	res := o.Check(ctx, text, pol)
	res.Attempts = 1
	return o.settle(text, res, pol)
}

// Critique runs the optional self-review stage: the model is shown its own
// output and asked to strike uncertain citations before any local checks.
func (o *Orchestrator) Critique(ctx context.Context, req llm.Request, text string) (string, error) {
	creq := llm.Request{
		System: req.System,
		Messages: append(append([]llm.Message{}, req.Messages...),
			llm.Message{Role: llm.RoleAssistant, Content: text},
			llm.Message{Role: llm.RoleUser, Content: critiqueInstruction},
		),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	out, err := o.provider.Complete(ctx, creq)
	if err != nil {
		return "", fmt.Errorf("orchestrate: critique: %w", err)
	}
	return out, nil
}

// Check runs one pass of the pipeline over existing text without any
// regeneration. The returned State is StateRetrying when the policy would
// want a regeneration; Run converts that into an actual retry, and Pass
// settles it through the command fallback.
func (o *Orchestrator) Check(ctx context.Context, text string, pol policy.Policy) schema.Result {
	res := schema.Result{Text: text}

	// PATTERN_CHECKED
	var issues []schema.ValidationIssue
	if pol.HasStage(policy.StagePattern) {
		issues = o.validator.Validate(text)
		if pol.Strict {
			issues = pattern.Escalate(issues)
		}
	}

	// EXTRACTED → ONLINE_CHECKED. Citations the pattern stage already
	// hard-failed are recorded without a lookup.
	cites := citation.Extract(text)
	var recs []schema.VerificationRecord
	if pol.HasStage(policy.StageOnline) {
		recs = make([]schema.VerificationRecord, len(cites))
		rejected := patternRejected(issues)
		var pending []schema.Citation
		var pendingIdx []int
		for i, c := range cites {
			if rejected[c.Raw] {
				recs[i] = o.verifier.RejectFromPattern(c)
				continue
			}
			pending = append(pending, c)
			pendingIdx = append(pendingIdx, i)
		}
		for j, r := range o.verifier.VerifyAll(ctx, pending) {
			recs[pendingIdx[j]] = r
		}
		issues = append(issues, recordIssues(cites, recs, pol.Strict)...)
	}

	res.Issues = issues
	res.VerifiedCount, res.UnverifiedCount = countRecords(recs)
	res.Unconfirmed = unconfirmedCitations(cites, recs)

	if !schema.HasHardFail(issues) && len(confirmedAbsent(cites, recs)) == 0 {
		res.State = schema.StateAccepted
		return res
	}

	if pol.Strict && pol.MaxAttempts > 0 {
		res.State = schema.StateRetrying
		return res
	}

	// Lenient, or strict with no retry budget: the fallback applies directly.
	res.State = fallbackState(pol.Fallback)
	return res
}

// settle applies the command fallback to a pass that did not end ACCEPTED,
// performing the surgical edit or constructing the terminal error.
func (o *Orchestrator) settle(text string, res schema.Result, pol policy.Policy) (schema.Result, error) {
	if res.State == schema.StateAccepted {
		return res, nil
	}
	if res.State == schema.StateRetrying {
		res.State = fallbackState(pol.Fallback)
	}

	offenders := offendingCitations(text, res.Issues)

	switch res.State {
	case schema.StateRejected:
		// A rejection never hands unverifiable content back to the caller.
		res.Text = ""
		for _, c := range offenders {
			res.RejectedFor = append(res.RejectedFor, describeCitation(c))
		}
		if len(res.RejectedFor) == 0 {
			// No extractable span matched; name the hard failures directly so
			// the error never reads as a rejection over nothing.
			for _, is := range res.Issues {
				if is.Severity == schema.SeverityHardFail {
					res.RejectedFor = append(res.RejectedFor, is.Citation)
				}
			}
		}
		return res, fmt.Errorf("%w: %s", ErrRejected, strings.Join(res.RejectedFor, "; "))

	case schema.StateDiscarded:
		res.Text = ""
		return res, nil

	case schema.StateSurgicallyEdited:
		if len(offenders) == 0 {
			// Hard-fail findings with no extractable span (e.g. a bare
			// placeholder name) cannot be edited out; surface them as-is.
			res.State = schema.StateAccepted
			return res, nil
		}
		edited, removals := edit.Remove(text, offenders)
		res.Text = edited
		for _, r := range removals {
			res.RemovedSpans = append(res.RemovedSpans, r.Removed)
		}
		return res, nil
	}
	return res, nil
}

// fallbackState maps a policy fallback to its terminal state.
func fallbackState(f policy.Fallback) schema.OutcomeState {
	switch f {
	case policy.FallbackReject:
		return schema.StateRejected
	case policy.FallbackDiscard:
		return schema.StateDiscarded
	default:
		return schema.StateSurgicallyEdited
	}
}

// patternRejected collects the citation texts of hard-fail pattern findings
// that make an online lookup pointless. Only findings naming the citation
// itself qualify (future date, impossible court); a generic case name is
// suspicion, not proof, so those citations are still checked online.
func patternRejected(issues []schema.ValidationIssue) map[string]bool {
	out := map[string]bool{}
	for _, is := range issues {
		if is.Severity != schema.SeverityHardFail {
			continue
		}
		if is.Category == schema.CategoryFutureDate || is.Category == schema.CategoryImpossibleCourt {
			out[is.Citation] = true
		}
	}
	return out
}

// recordIssues converts failed verification records into validation issues.
// Confirmed-absent is a hallucination signal; a transport failure is
// surfaced as warn-only and must never be conflated with absence.
func recordIssues(cites []schema.Citation, recs []schema.VerificationRecord, strict bool) []schema.ValidationIssue {
	var issues []schema.ValidationIssue
	breakerNoted := false
	for i, r := range recs {
		c := cites[i]
		switch {
		case r.Verified && r.Reason == schema.ReasonInternational:
			issues = append(issues, schema.ValidationIssue{
				Citation: c.Raw,
				Category: schema.CategoryInternationalUnconfirmed,
				Severity: schema.SeverityWarn,
				Action:   schema.ActionFlag,
				Detail:   r.Reason,
			})
		case r.Verified:
			// found: no issue
		case r.Reason == schema.ReasonPatternReject:
			// already reported by the pattern stage
		case r.Reason == schema.ReasonBreakerOpen:
			if !breakerNoted {
				issues = append(issues, schema.ValidationIssue{
					Citation: c.Raw,
					Category: schema.CategoryUnverifiedOnline,
					Severity: schema.SeverityWarn,
					Action:   schema.ActionFlag,
					Detail:   "online verification suspended after repeated lookup failures; pattern-only validation applied",
				})
				breakerNoted = true
			}
		case r.Unavailable():
			issues = append(issues, schema.ValidationIssue{
				Citation: c.Raw,
				Category: schema.CategoryUnverifiedOnline,
				Severity: schema.SeverityWarn,
				Action:   schema.ActionFlag,
				Detail:   r.Reason,
			})
		case r.Reason == schema.ReasonNotFound:
			sev := schema.SeverityWarn
			act := schema.ActionRemove
			if strict {
				sev = schema.SeverityHardFail
				act = schema.ActionRegenerate
			}
			issues = append(issues, schema.ValidationIssue{
				Citation: c.Raw,
				Category: schema.CategoryUnverifiedOnline,
				Severity: sev,
				Action:   act,
				Detail:   r.Reason,
			})
		default: // unrecognized format
			issues = append(issues, schema.ValidationIssue{
				Citation: c.Raw,
				Category: schema.CategoryUnverifiedOnline,
				Severity: schema.SeverityWarn,
				Action:   schema.ActionFlag,
				Detail:   r.Reason,
			})
		}
	}
	return issues
}

// countRecords tallies verified and unverified records.
func countRecords(recs []schema.VerificationRecord) (verified, unverified int) {
	for _, r := range recs {
		if r.Verified {
			verified++
		} else {
			unverified++
		}
	}
	return
}

// confirmedAbsent returns the citations whose lookup definitively failed
// (database said not-found), as opposed to being unverifiable.
func confirmedAbsent(cites []schema.Citation, recs []schema.VerificationRecord) []schema.Citation {
	var out []schema.Citation
	for i, r := range recs {
		if !r.Verified && r.Reason == schema.ReasonNotFound {
			out = append(out, cites[i])
		}
	}
	return out
}

// unconfirmedCitations lists citations kept without confirmation:
// international authority or lookups that could not run.
func unconfirmedCitations(cites []schema.Citation, recs []schema.VerificationRecord) []string {
	var out []string
	for i, r := range recs {
		if r.Reason == schema.ReasonInternational || r.Unavailable() {
			out = append(out, cites[i].Raw)
		}
	}
	return out
}

// offendingCitations maps removable issues back to extracted citations so
// the editor has spans to cut. Only issues whose action is REMOVE or
// REGENERATE implicate their citation; warn/flag findings stay in the text.
func offendingCitations(text string, issues []schema.ValidationIssue) []schema.Citation {
	removable := map[string]bool{}
	for _, is := range issues {
		if is.Action == schema.ActionRemove || is.Action == schema.ActionRegenerate {
			removable[is.Citation] = true
		}
	}
	if len(removable) == 0 {
		return nil
	}
	var out []schema.Citation
	for _, c := range citation.Extract(text) {
		// An issue may name the bare citation, the case name alone, or both
		// together; match on the fullest rendering.
		desc := describeCitation(c)
		for key := range removable {
			if strings.Contains(key, c.Raw) || strings.Contains(desc, key) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// describeCitation renders a citation with its case name for error text.
func describeCitation(c schema.Citation) string {
	if c.CaseName != "" {
		return c.CaseName + " " + c.Raw
	}
	return c.Raw
}
