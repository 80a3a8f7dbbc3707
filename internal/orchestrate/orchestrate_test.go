package orchestrate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jgowrie/advocate/internal/llm"
	"github.com/jgowrie/advocate/internal/pattern"
	"github.com/jgowrie/advocate/internal/policy"
	"github.com/jgowrie/advocate/internal/schema"
	"github.com/jgowrie/advocate/internal/vcache"
	"github.com/jgowrie/advocate/internal/verify"
)

// stubProvider replays scripted completions and records the last request.
type stubProvider struct {
	replies []string
	calls   int
	lastReq llm.Request
}

func (p *stubProvider) Complete(_ context.Context, req llm.Request) (string, error) {
	p.lastReq = req
	i := p.calls
	if i >= len(p.replies) {
		i = len(p.replies) - 1
	}
	p.calls++
	return p.replies[i], nil
}

const (
	fakeText = "The court in Smith v Jones [2025] HCA 99 held that X applies."
	goodText = "Native title was recognised in Mabo v Queensland [2020] HCA 41."
)

// newTestOrchestrator wires an orchestrator to a lookup stub that knows
// [2020] HCA 41 and nothing else. hits counts network lookups.
func newTestOrchestrator(t *testing.T, p llm.Provider) (*Orchestrator, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/cth/HCA/2020/41.html" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	validator := pattern.New(pattern.DefaultRules())
	validator.Now = func() time.Time {
		return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	}
	verifier := verify.New(srv.URL, vcache.New(64), verify.NewBreaker(0, 0, 0),
		verify.Options{HTTPClient: srv.Client()})
	return New(validator, verifier, p), &hits
}

func userRequest(content string) llm.Request {
	return llm.Request{
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: content}},
		MaxTokens: 1024,
	}
}

func strictPolicy(attempts int, fb policy.Fallback) policy.Policy {
	return policy.Policy{
		Command:     "test",
		Strict:      true,
		Stages:      []policy.Stage{policy.StagePattern, policy.StageOnline},
		MaxAttempts: attempts,
		Fallback:    fb,
	}
}

func lenientPolicy() policy.Policy {
	return policy.Policy{
		Command:     "test",
		Strict:      false,
		Stages:      []policy.Stage{policy.StagePattern, policy.StageOnline},
		MaxAttempts: 1,
		Fallback:    policy.FallbackRemove,
	}
}

func TestRunAccepted(t *testing.T) {
	p := &stubProvider{replies: []string{goodText}}
	o, _ := newTestOrchestrator(t, p)

	res, err := o.Run(context.Background(), userRequest("question"), strictPolicy(2, policy.FallbackReject))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != schema.StateAccepted {
		t.Errorf("State = %s, want ACCEPTED", res.State)
	}
	if res.Attempts != 1 || p.calls != 1 {
		t.Errorf("attempts = %d, provider calls = %d, want 1/1", res.Attempts, p.calls)
	}
	if res.VerifiedCount != 1 || res.UnverifiedCount != 0 {
		t.Errorf("counts = %d/%d, want 1 verified", res.VerifiedCount, res.UnverifiedCount)
	}
	if res.Text != goodText {
		t.Errorf("accepted text was altered: %q", res.Text)
	}
}

func TestRunStrictRejects(t *testing.T) {
	p := &stubProvider{replies: []string{fakeText}}
	o, _ := newTestOrchestrator(t, p)

	res, err := o.Run(context.Background(), userRequest("question"), strictPolicy(1, policy.FallbackReject))
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if !strings.Contains(err.Error(), "Smith v Jones [2025] HCA 99") {
		t.Errorf("rejection error does not name the citation: %v", err)
	}
	if res.State != schema.StateRejected {
		t.Errorf("State = %s, want REJECTED", res.State)
	}
	if len(res.RejectedFor) == 0 {
		t.Error("RejectedFor is empty")
	}
	// One generation plus one retry.
	if p.calls != 2 || res.Attempts != 2 {
		t.Errorf("provider calls = %d, attempts = %d, want 2/2", p.calls, res.Attempts)
	}
	// The retry carried a strengthened instruction.
	msgs := p.lastReq.Messages
	if n := len(msgs); n == 0 || !strings.Contains(msgs[n-1].Content, "omit it entirely") {
		t.Error("retry request lacks the anti-hallucination instruction")
	}
}

func TestRunLenientSurgicalEdit(t *testing.T) {
	text := fakeText + " " + goodText
	p := &stubProvider{replies: []string{text}}
	o, _ := newTestOrchestrator(t, p)

	res, err := o.Run(context.Background(), userRequest("question"), lenientPolicy())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != schema.StateSurgicallyEdited {
		t.Errorf("State = %s, want SURGICALLY_EDITED", res.State)
	}
	if strings.Contains(res.Text, "[2025] HCA 99") {
		t.Errorf("fabricated citation survived editing: %q", res.Text)
	}
	if !strings.Contains(res.Text, "[2020] HCA 41") {
		t.Errorf("verified citation removed: %q", res.Text)
	}
	if !strings.Contains(res.Text, "The court held that X applies.") {
		t.Errorf("edited sentence not grammatical: %q", res.Text)
	}
	if len(res.RemovedSpans) != 1 {
		t.Errorf("RemovedSpans = %v, want one entry", res.RemovedSpans)
	}
	if res.VerifiedCount != 1 || res.UnverifiedCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", res.VerifiedCount, res.UnverifiedCount)
	}
	if p.calls != 1 {
		t.Errorf("lenient run regenerated: %d provider calls", p.calls)
	}
}

func TestRunDiscard(t *testing.T) {
	p := &stubProvider{replies: []string{fakeText}}
	o, _ := newTestOrchestrator(t, p)

	res, err := o.Run(context.Background(), userRequest("question"), strictPolicy(0, policy.FallbackDiscard))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != schema.StateDiscarded {
		t.Errorf("State = %s, want DISCARDED", res.State)
	}
	if res.Text != "" {
		t.Errorf("discarded unit still carries text: %q", res.Text)
	}
	if p.calls != 1 {
		t.Errorf("zero-attempt policy regenerated: %d provider calls", p.calls)
	}
}

func TestRunRetrySucceeds(t *testing.T) {
	p := &stubProvider{replies: []string{fakeText, goodText}}
	o, _ := newTestOrchestrator(t, p)

	res, err := o.Run(context.Background(), userRequest("question"), strictPolicy(1, policy.FallbackReject))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != schema.StateAccepted {
		t.Errorf("State = %s, want ACCEPTED after a clean retry", res.State)
	}
	if res.Attempts != 2 || p.calls != 2 {
		t.Errorf("attempts = %d, provider calls = %d, want 2/2", res.Attempts, p.calls)
	}
	if res.Text != goodText {
		t.Errorf("Text = %q, want the regenerated text", res.Text)
	}
}

func TestRunCritiqueStage(t *testing.T) {
	// A draft-style policy self-reviews before the local checks; here the
	// critique pass corrects the fabricated citation, so no retry is needed.
	p := &stubProvider{replies: []string{fakeText, goodText}}
	o, _ := newTestOrchestrator(t, p)

	pol := strictPolicy(2, policy.FallbackReject)
	pol.Stages = append([]policy.Stage{policy.StageCritique}, pol.Stages...)

	res, err := o.Run(context.Background(), userRequest("question"), pol)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != schema.StateAccepted {
		t.Errorf("State = %s, want ACCEPTED after critique", res.State)
	}
	if p.calls != 2 {
		t.Errorf("provider calls = %d, want generation plus critique", p.calls)
	}
	if res.Attempts != 1 {
		t.Errorf("Attempts = %d; the critique pass is not a retry", res.Attempts)
	}
	msgs := p.lastReq.Messages
	if n := len(msgs); n < 2 || msgs[n-2].Content != fakeText {
		t.Error("critique request does not replay the generated draft")
	}
	if res.Text != goodText {
		t.Errorf("Text = %q, want the critiqued text", res.Text)
	}
}

func TestPassEditsWithoutProvider(t *testing.T) {
	// The standalone verification path never generates; a nil provider must
	// be safe.
	o, _ := newTestOrchestrator(t, nil)

	text := fakeText + " " + goodText
	res, err := o.Pass(context.Background(), text, policy.Resolve("verify", false))
	if err != nil {
		t.Fatalf("Pass: %v", err)
	}
	if res.State != schema.StateSurgicallyEdited {
		t.Errorf("State = %s, want SURGICALLY_EDITED", res.State)
	}
	if strings.Contains(res.Text, "[2025] HCA 99") {
		t.Errorf("fabricated citation survived: %q", res.Text)
	}
	if len(res.RemovedSpans) != 1 {
		t.Errorf("RemovedSpans = %v, want one entry", res.RemovedSpans)
	}
	if res.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", res.Attempts)
	}
}

func TestPassCleanText(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	res, err := o.Pass(context.Background(), goodText, policy.Resolve("verify", false))
	if err != nil {
		t.Fatalf("Pass: %v", err)
	}
	if res.State != schema.StateAccepted || res.Text != goodText {
		t.Errorf("State = %s, Text = %q; want the text accepted unchanged", res.State, res.Text)
	}
}

func TestCheckUnavailableIsWarnOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	validator := pattern.New(pattern.DefaultRules())
	verifier := verify.New(srv.URL, vcache.New(64), verify.NewBreaker(0, 0, 0),
		verify.Options{HTTPClient: srv.Client()})
	o := New(validator, verifier, &stubProvider{replies: []string{""}})

	res := o.Check(context.Background(), goodText, lenientPolicy())
	// An unreachable database is not evidence of hallucination: the text is
	// kept and the citation reported as unconfirmed.
	if res.State != schema.StateAccepted {
		t.Errorf("State = %s, want ACCEPTED when verification is unavailable", res.State)
	}
	if len(res.Unconfirmed) != 1 {
		t.Errorf("Unconfirmed = %v, want the unreachable citation listed", res.Unconfirmed)
	}
	if len(res.RemovedSpans) != 0 {
		t.Error("unavailable lookup caused a removal")
	}
	if schema.HasHardFail(res.Issues) {
		t.Error("unavailable lookup produced a hard failure")
	}
}

func TestCheckInternationalKeptWithoutNetwork(t *testing.T) {
	p := &stubProvider{replies: []string{""}}
	o, hits := newTestOrchestrator(t, p)

	res := o.Check(context.Background(), "As decided in Donoghue v Stevenson [1932] AC 562.", lenientPolicy())
	if res.State != schema.StateAccepted {
		t.Errorf("State = %s, want ACCEPTED", res.State)
	}
	if len(res.Unconfirmed) != 1 {
		t.Errorf("Unconfirmed = %v, want the foreign citation listed", res.Unconfirmed)
	}
	if hits.Load() != 0 {
		t.Errorf("international citation triggered %d lookups, want 0", hits.Load())
	}
}

func TestCheckPatternRejectSkipsLookup(t *testing.T) {
	o, hits := newTestOrchestrator(t, nil)

	// One future-dated citation, one real one: only the real one is worth a
	// database lookup.
	text := "As held in Karabes v Novak [2030] HCA 5. " + goodText
	res := o.Check(context.Background(), text, lenientPolicy())
	if hits.Load() != 1 {
		t.Errorf("lookups = %d, want only the plausible citation checked", hits.Load())
	}
	if res.VerifiedCount != 1 || res.UnverifiedCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", res.VerifiedCount, res.UnverifiedCount)
	}
	if !schema.HasHardFail(res.Issues) {
		t.Error("future-dated citation produced no hard failure")
	}
	// The pattern finding stands alone; the skipped lookup adds no duplicate.
	if len(res.Issues) != 1 {
		t.Errorf("issues = %+v, want the single pattern finding", res.Issues)
	}
}

func TestCheckPatternOnlyPolicy(t *testing.T) {
	p := &stubProvider{replies: []string{""}}
	o, hits := newTestOrchestrator(t, p)

	pol := policy.Policy{
		Command:  "test",
		Stages:   []policy.Stage{policy.StagePattern},
		Fallback: policy.FallbackRemove,
	}
	res := o.Check(context.Background(), goodText, pol)
	if res.State != schema.StateAccepted {
		t.Errorf("State = %s, want ACCEPTED", res.State)
	}
	if hits.Load() != 0 {
		t.Errorf("pattern-only policy made %d lookups, want 0", hits.Load())
	}
}

func TestCritique(t *testing.T) {
	p := &stubProvider{replies: []string{goodText}}
	o, _ := newTestOrchestrator(t, p)

	req := userRequest("question")
	out, err := o.Critique(context.Background(), req, fakeText)
	if err != nil {
		t.Fatalf("Critique: %v", err)
	}
	if out != goodText {
		t.Errorf("Critique = %q", out)
	}
	msgs := p.lastReq.Messages
	if len(msgs) != 3 {
		t.Fatalf("critique request has %d messages, want question + answer + instruction", len(msgs))
	}
	if msgs[1].Role != llm.RoleAssistant || msgs[1].Content != fakeText {
		t.Error("critique request does not replay the model's own answer")
	}
	if msgs[2].Role != llm.RoleUser {
		t.Error("critique instruction is not a user turn")
	}
}
