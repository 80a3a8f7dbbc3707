package llm

import (
	"context"
	"strings"
	"testing"
)

func TestAppendInstructionToLastUserMessage(t *testing.T) {
	req := Request{
		Messages: []Message{
			{Role: RoleUser, Content: "draft the submissions"},
		},
	}
	out := AppendInstruction(req, "cite only real authority")
	if len(out.Messages) != 1 {
		t.Fatalf("message count = %d, want 1", len(out.Messages))
	}
	got := out.Messages[0].Content
	if !strings.HasPrefix(got, "draft the submissions") || !strings.HasSuffix(got, "cite only real authority") {
		t.Errorf("Content = %q", got)
	}
	// The original request is untouched.
	if req.Messages[0].Content != "draft the submissions" {
		t.Error("AppendInstruction mutated its input")
	}
}

func TestAppendInstructionAfterAssistantTurn(t *testing.T) {
	req := Request{
		Messages: []Message{
			{Role: RoleUser, Content: "question"},
			{Role: RoleAssistant, Content: "answer"},
		},
	}
	out := AppendInstruction(req, "try again")
	if len(out.Messages) != 3 {
		t.Fatalf("message count = %d, want 3", len(out.Messages))
	}
	last := out.Messages[2]
	if last.Role != RoleUser || last.Content != "try again" {
		t.Errorf("appended message = %+v", last)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-0.2, 0, 1, 0},
		{1.7, 0, 1, 1},
		{2.5, 0, 2, 2},
	}
	for _, tt := range tests {
		if got := clamp(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("clamp(%v, %v, %v) = %v, want %v", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestNormalizeTokens(t *testing.T) {
	tests := []struct {
		requested, floor, ceiling, want int
	}{
		{0, 1024, 8192, 1024},
		{-5, 1024, 8192, 1024},
		{4096, 1024, 8192, 4096},
		{100000, 1024, 8192, 8192},
	}
	for _, tt := range tests {
		if got := normalizeTokens(tt.requested, tt.floor, tt.ceiling); got != tt.want {
			t.Errorf("normalizeTokens(%d, %d, %d) = %d, want %d",
				tt.requested, tt.floor, tt.ceiling, got, tt.want)
		}
	}
}

func TestNewProviderUnknown(t *testing.T) {
	if _, err := NewProvider("delphi", "model-x"); err == nil {
		t.Error("unknown provider name accepted")
	}
}

func TestNewProviderSwappable(t *testing.T) {
	orig := NewProvider
	t.Cleanup(func() { NewProvider = orig })

	stub := providerFunc(func(context.Context, Request) (string, error) { return "stubbed", nil })
	NewProvider = func(string, string) (Provider, error) { return stub, nil }

	p, err := NewProvider("anything", "model")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	out, err := p.Complete(context.Background(), Request{})
	if err != nil || out != "stubbed" {
		t.Errorf("Complete = %q, %v", out, err)
	}
}

// providerFunc adapts a function to the Provider interface.
type providerFunc func(context.Context, Request) (string, error)

func (f providerFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
