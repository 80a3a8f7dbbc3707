// Package llm handles completion-provider communication. Commands build a
// message list, the provider returns text; which model family serves the
// call is invisible to callers.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation sent to the provider.
type Message struct {
	Role    Role
	Content string
}

// Request is a provider-independent completion request. Each provider clamps
// the parameters to its own accepted ranges before sending.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Provider is the interface for completion backends.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// NewProvider is the factory for creating providers. It is a package-level
// variable so tests can replace it with a mock without modifying call sites.
// Tests must restore the original value; use t.Cleanup to do so safely.
var NewProvider func(providerName, model string) (Provider, error) = defaultNewProvider

// defaultNewProvider dispatches to the appropriate provider implementation.
func defaultNewProvider(providerName, model string) (Provider, error) {
	switch strings.ToLower(providerName) {
	case "anthropic", "":
		return newAnthropicProvider(model)
	case "openai":
		return newOpenAIProvider(model)
	case "google":
		return newGoogleProvider(model)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", providerName)
	}
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeTokens applies a floor and a provider ceiling to the max-token
// parameter. A zero request value gets the floor.
func normalizeTokens(requested, floor, ceiling int) int {
	if requested <= 0 {
		requested = floor
	}
	if requested > ceiling {
		return ceiling
	}
	return requested
}

// AppendInstruction returns a copy of req with extra appended to the last
// user message (or added as a new user message when the last turn is not a
// user turn). Used by the verification orchestrator to strengthen
// anti-hallucination instructions on regeneration.
func AppendInstruction(req Request, extra string) Request {
	msgs := append([]Message{}, req.Messages...)
	if n := len(msgs); n > 0 && msgs[n-1].Role == RoleUser {
		msgs[n-1].Content = msgs[n-1].Content + "\n\n" + extra
	} else {
		msgs = append(msgs, Message{Role: RoleUser, Content: extra})
	}
	req.Messages = msgs
	return req
}
