// Package policy declares the per-command citation verification policies and
// the resolution rule between registered policies and user-supplied flags.
package policy

import "fmt"

// Stage names one phase of the verification pipeline.
type Stage string

const (
	StagePattern Stage = "pattern"
	StageOnline  Stage = "online"
	// StageCritique asks the completion service to self-review its citations
	// before the offline checks run.
	StageCritique Stage = "critique"
)

// Fallback is the disposition when a strict command exhausts its retries.
type Fallback string

const (
	// FallbackRemove strips the offending citations and returns the rest.
	FallbackRemove Fallback = "remove-and-continue"
	// FallbackReject returns a terminal error instead of unverified content.
	FallbackReject Fallback = "hard-fail"
	// FallbackDiscard drops the whole generated unit (e.g. one strategy of a
	// batch) rather than editing it.
	FallbackDiscard Fallback = "discard-unit"
)

// Policy is one command's verification configuration.
type Policy struct {
	Command     string   `yaml:"command"`
	Strict      bool     `yaml:"strict"`
	Stages      []Stage  `yaml:"stages"`
	MaxAttempts int      `yaml:"max_attempts"`
	Fallback    Fallback `yaml:"fallback"`
}

// HasStage reports whether the policy enables the given stage.
func (p Policy) HasStage(s Stage) bool {
	for _, st := range p.Stages {
		if st == s {
			return true
		}
	}
	return false
}

// Default is the policy applied to commands with no registered entry:
// lenient, both offline and online stages, one attempt, remove-and-continue.
// An unknown command name must still verify; it never silently skips.
var Default = Policy{
	Command:     "default",
	Strict:      false,
	Stages:      []Stage{StagePattern, StageOnline},
	MaxAttempts: 1,
	Fallback:    FallbackRemove,
}

// builtins registers the shipped per-command policies.
var builtins = map[string]Policy{
	"research": {
		Command:     "research",
		Strict:      true,
		Stages:      []Stage{StagePattern, StageOnline},
		MaxAttempts: 2,
		Fallback:    FallbackRemove,
	},
	"digest": {
		Command:     "digest",
		Strict:      false,
		Stages:      []Stage{StagePattern},
		MaxAttempts: 1,
		Fallback:    FallbackRemove,
	},
	"facts": {
		Command:     "facts",
		Strict:      false,
		Stages:      []Stage{StagePattern},
		MaxAttempts: 1,
		Fallback:    FallbackRemove,
	},
	"strategy": {
		// Quality over quantity: a strategy that cannot be verified is
		// dropped whole rather than surgically edited.
		Command:     "strategy",
		Strict:      true,
		Stages:      []Stage{StagePattern, StageOnline},
		MaxAttempts: 1,
		Fallback:    FallbackDiscard,
	},
	"draft": {
		// Court documents get the full treatment, including a self-review
		// pass before the local checks.
		Command:     "draft",
		Strict:      true,
		Stages:      []Stage{StageCritique, StagePattern, StageOnline},
		MaxAttempts: 2,
		Fallback:    FallbackReject,
	},
	"verify": {
		Command:     "verify",
		Strict:      false,
		Stages:      []Stage{StagePattern, StageOnline},
		MaxAttempts: 0, // standalone verification never regenerates
		Fallback:    FallbackRemove,
	},
}

// Resolve returns the effective policy for a command.
//
// Precedence rule: the registered policy always wins. The --verify flag can
// only ADD the online stage to a command whose policy leaves it off; it can
// never remove a stage, lower strictness, or change the fallback. Commands
// without a registered policy get Default.
func Resolve(command string, verifyFlag bool) Policy {
	p, ok := builtins[command]
	if !ok {
		p = Default
		p.Command = command
	}
	if verifyFlag && !p.HasStage(StageOnline) {
		p.Stages = append(append([]Stage{}, p.Stages...), StageOnline)
	}
	return p
}

// Override replaces or adds a registered policy. Used by configuration
// loading; a Policy with an empty Command is rejected.
func Override(p Policy) error {
	if p.Command == "" {
		return fmt.Errorf("policy: override missing command name")
	}
	if p.MaxAttempts < 0 {
		return fmt.Errorf("policy: %s: max_attempts must be >= 0", p.Command)
	}
	if len(p.Stages) == 0 {
		return fmt.Errorf("policy: %s: at least one stage is required", p.Command)
	}
	switch p.Fallback {
	case FallbackRemove, FallbackReject, FallbackDiscard:
	default:
		return fmt.Errorf("policy: %s: unknown fallback %q", p.Command, p.Fallback)
	}
	builtins[p.Command] = p
	return nil
}
