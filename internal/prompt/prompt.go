// Package prompt loads and composes the YAML prompt templates used by the
// commands. Templates ship embedded in the binary; a user override directory
// takes precedence file-by-file.
package prompt

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var embedded embed.FS

// Template is one command's prompt definition.
type Template struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	System      string  `yaml:"system"`
	User        string  `yaml:"user"` // may contain {{placeholder}} slots
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// Store resolves templates by name, consulting the override directory before
// the embedded set.
type Store struct {
	overrideDir string
	base        string // shared system-prompt preamble
}

// basePreamble is prepended to every template's system prompt.
const basePreamble = "You are a legal research assistant for Australian litigation practice. " +
	"Cite authority only when you are certain it exists; omit a citation rather than invent one. " +
	"Australian citations use medium-neutral form ([2019] HCA 23) or report series form ((1992) 175 CLR 1)."

// NewStore returns a Store. overrideDir may be empty to use only the
// embedded templates.
func NewStore(overrideDir string) *Store {
	return &Store{overrideDir: overrideDir, base: basePreamble}
}

// Load resolves the template for name.
func (s *Store) Load(name string) (Template, error) {
	data, err := s.read(name)
	if err != nil {
		return Template{}, err
	}
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Template{}, fmt.Errorf("prompt: parse template %s: %w", name, err)
	}
	if t.Name == "" {
		t.Name = name
	}
	t.System = s.base + "\n\n" + strings.TrimSpace(t.System)
	return t, nil
}

// read fetches the raw template bytes, override directory first.
func (s *Store) read(name string) ([]byte, error) {
	file := name + ".yaml"
	if s.overrideDir != "" {
		if data, err := os.ReadFile(filepath.Join(s.overrideDir, file)); err == nil {
			return data, nil
		}
	}
	data, err := embedded.ReadFile("templates/" + file)
	if err != nil {
		return nil, fmt.Errorf("prompt: unknown template %q", name)
	}
	return data, nil
}

// Render substitutes {{key}} placeholders in the template's user prompt.
// Unreplaced placeholders are an error so a typo in a template cannot send a
// literal "{{document}}" to the model.
func (t Template) Render(vars map[string]string) (string, error) {
	out := t.User
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	if i := strings.Index(out, "{{"); i >= 0 {
		snippet := out[i:min(i+40, len(out))]
		if end := strings.Index(snippet, "}}"); end >= 0 {
			snippet = snippet[:end+2]
		}
		return "", fmt.Errorf("prompt: template %s: unfilled placeholder %s", t.Name, snippet)
	}
	return out, nil
}
