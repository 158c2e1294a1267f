// Package prompts resolves persona instruction text by name. The content is
// opaque to the session core; it is passed through to the realtime model.
package prompts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound indicates the named prompt does not exist in the source.
var ErrNotFound = errors.New("prompt not found")

// Source loads instruction text by prompt name.
type Source interface {
	Load(name string) (string, error)
}

// MemorySource serves prompts from an in-memory map.
type MemorySource struct {
	prompts map[string]string
}

// NewMemorySource returns a MemorySource over a copy of the supplied map.
func NewMemorySource(prompts map[string]string) *MemorySource {
	copied := make(map[string]string, len(prompts))
	for name, text := range prompts {
		copied[name] = text
	}
	return &MemorySource{prompts: copied}
}

// Load returns the named prompt text.
func (s *MemorySource) Load(name string) (string, error) {
	text, ok := s.prompts[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return text, nil
}

// Defaults returns the built-in prompt set for the seed personas.
func Defaults() *MemorySource {
	return NewMemorySource(map[string]string{
		"triage_prompt.yaml": strings.TrimSpace(`
You are the triage assistant for a medical office. Greet callers, figure out
whether their need is clinical support or billing, and hand the call off to
the matching specialist. Keep answers short and do not give medical advice.
If the caller shares an image, describe what you can see and factor it into
your routing decision.`),
		"support_prompt.yaml": strings.TrimSpace(`
You are the support assistant for a medical office. Help callers with
appointments, prescriptions and general questions about their care. If the
conversation turns to payments or invoices, hand off to billing; if you
cannot help at all, hand back to triage.`),
		"billing_prompt.yaml": strings.TrimSpace(`
You are the billing assistant for a medical office. Help callers understand
invoices, insurance claims and payment plans. For clinical questions hand
off to support, and hand back to triage when the caller's need is unclear.`),
	})
}

// DirSource serves prompts from files in a directory, one file per prompt
// name.
type DirSource struct {
	dir string
}

// NewDirSource returns a DirSource rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Load reads the named prompt file. The name is reduced to its base so a
// caller-supplied name cannot escape the prompt directory.
func (s *DirSource) Load(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("read prompt %s: %w", name, err)
	}
	return string(data), nil
}
