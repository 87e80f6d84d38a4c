package ai

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// PromptLibrary loads prompt templates from a directory. Templates are plain
// markdown files with {PLACEHOLDER} slots.
type PromptLibrary struct {
	Dir string
}

// NewPromptLibrary creates a prompt library rooted at dir.
func NewPromptLibrary(dir string) *PromptLibrary {
	log.Printf("[PromptLibrary] Using prompt directory: %s", dir)
	return &PromptLibrary{Dir: dir}
}

// Load reads a prompt template by name.
func (pl *PromptLibrary) Load(name string) (string, error) {
	path := filepath.Join(pl.Dir, name+".md")

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("prompt template not found: %s", name)
		}
		return "", fmt.Errorf("failed to load prompt %s: %w", name, err)
	}
	return string(content), nil
}

// Render loads a template and substitutes each {PLACEHOLDER} occurrence.
func (pl *PromptLibrary) Render(name string, replacements map[string]string) (string, error) {
	template, err := pl.Load(name)
	if err != nil {
		return "", err
	}

	result := template
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, "{"+placeholder+"}", value)
	}
	return result, nil
}
