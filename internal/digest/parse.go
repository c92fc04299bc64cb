package digest

import (
	"errors"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a parsed digest: YAML frontmatter plus Markdown body.
type Document struct {
	Frontmatter map[string]any
	Body        string
}

// ParseFile reads a Markdown file whose optional frontmatter sits between two
// lines containing only "---".
func ParseFile(path string) (Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	return Parse(string(b))
}

// Parse splits src into frontmatter and body.
func Parse(src string) (Document, error) {
	d := Document{Frontmatter: map[string]any{}}
	lines := strings.SplitAfter(src, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		d.Body = src
		return d, nil
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "---" {
			continue
		}
		fm := strings.Join(lines[1:i], "")
		if err := yaml.Unmarshal([]byte(fm), &d.Frontmatter); err != nil {
			return Document{}, err
		}
		d.Body = strings.Join(lines[i+1:], "")
		return d, nil
	}
	return Document{}, errors.New("digest: unterminated frontmatter")
}
