// Package digest renders a partition's enriched posts as a Markdown digest
// with YAML frontmatter.
package digest

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"tweet-digest/internal/enrich"
	"tweet-digest/internal/model"
)

type Item struct {
	Title       string
	URL         string
	Summary     string
	Translation string // already quoted as Markdown
	Created     string
}

type Data struct {
	Frontmatter string
	Items       []Item
}

type frontmatter struct {
	Title    string `yaml:"title"`
	Slug     string `yaml:"slug"`
	Datetime string `yaml:"datetime"`
	Posts    int    `yaml:"posts"`
}

//go:embed digest.tmpl
var digestTpl string

var compiled = template.Must(template.New("digest").Parse(digestTpl))

const fallbackTitleRunes = 60

// Build prepares the template data for a partition. title may contain
// {.Date}, replaced by the partition date.
func Build(title string, partition time.Time, posts []model.Post, now time.Time) (Data, error) {
	fm := frontmatter{
		Title:    ExpandVars(title, partition),
		Slug:     "digest-" + partition.UTC().Format("20060102"),
		Datetime: now.UTC().Format("2006-01-02 15:04"),
		Posts:    len(posts),
	}
	b, err := yaml.Marshal(fm)
	if err != nil {
		return Data{}, err
	}
	d := Data{Frontmatter: string(b), Items: make([]Item, 0, len(posts))}
	for _, p := range posts {
		d.Items = append(d.Items, itemFor(p))
	}
	return d, nil
}

func itemFor(p model.Post) Item {
	it := Item{URL: p.URL, Created: p.CreatedAt}
	it.Title = usable(p.Title)
	if it.Title == "" {
		it.Title = clip(strings.Join(strings.Fields(p.Text), " "), fallbackTitleRunes)
	}
	it.Summary = strings.TrimSpace(usable(p.Summary))
	if tr := strings.TrimSpace(usable(p.TranslatedText)); tr != "" {
		it.Translation = "> " + strings.ReplaceAll(tr, "\n", "\n> ")
	}
	return it
}

// usable drops generated fields that hold the failure marker.
func usable(s string) string {
	if s == enrich.ErrorText {
		return ""
	}
	return s
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// Render executes the digest template.
func Render(d Data) (string, error) {
	var buf bytes.Buffer
	if err := compiled.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ExpandVars substitutes {.Date} with the date formatted as YYYY-MM-DD (UTC).
func ExpandVars(s string, date time.Time) string {
	return strings.ReplaceAll(s, "{.Date}", date.UTC().Format("2006-01-02"))
}
