package browser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type node struct {
	sel *goquery.Selection
}

func (n node) Find(css string) (Element, bool) {
	s := n.sel.Find(css)
	if s.Length() == 0 {
		return nil, false
	}
	return node{sel: s.First()}, true
}

func (n node) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n node) Text() string {
	return strings.TrimSpace(n.sel.Text())
}

// Snapshot parses page markup and returns the elements matching css.
// Selectors support the cascadia extensions such as :has and :contains.
func Snapshot(html, css string) ([]Element, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	matches := doc.Find(css)
	out := make([]Element, 0, matches.Length())
	matches.Each(func(_ int, s *goquery.Selection) {
		out = append(out, node{sel: s})
	})
	return out, nil
}
