package browser

import (
	"context"
	"testing"
)

func TestChromeQueriesRequireTimeout(t *testing.T) {
	p := chromePage{ctx: context.Background()}
	ctx := context.Background()
	btn := XPath(`//button`)

	if err := p.Click(ctx, btn, 0); err == nil {
		t.Fatalf("Click without timeout must fail")
	}
	if err := p.Type(ctx, CSS(`input`), "x", 0); err == nil {
		t.Fatalf("Type without timeout must fail")
	}
	if err := p.WaitFor(ctx, btn, 0); err == nil {
		t.Fatalf("WaitFor without timeout must fail")
	}
}
