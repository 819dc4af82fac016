// internal/browser/locator_test.go
package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLocator(t *testing.T) {
	tests := []struct {
		raw   string
		kind  LocatorKind
		query string
	}{
		{"h1", LocatorCSS, "h1"},
		{`  [role="dialog"] `, LocatorCSS, `[role="dialog"]`},
		{`meta[name="description"]`, LocatorCSS, `meta[name="description"]`},
		{"xpath=//footer//a", LocatorXPath, "//footer//a"},
		{"//main", LocatorXPath, "//main"},
		{`text="Live Demo"`, LocatorXPath, "//*[normalize-space(.)='Live Demo'][not(*[normalize-space(.)='Live Demo'])]"},
		{`text=Pricing`, LocatorXPath, "//*[contains(normalize-space(.),'Pricing')][not(*[contains(normalize-space(.),'Pricing')])]"},
		{`button:has-text("Start Free")`, LocatorXPath, "//button[contains(normalize-space(.),'Start Free')]"},
		{`:has-text('×')`, LocatorXPath, "//*[contains(normalize-space(.),'×')]"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			l := ParseLocator(tt.raw)
			assert.Equal(t, tt.kind, l.Kind)
			assert.Equal(t, tt.query, l.Query)
		})
	}
}

func TestAlternatives(t *testing.T) {
	assert.Equal(t,
		[]string{`[role="dialog"]`, ".modal", `text="Live Demo"`},
		Alternatives(`[role="dialog"], .modal, text="Live Demo"`))
	assert.Equal(t,
		[]string{`button:has-text("×")`, `button[aria-label="Close"]`},
		Alternatives(`button:has-text("×"), button[aria-label="Close"]`))
	assert.Equal(t, []string{`text="a, b"`}, Alternatives(`text="a, b"`))
	assert.Equal(t, []string{`a[title="x,y"]`, "b"}, Alternatives(`a[title="x,y"],b`))
	assert.Empty(t, Alternatives(" , "))
}

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, "'plain'", xpathLiteral("plain"))
	assert.Equal(t, `"Don't"`, xpathLiteral("Don't"))
	assert.Equal(t, `concat('We Don',"'",'t "Just"')`, xpathLiteral(`We Don't "Just"`))
}
