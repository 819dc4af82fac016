// internal/browser/locator.go
package browser

import (
	"fmt"
	"regexp"
	"strings"
)

// LocatorKind says how a selector is resolved in the page.
type LocatorKind int

const (
	LocatorCSS LocatorKind = iota
	LocatorXPath
)

func (k LocatorKind) String() string {
	if k == LocatorXPath {
		return "xpath"
	}
	return "css"
}

// Locator is a parsed selector. Suite files use a small Playwright-like syntax:
//
//	h1                    plain CSS
//	text="Live Demo"      element whose whole text is exactly the string
//	text=Live Demo        element whose text contains the string
//	button:has-text("×")  CSS tag whose text contains the string
//	xpath=//footer//a     raw XPath
type Locator struct {
	Raw   string
	Kind  LocatorKind
	Query string
}

var hasTextRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9-]*)?:has-text\((?:"([^"]*)"|'([^']*)')\)$`)

// ParseLocator converts one selector (no top-level commas) into a Locator.
func ParseLocator(raw string) Locator {
	s := strings.TrimSpace(raw)
	l := Locator{Raw: s, Kind: LocatorCSS, Query: s}

	switch {
	case strings.HasPrefix(s, "xpath="):
		l.Kind, l.Query = LocatorXPath, strings.TrimPrefix(s, "xpath=")
	case strings.HasPrefix(s, "//"):
		l.Kind = LocatorXPath
	case strings.HasPrefix(s, "text="):
		text := strings.TrimPrefix(s, "text=")
		l.Kind = LocatorXPath
		if unq, ok := unquote(text); ok {
			l.Query = fmt.Sprintf("//*[normalize-space(.)=%s][not(*[normalize-space(.)=%s])]", xpathLiteral(unq), xpathLiteral(unq))
		} else {
			l.Query = fmt.Sprintf("//*[contains(normalize-space(.),%s)][not(*[contains(normalize-space(.),%s)])]", xpathLiteral(text), xpathLiteral(text))
		}
	default:
		if m := hasTextRe.FindStringSubmatch(s); m != nil {
			tag := m[1]
			if tag == "" {
				tag = "*"
			}
			text := m[2] + m[3]
			l.Kind = LocatorXPath
			l.Query = fmt.Sprintf("//%s[contains(normalize-space(.),%s)]", tag, xpathLiteral(text))
		}
	}
	return l
}

// Alternatives splits a selector list on top-level commas. Commas inside quotes,
// brackets or parentheses do not split.
func Alternatives(raw string) []string {
	var (
		out   []string
		depth int
		quote rune
		start int
	)
	for i, r := range raw {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			if part := strings.TrimSpace(raw[start:i]); part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	if part := strings.TrimSpace(raw[start:]); part != "" {
		out = append(out, part)
	}
	return out
}

func unquote(s string) (string, bool) {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1], true
	}
	return "", false
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ",") + ")"
}
