// internal/check/checks.go
package check

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Canonical check names. Scenario files refer to checks by these identifiers.
const (
	NameContentPresence  = "content-presence"
	NameTextContains     = "text-contains"
	NameTitleMatches     = "title-matches"
	NameHidden           = "hidden"
	NameHeadingHierarchy = "heading-hierarchy"
	NameImageAltText     = "image-alt-text"
	NameLoadTimeBudget   = "load-time-budget"
	NameDOMContentBudget = "dom-content-loaded-budget"
	NameResponseTime     = "response-time-budget"
	NameStatusInSet      = "status-in-set"
	NameHeaderPresence   = "header-presence"
	NameAnyHeader        = "any-header-presence"
	NameFocusMoved       = "focus-moved"
	NameAttrContains     = "attribute-contains"
)

// Presence is the observation behind a content-presence check: whether a locator
// resolved to a visible element within the bounded wait.
type Presence struct {
	Target string
	Found  bool
	Waited time.Duration
}

// ContentPresence passes iff the target was found.
func ContentPresence(p Presence) Result {
	if p.Found {
		return Pass(NameContentPresence, "%s is visible", p.Target)
	}
	return Fail(NameContentPresence, "%s not found within %s", p.Target, p.Waited)
}

// Hidden passes iff the target is not visible.
func Hidden(target string, visible bool) Result {
	if visible {
		return Fail(NameHidden, "%s is still visible", target)
	}
	return Pass(NameHidden, "%s is hidden", target)
}

// TextContains passes iff text contains want.
func TextContains(target, text, want string) Result {
	if strings.Contains(text, want) {
		return Pass(NameTextContains, "%s contains %q", target, want)
	}
	return Fail(NameTextContains, "%s does not contain %q (got %q)", target, want, abbreviate(text, 120))
}

// AttributeContains passes iff the attribute exists and its value contains want.
// An absent attribute is reported separately from a mismatching one.
func AttributeContains(target, attr, value string, present bool, want string) Result {
	if !present {
		return Fail(NameAttrContains, "%s has no %s attribute", target, attr)
	}
	if strings.Contains(value, want) {
		return Pass(NameAttrContains, "%s[%s] contains %q", target, attr, want)
	}
	return Fail(NameAttrContains, "%s[%s] does not contain %q (got %q)", target, attr, want, abbreviate(value, 120))
}

// TitleMatches passes iff the document title matches pattern.
func TitleMatches(title string, pattern *regexp.Regexp) Result {
	if pattern.MatchString(title) {
		return Pass(NameTitleMatches, "title %q matches /%s/", title, pattern)
	}
	return Fail(NameTitleMatches, "title %q does not match /%s/", title, pattern)
}

// HeadingHierarchy passes iff the document has exactly one top-level heading.
func HeadingHierarchy(doc *Document) Result {
	n := doc.Count("h1")
	if n == 1 {
		return WithMeasurement(NameHeadingHierarchy, VerdictPass, float64(n), "", "exactly one h1")
	}
	return WithMeasurement(NameHeadingHierarchy, VerdictFail, float64(n), "", "expected exactly one h1, found %d", n)
}

// ImageAltText fails on the first image without an alt attribute. alt="" is present
// and passes: it is the correct markup for decorative images.
func ImageAltText(doc *Document) Result {
	images := doc.Images()
	for _, img := range images {
		if !img.HasAlt {
			src := img.Src
			if src == "" {
				src = "<no src>"
			}
			return WithMeasurement(NameImageAltText, VerdictFail, float64(img.Index), "index",
				"image %d (%s) is missing an alt attribute", img.Index, src)
		}
	}
	return WithMeasurement(NameImageAltText, VerdictPass, float64(len(images)), "images",
		"all %d images carry an alt attribute", len(images))
}

// LoadTimeBudget compares the load event duration against a ceiling.
func LoadTimeBudget(t NavigationTiming, budget time.Duration) Result {
	return budgetResult(NameLoadTimeBudget, "page load", t.LoadTime(), budget)
}

// DOMContentLoadedBudget compares the DOMContentLoaded duration against a ceiling.
func DOMContentLoadedBudget(t NavigationTiming, budget time.Duration) Result {
	return budgetResult(NameDOMContentBudget, "DOMContentLoaded", t.DOMContentLoaded(), budget)
}

// ResponseTimeBudget compares a request round trip against a ceiling.
func ResponseTimeBudget(elapsed, budget time.Duration) Result {
	return budgetResult(NameResponseTime, "response", float64(elapsed)/float64(time.Millisecond), budget)
}

// budgetResult passes iff measured is strictly below budget.
func budgetResult(name, what string, measuredMs float64, budget time.Duration) Result {
	budgetMs := float64(budget) / float64(time.Millisecond)
	v := verdictOf(measuredMs < budgetMs)
	if v == VerdictPass {
		return WithMeasurement(name, v, measuredMs, "ms", "%s took %.1fms (budget %.0fms)", what, measuredMs, budgetMs)
	}
	return WithMeasurement(name, v, measuredMs, "ms", "%s too slow: %.1fms, budget %.0fms", what, measuredMs, budgetMs)
}

// StatusInSet passes iff status is one of allowed.
func StatusInSet(status int, allowed ...int) Result {
	for _, a := range allowed {
		if status == a {
			return WithMeasurement(NameStatusInSet, VerdictPass, float64(status), "", "status %d is allowed", status)
		}
	}
	return WithMeasurement(NameStatusInSet, VerdictFail, float64(status), "", "status %d not in %v", status, allowed)
}

// HeaderPresence passes iff every named header is present. http.Header canonicalizes
// keys, so lookup is case-insensitive.
func HeaderPresence(h http.Header, names ...string) Result {
	var missing []string
	for _, n := range names {
		if _, ok := h[http.CanonicalHeaderKey(n)]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return Fail(NameHeaderPresence, "missing header(s): %s", strings.Join(missing, ", "))
	}
	return Pass(NameHeaderPresence, "all headers present: %s", strings.Join(names, ", "))
}

// AnyHeaderPresent passes iff at least one of the named headers is present.
func AnyHeaderPresent(h http.Header, names ...string) Result {
	for _, n := range names {
		if _, ok := h[http.CanonicalHeaderKey(n)]; ok {
			return Pass(NameAnyHeader, "found %s", n)
		}
	}
	return Fail(NameAnyHeader, "none of %s present", strings.Join(names, ", "))
}

// FocusMoved passes iff keyboard focus landed on an element (tag is its tagName).
func FocusMoved(tag string) Result {
	if strings.TrimSpace(tag) == "" {
		return Fail(NameFocusMoved, "no element received focus")
	}
	return Pass(NameFocusMoved, "focus moved to <%s>", strings.ToLower(tag))
}

func abbreviate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
