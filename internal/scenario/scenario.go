// internal/scenario/scenario.go
package scenario

import (
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/scalpel-e2e/internal/browser"
	"github.com/xkilldash9x/scalpel-e2e/internal/check"
	"github.com/xkilldash9x/scalpel-e2e/internal/probe"
)

// Kind is what a scenario exercises.
type Kind string

const (
	KindPage Kind = "page"
	KindAPI  Kind = "api"
)

// Scenario is a named, ordered list of steps against one target.
type Scenario struct {
	Name     string            `yaml:"name"`
	Target   Kind              `yaml:"target"`
	Timeout  time.Duration     `yaml:"timeout,omitempty"`
	Viewport *browser.Viewport `yaml:"viewport,omitempty"`
	Tags     []string          `yaml:"tags,omitempty"`
	Steps    []Step            `yaml:"steps"`
}

// Step is either an interaction or a check. Exactly one of the action keys
// (navigate, click, fill, press, scroll_into_view, resize, pause, check) is set.
type Step struct {
	Navigate       string            `yaml:"navigate,omitempty"`
	WaitIdle       bool              `yaml:"wait_idle,omitempty"`
	Click          string            `yaml:"click,omitempty"`
	Fill           string            `yaml:"fill,omitempty"`
	Value          string            `yaml:"value,omitempty"`
	Press          string            `yaml:"press,omitempty"`
	ScrollIntoView string            `yaml:"scroll_into_view,omitempty"`
	Resize         *browser.Viewport `yaml:"resize,omitempty"`
	Pause          time.Duration     `yaml:"pause,omitempty"`

	Check   string        `yaml:"check,omitempty"`
	Target  string        `yaml:"target,omitempty"`
	Want    string        `yaml:"want,omitempty"`
	Attr    string        `yaml:"attr,omitempty"`
	Budget  time.Duration `yaml:"budget,omitempty"`
	Wait    time.Duration `yaml:"wait,omitempty"`
	Path    string        `yaml:"path,omitempty"`
	Count   int           `yaml:"count,omitempty"`
	Status  []int         `yaml:"status,omitempty"`
	Headers []string      `yaml:"headers,omitempty"`

	// OptionalIf names a selector; when nothing matches it the step is skipped.
	// The decision is taken the first time a selector is seen in a scenario and
	// reused by later steps naming the same selector.
	OptionalIf string `yaml:"optional_if,omitempty"`
}

// StepKind identifies a step's action.
type StepKind string

const (
	StepInvalid        StepKind = ""
	StepNavigate       StepKind = "navigate"
	StepClick          StepKind = "click"
	StepFill           StepKind = "fill"
	StepPress          StepKind = "press"
	StepScrollIntoView StepKind = "scroll_into_view"
	StepResize         StepKind = "resize"
	StepPause          StepKind = "pause"
	StepCheck          StepKind = "check"
)

// Kind reports the step's action, or StepInvalid when zero or several are set.
func (s Step) Kind() StepKind {
	var kinds []StepKind
	if s.Navigate != "" {
		kinds = append(kinds, StepNavigate)
	}
	if s.Click != "" {
		kinds = append(kinds, StepClick)
	}
	if s.Fill != "" {
		kinds = append(kinds, StepFill)
	}
	if s.Press != "" {
		kinds = append(kinds, StepPress)
	}
	if s.ScrollIntoView != "" {
		kinds = append(kinds, StepScrollIntoView)
	}
	if s.Resize != nil {
		kinds = append(kinds, StepResize)
	}
	if s.Pause > 0 {
		kinds = append(kinds, StepPause)
	}
	if s.Check != "" {
		kinds = append(kinds, StepCheck)
	}
	if len(kinds) != 1 {
		return StepInvalid
	}
	return kinds[0]
}

// Label is a short human description used in logs and error results.
func (s Step) Label() string {
	switch s.Kind() {
	case StepNavigate:
		return "navigate " + s.Navigate
	case StepClick:
		return "click " + s.Click
	case StepFill:
		return "fill " + s.Fill
	case StepPress:
		return "press " + s.Press
	case StepScrollIntoView:
		return "scroll to " + s.ScrollIntoView
	case StepResize:
		return fmt.Sprintf("resize %dx%d", s.Resize.Width, s.Resize.Height)
	case StepPause:
		return "pause " + s.Pause.String()
	case StepCheck:
		if s.Target != "" {
			return s.Check + " " + s.Target
		}
		return s.Check
	default:
		return "invalid step"
	}
}

// Check identifiers accepted in suite files.
const (
	CheckVisible          = "visible"
	CheckHidden           = "hidden"
	CheckTextContains     = "text-contains"
	CheckAttrContains     = "attribute-contains"
	CheckTitleMatches     = "title-matches"
	CheckHeadingHierarchy = "heading-hierarchy"
	CheckImageAltText     = "image-alt-text"
	CheckLoadTime         = "load-time"
	CheckDOMContentLoaded = "dom-content-loaded"
	CheckFocusMoved       = "focus-moved"

	CheckHealth          = "health"
	CheckReadiness       = "readiness"
	CheckCORS            = "cors-preflight"
	CheckBurst           = "burst"
	CheckRateLimit       = "rate-limit"
	CheckSecurityHeaders = "security-headers"
	CheckLatency         = "latency"
	CheckStatus          = "status"
	CheckHeaders         = "headers"
)

type checkSpec struct {
	kind   Kind
	target bool // requires Target
	want   bool // requires Want
	// result is the name carried by results of this check, used for error results.
	result string
}

var checkSpecs = map[string]checkSpec{
	CheckVisible:          {kind: KindPage, target: true, result: check.NameContentPresence},
	CheckHidden:           {kind: KindPage, target: true, result: check.NameHidden},
	CheckTextContains:     {kind: KindPage, target: true, want: true, result: check.NameTextContains},
	CheckAttrContains:     {kind: KindPage, target: true, want: true, result: check.NameAttrContains},
	CheckTitleMatches:     {kind: KindPage, want: true, result: check.NameTitleMatches},
	CheckHeadingHierarchy: {kind: KindPage, result: check.NameHeadingHierarchy},
	CheckImageAltText:     {kind: KindPage, result: check.NameImageAltText},
	CheckLoadTime:         {kind: KindPage, result: check.NameLoadTimeBudget},
	CheckDOMContentLoaded: {kind: KindPage, result: check.NameDOMContentBudget},
	CheckFocusMoved:       {kind: KindPage, result: check.NameFocusMoved},

	CheckHealth:          {kind: KindAPI, result: probe.NameHealthContract},
	CheckReadiness:       {kind: KindAPI, result: probe.NameReadinessContract},
	CheckCORS:            {kind: KindAPI, result: probe.NameCORSPreflight},
	CheckBurst:           {kind: KindAPI, result: probe.NameBurstNotLimited},
	CheckRateLimit:       {kind: KindAPI, result: probe.NameRateLimitEnforced},
	CheckSecurityHeaders: {kind: KindAPI, result: probe.NameSecurityHeaders},
	CheckLatency:         {kind: KindAPI, result: probe.NameAPILatency},
	CheckStatus:          {kind: KindAPI, result: check.NameStatusInSet},
	CheckHeaders:         {kind: KindAPI, result: check.NameHeaderPresence},
}

// resultName is the check-result name a step produces, falling back to the step label.
func (s Step) resultName() string {
	if spec, ok := checkSpecs[s.Check]; ok {
		return spec.result
	}
	return strings.ReplaceAll(string(s.Kind()), "_", "-")
}

// validate reports the first structural problem with the scenario.
func (sc Scenario) validate() error {
	if strings.TrimSpace(sc.Name) == "" {
		return fmt.Errorf("scenario has no name")
	}
	if sc.Target != KindPage && sc.Target != KindAPI {
		return fmt.Errorf("scenario %q: target must be %q or %q, got %q", sc.Name, KindPage, KindAPI, sc.Target)
	}
	if sc.Timeout < 0 {
		return fmt.Errorf("scenario %q: negative timeout", sc.Name)
	}
	if sc.Viewport != nil && (sc.Viewport.Width <= 0 || sc.Viewport.Height <= 0) {
		return fmt.Errorf("scenario %q: viewport must be positive", sc.Name)
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", sc.Name)
	}
	for i, st := range sc.Steps {
		if err := st.validate(sc.Target); err != nil {
			return fmt.Errorf("scenario %q step %d: %w", sc.Name, i+1, err)
		}
	}
	return nil
}

func (s Step) validate(target Kind) error {
	kind := s.Kind()
	if kind == StepInvalid {
		return fmt.Errorf("exactly one action is required")
	}
	if kind != StepCheck {
		if target == KindAPI {
			return fmt.Errorf("%s needs a page scenario", kind)
		}
		if kind == StepResize && (s.Resize.Width <= 0 || s.Resize.Height <= 0) {
			return fmt.Errorf("resize must be positive")
		}
		return nil
	}

	spec, ok := checkSpecs[s.Check]
	if !ok {
		return fmt.Errorf("unknown check %q", s.Check)
	}
	if spec.kind != target {
		return fmt.Errorf("check %q is not valid in a %s scenario", s.Check, target)
	}
	if spec.target && s.Target == "" {
		return fmt.Errorf("check %q needs a target", s.Check)
	}
	if spec.want && s.Want == "" {
		return fmt.Errorf("check %q needs want", s.Check)
	}
	if s.Check == CheckAttrContains && s.Attr == "" {
		return fmt.Errorf("check %q needs attr", s.Check)
	}
	if s.Check == CheckTitleMatches {
		if _, err := compilePattern(s.Want); err != nil {
			return fmt.Errorf("check %q: %w", s.Check, err)
		}
	}
	if (s.Check == CheckLoadTime || s.Check == CheckDOMContentLoaded) && s.Budget <= 0 {
		return fmt.Errorf("check %q needs a positive budget", s.Check)
	}
	if s.Check == CheckStatus && len(s.Status) == 0 {
		return fmt.Errorf("check %q needs status", s.Check)
	}
	if s.Check == CheckHeaders && len(s.Headers) == 0 {
		return fmt.Errorf("check %q needs headers", s.Check)
	}
	if s.Count < 0 {
		return fmt.Errorf("count must not be negative")
	}
	return nil
}
