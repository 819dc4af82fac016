// internal/scenario/suite.go
package scenario

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/scalpel-e2e/internal/errs"
)

//go:embed default_suite.yaml
var defaultSuite []byte

// Suite is a named, ordered set of scenarios loaded from YAML.
type Suite struct {
	Name      string     `yaml:"name"`
	Scenarios []Scenario `yaml:"scenarios"`
}

// DefaultSuite returns the built-in suite for the marketing site and its API.
func DefaultSuite() (*Suite, error) {
	return ParseSuite(defaultSuite)
}

// LoadSuite reads a suite file, or the built-in suite when path is empty.
func LoadSuite(path string) (*Suite, error) {
	if path == "" {
		return DefaultSuite()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Config("run.suite", "cannot read suite file %s: %v", path, err)
	}
	return ParseSuite(data)
}

// ParseSuite decodes and validates a suite. Unknown keys are rejected so typos in
// step definitions surface before any browser is launched.
func ParseSuite(data []byte) (*Suite, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Suite
	if err := dec.Decode(&s); err != nil {
		return nil, errs.Config("run.suite", "invalid suite: %v", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every scenario and rejects duplicate names.
func (s *Suite) Validate() error {
	if len(s.Scenarios) == 0 {
		return errs.Config("run.suite", "suite %q has no scenarios", s.Name)
	}
	seen := make(map[string]struct{}, len(s.Scenarios))
	for _, sc := range s.Scenarios {
		if err := sc.validate(); err != nil {
			return errs.Config("run.suite", "%v", err)
		}
		if _, dup := seen[sc.Name]; dup {
			return errs.Config("run.suite", "duplicate scenario name %q", sc.Name)
		}
		seen[sc.Name] = struct{}{}
	}
	return nil
}

// Filter keeps scenarios whose name matches run (when set) and does not match
// skip (when set). Order is preserved.
func (s *Suite) Filter(run, skip *regexp.Regexp) []Scenario {
	out := make([]Scenario, 0, len(s.Scenarios))
	for _, sc := range s.Scenarios {
		if run != nil && !run.MatchString(sc.Name) {
			continue
		}
		if skip != nil && skip.MatchString(sc.Name) {
			continue
		}
		out = append(out, sc)
	}
	return out
}

// NeedsBrowser reports whether any scenario drives a page.
func NeedsBrowser(scs []Scenario) bool {
	for _, sc := range scs {
		if sc.Target == KindPage {
			return true
		}
	}
	return false
}

// CompileFilter compiles an optional name filter for Filter.
func CompileFilter(key, expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errs.Config(key, "invalid pattern %q: %v", expr, err)
	}
	return re, nil
}

func compilePattern(expr string) (*regexp.Regexp, error) {
	if len(expr) >= 2 && expr[0] == '/' && expr[len(expr)-1] == '/' {
		expr = expr[1 : len(expr)-1]
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return re, nil
}
