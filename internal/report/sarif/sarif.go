// internal/report/sarif/sarif.go
package sarif

// Types for the subset of SARIF 2.1.0 the run report emits. Optional fields are
// pointers or omitempty so absent values stay out of the document.

const (
	Version = "2.1.0"
	Schema  = "https://json.schemastore.org/sarif-2.1.0.json"
)

type Log struct {
	Version string `json:"version"`
	Schema  string `json:"$schema"`
	Runs    []*Run `json:"runs"`
}

type Run struct {
	Tool        *Tool         `json:"tool"`
	Invocations []*Invocation `json:"invocations,omitempty"`
	Results     []*Result     `json:"results"`
	Properties  PropertyBag   `json:"properties,omitempty"`
}

type Tool struct {
	Driver *ToolComponent `json:"driver"`
}

type ToolComponent struct {
	Name           string                 `json:"name"`
	Version        *string                `json:"version,omitempty"`
	InformationURI *string                `json:"informationUri,omitempty"`
	Rules          []*ReportingDescriptor `json:"rules,omitempty"`
}

// Invocation records how the run went as a whole.
type Invocation struct {
	ExecutionSuccessful bool    `json:"executionSuccessful"`
	StartTimeUTC        *string `json:"startTimeUtc,omitempty"`
	EndTimeUTC          *string `json:"endTimeUtc,omitempty"`
	ExitCode            *int    `json:"exitCode,omitempty"`
}

type ReportingDescriptor struct {
	ID               string                    `json:"id"`
	Name             *string                   `json:"name,omitempty"`
	ShortDescription *MultiformatMessageString `json:"shortDescription,omitempty"`
	Properties       PropertyBag               `json:"properties,omitempty"`
}

type Result struct {
	RuleID     string      `json:"ruleId"`
	RuleIndex  int         `json:"ruleIndex"`
	Kind       Kind        `json:"kind,omitempty"`
	Level      Level       `json:"level,omitempty"`
	Message    *Message    `json:"message"`
	Locations  []*Location `json:"locations,omitempty"`
	Properties PropertyBag `json:"properties,omitempty"`
}

// Location identifies where a result applies. Scenario results have no source
// file, so they use logical locations.
type Location struct {
	LogicalLocations []*LogicalLocation `json:"logicalLocations,omitempty"`
	Message          *Message           `json:"message,omitempty"`
}

type LogicalLocation struct {
	Name               string  `json:"name"`
	FullyQualifiedName *string `json:"fullyQualifiedName,omitempty"`
	Kind               string  `json:"kind,omitempty"`
}

type Message struct {
	Text *string `json:"text,omitempty"`
}

type MultiformatMessageString struct {
	Text     *string `json:"text"`
	Markdown *string `json:"markdown,omitempty"`
}

type PropertyBag map[string]interface{}

type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelNote    Level = "note"
	LevelNone    Level = "none"
)

// Kind distinguishes failures from results that passed.
type Kind string

const (
	KindFail Kind = "fail"
	KindPass Kind = "pass"
)
