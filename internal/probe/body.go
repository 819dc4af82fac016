// internal/probe/body.go
package probe

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
)

// FieldState distinguishes a field that is absent from one that is present.
type FieldState int

const (
	FieldMissing FieldState = iota
	FieldPresent
)

func (s FieldState) String() string {
	if s == FieldPresent {
		return "present"
	}
	return "missing"
}

// Field is one named field of a JSON body. A missing field is an explicit outcome,
// never a zero value mistaken for data.
type Field struct {
	Name  string
	State FieldState
	value gjson.Result
}

// Present reports whether the field exists in the body (null counts as present).
func (f Field) Present() bool { return f.State == FieldPresent }

// String returns the field's value as a string, or "" when missing.
func (f Field) String() string {
	if !f.Present() {
		return ""
	}
	return f.value.String()
}

// Float returns the field's numeric value and whether it was a JSON number.
func (f Field) Float() (float64, bool) {
	if !f.Present() || f.value.Type != gjson.Number {
		return 0, false
	}
	return f.value.Float(), true
}

func lookup(body []byte, name string) Field {
	r := gjson.GetBytes(body, name)
	if !r.Exists() {
		return Field{Name: name, State: FieldMissing}
	}
	return Field{Name: name, State: FieldPresent, value: r}
}

// HealthBody is the tagged record for GET /health.
type HealthBody struct {
	Status    Field
	Timestamp Field
	Uptime    Field
}

// ReadinessBody is the tagged record for GET /health/ready.
type ReadinessBody struct {
	Status    Field
	Checks    Field
	Timestamp Field
}

// Missing lists the names of absent fields in declaration order.
func (b HealthBody) Missing() []string {
	return missing(b.Status, b.Timestamp, b.Uptime)
}

// Missing lists the names of absent fields in declaration order.
func (b ReadinessBody) Missing() []string {
	return missing(b.Status, b.Checks, b.Timestamp)
}

func missing(fields ...Field) []string {
	var out []string
	for _, f := range fields {
		if !f.Present() {
			out = append(out, f.Name)
		}
	}
	return out
}

// requireObject rejects bodies that are not a JSON object, so a plain-text 200
// is reported as malformed rather than as a set of missing fields.
func requireObject(body []byte) error {
	if !jsoniter.Valid(body) {
		return fmt.Errorf("body is not valid JSON")
	}
	if !gjson.ParseBytes(body).IsObject() {
		return fmt.Errorf("body is not a JSON object")
	}
	return nil
}

// DecodeHealth decodes a /health body into its tagged record.
func DecodeHealth(body []byte) (HealthBody, error) {
	if err := requireObject(body); err != nil {
		return HealthBody{}, err
	}
	return HealthBody{
		Status:    lookup(body, "status"),
		Timestamp: lookup(body, "timestamp"),
		Uptime:    lookup(body, "uptime"),
	}, nil
}

// DecodeReadiness decodes a /health/ready body into its tagged record.
func DecodeReadiness(body []byte) (ReadinessBody, error) {
	if err := requireObject(body); err != nil {
		return ReadinessBody{}, err
	}
	return ReadinessBody{
		Status:    lookup(body, "status"),
		Checks:    lookup(body, "checks"),
		Timestamp: lookup(body, "timestamp"),
	}, nil
}
