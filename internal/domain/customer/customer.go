package customer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxFieldLength bounds every customer field, in characters.
const MaxFieldLength = 30

// Flow identifies a checkout context.
type Flow string

const (
	FlowOnline   Flow = "online"
	FlowInPerson Flow = "in_person"
)

// Field names used by the two flows.
const (
	FieldFirstName    = "firstName"
	FieldLastName     = "lastName"
	FieldCedula       = "cedula"
	FieldPhone        = "phone"
	FieldAddress      = "address"
	FieldCity         = "city"
	FieldNeighborhood = "neighborhood"
	FieldName         = "name"
	FieldEmail        = "email"
)

// Validation failure reasons.
const (
	ReasonRequired      = "required"
	ReasonTooLong       = "too_long"
	ReasonDigitsOnly    = "digits_only"
	ReasonInvalidFormat = "invalid_format"
)

var (
	digitsPattern = regexp.MustCompile(`^\d+$`)
	phonePattern  = regexp.MustCompile(`^\+?\d{7,15}$`)
	emailPattern  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Field describes one customer input and its constraints.
type Field struct {
	Name       string
	Required   bool
	DigitsOnly bool
	Pattern    *regexp.Regexp
}

// Schema is the set of customer fields a flow collects.
type Schema struct {
	Flow   Flow
	Fields []Field
	// Optional lets the whole customer be omitted when every field is blank.
	Optional bool
}

// Online is the full delivery profile required for web orders.
var Online = Schema{
	Flow: FlowOnline,
	Fields: []Field{
		{Name: FieldFirstName, Required: true},
		{Name: FieldLastName, Required: true},
		{Name: FieldCedula, Required: true, DigitsOnly: true},
		{Name: FieldPhone, Required: true, Pattern: phonePattern},
		{Name: FieldAddress, Required: true},
		{Name: FieldCity, Required: true},
		{Name: FieldNeighborhood, Required: true},
	},
}

// InPerson is the minimal identity taken at the counter.
var InPerson = Schema{
	Flow:     FlowInPerson,
	Optional: true,
	Fields: []Field{
		{Name: FieldCedula, Required: true, DigitsOnly: true},
		{Name: FieldName, Required: true},
		{Name: FieldEmail, Pattern: emailPattern},
	},
}

// SchemaFor returns the schema of a flow.
func SchemaFor(flow Flow) (Schema, error) {
	switch flow {
	case FlowOnline:
		return Online, nil
	case FlowInPerson:
		return InPerson, nil
	}
	return Schema{}, fmt.Errorf("unknown flow %q", flow)
}

// Customer holds validated, trimmed field values.
type Customer struct {
	Flow   Flow              `json:"flow"`
	Fields map[string]string `json:"fields"`
}

// Get returns a field value, or "" if absent.
func (c *Customer) Get(name string) string {
	if c == nil {
		return ""
	}
	return c.Fields[name]
}

// Clone returns a deep copy.
func (c *Customer) Clone() *Customer {
	if c == nil {
		return nil
	}
	fields := make(map[string]string, len(c.Fields))
	for k, v := range c.Fields {
		fields[k] = v
	}
	return &Customer{Flow: c.Flow, Fields: fields}
}

// FieldError names one invalid field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every invalid field found in one pass.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s (%s)", f.Field, f.Reason)
	}
	return "invalid customer fields: " + strings.Join(parts, ", ")
}

// FieldNames returns the names of the invalid fields in schema order.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return names
}

// Parse trims and validates raw input against the schema. Every field is
// checked before returning. For an optional schema with all fields blank it
// returns a nil customer and no error.
func (s Schema) Parse(raw map[string]string) (*Customer, error) {
	values := make(map[string]string, len(s.Fields))
	blank := true
	for _, f := range s.Fields {
		v := strings.TrimSpace(raw[f.Name])
		values[f.Name] = v
		if v != "" {
			blank = false
		}
	}

	if blank && s.Optional {
		return nil, nil
	}

	var errs []FieldError
	for _, f := range s.Fields {
		if reason := f.check(values[f.Name]); reason != "" {
			errs = append(errs, FieldError{Field: f.Name, Reason: reason})
		}
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	fields := make(map[string]string, len(values))
	for k, v := range values {
		if v != "" {
			fields[k] = v
		}
	}
	return &Customer{Flow: s.Flow, Fields: fields}, nil
}

func (f Field) check(v string) string {
	if v == "" {
		if f.Required {
			return ReasonRequired
		}
		return ""
	}
	if utf8.RuneCountInString(v) > MaxFieldLength {
		return ReasonTooLong
	}
	if f.DigitsOnly && !digitsPattern.MatchString(v) {
		return ReasonDigitsOnly
	}
	if f.Pattern != nil && !f.Pattern.MatchString(v) {
		return ReasonInvalidFormat
	}
	return ""
}
