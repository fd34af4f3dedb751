// Package customfield turns custom field definitions into typed editors. Each
// supported field type has its own Kind; anything else becomes Unsupported so
// the value can still be shown and left untouched.
package customfield

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"teamboard-cli/internal/model"
)

const DateLayout = "2006-01-02"

var ErrRequired = errors.New("value is required")

// Kind is one field type's behavior. Parse turns user input into the JSON
// value sent to the backend; Render formats a stored value for display.
type Kind interface {
	Name() string
	Parse(input string) (any, error)
	Render(raw json.RawMessage) string
}

// Field pairs a definition with its kind.
type Field struct {
	Def  model.CustomFieldDefinition
	Kind Kind
}

func For(def model.CustomFieldDefinition) Field {
	return Field{Def: def, Kind: kindFor(def)}
}

func kindFor(def model.CustomFieldDefinition) Kind {
	v := def.Validation
	if v == nil {
		v = &model.FieldValidation{}
	}
	switch def.FieldType {
	case "text":
		return Text{Validation: *v}
	case "textarea":
		return Text{Validation: *v, Multiline: true}
	case "number":
		return Number{Validation: *v}
	case "date":
		return Date{}
	case "select":
		return Select{Options: def.Options}
	case "multi_select":
		return MultiSelect{Options: def.Options}
	case "checkbox":
		return Checkbox{}
	case "url":
		return URL{}
	case "email":
		return Email{}
	case "user":
		return UserRef{}
	default:
		return Unsupported{Type: def.FieldType}
	}
}

// Parse validates input against the definition. Blank input, including a
// list with no entries, is nil for optional fields and ErrRequired for
// required ones.
func (f Field) Parse(input string) (any, error) {
	if strings.TrimSpace(input) == "" {
		return f.blank()
	}
	v, err := f.Kind.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Def.Name, err)
	}
	if xs, ok := v.([]string); ok && len(xs) == 0 {
		return f.blank()
	}
	return v, nil
}

func (f Field) blank() (any, error) {
	if f.Def.Required {
		return nil, fmt.Errorf("%s: %w", f.Def.Name, ErrRequired)
	}
	return nil, nil
}

func (f Field) Render(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	return f.Kind.Render(raw)
}

type Text struct {
	Validation model.FieldValidation
	Multiline  bool
}

func (k Text) Name() string {
	if k.Multiline {
		return "textarea"
	}
	return "text"
}

func (k Text) Parse(input string) (any, error) {
	if !k.Multiline {
		input = strings.TrimSpace(input)
	}
	n := len([]rune(input))
	if k.Validation.MinLength != nil && n < *k.Validation.MinLength {
		return nil, fmt.Errorf("must be at least %d characters", *k.Validation.MinLength)
	}
	if k.Validation.MaxLength != nil && n > *k.Validation.MaxLength {
		return nil, fmt.Errorf("must be at most %d characters", *k.Validation.MaxLength)
	}
	if p := k.Validation.Pattern; p != "" {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		if !re.MatchString(input) {
			return nil, fmt.Errorf("does not match %s", p)
		}
	}
	return input, nil
}

func (Text) Render(raw json.RawMessage) string { return renderString(raw) }

type Number struct {
	Validation model.FieldValidation
}

func (Number) Name() string { return "number" }

func (k Number) Parse(input string) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errors.New("must be a number")
	}
	if k.Validation.Min != nil && f < *k.Validation.Min {
		return nil, fmt.Errorf("must be at least %s", fmtNum(*k.Validation.Min))
	}
	if k.Validation.Max != nil && f > *k.Validation.Max {
		return nil, fmt.Errorf("must be at most %s", fmtNum(*k.Validation.Max))
	}
	return f, nil
}

func (Number) Render(raw json.RawMessage) string {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return renderString(raw)
	}
	return fmtNum(f)
}

type Date struct{}

func (Date) Name() string { return "date" }

func (Date) Parse(input string) (any, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(input))
	if err != nil {
		return nil, errors.New("must be a date (YYYY-MM-DD)")
	}
	return t.Format(DateLayout), nil
}

func (Date) Render(raw json.RawMessage) string {
	s := renderString(raw)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(DateLayout)
	}
	return s
}

type Select struct {
	Options []string
}

func (Select) Name() string { return "select" }

func (k Select) Parse(input string) (any, error) {
	return matchOption(k.Options, strings.TrimSpace(input))
}

func (Select) Render(raw json.RawMessage) string { return renderString(raw) }

type MultiSelect struct {
	Options []string
}

func (MultiSelect) Name() string { return "multi_select" }

// Parse accepts a comma-separated list; duplicates collapse.
func (k MultiSelect) Parse(input string) (any, error) {
	out := []string{}
	seen := map[string]bool{}
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := matchOption(k.Options, part)
		if err != nil {
			return nil, err
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

func (MultiSelect) Render(raw json.RawMessage) string {
	var xs []string
	if err := json.Unmarshal(raw, &xs); err != nil {
		return renderString(raw)
	}
	return strings.Join(xs, ", ")
}

type Checkbox struct{}

func (Checkbox) Name() string { return "checkbox" }

func (Checkbox) Parse(input string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "true", "yes", "y", "1", "on", "x":
		return true, nil
	case "false", "no", "n", "0", "off":
		return false, nil
	}
	return nil, errors.New("must be yes or no")
}

func (Checkbox) Render(raw json.RawMessage) string {
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return renderString(raw)
	}
	if b {
		return "yes"
	}
	return "no"
}

type URL struct{}

func (URL) Name() string { return "url" }

func (URL) Parse(input string) (any, error) {
	s := strings.TrimSpace(input)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.New("must be an http(s) URL")
	}
	return s, nil
}

func (URL) Render(raw json.RawMessage) string { return renderString(raw) }

type Email struct{}

func (Email) Name() string { return "email" }

func (Email) Parse(input string) (any, error) {
	s := strings.TrimSpace(input)
	a, err := mail.ParseAddress(s)
	if err != nil || a.Address != s {
		return nil, errors.New("must be an email address")
	}
	return s, nil
}

func (Email) Render(raw json.RawMessage) string { return renderString(raw) }

// UserRef stores a user id.
type UserRef struct{}

func (UserRef) Name() string { return "user" }

func (UserRef) Parse(input string) (any, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(input), "#"), 10, 64)
	if err != nil || id <= 0 {
		return nil, errors.New("must be a user id")
	}
	return id, nil
}

func (UserRef) Render(raw json.RawMessage) string {
	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return renderString(raw)
	}
	return "#" + strconv.FormatInt(id, 10)
}

// Unsupported is any field type this client does not know. Values render as
// raw JSON and cannot be edited.
type Unsupported struct {
	Type string
}

func (k Unsupported) Name() string { return k.Type }

func (k Unsupported) Parse(string) (any, error) {
	return nil, fmt.Errorf("field type %q is not supported", k.Type)
}

func (Unsupported) Render(raw json.RawMessage) string { return string(raw) }

func IsSupported(def model.CustomFieldDefinition) bool {
	_, ok := kindFor(def).(Unsupported)
	return !ok
}

func matchOption(options []string, v string) (string, error) {
	for _, o := range options {
		if strings.EqualFold(o, v) {
			return o, nil
		}
	}
	return "", fmt.Errorf("%q is not one of: %s", v, strings.Join(options, ", "))
}

func renderString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func fmtNum(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
