package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one violated rule.
type FieldError struct {
	// Loc is the path to the offending value, rooted at "body".
	Loc     []string `json:"loc"`
	Message string   `json:"msg"`
	Rule    string   `json:"type"`
}

// ValidationError is returned when a payload does not satisfy its schema.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", strings.Join(f.Loc, "."), f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the error for the named top-level field, if any.
func (e *ValidationError) Field(name string) (FieldError, bool) {
	for _, f := range e.Fields {
		if len(f.Loc) > 1 && f.Loc[len(f.Loc)-1] == name {
			return f, true
		}
	}
	return FieldError{}, false
}

func fromValidator(fe validator.FieldError) FieldError {
	loc := []string{"body"}
	// Namespace is "Application.child_name"; drop the struct name.
	if ns := strings.SplitN(fe.Namespace(), ".", 2); len(ns) == 2 {
		loc = append(loc, strings.Split(ns[1], ".")...)
	} else {
		loc = append(loc, fe.Field())
	}
	return FieldError{Loc: loc, Rule: fe.Tag(), Message: message(fe)}
}

// layoutNames spells a Go time layout the way API clients write it.
var layoutNames = strings.NewReplacer("2006", "YYYY", "01", "MM", "02", "DD")

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "oneof":
		return "value is not a valid enumeration member; permitted: " + quoteAll(splitQuoted(fe.Param()))
	case "email":
		return "value is not a valid email address"
	case "datetime":
		return "invalid date format, expected " + layoutNames.Replace(fe.Param())
	case "gte":
		return "ensure this value is greater than or equal to " + fe.Param()
	case "lte":
		return "ensure this value is less than or equal to " + fe.Param()
	}
	return fmt.Sprintf("failed on the %q rule", fe.Tag())
}

// splitQuoted splits a oneof parameter that may contain 'quoted values'.
func splitQuoted(param string) []string {
	var out []string
	for len(param) > 0 {
		param = strings.TrimLeft(param, " ")
		if param == "" {
			break
		}
		if param[0] == '\'' {
			end := strings.IndexByte(param[1:], '\'')
			if end < 0 {
				out = append(out, param[1:])
				break
			}
			out = append(out, param[1:end+1])
			param = param[end+2:]
			continue
		}
		end := strings.IndexByte(param, ' ')
		if end < 0 {
			out = append(out, param)
			break
		}
		out = append(out, param[:end])
		param = param[end:]
	}
	return out
}

func quoteAll(opts []string) string {
	q := make([]string, len(opts))
	for i, o := range opts {
		q[i] = "'" + o + "'"
	}
	return strings.Join(q, ", ")
}

func fromDecode(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		loc := []string{"body"}
		if typeErr.Field != "" {
			loc = append(loc, strings.Split(typeErr.Field, ".")...)
		}
		return &ValidationError{Fields: []FieldError{{
			Loc:     loc,
			Rule:    "type_error." + typeErr.Type.Kind().String(),
			Message: fmt.Sprintf("value is not a valid %s", typeErr.Type.Kind()),
		}}}
	}
	return &ValidationError{Fields: []FieldError{{
		Loc:     []string{"body"},
		Rule:    "value_error.jsondecode",
		Message: "invalid JSON: " + err.Error(),
	}}}
}
