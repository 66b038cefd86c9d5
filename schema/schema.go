// Package schema declares the record types stored by the service and
// validates them before they reach the data-access layer.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Kind names a record type. Each kind maps to exactly one collection.
type Kind string

const (
	KindUser        Kind = "User"
	KindProduct     Kind = "Product"
	KindApplication Kind = "Application"
)

var collections = map[Kind]string{
	KindUser:        "user",
	KindProduct:     "product",
	KindApplication: "application",
}

// CollectionFor returns the storage collection for a record kind.
func CollectionFor(k Kind) (string, error) {
	c, ok := collections[k]
	if !ok {
		return "", fmt.Errorf("no collection registered for kind %q", k)
	}
	return c, nil
}

// Record is implemented by every declared schema.
type Record interface {
	Kind() Kind
	// ApplyDefaults fills fields the client is allowed to omit.
	ApplyDefaults()
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report JSON names so error paths match what the client sent.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks r against its declared rules.
// It returns nil or a *ValidationError.
func Validate(r Record) error {
	err := instance().Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, fromValidator(fe))
	}
	return out
}

// Decode reads a JSON object into r, applies defaults and validates it.
// Malformed JSON and type mismatches are reported as *ValidationError.
func Decode(body io.Reader, r Record) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &ValidationError{Fields: []FieldError{{
			Loc: []string{"body"}, Rule: "missing", Message: "field required",
		}}}
	}
	if err := json.Unmarshal(raw, r); err != nil {
		return fromDecode(err)
	}
	r.ApplyDefaults()
	return Validate(r)
}
