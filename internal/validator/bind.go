package validator

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// JSON is the request binding used by the handlers. It decodes the body,
// trims surrounding whitespace from every string field and only then runs
// the binding rules, so padding cannot satisfy required or min checks.
// Fields tagged trim:"-" (passwords) are left untouched.
var JSON binding.Binding = trimmedJSON{}

type trimmedJSON struct{}

func (trimmedJSON) Name() string { return "json" }

func (trimmedJSON) Bind(req *http.Request, obj any) error {
	if req == nil || req.Body == nil {
		return errors.New("invalid request")
	}
	if err := json.NewDecoder(req.Body).Decode(obj); err != nil {
		return err
	}
	Normalize(obj)
	return binding.Validator.ValidateStruct(obj)
}

// Normalize trims every settable string and *string reachable from v
// through structs, pointers and slices.
func Normalize(v any) {
	normalize(reflect.ValueOf(v))
}

func normalize(v reflect.Value) {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if !v.IsNil() {
			normalize(v.Elem())
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(strings.TrimSpace(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			normalize(v.Index(i))
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() || f.Tag.Get("trim") == "-" {
				continue
			}
			normalize(v.Field(i))
		}
	}
}

// validateSingleLine rejects line breaks and other control characters, which
// would otherwise end up inside email headers.
func validateSingleLine(fl validator.FieldLevel) bool {
	return strings.IndexFunc(fl.Field().String(), unicode.IsControl) < 0
}
