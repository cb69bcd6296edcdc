package web

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/deep-rent/wiring/di"
	"github.com/deep-rent/wiring/header"
	"github.com/deep-rent/wiring/router"
)

// NewValidator creates the validator used by JSON components by default.
// Validation errors refer to fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// JSON creates a component that decodes the request body into a T. Struct
// values are checked against their "validate" tags unless validation was
// disabled through WithValidator(nil). Failures are reported as
// *router.Error: 415 for a wrong content type, 400 for an empty or malformed
// body, and 422 for values that fail validation.
func JSON[T any](opts ...Option) di.Component {
	c := newConfig(opts)
	typ := reflect.TypeFor[T]()
	validate := c.validate
	if !isStruct(typ) {
		validate = nil
	}

	return di.Provide("JSON["+typ.String()+"]", func(_ context.Context, a di.Args) (T, error) {
		var v T
		h := di.Arg[http.Header](a, "headers")
		if ct := h.Get(header.ContentType); ct != "" && !strings.HasPrefix(ct, "application/json") {
			return v, errorf(
				http.StatusUnsupportedMediaType,
				router.ReasonWrongType,
				"wrong content type",
			)
		}
		body := di.Arg[Body](a, "body")
		if len(body) == 0 {
			return v, errorf(
				http.StatusBadRequest,
				router.ReasonEmptyBody,
				"empty request body",
			)
		}
		if err := json.Unmarshal(body, &v); err != nil {
			e := errorf(
				http.StatusBadRequest,
				router.ReasonParseJSON,
				"could not parse JSON body",
			)
			e.Cause = err
			return v, e
		}
		if validate != nil {
			if err := validate.Struct(v); err != nil {
				e := errorf(
					http.StatusUnprocessableEntity,
					router.ReasonInvalid,
					"%s",
					describe(err),
				)
				e.Cause = err
				return v, e
			}
		}
		return v, nil
	}, di.Needs(
		di.Param[http.Header]("headers"),
		di.Param[Body]("body"),
	))
}

func isStruct(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

// describe summarizes validation failures in a single line.
func describe(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	parts := make([]string, len(errs))
	for i, fe := range errs {
		parts[i] = "field " + fe.Field() + " failed on " + fe.Tag()
	}
	return strings.Join(parts, "; ")
}
