// Package primitive converts strings into values of Go's primitive kinds. It
// backs the default values declared in struct tags, and the conversion of
// textual request data such as query strings into typed parameters.
package primitive

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

var durationType = reflect.TypeFor[time.Duration]()

// Is reports whether values of type t can be produced by Parse.
func Is(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case
		reflect.Bool,
		reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return true
	default:
		return false
	}
}

// Parse converts s into a value of type t. Named types are preserved, so
// parsing into a custom string type yields a value of that type rather than
// a plain string. As a special case, time.Duration accepts the notation of
// time.ParseDuration.
func Parse(t reflect.Type, s string) (any, error) {
	if !Is(t) {
		return nil, fmt.Errorf("unsupported type: %v", t)
	}
	rv := reflect.New(t).Elem()
	if err := Set(rv, s); err != nil {
		return nil, err
	}
	return rv.Interface(), nil
}

// Set parses s and stores the result in rv, which must be settable.
func Set(rv reflect.Value, s string) error {
	if rv.Type() == durationType {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("%q is not a duration", s)
		}
		rv.SetInt(int64(d))
		return nil
	}
	switch kind := rv.Kind(); kind {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("%q is not a bool", s)
		}
		rv.SetBool(b)
	case reflect.String:
		rv.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Type().Bits()
		i, err := strconv.ParseInt(s, 10, n)
		if err != nil {
			return fmt.Errorf("%q is not an int%d", s, n)
		}
		rv.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n := rv.Type().Bits()
		u, err := strconv.ParseUint(s, 10, n)
		if err != nil {
			return fmt.Errorf("%q is not a uint%d", s, n)
		}
		rv.SetUint(u)
	case reflect.Float32, reflect.Float64:
		n := rv.Type().Bits()
		f, err := strconv.ParseFloat(s, n)
		if err != nil {
			return fmt.Errorf("%q is not a float%d", s, n)
		}
		rv.SetFloat(f)
	case reflect.Complex64, reflect.Complex128:
		n := rv.Type().Bits()
		c, err := strconv.ParseComplex(s, n)
		if err != nil {
			return fmt.Errorf("%q is not a complex%d", s, n)
		}
		rv.SetComplex(c)
	default:
		return fmt.Errorf("unsupported type: %s", kind)
	}
	return nil
}
