package di

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// noDefault is the type of the NoDefault sentinel.
type noDefault struct{}

func (noDefault) String() string { return "<none>" }

// NoDefault marks a Parameter that carries no default value. It is distinct
// from nil, which is a perfectly valid default.
var NoDefault any = noDefault{}

// Parameter is the normalized description of a single input of a target or
// component: its name, its declared type, and an optional default value.
//
// Always construct parameters through NewParameter or Param so that the
// Default field starts out as NoDefault.
type Parameter struct {
	Name    string
	Type    reflect.Type
	Default any
}

// NewParameter creates a Parameter without default value.
func NewParameter(name string, typ reflect.Type) Parameter {
	return Parameter{
		Name:    name,
		Type:    typ,
		Default: NoDefault,
	}
}

// Param is the generic shorthand for NewParameter.
func Param[T any](name string) Parameter {
	return NewParameter(name, reflect.TypeFor[T]())
}

// WithDefault returns a copy of p that falls back to v when no runtime value
// is supplied for it.
func (p Parameter) WithDefault(v any) Parameter {
	p.Default = v
	return p
}

// HasDefault reports whether p carries a default value.
func (p Parameter) HasDefault() bool {
	return p.Default != NoDefault
}

// Equal reports whether p and q agree on name, type and default.
func (p Parameter) Equal(q Parameter) bool {
	return p.Name == q.Name &&
		p.Type == q.Type &&
		reflect.DeepEqual(p.Default, q.Default)
}

// String formats the parameter as "name: type".
func (p Parameter) String() string {
	return p.Name + ": " + typeName(p.Type)
}

// typeName renders t for messages and identities, tolerating nil.
func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// typeID returns a stable identity for t that also disambiguates equally
// named types declared in different packages.
func typeID(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if pkg := pkgPath(t); pkg != "" {
		return pkg + "." + t.String()
	}
	return t.String()
}

// pkgPath digs through pointer and container types to find the declaring
// package of t.
func pkgPath(t reflect.Type) string {
	for {
		if p := t.PkgPath(); p != "" {
			return p
		}
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Chan, reflect.Map:
			t = t.Elem()
		default:
			return ""
		}
	}
}

// shortName is the unqualified, lower-case name of t.
func shortName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		name = t.String()
	}
	if i := strings.IndexByte(name, '['); i > 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

// builtin reports whether t is one of Go's predeclared value types. Such
// parameters fall back to being read from the runtime values by name when
// no component handles them.
func builtin(t reflect.Type) bool {
	if t == nil || t.PkgPath() != "" || t.Name() == "" {
		return false
	}
	switch t.Kind() {
	case
		reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	default:
		return false
	}
}

// Kwargs holds the final, named values computed for a target.
type Kwargs map[string]any

// Lookup returns the value stored under name.
func (k Kwargs) Lookup(name string) (any, bool) {
	v, ok := k[name]
	return v, ok
}

// Get returns the value stored under name, or nil.
func (k Kwargs) Get(name string) any { return k[name] }

// Values is the runtime context: ambient and externally supplied values,
// keyed by name. A fresh map is expected per call.
type Values map[string]any

// Ambient is the static context table. It maps declared types to the names
// under which values of that type are found in the runtime Values.
type Ambient map[reflect.Type]string

// Clone returns a shallow copy of a.
func (a Ambient) Clone() Ambient {
	if a == nil {
		return make(Ambient)
	}
	return maps.Clone(a)
}

// Set registers type T under the given ambient name.
func Set[T any](a Ambient, name string) Ambient {
	a[reflect.TypeFor[T]()] = name
	return a
}

func (a Ambient) String() string {
	parts := make([]string, 0, len(a))
	for t, n := range a {
		parts = append(parts, fmt.Sprintf("%s=%s", n, typeName(t)))
	}
	slices.Sort(parts)
	return "{" + strings.Join(parts, ", ") + "}"
}
