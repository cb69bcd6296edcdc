package di

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/deep-rent/wiring/internal/primitive"
	"github.com/deep-rent/wiring/internal/snake"
	"github.com/deep-rent/wiring/internal/tag"
)

// TagKey is the struct tag consulted by Struct.
const TagKey = "inject"

// Target is the subject of injection: a named list of parameters, and
// optionally the function to call once all of them have been resolved.
//
// Plans are cached per ID. Two targets with the same ID must therefore
// declare the same parameters. An empty ID is replaced by the one NewTarget
// would derive.
type Target struct {
	ID     string
	Name   string
	Params []Parameter
	Fn     func(ctx context.Context, kwargs Kwargs) (any, error)
}

// NewTarget creates a declarative target. Its ID is derived from the name
// and the signature, so targets that share a name but declare different
// parameters never collide in the plan cache.
func NewTarget(name string, params ...Parameter) Target {
	return Target{
		ID:     signature(name, params),
		Name:   name,
		Params: params,
	}
}

// Bind returns a copy of t that invokes fn when called through Inject.
func (t Target) Bind(fn func(ctx context.Context, kwargs Kwargs) (any, error)) Target {
	t.Fn = fn
	return t
}

func signature(name string, params []Parameter) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Name + " " + typeID(p.Type)
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

// In may be embedded into parameter structs to mark them as such. The
// embedded field itself is never treated as a parameter.
type In struct{}

var inType = reflect.TypeFor[In]()

// field links a parameter to the struct field it populates.
type field struct {
	index []int
	param Parameter
}

// Struct creates a target whose parameters are the exported fields of the
// struct type P, in declaration order.
//
// The parameter name defaults to the snake_case form of the field name and
// can be overridden through the "inject" tag. A tag value of "-" excludes the
// field. The "default" option supplies a default for fields of a primitive
// kind:
//
//	type Params struct {
//		di.In
//		User  *User
//		Limit int    `inject:"limit,default:20"`
//		Trace string `inject:"-"`
//	}
//
// It panics if P is not a struct type or a default cannot be parsed, since
// both are programming errors.
func Struct[P any]() Target {
	t := reflect.TypeFor[P]()
	fields, err := fieldsOf(t)
	if err != nil {
		panic(err)
	}
	params := make([]Parameter, len(fields))
	for i, f := range fields {
		params[i] = f.param
	}
	return Target{
		ID:     "struct:" + typeID(t),
		Name:   shortName(t),
		Params: params,
	}
}

// Func creates a target that decodes the resolved values into P and calls
// fn with it. P follows the same rules as in Struct.
func Func[P, R any](name string, fn func(ctx context.Context, p P) (R, error)) Target {
	t := Struct[P]()
	t.ID = "func:" + name + ":" + t.ID
	t.Name = name
	t.Fn = func(ctx context.Context, kwargs Kwargs) (any, error) {
		p, err := Decode[P](kwargs)
		if err != nil {
			return nil, err
		}
		return fn(ctx, p)
	}
	return t
}

// Decode copies kwargs into a new value of the struct type P, following the
// field rules of Struct.
func Decode[P any](kwargs Kwargs) (P, error) {
	var p P
	rv := reflect.ValueOf(&p).Elem()
	fields, err := fieldsOf(rv.Type())
	if err != nil {
		return p, err
	}
	for _, f := range fields {
		v, ok := kwargs[f.param.Name]
		if !ok || v == nil {
			continue
		}
		src := reflect.ValueOf(v)
		dst := rv.FieldByIndex(f.index)
		switch {
		case src.Type().AssignableTo(dst.Type()):
			dst.Set(src)
		case src.Type().ConvertibleTo(dst.Type()):
			dst.Set(src.Convert(dst.Type()))
		default:
			return p, fmt.Errorf(
				"cannot assign %s to field %q of type %s",
				src.Type(), f.param.Name, dst.Type(),
			)
		}
	}
	return p, nil
}

// Fill resolves and executes the plan of Struct[P] against values and
// returns the populated struct.
func Fill[P any](ctx context.Context, in *Injector, values Values) (P, error) {
	kwargs, err := in.Kwargs(ctx, Struct[P](), values)
	if err != nil {
		var zero P
		return zero, err
	}
	return Decode[P](kwargs)
}

func fieldsOf(t reflect.Type) ([]field, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("parameter type %s is not a struct", t)
	}
	var fields []field
	for i := range t.NumField() {
		sf := t.Field(i)
		if sf.Anonymous && sf.Type == inType {
			continue
		}
		if !sf.IsExported() {
			continue
		}
		tg := tag.Parse(sf.Tag.Get(TagKey))
		if tg.Name == "-" {
			continue
		}
		name := tg.Name
		if name == "" {
			name = snake.ToLower(sf.Name)
		}
		p := NewParameter(name, sf.Type)
		if s, ok := tg.Lookup("default"); ok {
			v, err := primitive.Parse(sf.Type, s)
			if err != nil {
				return nil, fmt.Errorf("invalid default for field %s: %w", sf.Name, err)
			}
			p = p.WithDefault(v)
		}
		fields = append(fields, field{index: sf.Index, param: p})
	}
	return fields, nil
}
