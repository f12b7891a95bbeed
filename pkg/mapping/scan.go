package mapping

import (
	"reflect"
	"strings"
	"unsafe"

	"github.com/ajitpratap0/colmap/pkg/errors"
)

// TagName is the struct tag read by the scanner.
//
//	column:"name"       maps the field to the column "name"
//	column:"name,id"    additionally marks it as the identifier
//	column:"-"          skips the field
//
// Untagged exported fields map to a column named after the field. A field
// mapped to "_id" is the identifier unless another field is tagged id.
const TagName = "column"

// DefaultIDColumn is the column treated as the identifier when no field is
// tagged id.
const DefaultIDColumn = "_id"

// Option customizes how a type is registered.
type Option func(*options)

type options struct {
	name        string
	ctor        any
	ctorColumns []string
	converters  map[string]ValueConverter
}

// WithName overrides the entity name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithConstructor registers fn as the constructor of the type. fn must
// accept one argument per column, in order, and return the type or a pointer
// to it, optionally followed by an error.
func WithConstructor(fn any, columns ...string) Option {
	return func(o *options) {
		o.ctor = fn
		o.ctorColumns = columns
	}
}

// WithConverter attaches a value converter to the field or constructor
// parameter stored under column. The Go field name is accepted as well.
func WithConverter(column string, c ValueConverter) Option {
	return func(o *options) {
		if o.converters == nil {
			o.converters = make(map[string]ValueConverter)
		}
		o.converters[column] = c
	}
}

// entityNamer lets a type choose its own entity name.
type entityNamer interface {
	EntityName() string
}

type scanned struct {
	meta   *EntityMetadata
	nested []reflect.Type
}

func scan(t reflect.Type, o options) (*scanned, error) {
	if t == nil {
		return nil, errors.NullArgument("type")
	}
	t = indirect(t)
	if t.Kind() != reflect.Struct {
		return nil, errors.Newf(errors.ErrorTypeValidation, "%s is not a struct type", t).
			WithDetail("type", t.String())
	}

	meta := &EntityMetadata{Name: entityName(t, o), Type: t}
	if meta.Name == "" {
		return nil, errors.Newf(errors.ErrorTypeValidation, "anonymous type %s needs an explicit name", t).
			WithDetail("type", t.String())
	}

	out := &scanned{meta: meta}
	var taggedID bool
	var walkErr error
	walk(t, nil, func(sf reflect.StructField, index []int) {
		if walkErr != nil {
			return
		}
		tag, hasTag := sf.Tag.Lookup(TagName)
		if !sf.IsExported() && !hasTag {
			return
		}
		name, opts := parseTag(tag)
		if name == "-" && len(opts) == 0 {
			return
		}
		if name == "" {
			name = sf.Name
		}

		conv := converterFor(o, name, sf.Name, sf.Type)
		kind, elem := kindOf(sf.Type, conv)
		f := &FieldMetadata{
			Name:      sf.Name,
			Column:    name,
			Type:      sf.Type,
			Kind:      kind,
			Element:   elem,
			Converter: conv,
			Getter:    getter(sf, index),
		}
		if sf.IsExported() {
			f.Setter = setter(index)
		}
		for _, opt := range opts {
			switch opt {
			case "id":
				if taggedID {
					walkErr = errors.Newf(errors.ErrorTypeValidation, "%s declares more than one id field", t).
						WithDetail("type", t.String())
					return
				}
				taggedID = true
				f.ID = true
			default:
				walkErr = errors.Newf(errors.ErrorTypeValidation, "unknown option %q on %s.%s", opt, t, sf.Name).
					WithDetail("type", t.String()).
					WithDetail("field", sf.Name)
				return
			}
		}
		if elem != nil {
			out.nested = append(out.nested, elem)
		}
		meta.Fields = append(meta.Fields, f)
	})
	if walkErr != nil {
		return nil, walkErr
	}

	if !taggedID {
		for _, f := range meta.Fields {
			if f.Column == DefaultIDColumn {
				f.ID = true
			}
		}
	}

	if o.ctor != nil {
		ctor, nested, err := scanConstructor(meta, o)
		if err != nil {
			return nil, err
		}
		meta.Constructor = ctor
		out.nested = append(out.nested, nested...)
	}

	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanConstructor(meta *EntityMetadata, o options) (*ConstructorMetadata, []reflect.Type, error) {
	fn := reflect.ValueOf(o.ctor)
	ft := fn.Type()
	invalid := func(format string, args ...any) error {
		return errors.Newf(errors.ErrorTypeValidation, "constructor of %s: "+format, append([]any{meta.Type}, args...)...).
			WithDetail("type", meta.Type.String())
	}

	if ft.Kind() != reflect.Func {
		return nil, nil, invalid("%s is not a function", ft)
	}
	if ft.IsVariadic() {
		return nil, nil, invalid("variadic functions are not supported")
	}
	if ft.NumIn() != len(o.ctorColumns) {
		return nil, nil, invalid("function takes %d parameters but %d columns were named", ft.NumIn(), len(o.ctorColumns))
	}

	c := &ConstructorMetadata{fn: fn, target: meta.Type}
	switch ft.NumOut() {
	case 2:
		if ft.Out(1) != reflect.TypeOf((*error)(nil)).Elem() {
			return nil, nil, invalid("second result must be error, got %s", ft.Out(1))
		}
		c.returnsErr = true
		fallthrough
	case 1:
		switch ft.Out(0) {
		case meta.Type:
		case reflect.PointerTo(meta.Type):
			c.returnsPtr = true
		default:
			return nil, nil, invalid("result must be %s or *%s, got %s", meta.Type, meta.Type, ft.Out(0))
		}
	default:
		return nil, nil, invalid("function must return the entity and optionally an error")
	}

	var nested []reflect.Type
	seen := make(map[string]bool, len(o.ctorColumns))
	for i, col := range o.ctorColumns {
		if col == "" {
			return nil, nil, invalid("parameter %d has no column", i)
		}
		if seen[col] {
			return nil, nil, invalid("column %s is bound to more than one parameter", col)
		}
		seen[col] = true

		pt := ft.In(i)
		var conv ValueConverter
		if f, ok := meta.FieldByColumn(col); ok && f.Converter != nil && f.Type == pt {
			conv = f.Converter
		} else {
			conv = converterFor(o, col, "", pt)
		}
		kind, elem := kindOf(pt, conv)
		c.Params = append(c.Params, Parameter{
			Column:    col,
			Type:      pt,
			Kind:      kind,
			Element:   elem,
			Converter: conv,
		})
		if elem != nil {
			nested = append(nested, elem)
		}
	}
	return c, nested, nil
}

func entityName(t reflect.Type, o options) string {
	if o.name != "" {
		return o.name
	}
	if n, ok := reflect.New(t).Interface().(entityNamer); ok {
		if name := n.EntityName(); name != "" {
			return name
		}
	}
	return t.Name()
}

// walk visits the fields of t, flattening untagged anonymous struct fields
// the way Go promotes them.
func walk(t reflect.Type, index []int, visit func(reflect.StructField, []int)) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		idx := make([]int, len(index)+1)
		copy(idx, index)
		idx[len(index)] = i

		if _, tagged := sf.Tag.Lookup(TagName); sf.Anonymous && !tagged && sf.Type.Kind() == reflect.Struct {
			walk(sf.Type, idx, visit)
			continue
		}
		visit(sf, idx)
	}
}

func parseTag(tag string) (string, []string) {
	parts := strings.Split(tag, ",")
	name := strings.TrimSpace(parts[0])
	var opts []string
	for _, p := range parts[1:] {
		if p = strings.TrimSpace(p); p != "" {
			opts = append(opts, p)
		}
	}
	return name, opts
}

func converterFor(o options, column, field string, t reflect.Type) ValueConverter {
	if c, ok := o.converters[column]; ok {
		return c
	}
	if field != "" {
		if c, ok := o.converters[field]; ok {
			return c
		}
	}
	if c, ok := TextConverter(t); ok {
		return c
	}
	return nil
}

// kindOf classifies a member type and returns the struct type behind an
// embedded or collection member.
func kindOf(t reflect.Type, conv ValueConverter) (FieldKind, reflect.Type) {
	if conv != nil {
		return KindScalar, nil
	}
	base := indirect(t)
	if isEntityStruct(base) {
		return KindEmbedded, base
	}
	if t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		if elem := indirect(t.Elem()); isEntityStruct(elem) {
			return KindCollection, elem
		}
	}
	return KindScalar, nil
}

func isEntityStruct(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t != timeType && !isTextType(t)
}

func getter(sf reflect.StructField, index []int) Getter {
	if sf.IsExported() {
		return func(obj reflect.Value) reflect.Value {
			return obj.FieldByIndex(index)
		}
	}
	// Unexported members are read through their address; obj must be
	// addressable.
	return func(obj reflect.Value) reflect.Value {
		f := obj.FieldByIndex(index)
		return reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
	}
}

func setter(index []int) Setter {
	return func(obj reflect.Value, value reflect.Value) {
		obj.FieldByIndex(index).Set(value)
	}
}
