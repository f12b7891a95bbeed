package mapping

import (
	"encoding"
	"reflect"
	"time"

	"github.com/ajitpratap0/colmap/pkg/column"
	"github.com/ajitpratap0/colmap/pkg/errors"
)

// ValueConverter is a two-way conversion between a domain value and the
// scalar stored in its column.
type ValueConverter interface {
	// Encode turns the field value into the stored scalar. Returning nil
	// omits the column.
	Encode(value any) (any, error)
	// Decode turns a stored scalar back into a field value.
	Decode(value any) (any, error)
}

// ConverterFuncs adapts a pair of functions to ValueConverter.
type ConverterFuncs struct {
	EncodeFunc func(value any) (any, error)
	DecodeFunc func(value any) (any, error)
}

func (c ConverterFuncs) Encode(value any) (any, error) {
	if c.EncodeFunc == nil {
		return value, nil
	}
	return c.EncodeFunc(value)
}

func (c ConverterFuncs) Decode(value any) (any, error) {
	if c.DecodeFunc == nil {
		return value, nil
	}
	return c.DecodeFunc(value)
}

var (
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	timeType            = reflect.TypeOf(time.Time{})
	stringType          = reflect.TypeOf("")
)

// textConverter stores values implementing encoding.TextMarshaler as their
// canonical text and decodes them through encoding.TextUnmarshaler.
type textConverter struct {
	typ reflect.Type
}

// TextConverter returns a ValueConverter for a type whose value implements
// encoding.TextMarshaler and whose pointer implements encoding.TextUnmarshaler.
func TextConverter(t reflect.Type) (ValueConverter, bool) {
	base := indirect(t)
	if !isTextType(base) {
		return nil, false
	}
	return textConverter{typ: base}, true
}

func isTextType(t reflect.Type) bool {
	if t == timeType {
		return false
	}
	return t.Implements(textMarshalerType) && reflect.PointerTo(t).Implements(textUnmarshalerType)
}

func (c textConverter) Encode(value any) (any, error) {
	m, ok := value.(encoding.TextMarshaler)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeTypeCoercion, "%T is not a %s", value, c.typ).
			WithDetail("target", c.typ.String())
	}
	text, err := m.MarshalText()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTypeCoercion, "cannot encode "+c.typ.String()).
			WithDetail("target", c.typ.String())
	}
	return string(text), nil
}

func (c textConverter) Decode(value any) (any, error) {
	s, err := column.Convert(value, stringType)
	if err != nil {
		return nil, err
	}
	p := reflect.New(c.typ)
	if err := p.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s.String())); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTypeCoercion, "cannot decode "+c.typ.String()).
			WithDetail("target", c.typ.String())
	}
	return p.Elem().Interface(), nil
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
