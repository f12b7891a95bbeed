package converter

import (
	stderrors "errors"
	"reflect"
	"strconv"

	"github.com/ajitpratap0/colmap/pkg/column"
	"github.com/ajitpratap0/colmap/pkg/errors"
	"github.com/ajitpratap0/colmap/pkg/mapping"
)

// columns emits one column per mapped field of v, in metadata order.
func (c *Converter) columns(meta *mapping.EntityMetadata, v reflect.Value, depth int) ([]column.Column, error) {
	if err := c.checkDepth(meta, depth); err != nil {
		return nil, err
	}
	v = addressable(v)

	cols := make([]column.Column, 0, len(meta.Fields))
	for _, f := range meta.Fields {
		value, ok, err := c.encode(f.Kind, f.Converter, f.Element, f.Get(v), depth)
		if err != nil {
			return nil, memberError(err, meta, "field", f.Name, f.Column, f.Type)
		}
		if ok {
			cols = append(cols, column.Column{Name: f.Column, Value: value})
		}
	}
	return cols, nil
}

// encode turns a member value into a column value. It reports false when the
// column must be omitted.
func (c *Converter) encode(kind mapping.FieldKind, conv mapping.ValueConverter, elem reflect.Type, fv reflect.Value, depth int) (any, bool, error) {
	switch kind {
	case mapping.KindEmbedded:
		if isNil(fv) {
			return nil, false, nil
		}
		meta, err := c.provider.MetadataOf(elem)
		if err != nil {
			return nil, false, err
		}
		cols, err := c.columns(meta, indirect(fv), depth+1)
		if err != nil {
			return nil, false, err
		}
		return cols, true, nil

	case mapping.KindCollection:
		if isNil(fv) {
			return nil, false, nil
		}
		meta, err := c.provider.MetadataOf(elem)
		if err != nil {
			return nil, false, err
		}
		groups := make([][]column.Column, 0, fv.Len())
		for i := 0; i < fv.Len(); i++ {
			item := fv.Index(i)
			if isNil(item) {
				continue
			}
			cols, err := c.columns(meta, indirect(item), depth+1)
			if err != nil {
				return nil, false, errors.Wrap(err, errors.TypeOf(err), "element "+strconv.Itoa(i)).
					WithDetail("index", i)
			}
			groups = append(groups, cols)
		}
		return groups, true, nil
	}

	if isNil(fv) {
		return nil, false, nil
	}
	raw := indirect(fv).Interface()
	if conv == nil {
		return raw, true, nil
	}
	encoded, err := conv.Encode(raw)
	if err != nil {
		return nil, false, coercion(err, "cannot encode value")
	}
	if encoded == nil {
		return nil, false, nil
	}
	return encoded, true, nil
}

// addressable returns v itself when it can be addressed, otherwise an
// addressable copy. Unexported members are read through their address.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	return p.Elem()
}

func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	return v
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Invalid:
		return true
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return true
		}
		if v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
			return isNil(v.Elem())
		}
	}
	return false
}

// coercion wraps a value converter failure. Errors already carrying a type
// keep it.
func coercion(err error, message string) error {
	var typed *errors.Error
	if stderrors.As(err, &typed) {
		return errors.Wrap(err, typed.Type, message)
	}
	return errors.Wrap(err, errors.ErrorTypeTypeCoercion, message)
}
