package converter

import (
	"reflect"
	"strconv"

	"github.com/ajitpratap0/colmap/pkg/column"
	"github.com/ajitpratap0/colmap/pkg/errors"
	"github.com/ajitpratap0/colmap/pkg/mapping"
)

// build materializes meta's type from e and returns a pointer to it.
func (c *Converter) build(meta *mapping.EntityMetadata, e *column.Entity, depth int) (reflect.Value, error) {
	if err := c.checkDepth(meta, depth); err != nil {
		return reflect.Value{}, err
	}

	if ctor := meta.Constructor; ctor != nil {
		args := make([]reflect.Value, len(ctor.Params))
		for i, p := range ctor.Params {
			col, ok := e.Find(p.Column)
			arg, err := c.decode(p.Kind, p.Converter, p.Element, p.Type, col.Value, ok, depth)
			if err != nil {
				return reflect.Value{}, memberError(err, meta, "parameter", p.Column, p.Column, p.Type)
			}
			args[i] = arg
		}
		return ctor.Invoke(args)
	}

	ptr := meta.New()
	obj := ptr.Elem()
	for _, f := range meta.Fields {
		col, ok := e.Find(f.Column)
		if !ok || col.Value == nil {
			continue
		}
		value, err := c.decode(f.Kind, f.Converter, f.Element, f.Type, col.Value, true, depth)
		if err != nil {
			return reflect.Value{}, memberError(err, meta, "field", f.Name, f.Column, f.Type)
		}
		if err := f.Set(obj, value); err != nil {
			return reflect.Value{}, memberError(err, meta, "field", f.Name, f.Column, f.Type)
		}
	}
	return ptr, nil
}

// decode resolves a column value into a value of typ. An absent column
// yields the zero value, or an empty slice for collections.
func (c *Converter) decode(kind mapping.FieldKind, conv mapping.ValueConverter, elem, typ reflect.Type, raw any, present bool, depth int) (reflect.Value, error) {
	if !present || raw == nil {
		if kind == mapping.KindCollection && typ.Kind() == reflect.Slice {
			return reflect.MakeSlice(typ, 0, 0), nil
		}
		return reflect.Zero(typ), nil
	}

	switch kind {
	case mapping.KindEmbedded:
		cols, ok := column.AsColumns(raw)
		if !ok {
			return reflect.Value{}, shapeError(raw, "an embedded entity", typ)
		}
		meta, err := c.provider.MetadataOf(elem)
		if err != nil {
			return reflect.Value{}, err
		}
		p, err := c.build(meta, column.EntityOf(meta.Name, cols...), depth+1)
		if err != nil {
			return reflect.Value{}, err
		}
		return fitElement(p, typ), nil

	case mapping.KindCollection:
		groups, ok := column.AsCollection(raw)
		if !ok {
			return reflect.Value{}, shapeError(raw, "a collection of entities", typ)
		}
		meta, err := c.provider.MetadataOf(elem)
		if err != nil {
			return reflect.Value{}, err
		}

		var out reflect.Value
		if typ.Kind() == reflect.Array {
			if len(groups) > typ.Len() {
				return reflect.Value{}, errors.Newf(errors.ErrorTypeTypeCoercion, "%d elements do not fit %s", len(groups), typ).
					WithDetail("target", typ.String())
			}
			out = reflect.New(typ).Elem()
		} else {
			out = reflect.MakeSlice(typ, len(groups), len(groups))
		}
		for i, g := range groups {
			p, err := c.build(meta, column.EntityOf(meta.Name, g...), depth+1)
			if err != nil {
				return reflect.Value{}, errors.Wrap(err, errors.TypeOf(err), "element "+strconv.Itoa(i)).
					WithDetail("index", i)
			}
			out.Index(i).Set(fitElement(p, typ.Elem()))
		}
		return out, nil
	}

	if conv != nil {
		decoded, err := conv.Decode(raw)
		if err != nil {
			return reflect.Value{}, coercion(err, "cannot decode value")
		}
		raw = decoded
	}
	return column.Convert(raw, typ)
}

// fitElement returns p when typ is a pointer type, the pointed-to value
// otherwise.
func fitElement(p reflect.Value, typ reflect.Type) reflect.Value {
	if typ.Kind() == reflect.Pointer {
		return p
	}
	return p.Elem()
}

func shapeError(raw any, expected string, typ reflect.Type) error {
	return errors.Newf(errors.ErrorTypeTypeCoercion, "column holds %T, expected %s for %s", raw, expected, typ).
		WithDetail("source", reflect.TypeOf(raw).String()).
		WithDetail("target", typ.String())
}
