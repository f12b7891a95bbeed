// Package column provides the storage-facing record model of colmap: the
// Column, a named value cell, and the Entity (a "Column Entity"), an
// insertion-ordered, name-keyed group of Columns exchanged with storage
// adapters.
//
// A Column value is one of three shapes:
//
//	scalar      string, integer, float, bool, []byte, time.Time, scalar slices and maps
//	[]Column    an embedded entity
//	[][]Column  a collection of embedded entities
//
// Absence is represented by the lack of a Column, never by a Column holding nil.
package column

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/ajitpratap0/colmap/pkg/errors"
)

// Column is a single named value cell.
type Column struct {
	Name  string
	Value any
}

// Of creates a Column. *Entity values are flattened into []Column and
// []*Entity values into [][]Column so the value always has one of the three
// supported shapes.
func Of(name string, value any) Column {
	return Column{Name: name, Value: normalize(value)}
}

// Get coerces the column value into target, which must be a non-nil pointer.
func (c Column) Get(target any) error {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.NullArgument("target")
	}
	converted, err := Convert(c.Value, rv.Type().Elem())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeTypeCoercion, "column "+c.Name).
			WithDetail("column", c.Name)
	}
	rv.Elem().Set(converted)
	return nil
}

// IsEntity reports whether the value holds an embedded entity.
func (c Column) IsEntity() bool {
	_, ok := c.Value.([]Column)
	return ok
}

// IsCollection reports whether the value holds a collection of embedded entities.
func (c Column) IsCollection() bool {
	_, ok := c.Value.([][]Column)
	return ok
}

// String renders the column as name=value, nesting sub-entities in brackets.
func (c Column) String() string {
	var b strings.Builder
	writeColumn(&b, c)
	return b.String()
}

func writeColumn(b *strings.Builder, c Column) {
	b.WriteString(c.Name)
	b.WriteByte('=')
	switch v := c.Value.(type) {
	case []Column:
		writeColumns(b, v)
	case [][]Column:
		b.WriteByte('[')
		for i, group := range v {
			if i > 0 {
				b.WriteString(", ")
			}
			writeColumns(b, group)
		}
		b.WriteByte(']')
	case string:
		fmt.Fprintf(b, "%q", v)
	default:
		fmt.Fprintf(b, "%v", v)
	}
}

func writeColumns(b *strings.Builder, cols []Column) {
	b.WriteByte('{')
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		writeColumn(b, c)
	}
	b.WriteByte('}')
}

// AsColumns returns the value as an embedded entity. It accepts []Column,
// *Entity and []any holding only Columns.
func AsColumns(value any) ([]Column, bool) {
	switch v := value.(type) {
	case []Column:
		return v, true
	case *Entity:
		if v == nil {
			return nil, false
		}
		return v.Columns(), true
	case []any:
		out := make([]Column, 0, len(v))
		for _, item := range v {
			c, ok := item.(Column)
			if !ok {
				return nil, false
			}
			out = append(out, c)
		}
		return out, true
	default:
		return nil, false
	}
}

// AsCollection returns the value as a collection of embedded entities. It
// accepts [][]Column, []*Entity and []any whose items are accepted by AsColumns.
func AsCollection(value any) ([][]Column, bool) {
	switch v := value.(type) {
	case [][]Column:
		return v, true
	case []*Entity:
		out := make([][]Column, 0, len(v))
		for _, e := range v {
			if e == nil {
				continue
			}
			out = append(out, e.Columns())
		}
		return out, true
	case []any:
		out := make([][]Column, 0, len(v))
		for _, item := range v {
			cols, ok := AsColumns(item)
			if !ok {
				return nil, false
			}
			out = append(out, cols)
		}
		return out, true
	default:
		return nil, false
	}
}

func normalize(value any) any {
	switch v := value.(type) {
	case *Entity:
		if v == nil {
			return nil
		}
		return v.Columns()
	case []*Entity:
		cols, _ := AsCollection(v)
		return cols
	default:
		return value
	}
}
