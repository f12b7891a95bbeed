package column

import (
	"reflect"
	"strings"

	"github.com/ajitpratap0/colmap/pkg/errors"
)

// Entity is a Column Entity: a record name plus an insertion-ordered set of
// uniquely named Columns. Adding a Column whose name already exists replaces
// the value in place, keeping its original position.
//
// An Entity is owned by a single logical operation at a time; it is not safe
// for concurrent mutation.
type Entity struct {
	name    string
	columns []Column
	index   map[string]int
}

// NewEntity creates an empty Entity.
func NewEntity(name string) *Entity {
	return &Entity{
		name:  name,
		index: make(map[string]int),
	}
}

// EntityOf creates an Entity seeded with columns. Duplicate names resolve
// last-write-wins. Columns holding nil are skipped, so they read as absent.
func EntityOf(name string, columns ...Column) *Entity {
	e := &Entity{
		name:    name,
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if isNil(c.Value) {
			continue
		}
		e.put(Column{Name: c.Name, Value: normalize(c.Value)})
	}
	return e
}

// Name returns the record name.
func (e *Entity) Name() string { return e.name }

// Add inserts or replaces the column called name. Nil values are rejected:
// a missing value is expressed by not adding the column.
func (e *Entity) Add(name string, value any) error {
	if name == "" {
		return errors.NullArgument("column name")
	}
	if isNil(value) {
		return errors.NullArgument("value of column " + name).WithDetail("column", name)
	}
	e.put(Column{Name: name, Value: normalize(value)})
	return nil
}

// AddColumn inserts or replaces c.
func (e *Entity) AddColumn(c Column) error {
	return e.Add(c.Name, c.Value)
}

func (e *Entity) put(c Column) {
	if e.index == nil {
		e.index = make(map[string]int)
	}
	if i, ok := e.index[c.Name]; ok {
		e.columns[i] = c
		return
	}
	e.index[c.Name] = len(e.columns)
	e.columns = append(e.columns, c)
}

// Find returns the column called name.
func (e *Entity) Find(name string) (Column, bool) {
	i, ok := e.index[name]
	if !ok {
		return Column{}, false
	}
	return e.columns[i], true
}

// Contains reports whether a column called name exists.
func (e *Entity) Contains(name string) bool {
	_, ok := e.index[name]
	return ok
}

// Columns returns a copy of the columns in insertion order.
func (e *Entity) Columns() []Column {
	out := make([]Column, len(e.columns))
	copy(out, e.columns)
	return out
}

// Names returns the column names in insertion order.
func (e *Entity) Names() []string {
	out := make([]string, len(e.columns))
	for i, c := range e.columns {
		out[i] = c.Name
	}
	return out
}

// Size returns the number of columns.
func (e *Entity) Size() int { return len(e.columns) }

// IsEmpty reports whether the entity has no columns.
func (e *Entity) IsEmpty() bool { return len(e.columns) == 0 }

func (e *Entity) String() string {
	var b strings.Builder
	b.WriteString(e.name)
	writeColumns(&b, e.columns)
	return b.String()
}

// Find returns the value of the column called name coerced to T. A missing
// column yields (zero, false, nil); a value that cannot become T yields a
// type_coercion error.
func Find[T any](e *Entity, name string) (T, bool, error) {
	var zero T
	if e == nil {
		return zero, false, errors.NullArgument("entity")
	}
	c, ok := e.Find(name)
	if !ok {
		return zero, false, nil
	}
	v, err := Convert(c.Value, reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return zero, true, errors.Wrap(err, errors.ErrorTypeTypeCoercion, "column "+name).
			WithDetail("column", name).
			WithDetail("entity", e.name)
	}
	var out T
	reflect.ValueOf(&out).Elem().Set(v)
	return out, true, nil
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
