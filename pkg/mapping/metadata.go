// Package mapping holds the entity metadata model consumed by the converter:
// per-type descriptors of the record name, the mapped fields and, for
// immutable types, the constructor whose parameters are resolved from
// columns. A Registry builds the descriptors once from struct declarations
// and serves them as a read-only Provider.
package mapping

import (
	"fmt"
	"reflect"

	"github.com/ajitpratap0/colmap/pkg/errors"
)

// FieldKind is the role a field plays in the column representation.
type FieldKind int

const (
	// KindScalar maps to a single column value.
	KindScalar FieldKind = iota
	// KindEmbedded maps to a column holding the nested entity's columns.
	KindEmbedded
	// KindCollection maps to a column holding one column group per element.
	KindCollection
)

func (k FieldKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindEmbedded:
		return "embedded"
	case KindCollection:
		return "collection"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// Getter reads a field from an addressable struct value.
type Getter func(obj reflect.Value) reflect.Value

// Setter writes a field of an addressable struct value.
type Setter func(obj reflect.Value, value reflect.Value)

// FieldMetadata describes one mapped member.
type FieldMetadata struct {
	// Name is the Go member name.
	Name string
	// Column is the storage key.
	Column string
	// Type is the declared member type.
	Type reflect.Type
	Kind FieldKind
	// Element is the struct type of an embedded entity or of collection
	// elements, pointer indirection removed. Nil for scalars.
	Element   reflect.Type
	Converter ValueConverter
	// ID marks the identifier column.
	ID bool

	Getter Getter
	// Setter is nil for read-only members, which only constructor-mapped
	// types may declare.
	Setter Setter
}

// Get reads the member from obj.
func (f *FieldMetadata) Get(obj reflect.Value) reflect.Value {
	return f.Getter(obj)
}

// Set writes value into the member of obj.
func (f *FieldMetadata) Set(obj reflect.Value, value reflect.Value) error {
	if f.Setter == nil {
		return errors.Newf(errors.ErrorTypeInstantiation, "field %s is read-only", f.Name).
			WithDetail("field", f.Name)
	}
	f.Setter(obj, value)
	return nil
}

// Settable reports whether the member can be assigned.
func (f *FieldMetadata) Settable() bool { return f.Setter != nil }

// Parameter describes one constructor parameter, by position.
type Parameter struct {
	Column    string
	Type      reflect.Type
	Kind      FieldKind
	Element   reflect.Type
	Converter ValueConverter
}

// ConstructorMetadata designates the function that builds an entity
// atomically from its parameters.
type ConstructorMetadata struct {
	Params []Parameter

	fn         reflect.Value
	target     reflect.Type
	returnsPtr bool
	returnsErr bool
}

// Invoke calls the constructor with args in positional order and returns a
// pointer to the built entity. A returned error, a panic or a nil result is
// reported as an instantiation error.
func (c *ConstructorMetadata) Invoke(args []reflect.Value) (result reflect.Value, err error) {
	if len(args) != len(c.Params) {
		return reflect.Value{}, errors.Newf(errors.ErrorTypeInstantiation,
			"constructor of %s expects %d arguments, got %d", c.target, len(c.Params), len(args)).
			WithDetail("type", c.target.String())
	}

	defer func() {
		if r := recover(); r != nil {
			result = reflect.Value{}
			err = errors.Newf(errors.ErrorTypeInstantiation, "constructor of %s panicked: %v", c.target, r).
				WithDetail("type", c.target.String())
		}
	}()

	out := c.fn.Call(args)
	if c.returnsErr {
		if e, _ := out[1].Interface().(error); e != nil {
			return reflect.Value{}, errors.Wrap(e, errors.ErrorTypeInstantiation, "constructor of "+c.target.String()+" failed").
				WithDetail("type", c.target.String())
		}
	}

	if !c.returnsPtr {
		p := reflect.New(c.target)
		p.Elem().Set(out[0])
		return p, nil
	}
	if out[0].IsNil() {
		return reflect.Value{}, errors.Newf(errors.ErrorTypeInstantiation, "constructor of %s returned nil", c.target).
			WithDetail("type", c.target.String())
	}
	return out[0], nil
}

// EntityMetadata describes how one struct type maps to a column entity.
type EntityMetadata struct {
	// Name is the column entity name.
	Name string
	// Type is the struct type.
	Type   reflect.Type
	Fields []*FieldMetadata
	// Constructor is nil for types populated by field assignment.
	Constructor *ConstructorMetadata

	byColumn map[string]*FieldMetadata
	implicit bool
}

// FieldByColumn returns the field stored under column.
func (m *EntityMetadata) FieldByColumn(column string) (*FieldMetadata, bool) {
	if m.byColumn == nil {
		m.index()
	}
	f, ok := m.byColumn[column]
	return f, ok
}

// ID returns the identifier field.
func (m *EntityMetadata) ID() (*FieldMetadata, bool) {
	for _, f := range m.Fields {
		if f.ID {
			return f, true
		}
	}
	return nil, false
}

// HasConstructor reports whether the type uses the constructor strategy.
func (m *EntityMetadata) HasConstructor() bool { return m.Constructor != nil }

// New allocates a zero value of the type and returns a pointer to it.
func (m *EntityMetadata) New() reflect.Value { return reflect.New(m.Type) }

// Validate checks the structural invariants of the descriptor.
func (m *EntityMetadata) Validate() error {
	if m.Name == "" {
		return errors.New(errors.ErrorTypeValidation, "entity name is empty")
	}
	if m.Type == nil || m.Type.Kind() != reflect.Struct {
		return errors.Newf(errors.ErrorTypeValidation, "entity %s must be a struct type", m.Name).
			WithDetail("entity", m.Name)
	}
	seen := make(map[string]string, len(m.Fields))
	for _, f := range m.Fields {
		if f.Column == "" {
			return errors.Newf(errors.ErrorTypeValidation, "field %s of %s has no column", f.Name, m.Name).
				WithDetail("entity", m.Name).
				WithDetail("field", f.Name)
		}
		if other, dup := seen[f.Column]; dup {
			return errors.Newf(errors.ErrorTypeValidation, "fields %s and %s of %s share column %s", other, f.Name, m.Name, f.Column).
				WithDetail("entity", m.Name).
				WithDetail("column", f.Column)
		}
		seen[f.Column] = f.Name
		if f.Getter == nil {
			return errors.Newf(errors.ErrorTypeValidation, "field %s of %s has no getter", f.Name, m.Name).
				WithDetail("entity", m.Name).
				WithDetail("field", f.Name)
		}
		if (f.Kind == KindEmbedded || f.Kind == KindCollection) && f.Element == nil {
			return errors.Newf(errors.ErrorTypeValidation, "%s field %s of %s has no element type", f.Kind, f.Name, m.Name).
				WithDetail("entity", m.Name).
				WithDetail("field", f.Name)
		}
		if m.Constructor == nil && !f.Settable() {
			return errors.Newf(errors.ErrorTypeValidation,
				"field %s of %s is read-only and %s has no constructor", f.Name, m.Name, m.Name).
				WithDetail("entity", m.Name).
				WithDetail("field", f.Name)
		}
	}
	m.index()
	return nil
}

func (m *EntityMetadata) index() {
	m.byColumn = make(map[string]*FieldMetadata, len(m.Fields))
	for _, f := range m.Fields {
		m.byColumn[f.Column] = f
	}
}
