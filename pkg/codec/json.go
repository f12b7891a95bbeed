// Package codec encodes column entities for storage backends.
//
// MarshalJSON produces a typed JSON document in which every value carries its
// kind, so that nested entities, collections and scalar types survive a round
// trip:
//
//	{"name":"PetOwner","columns":[
//	  {"name":"_id","type":"int64","value":10},
//	  {"name":"animal","type":"entity","value":[{"name":"name","type":"string","value":"Ada"}]}
//	]}
//
// Signed integers are widened to int64, unsigned integers to uint64 and
// floats to float64; named string types become plain strings and values
// implementing encoding.TextMarshaler are stored as their text. The
// converter coerces them back into field types.
//
// Codec wraps the JSON document in a small binary frame recording the
// compression algorithm of the payload.
package codec

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"reflect"
	"sort"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/colmap/pkg/column"
	"github.com/ajitpratap0/colmap/pkg/errors"
	"github.com/ajitpratap0/colmap/pkg/pool"
)

// Value kinds of the typed document.
const (
	TypeNull     = "null"
	TypeBool     = "bool"
	TypeInt64    = "int64"
	TypeUint64   = "uint64"
	TypeFloat64  = "float64"
	TypeString   = "string"
	TypeBytes    = "bytes"
	TypeTime     = "time"
	TypeEntity   = "entity"
	TypeEntities = "entities"
	TypeList     = "list"
	TypeMap      = "map"
)

type document struct {
	Name    string  `json:"name"`
	Columns []field `json:"columns"`
}

type field struct {
	Name string `json:"name"`
	typed
}

type typed struct {
	Type  string            `json:"type"`
	Value gojson.RawMessage `json:"value,omitempty"`
}

var (
	timeType          = reflect.TypeOf(time.Time{})
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// MarshalJSON encodes e as a typed JSON document.
func MarshalJSON(e *column.Entity) ([]byte, error) {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	if err := encodeDocument(buf, e); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

// encodeDocument writes the document of e to buf without a trailing newline.
func encodeDocument(buf *bytes.Buffer, e *column.Entity) error {
	if e == nil {
		return errors.NullArgument("entity")
	}
	fields, err := encodeColumns(e.Columns())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeCodec, "cannot encode "+e.Name()).
			WithDetail("entity", e.Name())
	}
	if err := gojson.NewEncoder(buf).Encode(document{Name: e.Name(), Columns: fields}); err != nil {
		return errors.Wrap(err, errors.ErrorTypeCodec, "cannot encode "+e.Name()).
			WithDetail("entity", e.Name())
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

// UnmarshalJSON decodes a document produced by MarshalJSON.
func UnmarshalJSON(data []byte) (*column.Entity, error) {
	var doc document
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCodec, "malformed column entity document")
	}
	if doc.Name == "" {
		return nil, errors.New(errors.ErrorTypeCodec, "column entity document has no name")
	}
	cols, err := decodeColumns(doc.Columns)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCodec, "cannot decode "+doc.Name).
			WithDetail("entity", doc.Name)
	}
	return column.EntityOf(doc.Name, cols...), nil
}

func encodeColumns(cols []column.Column) ([]field, error) {
	fields := make([]field, 0, len(cols))
	for _, c := range cols {
		t, err := encodeValue(c.Value)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeCodec, "column "+c.Name).
				WithDetail("column", c.Name)
		}
		fields = append(fields, field{Name: c.Name, typed: t})
	}
	return fields, nil
}

func encodeValue(value any) (typed, error) {
	switch v := value.(type) {
	case nil:
		return typed{Type: TypeNull}, nil
	case []column.Column:
		fields, err := encodeColumns(v)
		if err != nil {
			return typed{}, err
		}
		return raw(TypeEntity, fields)
	case [][]column.Column:
		groups := make([][]field, 0, len(v))
		for _, g := range v {
			fields, err := encodeColumns(g)
			if err != nil {
				return typed{}, err
			}
			groups = append(groups, fields)
		}
		return raw(TypeEntities, groups)
	case *column.Entity:
		return encodeValue(v.Columns())
	case time.Time:
		return raw(TypeTime, v.Format(time.RFC3339Nano))
	case []byte:
		return raw(TypeBytes, base64.StdEncoding.EncodeToString(v))
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return typed{Type: TypeNull}, nil
		}
		rv = rv.Elem()
	}
	if rv.Type() == timeType {
		return encodeValue(rv.Interface())
	}

	switch rv.Kind() {
	case reflect.Bool:
		return raw(TypeBool, rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return raw(TypeInt64, rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return raw(TypeUint64, rv.Uint())
	case reflect.Float32, reflect.Float64:
		return raw(TypeFloat64, rv.Float())
	case reflect.String:
		return raw(TypeString, rv.String())
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 && rv.Kind() == reflect.Slice {
			return encodeValue(rv.Bytes())
		}
		items := make([]typed, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			t, err := encodeValue(rv.Index(i).Interface())
			if err != nil {
				return typed{}, err
			}
			items = append(items, t)
		}
		return raw(TypeList, items)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return typed{}, errors.Newf(errors.ErrorTypeCodec, "map keys must be strings, got %s", rv.Type().Key())
		}
		entries := make(map[string]typed, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			t, err := encodeValue(iter.Value().Interface())
			if err != nil {
				return typed{}, err
			}
			entries[iter.Key().String()] = t
		}
		return raw(TypeMap, entries)
	}

	if rv.Type().Implements(textMarshalerType) {
		text, err := column.Convert(rv.Interface(), column.StringType)
		if err != nil {
			return typed{}, errors.Wrap(err, errors.ErrorTypeCodec, "cannot encode "+rv.Type().String())
		}
		return raw(TypeString, text.String())
	}
	return typed{}, errors.Newf(errors.ErrorTypeCodec, "unsupported column value of type %s", rv.Type()).
		WithDetail("type", rv.Type().String())
}

func raw(kind string, v any) (typed, error) {
	b, err := gojson.Marshal(v)
	if err != nil {
		return typed{}, errors.Wrap(err, errors.ErrorTypeCodec, "cannot encode "+kind+" value")
	}
	return typed{Type: kind, Value: b}, nil
}

func decodeColumns(fields []field) ([]column.Column, error) {
	cols := make([]column.Column, 0, len(fields))
	for _, f := range fields {
		v, err := decodeValue(f.typed)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeCodec, "column "+f.Name).
				WithDetail("column", f.Name)
		}
		if v == nil {
			continue
		}
		cols = append(cols, column.Column{Name: f.Name, Value: v})
	}
	return cols, nil
}

func decodeValue(t typed) (any, error) {
	switch t.Type {
	case TypeNull:
		return nil, nil
	case TypeBool:
		var v bool
		err := unmarshal(t, &v)
		return v, err
	case TypeInt64:
		var v int64
		err := unmarshal(t, &v)
		return v, err
	case TypeUint64:
		var v uint64
		err := unmarshal(t, &v)
		return v, err
	case TypeFloat64:
		var v float64
		err := unmarshal(t, &v)
		return v, err
	case TypeString:
		var v string
		err := unmarshal(t, &v)
		return v, err
	case TypeBytes:
		var s string
		if err := unmarshal(t, &s); err != nil {
			return nil, err
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeCodec, "malformed bytes value")
		}
		return b, nil
	case TypeTime:
		var s string
		if err := unmarshal(t, &s); err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeCodec, "malformed time value")
		}
		return ts, nil
	case TypeEntity:
		var fields []field
		if err := unmarshal(t, &fields); err != nil {
			return nil, err
		}
		return decodeColumns(fields)
	case TypeEntities:
		var groups [][]field
		if err := unmarshal(t, &groups); err != nil {
			return nil, err
		}
		out := make([][]column.Column, 0, len(groups))
		for _, g := range groups {
			cols, err := decodeColumns(g)
			if err != nil {
				return nil, err
			}
			out = append(out, cols)
		}
		return out, nil
	case TypeList:
		var items []typed
		if err := unmarshal(t, &items); err != nil {
			return nil, err
		}
		values := make([]any, 0, len(items))
		for _, item := range items {
			v, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return homogeneousSlice(values), nil
	case TypeMap:
		var entries map[string]typed
		if err := unmarshal(t, &entries); err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		values := make(map[string]any, len(entries))
		for _, k := range keys {
			v, err := decodeValue(entries[k])
			if err != nil {
				return nil, err
			}
			values[k] = v
		}
		return homogeneousMap(values), nil
	}
	return nil, errors.Newf(errors.ErrorTypeCodec, "unknown value type %q", t.Type).
		WithDetail("type", t.Type)
}

func unmarshal(t typed, target any) error {
	if len(t.Value) == 0 {
		return errors.Newf(errors.ErrorTypeCodec, "%s value is missing", t.Type)
	}
	if err := gojson.Unmarshal(t.Value, target); err != nil {
		return errors.Wrap(err, errors.ErrorTypeCodec, "malformed "+t.Type+" value")
	}
	return nil
}

// commonType returns the dynamic type shared by every value, or nil.
func commonType(values []any) reflect.Type {
	var common reflect.Type
	for _, v := range values {
		if v == nil {
			return nil
		}
		t := reflect.TypeOf(v)
		if common == nil {
			common = t
		} else if common != t {
			return nil
		}
	}
	return common
}

// homogeneousSlice turns a list whose items share a type into a slice of
// that type, so []string survives a round trip as []string.
func homogeneousSlice(values []any) any {
	t := commonType(values)
	if t == nil {
		return values
	}
	out := reflect.MakeSlice(reflect.SliceOf(t), len(values), len(values))
	for i, v := range values {
		out.Index(i).Set(reflect.ValueOf(v))
	}
	return out.Interface()
}

func homogeneousMap(values map[string]any) any {
	all := make([]any, 0, len(values))
	for _, v := range values {
		all = append(all, v)
	}
	t := commonType(all)
	if t == nil {
		return values
	}
	out := reflect.MakeMapWithSize(reflect.MapOf(reflect.TypeOf(""), t), len(values))
	for k, v := range values {
		out.SetMapIndex(reflect.ValueOf(k), reflect.ValueOf(v))
	}
	return out.Interface()
}
