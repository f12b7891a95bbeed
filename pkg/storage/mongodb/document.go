package mongodb

import (
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ajitpratap0/colmap/pkg/column"
)

// ToDocument maps the columns of e to a BSON document. Embedded entities
// become sub-documents and collections become arrays of sub-documents.
func ToDocument(e *column.Entity) bson.D {
	return toDocument(e.Columns())
}

func toDocument(cols []column.Column) bson.D {
	doc := make(bson.D, 0, len(cols))
	for _, c := range cols {
		doc = append(doc, bson.E{Key: c.Name, Value: toValue(c.Value)})
	}
	return doc
}

func toValue(value any) any {
	switch v := value.(type) {
	case []column.Column:
		return toDocument(v)
	case [][]column.Column:
		arr := make(bson.A, 0, len(v))
		for _, cols := range v {
			arr = append(arr, toDocument(cols))
		}
		return arr
	}
	return value
}

// FromDocument maps a BSON document back to a column entity called name.
// A generated ObjectID under _id is dropped: it belongs to MongoDB, not to
// the entity.
func FromDocument(name string, doc bson.D) *column.Entity {
	cols := fromDocument(doc)
	out := make([]column.Column, 0, len(cols))
	for _, c := range cols {
		if _, generated := c.Value.(primitive.ObjectID); generated && c.Name == "_id" {
			continue
		}
		out = append(out, c)
	}
	return column.EntityOf(name, out...)
}

func fromDocument(doc bson.D) []column.Column {
	cols := make([]column.Column, 0, len(doc))
	for _, e := range doc {
		v := fromValue(e.Value)
		if v == nil {
			continue
		}
		cols = append(cols, column.Column{Name: e.Key, Value: v})
	}
	return cols
}

func fromValue(value any) any {
	switch v := value.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return nil
	case bson.D:
		return fromDocument(v)
	case bson.M:
		m := make(map[string]any, len(v))
		for k, item := range v {
			m[k] = fromValue(item)
		}
		return m
	case bson.A:
		return fromArray(v)
	case primitive.DateTime:
		return v.Time().UTC()
	case primitive.Binary:
		return v.Data
	case primitive.Decimal128:
		return v.String()
	case int32:
		return int64(v)
	case time.Time:
		return v.UTC()
	}
	return value
}

// fromArray returns [][]column.Column when every item is a document and a
// typed slice when every item shares a scalar type.
func fromArray(arr bson.A) any {
	if len(arr) == 0 {
		return []any{}
	}
	docs := true
	for _, item := range arr {
		if _, ok := item.(bson.D); !ok {
			docs = false
			break
		}
	}
	if docs {
		out := make([][]column.Column, 0, len(arr))
		for _, item := range arr {
			out = append(out, fromDocument(item.(bson.D)))
		}
		return out
	}

	values := make([]any, len(arr))
	var common reflect.Type
	same := true
	for i, item := range arr {
		values[i] = fromValue(item)
		if values[i] == nil {
			same = false
			continue
		}
		t := reflect.TypeOf(values[i])
		if common == nil {
			common = t
		} else if common != t {
			same = false
		}
	}
	if !same || common == nil {
		return values
	}
	typed := reflect.MakeSlice(reflect.SliceOf(common), len(values), len(values))
	for i, v := range values {
		typed.Index(i).Set(reflect.ValueOf(v))
	}
	return typed.Interface()
}
