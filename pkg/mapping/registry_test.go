package mapping

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/colmap/pkg/errors"
)

type currency struct {
	code string
}

func (c currency) MarshalText() ([]byte, error) { return []byte(c.code), nil }

func (c *currency) UnmarshalText(b []byte) error {
	if len(b) != 3 {
		return fmt.Errorf("bad currency %q", b)
	}
	c.code = strings.ToUpper(string(b))
	return nil
}

type tag struct {
	Label string `column:"label"`
}

type article struct {
	Slug      string    `column:"slug,id"`
	Title     string    `column:"title"`
	Body      string
	Published time.Time `column:"published"`
	Currency  currency  `column:"currency"`
	Author    *author   `column:"author"`
	Tags      []tag     `column:"tags"`
	Scores    []int     `column:"scores"`
	Draft     bool      `column:"-"`
	internal  string
}

type author struct {
	ID   int64  `column:"_id"`
	Name string `column:"name"`
}

type audit struct {
	CreatedBy string `column:"created_by"`
}

type invoice struct {
	audit
	ID int64 `column:"_id"`
}

type point struct {
	x int `column:"x"`
	y int `column:"y"`
}

func newPoint(x, y int) point { return point{x: x, y: y} }

type named struct {
	ID int64 `column:"_id"`
}

func (named) EntityName() string { return "Custom" }

func TestRegisterScansFieldsInDeclarationOrder(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))

	meta, err := r.Register(article{})
	require.NoError(t, err)

	assert.Equal(t, "article", meta.Name)
	assert.False(t, meta.HasConstructor())

	var columns []string
	for _, f := range meta.Fields {
		columns = append(columns, f.Column)
	}
	assert.Equal(t, []string{"slug", "title", "Body", "published", "currency", "author", "tags", "scores"}, columns)

	id, ok := meta.ID()
	require.True(t, ok)
	assert.Equal(t, "Slug", id.Name)
}

func TestRegisterDetectsRoles(t *testing.T) {
	r := NewRegistry(nil)
	meta, err := r.Register(&article{})
	require.NoError(t, err)

	tests := []struct {
		column  string
		kind    FieldKind
		element reflect.Type
		conv    bool
	}{
		{"title", KindScalar, nil, false},
		{"published", KindScalar, nil, false},
		{"currency", KindScalar, nil, true},
		{"author", KindEmbedded, reflect.TypeOf(author{}), false},
		{"tags", KindCollection, reflect.TypeOf(tag{}), false},
		{"scores", KindScalar, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			f, ok := meta.FieldByColumn(tt.column)
			require.True(t, ok)
			assert.Equal(t, tt.kind, f.Kind)
			assert.Equal(t, tt.element, f.Element)
			assert.Equal(t, tt.conv, f.Converter != nil)
		})
	}
}

func TestRegisterNestedTypesImplicitly(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Register(article{})
	require.NoError(t, err)

	assert.Equal(t, []string{"article", "author", "tag"}, r.Entities())

	meta, err := r.MetadataOf(reflect.TypeOf(&author{}))
	require.NoError(t, err)
	id, ok := meta.ID()
	require.True(t, ok)
	assert.Equal(t, "_id", id.Column)

	// An explicit registration replaces the implicit one.
	meta, err = r.Register(author{}, WithName("Writer"))
	require.NoError(t, err)
	assert.Equal(t, "Writer", meta.Name)
	assert.Equal(t, []string{"article", "tag", "Writer"}, r.Entities())

	_, err = r.MetadataByName("author")
	assert.True(t, errors.IsMappingNotFound(err))

	_, err = r.Register(author{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestRegisterFlattensAnonymousStructs(t *testing.T) {
	r := NewRegistry(nil)
	meta, err := r.Register(invoice{})
	require.NoError(t, err)

	require.Len(t, meta.Fields, 2)
	assert.Equal(t, "created_by", meta.Fields[0].Column)
	assert.True(t, meta.Fields[0].Settable())

	inv := invoice{}
	require.NoError(t, meta.Fields[0].Set(reflect.ValueOf(&inv).Elem(), reflect.ValueOf("ops")))
	assert.Equal(t, "ops", inv.CreatedBy)
}

func TestRegisterEntityName(t *testing.T) {
	r := NewRegistry(nil)

	meta, err := r.Register(named{})
	require.NoError(t, err)
	assert.Equal(t, "Custom", meta.Name)

	meta, err = r.Register(tag{}, WithName("Label"))
	require.NoError(t, err)
	assert.Equal(t, "Label", meta.Name)

	_, err = r.MetadataByName("Custom")
	assert.NoError(t, err)
}

func TestRegisterRejectsNameClash(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Register(tag{}, WithName("Thing"))
	require.NoError(t, err)

	_, err = r.Register(author{}, WithName("Thing"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestRegisterReadOnlyFieldsNeedConstructor(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Register(point{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	meta, err := r.Register(point{}, WithConstructor(newPoint, "x", "y"))
	require.NoError(t, err)
	require.True(t, meta.HasConstructor())
	assert.Len(t, meta.Constructor.Params, 2)
	assert.False(t, meta.Fields[0].Settable())

	p := newPoint(3, 4)
	assert.Equal(t, 4, meta.Fields[1].Get(reflect.ValueOf(&p).Elem()).Interface())
}

func TestRegisterValidatesConstructor(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"not a function", WithConstructor(42, "x")},
		{"arity mismatch", WithConstructor(newPoint, "x")},
		{"wrong result", WithConstructor(func(x, y int) int { return x }, "x", "y")},
		{"second result not error", WithConstructor(func(x, y int) (point, int) { return point{}, 0 }, "x", "y")},
		{"duplicate column", WithConstructor(newPoint, "x", "x")},
		{"variadic", WithConstructor(func(xs ...int) point { return point{} }, "x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(nil)
			_, err := r.Register(point{}, tt.opt)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation), "got %v", err)
		})
	}
}

func TestConstructorInvokeReportsInstantiationFailures(t *testing.T) {
	r := NewRegistry(nil)
	meta, err := r.Register(point{}, WithConstructor(func(x, y int) (*point, error) {
		switch {
		case x < 0:
			return nil, stderrors.New("negative")
		case x == 0:
			return nil, nil
		case x > 100:
			panic("too far")
		}
		return &point{x: x, y: y}, nil
	}, "x", "y"))
	require.NoError(t, err)

	args := func(x, y int) []reflect.Value { return []reflect.Value{reflect.ValueOf(x), reflect.ValueOf(y)} }

	v, err := meta.Constructor.Invoke(args(1, 2))
	require.NoError(t, err)
	assert.Equal(t, &point{x: 1, y: 2}, v.Interface())

	for _, x := range []int{-1, 0, 101} {
		_, err := meta.Constructor.Invoke(args(x, 0))
		assert.True(t, errors.IsInstantiation(err), "x=%d: %v", x, err)
	}

	_, err = meta.Constructor.Invoke(nil)
	assert.True(t, errors.IsInstantiation(err))
}

func TestSealedRegistry(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	_, err := r.Register(tag{})
	require.NoError(t, err)

	r.Seal()
	assert.True(t, r.Sealed())

	_, err = r.Register(author{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = r.MetadataOf(reflect.TypeOf(tag{}))
	assert.NoError(t, err)
}

func TestMetadataNotFound(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.MetadataOf(reflect.TypeOf(tag{}))
	assert.True(t, errors.IsMappingNotFound(err))

	_, err = r.MetadataByName("Nope")
	assert.True(t, errors.IsMappingNotFound(err))

	_, err = r.Register(nil)
	assert.True(t, errors.IsNullArgument(err))
}

func TestRegisterRejectsNonStruct(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Register(42)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestRegisterRejectsUnknownTagOption(t *testing.T) {
	type bad struct {
		ID int64 `column:"_id,primary"`
	}
	r := NewRegistry(nil)
	_, err := r.Register(bad{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestWithConverterOverridesTextConverter(t *testing.T) {
	upper := ConverterFuncs{
		EncodeFunc: func(v any) (any, error) { return "X-" + v.(currency).code, nil },
	}
	r := NewRegistry(nil)
	meta, err := r.Register(article{}, WithConverter("Currency", upper))
	require.NoError(t, err)

	f, ok := meta.FieldByColumn("currency")
	require.True(t, ok)
	encoded, err := f.Converter.Encode(currency{code: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, "X-EUR", encoded)

	decoded, err := f.Converter.Decode("EUR")
	require.NoError(t, err)
	assert.Equal(t, "EUR", decoded)
}

func TestAddHandBuiltMetadata(t *testing.T) {
	typ := reflect.TypeOf(tag{})
	meta := &EntityMetadata{
		Name: "Tag",
		Type: typ,
		Fields: []*FieldMetadata{{
			Name:   "Label",
			Column: "l",
			Type:   reflect.TypeOf(""),
			Kind:   KindScalar,
			Getter: func(obj reflect.Value) reflect.Value { return obj.Field(0) },
			Setter: func(obj reflect.Value, v reflect.Value) { obj.Field(0).Set(v) },
		}},
	}

	r := NewRegistry(nil)
	require.NoError(t, r.Add(meta))

	got, err := r.MetadataByName("Tag")
	require.NoError(t, err)
	f, ok := got.FieldByColumn("l")
	require.True(t, ok)
	assert.Equal(t, "Label", f.Name)

	assert.True(t, errors.IsType(r.Add(meta), errors.ErrorTypeValidation))
	assert.True(t, errors.IsNullArgument(r.Add(nil)))
}
