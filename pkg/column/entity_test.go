package column

import (
	"testing"

	"github.com/ajitpratap0/colmap/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntityIsEmpty(t *testing.T) {
	e := NewEntity("Computer")

	assert.Equal(t, "Computer", e.Name())
	assert.True(t, e.IsEmpty())
	assert.Equal(t, 0, e.Size())
	assert.Empty(t, e.Columns())
}

func TestEntityOfLastWriteWins(t *testing.T) {
	e := EntityOf("Computer",
		Of("_id", 10),
		Of("name", "Dell"),
		Of("_id", 11),
	)

	assert.Equal(t, 2, e.Size())
	assert.Equal(t, []string{"_id", "name"}, e.Names())

	id, ok, err := Find[int64](e, "_id")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(11), id)
}

func TestEntityOfSkipsNilValues(t *testing.T) {
	var missing *string
	e := EntityOf("Computer",
		Of("_id", 10),
		Of("name", nil),
		Of("model", missing),
		Of("tags", []string(nil)),
	)

	assert.Equal(t, []string{"_id"}, e.Names())
	_, present := e.Find("name")
	assert.False(t, present)

	name, ok, err := Find[string](e, "name")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, name)
}

func TestAddReplacesInPlace(t *testing.T) {
	e := NewEntity("Computer")
	require.NoError(t, e.Add("_id", 10))
	require.NoError(t, e.Add("name", "Dell"))
	require.NoError(t, e.Add("_id", 12))

	assert.Equal(t, []string{"_id", "name"}, e.Names())
	c, ok := e.Find("_id")
	require.True(t, ok)
	assert.Equal(t, 12, c.Value)
}

func TestAddRejectsMissingArguments(t *testing.T) {
	e := NewEntity("Computer")

	err := e.Add("", "Dell")
	assert.True(t, errors.IsNullArgument(err))

	err = e.Add("name", nil)
	assert.True(t, errors.IsNullArgument(err))

	var nilPtr *string
	err = e.Add("name", nilPtr)
	assert.True(t, errors.IsNullArgument(err))

	assert.True(t, e.IsEmpty())
}

func TestAddNormalizesNestedEntities(t *testing.T) {
	animal := EntityOf("Animal", Of("_id", 23), Of("name", "Ada"))
	books := []*Entity{
		EntityOf("Book", Of("_id", 10)),
		EntityOf("Book", Of("_id", 12)),
	}

	e := NewEntity("Owner")
	require.NoError(t, e.Add("animal", animal))
	require.NoError(t, e.Add("books", books))

	c, ok := e.Find("animal")
	require.True(t, ok)
	assert.True(t, c.IsEntity())
	assert.Equal(t, []Column{Of("_id", 23), Of("name", "Ada")}, c.Value)

	c, ok = e.Find("books")
	require.True(t, ok)
	assert.True(t, c.IsCollection())
	assert.Len(t, c.Value, 2)
}

func TestFindReportsAbsenceSeparatelyFromMismatch(t *testing.T) {
	e := EntityOf("Computer", Of("name", "Dell"))

	v, ok, err := Find[string](e, "model")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "", v)

	_, ok, err = Find[int](e, "name")
	assert.True(t, ok)
	require.Error(t, err)
	assert.True(t, errors.IsTypeCoercion(err))
}

func TestFindNestedColumns(t *testing.T) {
	e := NewEntity("PetOwner")
	require.NoError(t, e.Add("animal", []Column{Of("_id", 23), Of("name", "Ada")}))

	cols, ok, err := Find[[]Column](e, "animal")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, cols, Of("name", "Ada"))
}

func TestColumnsReturnsCopy(t *testing.T) {
	e := EntityOf("Computer", Of("name", "Dell"))
	cols := e.Columns()
	cols[0].Value = "HP"

	name, _, err := Find[string](e, "name")
	require.NoError(t, err)
	assert.Equal(t, "Dell", name)
}

func TestEntityString(t *testing.T) {
	e := EntityOf("PetOwner",
		Of("_id", 10),
		Of("animal", []Column{Of("name", "Ada")}),
		Of("books", [][]Column{{Of("_id", 1)}, {Of("_id", 2)}}),
	)

	assert.Equal(t, `PetOwner{_id=10, animal={name="Ada"}, books=[{_id=1}, {_id=2}]}`, e.String())
}

func TestColumnGet(t *testing.T) {
	var age int
	require.NoError(t, Of("age", "2020").Get(&age))
	assert.Equal(t, 2020, age)

	err := Of("age", "x").Get(age)
	assert.True(t, errors.IsNullArgument(err))
}

func TestAsCollectionAcceptsLooseShapes(t *testing.T) {
	loose := []any{
		[]any{Of("_id", 1)},
		[]Column{Of("_id", 2)},
	}
	groups, ok := AsCollection(loose)
	require.True(t, ok)
	assert.Equal(t, [][]Column{{Of("_id", 1)}, {Of("_id", 2)}}, groups)

	_, ok = AsCollection("not a collection")
	assert.False(t, ok)
}
