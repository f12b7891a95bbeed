package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/colmap/internal/testentities"
	"github.com/ajitpratap0/colmap/pkg/column"
	"github.com/ajitpratap0/colmap/pkg/errors"
)

func TestString(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{"abc", "abc"},
		{7, "7"},
		{int64(7), "7"},
		{uint8(7), "7"},
		{2.5, "2.5"},
		{float32(0.1), "0.1"},
		{"7", "7"},
		{true, "true"},
		{testentities.MustParseMoney("USD 20"), "USD 20"},
	}
	for _, tt := range tests {
		got, err := String(column.Of("_id", tt.value))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := String(column.Of("_id", nil))
	assert.True(t, errors.IsNullArgument(err))
	_, err = String(column.Of("_id", []string{"a"}))
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	_, err = String(column.Of("_id", []column.Column{column.Of("a", 1)}))
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestStringMatchesColumnText(t *testing.T) {
	for _, v := range []any{float32(16.25), 1e21, uint64(1 << 63), testentities.MustParseMoney("BRL 3.5")} {
		key, err := String(column.Of("_id", v))
		require.NoError(t, err)
		text, ok, err := column.Find[string](column.EntityOf("Key", column.Of("_id", v)), "_id")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, text, key)
	}
}

func TestLookup(t *testing.T) {
	e := column.EntityOf("Book", column.Of("_id", int64(1)))
	c, err := Lookup(e, "_id")
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Value)

	_, err = Lookup(e, "isbn")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	_, err = Lookup(nil, "_id")
	assert.True(t, errors.IsNullArgument(err))
	_, err = Lookup(e, "")
	assert.True(t, errors.IsNullArgument(err))
}
