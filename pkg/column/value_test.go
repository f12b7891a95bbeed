package column

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/ajitpratap0/colmap/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type status string

func TestConvert(t *testing.T) {
	ts := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	ptr := func(s string) *string { return &s }

	tests := []struct {
		name   string
		value  any
		target any
		want   any
	}{
		{"int to int64", 10, int64(0), int64(10)},
		{"int64 to int", int64(2020), 0, 2020},
		{"int32 to int64", int32(7), int64(0), int64(7)},
		{"integral float to int", float64(12), 0, 12},
		{"int to float64", 3, float64(0), float64(3)},
		{"exact int64 to float32", int64(16777216), float32(0), float32(16777216)},
		{"exact int64 to float64", int64(1 << 53), float64(0), float64(1 << 53)},
		{"uint to float32", uint32(42), float32(0), float32(42)},
		{"string to int", "2020", 0, 2020},
		{"string to float", "1.5", float64(0), 1.5},
		{"string to bool", "true", false, true},
		{"int to string", 10, "", "10"},
		{"float to string", 1.25, "", "1.25"},
		{"bool to string", true, "", "true"},
		{"string to named string", "active", status(""), status("active")},
		{"bytes to string", []byte("abc"), "", "abc"},
		{"string to bytes", "abc", []byte(nil), []byte("abc")},
		{"time to string", ts, "", "2020-01-02T03:04:05Z"},
		{"string to time", "2020-01-02T03:04:05Z", time.Time{}, ts},
		{"slice elementwise", []any{"a", "b"}, []string(nil), []string{"a", "b"}},
		{"slice numbers", []any{int32(1), int64(2)}, []int(nil), []int{1, 2}},
		{"map elementwise", map[string]any{"a": 1}, map[string]int64(nil), map[string]int64{"a": 1}},
		{"pointer target", "Dell", ptr(""), ptr("Dell")},
		{"pointer source", ptr("Dell"), "", "Dell"},
		{"nil to int", nil, 0, 0},
		{"interface target", 10, (*any)(nil), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := reflect.TypeOf(tt.target)
			if p, ok := tt.target.(*any); ok && p == nil {
				target = reflect.TypeOf((*any)(nil)).Elem()
			}
			got, err := Convert(tt.value, target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Interface())
		})
	}
}

func TestConvertRejectsTruncation(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		target reflect.Type
	}{
		{"fraction to int", 1.5, reflect.TypeOf(0)},
		{"overflow int8", 300, reflect.TypeOf(int8(0))},
		{"negative to uint", -1, reflect.TypeOf(uint(0))},
		{"huge uint to int64", uint64(1 << 63), reflect.TypeOf(int64(0))},
		{"int64 beyond float32 mantissa", int64(16777217), reflect.TypeOf(float32(0))},
		{"int64 beyond float64 mantissa", int64(1<<53 + 1), reflect.TypeOf(float64(0))},
		{"max int64 to float64", int64(math.MaxInt64), reflect.TypeOf(float64(0))},
		{"uint64 beyond float64 mantissa", uint64(1<<53 + 1), reflect.TypeOf(float64(0))},
		{"max uint64 to float64", uint64(math.MaxUint64), reflect.TypeOf(float64(0))},
		{"text to int", "USD 20", reflect.TypeOf(0)},
		{"bool to int", true, reflect.TypeOf(0)},
		{"columns to string", []Column{Of("a", 1)}, reflect.TypeOf("")},
		{"bad time", "yesterday", reflect.TypeOf(time.Time{})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Convert(tt.value, tt.target)
			require.Error(t, err)
			assert.True(t, errors.IsTypeCoercion(err), "got %v", err)
		})
	}
}

func TestConvertNilTarget(t *testing.T) {
	_, err := Convert(1, nil)
	assert.True(t, errors.IsNullArgument(err))
}
