// Package keys derives storage keys from key columns.
package keys

import (
	"github.com/ajitpratap0/colmap/pkg/column"
	"github.com/ajitpratap0/colmap/pkg/errors"
)

// Lookup returns the key column of e.
func Lookup(e *column.Entity, keyColumn string) (column.Column, error) {
	if e == nil {
		return column.Column{}, errors.NullArgument("entity")
	}
	if keyColumn == "" {
		return column.Column{}, errors.NullArgument("key column")
	}
	c, ok := e.Find(keyColumn)
	if !ok {
		return column.Column{}, errors.Newf(errors.ErrorTypeValidation,
			"entity %s has no key column %s", e.Name(), keyColumn).
			WithDetail("entity", e.Name()).
			WithDetail("column", keyColumn)
	}
	return c, nil
}

// String renders a scalar key value through column.Convert, so keys follow
// the same text rules as every other coercion. Numbers of different widths
// render alike and int 7 and int64 7 address the same entry. Keys are not
// tagged with their kind either: the string "7" addresses that entry too.
// Nested entities, collections and lists are rejected.
func String(key column.Column) (string, error) {
	if key.Value == nil {
		return "", errors.NullArgument("key " + key.Name)
	}
	switch key.Value.(type) {
	case []column.Column, [][]column.Column:
		return "", notScalar(key)
	}
	text, err := column.Convert(key.Value, column.StringType)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeValidation, "key "+key.Name+" must be a scalar").
			WithDetail("column", key.Name)
	}
	return text.String(), nil
}

func notScalar(key column.Column) error {
	return errors.Newf(errors.ErrorTypeValidation, "key %s must be a scalar, got %T", key.Name, key.Value).
		WithDetail("column", key.Name)
}
