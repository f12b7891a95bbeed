package column

import (
	"encoding"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/ajitpratap0/colmap/pkg/errors"
)

var (
	timeType          = reflect.TypeOf(time.Time{})
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

	// StringType is the target used to render scalars as text.
	StringType = reflect.TypeOf("")
)

// Convert coerces value into a reflect.Value of exactly the target type.
//
// Integers, unsigned integers and floats convert into each other when the
// value fits: overflow and fractional parts are errors, never truncated.
// Numbers and bools convert to and from strings, time.Time to and from RFC
// 3339 strings, []byte to and from strings. A value implementing
// encoding.TextMarshaler converts to a string as its text. Pointer targets are allocated,
// slices and arrays are converted element by element and maps entry by
// entry. A nil value yields the zero value of target.
func Convert(value any, target reflect.Type) (reflect.Value, error) {
	if target == nil {
		return reflect.Value{}, errors.NullArgument("target type")
	}
	if value == nil {
		return reflect.Zero(target), nil
	}
	return convert(reflect.ValueOf(value), target)
}

func convert(src reflect.Value, target reflect.Type) (reflect.Value, error) {
	for src.Kind() == reflect.Interface || src.Kind() == reflect.Pointer {
		if src.IsNil() {
			return reflect.Zero(target), nil
		}
		if src.Type().AssignableTo(target) {
			return src, nil
		}
		src = src.Elem()
	}

	if src.Type() == target {
		return src, nil
	}

	switch {
	case target.Kind() == reflect.Interface:
		if src.Type().Implements(target) {
			out := reflect.New(target).Elem()
			out.Set(src)
			return out, nil
		}
		return reflect.Value{}, mismatch(src, target)
	case target.Kind() == reflect.Pointer:
		inner, err := convert(src, target.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(target.Elem())
		p.Elem().Set(inner)
		return p, nil
	case target == timeType:
		return toTime(src, target)
	case src.Type() == timeType && target.Kind() == reflect.String:
		out := reflect.New(target).Elem()
		out.SetString(src.Interface().(time.Time).Format(time.RFC3339Nano))
		return out, nil
	case target.Kind() == reflect.String && src.Type().Implements(textMarshalerType):
		text, err := src.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return reflect.Value{}, wrapMismatch(err, src, target)
		}
		out := reflect.New(target).Elem()
		out.SetString(string(text))
		return out, nil
	}

	out := reflect.New(target).Elem()
	switch target.Kind() {
	case reflect.Bool:
		return out, toBool(src, out)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return out, toInt(src, out)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return out, toUint(src, out)
	case reflect.Float32, reflect.Float64:
		return out, toFloat(src, out)
	case reflect.String:
		return out, toString(src, out)
	case reflect.Slice:
		return toSlice(src, target)
	case reflect.Array:
		return toArray(src, target)
	case reflect.Map:
		return toMap(src, target)
	case reflect.Struct:
		if src.Kind() == reflect.Struct && src.Type().ConvertibleTo(target) {
			return src.Convert(target), nil
		}
	}
	return reflect.Value{}, mismatch(src, target)
}

func toBool(src, out reflect.Value) error {
	switch src.Kind() {
	case reflect.Bool:
		out.SetBool(src.Bool())
		return nil
	case reflect.String:
		b, err := strconv.ParseBool(src.String())
		if err != nil {
			return wrapMismatch(err, src, out.Type())
		}
		out.SetBool(b)
		return nil
	}
	return mismatch(src, out.Type())
}

func toInt(src, out reflect.Value) error {
	var n int64
	switch src.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n = src.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := src.Uint()
		if u > math.MaxInt64 {
			return overflow(src, out.Type())
		}
		n = int64(u)
	case reflect.Float32, reflect.Float64:
		f := src.Float()
		if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
			return overflow(src, out.Type())
		}
		n = int64(f)
	case reflect.String:
		parsed, err := strconv.ParseInt(src.String(), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(src.String(), 64)
			if ferr != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
				return wrapMismatch(err, src, out.Type())
			}
			parsed = int64(f)
		}
		n = parsed
	default:
		return mismatch(src, out.Type())
	}
	if out.OverflowInt(n) {
		return overflow(src, out.Type())
	}
	out.SetInt(n)
	return nil
}

func toUint(src, out reflect.Value) error {
	var n uint64
	switch src.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := src.Int()
		if i < 0 {
			return overflow(src, out.Type())
		}
		n = uint64(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n = src.Uint()
	case reflect.Float32, reflect.Float64:
		f := src.Float()
		if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
			return overflow(src, out.Type())
		}
		n = uint64(f)
	case reflect.String:
		parsed, err := strconv.ParseUint(src.String(), 10, 64)
		if err != nil {
			return wrapMismatch(err, src, out.Type())
		}
		n = parsed
	default:
		return mismatch(src, out.Type())
	}
	if out.OverflowUint(n) {
		return overflow(src, out.Type())
	}
	out.SetUint(n)
	return nil
}

func toFloat(src, out reflect.Value) error {
	var f float64
	switch src.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := src.Int()
		f = roundFloat(float64(i), out.Type().Bits())
		// 2^63 is not an int64; the comparison below would be undefined
		if f >= math.MaxInt64 || int64(f) != i {
			return overflow(src, out.Type())
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := src.Uint()
		f = roundFloat(float64(u), out.Type().Bits())
		if f >= math.MaxUint64 || uint64(f) != u {
			return overflow(src, out.Type())
		}
	case reflect.Float32, reflect.Float64:
		f = src.Float()
	case reflect.String:
		parsed, err := strconv.ParseFloat(src.String(), out.Type().Bits())
		if err != nil {
			return wrapMismatch(err, src, out.Type())
		}
		f = parsed
	default:
		return mismatch(src, out.Type())
	}
	if out.OverflowFloat(f) {
		return overflow(src, out.Type())
	}
	out.SetFloat(f)
	return nil
}

// roundFloat rounds f to the precision of a float of the given bits.
func roundFloat(f float64, bits int) float64 {
	if bits == 32 {
		return float64(float32(f))
	}
	return f
}

func toString(src, out reflect.Value) error {
	switch src.Kind() {
	case reflect.String:
		out.SetString(src.String())
	case reflect.Bool:
		out.SetString(strconv.FormatBool(src.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		out.SetString(strconv.FormatInt(src.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		out.SetString(strconv.FormatUint(src.Uint(), 10))
	case reflect.Float32:
		out.SetString(strconv.FormatFloat(src.Float(), 'g', -1, 32))
	case reflect.Float64:
		out.SetString(strconv.FormatFloat(src.Float(), 'g', -1, 64))
	case reflect.Slice:
		if src.Type().Elem().Kind() != reflect.Uint8 {
			return mismatch(src, out.Type())
		}
		out.SetString(string(src.Bytes()))
	default:
		return mismatch(src, out.Type())
	}
	return nil
}

func toTime(src reflect.Value, target reflect.Type) (reflect.Value, error) {
	switch {
	case src.Kind() == reflect.Struct && src.Type().ConvertibleTo(target):
		return src.Convert(target), nil
	case src.Kind() == reflect.String:
		t, err := time.Parse(time.RFC3339Nano, src.String())
		if err != nil {
			return reflect.Value{}, wrapMismatch(err, src, target)
		}
		return reflect.ValueOf(t), nil
	}
	return reflect.Value{}, mismatch(src, target)
}

func toSlice(src reflect.Value, target reflect.Type) (reflect.Value, error) {
	if target.Elem().Kind() == reflect.Uint8 && src.Kind() == reflect.String {
		return reflect.ValueOf([]byte(src.String())).Convert(target), nil
	}
	if src.Kind() != reflect.Slice && src.Kind() != reflect.Array {
		return reflect.Value{}, mismatch(src, target)
	}
	out := reflect.MakeSlice(target, src.Len(), src.Len())
	for i := 0; i < src.Len(); i++ {
		item, err := convert(src.Index(i), target.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		out.Index(i).Set(item)
	}
	return out, nil
}

func toArray(src reflect.Value, target reflect.Type) (reflect.Value, error) {
	if (src.Kind() != reflect.Slice && src.Kind() != reflect.Array) || src.Len() != target.Len() {
		return reflect.Value{}, mismatch(src, target)
	}
	out := reflect.New(target).Elem()
	for i := 0; i < src.Len(); i++ {
		item, err := convert(src.Index(i), target.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		out.Index(i).Set(item)
	}
	return out, nil
}

func toMap(src reflect.Value, target reflect.Type) (reflect.Value, error) {
	if src.Kind() != reflect.Map {
		return reflect.Value{}, mismatch(src, target)
	}
	out := reflect.MakeMapWithSize(target, src.Len())
	iter := src.MapRange()
	for iter.Next() {
		k, err := convert(iter.Key(), target.Key())
		if err != nil {
			return reflect.Value{}, err
		}
		v, err := convert(iter.Value(), target.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetMapIndex(k, v)
	}
	return out, nil
}

func mismatch(src reflect.Value, target reflect.Type) *errors.Error {
	return errors.Newf(errors.ErrorTypeTypeCoercion, "cannot convert %s to %s", src.Type(), target).
		WithDetail("source", src.Type().String()).
		WithDetail("target", target.String())
}

func overflow(src reflect.Value, target reflect.Type) *errors.Error {
	return errors.Newf(errors.ErrorTypeTypeCoercion, "value %v of type %s does not fit %s", src.Interface(), src.Type(), target).
		WithDetail("source", src.Type().String()).
		WithDetail("target", target.String())
}

func wrapMismatch(cause error, src reflect.Value, target reflect.Type) *errors.Error {
	return errors.Wrap(cause, errors.ErrorTypeTypeCoercion, "cannot convert "+src.Type().String()+" to "+target.String()).
		WithDetail("source", src.Type().String()).
		WithDetail("target", target.String())
}
