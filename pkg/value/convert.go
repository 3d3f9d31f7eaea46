package value

import (
	"errors"
	"fmt"
	"math"
	"reflect"
)

// ErrNotConvertible reports that a raw value cannot represent the requested type.
var ErrNotConvertible = errors.New("value: not convertible")

// Convert builds a constant of type t from a loosely typed raw value, as
// produced by decoders and script engines. Numbers convert between numeric
// kinds when no precision is lost; everything else must already match.
func Convert(t Type, raw any) (Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: invalid type", ErrNotConvertible)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: nil to %s", ErrNotConvertible, t)
	}
	rv := reflect.ValueOf(raw)
	if rv.Type() == t.rt {
		return dynamic{t: t, v: raw}, nil
	}

	switch {
	case isSigned(t.rt.Kind()) && isNumber(rv.Kind()):
		f, ok := asFloat(rv)
		if ok && (f != math.Trunc(f) || math.IsInf(f, 0)) {
			return nil, fmt.Errorf("%w: %v is not integral", ErrNotConvertible, raw)
		}
		out := reflect.New(t.rt).Elem()
		switch {
		case isSigned(rv.Kind()):
			if out.OverflowInt(rv.Int()) {
				return nil, fmt.Errorf("%w: %v overflows %s", ErrNotConvertible, raw, t)
			}
			out.SetInt(rv.Int())
		case isUnsigned(rv.Kind()):
			if rv.Uint() > math.MaxInt64 || out.OverflowInt(int64(rv.Uint())) {
				return nil, fmt.Errorf("%w: %v overflows %s", ErrNotConvertible, raw, t)
			}
			out.SetInt(int64(rv.Uint()))
		default:
			if f >= math.MaxInt64 || f < math.MinInt64 || out.OverflowInt(int64(f)) {
				return nil, fmt.Errorf("%w: %v overflows %s", ErrNotConvertible, raw, t)
			}
			out.SetInt(int64(f))
		}
		return dynamic{t: t, v: out.Interface()}, nil

	case isUnsigned(t.rt.Kind()) && isNumber(rv.Kind()):
		f, _ := asFloat(rv)
		if f < 0 || (isFloat(rv.Kind()) && (f != math.Trunc(f) || f >= math.MaxUint64)) {
			return nil, fmt.Errorf("%w: %v is not a non-negative integer", ErrNotConvertible, raw)
		}
		out := reflect.New(t.rt).Elem()
		var u uint64
		switch {
		case isSigned(rv.Kind()):
			u = uint64(rv.Int())
		case isUnsigned(rv.Kind()):
			u = rv.Uint()
		default:
			u = uint64(f)
		}
		if out.OverflowUint(u) {
			return nil, fmt.Errorf("%w: %v overflows %s", ErrNotConvertible, raw, t)
		}
		out.SetUint(u)
		return dynamic{t: t, v: out.Interface()}, nil

	case isFloat(t.rt.Kind()) && isNumber(rv.Kind()):
		f, _ := asFloat(rv)
		out := reflect.New(t.rt).Elem()
		out.SetFloat(f)
		return dynamic{t: t, v: out.Interface()}, nil
	}

	if rv.Kind() == t.rt.Kind() && rv.Type().ConvertibleTo(t.rt) && !isNumber(rv.Kind()) {
		return dynamic{t: t, v: rv.Convert(t.rt).Interface()}, nil
	}
	return nil, fmt.Errorf("%w: %s to %s", ErrNotConvertible, rv.Type(), t)
}

// Decode unmarshals data into a fresh value of type t.
func Decode(t Type, data []byte, unmarshal func([]byte, any) error) (Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: invalid type", ErrNotConvertible)
	}
	dst := t.New()
	if err := unmarshal(data, dst); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return dynamic{t: t, v: reflect.ValueOf(dst).Elem().Interface()}, nil
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool { return k == reflect.Float32 || k == reflect.Float64 }

func isNumber(k reflect.Kind) bool {
	return isSigned(k) || isUnsigned(k) || isFloat(k)
}

func asFloat(rv reflect.Value) (float64, bool) {
	switch {
	case isSigned(rv.Kind()):
		return float64(rv.Int()), true
	case isUnsigned(rv.Kind()):
		return float64(rv.Uint()), true
	case isFloat(rv.Kind()):
		return rv.Float(), true
	}
	return 0, false
}
