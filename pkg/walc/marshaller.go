package walc

import (
	"fmt"
	"reflect"
)

// Marshaller converts between Go numbers and engine values.
type Marshaller struct{}

func NewMarshaller() *Marshaller {
	return &Marshaller{}
}

// ToValue converts a Go number (any int, uint or float kind, or a pointer
// to one) to a float64.
func (m *Marshaller) ToValue(val interface{}) (float64, error) {
	if val == nil {
		return 0, fmt.Errorf("cannot bind nil")
	}

	v := reflect.ValueOf(val)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return 0, fmt.Errorf("cannot bind nil %s", v.Type())
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	default:
		return 0, fmt.Errorf("cannot bind %s: not a number", v.Type())
	}
}

// FromValue converts a float64 to targetType. A nil targetType yields the
// float64 unchanged. Conversions to integer kinds require an integral value
// in range.
func (m *Marshaller) FromValue(val float64, targetType reflect.Type) (interface{}, error) {
	if targetType == nil {
		return val, nil
	}

	out := reflect.New(targetType).Elem()
	switch targetType.Kind() {
	case reflect.Float32, reflect.Float64:
		out.SetFloat(val)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if val != float64(int64(val)) || out.OverflowInt(int64(val)) {
			return nil, fmt.Errorf("%v does not fit in %s", val, targetType)
		}
		out.SetInt(int64(val))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if val < 0 || val != float64(uint64(val)) || out.OverflowUint(uint64(val)) {
			return nil, fmt.Errorf("%v does not fit in %s", val, targetType)
		}
		out.SetUint(uint64(val))
	default:
		return nil, fmt.Errorf("cannot convert to %s", targetType)
	}
	return out.Interface(), nil
}
