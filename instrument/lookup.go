package instrument

import (
	"reflect"
)

// LookupPath resolves a dotted attribute path ("Config.Host") on an
// arbitrary object reflectively. Each segment is tried first as an
// exported struct field, then as a niladic single-result method.
// Pointers are dereferenced along the way.
//
// A missing segment, nil value, or unexported target returns (nil, false)
// and never panics: drivers differ wildly in shape and a miss is the
// expected common case.
func LookupPath(obj any, path string) (val any, ok bool) {
	defer func() {
		// Reflection on exotic values (nil maps, invalid interfaces) can
		// panic; a miss must stay a miss.
		if r := recover(); r != nil {
			val, ok = nil, false
		}
	}()

	v := reflect.ValueOf(obj)
	start := 0
	for i := 0; i <= len(path); i++ {
		if i != len(path) && path[i] != '.' {
			continue
		}
		segment := path[start:i]
		start = i + 1
		if segment == "" {
			return nil, false
		}

		var ok bool
		v, ok = lookupSegment(v, segment)
		if !ok {
			return nil, false
		}
	}

	if !v.IsValid() || !v.CanInterface() {
		return nil, false
	}
	return v.Interface(), true
}

func lookupSegment(v reflect.Value, name string) (reflect.Value, bool) {
	if !v.IsValid() {
		return reflect.Value{}, false
	}

	// Methods are looked up on the value as-is (pointer receivers need the
	// pointer), fields after dereferencing.
	if m := v.MethodByName(name); m.IsValid() && m.Type().NumIn() == 0 && m.Type().NumOut() == 1 {
		return m.Call(nil)[0], true
	}

	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
		if m := v.MethodByName(name); m.IsValid() && m.Type().NumIn() == 0 && m.Type().NumOut() == 1 {
			return m.Call(nil)[0], true
		}
	}

	if v.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}

	f := v.FieldByName(name)
	if !f.IsValid() || !f.CanInterface() {
		return reflect.Value{}, false
	}
	return f, true
}
