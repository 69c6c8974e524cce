// Package layering deep-copies and merges JSON-like record trees.
package layering

import "reflect"

// MergeLayers composes values ordered from strongest to weakest. Maps merge
// key by key; any other value set in a stronger layer replaces the weaker one
// wholesale. The result never aliases the inputs.
func MergeLayers[T any](layers ...T) T {
	var zero T
	if len(layers) == 0 {
		return zero
	}

	merged := clone(reflect.ValueOf(layers[len(layers)-1]))
	for i := len(layers) - 2; i >= 0; i-- {
		merged = merge(reflect.ValueOf(layers[i]), merged)
	}
	return toType[T](merged)
}

// MergeRecords is MergeLayers for document records. A nil layer contributes
// nothing.
func MergeRecords(layers ...map[string]any) map[string]any {
	merged := MergeLayers(layers...)
	if merged == nil {
		return map[string]any{}
	}
	return merged
}

// Clone returns a deep copy of v. Unexported struct fields are left at their
// zero value.
func Clone[T any](v T) T {
	return toType[T](clone(reflect.ValueOf(v)))
}

func toType[T any](v reflect.Value) T {
	var zero T
	if !v.IsValid() {
		return zero
	}
	target := reflect.TypeOf((*T)(nil)).Elem()
	if v.Type() == target {
		return v.Interface().(T)
	}
	result := reflect.New(target).Elem()
	result.Set(v.Convert(target))
	return result.Interface().(T)
}

func merge(strong, weak reflect.Value) reflect.Value {
	if !strong.IsValid() {
		return clone(weak)
	}

	switch strong.Kind() {
	case reflect.Interface, reflect.Pointer:
		if strong.IsNil() {
			return clone(weak)
		}
		inner := merge(strong.Elem(), elemOf(weak))
		if strong.Kind() == reflect.Interface {
			return inner.Convert(strong.Type())
		}
		ptr := reflect.New(strong.Type().Elem())
		ptr.Elem().Set(inner)
		return ptr
	case reflect.Map:
		if strong.IsNil() {
			return clone(weak)
		}
		out := reflect.MakeMapWithSize(strong.Type(), strong.Len())
		if weak.IsValid() && weak.Kind() == reflect.Map && weak.Type() == strong.Type() && !weak.IsNil() {
			iter := weak.MapRange()
			for iter.Next() {
				out.SetMapIndex(iter.Key(), clone(iter.Value()))
			}
		}
		iter := strong.MapRange()
		for iter.Next() {
			if existing := out.MapIndex(iter.Key()); existing.IsValid() {
				out.SetMapIndex(iter.Key(), merge(iter.Value(), existing))
				continue
			}
			out.SetMapIndex(iter.Key(), clone(iter.Value()))
		}
		return out
	case reflect.Struct:
		out := reflect.New(strong.Type()).Elem()
		sameType := weak.IsValid() && weak.Type() == strong.Type()
		for i := 0; i < strong.NumField(); i++ {
			field := out.Field(i)
			if !field.CanSet() {
				continue
			}
			var weakField reflect.Value
			if sameType {
				weakField = weak.Field(i)
			}
			field.Set(merge(strong.Field(i), weakField))
		}
		return out
	case reflect.Slice:
		if strong.IsNil() {
			return clone(weak)
		}
		return clone(strong)
	default:
		return clone(strong)
	}
}

func elemOf(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return reflect.Value{}
		}
		return v.Elem()
	default:
		return v
	}
}

func clone(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		ptr := reflect.New(v.Type().Elem())
		ptr.Elem().Set(clone(v.Elem()))
		return ptr
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		return clone(v.Elem()).Convert(v.Type())
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), clone(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(clone(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(clone(v.Index(i)))
		}
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			if field := out.Field(i); field.CanSet() {
				field.Set(clone(v.Field(i)))
			}
		}
		return out
	default:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		return out
	}
}
