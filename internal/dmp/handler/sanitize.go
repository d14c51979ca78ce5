package handler

import (
	"reflect"
	"strings"
)

// sanitize trims whitespace from the top-level string and []string fields of
// a decoded request, and from the string fields of slices of structs such as
// prescription medications.
func sanitize(v any) {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Pointer || val.IsNil() {
		return
	}
	trimStruct(val.Elem())
}

func trimStruct(val reflect.Value) {
	if val.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanSet() {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(strings.TrimSpace(field.String()))
		case reflect.Slice:
			for j := 0; j < field.Len(); j++ {
				elem := field.Index(j)
				switch elem.Kind() {
				case reflect.String:
					elem.SetString(strings.TrimSpace(elem.String()))
				case reflect.Struct:
					trimStruct(elem)
				}
			}
		}
	}
}
