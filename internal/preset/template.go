package preset

import (
	"errors"
	"fmt"
	"os"
	"reflect"
)

// ExpandTemplates rewrites the ${VAR} references of a preset spec in place.
// Only exported string, *string and []string fields tagged `template` are
// expanded; `template:"-"` opts a field out. Nested structs are walked
// whether or not they carry the tag. nil pointers and slices are left nil.
func ExpandTemplates[T any](in *T, variables map[string]string) error {
	if in == nil {
		return nil
	}
	v := reflect.ValueOf(in).Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("cannot expand templates of %s: not a struct", v.Type())
	}
	return expandStruct(v, variables)
}

func expandStruct(v reflect.Value, variables map[string]string) error {
	typ := v.Type()
	var errs error

	for i := range typ.NumField() {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, ok := sf.Tag.Lookup("template")
		templated := ok && tag != "-"
		field := v.Field(i)

		switch {
		case field.Kind() == reflect.Struct:
			errs = errors.Join(errs, expandStruct(field, variables))

		case field.Kind() == reflect.Pointer && !field.IsNil() && field.Elem().Kind() == reflect.Struct:
			errs = errors.Join(errs, expandStruct(field.Elem(), variables))

		case !templated:
			continue

		case field.Kind() == reflect.String:
			errs = errors.Join(errs, expandValue(field, sf.Name, variables))

		case field.Kind() == reflect.Pointer && !field.IsNil() && field.Elem().Kind() == reflect.String:
			// Replace the pointer so that a value shared with the caller is not mutated.
			expanded := reflect.New(field.Elem().Type())
			expanded.Elem().SetString(field.Elem().String())
			if err := expandValue(expanded.Elem(), sf.Name, variables); err != nil {
				errs = errors.Join(errs, err)
				continue
			}
			field.Set(expanded)

		case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
			for j := range field.Len() {
				errs = errors.Join(errs, expandValue(field.Index(j), fmt.Sprintf("%s[%d]", sf.Name, j), variables))
			}
		}
	}
	return errs
}

func expandValue(v reflect.Value, name string, variables map[string]string) error {
	expanded, err := Expand(v.String(), variables)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	v.SetString(expanded)
	return nil
}

// Expand replaces $VAR and ${VAR} references in value. Every referenced
// variable must be present in variables.
func Expand(value string, variables map[string]string) (string, error) {
	var errs error

	result := os.Expand(value, func(key string) string {
		if val, ok := variables[key]; ok {
			return val
		}
		errs = errors.Join(errs, fmt.Errorf("environment variable %q is not in the allowed list", key))
		return ""
	})

	if errs != nil {
		return "", errs
	}

	return result, nil
}
