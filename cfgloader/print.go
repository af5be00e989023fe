package cfgloader

import (
	"reflect"
	"strings"

	"github.com/rise-and-shine/statebus/observability/logger"
	"gopkg.in/yaml.v3"
)

func printConfig(config any) {
	log := logger.Named("cfgloader")

	out, err := yaml.Marshal(Masked(config))
	if err != nil {
		log.Warnx(err)
		return
	}
	log.Infof("loaded config:\n%s", out)
}

// Masked returns a copy of cfg in which every field tagged `mask:"true"` is hidden:
// strings become asterisks of the same length, scalars their zero value. Nested structs,
// pointers and interfaces are walked.
func Masked(cfg any) any {
	v := reflect.ValueOf(cfg)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if !v.IsValid() {
		return cfg
	}
	return mask(v, false).Interface()
}

func mask(v reflect.Value, secret bool) reflect.Value {
	switch v.Kind() { //nolint:exhaustive // the rest is copied or zeroed as is
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return v
		}
		inner := mask(v.Elem(), secret)
		if v.Kind() == reflect.Interface {
			return inner
		}
		ptr := reflect.New(inner.Type())
		ptr.Elem().Set(inner)
		return ptr

	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		for i := range v.NumField() {
			field := out.Field(i)
			if !field.CanSet() {
				continue
			}
			hide := secret || v.Type().Field(i).Tag.Get("mask") == "true"
			field.Set(mask(v.Field(i), hide))
		}
		return out

	case reflect.String:
		if !secret {
			return v
		}
		return reflect.ValueOf(strings.Repeat("*", v.Len())).Convert(v.Type())

	case reflect.Slice, reflect.Array, reflect.Map:
		return v

	default:
		if !secret {
			return v
		}
		return reflect.Zero(v.Type())
	}
}
