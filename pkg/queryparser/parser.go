package queryparser

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

var (
	ErrInvalidTarget = errors.New("target must be a pointer to struct")
	ErrMissingParam  = errors.New("missing query parameter")
	ErrInvalidParam  = errors.New("invalid query parameter")
)

// Parse fills the fields of target tagged `query:"name"` from values.
// A `query:"name,required"` tag fails with ErrMissingParam when the
// parameter is absent or blank.
func Parse(values url.Values, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return ErrInvalidTarget
	}

	rv = rv.Elem()
	rt := rv.Type()

	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		if !field.CanSet() {
			continue
		}

		name, required := parseTag(rt.Field(i).Tag.Get("query"))
		if name == "" {
			continue
		}

		raw := values[name]
		if len(raw) == 0 || (len(raw) == 1 && strings.TrimSpace(raw[0]) == "") {
			if required {
				return fmt.Errorf("%w: %s", ErrMissingParam, name)
			}
			continue
		}

		if err := set(field, raw); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidParam, name, err)
		}
	}

	return nil
}

func parseTag(tag string) (name string, required bool) {
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if strings.TrimSpace(opt) == "required" {
			required = true
		}
	}
	return strings.TrimSpace(parts[0]), required
}

func set(field reflect.Value, raw []string) error {
	if field.Kind() != reflect.Slice {
		return setScalar(field, strings.TrimSpace(raw[0]))
	}

	// Repeated parameters and comma separated lists both append.
	slice := reflect.MakeSlice(field.Type(), 0, len(raw))
	for _, v := range raw {
		for _, item := range strings.Split(v, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			elem := reflect.New(field.Type().Elem()).Elem()
			if err := setScalar(elem, item); err != nil {
				return err
			}
			slice = reflect.Append(slice, elem)
		}
	}
	field.Set(slice)

	return nil
}

func setScalar(v reflect.Value, s string) error {
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return fmt.Errorf("not an integer: %q", s)
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return fmt.Errorf("not an unsigned integer: %q", s)
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return fmt.Errorf("not a number: %q", s)
		}
		v.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("not a boolean: %q", s)
		}
		v.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type %s", v.Kind())
	}
	return nil
}
