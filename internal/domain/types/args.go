// Package types contains the argument bag passed to every command.
package types

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Args holds command arguments as delivered by the host: strings, numbers,
// booleans, lists or nested objects.
type Args map[string]any

// Decode fills target, a pointer to a struct with `arg` tags. Scalars are
// weakly typed ("true" -> bool, "5" -> int) and comma separated strings
// become slices.
func (a Args) Decode(target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "arg",
		WeaklyTypedInput: true,
		Result:           target,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			splitCommaHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(a)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return nil
}

// splitCommaHook turns "a, b,,c" into []string{"a", "b", "c"}.
func splitCommaHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
		return data, nil
	}
	return SplitList(data.(string)), nil
}

// SplitList splits a comma separated value and drops blanks.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// String returns the argument as a trimmed string; missing keys yield "".
func (a Args) String(key string) string {
	switch v := a[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Bool reports whether the argument is a true boolean or "true" string.
func (a Args) Bool(key string) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	default:
		return false
	}
}

// Require returns ErrInvalidArgument naming the first missing key.
func (a Args) Require(keys ...string) error {
	for _, k := range keys {
		if a.String(k) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidArgument, k)
		}
	}
	return nil
}
