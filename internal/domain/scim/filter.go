package scim

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Filter selects elements of a multi-valued SCIM attribute. The expression
// sees the element as val, e.g. `val["type"] == "work"`.
type Filter struct {
	src     string
	program *vm.Program
}

// Common filters used by the attribute mapping.
var (
	Primary     = MustFilter(`val["primary"] == true`)
	NotPrimary  = MustFilter(`val["primary"] != true`)
	HomePhone   = MustFilter(`val["type"] == "home"`)
	MobilePhone = MustFilter(`val["type"] == "mobile"`)
	WorkPhone   = MustFilter(`val["type"] == "work"`)
)

// NewFilter compiles a boolean expression over val.
func NewFilter(src string) (*Filter, error) {
	program, err := expr.Compile(src,
		expr.Env(map[string]any{"val": map[string]any{}}),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidFilter, src, err)
	}
	return &Filter{src: src, program: program}, nil
}

// MustFilter is NewFilter for package-level expressions.
func MustFilter(src string) *Filter {
	f, err := NewFilter(src)
	if err != nil {
		panic(err)
	}
	return f
}

// Match evaluates the filter; evaluation errors count as no match.
func (f *Filter) Match(elem map[string]any) bool {
	out, err := expr.Run(f.program, map[string]any{"val": elem})
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}

func (f *Filter) String() string { return f.src }

// Select returns the elements of record[attr] that match f, in order.
// Non-object elements are skipped.
func Select(record map[string]any, attr string, f *Filter) []map[string]any {
	list, _ := record[attr].([]any)
	var out []map[string]any
	for _, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if f == nil || f.Match(m) {
			out = append(out, m)
		}
	}
	return out
}

// Pluck collects the non-empty string values of field across elems.
func Pluck(elems []map[string]any, field string) []string {
	var out []string
	for _, e := range elems {
		if s := str(e[field]); s != "" {
			out = append(out, s)
		}
	}
	return out
}
