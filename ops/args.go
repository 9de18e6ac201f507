package ops

import (
	"github.com/dop251/goja"
)

// Args carries the script values passed to an op along with the runtime
// they belong to. Values must not be retained after the handler returns.
type Args struct {
	vm     *goja.Runtime
	values []goja.Value
}

// NewArgs wraps the arguments of a script call.
func NewArgs(vm *goja.Runtime, values ...goja.Value) Args {
	return Args{vm: vm, values: values}
}

// Runtime returns the runtime the arguments belong to.
func (a Args) Runtime() *goja.Runtime {
	return a.vm
}

func (a Args) Len() int {
	return len(a.values)
}

// Value returns argument i, or undefined when it was not passed.
func (a Args) Value(i int) goja.Value {
	if i < 0 || i >= len(a.values) {
		return goja.Undefined()
	}
	return a.values[i]
}

// String returns argument i, which must be a script string.
func (a Args) String(i int) (string, error) {
	v := a.Value(i)
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return "", &ArgumentError{Index: i, Want: "string", Got: typeName(v)}
	}
	s, ok := v.Export().(string)
	if !ok {
		return "", &ArgumentError{Index: i, Want: "string", Got: typeName(v)}
	}
	return s, nil
}

// Float returns argument i, which must be a script number.
func (a Args) Float(i int) (float64, error) {
	v := a.Value(i)
	switch n := v.Export().(type) {
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, &ArgumentError{Index: i, Want: "number", Got: typeName(v)}
	}
}

// Int returns argument i truncated to an integer. It must be a script number.
func (a Args) Int(i int) (int64, error) {
	f, err := a.Float(i)
	if err != nil {
		return 0, &ArgumentError{Index: i, Want: "integer", Got: typeName(a.Value(i))}
	}
	return int64(f), nil
}

// Display converts every argument from index i onwards with the script's
// own string conversion.
func (a Args) Display(from int) []string {
	if from >= len(a.values) {
		return nil
	}
	out := make([]string, 0, len(a.values)-from)
	for _, v := range a.values[from:] {
		out = append(out, v.String())
	}
	return out
}

func typeName(v goja.Value) string {
	switch {
	case v == nil || goja.IsUndefined(v):
		return "undefined"
	case goja.IsNull(v):
		return "null"
	}
	switch v.Export().(type) {
	case string:
		return "string"
	case int64, float64:
		return "number"
	case bool:
		return "boolean"
	}
	if _, ok := goja.AssertFunction(v); ok {
		return "function"
	}
	return "object"
}
