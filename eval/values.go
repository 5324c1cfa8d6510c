package eval

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/cascada-go/cascada/errors"
)

// Generator is the pull-based async iterator contract (spec §9 "Async
// generators -> pull-based iterator interface"): a source of values that may
// themselves arrive asynchronously. User context values implement this to
// hand the evaluator a lazily-produced sequence.
type Generator interface {
	Next(ctx context.Context) (value any, done bool, err error)
}

// isTruthy implements spec §4.4's truthiness table: falsy is false, nullish,
// 0, NaN, empty string, empty array, empty mapping; everything else truthy.
func isTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int64:
		return t != 0
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case int64, float64:
		return true
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

// add implements `+`: string+string concatenates, number+number adds (spec
// §4.4 "Numeric semantics").
func add(a, b any) (any, error) {
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return as + bs, nil
	}
	if isNumber(a) && isNumber(b) {
		return numericBinOp(a, b, func(x, y float64) float64 { return x + y }, func(x, y int64) int64 { return x + y })
	}
	return nil, errors.NewTypeError("unsupported operand types for +: %T and %T", a, b)
}

func sub(a, b any) (any, error) {
	if !isNumber(a) || !isNumber(b) {
		return nil, errors.NewTypeError("unsupported operand types for -: %T and %T", a, b)
	}
	return numericBinOp(a, b, func(x, y float64) float64 { return x - y }, func(x, y int64) int64 { return x - y })
}

func mul(a, b any) (any, error) {
	if !isNumber(a) || !isNumber(b) {
		return nil, errors.NewTypeError("unsupported operand types for *: %T and %T", a, b)
	}
	return numericBinOp(a, b, func(x, y float64) float64 { return x * y }, func(x, y int64) int64 { return x * y })
}

func div(a, b any) (any, error) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return nil, errors.NewTypeError("unsupported operand types for /: %T and %T", a, b)
	}
	if bf == 0 {
		return nil, errors.NewRuntimeError(fmt.Errorf("division by zero"))
	}
	return af / bf, nil
}

func floorDiv(a, b any) (any, error) {
	ai, aIsInt := a.(int64)
	bi, bIsInt := b.(int64)
	if aIsInt && bIsInt {
		if bi == 0 {
			return nil, errors.NewRuntimeError(fmt.Errorf("division by zero"))
		}
		q := ai / bi
		if (ai%bi != 0) && ((ai < 0) != (bi < 0)) {
			q--
		}
		return q, nil
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return nil, errors.NewTypeError("unsupported operand types for //: %T and %T", a, b)
	}
	if bf == 0 {
		return nil, errors.NewRuntimeError(fmt.Errorf("division by zero"))
	}
	return math.Floor(af / bf), nil
}

func mod(a, b any) (any, error) {
	ai, aIsInt := a.(int64)
	bi, bIsInt := b.(int64)
	if aIsInt && bIsInt {
		if bi == 0 {
			return nil, errors.NewRuntimeError(fmt.Errorf("modulo by zero"))
		}
		return ai % bi, nil
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return nil, errors.NewTypeError("unsupported operand types for %%: %T and %T", a, b)
	}
	return math.Mod(af, bf), nil
}

func pow(a, b any) (any, error) {
	ai, aIsInt := a.(int64)
	bi, bIsInt := b.(int64)
	if aIsInt && bIsInt && bi >= 0 {
		return int64(math.Round(math.Pow(float64(ai), float64(bi)))), nil
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return nil, errors.NewTypeError("unsupported operand types for **: %T and %T", a, b)
	}
	return math.Pow(af, bf), nil
}

func numericBinOp(a, b any, ffn func(x, y float64) float64, ifn func(x, y int64) int64) (any, error) {
	ai, aIsInt := a.(int64)
	bi, bIsInt := b.(int64)
	if aIsInt && bIsInt {
		return ifn(ai, bi), nil
	}
	af, _ := toFloat(a)
	bf, _ := toFloat(b)
	return ffn(af, bf), nil
}

func negate(a any) (any, error) {
	switch t := a.(type) {
	case int64:
		return -t, nil
	case float64:
		return -t, nil
	}
	return nil, errors.NewTypeError("bad operand type for unary -: %T", a)
}

// compare implements the ordering half of spec §4.4's comparison chains
// (<, <=, >, >=); == and != are handled separately by valuesEqual since they
// apply to any type, not just orderable ones.
func compare(a, b any) (int, error) {
	if isNumber(a) && isNumber(b) {
		af, _ := toFloat(a)
		bf, _ := toFloat(b)
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return strings.Compare(as, bs), nil
	}
	return 0, errors.NewTypeError("unorderable types: %T and %T", a, b)
}

// valuesEqual implements == / != across any pair of awaited values,
// normalizing numeric types so 3 == 3.0.
func valuesEqual(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		af, _ := toFloat(a)
		bf, _ := toFloat(b)
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

// membership implements spec §4.4's `in` operator: structural equality for
// arrays, substring for strings, key membership for mappings.
func membership(item, seq any) (bool, error) {
	switch s := seq.(type) {
	case []any:
		for _, el := range s {
			if valuesEqual(item, el) {
				return true, nil
			}
		}
		return false, nil
	case string:
		needle, ok := item.(string)
		if !ok {
			return false, errors.NewTypeError("'in' on a string requires a string operand, got %T", item)
		}
		return strings.Contains(s, needle), nil
	case map[string]any:
		key, ok := item.(string)
		if !ok {
			return false, errors.NewTypeError("'in' on a mapping requires a string key, got %T", item)
		}
		_, ok = s[key]
		return ok, nil
	default:
		return false, errors.NewTypeError("'in' requires an array, string, or mapping, got %T", seq)
	}
}

// stringify renders any awaited value for template output (spec §4.5
// concatenates flushed text; this is the evaluator's str() used before a
// value reaches the output buffer).
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int64:
		return fmt.Sprintf("%d", t)
	case float64:
		return fmt.Sprintf("%g", t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// sortedKeys returns m's keys in a stable order. Go maps have no intrinsic
// order, so iterating a mapping (`for k, v in seq`) sorts keys alphabetically
// for reproducible output; ordered mappings are out of scope.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
