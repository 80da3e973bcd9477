package expr

import (
	"regexp"
	"strings"

	"github.com/sinKettu/cruster-audit/internal/audit/auderr"
)

// Op is one of the fixed operations a find.exec expression can invoke.
type Op int

const (
	OpLen Op = iota
	OpEqual
	OpGreater
	OpGreaterOrEqual
	OpLess
	OpLessOrEqual
	OpReMatch
)

func (o Op) String() string {
	switch o {
	case OpLen:
		return "len"
	case OpEqual:
		return "equal"
	case OpGreater:
		return "greater"
	case OpGreaterOrEqual:
		return "greater_or_equal"
	case OpLess:
		return "less"
	case OpLessOrEqual:
		return "less_or_equal"
	case OpReMatch:
		return "rematch"
	default:
		return "unknown"
	}
}

// aliases maps every accepted spelling (already lowercased and
// underscore-stripped) to its canonical operation. "<=>" is kept mapped
// to GreaterOrEqual even though it reads like a typo for "<=" — this
// mirrors a long-standing quirk of existing rule files and is preserved
// for compatibility rather than silently "fixed".
var aliases = map[string]Op{
	"len": OpLen,

	"equal": OpEqual,
	"=":     OpEqual,

	"greater": OpGreater,
	">":       OpGreater,

	"greaterorequal": OpGreaterOrEqual,
	">=":             OpGreaterOrEqual,

	"less": OpLess,
	"<":    OpLess,

	"lessorequal": OpLessOrEqual,
	"<=":          OpLessOrEqual,
	"<=>":         OpGreaterOrEqual, // quirk: kept on purpose, see above

	"rematch": OpReMatch,
	"~":       OpReMatch,
}

// ResolveOp looks up an operation name case-insensitively with
// underscores stripped.
func ResolveOp(name string) (Op, bool) {
	key := strings.ToLower(strings.ReplaceAll(name, "_", ""))
	op, ok := aliases[key]
	return op, ok
}

// CheckArgs validates arity and argument types for an operation at
// check-up time, before any traffic runs.
func CheckArgs(op Op, args []RawArg) error {
	switch op {
	case OpLen:
		if len(args) != 1 {
			return auderr.New("len takes exactly 1 argument, got %d", len(args))
		}
		k := args[0].Cached().Kind
		if !isStringish(k) {
			return auderr.New("len expects a string-like argument, got %s", k)
		}

	case OpEqual:
		if len(args) < 2 {
			return auderr.New("equal takes at least 2 arguments, got %d", len(args))
		}
		if err := requireUniformType(args); err != nil {
			return err
		}

	case OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual:
		if len(args) != 2 {
			return auderr.New("%s takes exactly 2 arguments, got %d", op, len(args))
		}
		for i, a := range args {
			if !isNumeric(a.Cached().Kind) {
				return auderr.New("%s expects numeric arguments, argument %d is %s", op, i, a.Cached().Kind)
			}
		}

	case OpReMatch:
		if len(args) != 2 {
			return auderr.New("rematch takes exactly 2 arguments, got %d", len(args))
		}
		if !isStringish(args[0].Cached().Kind) {
			return auderr.New("rematch expects a string-like value as its first argument")
		}
		if args[1].Cached().Kind != KindString {
			return auderr.New("rematch expects a literal string pattern as its second argument")
		}

	default:
		return auderr.New("unknown operation")
	}

	return nil
}

func isStringish(k Kind) bool {
	return k == KindString || k == KindSeveral || k == KindReference || k == KindVariable
}

func isNumeric(k Kind) bool {
	return k == KindInteger || k == KindSeveral || k == KindReference || k == KindVariable
}

func requireUniformType(args []RawArg) error {
	seenFirst := false
	var first Kind
	for i, a := range args {
		k := a.Cached().Kind
		if k == KindReference || k == KindVariable || k == KindSeveral {
			continue // resolved only at execution time, or inherently polymorphic
		}
		if !seenFirst {
			first = k
			seenFirst = true
		} else if k != first {
			return auderr.New("equal expects arguments of a uniform type, argument %d is %s but a prior argument is %s", i, k, first)
		}
	}
	return nil
}

// Exec evaluates an operation as a pure function over already-
// dereferenced Values. compiledPattern is an optional precompiled
// regexp for OpReMatch, supplied by the caller when the pattern
// argument was a literal string known at check-up time; if nil, the
// pattern is compiled for this call.
func Exec(op Op, args []Value, compiledPattern *regexp.Regexp) (Value, error) {
	switch op {
	case OpLen:
		return elementwise1(args[0], func(v Value) (Value, error) {
			if v.Kind != KindString {
				return Value{}, auderr.New("len expects a string-like value at runtime, got %s", v.Kind)
			}
			return Integer(int64(len(v.Str))), nil
		})

	case OpEqual:
		return execEqual(args)

	case OpGreater:
		return elementwise2(args[0], args[1], func(a, b Value) (Value, error) {
			ai, bi, err := bothInts(op, a, b)
			if err != nil {
				return Value{}, err
			}
			return Boolean(ai > bi), nil
		})

	case OpGreaterOrEqual:
		return elementwise2(args[0], args[1], func(a, b Value) (Value, error) {
			ai, bi, err := bothInts(op, a, b)
			if err != nil {
				return Value{}, err
			}
			return Boolean(ai >= bi), nil
		})

	case OpLess:
		return elementwise2(args[0], args[1], func(a, b Value) (Value, error) {
			ai, bi, err := bothInts(op, a, b)
			if err != nil {
				return Value{}, err
			}
			return Boolean(ai < bi), nil
		})

	case OpLessOrEqual:
		return elementwise2(args[0], args[1], func(a, b Value) (Value, error) {
			ai, bi, err := bothInts(op, a, b)
			if err != nil {
				return Value{}, err
			}
			return Boolean(ai <= bi), nil
		})

	case OpReMatch:
		return execReMatch(args[0], args[1], compiledPattern)

	default:
		return Value{}, auderr.New("unknown operation")
	}
}

func bothInts(op Op, a, b Value) (int64, int64, error) {
	if a.Kind != KindInteger || b.Kind != KindInteger {
		return 0, 0, auderr.New("%s expects numeric values at runtime, got %s and %s", op, a.Kind, b.Kind)
	}
	return a.Int, b.Int, nil
}

func execEqual(args []Value) (Value, error) {
	// Several-aware equality: if any argument is Several, compare
	// element-wise against the rest (which must themselves be scalar or
	// a Several of the same length).
	var several []Value
	length := -1
	for _, a := range args {
		if a.Kind == KindSeveral {
			if length == -1 {
				length = len(a.Several)
			} else if length != len(a.Several) {
				return Value{}, auderr.New("equal received Several values of mismatched length")
			}
		}
	}
	if length == -1 {
		return Boolean(allEqual(args)), nil
	}

	several = make([]Value, length)
	for i := 0; i < length; i++ {
		elems := make([]Value, len(args))
		for j, a := range args {
			if a.Kind == KindSeveral {
				elems[j] = a.Several[i]
			} else {
				elems[j] = a
			}
		}
		several[i] = Boolean(allEqual(elems))
	}
	return SeveralOf(several), nil
}

func allEqual(vs []Value) bool {
	for i := 1; i < len(vs); i++ {
		if !valueEqual(vs[0], vs[i]) {
			return false
		}
	}
	return true
}

func valueEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindString:
		return a.Str == b.Str
	case KindInteger:
		return a.Int == b.Int
	case KindBoolean:
		return a.Bln == b.Bln
	default:
		return false
	}
}

func execReMatch(value, pattern Value, compiled *regexp.Regexp) (Value, error) {
	re := compiled
	if re == nil {
		var err error
		re, err = regexp.Compile(pattern.Str)
		if err != nil {
			return Value{}, auderr.New("invalid regular expression %q: %s", pattern.Str, err)
		}
	}
	return elementwise1(value, func(v Value) (Value, error) {
		if v.Kind != KindString {
			return Value{}, auderr.New("rematch expects a string-like value at runtime, got %s", v.Kind)
		}
		return Boolean(re.MatchString(v.Str)), nil
	})
}

// elementwise1 applies f to a scalar Value, or to every element of a
// Several, re-wrapping the results.
func elementwise1(v Value, f func(Value) (Value, error)) (Value, error) {
	if v.Kind != KindSeveral {
		return f(v)
	}
	out := make([]Value, len(v.Several))
	for i, e := range v.Several {
		r, err := f(e)
		if err != nil {
			return Value{}, err
		}
		out[i] = r
	}
	return SeveralOf(out), nil
}

// elementwise2 applies f to a pair of scalars, broadcasting a scalar
// against a Several, or zipping two Severals of equal length.
func elementwise2(a, b Value, f func(a, b Value) (Value, error)) (Value, error) {
	if a.Kind != KindSeveral && b.Kind != KindSeveral {
		return f(a, b)
	}

	switch {
	case a.Kind == KindSeveral && b.Kind == KindSeveral:
		if len(a.Several) != len(b.Several) {
			return Value{}, auderr.New("operation received Several values of mismatched length")
		}
		out := make([]Value, len(a.Several))
		for i := range a.Several {
			r, err := f(a.Several[i], b.Several[i])
			if err != nil {
				return Value{}, err
			}
			out[i] = r
		}
		return SeveralOf(out), nil

	case a.Kind == KindSeveral:
		out := make([]Value, len(a.Several))
		for i, e := range a.Several {
			r, err := f(e, b)
			if err != nil {
				return Value{}, err
			}
			out[i] = r
		}
		return SeveralOf(out), nil

	default: // b.Kind == KindSeveral
		out := make([]Value, len(b.Several))
		for i, e := range b.Several {
			r, err := f(a, e)
			if err != nil {
				return Value{}, err
			}
			out[i] = r
		}
		return SeveralOf(out), nil
	}
}
