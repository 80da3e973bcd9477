package expr

import (
	"strconv"

	"github.com/sinKettu/cruster-audit/internal/audit/auderr"
)

// RawArg is the on-disk representation of an expression argument: a
// declared type plus a raw string value. Check-up rewrites it into a
// typed Value cached alongside the raw form; the raw string is kept
// only so error messages can still name the offending argument.
type RawArg struct {
	DeclaredType string // "string", "int", "bool", "reference", "variable"
	RawValue     string

	cache *Value
}

// NewRawArg constructs a RawArg prior to check-up.
func NewRawArg(declaredType, rawValue string) RawArg {
	return RawArg{DeclaredType: declaredType, RawValue: rawValue}
}

// Cached returns the checked-up Value. Panics if called before CheckUp:
// every argument's cache is populated once a rule passes check-up, and
// execution never runs against a rule that hasn't.
func (a *RawArg) Cached() Value {
	if a.cache == nil {
		panic("expr: RawArg accessed before check-up")
	}
	return *a.cache
}

// CheckUp resolves the raw declared type/value into a typed Value.
// priorOps maps the names of expressions already declared earlier in
// the same find.exec to their inferred output kind, used to resolve
// "variable" arguments.
func (a *RawArg) CheckUp(sendIDs map[string]int, sendActionsCount int, priorOps map[string]Kind) error {
	switch a.DeclaredType {
	case "string":
		v := String(a.RawValue)
		a.cache = &v

	case "int":
		n, err := strconv.ParseInt(a.RawValue, 10, 64)
		if err != nil {
			return auderr.New("could not parse %q as int", a.RawValue)
		}
		v := Integer(n)
		a.cache = &v

	case "bool":
		b, err := strconv.ParseBool(a.RawValue)
		if err != nil {
			return auderr.New("could not parse %q as bool", a.RawValue)
		}
		v := Boolean(b)
		a.cache = &v

	case "reference":
		ref, err := ParseReference(a.RawValue, sendIDs, sendActionsCount)
		if err != nil {
			return err
		}
		v := RefOf(ref)
		a.cache = &v

	case "variable":
		kind, ok := priorOps[a.RawValue]
		if !ok {
			return auderr.New("variable %q refers to an expression that has not been declared yet", a.RawValue)
		}
		v := VariableOf(a.RawValue, kind)
		a.cache = &v

	default:
		return auderr.New("unknown argument type %q", a.DeclaredType)
	}

	return nil
}
