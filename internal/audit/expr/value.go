// Package expr implements the typed expression AST used by find.exec:
// argument values, the fixed operation table, and the reference grammar
// that points into captured traffic.
package expr

// Kind tags the dynamic type of a Value.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindBoolean
	KindReference
	KindVariable
	KindSeveral
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "int"
	case KindBoolean:
		return "bool"
	case KindReference:
		return "reference"
	case KindVariable:
		return "variable"
	case KindSeveral:
		return "several"
	default:
		return "unknown"
	}
}

// PairPart selects which half of a captured pair a Reference addresses.
type PairPart int

const (
	PartRequest PairPart = iota
	PartResponse
)

// MessagePart selects which field of a request/response a Reference
// addresses.
type MessagePart int

const (
	MsgMethod MessagePart = iota
	MsgPath
	MsgVersion
	MsgStatus
	MsgBody
	MsgHeader
)

// Reference is a typed pointer into captured traffic:
// (send_index, side, part[, header]).
type Reference struct {
	SendIndex   int
	Pair        PairPart
	Part        MessagePart
	HeaderName  string // only meaningful when Part == MsgHeader
}

// Value is the tagged union the mini-language operates over. Only one of
// the typed fields is meaningful, selected by Kind.
type Value struct {
	Kind Kind

	Str string
	Int int64
	Bln bool

	Ref Reference

	VarName string
	VarKind Kind // type inferred from the referenced expression's output

	Several []Value
}

// String builds a String value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Integer builds an Integer value.
func Integer(i int64) Value { return Value{Kind: KindInteger, Int: i} }

// Boolean builds a Boolean value.
func Boolean(b bool) Value { return Value{Kind: KindBoolean, Bln: b} }

// SeveralOf builds a Several value carrying a sequence of prior results.
func SeveralOf(vs []Value) Value { return Value{Kind: KindSeveral, Several: vs} }

// RefOf builds an unresolved Reference value, as cached by check-up.
func RefOf(ref Reference) Value { return Value{Kind: KindReference, Ref: ref} }

// VariableOf builds an unresolved Variable value, as cached by check-up.
func VariableOf(name string, inferred Kind) Value {
	return Value{Kind: KindVariable, VarName: name, VarKind: inferred}
}

// AsBool reports the boolean carried by a Boolean value. Used when
// reducing a Several([Boolean,...]) with look_for=any/all: each element
// is expected to already be Boolean by construction.
func (v Value) AsBool() bool {
	return v.Kind == KindBoolean && v.Bln
}
