package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	cases := []struct {
		kind Kind
		want string
	}{
		{KindString, "string"},
		{KindInteger, "int"},
		{KindBoolean, "bool"},
		{KindReference, "reference"},
		{KindVariable, "variable"},
		{KindSeveral, "several"},
		{Kind(99), "unknown"},
	}
	for _, tt := range cases {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}

func TestValueConstructors(t *testing.T) {
	assert.Equal(t, Value{Kind: KindString, Str: "x"}, String("x"))
	assert.Equal(t, Value{Kind: KindInteger, Int: 7}, Integer(7))
	assert.Equal(t, Value{Kind: KindBoolean, Bln: true}, Boolean(true))

	several := SeveralOf([]Value{Boolean(true), Boolean(false)})
	assert.Equal(t, KindSeveral, several.Kind)
	assert.Len(t, several.Several, 2)

	ref := RefOf(Reference{SendIndex: 1, Pair: PartResponse, Part: MsgStatus})
	assert.Equal(t, KindReference, ref.Kind)
	assert.Equal(t, 1, ref.Ref.SendIndex)

	v := VariableOf("L", KindInteger)
	assert.Equal(t, KindVariable, v.Kind)
	assert.Equal(t, "L", v.VarName)
	assert.Equal(t, KindInteger, v.VarKind)
}

func TestAsBool(t *testing.T) {
	assert.True(t, Boolean(true).AsBool())
	assert.False(t, Boolean(false).AsBool())
	assert.False(t, Integer(1).AsBool(), "a non-Boolean value is never truthy")
}
