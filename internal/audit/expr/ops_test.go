package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOpAliases(t *testing.T) {
	cases := map[string]Op{
		"len":             OpLen,
		"equal":           OpEqual,
		"=":               OpEqual,
		"greater":         OpGreater,
		">":               OpGreater,
		"greater_or_equal": OpGreaterOrEqual,
		">=":              OpGreaterOrEqual,
		"less":            OpLess,
		"<":               OpLess,
		"less_or_equal":   OpLessOrEqual,
		"<=":              OpLessOrEqual,
		"<=>":             OpGreaterOrEqual,
		"rematch":         OpReMatch,
		"~":               OpReMatch,
	}
	for alias, want := range cases {
		got, ok := ResolveOp(alias)
		require.True(t, ok, "alias %q should resolve", alias)
		assert.Equal(t, want, got, "alias %q", alias)
	}
}

func TestResolveOpUnknown(t *testing.T) {
	_, ok := ResolveOp("frobnicate")
	assert.False(t, ok)
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "len", OpLen.String())
	assert.Equal(t, "greater_or_equal", OpGreaterOrEqual.String())
	assert.Equal(t, "unknown", Op(99).String())
}

func TestExecLen(t *testing.T) {
	v, err := Exec(OpLen, []Value{String("hello")}, nil)
	require.NoError(t, err)
	assert.Equal(t, Integer(5), v)
}

func TestExecLenElementwiseOverSeveral(t *testing.T) {
	v, err := Exec(OpLen, []Value{SeveralOf([]Value{String("a"), String("bb")})}, nil)
	require.NoError(t, err)
	require.Equal(t, KindSeveral, v.Kind)
	assert.Equal(t, []Value{Integer(1), Integer(2)}, v.Several)
}

func TestExecGreater(t *testing.T) {
	v, err := Exec(OpGreater, []Value{Integer(5), Integer(3)}, nil)
	require.NoError(t, err)
	assert.Equal(t, Boolean(true), v)

	v, err = Exec(OpGreater, []Value{Integer(1), Integer(3)}, nil)
	require.NoError(t, err)
	assert.Equal(t, Boolean(false), v)
}

func TestExecGreaterRejectsNonInteger(t *testing.T) {
	_, err := Exec(OpGreater, []Value{String("a"), Integer(1)}, nil)
	assert.Error(t, err)
}

func TestExecEqualScalars(t *testing.T) {
	v, err := Exec(OpEqual, []Value{String("x"), String("x")}, nil)
	require.NoError(t, err)
	assert.Equal(t, Boolean(true), v)
}

func TestExecEqualBroadcastsOverSeveral(t *testing.T) {
	several := SeveralOf([]Value{Integer(500), Integer(200)})
	v, err := Exec(OpEqual, []Value{several, Integer(500)}, nil)
	require.NoError(t, err)
	require.Equal(t, KindSeveral, v.Kind)
	assert.Equal(t, []Value{Boolean(true), Boolean(false)}, v.Several)
}

func TestExecEqualMismatchedSeveralLengths(t *testing.T) {
	a := SeveralOf([]Value{Integer(1), Integer(2)})
	b := SeveralOf([]Value{Integer(1)})
	_, err := Exec(OpEqual, []Value{a, b}, nil)
	assert.Error(t, err)
}

func TestExecReMatch(t *testing.T) {
	v, err := Exec(OpReMatch, []Value{String("token=abc"), String(`token=\w+`)}, nil)
	require.NoError(t, err)
	assert.Equal(t, Boolean(true), v)
}

func TestExecReMatchInvalidPattern(t *testing.T) {
	_, err := Exec(OpReMatch, []Value{String("x"), String("(unclosed")}, nil)
	assert.Error(t, err)
}

func TestCheckArgsLenArity(t *testing.T) {
	one := []RawArg{NewRawArg("string", "a")}
	require.NoError(t, one[0].CheckUp(nil, 0, nil))
	assert.NoError(t, CheckArgs(OpLen, one))

	two := []RawArg{NewRawArg("string", "a"), NewRawArg("string", "b")}
	for i := range two {
		require.NoError(t, two[i].CheckUp(nil, 0, nil))
	}
	assert.Error(t, CheckArgs(OpLen, two))
}

func TestCheckArgsGreaterRequiresNumeric(t *testing.T) {
	args := []RawArg{NewRawArg("string", "a"), NewRawArg("int", "1")}
	for i := range args {
		require.NoError(t, args[i].CheckUp(nil, 0, nil))
	}
	assert.Error(t, CheckArgs(OpGreater, args))
}

func TestCheckArgsEqualRequiresUniformType(t *testing.T) {
	args := []RawArg{NewRawArg("string", "a"), NewRawArg("int", "1")}
	for i := range args {
		require.NoError(t, args[i].CheckUp(nil, 0, nil))
	}
	assert.Error(t, CheckArgs(OpEqual, args))
}

func TestCheckArgsReMatchRequiresLiteralPattern(t *testing.T) {
	args := []RawArg{NewRawArg("string", "a"), NewRawArg("reference", "0.response.body")}
	for i := range args {
		require.NoError(t, args[i].CheckUp(nil, 0, nil))
	}
	assert.Error(t, CheckArgs(OpReMatch, args))
}
