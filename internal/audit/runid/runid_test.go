package runid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPrefixesWithSlugifiedRuleID(t *testing.T) {
	id := New("Header-Length_Probe")
	assert.True(t, strings.HasPrefix(id, "header-length-probe-"))
}

func TestNewFallsBackToBareUUIDForEmptyRuleID(t *testing.T) {
	id := New("")
	assert.NotContains(t, id, "--")
	assert.Len(t, id, 36) // a bare UUID's canonical string length
}

func TestNewProducesUniqueIDs(t *testing.T) {
	assert.NotEqual(t, New("r1"), New("r1"))
}

func TestNewTruncatesLongRuleIDs(t *testing.T) {
	id := New(strings.Repeat("x", 100))
	slug := strings.SplitN(id, "-", 2)[0]
	assert.LessOrEqual(t, len(slug), MaxRuleIDLength)
}

func TestSlugifyStripsPunctuationAndLowercases(t *testing.T) {
	id := New("Rule!!With@@Symbols")
	assert.True(t, strings.HasPrefix(id, "rulewithsymbols-"))
}
