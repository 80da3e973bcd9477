package ruleload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDocument = `
rules:
  - id: header-length-probe
    actions:
      - kind: watch
        watch:
          id: w0
          part: body
          pattern: "X=(\\w+)"
      - kind: find
        find:
          id: f0
          look_for: any
          exec:
            - name: L
              op: len
              args:
                - {type: reference, value: "0.response.headers.content-type"}
            - name: B
              op: ">"
              args:
                - {type: variable, value: "L"}
                - {type: int, value: "0"}
`

func TestLoadBytesParsesAndChecksUpAValidDocument(t *testing.T) {
	rules, err := LoadBytes([]byte(validDocument))
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "header-length-probe", rules[0].ID)
}

func TestLoadBytesRejectsUnknownFields(t *testing.T) {
	const doc = `
rules:
  - id: r1
    actions:
      - kind: watch
        watch:
          id: w0
          part: body
          pattern: "x"
          unknown_field: surprise
`
	_, err := LoadBytes([]byte(doc))
	assert.Error(t, err)
}

func TestLoadBytesRejectsDuplicateRuleIDs(t *testing.T) {
	const doc = `
rules:
  - id: dup
    actions: []
  - id: dup
    actions: []
`
	_, err := LoadBytes([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoadBytesRejectsMissingRuleID(t *testing.T) {
	const doc = `
rules:
  - actions: []
`
	_, err := LoadBytes([]byte(doc))
	assert.Error(t, err)
}

func TestLoadBytesRejectsUnknownActionKind(t *testing.T) {
	const doc = `
rules:
  - id: r1
    actions:
      - kind: teleport
`
	_, err := LoadBytes([]byte(doc))
	assert.Error(t, err)
}

func TestLoadBytesRejectsActionMissingItsBlock(t *testing.T) {
	const doc = `
rules:
  - id: r1
    actions:
      - kind: watch
`
	_, err := LoadBytes([]byte(doc))
	assert.Error(t, err)
}

func TestLoadBytesPropagatesRuleCheckUpFailures(t *testing.T) {
	const doc = `
rules:
  - id: r1
    actions:
      - kind: find
        find:
          id: f0
          look_for: any
          exec:
            - name: F
              op: "="
              args:
                - {type: reference, value: "1.response.status"}
                - {type: int, value: "500"}
`
	_, err := LoadBytes([]byte(doc))
	assert.Error(t, err, "referencing a send action that was never declared must fail check-up")
}

func TestLoadFileReturnsErrorForMissingFile(t *testing.T) {
	_, err := LoadFile("/nonexistent/path/does-not-exist.yaml")
	assert.Error(t, err)
}
