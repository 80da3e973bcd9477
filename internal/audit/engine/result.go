// Package engine drives one validated Rule against one captured Pair:
// it sequences watch, change, send, find, and get actions in
// declaration order, threading a runctx.Context between them, and
// produces the aggregated RuleResult a consumer sees.
package engine

// Evidence is one get action's contribution to a RuleResult, carrying
// enough provenance to trace it back to the rule that produced it.
type Evidence struct {
	FindID      int
	SendID      int
	ExtractMode string
	Bytes       []byte
}

// RuleResult is the per-(rule, pair) output: the rule id, the audit
// trail id of this particular run, whether any find action succeeded,
// and the evidence extracted by every get action that fired.
type RuleResult struct {
	RuleID        string
	RunID         string
	PairIndex     int
	FoundAnything bool
	Evidence      []Evidence
}
