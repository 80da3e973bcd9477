// Package runctx holds the per-(rule, pair) execution context: the
// growable result vectors each action phase writes into and reads from,
// exposed through small capability interfaces so the driver only hands
// an action the facet it needs.
package runctx

import (
	"github.com/sinKettu/cruster-audit/internal/audit/capture"
)

// initialPairSentinel is the key under which the untouched captured
// pair is recorded as send result index 0, so a find expression can
// reference "0.response.body" the same way it references the result of
// any later send action.
const initialPairSentinel = "__VERY_INITIAL_PAIR__"

// WatchCapture is one captured group a watch action found: its
// coordinate and, when the pattern names its groups, the group name
// change can use to restrict which capture it rewrites.
type WatchCapture struct {
	Coordinate capture.Coordinate
	GroupName  string
}

// WatchHit is one watch action's result: every captured group found in
// the scanned part, in match order. An empty slice means the pattern
// did not match.
type WatchHit []WatchCapture

// ChangeEntry is one (watch-hit × payload) pairing produced by a change
// action: the mutated request and the coordinate that was rewritten to
// produce it.
type ChangeEntry struct {
	MutatedRequest *capture.Request
	Coordinate     capture.Coordinate
}

// ChangeBatch is one change action's full result: every entry it
// produced, in generation order. It may be empty when the watch action
// it was built from found nothing to change.
type ChangeBatch []ChangeEntry

// SingleSendResult is one dispatch of a mutated request: the request
// actually sent, the coordinate it was built from, and every response
// received (more than one only when repeat > 1).
type SingleSendResult struct {
	RequestSent       *capture.Request
	Coordinate        capture.Coordinate
	ResponsesReceived []*capture.Response
}

// SendEntry is one labeled dispatch within a SendBatch. The label is the
// dispatching send action's ID, or the initial-pair sentinel key for
// storage index 0, so the sentinel shares the shape of a real dispatch.
type SendEntry struct {
	Label  string
	Result SingleSendResult
}

// SendBatch is one send action's full result: one SendEntry per change
// entry it dispatched, in dispatch order.
type SendBatch []SendEntry

// GetResult is one get action's output: the extracted bytes, or nil
// when its gating find did not succeed.
type GetResult struct {
	Bytes []byte
	Found bool
}

// Context is the mutable state threaded through one rule's execution
// against one captured pair. It owns append-only result vectors; the
// capability interfaces below expose read/write access scoped to one
// action kind.
type Context struct {
	ruleID string
	pair   *capture.Pair

	watchResults  []WatchHit
	changeResults []ChangeBatch
	sendResults   []SendBatch
	findResults   []bool
	getResults    []GetResult

	watchSucceededForChange bool
}

// New builds a fresh Context for one (rule, pair) execution. The
// initial pair is recorded as send result 0 under the sentinel key so
// references of the form "0.response.*" resolve uniformly whether or
// not any send action has run yet.
func New(ruleID string, pair *capture.Pair) *Context {
	initial := SendBatch{
		{
			Label: initialPairSentinel,
			Result: SingleSendResult{
				RequestSent:       pair.Request,
				Coordinate:        capture.Coordinate{},
				ResponsesReceived: []*capture.Response{pair.Response},
			},
		},
	}

	return &Context{
		ruleID:      ruleID,
		pair:        pair,
		sendResults: []SendBatch{initial},
	}
}

// RuleID reports the id of the rule this context is executing.
func (c *Context) RuleID() string { return c.ruleID }

// Pair returns the captured pair this context was built over.
func (c *Context) Pair() *capture.Pair { return c.pair }

// WithWatchAction is implemented by Context to accumulate watch results.
type WithWatchAction interface {
	AddWatchResult(WatchHit)
	WatchResults() []WatchHit
}

func (c *Context) AddWatchResult(h WatchHit)  { c.watchResults = append(c.watchResults, h) }
func (c *Context) WatchResults() []WatchHit   { return c.watchResults }

// WithChangeAction is implemented by Context to accumulate change
// results and track whether any watch hit actually produced a change.
// One AddChangeBatch call corresponds to one change action's full
// execution, so ChangeResults()[i] is always that change action's
// batch — including an empty one when its watch found nothing — which
// keeps its index stable for a later send action's apply reference.
type WithChangeAction interface {
	AddChangeBatch(ChangeBatch)
	ChangeResults() []ChangeBatch
	FoundAnythingToChange() bool
}

func (c *Context) AddChangeBatch(b ChangeBatch) {
	if len(b) > 0 {
		c.watchSucceededForChange = true
	}
	c.changeResults = append(c.changeResults, b)
}
func (c *Context) ChangeResults() []ChangeBatch { return c.changeResults }
func (c *Context) FoundAnythingToChange() bool  { return c.watchSucceededForChange }

// WithSendAction is implemented by Context to accumulate send results.
type WithSendAction interface {
	AddSendResult(SendBatch)
	SendResults() []SendBatch
}

func (c *Context) AddSendResult(b SendBatch) { c.sendResults = append(c.sendResults, b) }
func (c *Context) SendResults() []SendBatch  { return c.sendResults }

// WithFindAction is implemented by Context to accumulate find verdicts.
type WithFindAction interface {
	AddFindResult(bool)
	FindResults() []bool
	FoundAnything() bool
}

func (c *Context) AddFindResult(b bool) { c.findResults = append(c.findResults, b) }
func (c *Context) FindResults() []bool  { return c.findResults }
func (c *Context) FoundAnything() bool {
	for _, r := range c.findResults {
		if r {
			return true
		}
	}
	return false
}

// WithGetAction is implemented by Context to accumulate extracted
// evidence and to let a get action consult the find/send results it
// gates on.
type WithGetAction interface {
	FindSucceeded(id int) bool
	SendBatchByID(id int) (SendBatch, bool)
	AddGetResult(GetResult)
	GetResults() []GetResult
}

func (c *Context) FindSucceeded(id int) bool {
	if id < 0 || id >= len(c.findResults) {
		return false
	}
	return c.findResults[id]
}

func (c *Context) SendBatchByID(id int) (SendBatch, bool) {
	if id < 0 || id >= len(c.sendResults) {
		return nil, false
	}
	return c.sendResults[id], true
}

func (c *Context) AddGetResult(r GetResult) { c.getResults = append(c.getResults, r) }
func (c *Context) GetResults() []GetResult  { return c.getResults }
