package rule

import (
	"context"
	"strconv"
	"time"

	"github.com/sinKettu/cruster-audit/internal/audit/auderr"
	"github.com/sinKettu/cruster-audit/internal/audit/capture"
	"github.com/sinKettu/cruster-audit/internal/audit/runctx"
)

// HTTPClient is the external collaborator a Send action dispatches
// mutated requests through. The audit engine never opens a connection
// itself; it is handed a client implementation (see internal/audit/sender)
// so tests can inject a stub.
type HTTPClient interface {
	Do(ctx context.Context, req *capture.Request, timeout time.Duration) (*capture.Response, error)
}

// Send dispatches every request a prior change action produced, up to
// Repeat times each, through an injected HTTPClient.
type Send struct {
	ID           string
	Apply        string // "<change-index>"
	Repeat       int    // 0 means "not set"; defaults to 1
	TimeoutAfter int    // milliseconds; 0 means "no timeout"

	applyCache int
}

// CheckUp resolves Apply to a change-action index.
func (s *Send) CheckUp(changeActionsCount int) error {
	index, err := strconv.Atoi(s.Apply)
	if err != nil {
		return auderr.New("send %q: apply %q is not a numeric change index", s.ID, s.Apply)
	}
	if index < 0 || index >= changeActionsCount {
		return auderr.New("send %q: apply %d is out of bounds, only %d change actions precede it", s.ID, index, changeActionsCount)
	}
	s.applyCache = index
	return nil
}

// Exec dispatches every change entry produced by the change action
// Apply references, Repeat times each, and pushes one SendBatch into
// the context. A request that fails to send (timeout or transport
// error) is recorded with an empty response vector rather than
// aborting the batch; subsequent finds that dereference it see an
// empty Several.
func (s *Send) Exec(ctx context.Context, rctx runctx.WithSendAction, changeResults []runctx.ChangeBatch, client HTTPClient) error {
	if s.applyCache >= len(changeResults) {
		return auderr.New("send %q: referenced change action has not produced a result yet", s.ID)
	}
	entries := changeResults[s.applyCache]

	repeat := s.Repeat
	if repeat <= 0 {
		repeat = 1
	}
	timeout := time.Duration(s.TimeoutAfter) * time.Millisecond

	batch := make(runctx.SendBatch, 0, len(entries))
	for _, entry := range entries {
		responses := make([]*capture.Response, 0, repeat)
		for i := 0; i < repeat; i++ {
			resp, err := client.Do(ctx, entry.MutatedRequest, timeout)
			if err != nil {
				continue
			}
			responses = append(responses, resp)
		}

		batch = append(batch, runctx.SendEntry{
			Label: s.ID,
			Result: runctx.SingleSendResult{
				RequestSent:       entry.MutatedRequest,
				Coordinate:        entry.Coordinate,
				ResponsesReceived: responses,
			},
		})
	}

	rctx.AddSendResult(batch)
	return nil
}
