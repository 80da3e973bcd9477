package runctx

import (
	"github.com/sinKettu/cruster-audit/internal/audit/auderr"
	"github.com/sinKettu/cruster-audit/internal/audit/capture"
	"github.com/sinKettu/cruster-audit/internal/audit/expr"
)

// Deref resolves a Reference against this context's send results,
// producing the expr.Value a find expression's argument dereferences
// to. Request-side parts read the request actually sent in each batch
// entry; response-side parts read every response received for each
// entry (more than one only when the send action's repeat > 1). A
// batch with more than one resulting value yields a Several across
// them; exactly one value yields the bare value so find expressions
// written against an unrepeated send don't need to unwrap a
// one-element Several.
func (c *Context) Deref(ref expr.Reference) (expr.Value, error) {
	if ref.SendIndex < 0 || ref.SendIndex >= len(c.sendResults) {
		return expr.Value{}, auderr.New("send index %d is out of bounds", ref.SendIndex)
	}
	batch := c.sendResults[ref.SendIndex]

	if ref.Pair == expr.PartRequest {
		vals := make([]expr.Value, 0, len(batch))
		for _, entry := range batch {
			v, err := requestPart(ref, entry.Result.RequestSent)
			if err != nil {
				return expr.Value{}, err
			}
			vals = append(vals, v)
		}
		return collapse(vals), nil
	}

	var vals []expr.Value
	for _, entry := range batch {
		for _, resp := range entry.Result.ResponsesReceived {
			v, err := responsePart(ref, resp)
			if err != nil {
				return expr.Value{}, err
			}
			vals = append(vals, v)
		}
	}
	return collapse(vals), nil
}

func requestPart(ref expr.Reference, req *capture.Request) (expr.Value, error) {
	if req == nil {
		return expr.Value{}, auderr.New("reference addresses a request that was never sent")
	}
	switch ref.Part {
	case expr.MsgMethod:
		return expr.String(req.Method), nil
	case expr.MsgPath:
		return expr.String(req.Path), nil
	case expr.MsgVersion:
		return expr.String(req.Version), nil
	case expr.MsgBody:
		return expr.String(string(req.Body)), nil
	case expr.MsgHeader:
		return headerValue(req.Headers.Values(ref.HeaderName)), nil
	default:
		return expr.Value{}, auderr.New("reference addresses status on a request")
	}
}

func responsePart(ref expr.Reference, resp *capture.Response) (expr.Value, error) {
	if resp == nil {
		// IOFailure recorded an empty response vector upstream; a live
		// reference into it sees an empty Several rather than failing
		// here, so a missing response never reaches this point.
		return expr.Value{}, auderr.New("reference addresses a response that was never received")
	}
	switch ref.Part {
	case expr.MsgVersion:
		return expr.String(resp.Version), nil
	case expr.MsgStatus:
		return expr.Integer(int64(resp.Status)), nil
	case expr.MsgBody:
		return expr.String(string(resp.Body)), nil
	case expr.MsgHeader:
		return headerValue(resp.Headers.Values(ref.HeaderName)), nil
	default:
		return expr.Value{}, auderr.New("reference addresses method/path on a response")
	}
}

// headerValue turns the (possibly empty) set of values for one header
// name into the Value a reference dereferences to: a single String
// when there is exactly one match, Several otherwise — including the
// empty Several for no match at all.
func headerValue(values []string) expr.Value {
	if len(values) == 1 {
		return expr.String(values[0])
	}
	out := make([]expr.Value, len(values))
	for i, v := range values {
		out[i] = expr.String(v)
	}
	return expr.SeveralOf(out)
}

func collapse(vals []expr.Value) expr.Value {
	if len(vals) == 1 {
		return vals[0]
	}
	return expr.SeveralOf(vals)
}

