package audit_test

import (
	"context"
	"time"

	"github.com/sinKettu/cruster-audit/internal/audit/capture"
)

// stubClient is an injected rule.HTTPClient that returns a fixed
// response regardless of what request it is asked to send, so a
// send action's outcome is deterministic in these specs.
type stubClient struct {
	status int
	body   string
}

func (s *stubClient) Do(ctx context.Context, req *capture.Request, timeout time.Duration) (*capture.Response, error) {
	var headers capture.Headers
	headers.Add("Content-Type", "text/plain")
	return &capture.Response{
		Version: "HTTP/1.1",
		Status:  s.status,
		Headers: headers,
		Body:    []byte(s.body),
	}, nil
}

func newPair(index int, reqPath string, reqBody string, respStatus int, respBody string) *capture.Pair {
	var reqHeaders capture.Headers
	reqHeaders.Add("Host", "target.internal")
	reqHeaders.Add("Content-Type", "text/html")

	var respHeaders capture.Headers
	respHeaders.Add("content-type", "text/html")

	return &capture.Pair{
		Index: index,
		Request: &capture.Request{
			Method:  "GET",
			Path:    reqPath,
			Version: "HTTP/1.1",
			Headers: reqHeaders,
			Body:    []byte(reqBody),
		},
		Response: &capture.Response{
			Version: "HTTP/1.1",
			Status:  respStatus,
			Headers: respHeaders,
			Body:    []byte(respBody),
		},
	}
}
