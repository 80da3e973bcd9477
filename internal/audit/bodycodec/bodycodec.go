// Package bodycodec decompresses a message body by its Content-Encoding
// (gzip or zstd). The send client applies it to every response it
// receives, so find and get match against the payload an operator
// actually sees rather than its wire encoding. The captured pair's own
// bodies are not decoded.
package bodycodec

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/sinKettu/cruster-audit/internal/audit/capture"
)

// Decode returns body decoded according to contentEncoding (the raw
// Content-Encoding header value, comma-separated for chained
// encodings, applied in reverse per RFC 9110 §8.4). An unrecognized
// encoding is passed through unchanged rather than treated as an
// error, since a watch/find pattern that doesn't match garbage bytes
// simply won't fire.
func Decode(body []byte, contentEncoding string) ([]byte, error) {
	if contentEncoding == "" {
		return body, nil
	}

	encodings := strings.Split(contentEncoding, ",")
	decoded := body
	for i := len(encodings) - 1; i >= 0; i-- {
		enc := strings.ToLower(strings.TrimSpace(encodings[i]))
		next, err := decodeOne(decoded, enc)
		if err != nil {
			return nil, fmt.Errorf("decoding %q layer: %w", enc, err)
		}
		decoded = next
	}
	return decoded, nil
}

func decodeOne(body []byte, encoding string) ([]byte, error) {
	switch encoding {
	case "gzip", "x-gzip":
		r, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)

	case "zstd":
		r, err := zstd.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)

	case "identity", "":
		return body, nil

	default:
		return body, nil
	}
}

// DecodeResponse returns a copy of resp with its body decompressed per
// its own Content-Encoding header, leaving resp untouched. A decode
// failure returns the original response unchanged so a malformed
// encoding never aborts an otherwise-valid rule execution; callers
// that need to surface the failure can compare the returned body's
// identity separately.
func DecodeResponse(resp *capture.Response) *capture.Response {
	if resp == nil {
		return nil
	}
	encoding := firstHeader(resp.Headers, "Content-Encoding")
	if encoding == "" {
		return resp
	}

	body, err := Decode(resp.Body, encoding)
	if err != nil {
		return resp
	}

	clone := *resp
	clone.Body = body
	return &clone
}

func firstHeader(h capture.Headers, name string) string {
	values := h.Values(name)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
