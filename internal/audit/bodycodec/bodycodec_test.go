package bodycodec

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinKettu/cruster-audit/internal/audit/capture"
)

func gzipBytes(t *testing.T, payload string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zstdBytes(t *testing.T, payload string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDecodeIdentityPassesThrough(t *testing.T) {
	body, err := Decode([]byte("plain"), "")
	require.NoError(t, err)
	assert.Equal(t, []byte("plain"), body)
}

func TestDecodeGzip(t *testing.T) {
	compressed := gzipBytes(t, "hello world")
	body, err := Decode(compressed, "gzip")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), body)
}

func TestDecodeZstd(t *testing.T) {
	compressed := zstdBytes(t, "hello world")
	body, err := Decode(compressed, "zstd")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), body)
}

func TestDecodeChainedEncodingsAppliedInReverse(t *testing.T) {
	inner := gzipBytes(t, "hello world")
	outer := zstdBytes(t, string(inner))

	body, err := Decode(outer, "gzip, zstd")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), body)
}

func TestDecodeUnknownEncodingPassesThroughUnchanged(t *testing.T) {
	body, err := Decode([]byte("raw"), "br")
	require.NoError(t, err)
	assert.Equal(t, []byte("raw"), body)
}

func TestDecodeInvalidGzipReturnsError(t *testing.T) {
	_, err := Decode([]byte("not gzip"), "gzip")
	assert.Error(t, err)
}

func TestDecodeResponseDecompressesBody(t *testing.T) {
	var headers capture.Headers
	headers.Add("Content-Encoding", "gzip")
	resp := &capture.Response{Status: 200, Headers: headers, Body: gzipBytes(t, "decoded")}

	decoded := DecodeResponse(resp)
	assert.Equal(t, []byte("decoded"), decoded.Body)
	assert.Equal(t, gzipBytes(t, "decoded"), resp.Body, "the original response is left untouched")
}

func TestDecodeResponseNoEncodingReturnsSameResponse(t *testing.T) {
	resp := &capture.Response{Status: 200, Body: []byte("plain")}
	assert.Same(t, resp, DecodeResponse(resp))
}

func TestDecodeResponseNilIsNil(t *testing.T) {
	assert.Nil(t, DecodeResponse(nil))
}

func TestDecodeResponseMalformedEncodingReturnsOriginal(t *testing.T) {
	var headers capture.Headers
	headers.Add("Content-Encoding", "gzip")
	resp := &capture.Response{Status: 200, Headers: headers, Body: []byte("not actually gzip")}

	decoded := DecodeResponse(resp)
	assert.Equal(t, resp.Body, decoded.Body)
}
