package sender

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinKettu/cruster-audit/internal/audit/capture"
)

func TestDoSendsMethodPathHeadersAndBody(t *testing.T) {
	var gotMethod, gotPath, gotHeader string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotHeader = r.Header.Get("X-Probe")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL}, nil)
	require.NoError(t, err)

	var headers capture.Headers
	headers.Add("X-Probe", "value")

	req := &capture.Request{Method: "POST", Path: "/widgets", Headers: headers, Body: []byte("payload")}
	resp, err := client.Do(t.Context(), req, 0)
	require.NoError(t, err)

	assert.Equal(t, "POST", gotMethod)
	assert.Equal(t, "/widgets", gotPath)
	assert.Equal(t, "value", gotHeader)
	assert.Equal(t, []byte("payload"), gotBody)

	assert.Equal(t, 201, resp.Status)
	assert.Equal(t, []byte("created"), resp.Body)
}

func TestDoSurfacesTransportErrorsForUnreachableTarget(t *testing.T) {
	client, err := New(Config{BaseURL: "http://127.0.0.1:1"}, nil)
	require.NoError(t, err)

	req := &capture.Request{Method: "GET", Path: "/"}
	_, err = client.Do(t.Context(), req, 200*time.Millisecond)
	assert.Error(t, err)
}

func TestDoAppliesTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL}, nil)
	require.NoError(t, err)

	req := &capture.Request{Method: "GET", Path: "/"}
	_, err = client.Do(t.Context(), req, 10*time.Millisecond)
	assert.Error(t, err)
}

func TestDoDecodesCompressedResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(http.StatusOK)
		gz := gzip.NewWriter(w)
		gz.Write([]byte("decoded payload"))
		gz.Close()
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL}, nil)
	require.NoError(t, err)

	req := &capture.Request{Method: "GET", Path: "/"}
	resp, err := client.Do(t.Context(), req, 0)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, []byte("decoded payload"), resp.Body)
}
