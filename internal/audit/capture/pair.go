// Package capture holds the immutable request/response pair the audit
// engine operates on. The proxy front end (TLS interception, certificate
// bootstrap) is an external collaborator — this package only describes
// the shape of what it hands to the engine.
package capture

import (
	"encoding/json"
	"strings"
)

// Headers is an ordered, case-insensitive multi-map. Order is preserved
// so that watch/change coordinates line up with the textual rendering of
// a message.
type Headers struct {
	entries []headerEntry
}

type headerEntry struct {
	name  string
	value string
}

// Add appends a header, preserving insertion order and allowing repeats.
func (h *Headers) Add(name, value string) {
	h.entries = append(h.entries, headerEntry{name: name, value: value})
}

// Values returns every value whose name matches case-insensitively, in
// insertion order. Returns nil (not an error) when nothing matches —
// callers that need "Several([])" semantics treat a nil/empty slice as
// an empty Several.
func (h *Headers) Values(name string) []string {
	var out []string
	for _, e := range h.entries {
		if strings.EqualFold(e.name, name) {
			out = append(out, e.value)
		}
	}
	return out
}

// All returns every header in insertion order, one entry per (line).
func (h *Headers) All() []struct{ Name, Value string } {
	out := make([]struct{ Name, Value string }, len(h.entries))
	for i, e := range h.entries {
		out[i] = struct{ Name, Value string }{Name: e.name, Value: e.value}
	}
	return out
}

// Len reports the number of header lines, used to locate body lines in
// the rendered coordinate scheme.
func (h *Headers) Len() int {
	return len(h.entries)
}

// MarshalJSON renders Headers as an ordered list of name/value pairs,
// since a map would lose both the insertion order and repeated names
// that the coordinate scheme depends on.
func (h Headers) MarshalJSON() ([]byte, error) {
	type pair struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	pairs := make([]pair, len(h.entries))
	for i, e := range h.entries {
		pairs[i] = pair{Name: e.name, Value: e.value}
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON restores Headers from the ordered form MarshalJSON
// produces.
func (h *Headers) UnmarshalJSON(data []byte) error {
	var pairs []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	h.entries = h.entries[:0]
	for _, p := range pairs {
		h.Add(p.Name, p.Value)
	}
	return nil
}

// Request is the captured HTTP request half of a Pair.
type Request struct {
	Method  string
	Path    string
	Version string
	Headers Headers
	Body    []byte
}

// Response is the captured HTTP response half of a Pair.
type Response struct {
	Version string
	Status  int
	Headers Headers
	Body    []byte
}

// Pair is an immutable (request, response) captured by the proxy front
// end. Index is a monotonically increasing capture sequence number
// assigned by the proxy, not by the engine.
type Pair struct {
	Index    int
	Request  *Request
	Response *Response
}
