package capture

import (
	"strconv"
	"strings"
)

// Coordinate addresses a substring within the textual form of a message.
// Line 0 is the start-line; lines 1..H are header lines (one per
// header); lines H+1.. are body lines split on LF. A (Line, 0, 0)
// coordinate means "the whole line".
//
// A captured Pair never changes size across a rule's actions, so
// coordinates recorded by watch stay valid for change to consume later.
type Coordinate struct {
	Line  int
	Start int
	End   int
}

// Lines renders a Request into the line-addressable form watch/change
// operate over: line 0 is the start-line, 1..H are header lines, H+1..
// are body lines.
func (r *Request) Lines() []string {
	lines := make([]string, 0, 2+r.Headers.Len())
	lines = append(lines, r.Method+" "+r.Path+" "+r.Version)
	for _, h := range r.Headers.All() {
		lines = append(lines, h.Name+": "+h.Value)
	}
	lines = append(lines, strings.Split(string(r.Body), "\n")...)
	return lines
}

// Lines renders a Response the same way Request.Lines does.
func (resp *Response) Lines() []string {
	lines := make([]string, 0, 2+resp.Headers.Len())
	lines = append(lines, resp.Version+" "+strconv.Itoa(resp.Status))
	for _, h := range resp.Headers.All() {
		lines = append(lines, h.Name+": "+h.Value)
	}
	lines = append(lines, strings.Split(string(resp.Body), "\n")...)
	return lines
}

// Substring extracts the text a Coordinate addresses from a rendered
// line set. (line, 0, 0) returns the whole line.
func Substring(lines []string, c Coordinate) string {
	if c.Line < 0 || c.Line >= len(lines) {
		return ""
	}
	line := lines[c.Line]
	if c.Start == 0 && c.End == 0 {
		return line
	}
	if c.Start < 0 || c.End > len(line) || c.Start > c.End {
		return ""
	}
	return line[c.Start:c.End]
}
