package expr

import (
	"strconv"
	"strings"

	"github.com/sinKettu/cruster-audit/internal/audit/auderr"
)

// ParseReference parses a reference into captured traffic:
//
//	<ref>   ::= <id> "." <side> "." <part> ( "." <header> )?
//	<id>    ::= [0-9]+ | <symbolic-send-id>
//	<side>  ::= "request" | "response"
//	<part>  ::= "method" | "path" | "version" | "body" | "status" | "headers"
//
// sendIDs maps symbolic send ids to their dense integer index; it may be
// nil when a rule declares no symbolic send ids. sendActionsCount bounds
// the resolved index: a reference may only point at a send action
// declared strictly before the referring find.
func ParseReference(raw string, sendIDs map[string]int, sendActionsCount int) (Reference, error) {
	parts := strings.Split(raw, ".")
	if len(parts) < 3 || len(parts) > 4 {
		return Reference{}, auderr.New("malformed reference %q: expected id.side.part[.header]", raw)
	}

	index, err := resolveSendIndex(parts[0], sendIDs)
	if err != nil {
		return Reference{}, err
	}
	// Storage index 0 is the initial-pair sentinel, not a declared send
	// action, so the Nth declared send (1-based) lives at storage index
	// N. sendActionsCount is the number of send actions declared before
	// the referring find, so index == sendActionsCount addresses the
	// last of those sends and is valid; only index > sendActionsCount
	// reaches past the end.
	if index > sendActionsCount {
		return Reference{}, auderr.New("reference %q resolved to send index %d, but only %d send actions precede it", raw, index, sendActionsCount)
	}

	var side PairPart
	switch parts[1] {
	case "request":
		side = PartRequest
	case "response":
		side = PartResponse
	default:
		return Reference{}, auderr.New("reference %q has unknown side %q", raw, parts[1])
	}

	if len(parts) == 4 {
		if parts[2] != "headers" {
			return Reference{}, auderr.New("reference %q has a 4th component but its part is %q, not headers", raw, parts[2])
		}
		return Reference{SendIndex: index, Pair: side, Part: MsgHeader, HeaderName: parts[3]}, nil
	}

	switch parts[2] {
	case "method":
		if side == PartResponse {
			return Reference{}, auderr.New("reference %q tries to read method from a response", raw)
		}
		return Reference{SendIndex: index, Pair: side, Part: MsgMethod}, nil
	case "path":
		if side == PartResponse {
			return Reference{}, auderr.New("reference %q tries to read path from a response", raw)
		}
		return Reference{SendIndex: index, Pair: side, Part: MsgPath}, nil
	case "version":
		return Reference{SendIndex: index, Pair: side, Part: MsgVersion}, nil
	case "body":
		return Reference{SendIndex: index, Pair: side, Part: MsgBody}, nil
	case "status":
		if side == PartRequest {
			return Reference{}, auderr.New("reference %q tries to read status from a request", raw)
		}
		return Reference{SendIndex: index, Pair: side, Part: MsgStatus}, nil
	case "headers":
		return Reference{}, auderr.New("reference %q addresses headers without naming one", raw)
	default:
		return Reference{}, auderr.New("reference %q has unknown part %q", raw, parts[2])
	}
}

func resolveSendIndex(id string, sendIDs map[string]int) (int, error) {
	if n, err := strconv.Atoi(id); err == nil {
		return n, nil
	}
	if sendIDs == nil {
		return 0, auderr.New("could not resolve symbolic send id %q: no id mappings available", id)
	}
	index, ok := sendIDs[id]
	if !ok {
		return 0, auderr.New("could not resolve symbolic send id %q", id)
	}
	return index, nil
}

// Render reconstructs the original reference string from its resolved
// components, given the same id mapping used to parse it. When a
// symbolic id maps to this reference's SendIndex, the symbolic form is
// preferred over the numeric one so parse(render(x)) == x for rules
// written with symbolic ids.
func (r Reference) Render(sendIDs map[string]int) string {
	id := strconv.Itoa(r.SendIndex)
	for name, idx := range sendIDs {
		if idx == r.SendIndex {
			id = name
			break
		}
	}

	side := "request"
	if r.Pair == PartResponse {
		side = "response"
	}

	var part string
	switch r.Part {
	case MsgMethod:
		part = "method"
	case MsgPath:
		part = "path"
	case MsgVersion:
		part = "version"
	case MsgStatus:
		part = "status"
	case MsgBody:
		part = "body"
	case MsgHeader:
		return id + "." + side + ".headers." + r.HeaderName
	}
	return id + "." + side + "." + part
}
