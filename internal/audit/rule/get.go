package rule

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sinKettu/cruster-audit/internal/audit/actionkind"
	"github.com/sinKettu/cruster-audit/internal/audit/auderr"
	"github.com/sinKettu/cruster-audit/internal/audit/runctx"
)

// Get extracts evidence from a prior send result, gated on a prior find
// having succeeded. A get action that does not fire still pushes a
// result, so get results stay aligned by position with the rule's get
// actions.
type Get struct {
	From      string // "<send-index>"
	IfSucceed string // "<find-index>"
	Side      string // "request" or "response"
	Extract   string // "line", "match", or "group"
	GroupName string // only meaningful when Extract == "group"
	Pattern   string

	fromCache      int
	ifSucceedCache int
	extraction     actionkind.Extraction
	patternCache   *regexp.Regexp
}

// CheckUp resolves From, IfSucceed, the extraction mode, and compiles
// Pattern once.
func (g *Get) CheckUp(sendActionsCount, findActionsCount int) error {
	from, err := strconv.Atoi(g.From)
	if err != nil {
		return auderr.New("get: from %q is not a numeric send index", g.From)
	}
	// send_results[0] is always the initial-pair sentinel, so a
	// from referencing the Nth declared send action is N, not N-1;
	// valid values range over [0, sendActionsCount] inclusive.
	if from < 0 || from > sendActionsCount {
		return auderr.New("get: from %d is out of bounds, only %d send actions precede it", from, sendActionsCount)
	}
	g.fromCache = from

	ifSucceed, err := strconv.Atoi(g.IfSucceed)
	if err != nil {
		return auderr.New("get: if_succeed %q is not a numeric find index", g.IfSucceed)
	}
	if ifSucceed < 0 || ifSucceed >= findActionsCount {
		return auderr.New("get: if_succeed %d is out of bounds, only %d find actions precede it", ifSucceed, findActionsCount)
	}
	g.ifSucceedCache = ifSucceed

	switch strings.ToLower(g.Side) {
	case "request":
		g.extraction.Side = actionkind.ExtractRequest
	case "response":
		g.extraction.Side = actionkind.ExtractResponse
	default:
		return auderr.New("get: unknown side %q", g.Side)
	}

	switch strings.ToLower(g.Extract) {
	case "line":
		g.extraction.Kind = actionkind.ExtractLine
	case "match":
		g.extraction.Kind = actionkind.ExtractMatch
	case "group":
		if g.GroupName == "" {
			return auderr.New("get: extract=group requires a group name")
		}
		g.extraction.Kind = actionkind.ExtractGroup
		g.extraction.GroupName = g.GroupName
	default:
		return auderr.New("get: unknown extraction mode %q", g.Extract)
	}

	re, err := regexp.Compile(g.Pattern)
	if err != nil {
		return auderr.New("get: invalid pattern %q: %s", g.Pattern, err)
	}
	g.patternCache = re

	return nil
}

// Exec checks the gating find result and, if it succeeded, extracts
// evidence from the first send entry of the referenced batch that
// matches Pattern. It always pushes exactly one GetResult so positions
// stay aligned with the rule's get actions.
func (g *Get) Exec(ctx runctx.WithGetAction) {
	if !ctx.FindSucceeded(g.ifSucceedCache) {
		ctx.AddGetResult(runctx.GetResult{Found: false})
		return
	}

	batch, ok := ctx.SendBatchByID(g.fromCache)
	if !ok {
		ctx.AddGetResult(runctx.GetResult{Found: false})
		return
	}

	for _, entry := range batch {
		if g.extraction.Side == actionkind.ExtractRequest {
			if bytes, found := g.extractFromLines(entry.Result.RequestSent.Lines()); found {
				ctx.AddGetResult(runctx.GetResult{Bytes: bytes, Found: true})
				return
			}
			continue
		}
		for _, resp := range entry.Result.ResponsesReceived {
			if resp == nil {
				continue
			}
			if bytes, found := g.extractFromLines(resp.Lines()); found {
				ctx.AddGetResult(runctx.GetResult{Bytes: bytes, Found: true})
				return
			}
		}
	}

	ctx.AddGetResult(runctx.GetResult{Found: false})
}

func (g *Get) extractFromLines(lines []string) ([]byte, bool) {
	for _, line := range lines {
		loc := g.patternCache.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		switch g.extraction.Kind {
		case actionkind.ExtractLine:
			return []byte(line), true
		case actionkind.ExtractMatch:
			return []byte(line[loc[0]:loc[1]]), true
		case actionkind.ExtractGroup:
			names := g.patternCache.SubexpNames()
			for i, name := range names {
				if name != g.extraction.GroupName {
					continue
				}
				start, end := loc[i*2], loc[i*2+1]
				if start < 0 {
					return nil, false
				}
				return []byte(line[start:end]), true
			}
			return nil, false
		}
	}
	return nil, false
}
