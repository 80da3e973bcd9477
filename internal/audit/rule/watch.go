// Package rule holds the five action kinds a Rule can declare — watch,
// change, send, find, get — each with a check-up phase that validates
// the action once, at load time, and caches the parsed form it runs
// against for every pair afterward.
package rule

import (
	"regexp"
	"strings"

	"github.com/sinKettu/cruster-audit/internal/audit/actionkind"
	"github.com/sinKettu/cruster-audit/internal/audit/auderr"
	"github.com/sinKettu/cruster-audit/internal/audit/capture"
	"github.com/sinKettu/cruster-audit/internal/audit/runctx"
)

// Watch scans one part of the initial request for a pattern and
// records the coordinates of every captured group it finds. It never
// mutates the pair.
type Watch struct {
	ID      string
	Part    string // "method", "path", "version", "headers", "body"
	Pattern string

	partCache    actionkind.WatchPart
	patternCache *regexp.Regexp
}

// CheckUp resolves Part and compiles Pattern once.
func (w *Watch) CheckUp() error {
	switch strings.ToLower(w.Part) {
	case "method":
		w.partCache = actionkind.WatchMethod
	case "path":
		w.partCache = actionkind.WatchPath
	case "version":
		w.partCache = actionkind.WatchVersion
	case "headers":
		w.partCache = actionkind.WatchHeaders
	case "body":
		w.partCache = actionkind.WatchBody
	default:
		return auderr.New("watch %q: unknown part %q", w.ID, w.Part)
	}

	re, err := regexp.Compile(w.Pattern)
	if err != nil {
		return auderr.New("watch %q: invalid pattern %q: %s", w.ID, w.Pattern, err)
	}
	w.patternCache = re

	return nil
}

// Exec scans the selected part of the pair's initial request and pushes
// one WatchHit — the coordinates of every captured group, in match
// order — into the context. A pattern with no capture groups still
// produces a hit coordinate per match, addressing the whole match.
func (w *Watch) Exec(ctx runctx.WithWatchAction, pair *capture.Pair) {
	lines := pair.Request.Lines()
	lineIndex, offset, text := w.scanTarget(pair, lines)

	names := w.patternCache.SubexpNames()
	var hit runctx.WatchHit
	for _, loc := range w.patternCache.FindAllStringSubmatchIndex(text, -1) {
		if len(loc) > 2 {
			for g := 1; g*2 < len(loc); g++ {
				start, end := loc[g*2], loc[g*2+1]
				if start < 0 {
					continue
				}
				hit = append(hit, runctx.WatchCapture{
					Coordinate: capture.Coordinate{Line: lineIndex, Start: offset + start, End: offset + end},
					GroupName:  names[g],
				})
			}
		} else {
			hit = append(hit, runctx.WatchCapture{
				Coordinate: capture.Coordinate{Line: lineIndex, Start: offset + loc[0], End: offset + loc[1]},
			})
		}
	}

	ctx.AddWatchResult(hit)
}

// scanTarget resolves which rendered line (or lines, for headers/body)
// this watch reads, the column at which the scanned text starts on that
// line, and the text itself. Method, path and version are each scanned
// on their own, at their column in the start line. Headers and
// multi-line bodies are scanned line by line; the first matching line
// wins so the returned coordinate stays addressable by a single
// (line, start, end) triple.
func (w *Watch) scanTarget(pair *capture.Pair, lines []string) (int, int, string) {
	req := pair.Request
	switch w.partCache {
	case actionkind.WatchMethod:
		return 0, 0, req.Method
	case actionkind.WatchPath:
		return 0, len(req.Method) + 1, req.Path
	case actionkind.WatchVersion:
		return 0, len(req.Method) + len(req.Path) + 2, req.Version
	case actionkind.WatchHeaders:
		headerCount := pair.Request.Headers.Len()
		for i := 1; i <= headerCount; i++ {
			if w.patternCache.MatchString(lines[i]) {
				return i, 0, lines[i]
			}
		}
		if headerCount > 0 {
			return 1, 0, lines[1]
		}
		return 0, 0, ""
	default: // body
		bodyStart := 1 + pair.Request.Headers.Len()
		for i := bodyStart; i < len(lines); i++ {
			if w.patternCache.MatchString(lines[i]) {
				return i, 0, lines[i]
			}
		}
		if bodyStart < len(lines) {
			return bodyStart, 0, lines[bodyStart]
		}
		return bodyStart, 0, ""
	}
}
