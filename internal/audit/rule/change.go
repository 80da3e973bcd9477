package rule

import (
	"strconv"
	"strings"

	"github.com/sinKettu/cruster-audit/internal/audit/actionkind"
	"github.com/sinKettu/cruster-audit/internal/audit/auderr"
	"github.com/sinKettu/cruster-audit/internal/audit/capture"
	"github.com/sinKettu/cruster-audit/internal/audit/runctx"
)

// Change rewrites the coordinates a prior watch found, applying each of
// Values either before, after, or instead of the watched text. It
// performs no I/O; it only produces mutated requests for send to
// dispatch.
type Change struct {
	ID        string
	WatchID   string // "<watch-index>" or "<watch-index>:<group-name>"
	Placement string // "before", "after", "replace"
	Values    []string

	watchIDCache   actionkind.WatchID
	placementCache actionkind.ChangeValuePlacement
}

// CheckUp resolves WatchID and Placement.
func (c *Change) CheckUp(watchActionsCount int) error {
	idPart, groupPart, hasGroup := strings.Cut(c.WatchID, ":")
	index, err := strconv.Atoi(idPart)
	if err != nil {
		return auderr.New("change %q: watch_id %q does not start with a numeric index", c.ID, c.WatchID)
	}
	if index < 0 || index >= watchActionsCount {
		return auderr.New("change %q: watch_id %d is out of bounds, only %d watch actions precede it", c.ID, index, watchActionsCount)
	}
	c.watchIDCache = actionkind.WatchID{Index: index}
	if hasGroup {
		c.watchIDCache.GroupName = groupPart
	}

	switch strings.ToLower(c.Placement) {
	case "before":
		c.placementCache = actionkind.PlaceBefore
	case "after":
		c.placementCache = actionkind.PlaceAfter
	case "replace":
		c.placementCache = actionkind.PlaceReplace
	default:
		return auderr.New("change %q: unknown placement %q", c.ID, c.Placement)
	}

	return nil
}

// Exec produces one mutated request per (watch-hit coordinate × value)
// pairing and pushes them as a single batch into the context, so this
// change action's results stay addressable by its own declaration
// index regardless of how many entries they contain. watchResults is
// the accumulated output of every watch action run so far; a watch
// action that found nothing yields an empty batch here, which the
// driver treats as benign.
func (c *Change) Exec(ctx runctx.WithChangeAction, watchResults []runctx.WatchHit, pair *capture.Pair) error {
	if c.watchIDCache.Index >= len(watchResults) {
		return auderr.New("change %q: referenced watch action has not produced a result yet", c.ID)
	}
	hit := watchResults[c.watchIDCache.Index]

	var batch runctx.ChangeBatch
	for _, capt := range hit {
		if c.watchIDCache.GroupName != "" && capt.GroupName != c.watchIDCache.GroupName {
			continue
		}
		for _, value := range c.Values {
			mutated := applyPlacement(pair.Request, capt.Coordinate, value, c.placementCache)
			batch = append(batch, runctx.ChangeEntry{
				MutatedRequest: mutated,
				Coordinate:     capt.Coordinate,
			})
		}
	}

	ctx.AddChangeBatch(batch)
	return nil
}

func applyPlacement(req *capture.Request, coord capture.Coordinate, value string, placement actionkind.ChangeValuePlacement) *capture.Request {
	lines := req.Lines()
	if coord.Line < 0 || coord.Line >= len(lines) {
		return cloneRequest(req)
	}
	line := lines[coord.Line]

	start, end := coord.Start, coord.End
	if start == 0 && end == 0 {
		end = len(line)
	}
	if start < 0 || end > len(line) || start > end {
		return cloneRequest(req)
	}

	var rewritten string
	switch placement {
	case actionkind.PlaceBefore:
		rewritten = line[:start] + value + line[start:]
	case actionkind.PlaceAfter:
		rewritten = line[:end] + value + line[end:]
	default: // replace
		rewritten = line[:start] + value + line[end:]
	}

	return requestFromLines(req, coord.Line, rewritten)
}

func cloneRequest(req *capture.Request) *capture.Request {
	clone := *req
	return &clone
}

// requestFromLines rewrites one rendered line of a request and folds it
// back into structured Method/Path/Version/Headers/Body fields. Only
// the start-line and body are addressable this way for method/path;
// header and body lines are folded back into their original field.
func requestFromLines(req *capture.Request, lineIndex int, rewritten string) *capture.Request {
	mutated := cloneRequest(req)

	headerCount := req.Headers.Len()
	switch {
	case lineIndex == 0:
		parts := strings.SplitN(rewritten, " ", 3)
		if len(parts) == 3 {
			mutated.Method, mutated.Path, mutated.Version = parts[0], parts[1], parts[2]
		}
	case lineIndex <= headerCount:
		mutated.Headers = rewriteHeaderLine(req.Headers, lineIndex-1, rewritten)
	default:
		bodyLines := strings.Split(string(req.Body), "\n")
		bodyLineIndex := lineIndex - 1 - headerCount
		if bodyLineIndex >= 0 && bodyLineIndex < len(bodyLines) {
			bodyLines[bodyLineIndex] = rewritten
			mutated.Body = []byte(strings.Join(bodyLines, "\n"))
		}
	}

	return mutated
}

func rewriteHeaderLine(headers capture.Headers, index int, rewritten string) capture.Headers {
	var out capture.Headers
	for i, h := range headers.All() {
		if i == index {
			name, value, ok := strings.Cut(rewritten, ": ")
			if ok {
				out.Add(name, value)
				continue
			}
		}
		out.Add(h.Name, h.Value)
	}
	return out
}
