// Package actionkind holds the small enumerations shared between a
// rule's action definitions and the execution context that accumulates
// their results. It has no dependency on either side so each can import
// it without a cycle.
package actionkind

// WatchPart selects which field of a request a watch action scans.
type WatchPart int

const (
	WatchMethod WatchPart = iota
	WatchPath
	WatchVersion
	WatchHeaders
	WatchBody
)

func (p WatchPart) String() string {
	switch p {
	case WatchMethod:
		return "method"
	case WatchPath:
		return "path"
	case WatchVersion:
		return "version"
	case WatchHeaders:
		return "headers"
	case WatchBody:
		return "body"
	default:
		return "unknown"
	}
}

// ChangeValuePlacement selects how a change action's payload is written
// relative to a watched match.
type ChangeValuePlacement int

const (
	PlaceBefore ChangeValuePlacement = iota
	PlaceAfter
	PlaceReplace
)

// WatchID names a prior watch action and, optionally, one of its named
// capture groups. An empty GroupName means every captured group.
type WatchID struct {
	Index     int
	GroupName string
}

// LookFor is the reduction mode a find action applies to a Several of
// Booleans produced by its last expression.
type LookFor int

const (
	LookAny LookFor = iota
	LookAll
)

// ExtractionKind selects what a get action pulls out of the matched
// text: the whole line, the whole regex match, or one named group.
type ExtractionKind int

const (
	ExtractLine ExtractionKind = iota
	ExtractMatch
	ExtractGroup
)

// ExtractionSide selects which half of a send result a get action reads.
type ExtractionSide int

const (
	ExtractRequest ExtractionSide = iota
	ExtractResponse
)

// Extraction is the fully-resolved form of a get action's "extract"
// field: a side plus a kind, carrying the group name when the kind is
// ExtractGroup.
type Extraction struct {
	Side      ExtractionSide
	Kind      ExtractionKind
	GroupName string // only meaningful when Kind == ExtractGroup
}
