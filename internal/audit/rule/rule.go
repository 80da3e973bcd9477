package rule

import "github.com/sinKettu/cruster-audit/internal/audit/auderr"

// ActionKind distinguishes the five action kinds a Rule's entries can
// be, preserving their declaration order within the rule.
type ActionKind int

const (
	KindWatch ActionKind = iota
	KindChange
	KindSend
	KindFind
	KindGet
)

// Entry is one action within a Rule, in the order the rule document
// declared it. Exactly one of the typed fields is populated, selected
// by Kind.
type Entry struct {
	Kind ActionKind

	Watch  *Watch
	Change *Change
	Send   *Send
	Find   *Find
	Get    *Get
}

// Rule is a named, ordered list of actions. Loaded rules are mutable
// until CheckUp succeeds; after that they are treated as immutable and
// safe to share across concurrent pair executions.
type Rule struct {
	ID      string
	Entries []Entry
}

// CheckUp validates every entry in declaration order, resolving
// symbolic ids and caching parsed forms. It builds the symbolic send-id
// table as send actions are encountered, so a find or get can only
// reference a send action that precedes it in the rule, matching the
// bound CheckUp already enforces one level down in each action.
func (r *Rule) CheckUp() error {
	sendIDs := make(map[string]int)
	var watchCount, changeCount, sendCount, findCount int

	for i := range r.Entries {
		entry := &r.Entries[i]
		switch entry.Kind {
		case KindWatch:
			if err := entry.Watch.CheckUp(); err != nil {
				return auderr.Wrap(r.ID, err)
			}
			watchCount++

		case KindChange:
			if err := entry.Change.CheckUp(watchCount); err != nil {
				return auderr.Wrap(r.ID, err)
			}
			changeCount++

		case KindSend:
			if err := entry.Send.CheckUp(changeCount); err != nil {
				return auderr.Wrap(r.ID, err)
			}
			if entry.Send.ID != "" {
				// Storage index 0 is the initial-pair sentinel (see
				// runctx.New), so the Nth declared send action
				// lives at storage index N, not N-1.
				sendIDs[entry.Send.ID] = sendCount + 1
			}
			sendCount++

		case KindFind:
			if err := entry.Find.CheckUp(sendIDs, sendCount); err != nil {
				return auderr.Wrap(r.ID, err)
			}
			findCount++

		case KindGet:
			if err := entry.Get.CheckUp(sendCount, findCount); err != nil {
				return auderr.Wrap(r.ID, err)
			}
		}
	}

	return nil
}
