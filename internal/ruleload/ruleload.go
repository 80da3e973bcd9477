// Package ruleload loads audit rule documents from YAML, using strict
// field checking so a typo in a rule action surfaces at load time
// rather than being silently ignored.
package ruleload

import (
	"fmt"
	"os"

	"github.com/sinKettu/cruster-audit/internal/audit/auderr"
	"github.com/sinKettu/cruster-audit/internal/audit/expr"
	"github.com/sinKettu/cruster-audit/internal/audit/rule"
	"github.com/sinKettu/cruster-audit/internal/common/yamlutil"
)

// Document is the top-level shape of a rule file: a named list of
// rules, each checked up independently.
type Document struct {
	Rules []RuleDoc `yaml:"rules"`
}

// RuleDoc is the on-disk form of one rule.Rule: an id plus an ordered
// list of actions, each tagged with which of the five action kinds it
// is. toEntry requires the typed field named by the entry's kind to be
// set and ignores any other typed field set beside it; the YAML schema
// itself does not enforce this.
type RuleDoc struct {
	ID      string      `yaml:"id"`
	Entries []EntryDoc `yaml:"actions"`
}

// EntryDoc is one action within a rule document. Kind selects which of
// the typed fields is populated.
type EntryDoc struct {
	Kind string `yaml:"kind"` // "watch", "change", "send", "find", "get"

	Watch  *WatchDoc  `yaml:"watch,omitempty"`
	Change *ChangeDoc `yaml:"change,omitempty"`
	Send   *SendDoc   `yaml:"send,omitempty"`
	Find   *FindDoc   `yaml:"find,omitempty"`
	Get    *GetDoc    `yaml:"get,omitempty"`
}

// WatchDoc mirrors rule.Watch's on-disk fields.
type WatchDoc struct {
	ID      string `yaml:"id"`
	Part    string `yaml:"part"`
	Pattern string `yaml:"pattern"`
}

// ChangeDoc mirrors rule.Change's on-disk fields.
type ChangeDoc struct {
	ID        string   `yaml:"id"`
	WatchID   string   `yaml:"watch_id"`
	Placement string   `yaml:"placement"`
	Values    []string `yaml:"values"`
}

// SendDoc mirrors rule.Send's on-disk fields.
type SendDoc struct {
	ID           string `yaml:"id"`
	Apply        string `yaml:"apply"`
	Repeat       int    `yaml:"repeat"`
	TimeoutAfter int    `yaml:"timeout_after"`
}

// ArgDoc is one expression argument: a declared type tag and its raw
// string value, matching expr.RawArg's on-disk representation.
type ArgDoc struct {
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

// ExprDoc mirrors rule.RawExpr's on-disk fields.
type ExprDoc struct {
	Name      string   `yaml:"name"`
	Operation string   `yaml:"op"`
	Args      []ArgDoc `yaml:"args"`
}

// FindDoc mirrors rule.Find's on-disk fields.
type FindDoc struct {
	ID      string    `yaml:"id"`
	LookFor string    `yaml:"look_for"`
	Exec    []ExprDoc `yaml:"exec"`
}

// GetDoc mirrors rule.Get's on-disk fields.
type GetDoc struct {
	From      string `yaml:"from"`
	IfSucceed string `yaml:"if_succeed"`
	Side      string `yaml:"side"`
	Extract   string `yaml:"extract"`
	GroupName string `yaml:"group_name"`
	Pattern   string `yaml:"pattern"`
}

// LoadFile reads a rule document from path and returns every rule it
// declares, each already checked up and ready to run.
func LoadFile(path string) ([]*rule.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file %s: %w", path, err)
	}
	return LoadBytes(data)
}

// LoadBytes parses data as a rule document and checks up every rule it
// declares. A rule that fails check-up aborts the whole load: a
// partially-usable rule set is worse than none, since a caller running
// rules concurrently has no good place to surface a later failure.
func LoadBytes(data []byte) ([]*rule.Rule, error) {
	var doc Document
	if err := yamlutil.UnmarshalStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing rule document: %w", err)
	}

	rules := make([]*rule.Rule, 0, len(doc.Rules))
	seenIDs := make(map[string]bool, len(doc.Rules))
	for i := range doc.Rules {
		r, err := toRule(&doc.Rules[i])
		if err != nil {
			return nil, auderr.Wrap(fmt.Sprintf("rule[%d]", i), err)
		}
		if seenIDs[r.ID] {
			return nil, auderr.New("duplicate rule id %q", r.ID)
		}
		seenIDs[r.ID] = true

		if err := r.CheckUp(); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}

	return rules, nil
}

func toRule(doc *RuleDoc) (*rule.Rule, error) {
	if doc.ID == "" {
		return nil, auderr.New("rule is missing an id")
	}

	r := &rule.Rule{ID: doc.ID, Entries: make([]rule.Entry, 0, len(doc.Entries))}
	for i, entryDoc := range doc.Entries {
		entry, err := toEntry(&entryDoc)
		if err != nil {
			return nil, auderr.Wrap(fmt.Sprintf("action[%d]", i), err)
		}
		r.Entries = append(r.Entries, entry)
	}
	return r, nil
}

func toEntry(doc *EntryDoc) (rule.Entry, error) {
	switch doc.Kind {
	case "watch":
		if doc.Watch == nil {
			return rule.Entry{}, auderr.New("kind is watch but no watch block is present")
		}
		return rule.Entry{
			Kind: rule.KindWatch,
			Watch: &rule.Watch{
				ID:      doc.Watch.ID,
				Part:    doc.Watch.Part,
				Pattern: doc.Watch.Pattern,
			},
		}, nil

	case "change":
		if doc.Change == nil {
			return rule.Entry{}, auderr.New("kind is change but no change block is present")
		}
		return rule.Entry{
			Kind: rule.KindChange,
			Change: &rule.Change{
				ID:        doc.Change.ID,
				WatchID:   doc.Change.WatchID,
				Placement: doc.Change.Placement,
				Values:    doc.Change.Values,
			},
		}, nil

	case "send":
		if doc.Send == nil {
			return rule.Entry{}, auderr.New("kind is send but no send block is present")
		}
		return rule.Entry{
			Kind: rule.KindSend,
			Send: &rule.Send{
				ID:           doc.Send.ID,
				Apply:        doc.Send.Apply,
				Repeat:       doc.Send.Repeat,
				TimeoutAfter: doc.Send.TimeoutAfter,
			},
		}, nil

	case "find":
		if doc.Find == nil {
			return rule.Entry{}, auderr.New("kind is find but no find block is present")
		}
		exprs := make([]rule.RawExpr, 0, len(doc.Find.Exec))
		for _, e := range doc.Find.Exec {
			args := make([]expr.RawArg, 0, len(e.Args))
			for _, a := range e.Args {
				args = append(args, expr.NewRawArg(a.Type, a.Value))
			}
			exprs = append(exprs, rule.RawExpr{
				Name:          e.Name,
				OperationName: e.Operation,
				Args:          args,
			})
		}
		return rule.Entry{
			Kind: rule.KindFind,
			Find: &rule.Find{
				ID:      doc.Find.ID,
				LookFor: doc.Find.LookFor,
				Exec:    exprs,
			},
		}, nil

	case "get":
		if doc.Get == nil {
			return rule.Entry{}, auderr.New("kind is get but no get block is present")
		}
		return rule.Entry{
			Kind: rule.KindGet,
			Get: &rule.Get{
				From:      doc.Get.From,
				IfSucceed: doc.Get.IfSucceed,
				Side:      doc.Get.Side,
				Extract:   doc.Get.Extract,
				GroupName: doc.Get.GroupName,
				Pattern:   doc.Get.Pattern,
			},
		}, nil

	default:
		return rule.Entry{}, auderr.New("unknown action kind %q", doc.Kind)
	}
}
