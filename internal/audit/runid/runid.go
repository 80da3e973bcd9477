// Package runid generates the audit trail id attached to one
// (rule, pair) execution, so a RuleResult can be correlated back to a
// specific run across logs and the evidence cache.
package runid

import (
	"strings"

	"github.com/google/uuid"
)

// MaxRuleIDLength bounds how much of a rule's id is folded into the
// generated run id, keeping the result a stable, loggable length
// regardless of how a rule document names itself.
const MaxRuleIDLength = 24

// New builds a run id of the form "<rule-id-slug>-<uuid>", so it sorts
// and greps naturally alongside the rule it belongs to. An empty
// ruleID falls back to a bare UUID.
func New(ruleID string) string {
	slug := slugify(ruleID)
	if slug == "" {
		return uuid.New().String()
	}
	return slug + "-" + uuid.New().String()
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r - 'A' + 'a')
		case r == '-' || r == '_':
			b.WriteByte('-')
		}
		if b.Len() >= MaxRuleIDLength {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}
