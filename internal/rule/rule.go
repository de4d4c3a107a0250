package rule

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Rule maps a fragment of a bank statement description to a category and,
// optionally, a friendlier note.
type Rule struct {
	ID         uuid.UUID
	RawPattern string
	CategoryID uuid.UUID
	Note       string
	CreatedAt  time.Time
}

// Matches reports whether the pattern occurs in raw, ignoring case.
func (r *Rule) Matches(raw string) bool {
	return strings.Contains(strings.ToLower(raw), strings.ToLower(r.RawPattern))
}

// Best picks the rule to apply to raw: the longest matching pattern, the
// newest one on ties. It returns nil when nothing matches.
func Best(rules []*Rule, raw string) *Rule {
	var best *Rule

	for _, r := range rules {
		if !r.Matches(raw) {
			continue
		}

		switch {
		case best == nil,
			len(r.RawPattern) > len(best.RawPattern),
			len(r.RawPattern) == len(best.RawPattern) && r.CreatedAt.After(best.CreatedAt):
			best = r
		}
	}

	return best
}
