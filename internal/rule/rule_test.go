package rule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/tally/internal/rule"
)

func TestBest(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	short := &rule.Rule{RawPattern: "uber", CreatedAt: base}
	long := &rule.Rule{RawPattern: "uber eats", CreatedAt: base}
	newer := &rule.Rule{RawPattern: "UBER", CreatedAt: base.Add(time.Hour)}

	tests := []struct {
		name  string
		rules []*rule.Rule
		raw   string
		want  *rule.Rule
	}{
		{name: "NoRules", raw: "UBER EATS LISBOA"},
		{name: "NoMatch", rules: []*rule.Rule{short, long}, raw: "CONTINENTE"},
		{name: "CaseInsensitive", rules: []*rule.Rule{short}, raw: "Compra UBER *TRIP", want: short},
		{name: "LongestWins", rules: []*rule.Rule{short, long}, raw: "UBER EATS LISBOA", want: long},
		{name: "LongestWinsRegardlessOfOrder", rules: []*rule.Rule{long, short}, raw: "UBER EATS LISBOA", want: long},
		{name: "NewestWinsTies", rules: []*rule.Rule{short, newer}, raw: "UBER TRIP", want: newer},
		{name: "NewestWinsTiesReversed", rules: []*rule.Rule{newer, short}, raw: "UBER TRIP", want: newer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.want, rule.Best(tt.rules, tt.raw))
		})
	}
}
