// Package lexical scores text against a query by keyword overlap.
//
// A keyword is a lowercased whitespace-separated query token longer than two
// characters. An entry scores one point per distinct keyword that appears
// anywhere in its lowercased text, as a plain substring. There is no stemming:
// "oranları" does not match "oranı".
package lexical

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// MinKeywordLength is the shortest token, in characters, that counts as a keyword.
const MinKeywordLength = 3

// Keywords returns the distinct lowercased keywords of query in first-seen order.
func Keywords(query string) []string {
	seen := make(map[string]struct{})
	var keywords []string
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(tok) < MinKeywordLength {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
	}
	return keywords
}

// Score counts the keywords contained in text.
func Score(keywords []string, text string) int {
	lower := strings.ToLower(text)
	score := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			score++
		}
	}
	return score
}

// Scored pairs a candidate position with its score.
type Scored struct {
	Index int
	Score int
}

// Rank scores every text against query, drops zero scores and returns the
// best limit candidates, highest first. Equal scores keep input order.
// A limit of zero or less keeps every positive candidate.
func Rank(query string, texts []string, limit int) []Scored {
	keywords := Keywords(query)
	if len(keywords) == 0 {
		return nil
	}

	var ranked []Scored
	for i, text := range texts {
		if s := Score(keywords, text); s > 0 {
			ranked = append(ranked, Scored{Index: i, Score: s})
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
