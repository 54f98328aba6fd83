package chunker

import (
	"sort"
	"strings"
	"unicode"
)

const (
	defaultMaxKeywords = 10
	minKeywordLen      = 4
	maxKeywordLen      = 19
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "for": {}, "with": {}, "by": {},
	"in": {}, "on": {}, "at": {}, "from": {}, "as": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"been": {}, "it": {}, "this": {}, "that": {}, "these": {}, "those": {}, "we": {}, "our": {}, "you": {},
	"your": {}, "i": {}, "me": {}, "my": {}, "us": {}, "them": {}, "they": {}, "their": {}, "do": {},
	"does": {}, "did": {}, "what": {}, "how": {}, "why": {}, "when": {}, "where": {}, "which": {}, "can": {},
	"could": {}, "should": {}, "would": {}, "may": {}, "might": {}, "will": {}, "shall": {}, "have": {},
	"has": {}, "had": {}, "not": {}, "but": {}, "into": {}, "such": {}, "other": {}, "than": {}, "then": {},
	"also": {}, "any": {}, "all": {}, "each": {}, "more": {}, "most": {}, "some": {}, "under": {}, "over": {},
}

type keywordStat struct {
	token string
	count int
	first int
}

// extractKeywords returns up to max keywords from content, ranked by
// frequency descending with first-occurrence index breaking ties. Tokens
// are lowercased, stop-worded and length-filtered; pure-digit tokens are
// excluded. The ordering is fully deterministic.
func extractKeywords(content string, max int) []string {
	if max <= 0 {
		max = defaultMaxKeywords
	}

	tokens := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	stats := make(map[string]*keywordStat)
	order := 0
	for _, tok := range tokens {
		order++
		if !isKeywordToken(tok) {
			continue
		}
		if s, ok := stats[tok]; ok {
			s.count++
			continue
		}
		stats[tok] = &keywordStat{token: tok, count: 1, first: order}
	}

	ranked := make([]*keywordStat, 0, len(stats))
	for _, s := range stats {
		ranked = append(ranked, s)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})

	if len(ranked) > max {
		ranked = ranked[:max]
	}
	keywords := make([]string, 0, len(ranked))
	for _, s := range ranked {
		keywords = append(keywords, s.token)
	}
	return keywords
}

func isKeywordToken(tok string) bool {
	n := len([]rune(tok))
	if n < minKeywordLen || n > maxKeywordLen {
		return false
	}
	if _, ok := stopwords[tok]; ok {
		return false
	}
	allDigits := true
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			allDigits = false
			break
		}
	}
	return !allDigits
}
