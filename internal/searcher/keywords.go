package searcher

import (
	"strings"
	"unicode"
)

type tokenSet map[string]struct{}

// Keywords splits text into lowercase tokens, in first-seen order without
// duplicates. Tokens break at whitespace, at any rune that is not a letter or
// digit (which covers _ - / \ and .) and where a lowercase letter is followed
// by an uppercase one. Single-rune tokens are dropped.
func Keywords(text string) []string {
	var (
		tokens  []string
		seen    = make(tokenSet)
		current strings.Builder
		prev    rune
	)

	flush := func() {
		if current.Len() == 0 {
			return
		}
		token := strings.ToLower(current.String())
		current.Reset()
		if len([]rune(token)) <= 1 {
			return
		}
		if _, ok := seen[token]; ok {
			return
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}

	for _, r := range text {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			prev = 0
			continue
		}
		if unicode.IsUpper(r) && unicode.IsLower(prev) {
			flush()
		}
		current.WriteRune(r)
		prev = r
	}
	flush()

	return tokens
}

func newTokenSet(text string) tokenSet {
	tokens := Keywords(text)
	set := make(tokenSet, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// coverage is the fraction of query tokens present in set
func coverage(query []string, set tokenSet) float64 {
	if len(query) == 0 || len(set) == 0 {
		return 0
	}
	hits := 0
	for _, t := range query {
		if _, ok := set[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}
