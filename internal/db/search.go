package db

import (
	"strings"
	"unicode"
)

// SearchLimit caps every full-text search.
const SearchLimit = 10

// maxTerms bounds how many words of a query are used.
const maxTerms = 8

// searchTerms splits a free-text query (often a whole question) into words.
func searchTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	var out []string
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
		if len(out) == maxTerms {
			break
		}
	}
	return out
}

func snippet(content string) string {
	r := []rune(content)
	if len(r) <= 200 {
		return content
	}
	return string(r[:200]) + "..."
}
