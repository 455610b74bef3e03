// Package search filters watchlist items and ledger rows by title
package search

import (
	"sort"
	"strings"

	lfuzzy "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sahilm/fuzzy"
)

// Match is one ranked hit
type Match struct {
	Index          int   // Index in the source slice
	Score          int   // Lower is better
	MatchedIndexes []int // Rune positions in the title, for highlighting
}

// titleIndex implements sahilm/fuzzy.Source over pre-lowered titles
type titleIndex struct {
	lowerTitles []string
}

func (idx titleIndex) String(i int) string { return idx.lowerTitles[i] }

func (idx titleIndex) Len() int { return len(idx.lowerTitles) }

// Rank matches query against titles. A title matches when the query is a
// subsequence of it, or when every query word fuzzily matches it in any
// order ("robot mr" finds "Mr. Robot").
func Rank(query string, titles []string) []Match {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	idx := titleIndex{lowerTitles: make([]string, len(titles))}
	for i, t := range titles {
		idx.lowerTitles[i] = strings.ToLower(t)
	}

	highlighted := make(map[int][]int)
	for _, m := range fuzzy.FindFrom(query, idx) {
		highlighted[m.Index] = m.MatchedIndexes
	}

	words := strings.Fields(query)
	var matches []Match
	for i, title := range idx.lowerTitles {
		positions, ok := highlighted[i]
		if !ok && !allWordsMatch(words, title) {
			continue
		}
		matches = append(matches, Match{
			Index:          i,
			Score:          score(query, title),
			MatchedIndexes: positions,
		})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].Score != matches[b].Score {
			return matches[a].Score < matches[b].Score
		}
		return len(titles[matches[a].Index]) < len(titles[matches[b].Index])
	})
	return matches
}

// Filter returns the items whose title matches query, best first. An empty
// query returns items unchanged.
func Filter[T any](query string, items []T, title func(T) string) []T {
	if strings.TrimSpace(query) == "" {
		return items
	}

	titles := make([]string, len(items))
	for i, item := range items {
		titles[i] = title(item)
	}

	matches := Rank(query, titles)
	out := make([]T, len(matches))
	for i, m := range matches {
		out[i] = items[m.Index]
	}
	return out
}

func allWordsMatch(words []string, title string) bool {
	if len(words) < 2 {
		return false
	}
	for _, w := range words {
		if !lfuzzy.MatchFold(w, title) {
			return false
		}
	}
	return true
}

// score ranks exact, prefix and substring hits ahead of looser matches
func score(query, title string) int {
	switch {
	case title == query:
		return 0
	case strings.HasPrefix(title, query):
		return 10
	case strings.Contains(title, query):
		return 50
	default:
		return 100 + lfuzzy.LevenshteinDistance(query, title)
	}
}
