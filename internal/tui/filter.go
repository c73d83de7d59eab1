package tui

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// filterRows keeps rows whose title fuzzily contains query, best match first.
// Header rows never match; a filtered view is flat.
func filterRows(rows []row, query string) []row {
	if query == "" {
		return rows
	}

	titles := make([]string, len(rows))
	for i, r := range rows {
		if r.kind != rowList {
			titles[i] = r.title
		}
	}

	ranks := fuzzy.RankFindFold(query, titles)
	sort.Stable(ranks)

	out := make([]row, 0, len(ranks))
	for _, rank := range ranks {
		out = append(out, rows[rank.OriginalIndex])
	}
	return out
}
