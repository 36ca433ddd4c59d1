package receipt

import "strings"

// NormalizeContent transforms raw receipt text into the searchable form
// stored in the content_index column: uppercase, every character outside
// [A-Z0-9 ] replaced with a space, whitespace runs collapsed to a single
// space. The same transform is applied to search keywords so substring
// matching stays consistent with the stored column.
func NormalizeContent(raw string) string {
	upper := strings.ToUpper(raw)

	var b strings.Builder
	b.Grow(len(upper))

	lastSpace := true // also trims leading spaces
	for _, r := range upper {
		keep := (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if keep {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}

	return strings.TrimRight(b.String(), " ")
}

// NormalizeKeyword prepares a search keyword: trimmed and uppercased.
// Keywords shorter than MinKeywordLen after trimming must be answered
// with an empty result set, not an error.
func NormalizeKeyword(keyword string) string {
	return strings.ToUpper(strings.TrimSpace(keyword))
}

// MinKeywordLen is the minimum keyword length for content search.
const MinKeywordLen = 3
