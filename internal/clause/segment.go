package clause

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinClauseLength is the trimmed rune count a fragment must exceed to count as a clause.
// Anything shorter is treated as noise (headers, page numbers, stray punctuation).
const MinClauseLength = 20

var clauseBoundary = regexp.MustCompile(`\n|\. `)

// Segment splits document text into clause candidates at newlines and at a period
// followed by a space. It is a placeholder boundary detector: numbered lists,
// "Article N" headings and multi-sentence clauses are not recognised.
func Segment(text string) []string {
	clauses := []string{}
	for _, fragment := range clauseBoundary.Split(text, -1) {
		fragment = strings.TrimSpace(fragment)
		if utf8.RuneCountInString(fragment) > MinClauseLength {
			clauses = append(clauses, fragment)
		}
	}
	return clauses
}
