package task

import "strings"

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "to": {}, "of": {},
	"in": {}, "on": {}, "for": {}, "with": {}, "is": {}, "it": {}, "be": {},
	"this": {}, "that": {}, "as": {}, "at": {}, "by": {}, "from": {},
}

func normalizeWord(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}

// splitWords lowercases s, splits on any rune other than an ASCII letter or
// digit, and drops stop-words
// and anything shorter than three characters.
func splitWords(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}
