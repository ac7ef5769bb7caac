package movie

import (
	"strconv"
	"strings"
)

// Fingerprint derives the dedup key for (title, year): the lowercased title
// with every run of characters outside [a-z0-9] collapsed to one space and
// trimmed, a pipe, then the year ("" when year is 0).
func Fingerprint(title string, year int) string {
	var b strings.Builder
	b.Grow(len(title) + 6)

	pendingSpace := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}

	b.WriteByte('|')
	if year != 0 {
		b.WriteString(strconv.Itoa(year))
	}
	return b.String()
}
