// Package casefold implements the IRC-specific case folding and glob
// matching used to compare nicks, channel names, hosts, and ban masks.
//
// Folding is ASCII lowercasing plus the RFC 1459 extension that treats
// '{' '}' '\' as the lowercase forms of '[' ']' '|'.
package casefold

import "strings"

var foldTable [256]byte

func init() {
	for n := 0; n < 256; n++ {
		c := byte(n)
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		foldTable[n] = c
	}
	foldTable['['] = '{'
	foldTable[']'] = '}'
	foldTable['|'] = '\\'
}

// Fold returns the canonical folded form of s, suitable for use as a map
// key (nick registry, channel registry, and so on).
func Fold(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		sb.WriteByte(foldTable[s[i]])
	}
	return sb.String()
}

// Equal reports whether a and b are equal under IRC case folding.
func Equal(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if foldTable[a[i]] != foldTable[b[i]] {
			return false
		}
	}
	return true
}

// Match reports whether text matches the glob pattern under IRC case
// folding. '?' matches exactly one character; '*' matches any run of
// characters, including none. An empty pattern matches only empty text.
//
// gnu serveez's string_regex resolves '*' by jumping to the rightmost
// occurrence of the next pattern character in the remaining text, which
// is not a true glob match (it can reject strings a glob would accept,
// and vice versa, whenever that character repeats). Per spec's
// allowance to substitute a linear matcher that agrees with glob
// semantics on all inputs, this instead tracks the most recent '*' and
// backtracks the text pointer to just after it on a mismatch, which is
// the standard correct wildcard algorithm and remains amortized linear
// for all but adversarial patterns.
func Match(pattern, text string) bool {
	pi, ti := 0, 0
	starIdx, starMatch := -1, -1

	for ti < len(text) {
		if pi < len(pattern) && (pattern[pi] == '?' ||
			foldTable[pattern[pi]] == foldTable[text[ti]]) {
			pi++
			ti++
			continue
		}

		if pi < len(pattern) && pattern[pi] == '*' {
			starIdx = pi
			starMatch = ti
			pi++
			continue
		}

		if starIdx != -1 {
			pi = starIdx + 1
			starMatch++
			ti = starMatch
			continue
		}

		return false
	}

	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}

	return pi == len(pattern)
}
