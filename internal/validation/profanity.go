// Package validation provides the content policy and account input rules.
package validation

import (
	"strings"
	"unicode"
)

// blocklist is matched against normalized text. Entries are normalized with
// the same rules at init, so obfuscated spellings collapse onto their base word.
var blocklist = []string{
	"shit",
	"piss",
	"fuck",
	"cunt",
	"cocksucker",
	"motherfucker",
	"tits",
	"f*ck",
	"f**k",
	"sh*t",
	"sh1t",
	"f u c k",
	"s h i t",
	"fvck",
	"n1gger",
	"n1gga",
	"f4g",
	"f4gg0t",
}

var leet = map[rune]rune{
	'0': 'o',
	'1': 'i',
	'3': 'e',
	'4': 'a',
	'5': 's',
	'7': 't',
	'@': 'a',
	'$': 's',
	'!': 'i',
	'+': 't',
}

var normalizedBlocklist = func() []string {
	out := make([]string, 0, len(blocklist))
	seen := make(map[string]struct{}, len(blocklist))
	for _, term := range blocklist {
		n := Normalize(term)
		if _, ok := seen[n]; ok || n == "" {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}()

// Normalize lowercases text, applies leet substitutions and drops whitespace.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsSpace(r) {
			continue
		}
		if sub, ok := leet[r]; ok {
			r = sub
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ContainsProfanity reports whether the normalized text contains any
// blocklisted term. This is a best-effort pre-filter.
func ContainsProfanity(text string) bool {
	normalized := Normalize(text)
	if normalized == "" {
		return false
	}
	for _, term := range normalizedBlocklist {
		if strings.Contains(normalized, term) {
			return true
		}
	}
	return false
}
