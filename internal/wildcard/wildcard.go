// Package wildcard compiles a simple shell-style pattern ('*' matches
// any run of characters, '?' matches exactly one) into an anchored
// regexp, in the manner of rclone's fs.globToRegexp but reduced to the
// subset spec.md's shutdown/find patterns actually need: no brace
// expansion, no character classes.
package wildcard

import (
	"regexp"
	"strings"
)

// Compile translates pattern into an anchored *regexp.Regexp.
func Compile(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			if strings.ContainsRune(`\.+()|[]{}^$`, rune(c)) {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
		}
	}
	b.WriteByte('$')
	return regexp.Compile(b.String())
}

// Match reports whether s matches pattern, treating an invalid
// pattern as matching nothing.
func Match(pattern, s string) bool {
	re, err := Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}
