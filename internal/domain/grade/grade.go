// Package grade validates SecurityScorecard letter grades.
package grade

import "strings"

// Normalize returns the upper-case letter for a grade between A and F
// (case-insensitive, surrounding space ignored). ok is false otherwise.
func Normalize(g string) (string, bool) {
	g = strings.TrimSpace(g)
	if len(g) != 1 {
		return "", false
	}
	c := g[0] | 0x20 // ASCII lower
	if c < 'a' || c > 'f' {
		return "", false
	}
	return string(c - 0x20), true
}
