// Package clause reconstructs contract clauses from the flat element list
// produced by the partition service.
package clause

import (
	"regexp"
	"strings"
)

// headingPattern captures a leading dotted section number ("11", "12.3.",
// "4.1") and whatever text follows it.
var headingPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)*)\.?\s*(.*)\s*$`)

// ParseHeading splits a heading into its section number and title. Either
// result is empty when absent:
//
//	"11. Indemnification"   -> "11", "Indemnification"
//	"12.3 Survival"         -> "12.3", "Survival"
//	"Governing Law"         -> "", "Governing Law"
//	"7."                    -> "7", ""
func ParseHeading(header string) (section, title string) {
	h := strings.TrimSpace(header)
	if h == "" {
		return "", ""
	}
	m := headingPattern.FindStringSubmatch(h)
	if m == nil {
		return "", h
	}
	return m[1], strings.TrimSpace(m[2])
}
