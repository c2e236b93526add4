// Package parser derives article fields from Markdown bodies.
//
// Nothing here is stored: title and word count are recomputed from the body
// on every read.
package parser

import (
	"regexp"
	"strings"
)

// Untitled is the title of a body without a top-level heading.
const Untitled = "Untitled"

const headingPrefix = "# "

var headingRe = regexp.MustCompile(`(?m)^# (.+)$`)

// Title returns the trimmed text of the first top-level heading line, or
// Untitled when there is none. A first heading holding only whitespace
// yields an empty title; later headings are not consulted.
func Title(body string) string {
	if body == "" {
		return Untitled
	}
	m := headingRe.FindStringSubmatch(body)
	if m == nil {
		return Untitled
	}
	return strings.TrimSpace(m[1])
}

// WordCount returns the number of whitespace-separated tokens in body.
// Markdown markers count as tokens: "# Hello" is two words.
func WordCount(body string) int {
	return len(strings.Fields(body))
}

// RewriteTitle removes every top-level heading line from body and prepends
// a single heading for title followed by a blank line. Other lines keep
// their order.
func RewriteTitle(body, title string) string {
	lines := strings.Split(body, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(line, headingPrefix) {
			continue
		}
		kept = append(kept, line)
	}
	return headingPrefix + title + "\n\n" + strings.Join(kept, "\n")
}
