package response

import (
	"strings"
	"unicode"
)

// Directive is one parsed line of a response script.
type Directive struct {
	// Word is the verb exactly as written.
	Word string
	Verb Verb
	// Params is the remainder of the line after the verb, trimmed.
	Params string
}

// ParseDirective splits a response line into its verb and parameters.
func ParseDirective(line string) Directive {
	word, params := nextToken(line)
	return Directive{
		Word:   word,
		Verb:   ParseVerb(word),
		Params: params,
	}
}

// nextToken returns the first whitespace-delimited token of s and the trimmed remainder.
func nextToken(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}
