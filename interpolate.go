package fragcache

import (
	"bytes"
	"fmt"
)

// Substitution replaces every occurrence of Token with fmt.Sprint(Value).
type Substitution struct {
	Token string
	Value any
}

// Interpolation is an ordered list of substitutions. Tokens should not occur
// inside earlier replacement values; that is not checked.
type Interpolation []Substitution

// Interpolate applies subs to content in order and returns the result.
// content is never modified. Tokens that do not occur are ignored.
func Interpolate(content []byte, subs Interpolation) []byte {
	if len(subs) == 0 {
		return content
	}
	out := content
	for _, s := range subs {
		if s.Token == "" {
			continue
		}
		tok := []byte(s.Token)
		if !bytes.Contains(out, tok) {
			continue
		}
		out = bytes.ReplaceAll(out, tok, []byte(fmt.Sprint(s.Value)))
	}
	return out
}
