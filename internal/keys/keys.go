package keys

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Canonical renders params as "k1=v1&k2=v2" with keys sorted and both sides
// query-escaped, so equal descriptors always map to the same string.
func Canonical(params map[string]string) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, k := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

// Hashed returns prefix + ":" + the first 16 hex chars of sha256(s).
// Used to bound the length of canonical keys built from large descriptors.
func Hashed(prefix, s string) string {
	sum := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%s:%x", prefix, sum)[:len(prefix)+1+16]
}
