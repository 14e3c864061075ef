package fragcache

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/unkn0wn-root/fragcache/internal/keys"
)

// fragmentKey derives the physical key for a single fragment.
// blank reports a key that must bypass caching (empty string or descriptor).
func (m *manager[D]) fragmentKey(key any) (storageKey string, blank bool, err error) {
	var s string
	switch k := key.(type) {
	case nil:
		return "", true, nil
	case string:
		s = k
	case Params:
		if len(k) == 0 {
			return "", true, nil
		}
		s = m.canonicalize(k)
	case map[string]string:
		if len(k) == 0 {
			return "", true, nil
		}
		s = m.canonicalize(Params(k))
	case *regexp.Regexp:
		return "", false, fmt.Errorf("%w: pattern keys are only accepted by Expire", ErrInvalidKey)
	case fmt.Stringer:
		s = k.String()
	default:
		return "", false, fmt.Errorf("%w: unsupported key type %T", ErrInvalidKey, key)
	}
	if strings.TrimSpace(s) == "" {
		return "", true, nil
	}
	if strings.HasPrefix(s, reservedNS) {
		return "", false, fmt.Errorf("%w: %q is in the reserved %q namespace", ErrInvalidKey, s, reservedNS)
	}
	return m.physical(s), false, nil
}

// reservedNS holds group blobs and hashed long keys under the prefix.
// Fragment keys may not start with it.
const reservedNS = "_/"

func (m *manager[D]) physical(s string) string {
	k := m.prefix + s
	if len(k) > m.maxKeyLen {
		return keys.Hashed(m.prefix+reservedNS+"h", s)
	}
	return k
}

func (m *manager[D]) groupKey(group string) string {
	k := m.prefix + reservedNS + "group/" + group
	if len(k) > m.maxKeyLen {
		return keys.Hashed(m.prefix+reservedNS+"gh", group)
	}
	return k
}
