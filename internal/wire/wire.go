package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	version       byte = 1
	kindPlain     byte = 1
	kindComposite byte = 2
	kindGroup     byte = 3
)

var (
	ErrCorrupt = errors.New("fragcache: corrupt entry")
	magic4     = [...]byte{'F', 'R', 'A', 'G'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Entry is a decoded fragment. Data is only meaningful when Composite is set.
type Entry struct {
	Body      []byte
	Data      []byte
	Composite bool
}

// Plain:     magic(4) | ver(1) | kind(1=plain)     | blen(u32 be) | body(blen)
// Composite: magic(4) | ver(1) | kind(2=composite) | dlen(u32 be) | data(dlen) | blen(u32 be) | body(blen)
func EncodeEntry(e Entry) []byte {
	size := 4 + 1 + 1 + 4 + len(e.Body)
	kind := kindPlain
	if e.Composite {
		size += 4 + len(e.Data)
		kind = kindComposite
	}

	var buf bytes.Buffer
	buf.Grow(size)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kind)

	var u4 [4]byte
	if e.Composite {
		binary.BigEndian.PutUint32(u4[:], uint32(len(e.Data)))
		buf.Write(u4[:])
		buf.Write(e.Data)
	}
	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Body)))
	buf.Write(u4[:])
	buf.Write(e.Body)
	return buf.Bytes()
}

// DecodeEntry returns slices into b (zero-copy).
func DecodeEntry(b []byte) (Entry, error) {
	const hdr = 4 + 1 + 1
	if len(b) < hdr || !hasMagic(b) || b[4] != version {
		return Entry{}, ErrCorrupt
	}
	var e Entry
	off := hdr
	switch b[5] {
	case kindPlain:
	case kindComposite:
		data, next, err := readChunk(b, off)
		if err != nil {
			return Entry{}, err
		}
		e.Data, e.Composite, off = data, true, next
	default:
		return Entry{}, ErrCorrupt
	}

	body, off, err := readChunk(b, off)
	if err != nil {
		return Entry{}, err
	}
	if off != len(b) {
		return Entry{}, ErrCorrupt // trailing bytes
	}
	e.Body = body
	return e, nil
}

// readChunk reads a u32 length-prefixed chunk starting at off.
func readChunk(b []byte, off int) ([]byte, int, error) {
	if off+4 > len(b) {
		return nil, 0, ErrCorrupt
	}
	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if n < 0 || n > len(b)-off { // overflow-safe bound check
		return nil, 0, ErrCorrupt
	}
	return b[off : off+n], off + n, nil
}

// Group (several fragments sharing one backend key):
//
//	magic(4) | ver(1) | kind(3=group) | expiresAt(i64 be) | n(u32 be)
//	keyLen(u16 be) | key(keyLen) | vlen(u32 be) | payload(vlen) * n
//
// expiresAt is unix nanoseconds; 0 means the group never expires.
type Group struct {
	ExpiresAt int64
	Items     []GroupItem
}

// Expired reports whether g carries a deadline at or before now.
func (g Group) Expired(now time.Time) bool {
	return g.ExpiresAt > 0 && now.UnixNano() >= g.ExpiresAt
}

// TTL returns the time left until g expires, or 0 if it has none.
func (g Group) TTL(now time.Time) time.Duration {
	if g.ExpiresAt <= 0 {
		return 0
	}
	return time.Duration(g.ExpiresAt - now.UnixNano())
}

// Payload is an encoded Entry.
type GroupItem struct {
	Key     string
	Payload []byte
}

const groupHeader = 4 + 1 + 1 + 8 + 4

func EncodeGroup(g Group) ([]byte, error) {
	total := groupHeader
	for _, it := range g.Items {
		if l := len(it.Key); l == 0 || l > 0xFFFF {
			return nil, fmt.Errorf("fragcache: invalid key length %d in group", l)
		}
		total += 2 + len(it.Key) + 4 + len(it.Payload)
	}

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindGroup)

	var u8 [8]byte
	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint64(u8[:], uint64(g.ExpiresAt))
	buf.Write(u8[:])
	binary.BigEndian.PutUint32(u4[:], uint32(len(g.Items)))
	buf.Write(u4[:])

	for _, it := range g.Items {
		binary.BigEndian.PutUint16(u2[:], uint16(len(it.Key)))
		buf.Write(u2[:])
		buf.WriteString(it.Key)

		binary.BigEndian.PutUint32(u4[:], uint32(len(it.Payload)))
		buf.Write(u4[:])
		buf.Write(it.Payload)
	}
	return buf.Bytes(), nil
}

func DecodeGroup(b []byte) (Group, error) {
	if len(b) < groupHeader || !hasMagic(b) || b[4] != version || b[5] != kindGroup {
		return Group{}, ErrCorrupt
	}

	off := 6
	exp := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	if exp < 0 {
		return Group{}, ErrCorrupt
	}
	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	// every item needs at least 2+1+4 bytes; reject bogus counts before allocating
	if n < 0 || n > (len(b)-off)/7 {
		return Group{}, ErrCorrupt
	}

	items := make([]GroupItem, 0, n)
	for i := 0; i < n; i++ {
		if off+2 > len(b) {
			return Group{}, ErrCorrupt
		}
		klen := int(binary.BigEndian.Uint16(b[off : off+2]))
		off += 2
		if klen <= 0 || klen > len(b)-off {
			return Group{}, ErrCorrupt
		}
		keyBytes := b[off : off+klen]
		off += klen

		payload, next, err := readChunk(b, off)
		if err != nil {
			return Group{}, err
		}
		off = next

		items = append(items, GroupItem{
			Key:     string(keyBytes),
			Payload: payload,
		})
	}
	if off != len(b) {
		return Group{}, ErrCorrupt
	}
	return Group{ExpiresAt: exp, Items: items}, nil
}

// Lookup returns the payload for key; later duplicates win.
func Lookup(items []GroupItem, key string) ([]byte, bool) {
	var (
		out   []byte
		found bool
	)
	for _, it := range items {
		if it.Key == key {
			out, found = it.Payload, true
		}
	}
	return out, found
}

// Upsert replaces the payload for key in place, or appends it. Duplicates of
// key beyond the first are dropped.
func Upsert(items []GroupItem, key string, payload []byte) []GroupItem {
	out := items[:0]
	replaced := false
	for _, it := range items {
		if it.Key == key {
			if replaced {
				continue
			}
			it.Payload, replaced = payload, true
		}
		out = append(out, it)
	}
	if !replaced {
		out = append(out, GroupItem{Key: key, Payload: payload})
	}
	return out
}

// Remove drops every item stored under key and reports whether one existed.
func Remove(items []GroupItem, key string) ([]GroupItem, bool) {
	out := items[:0]
	removed := false
	for _, it := range items {
		if it.Key == key {
			removed = true
			continue
		}
		out = append(out, it)
	}
	return out, removed
}
