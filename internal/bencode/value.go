package bencode

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind is the variant held by a Value.
type Kind uint8

const (
	Invalid Kind = iota
	Integer
	Bytes
	List
	Dict
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Bytes:
		return "bytes"
	case List:
		return "list"
	case Dict:
		return "dict"
	default:
		return "invalid"
	}
}

// Value is a decoded bencode value: an integer, a byte string, a list or a
// dictionary. The decoder never touches a tree after returning it. Bytes and
// List hand out the underlying slices, so callers that share a tree must
// treat them as read-only.
type Value struct {
	kind Kind
	n    int64
	b    []byte
	list []Value
	dict *Dictionary
}

// NewInt returns an Integer value.
func NewInt(n int64) Value { return Value{kind: Integer, n: n} }

// NewBytes returns a Bytes value that takes ownership of b.
func NewBytes(b []byte) Value { return Value{kind: Bytes, b: b} }

// NewString returns a Bytes value holding s.
func NewString(s string) Value { return Value{kind: Bytes, b: []byte(s)} }

// NewList returns a List value over vs.
func NewList(vs ...Value) Value { return Value{kind: List, list: vs} }

// NewDict returns a Dict value over d.
func NewDict(d *Dictionary) Value { return Value{kind: Dict, dict: d} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// Int returns the integer payload; ok is false for other kinds.
func (v Value) Int() (int64, bool) {
	return v.n, v.kind == Integer
}

// Bytes returns the byte string payload without copying it.
func (v Value) Bytes() ([]byte, bool) {
	return v.b, v.kind == Bytes
}

// Str returns a byte string payload converted to a Go string.
func (v Value) Str() (string, bool) {
	if v.kind != Bytes {
		return "", false
	}
	return string(v.b), true
}

// List returns the list elements without copying them.
func (v Value) List() ([]Value, bool) {
	return v.list, v.kind == List
}

// Dict returns the dictionary payload.
func (v Value) Dict() (*Dictionary, bool) {
	return v.dict, v.kind == Dict && v.dict != nil
}

// Lookup follows a chain of dictionary keys, e.g. Lookup("info", "name").
func (v Value) Lookup(path ...string) (Value, bool) {
	cur := v
	for _, key := range path {
		d, ok := cur.Dict()
		if !ok {
			return Value{}, false
		}
		if cur, ok = d.Get(key); !ok {
			return Value{}, false
		}
	}
	return cur, true
}

// Equal reports whether two trees are structurally equal. Dictionary key
// order is not significant.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Integer:
		return a.n == b.n
	case Bytes:
		return bytes.Equal(a.b, b.b)
	case List:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case Dict:
		if a.dict.Len() != b.dict.Len() {
			return false
		}
		equal := true
		a.dict.Range(func(key string, e Value) bool {
			other, ok := b.dict.Get(key)
			equal = ok && Equal(e, other)
			return equal
		})
		return equal
	}
	return true
}

// String renders v for humans: integers in decimal, printable byte strings
// quoted, binary strings as a length and hex prefix.
func (v Value) String() string {
	var sb strings.Builder
	v.format(&sb)
	return sb.String()
}

const binaryPreview = 8

func (v Value) format(sb *strings.Builder) {
	switch v.kind {
	case Integer:
		sb.WriteString(strconv.FormatInt(v.n, 10))
	case Bytes:
		formatBytes(sb, v.b)
	case List:
		sb.WriteByte('[')
		for i, e := range v.list {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.format(sb)
		}
		sb.WriteByte(']')
	case Dict:
		sb.WriteByte('{')
		first := true
		v.dict.Range(func(key string, e Value) bool {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			formatBytes(sb, []byte(key))
			sb.WriteString(": ")
			e.format(sb)
			return true
		})
		sb.WriteByte('}')
	default:
		sb.WriteString("<invalid>")
	}
}

func formatBytes(sb *strings.Builder, b []byte) {
	if printable(b) {
		sb.WriteString(strconv.Quote(string(b)))
		return
	}
	sb.WriteString("<" + strconv.Itoa(len(b)) + " bytes ")
	if len(b) > binaryPreview {
		sb.WriteString(hex.EncodeToString(b[:binaryPreview]))
		sb.WriteString("...")
	} else {
		sb.WriteString(hex.EncodeToString(b))
	}
	sb.WriteByte('>')
}

func printable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) && r != ' ' {
			return false
		}
	}
	return true
}

// Dictionary maps byte-string keys to values, remembering the order in
// which keys first appeared in the input.
type Dictionary struct {
	keys   []string
	values []Value
	index  map[string]int
}

// NewDictionary returns an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{index: make(map[string]int)}
}

// Set inserts or replaces key. A replaced key keeps its original position.
func (d *Dictionary) Set(key string, v Value) {
	if i, ok := d.index[key]; ok {
		d.values[i] = v
		return
	}
	d.index[key] = len(d.keys)
	d.keys = append(d.keys, key)
	d.values = append(d.values, v)
}

// Get returns the value stored under key.
func (d *Dictionary) Get(key string) (Value, bool) {
	if d == nil {
		return Value{}, false
	}
	i, ok := d.index[key]
	if !ok {
		return Value{}, false
	}
	return d.values[i], true
}

// Len returns the number of distinct keys.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Keys returns the keys in first-seen order.
func (d *Dictionary) Keys() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Range calls fn for every entry in first-seen order until fn returns false.
func (d *Dictionary) Range(fn func(key string, v Value) bool) {
	if d == nil {
		return
	}
	for i, k := range d.keys {
		if !fn(k, d.values[i]) {
			return
		}
	}
}
