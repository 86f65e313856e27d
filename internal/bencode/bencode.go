// Package bencode decodes the bencode serialization used by .torrent files
// and tracker responses.
package bencode

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// DefaultMaxDepth bounds list and dictionary nesting when Decoder.MaxDepth
// is not set.
const DefaultMaxDepth = 200

// Decoder holds decoding limits. The zero value is ready to use and is safe
// for concurrent use: each call keeps its own cursor.
type Decoder struct {
	// MaxDepth is the deepest list/dictionary nesting accepted.
	// Zero or negative means DefaultMaxDepth.
	MaxDepth int
	// MaxStringLen rejects byte strings claiming more than this many
	// bytes. Zero or negative means bounded only by the input.
	MaxStringLen int
}

var defaultDecoder Decoder

// DecodeAll decodes every top-level value in data, in order. A bencode
// stream may hold several concatenated values; an empty input yields none.
func DecodeAll(data []byte) ([]Value, error) {
	return defaultDecoder.DecodeAll(data)
}

// DecodeValue decodes the single value starting at offset and returns it
// with the offset just past its encoding.
func DecodeValue(data []byte, offset int) (Value, int, error) {
	return defaultDecoder.DecodeValue(data, offset)
}

// DecodeWithInfo decodes the first top-level value, assumed to be a torrent
// root dict. It also returns the raw bencoded bytes of the "info" dict value,
// for computing the info hash. If the root is not a dict or has no "info"
// key, infoRaw is nil.
func DecodeWithInfo(data []byte) (value Value, infoRaw []byte, err error) {
	return defaultDecoder.DecodeWithInfo(data)
}

// DecodeAll is the package DecodeAll under dec's limits.
func (dec Decoder) DecodeAll(data []byte) ([]Value, error) {
	d := dec.newState(data)
	values := []Value{}
	for d.pos < len(d.data) {
		v, err := d.decode()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// DecodeValue is the package DecodeValue under dec's limits.
func (dec Decoder) DecodeValue(data []byte, offset int) (Value, int, error) {
	if offset < 0 || offset >= len(data) {
		return Value{}, offset, endOfInput(offset)
	}
	d := dec.newState(data)
	d.pos = offset
	v, err := d.decode()
	if err != nil {
		return Value{}, offset, err
	}
	return v, d.pos, nil
}

// DecodeWithInfo is the package DecodeWithInfo under dec's limits.
func (dec Decoder) DecodeWithInfo(data []byte) (Value, []byte, error) {
	if len(data) == 0 {
		return Value{}, nil, endOfInput(0)
	}
	d := dec.newState(data)
	d.captureInfo = true
	v, err := d.decode()
	if err != nil {
		return Value{}, nil, err
	}
	return v, d.infoRaw, nil
}

func (dec Decoder) newState(data []byte) *decodeState {
	maxDepth := dec.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &decodeState{data: data, maxDepth: maxDepth, maxStringLen: dec.MaxStringLen}
}

func endOfInput(offset int) error {
	return &DecodeError{Kind: UnexpectedByte, Offset: offset, Err: io.ErrUnexpectedEOF}
}

// decodeState is the per-call cursor. pos only moves forward.
type decodeState struct {
	data         []byte
	pos          int
	depth        int
	maxDepth     int
	maxStringLen int
	captureInfo  bool
	infoRaw      []byte
}

func (d *decodeState) decode() (Value, error) {
	if d.pos >= len(d.data) {
		return Value{}, endOfInput(d.pos)
	}
	switch c := d.data[d.pos]; {
	case c == 'd':
		return d.decodeDict()
	case c == 'i':
		return d.decodeInt()
	case c == 'l':
		return d.decodeList()
	case c >= '0' && c <= '9':
		b, err := d.decodeString()
		if err != nil {
			return Value{}, err
		}
		return NewBytes(b), nil
	default:
		return Value{}, errAt(UnexpectedByte, d.pos)
	}
}

func (d *decodeState) enter(offset int) error {
	d.depth++
	if d.depth > d.maxDepth {
		return errAt(DepthExceeded, offset)
	}
	return nil
}

func (d *decodeState) decodeDict() (Value, error) {
	start := d.pos
	if d.data[start] != 'd' {
		return Value{}, errAt(MalformedDictionary, start)
	}
	topLevel := d.depth == 0
	if err := d.enter(start); err != nil {
		return Value{}, err
	}
	d.pos++
	dict := NewDictionary()
	for d.pos < len(d.data) {
		if d.data[d.pos] == 'e' {
			d.pos++
			d.depth--
			return NewDict(dict), nil
		}
		key, err := d.decodeString()
		if err != nil {
			return Value{}, err
		}
		if d.pos >= len(d.data) {
			break
		}
		valueStart := d.pos
		v, err := d.decode()
		if err != nil {
			return Value{}, err
		}
		if d.captureInfo && topLevel && string(key) == "info" {
			d.infoRaw = make([]byte, d.pos-valueStart)
			copy(d.infoRaw, d.data[valueStart:d.pos])
		}
		// Duplicate keys are not rejected; the last one wins.
		dict.Set(string(key), v)
	}
	return Value{}, errAt(UnterminatedDictionary, start)
}

func (d *decodeState) decodeList() (Value, error) {
	start := d.pos
	if d.data[start] != 'l' {
		return Value{}, errAt(MalformedList, start)
	}
	if err := d.enter(start); err != nil {
		return Value{}, err
	}
	d.pos++
	list := []Value{}
	for d.pos < len(d.data) {
		if d.data[d.pos] == 'e' {
			d.pos++
			d.depth--
			return NewList(list...), nil
		}
		v, err := d.decode()
		if err != nil {
			return Value{}, err
		}
		list = append(list, v)
	}
	return Value{}, errAt(UnterminatedList, start)
}

func (d *decodeState) decodeInt() (Value, error) {
	start := d.pos
	if d.data[start] != 'i' {
		return Value{}, errAt(MalformedInteger, start)
	}
	end := bytes.IndexByte(d.data[start+1:], 'e')
	if end < 0 {
		return Value{}, errAt(UnterminatedInteger, start)
	}
	end += start + 1
	n, err := parseInt(d.data[start+1 : end])
	if err != nil {
		return Value{}, &DecodeError{Kind: InvalidIntegerLiteral, Offset: start, Err: err}
	}
	d.pos = end + 1
	return NewInt(n), nil
}

func (d *decodeState) decodeString() ([]byte, error) {
	start := d.pos
	colon := bytes.IndexByte(d.data[start:], ':')
	if colon < 0 {
		return nil, errAt(MalformedString, start)
	}
	colon += start
	text := d.data[start:colon]
	if !allDigits(text) {
		return nil, &DecodeError{Kind: InvalidLengthLiteral, Offset: start, Err: fmt.Errorf("%q is not a length", text)}
	}
	length, err := strconv.Atoi(string(text))
	if err != nil {
		return nil, &DecodeError{Kind: InvalidLengthLiteral, Offset: start, Err: err}
	}
	if length > len(d.data)-colon-1 {
		return nil, &DecodeError{Kind: TruncatedString, Offset: start, Expected: length}
	}
	if d.maxStringLen > 0 && length > d.maxStringLen {
		return nil, &DecodeError{Kind: StringTooLong, Offset: start, Expected: length}
	}
	buf := make([]byte, length)
	copy(buf, d.data[colon+1:colon+1+length])
	d.pos = colon + 1 + length
	return buf, nil
}

// parseInt accepts an optional minus sign followed by one or more digits.
// Leading zeros and "-0" are tolerated.
func parseInt(text []byte) (int64, error) {
	digits := text
	if len(digits) > 0 && digits[0] == '-' {
		digits = digits[1:]
	}
	if !allDigits(digits) {
		return 0, fmt.Errorf("%q is not a decimal integer", text)
	}
	return strconv.ParseInt(string(text), 10, 64)
}

func allDigits(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
