package bencode

import "fmt"

// ErrorKind identifies why a decode failed. It implements error so callers
// can match with errors.Is(err, bencode.TruncatedString).
type ErrorKind int

const (
	UnexpectedByte ErrorKind = iota + 1
	MalformedDictionary
	MalformedList
	MalformedInteger
	MalformedString
	UnterminatedDictionary
	UnterminatedList
	UnterminatedInteger
	TruncatedString
	InvalidIntegerLiteral
	InvalidLengthLiteral
	DepthExceeded
	StringTooLong
)

var kindNames = map[ErrorKind]string{
	UnexpectedByte:         "unexpected byte",
	MalformedDictionary:    "not a dictionary",
	MalformedList:          "not a list",
	MalformedInteger:       "not an integer",
	MalformedString:        "malformed string",
	UnterminatedDictionary: "unterminated dictionary",
	UnterminatedList:       "unterminated list",
	UnterminatedInteger:    "unterminated integer",
	TruncatedString:        "truncated string",
	InvalidIntegerLiteral:  "invalid integer literal",
	InvalidLengthLiteral:   "invalid string length",
	DepthExceeded:          "nesting too deep",
	StringTooLong:          "string too long",
}

func (k ErrorKind) Error() string {
	if s, ok := kindNames[k]; ok {
		return "bencode: " + s
	}
	return fmt.Sprintf("bencode: error kind %d", int(k))
}

// DecodeError is returned for every malformed input. Offset is the byte
// position of the value that failed (the opening marker for containers and
// integers, the first length digit for strings).
type DecodeError struct {
	Kind   ErrorKind
	Offset int
	// Expected is the claimed payload length for TruncatedString and
	// StringTooLong.
	Expected int
	// Err is the underlying parse error, if any.
	Err error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("%s at offset %d", e.Kind.Error(), e.Offset)
	switch e.Kind {
	case TruncatedString, StringTooLong:
		msg += fmt.Sprintf(" (length %d)", e.Expected)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func errAt(kind ErrorKind, offset int) *DecodeError {
	return &DecodeError{Kind: kind, Offset: offset}
}
