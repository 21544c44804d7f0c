package pdf

import (
	"fmt"
	"strconv"
	"strings"
)

// Object is any value from the PDF object model.
type Object interface {
	String() string
}

type NullObject struct{}

func (NullObject) String() string { return "null" }

type BooleanObject bool

func (b BooleanObject) String() string { return strconv.FormatBool(bool(b)) }

// NumberObject holds both integers and reals.
type NumberObject float64

func (n NumberObject) String() string { return strconv.FormatFloat(float64(n), 'g', -1, 64) }

// NameObject keeps its leading slash, e.g. "/Image".
type NameObject string

func (n NameObject) String() string { return string(n) }

// StringObject is a literal string, escapes already resolved.
type StringObject string

func (s StringObject) String() string { return "(" + string(s) + ")" }

// HexStringObject is an undecoded hex string body.
type HexStringObject []byte

func (h HexStringObject) String() string { return "<" + string(h) + ">" }

// KeywordObject is a bare keyword: obj, stream, endobj, or a content stream
// operator like cm or Do.
type KeywordObject string

func (k KeywordObject) String() string { return string(k) }

type ArrayObject []Object

func (a ArrayObject) String() string {
	parts := make([]string, len(a))
	for i, o := range a {
		parts[i] = o.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

type DictionaryObject map[string]Object

func (d DictionaryObject) String() string {
	var sb strings.Builder
	sb.WriteString("<<")
	for k, v := range d {
		sb.WriteString(k)
		sb.WriteString(" ")
		sb.WriteString(v.String())
		sb.WriteString(" ")
	}
	sb.WriteString(">>")
	return sb.String()
}

// IndirectObject is a reference "n g R".
type IndirectObject struct {
	ObjectNumber int
	Generation   int
}

func (r IndirectObject) String() string {
	return fmt.Sprintf("%d %d R", r.ObjectNumber, r.Generation)
}

// StreamObject pairs a stream dictionary with its data. Data has been run
// through FlateDecode when that filter was present; all other filters leave
// the bytes as stored.
type StreamObject struct {
	Dictionary DictionaryObject
	Data       []byte
}

func (s StreamObject) String() string {
	return fmt.Sprintf("%s stream[%d]", s.Dictionary.String(), len(s.Data))
}

func number(o Object) float64 {
	if n, ok := o.(NumberObject); ok {
		return float64(n)
	}
	return 0
}
