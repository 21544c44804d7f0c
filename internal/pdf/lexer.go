package pdf

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Lexer tokenizes PDF syntax into Objects. It is used for both body objects
// and content streams; content stream operators surface as KeywordObjects.
type Lexer struct {
	reader *bufio.Reader
}

func NewLexer(r io.Reader) *Lexer {
	return &Lexer{reader: bufio.NewReader(r)}
}

// ReadObject parses the next object from the stream.
func (l *Lexer) ReadObject() (Object, error) {
	l.skipWhitespace()

	b, err := l.reader.Peek(1)
	if err != nil {
		return nil, err
	}

	switch tok := b[0]; {
	case tok == '/':
		return l.readName()
	case tok == '(':
		return l.readString()
	case tok == '<':
		peek, _ := l.reader.Peek(2)
		if len(peek) == 2 && peek[1] == '<' {
			return l.readDictionary()
		}
		return l.readHexString()
	case tok == '[':
		return l.readArray()
	case tok == '%':
		// Comment runs to end of line.
		l.reader.ReadByte()
		l.reader.ReadLine()
		return l.ReadObject()
	case tok == '\'' || tok == '"':
		l.reader.ReadByte()
		return KeywordObject(tok), nil
	case isDigit(tok) || tok == '-' || tok == '+' || tok == '.':
		return l.readNumberOrReference()
	case isAlpha(tok):
		return l.readKeyword()
	default:
		return nil, fmt.Errorf("unexpected token %q", tok)
	}
}

func (l *Lexer) skipWhitespace() {
	for {
		b, err := l.reader.Peek(1)
		if err != nil || !isWhitespace(b[0]) {
			return
		}
		l.reader.ReadByte()
	}
}

func (l *Lexer) readName() (NameObject, error) {
	l.reader.ReadByte() // '/'
	var sb strings.Builder
	sb.WriteByte('/')
	for {
		b, err := l.reader.Peek(1)
		if err != nil || isDelimiter(b[0]) || isWhitespace(b[0]) {
			break
		}
		l.reader.ReadByte()
		if b[0] == '#' {
			// #xx hex escape inside a name
			hex := make([]byte, 2)
			io.ReadFull(l.reader, hex)
			val, _ := strconv.ParseInt(string(hex), 16, 32)
			sb.WriteByte(byte(val))
			continue
		}
		sb.WriteByte(b[0])
	}
	return NameObject(sb.String()), nil
}

func (l *Lexer) readString() (StringObject, error) {
	l.reader.ReadByte() // '('
	var sb strings.Builder
	depth := 1
	for {
		b, err := l.reader.ReadByte()
		if err != nil {
			return "", err
		}
		switch b {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return StringObject(sb.String()), nil
			}
		case '\\':
			next, err := l.reader.ReadByte()
			if err != nil {
				return "", err
			}
			switch next {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case '0', '1', '2', '3', '4', '5', '6', '7':
				// Octal escape, up to three digits.
				oct := string(next)
				for range 2 {
					peek, err := l.reader.Peek(1)
					if err != nil || peek[0] < '0' || peek[0] > '7' {
						break
					}
					d, _ := l.reader.ReadByte()
					oct += string(d)
				}
				val, _ := strconv.ParseInt(oct, 8, 32)
				sb.WriteByte(byte(val))
			default:
				sb.WriteByte(next)
			}
			continue
		}
		sb.WriteByte(b)
	}
}

func (l *Lexer) readHexString() (HexStringObject, error) {
	l.reader.ReadByte() // '<'
	var data []byte
	for {
		b, err := l.reader.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == '>' {
			return HexStringObject(data), nil
		}
		if !isWhitespace(b) {
			data = append(data, b)
		}
	}
}

func (l *Lexer) readArray() (ArrayObject, error) {
	l.reader.ReadByte() // '['
	var arr ArrayObject
	for {
		l.skipWhitespace()
		b, err := l.reader.Peek(1)
		if err != nil {
			return nil, err
		}
		if b[0] == ']' {
			l.reader.ReadByte()
			return arr, nil
		}
		obj, err := l.ReadObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (l *Lexer) readDictionary() (DictionaryObject, error) {
	l.reader.Discard(2) // '<<'
	dict := make(DictionaryObject)
	for {
		l.skipWhitespace()
		b, err := l.reader.Peek(2)
		if err != nil && err != io.EOF {
			return nil, err
		}
		if len(b) >= 2 && string(b[:2]) == ">>" {
			l.reader.Discard(2)
			return dict, nil
		}

		keyObj, err := l.ReadObject()
		if err != nil {
			return nil, err
		}
		key, ok := keyObj.(NameObject)
		if !ok {
			return nil, fmt.Errorf("dictionary key must be a name, got %T", keyObj)
		}
		val, err := l.ReadObject()
		if err != nil {
			return nil, err
		}
		dict[string(key)] = val
	}
}

// readNumberOrReference reads a number, upgrading "n g R" token runs to an
// indirect reference. The lookahead respects delimiters so that a bare "0"
// followed by a name is not mistaken for a reference.
func (l *Lexer) readNumberOrReference() (Object, error) {
	numTok, err := l.readToken()
	if err != nil {
		return nil, err
	}

	l.skipWhitespace()
	peek, _ := l.reader.Peek(24)

	idx := 0
	gen := ""
	for idx < len(peek) && isDigit(peek[idx]) {
		gen += string(peek[idx])
		idx++
	}
	if gen == "" || idx >= len(peek) || !isWhitespace(peek[idx]) {
		return makeNumber(numTok), nil
	}
	for idx < len(peek) && isWhitespace(peek[idx]) {
		idx++
	}
	if idx >= len(peek) || peek[idx] != 'R' {
		return makeNumber(numTok), nil
	}
	if idx+1 < len(peek) {
		after := peek[idx+1]
		if !isWhitespace(after) && !isDelimiter(after) {
			return makeNumber(numTok), nil
		}
	}

	// Confirmed "n g R"; consume the peeked tokens for real.
	l.readToken()
	l.skipWhitespace()
	l.readToken()

	objNum, _ := strconv.Atoi(numTok)
	genNum, _ := strconv.Atoi(gen)
	return IndirectObject{ObjectNumber: objNum, Generation: genNum}, nil
}

func makeNumber(s string) NumberObject {
	if strings.ContainsAny(s, ".eE") {
		f, _ := strconv.ParseFloat(s, 64)
		return NumberObject(f)
	}
	i, _ := strconv.Atoi(s)
	return NumberObject(float64(i))
}

func (l *Lexer) readKeyword() (Object, error) {
	tok, err := l.readToken()
	if err != nil {
		return nil, err
	}
	switch tok {
	case "true":
		return BooleanObject(true), nil
	case "false":
		return BooleanObject(false), nil
	case "null":
		return NullObject{}, nil
	}
	return KeywordObject(tok), nil
}

func (l *Lexer) readToken() (string, error) {
	var sb strings.Builder
	for {
		b, err := l.reader.Peek(1)
		if err != nil {
			if sb.Len() > 0 {
				break
			}
			return "", err
		}
		if isDelimiter(b[0]) || isWhitespace(b[0]) {
			break
		}
		l.reader.ReadByte()
		sb.WriteByte(b[0])
	}
	return sb.String(), nil
}

// skipInlineImage consumes inline image data up to and including the EI
// marker. Called after the ID operator has been read.
func (l *Lexer) skipInlineImage() error {
	// One whitespace byte separates ID from the data.
	if b, err := l.reader.Peek(1); err == nil && isWhitespace(b[0]) {
		l.reader.ReadByte()
	}

	prev := byte(0)
	for {
		b, err := l.reader.ReadByte()
		if err != nil {
			return err
		}
		if b != 'E' {
			prev = b
			continue
		}
		next, err := l.reader.Peek(1)
		if err == nil && next[0] == 'I' && isWhitespace(prev) {
			after, err2 := l.reader.Peek(2)
			if err2 != nil || len(after) < 2 || isWhitespace(after[1]) || isDelimiter(after[1]) {
				l.reader.ReadByte() // consume 'I'
				return nil
			}
		}
		prev = b
	}
}

func isWhitespace(b byte) bool {
	return b == 0x00 || b == 0x09 || b == 0x0A || b == 0x0C || b == 0x0D || b == 0x20
}

func isDelimiter(b byte) bool {
	return bytes.IndexByte([]byte("()<>[]{}/%"), b) != -1
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
