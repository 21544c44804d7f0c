package pdf

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type xrefEntry struct {
	offset     int64
	generation int
	free       bool

	// Set when the object lives inside an object stream.
	compressed bool
	streamObj  int
	streamIdx  int
}

type xrefTable struct {
	entries map[int]xrefEntry
	trailer DictionaryObject
}

// parseXRef walks the xref chain from the trailing startxref pointer,
// handling both classic tables and cross-reference streams.
func parseXRef(rs io.ReadSeeker) (*xrefTable, error) {
	table := &xrefTable{
		entries: make(map[int]xrefEntry),
		trailer: make(DictionaryObject),
	}

	next, err := findStartXRef(rs)
	if err != nil {
		return nil, err
	}

	visited := make(map[int64]bool)
	for next != 0 && !visited[next] {
		visited[next] = true

		if _, err := rs.Seek(next, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek to xref at %d: %w", next, err)
		}
		sig := make([]byte, 4)
		if _, err := io.ReadFull(rs, sig); err != nil {
			return nil, fmt.Errorf("read xref signature: %w", err)
		}
		if _, err := rs.Seek(next, io.SeekStart); err != nil {
			return nil, err
		}

		var (
			prev int64
			tr   DictionaryObject
		)
		if string(sig) == "xref" {
			prev, tr, err = table.readClassic(rs)
		} else {
			prev, tr, err = table.readStream(rs)
		}
		if err != nil {
			return nil, err
		}

		// Earlier sections win: the chain runs newest to oldest.
		for k, v := range tr {
			if _, exists := table.trailer[k]; !exists {
				table.trailer[k] = v
			}
		}
		next = prev
	}

	if _, ok := table.trailer["/Root"]; !ok {
		return nil, errors.New("invalid PDF: missing /Root in trailer")
	}
	return table, nil
}

// findStartXRef locates the startxref offset in the file tail.
func findStartXRef(rs io.ReadSeeker) (int64, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	n := int64(1024)
	if size < n {
		n = size
	}
	if _, err := rs.Seek(-n, io.SeekEnd); err != nil {
		return 0, err
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(rs, buf); err != nil {
		return 0, err
	}

	idx := bytes.LastIndex(buf, []byte("startxref"))
	if idx == -1 {
		return 0, errors.New("startxref not found")
	}
	tail := strings.TrimSpace(string(buf[idx+len("startxref"):]))
	end := 0
	for end < len(tail) && tail[end] >= '0' && tail[end] <= '9' {
		end++
	}
	return strconv.ParseInt(tail[:end], 10, 64)
}

func (t *xrefTable) readClassic(rs io.ReadSeeker) (int64, DictionaryObject, error) {
	var kw [4]byte
	rs.Read(kw[:]) // "xref"

	lexer := NewLexer(rs)
	for {
		lexer.skipWhitespace()
		peek, err := lexer.reader.Peek(7)
		if (err == nil || err == io.EOF) && strings.HasPrefix(string(peek), "trailer") {
			lexer.reader.Discard(len("trailer"))
			break
		}

		startObj, err := lexer.ReadObject()
		if err != nil {
			return 0, nil, fmt.Errorf("read xref subsection start: %w", err)
		}
		countObj, err := lexer.ReadObject()
		if err != nil {
			return 0, nil, fmt.Errorf("read xref subsection count: %w", err)
		}
		start, ok1 := startObj.(NumberObject)
		count, ok2 := countObj.(NumberObject)
		if !ok1 || !ok2 {
			return 0, nil, errors.New("malformed xref subsection header")
		}
		lexer.skipWhitespace()

		// Fixed 20-byte entry lines. Read through the lexer's buffer, it is
		// already ahead of the underlying seeker.
		line := make([]byte, 20)
		for i := range int(count) {
			if _, err := io.ReadFull(lexer.reader, line); err != nil {
				return 0, nil, err
			}
			offset, _ := strconv.ParseInt(string(line[:10]), 10, 64)
			gen, _ := strconv.Atoi(strings.TrimSpace(string(line[11:16])))

			id := int(start) + i
			if _, exists := t.entries[id]; !exists {
				t.entries[id] = xrefEntry{
					offset:     offset,
					generation: gen,
					free:       line[17] == 'f',
				}
			}
		}
	}

	obj, err := lexer.ReadObject()
	if err != nil {
		return 0, nil, err
	}
	tr, ok := obj.(DictionaryObject)
	if !ok {
		return 0, nil, errors.New("expected trailer dictionary")
	}

	var prev int64
	if p, ok := tr["/Prev"].(NumberObject); ok {
		prev = int64(p)
	}
	return prev, tr, nil
}

func (t *xrefTable) readStream(rs io.ReadSeeker) (int64, DictionaryObject, error) {
	lexer := NewLexer(rs)

	// Skip the "n g obj" header; xref streams are indirect objects.
	for range 3 {
		if _, err := lexer.ReadObject(); err != nil {
			return 0, nil, fmt.Errorf("read xref stream header: %w", err)
		}
	}

	obj, err := lexer.ReadObject()
	if err != nil {
		return 0, nil, fmt.Errorf("read xref stream dictionary: %w", err)
	}
	dict, ok := obj.(DictionaryObject)
	if !ok {
		return 0, nil, fmt.Errorf("expected xref stream dictionary, got %T", obj)
	}
	if typ, ok := dict["/Type"]; !ok || typ.String() != "/XRef" {
		return 0, nil, errors.New("object at startxref is not an XRef stream")
	}

	length, ok := dict["/Length"].(NumberObject)
	if !ok {
		return 0, nil, errors.New("xref stream missing /Length")
	}
	wArr, ok := dict["/W"].(ArrayObject)
	if !ok || len(wArr) != 3 {
		return 0, nil, errors.New("xref stream has invalid /W")
	}
	w := [3]int{int(number(wArr[0])), int(number(wArr[1])), int(number(wArr[2]))}
	stride := w[0] + w[1] + w[2]

	var index []int
	if idx, ok := dict["/Index"].(ArrayObject); ok {
		for _, v := range idx {
			index = append(index, int(number(v)))
		}
	} else if size, ok := dict["/Size"].(NumberObject); ok {
		index = []int{0, int(size)}
	}

	lexer.skipWhitespace()
	if peek, _ := lexer.reader.Peek(6); string(peek) == "stream" {
		lexer.reader.Discard(6)
	}
	lexer.skipWhitespace()

	compressed := make([]byte, int(length))
	if _, err := io.ReadFull(lexer.reader, compressed); err != nil {
		return 0, nil, fmt.Errorf("read xref stream data: %w", err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return 0, nil, err
	}
	decoded, err := io.ReadAll(zr)
	zr.Close()
	if err != nil {
		return 0, nil, err
	}

	predictor, columns := 1, stride
	if params, ok := dict["/DecodeParms"].(DictionaryObject); ok {
		if p, ok := params["/Predictor"].(NumberObject); ok {
			predictor = int(p)
		}
		if c, ok := params["/Columns"].(NumberObject); ok {
			columns = int(c)
		}
	}
	if predictor >= 10 {
		decoded, err = undoPNGPredictor(decoded, columns, 1)
		if err != nil {
			return 0, nil, err
		}
	}

	r := bytes.NewReader(decoded)
	for i := 0; i+1 < len(index); i += 2 {
		start, count := index[i], index[i+1]
		for j := range count {
			f1 := readField(r, w[0])
			f2 := readField(r, w[1])
			f3 := readField(r, w[2])
			if w[0] == 0 {
				f1 = 1 // default type is in-use
			}

			id := start + j
			if _, exists := t.entries[id]; exists {
				continue
			}
			switch f1 {
			case 0:
				t.entries[id] = xrefEntry{free: true, generation: int(f3)}
			case 1:
				t.entries[id] = xrefEntry{offset: f2, generation: int(f3)}
			case 2:
				t.entries[id] = xrefEntry{compressed: true, streamObj: int(f2), streamIdx: int(f3)}
			}
		}
	}

	var prev int64
	if p, ok := dict["/Prev"].(NumberObject); ok {
		prev = int64(p)
	}
	return prev, dict, nil
}

// readField reads width bytes as a big-endian integer; width 0 yields 0.
func readField(r io.Reader, width int) int64 {
	if width == 0 {
		return 0
	}
	buf := make([]byte, width)
	io.ReadFull(r, buf)

	var v int64
	for _, b := range buf {
		v = v<<8 | int64(b)
	}
	return v
}

// undoPNGPredictor reverses PNG row filters (predictors 10-15). Each row is
// columns+1 bytes, the first being the filter tag. bpp is the byte distance
// to the left neighbor: 1 for xref fields, the component count for 8-bit
// image samples.
func undoPNGPredictor(data []byte, columns, bpp int) ([]byte, error) {
	if columns <= 0 || bpp <= 0 {
		return nil, fmt.Errorf("invalid predictor geometry %dx%d", columns, bpp)
	}
	rowSize := columns + 1
	rows := len(data) / rowSize
	out := make([]byte, rows*columns)
	prev := make([]byte, columns)

	for i := range rows {
		tag := data[i*rowSize]
		row := data[i*rowSize+1 : (i+1)*rowSize]
		dst := out[i*columns : (i+1)*columns]

		switch tag {
		case 0: // None
			copy(dst, row)
		case 1: // Sub
			for x := range columns {
				var left byte
				if x >= bpp {
					left = dst[x-bpp]
				}
				dst[x] = row[x] + left
			}
		case 2: // Up
			for x := range columns {
				dst[x] = row[x] + prev[x]
			}
		case 3: // Average
			for x := range columns {
				var left byte
				if x >= bpp {
					left = dst[x-bpp]
				}
				dst[x] = row[x] + byte((int(left)+int(prev[x]))/2)
			}
		case 4: // Paeth
			for x := range columns {
				var left, upLeft byte
				if x >= bpp {
					left = dst[x-bpp]
					upLeft = prev[x-bpp]
				}
				dst[x] = row[x] + byte(paeth(int(left), int(prev[x]), int(upLeft)))
			}
		default:
			copy(dst, row)
		}
		copy(prev, dst)
	}
	return out, nil
}

func paeth(a, b, c int) int {
	p := a + b - c
	pa, pb, pc := abs(p-a), abs(p-b), abs(p-c)
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
