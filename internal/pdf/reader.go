package pdf

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// ErrEncrypted is returned for password-protected files, which this package
// does not read.
var ErrEncrypted = errors.New("pdf: encrypted file")

// Reader is the entry point for reading a PDF from memory.
type Reader struct {
	rs   io.ReadSeeker
	xref *xrefTable
}

// NewReader parses the xref chain of the document held by rs.
func NewReader(rs io.ReadSeeker) (*Reader, error) {
	xref, err := parseXRef(rs)
	if err != nil {
		return nil, err
	}
	if _, encrypted := xref.trailer["/Encrypt"]; encrypted {
		return nil, ErrEncrypted
	}
	return &Reader{rs: rs, xref: xref}, nil
}

// GetObject resolves an indirect reference to the object it names.
func (r *Reader) GetObject(ref IndirectObject) (Object, error) {
	entry, ok := r.xref.entries[ref.ObjectNumber]
	if !ok {
		return nil, fmt.Errorf("object %d not in xref", ref.ObjectNumber)
	}
	if entry.free {
		return NullObject{}, nil
	}
	if entry.compressed {
		return r.getCompressedObject(entry.streamObj, entry.streamIdx)
	}

	if _, err := r.rs.Seek(entry.offset, io.SeekStart); err != nil {
		return nil, err
	}
	lexer := NewLexer(r.rs)

	// Consume the "n g obj" header.
	for range 3 {
		if _, err := lexer.ReadObject(); err != nil {
			return nil, err
		}
	}

	obj, err := lexer.ReadObject()
	if err != nil {
		return nil, err
	}

	if dict, ok := obj.(DictionaryObject); ok {
		lexer.skipWhitespace()
		if peek, _ := lexer.reader.Peek(6); string(peek) == "stream" {
			return r.readStream(dict, lexer)
		}
	}
	return obj, nil
}

// readStream reads stream data following a dictionary. FlateDecode is
// reversed; any other filter (DCTDecode in particular) leaves the stored
// bytes untouched.
func (r *Reader) readStream(dict DictionaryObject, lexer *Lexer) (StreamObject, error) {
	length, ok := r.Resolve(dict["/Length"]).(NumberObject)
	if !ok {
		return StreamObject{}, errors.New("stream length missing or invalid")
	}

	lexer.reader.Discard(6) // "stream"

	// The data begins immediately after one EOL; skipWhitespace would eat
	// leading binary 0x0A bytes, so consume the EOL by hand.
	b, err := lexer.reader.ReadByte()
	if err != nil {
		return StreamObject{}, err
	}
	switch b {
	case '\r':
		if next, _ := lexer.reader.Peek(1); len(next) > 0 && next[0] == '\n' {
			lexer.reader.ReadByte()
		}
	case '\n':
	default:
		lexer.reader.UnreadByte()
	}

	data := make([]byte, int64(length))
	if _, err := io.ReadFull(lexer.reader, data); err != nil {
		return StreamObject{}, err
	}

	for _, f := range filterNames(r.Resolve(dict["/Filter"])) {
		if f != "/FlateDecode" {
			continue
		}
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			// Possibly not compressed after all; hand back raw bytes.
			break
		}
		inflated, err := io.ReadAll(zr)
		zr.Close()
		if err == nil {
			data = inflated
		}
	}

	return StreamObject{Dictionary: dict, Data: data}, nil
}

func filterNames(obj Object) []string {
	switch v := obj.(type) {
	case NameObject:
		return []string{string(v)}
	case ArrayObject:
		var names []string
		for _, f := range v {
			if n, ok := f.(NameObject); ok {
				names = append(names, string(n))
			}
		}
		return names
	}
	return nil
}

// getCompressedObject extracts an object from an object stream (/Type
// /ObjStm).
func (r *Reader) getCompressedObject(streamObjNum, index int) (Object, error) {
	container, err := r.GetObject(IndirectObject{ObjectNumber: streamObjNum})
	if err != nil {
		return nil, err
	}
	stm, ok := container.(StreamObject)
	if !ok {
		return nil, errors.New("referenced object stream is not a stream")
	}

	n, ok1 := stm.Dictionary["/N"].(NumberObject)
	first, ok2 := stm.Dictionary["/First"].(NumberObject)
	if !ok1 || !ok2 {
		return nil, errors.New("object stream missing /N or /First")
	}

	stmReader := bytes.NewReader(stm.Data)
	header := NewLexer(stmReader)
	offsets := make([]int, int(n))
	for i := range offsets {
		if _, err := header.ReadObject(); err != nil { // object number
			return nil, err
		}
		off, err := header.ReadObject()
		if err != nil {
			return nil, err
		}
		num, ok := off.(NumberObject)
		if !ok {
			return nil, fmt.Errorf("expected offset number, got %T", off)
		}
		offsets[i] = int(num)
	}

	if index < 0 || index >= len(offsets) {
		return nil, fmt.Errorf("object index %d out of range", index)
	}
	stmReader.Seek(int64(int(first)+offsets[index]), io.SeekStart)
	return NewLexer(stmReader).ReadObject()
}

// Resolve follows an indirect reference if obj is one, otherwise returns obj
// unchanged. Unresolvable references collapse to null.
func (r *Reader) Resolve(obj Object) Object {
	ref, ok := obj.(IndirectObject)
	if !ok {
		return obj
	}
	res, err := r.GetObject(ref)
	if err != nil {
		return NullObject{}
	}
	return res
}

// NumPages returns the page count from the catalog.
func (r *Reader) NumPages() int {
	if cat, ok := r.Resolve(r.xref.trailer["/Root"]).(DictionaryObject); ok {
		if pages, ok := r.Resolve(cat["/Pages"]).(DictionaryObject); ok {
			if count, ok := r.Resolve(pages["/Count"]).(NumberObject); ok {
				return int(count)
			}
		}
	}
	return 0
}

// Page holds one resolved page dictionary plus its media box size in points.
type Page struct {
	Index  int // 0-based
	Width  float64
	Height float64

	dict   DictionaryObject
	parent DictionaryObject
}

// GetPage walks the page tree to the 0-indexed page.
func (r *Reader) GetPage(pageIndex int) (*Page, error) {
	cat, ok := r.Resolve(r.xref.trailer["/Root"]).(DictionaryObject)
	if !ok {
		return nil, errors.New("catalog is not a dictionary")
	}
	root, ok := r.Resolve(cat["/Pages"]).(DictionaryObject)
	if !ok {
		return nil, errors.New("page tree root is not a dictionary")
	}

	idx := pageIndex
	dict, err := r.findPage(root, &idx)
	if err != nil {
		return nil, err
	}
	if dict == nil {
		return nil, fmt.Errorf("page %d not found", pageIndex)
	}

	w, h := r.mediaBox(dict)
	return &Page{Index: pageIndex, Width: w, Height: h, dict: dict}, nil
}

func (r *Reader) findPage(node DictionaryObject, target *int) (DictionaryObject, error) {
	if node["/Type"] != nil && node["/Type"].String() == "/Page" {
		if *target == 0 {
			return node, nil
		}
		*target--
		return nil, nil
	}

	kids, ok := r.Resolve(node["/Kids"]).(ArrayObject)
	if !ok {
		return nil, errors.New("pages node missing /Kids")
	}
	for _, kidRef := range kids {
		kid, ok := r.Resolve(kidRef).(DictionaryObject)
		if !ok {
			continue
		}
		if count, ok := kid["/Count"].(NumberObject); ok {
			if *target >= int(count) {
				*target -= int(count)
				continue
			}
		}
		found, err := r.findPage(kid, target)
		if err != nil || found != nil {
			return found, err
		}
	}
	return nil, nil
}

// mediaBox resolves /MediaBox, following /Parent for inherited values, and
// falls back to US Letter.
func (r *Reader) mediaBox(page DictionaryObject) (w, h float64) {
	node := page
	for range 32 { // cycle guard
		if box, ok := r.Resolve(node["/MediaBox"]).(ArrayObject); ok && len(box) == 4 {
			return number(box[2]) - number(box[0]), number(box[3]) - number(box[1])
		}
		parent, ok := r.Resolve(node["/Parent"]).(DictionaryObject)
		if !ok {
			break
		}
		node = parent
	}
	return 612, 792
}

// contentStreams collects the page's content stream data in order.
func (r *Reader) contentStreams(page *Page) ([][]byte, error) {
	contents := r.Resolve(page.dict["/Contents"])

	var out [][]byte
	switch c := contents.(type) {
	case StreamObject:
		out = append(out, c.Data)
	case ArrayObject:
		for _, ref := range c {
			if s, ok := r.Resolve(ref).(StreamObject); ok {
				out = append(out, s.Data)
			}
		}
	}
	return out, nil
}

// pageXObjects returns the page's /Resources /XObject dictionary, possibly
// inherited.
func (r *Reader) pageXObjects(page *Page) DictionaryObject {
	node := page.dict
	for range 32 {
		if res, ok := r.Resolve(node["/Resources"]).(DictionaryObject); ok {
			if xo, ok := r.Resolve(res["/XObject"]).(DictionaryObject); ok {
				return xo
			}
			return nil
		}
		parent, ok := r.Resolve(node["/Parent"]).(DictionaryObject)
		if !ok {
			return nil
		}
		node = parent
	}
	return nil
}
