package gpx

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// markupFilter rewrites an XML byte stream into the subset the tokenizer
// handles without loss:
//   - comments and processing instructions are removed, so text on both
//     sides of them stays contiguous;
//   - CDATA sections become escaped character data;
//   - inside tags, attribute values are double quoted with '/', '<', '>'
//     and '"' escaped, and tabs and newlines become spaces.
//
// Doctype declarations pass through unchanged.
type markupFilter struct {
	r   *bufio.Reader
	buf []byte
	off int
	err error
}

func newMarkupFilter(r io.Reader) *markupFilter {
	return &markupFilter{r: bufio.NewReader(r)}
}

func (f *markupFilter) Read(p []byte) (int, error) {
	for f.off == len(f.buf) {
		if f.err != nil {
			return 0, f.err
		}
		f.buf, f.off = f.buf[:0], 0
		f.fill()
	}
	n := copy(p, f.buf[f.off:])
	f.off += n
	return n, nil
}

// fill appends the next run of text and at most one markup construct to buf.
func (f *markupFilter) fill() {
	chunk, err := f.r.ReadSlice('<')
	switch {
	case errors.Is(err, bufio.ErrBufferFull):
		f.buf = append(f.buf, chunk...)
		return
	case err != nil:
		f.buf = append(f.buf, chunk...)
		f.err = err
		return
	}
	f.buf = append(f.buf, chunk[:len(chunk)-1]...)
	if err := f.markup(); err != nil {
		f.err = err
	}
}

// markup handles the construct following a '<' that has been consumed.
func (f *markupFilter) markup() error {
	if f.startsWith("?") {
		return f.skipUntil("?>", "processing instruction")
	}
	if f.startsWith("!--") {
		return f.skipUntil("-->", "comment")
	}
	if f.startsWith("![CDATA[") {
		return f.cdata()
	}
	if f.startsWith("!") {
		f.buf = append(f.buf, "<!"...)
		return nil
	}
	return f.tag()
}

// startsWith consumes prefix when the input continues with it.
func (f *markupFilter) startsWith(prefix string) bool {
	b, _ := f.r.Peek(len(prefix))
	if string(b) != prefix {
		return false
	}
	_, _ = f.r.Discard(len(prefix))
	return true
}

func (f *markupFilter) skipUntil(delim, what string) error {
	var tail []byte
	for {
		c, err := f.r.ReadByte()
		if err != nil {
			return unterminated(what, err)
		}
		if tail = append(tail, c); len(tail) > len(delim) {
			tail = tail[1:]
		}
		if string(tail) == delim {
			return nil
		}
	}
}

func (f *markupFilter) cdata() error {
	const delim = "]]>"
	var sec []byte
	for {
		c, err := f.r.ReadByte()
		if err != nil {
			return unterminated("CDATA section", err)
		}
		sec = append(sec, c)
		if bytes.HasSuffix(sec, []byte(delim)) {
			break
		}
	}
	for _, c := range sec[:len(sec)-len(delim)] {
		switch c {
		case '&':
			f.buf = append(f.buf, "&amp;"...)
		case '<':
			f.buf = append(f.buf, "&lt;"...)
		case '>':
			f.buf = append(f.buf, "&gt;"...)
		default:
			f.buf = append(f.buf, c)
		}
	}
	return nil
}

// tag copies a start or end tag through its closing '>'.
func (f *markupFilter) tag() error {
	f.buf = append(f.buf, '<')
	var quote byte
	for {
		c, err := f.r.ReadByte()
		if err != nil {
			return unterminated("tag", err)
		}
		switch {
		case quote != 0 && c == quote:
			quote = 0
			f.buf = append(f.buf, '"')
		case quote != 0 && c == '/':
			f.buf = append(f.buf, "&#47;"...)
		case quote != 0:
			f.buf = appendAttrByte(f.buf, c)
		case c == '"' || c == '\'':
			quote = c
			f.buf = append(f.buf, '"')
		case c == '>':
			f.buf = append(f.buf, c)
			return nil
		default:
			f.buf = append(f.buf, space(c))
		}
	}
}

// appendAttrByte escapes c for a double-quoted value. Entity references
// are left alone.
func appendAttrByte(b []byte, c byte) []byte {
	switch c {
	case '<':
		return append(b, "&lt;"...)
	case '>':
		return append(b, "&gt;"...)
	case '"':
		return append(b, "&quot;"...)
	}
	return append(b, space(c))
}

func space(c byte) byte {
	switch c {
	case '\t', '\n', '\r':
		return ' '
	}
	return c
}

func unterminated(what string, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("unterminated %s: %w", what, err)
}
