package gpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/muktihari/xmltokenizer"
)

// ctxCheckEvery is how many tokens Decode reads between context checks.
const ctxCheckEvery = 1024

// Decode tokenizes r and pushes every element and text event to h in
// document order. It stops at the first error returned by h. Comments and
// processing instructions are dropped, CDATA sections arrive as text and
// doctype declarations are ignored.
func Decode(ctx context.Context, r io.Reader, h EventHandler) error {
	tok := xmltokenizer.New(newMarkupFilter(r))
	attrs := make([]Attr, 0, 8)

	for n := 0; ; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		token, err := tok.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		switch {
		case len(token.Name.Full) == 0:
			// Doctype; Data holds the raw declaration.
			continue
		case token.IsEndElement:
			if err := h.Close(string(token.Name.Full)); err != nil {
				return err
			}
		default:
			attrs = attrs[:0]
			for i := range token.Attrs {
				a := &token.Attrs[i]
				attrs = append(attrs, Attr{Name: string(a.Name.Full), Value: unescape(a.Value)})
			}
			name := string(token.Name.Full)
			if err := h.Open(name, attrs); err != nil {
				return err
			}
			if token.SelfClosing {
				if err := h.Close(name); err != nil {
					return err
				}
			}
		}

		// Data is the character data following the tag.
		if len(token.Data) > 0 {
			if err := h.Text([]byte(unescape(token.Data))); err != nil {
				return err
			}
		}
	}
}

// unescape resolves the five predefined XML entities and numeric character
// references. Any other reference is kept as written.
func unescape(b []byte) string {
	i := bytes.IndexByte(b, '&')
	if i < 0 {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for i >= 0 {
		sb.Write(b[:i])
		b = b[i:]
		if s, n := entity(b); n > 0 {
			sb.WriteString(s)
			b = b[n:]
		} else {
			sb.WriteByte('&')
			b = b[1:]
		}
		i = bytes.IndexByte(b, '&')
	}
	sb.Write(b)
	return sb.String()
}

// maxEntityLen bounds the search for ';' after '&' ("&#x10FFFF;").
const maxEntityLen = 10

// entity decodes the reference at the start of b and returns its length,
// or 0 when b does not start with a known reference.
func entity(b []byte) (string, int) {
	end := bytes.IndexByte(b[:min(len(b), maxEntityLen)], ';')
	if end < 2 {
		return "", 0
	}
	name := string(b[1:end])
	switch name {
	case "lt":
		return "<", end + 1
	case "gt":
		return ">", end + 1
	case "amp":
		return "&", end + 1
	case "apos":
		return "'", end + 1
	case "quot":
		return `"`, end + 1
	}
	if name[0] != '#' || len(name) < 2 {
		return "", 0
	}
	var v uint64
	var err error
	if name[1] == 'x' {
		v, err = strconv.ParseUint(name[2:], 16, 32)
	} else {
		v, err = strconv.ParseUint(name[1:], 10, 32)
	}
	if err != nil || v == 0 || !utf8.ValidRune(rune(v)) {
		return "", 0
	}
	return string(rune(v)), end + 1
}

// Result reports what a parse produced.
type Result struct {
	Counts Counts `json:"counts"`
	Issues Issues `json:"-"`
}

// ParseReader parses one GPX document from r, emitting records to sink.
// The returned Result is non-nil even when err is not, and then counts what
// was emitted before the failure.
func ParseReader(ctx context.Context, r io.Reader, sink Sink, opts ...Option) (*Result, error) {
	res := &Result{}
	res.Counts.Next = sink
	p := NewParser(&res.Counts, opts...)

	err := Decode(ctx, r, p)
	if err == nil {
		err = p.Finish()
	}
	res.Counts.Next = nil
	res.Issues = p.Issues()
	return res, err
}
