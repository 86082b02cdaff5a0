package eventlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gpxtab/internal/gpx"
)

// Log format: line-oriented text.
//
// - Blank lines ignored.
// - Lines starting with '#' ignored.
// - Line "START" begins a new document.
// - "O <name> <attr>=<quoted> ..." is an open event.
// - "T <quoted>" is a text event.
// - "C <name>" is a close event.
//
// Quoting is strconv.Quote, so one event always fits on one line.

type Kind uint8

const (
	Open Kind = iota + 1
	Text
	Close
)

func (k Kind) String() string {
	switch k {
	case Open:
		return "O"
	case Text:
		return "T"
	case Close:
		return "C"
	default:
		return "?"
	}
}

type Event struct {
	Kind  Kind
	Name  string
	Attrs []gpx.Attr
	Text  string
}

// Document is the event stream of one parse.
type Document struct {
	Events []Event
}

type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadAll returns every document in the log. Events before the first START
// form an implicit document.
func (rr *Reader) ReadAll() ([]Document, error) {
	s := bufio.NewScanner(rr.r)
	// Text events can carry whole descriptions.
	s.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var docs []Document
	var cur *Document
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			docs = append(docs, Document{})
			cur = &docs[len(docs)-1]
			continue
		}

		ev, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("eventlog line %d: %w", lineNo, err)
		}
		if cur == nil {
			docs = append(docs, Document{})
			cur = &docs[len(docs)-1]
		}
		cur.Events = append(cur.Events, ev)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func parseLine(line string) (Event, error) {
	if len(line) < 2 || line[1] != ' ' {
		return Event{}, fmt.Errorf("invalid event line: %q", line)
	}
	rest := strings.TrimSpace(line[2:])

	switch line[0] {
	case 'T':
		s, err := strconv.Unquote(rest)
		if err != nil {
			return Event{}, fmt.Errorf("invalid text %q: %w", rest, err)
		}
		return Event{Kind: Text, Text: s}, nil

	case 'C':
		if rest == "" || strings.ContainsAny(rest, " \t") {
			return Event{}, fmt.Errorf("invalid close name %q", rest)
		}
		return Event{Kind: Close, Name: rest}, nil

	case 'O':
		name, attrs, _ := strings.Cut(rest, " ")
		if name == "" {
			return Event{}, errors.New("open event without name")
		}
		ev := Event{Kind: Open, Name: name}
		for attrs = strings.TrimSpace(attrs); attrs != ""; attrs = strings.TrimSpace(attrs) {
			key, val, ok := strings.Cut(attrs, "=")
			if !ok || key == "" {
				return Event{}, fmt.Errorf("invalid attribute in %q", attrs)
			}
			quoted, err := strconv.QuotedPrefix(val)
			if err != nil {
				return Event{}, fmt.Errorf("invalid attribute value for %s: %w", key, err)
			}
			v, err := strconv.Unquote(quoted)
			if err != nil {
				return Event{}, fmt.Errorf("invalid attribute value for %s: %w", key, err)
			}
			ev.Attrs = append(ev.Attrs, gpx.Attr{Name: key, Value: v})
			attrs = val[len(quoted):]
		}
		return ev, nil

	default:
		return Event{}, fmt.Errorf("unknown event kind %q", line[:1])
	}
}

// Writer records events. It implements gpx.EventHandler so gpx.Decode can
// drive it directly.
type Writer struct {
	c      io.Closer
	w      *bufio.Writer
	closed bool
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 64*1024)}
}

// CreateWriter creates path and writes the first START marker.
func CreateWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	ww := NewWriter(f)
	ww.c = f
	if err := ww.Start(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return ww, nil
}

// Start begins a new document.
func (ww *Writer) Start() error {
	return ww.line("START")
}

func (ww *Writer) Comment(s string) error {
	return ww.line("# " + strings.ReplaceAll(s, "\n", " "))
}

func (ww *Writer) Open(name string, attrs []gpx.Attr) error {
	var b strings.Builder
	b.WriteString("O ")
	b.WriteString(name)
	for _, a := range attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(a.Value))
	}
	return ww.line(b.String())
}

func (ww *Writer) Text(chars []byte) error {
	return ww.line("T " + strconv.Quote(string(chars)))
}

func (ww *Writer) Close(name string) error {
	return ww.line("C " + name)
}

func (ww *Writer) line(s string) error {
	if ww.closed {
		return errors.New("eventlog writer is closed")
	}
	if _, err := ww.w.WriteString(s); err != nil {
		return err
	}
	return ww.w.WriteByte('\n')
}

func (ww *Writer) Flush() error {
	if ww.closed {
		return nil
	}
	return ww.w.Flush()
}

// Finish flushes and closes the underlying file, if the writer owns one.
func (ww *Writer) Finish() error {
	if ww.closed {
		return nil
	}
	ww.closed = true
	err := ww.w.Flush()
	if ww.c != nil {
		if cerr := ww.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Tee records every event to Log before forwarding it to Next. A failed
// write stops the stream.
type Tee struct {
	Log  *Writer
	Next gpx.EventHandler
}

func (t Tee) Open(name string, attrs []gpx.Attr) error {
	if err := t.Log.Open(name, attrs); err != nil {
		return err
	}
	return t.Next.Open(name, attrs)
}

func (t Tee) Text(chars []byte) error {
	if err := t.Log.Text(chars); err != nil {
		return err
	}
	return t.Next.Text(chars)
}

func (t Tee) Close(name string) error {
	if err := t.Log.Close(name); err != nil {
		return err
	}
	return t.Next.Close(name)
}

// Play feeds doc's events to h in order and stops at the first error.
func Play(doc Document, h gpx.EventHandler) error {
	if h == nil {
		return errors.New("handler is nil")
	}
	for _, ev := range doc.Events {
		var err error
		switch ev.Kind {
		case Open:
			err = h.Open(ev.Name, ev.Attrs)
		case Text:
			err = h.Text([]byte(ev.Text))
		case Close:
			err = h.Close(ev.Name)
		default:
			err = fmt.Errorf("unknown event kind %d", ev.Kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Replay parses every document in docs with a fresh parser and reports one
// result per document. A structural error in one document does not stop
// the others.
func Replay(docs []Document, sink gpx.Sink, opts ...gpx.Option) []Result {
	out := make([]Result, 0, len(docs))
	for i, doc := range docs {
		counts := &gpx.Counts{Next: sink}
		p := gpx.NewParser(counts, opts...)
		err := Play(doc, p)
		if err == nil {
			err = p.Finish()
		}
		counts.Next = nil
		out = append(out, Result{Index: i, Counts: *counts, Issues: p.Issues(), Err: err})
	}
	return out
}

type Result struct {
	Index  int
	Counts gpx.Counts
	Issues gpx.Issues
	Err    error
}
