package gpx

import (
	"fmt"
	"strings"
)

// Attr is one XML attribute, already entity-decoded.
type Attr struct {
	Name  string
	Value string
}

// EventHandler receives XML events in document order.
type EventHandler interface {
	Open(name string, attrs []Attr) error
	Text(chars []byte) error
	Close(name string) error
}

const defaultMaxDepth = 64

type options struct {
	strictRoot bool
	maxDepth   int
}

// Option configures a Parser.
type Option func(*options)

// WithStrictRoot requires the document element to be <gpx>.
func WithStrictRoot() Option {
	return func(o *options) { o.strictRoot = true }
}

// WithMaxDepth bounds element nesting. Deeper documents fail with a
// StructuralError. n <= 0 keeps the default of 64.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

type openElement struct {
	name string
	tag  Tag
}

// Parser is the root dispatcher for one document. It is not safe for
// concurrent use; parse documents concurrently with separate parsers.
type Parser struct {
	sink Sink
	opts options

	stack []openElement
	buf   []byte

	cur   parseContext
	ids   idCounters
	seen  bool // any element opened
	root  bool // <gpx> seen
	err   error
	issue Issues
}

// NewParser returns a parser that emits finished records to sink.
func NewParser(sink Sink, opts ...Option) *Parser {
	o := options{maxDepth: defaultMaxDepth}
	for _, fn := range opts {
		fn(&o)
	}
	return &Parser{sink: sink, opts: o, stack: make([]openElement, 0, 8)}
}

// Issues returns the non-fatal errors collected so far.
func (p *Parser) Issues() Issues { return p.issue }

// Err returns the fatal error that stopped the parser, if any.
func (p *Parser) Err() error { return p.err }

// Depth is the number of currently open elements.
func (p *Parser) Depth() int { return len(p.stack) }

// Open handles a start element.
func (p *Parser) Open(name string, attrs []Attr) error {
	if p.err != nil {
		return p.err
	}
	name = localName(name)
	tag := LookupTag(name)
	depth := len(p.stack) + 1

	if depth > p.opts.maxDepth {
		return p.fail(&StructuralError{Element: name, Depth: depth, Msg: fmt.Sprintf("nesting deeper than %d", p.opts.maxDepth)})
	}
	if p.opts.strictRoot && !p.seen && tag != TagGPX {
		return p.fail(&StructuralError{Element: name, Depth: depth, Msg: "document element must be <gpx>"})
	}
	p.seen = true
	if tag == TagGPX {
		p.root = true
	}

	p.stack = append(p.stack, openElement{name: name, tag: tag})
	// Text belongs to the innermost open element only.
	p.buf = p.buf[:0]

	if p.cur.skipping() {
		return nil
	}
	if p.cur.kind == TagUnknown {
		return p.openUnbound(tag, name, depth, attrs)
	}
	return p.openBound(tag, name, depth, attrs)
}

// Text appends character data to the content buffer of the innermost open
// element. Fragments are concatenated in order.
func (p *Parser) Text(chars []byte) error {
	if p.err != nil {
		return p.err
	}
	if p.cur.kind == TagUnknown || p.cur.skipping() {
		return nil
	}
	p.buf = append(p.buf, chars...)
	return nil
}

// Close handles an end element.
func (p *Parser) Close(name string) error {
	if p.err != nil {
		return p.err
	}
	name = localName(name)
	depth := len(p.stack)
	if depth == 0 {
		return p.fail(&StructuralError{Element: name, Depth: 0, Msg: "closing tag without matching open tag"})
	}
	top := p.stack[depth-1]
	if !strings.EqualFold(top.name, name) {
		return p.fail(&StructuralError{Element: name, Expected: top.name, Depth: depth, Msg: "mismatched closing tag"})
	}
	p.stack = p.stack[:depth-1]

	text := string(p.buf)
	p.buf = p.buf[:0]

	if p.cur.skipping() {
		if depth == p.cur.skipDepth {
			p.cur.skipDepth = 0
		}
		return nil
	}
	if p.cur.kind == TagUnknown {
		return nil
	}
	return p.closeBound(top.tag, name, depth, text)
}

// Finish checks that the document ended cleanly.
func (p *Parser) Finish() error {
	if p.err != nil {
		return p.err
	}
	if n := len(p.stack); n > 0 {
		return p.fail(&StructuralError{Element: p.stack[n-1].name, Depth: n, Msg: "document ended with open elements"})
	}
	if p.opts.strictRoot && !p.root {
		return p.fail(&StructuralError{Msg: "missing <gpx> document element"})
	}
	return nil
}

// fail records a fatal error and drops every in-progress record.
func (p *Parser) fail(err error) error {
	p.err = err
	p.cur = parseContext{}
	p.buf = nil
	return err
}

func (p *Parser) addIssue(err error) {
	p.issue = append(p.issue, err)
}

// openUnbound handles an open while no container handler is bound.
func (p *Parser) openUnbound(tag Tag, name string, depth int, attrs []Attr) error {
	switch tag {
	case TagWpt:
		return p.openWaypoint(name, depth, attrs)
	case TagRte:
		return p.openRoute(depth)
	case TagTrk:
		return p.openTrack(depth)
	case TagRtept, TagTrkseg, TagTrkpt:
		return p.fail(&StructuralError{Element: name, Depth: depth, Msg: "element outside of its container"})
	default:
		// metadata, extensions and unknown elements outside a container are
		// stack tracked only.
		return nil
	}
}
