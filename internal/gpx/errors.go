package gpx

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
)

var (
	// ErrStructural matches every *StructuralError.
	ErrStructural = errors.New("gpx: structural error")
	// ErrAttribute matches every *AttributeError.
	ErrAttribute = errors.New("gpx: attribute error")
	// ErrFieldFormat matches every *FieldFormatError.
	ErrFieldFormat = errors.New("gpx: field format error")
	// ErrMalformed wraps failures of the XML tokenizer, including read
	// errors of the underlying reader.
	ErrMalformed = errors.New("gpx: malformed XML")
)

// StructuralError is fatal: the document is malformed and parsing stops.
type StructuralError struct {
	Element  string // element being opened or closed when the error was found
	Expected string // element that should have been closed, if any
	Depth    int
	Msg      string
}

func (e *StructuralError) Error() string {
	if e.Expected != "" {
		return fmt.Sprintf("gpx: depth %d: %s (got </%s>, expected </%s>)", e.Depth, e.Msg, e.Element, e.Expected)
	}
	if e.Element != "" {
		return fmt.Sprintf("gpx: depth %d: <%s>: %s", e.Depth, e.Element, e.Msg)
	}
	return fmt.Sprintf("gpx: depth %d: %s", e.Depth, e.Msg)
}

func (e *StructuralError) Is(target error) bool { return target == ErrStructural }

// AttributeError drops the point or link that carried the bad attribute.
type AttributeError struct {
	Element string
	Attr    string
	Value   string
	Depth   int
	Err     error
}

func (e *AttributeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gpx: <%s> attribute %s=%q: %v", e.Element, e.Attr, e.Value, e.Err)
	}
	return fmt.Sprintf("gpx: <%s> missing required attribute %s", e.Element, e.Attr)
}

func (e *AttributeError) Is(target error) bool { return target == ErrAttribute }
func (e *AttributeError) Unwrap() error        { return e.Err }

// FieldFormatError leaves a single field unset.
type FieldFormatError struct {
	Element string // enclosing record element
	Field   string
	Value   string
	Err     error
}

func (e *FieldFormatError) Error() string {
	return fmt.Sprintf("gpx: <%s> field <%s> value %q: %v", e.Element, e.Field, e.Value, e.Err)
}

func (e *FieldFormatError) Is(target error) bool { return target == ErrFieldFormat }
func (e *FieldFormatError) Unwrap() error        { return e.Err }

// Issue kinds used by Issues.Summary.
const (
	IssueAttribute   = "attribute"
	IssueFieldFormat = "field_format"
)

// Issues holds the non-fatal errors of one document, in document order.
type Issues []error

// IssueSummary is the aggregated view of one issue kind.
type IssueSummary struct {
	Kind     string   `json:"kind"`
	Count    int      `json:"count"`
	Examples []string `json:"examples"`
}

// Summary aggregates issues by kind, keeping up to three examples each.
func (is Issues) Summary() []IssueSummary {
	byKind := map[string]*IssueSummary{}
	for _, err := range is {
		kind := issueKind(err)
		s := byKind[kind]
		if s == nil {
			s = &IssueSummary{Kind: kind, Examples: make([]string, 0, 3)}
			byKind[kind] = s
		}
		s.Count++
		if len(s.Examples) < 3 {
			s.Examples = append(s.Examples, err.Error())
		}
	}

	out := make([]IssueSummary, 0, len(byKind))
	for _, s := range byKind {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// LogAll writes one line per issue kind.
func (is Issues) LogAll(document string) {
	for _, s := range is.Summary() {
		log.Printf("document %s has %d %s issues; examples: %s", document, s.Count, s.Kind, strings.Join(s.Examples, "; "))
	}
}

func issueKind(err error) string {
	switch {
	case errors.Is(err, ErrAttribute):
		return IssueAttribute
	case errors.Is(err, ErrFieldFormat):
		return IssueFieldFormat
	default:
		return "other"
	}
}
