package gpx

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	errMissing    = errors.New("missing value")
	errOutOfRange = errors.New("out of range")
	errTimestamp  = errors.New("not an ISO 8601 timestamp")
)

// newPoint builds a point from the lat/lon attributes of a wpt, rtept or
// trkpt element. A missing, malformed or out of range coordinate drops the
// point.
func newPoint(name string, depth int, attrs []Attr) (*GeoPoint, error) {
	lat, err := coordAttr(name, "lat", depth, attrs, 90)
	if err != nil {
		return nil, err
	}
	lon, err := coordAttr(name, "lon", depth, attrs, 180)
	if err != nil {
		return nil, err
	}
	return &GeoPoint{Lat: lat, Lon: lon}, nil
}

func coordAttr(elem, key string, depth int, attrs []Attr, limit float64) (float64, error) {
	raw, ok := attrValue(attrs, key)
	if !ok {
		return 0, &AttributeError{Element: elem, Attr: key, Depth: depth}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &AttributeError{Element: elem, Attr: key, Value: raw, Depth: depth, Err: errors.Unwrap(err)}
	}
	if v < -limit || v > limit {
		return 0, &AttributeError{Element: elem, Attr: key, Value: raw, Depth: depth, Err: errOutOfRange}
	}
	return v, nil
}

// attrValue looks an attribute up by local name, ignoring case.
func attrValue(attrs []Attr, key string) (string, bool) {
	for _, a := range attrs {
		if strings.EqualFold(localName(a.Name), key) {
			return a.Value, true
		}
	}
	return "", false
}

// setField applies a scalar child of rec. Values that fail to parse are
// recorded as FieldFormatError and leave the field unset.
func (p *Parser) setField(rec descriptive, tag Tag, name, text string) {
	v := strings.TrimSpace(text)
	switch tag {
	case TagName:
		rec.setName(v)
		return
	case TagCmt:
		rec.setComment(v)
		return
	case TagDesc:
		rec.setDescription(v)
		return
	case TagSrc:
		rec.setSource(v)
		return
	case TagType:
		rec.setType(v)
		return
	}

	switch r := rec.(type) {
	case *GeoPoint:
		p.setPointField(r, tag, name, v)
	case *Line:
		if tag == TagNumber {
			r.Number = p.parseInt(r.Kind.element(), name, v)
		}
	case *Track:
		if tag == TagNumber {
			r.Number = p.parseInt("trk", name, v)
		}
	}
}

func (p *Parser) setPointField(pt *GeoPoint, tag Tag, name, v string) {
	elem := p.pointElement()
	switch tag {
	case TagEle:
		pt.Ele = p.parseFloat(elem, name, v)
	case TagTime:
		pt.Time = p.parseTime(elem, name, v)
	case TagSym:
		pt.Symbol = v
	case TagFix:
		pt.Fix = v
	case TagMagvar:
		pt.MagVar = p.parseFloat(elem, name, v)
	case TagGeoidHeight:
		pt.GeoidHeight = p.parseFloat(elem, name, v)
	case TagHDOP:
		pt.HDOP = p.parseFloat(elem, name, v)
	case TagVDOP:
		pt.VDOP = p.parseFloat(elem, name, v)
	case TagPDOP:
		pt.PDOP = p.parseFloat(elem, name, v)
	case TagAgeOfDGPSData:
		pt.AgeOfDGPSData = p.parseFloat(elem, name, v)
	case TagSat:
		pt.Sat = p.parseInt(elem, name, v)
	case TagDGPSID:
		pt.DGPSID = p.parseInt(elem, name, v)
	}
}

// pointElement names the element of the point being built.
func (p *Parser) pointElement() string {
	switch {
	case p.cur.kind == TagWpt:
		return "wpt"
	case p.cur.kind == TagRte:
		return "rtept"
	default:
		return "trkpt"
	}
}

func (k LineKind) element() string {
	if k == LineSegment {
		return "trkseg"
	}
	return "rte"
}

func (p *Parser) fieldError(elem, field, v string, err error) {
	p.addIssue(&FieldFormatError{Element: elem, Field: field, Value: v, Err: err})
}

func (p *Parser) parseFloat(elem, field, v string) *float64 {
	if v == "" {
		p.fieldError(elem, field, v, errMissing)
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fieldError(elem, field, v, errors.Unwrap(err))
		return nil
	}
	return &f
}

func (p *Parser) parseInt(elem, field, v string) *int {
	if v == "" {
		p.fieldError(elem, field, v, errMissing)
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fieldError(elem, field, v, errors.Unwrap(err))
		return nil
	}
	return &n
}

// Timestamps without a zone are taken as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (p *Parser) parseTime(elem, field, v string) *time.Time {
	if v == "" {
		p.fieldError(elem, field, v, errMissing)
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			t = t.UTC()
			return &t
		}
	}
	p.fieldError(elem, field, v, errTimestamp)
	return nil
}
