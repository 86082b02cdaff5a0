package gpx

// Tag is a recognized GPX element name.
type Tag uint8

const (
	TagUnknown Tag = iota
	TagGPX
	TagWpt
	TagRte
	TagRtept
	TagTrk
	TagTrkseg
	TagTrkpt
	TagName
	TagCmt
	TagDesc
	TagEle
	TagTime
	TagLink
	TagText
	TagType
	TagExtensions
	TagMagvar
	TagGeoidHeight
	TagSym
	TagSrc
	TagFix
	TagSat
	TagHDOP
	TagVDOP
	TagPDOP
	TagAgeOfDGPSData
	TagDGPSID
	TagNumber
)

var tagNames = [...]string{
	TagUnknown:       "",
	TagGPX:           "gpx",
	TagWpt:           "wpt",
	TagRte:           "rte",
	TagRtept:         "rtept",
	TagTrk:           "trk",
	TagTrkseg:        "trkseg",
	TagTrkpt:         "trkpt",
	TagName:          "name",
	TagCmt:           "cmt",
	TagDesc:          "desc",
	TagEle:           "ele",
	TagTime:          "time",
	TagLink:          "link",
	TagText:          "text",
	TagType:          "type",
	TagExtensions:    "extensions",
	TagMagvar:        "magvar",
	TagGeoidHeight:   "geoidheight",
	TagSym:           "sym",
	TagSrc:           "src",
	TagFix:           "fix",
	TagSat:           "sat",
	TagHDOP:          "hdop",
	TagVDOP:          "vdop",
	TagPDOP:          "pdop",
	TagAgeOfDGPSData: "ageofdgpsdata",
	TagDGPSID:        "dgpsid",
	TagNumber:        "number",
}

var tagsByName = func() map[string]Tag {
	m := make(map[string]Tag, len(tagNames))
	for i, n := range tagNames {
		if n != "" {
			m[n] = Tag(i)
		}
	}
	return m
}()

func (t Tag) String() string {
	if int(t) < len(tagNames) && t != TagUnknown {
		return tagNames[t]
	}
	return "unknown"
}

// LookupTag maps an element's local name to its Tag. Matching is ASCII
// case-insensitive and any namespace prefix is ignored.
func LookupTag(name string) Tag {
	name = localName(name)
	if t, ok := tagsByName[name]; ok {
		return t
	}
	// Avoid the allocation for the common, already lower-case, case.
	for i := 0; i < len(name); i++ {
		if c := name[i]; c >= 'A' && c <= 'Z' {
			return tagsByName[asciiLower(name)]
		}
	}
	return TagUnknown
}

func localName(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == ':' {
			return name[i+1:]
		}
	}
	return name
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// isContainer reports whether t opens a top-level record.
func (t Tag) isContainer() bool {
	return t == TagWpt || t == TagRte || t == TagTrk
}
