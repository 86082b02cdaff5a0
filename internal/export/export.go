// Package export writes collected GPX records as GeoJSON, OSM XML or GPX.
package export

import (
	"compress/gzip"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"gpxtab/internal/gpx"
)

type Format string

const (
	FormatGeoJSON Format = "geojson"
	FormatOSM     Format = "osm"
	FormatGPX     Format = "gpx"
)

// ParseFormat accepts a format name or a file extension such as ".json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "geojson", "json":
		return FormatGeoJSON, nil
	case "osm", "xml":
		return FormatOSM, nil
	case "gpx":
		return FormatGPX, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// FormatForPath guesses the format from path's extension, ignoring a
// trailing ".gz". ok is false when the extension is not recognized.
func FormatForPath(path string) (Format, bool) {
	p := strings.TrimSuffix(strings.ToLower(path), ".gz")
	i := strings.LastIndexByte(p, '.')
	if i < 0 {
		return "", false
	}
	f, err := ParseFormat(p[i:])
	return f, err == nil
}

type Options struct {
	Indent  bool
	Creator string
}

// Write encodes c to w in format f.
func Write(w io.Writer, f Format, c *gpx.Collector, opts Options) error {
	if opts.Creator == "" {
		opts.Creator = "gpxtab"
	}
	switch f {
	case FormatGeoJSON:
		fc := GeoJSON(c)
		var (
			b   []byte
			err error
		)
		if opts.Indent {
			b, err = json.MarshalIndent(fc, "", "  ")
		} else {
			b, err = json.Marshal(fc)
		}
		if err != nil {
			return fmt.Errorf("export geojson: %w", err)
		}
		_, err = w.Write(append(b, '\n'))
		return err

	case FormatOSM:
		o := OSM(c, opts.Creator)
		if _, err := io.WriteString(w, xml.Header); err != nil {
			return err
		}
		enc := xml.NewEncoder(w)
		if opts.Indent {
			enc.Indent("", "  ")
		}
		if err := enc.Encode(o); err != nil {
			return fmt.Errorf("export osm: %w", err)
		}
		_, err := io.WriteString(w, "\n")
		return err

	case FormatGPX:
		b, err := GPX(c, opts.Creator, opts.Indent)
		if err != nil {
			return fmt.Errorf("export gpx: %w", err)
		}
		_, err = w.Write(b)
		return err

	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// Create opens path for writing. Paths ending in ".gz" are gzip-compressed.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		return f, nil
	}
	return &gzipFile{Writer: gzip.NewWriter(f), f: f}, nil
}

type gzipFile struct {
	*gzip.Writer
	f *os.File
}

func (g *gzipFile) Close() error {
	err := g.Writer.Close()
	if cerr := g.f.Close(); err == nil {
		err = cerr
	}
	return err
}
