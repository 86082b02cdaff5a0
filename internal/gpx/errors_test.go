package gpx

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuesSummary(t *testing.T) {
	var is Issues
	for i := 0; i < 5; i++ {
		is = append(is, &FieldFormatError{Element: "trkpt", Field: "ele", Value: strconv.Itoa(i), Err: strconv.ErrSyntax})
	}
	is = append(is, &AttributeError{Element: "rtept", Attr: "lon", Depth: 3})

	sum := is.Summary()
	require.Len(t, sum, 2)
	assert.Equal(t, IssueAttribute, sum[0].Kind)
	assert.Equal(t, 1, sum[0].Count)
	assert.Equal(t, IssueFieldFormat, sum[1].Kind)
	assert.Equal(t, 5, sum[1].Count)
	assert.Len(t, sum[1].Examples, 3)
}

func TestErrorMessages(t *testing.T) {
	se := &StructuralError{Element: "wpt", Expected: "rte", Depth: 2, Msg: "mismatched closing tag"}
	assert.Equal(t, "gpx: depth 2: mismatched closing tag (got </wpt>, expected </rte>)", se.Error())

	ae := &AttributeError{Element: "rtept", Attr: "lon", Depth: 2}
	assert.Equal(t, "gpx: <rtept> missing required attribute lon", ae.Error())

	fe := &FieldFormatError{Element: "wpt", Field: "ele", Value: "x", Err: strconv.ErrSyntax}
	assert.True(t, errors.Is(fe, strconv.ErrSyntax))
	assert.True(t, errors.Is(fe, ErrFieldFormat))
	assert.False(t, errors.Is(fe, ErrAttribute))
}

func TestLookupTag(t *testing.T) {
	assert.Equal(t, TagTrkpt, LookupTag("trkpt"))
	assert.Equal(t, TagTrkpt, LookupTag("TrkPt"))
	assert.Equal(t, TagWpt, LookupTag("gpx:wpt"))
	assert.Equal(t, TagUnknown, LookupTag("metadata"))
	assert.Equal(t, "ageofdgpsdata", TagAgeOfDGPSData.String())
	assert.Equal(t, "unknown", TagUnknown.String())
}
