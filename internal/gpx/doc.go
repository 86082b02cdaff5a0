// Package gpx converts a stream of GPX 1.1 XML events into waypoint, route and
// track records.
//
// The parser is push driven: an event source calls Open, Text and Close in
// document order and the parser hands every finished top-level record to a
// Sink. Nothing is buffered beyond the record currently under construction.
//
// Decode adapts an io.Reader to the event interface using xmltokenizer. Tests
// and replay tools feed events to a Parser directly.
package gpx
