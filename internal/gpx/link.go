package gpx

import "strings"

// openLink starts a link owned by the innermost open record: the point if
// one is open, otherwise the route or segment, otherwise the track. The
// owner is fixed here so that a later close cannot reattribute it.
func (p *Parser) openLink(name string, depth int, attrs []Attr) error {
	c := &p.cur
	owner, ownerDepth := c.innermost()
	if owner == nil || depth != ownerDepth+1 {
		// Only direct children of a record are links we attribute.
		c.skip(depth)
		return nil
	}

	href, ok := attrValue(attrs, "href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		p.addIssue(&AttributeError{Element: name, Attr: "href", Value: href, Depth: depth})
		c.skip(depth)
		return nil
	}

	c.link = &Link{Href: href}
	c.linkOwner = owner
	c.linkDepth = depth
	return nil
}

func (p *Parser) setLinkField(tag Tag, text string) {
	switch tag {
	case TagText:
		p.cur.link.Text = strings.TrimSpace(text)
	case TagType:
		p.cur.link.Type = strings.TrimSpace(text)
	}
}
