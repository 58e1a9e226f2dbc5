package pagesource

import (
	"strconv"

	"github.com/beevik/etree"
)

// DumpOptions adds display state to the root element of a dump.
type DumpOptions struct {
	Rotation int
	Width    int
	Height   int
}

// XML renders the snapshot as an indented XML document. Each node becomes an
// element named after its class carrying the projected attributes, under a
// <hierarchy> root.
func (s *Snapshot) XML(opts DumpOptions) (string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(RootTag)
	root.CreateAttr("index", "0")
	root.CreateAttr("class", RootTag)
	root.CreateAttr("rotation", strconv.Itoa(opts.Rotation))
	if opts.Width > 0 && opts.Height > 0 {
		root.CreateAttr("width", strconv.Itoa(opts.Width))
		root.CreateAttr("height", strconv.Itoa(opts.Height))
	}

	els := make([]*etree.Element, len(s.arena))
	for slot, e := range s.arena {
		parent := root
		if e.parent >= 0 {
			parent = els[e.parent]
		}
		el := parent.CreateElement(TagName(e.info.Class))
		for _, a := range e.info.Attributes() {
			el.CreateAttr(a.Name, a.Value)
		}
		els[slot] = el
	}
	doc.Indent(2)
	return doc.WriteToString()
}
