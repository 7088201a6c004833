package render

import (
	"bytes"
	"strings"

	"github.com/russross/blackfriday/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var allowedNoteTags = map[atom.Atom]bool{
	atom.P:      true,
	atom.Em:     true,
	atom.Strong: true,
	atom.Code:   true,
	atom.Ul:     true,
	atom.Ol:     true,
	atom.Li:     true,
	atom.Br:     true,
}

// NotesNode renders markdown speaker notes into an <aside class="notes">.
// Only a small set of inline and list tags survive, without attributes.
// It returns nil for empty notes.
func NotesNode(md string) *html.Node {
	if strings.TrimSpace(md) == "" {
		return nil
	}
	out := blackfriday.Run([]byte(md),
		blackfriday.WithRenderer(blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
			Flags: blackfriday.SkipHTML | blackfriday.SkipImages | blackfriday.Safelink,
		})),
		blackfriday.WithExtensions(blackfriday.CommonExtensions))

	aside := element(atom.Aside)
	setAttr(aside, "class", "notes")

	nodes, err := html.ParseFragment(bytes.NewReader(out), element(atom.Aside))
	if err != nil {
		aside.AppendChild(text(md))
		return aside
	}
	for _, n := range nodes {
		for _, clean := range sanitize(n) {
			aside.AppendChild(clean)
		}
	}
	return aside
}

func sanitize(n *html.Node) []*html.Node {
	switch n.Type {
	case html.TextNode:
		return []*html.Node{text(n.Data)}
	case html.ElementNode:
		var kids []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			kids = append(kids, sanitize(c)...)
		}
		if !allowedNoteTags[n.DataAtom] {
			return kids
		}
		el := element(n.DataAtom)
		for _, k := range kids {
			el.AppendChild(k)
		}
		return []*html.Node{el}
	default:
		return nil
	}
}
