// Package render builds reveal.js slide sections as HTML node trees. All
// generated text enters the tree as text nodes, so it is escaped on output.
package render

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/gnemet/SlideKaraoke/internal/i18n"
	"github.com/gnemet/SlideKaraoke/internal/slides"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	panelStyle    = "background: rgba(0, 0, 0, 0.7); padding: 20px; border-radius: 10px; max-width: 80%; margin: 0 auto;"
	subtitleStyle = "color: #8b5cf6; margin-bottom: 20px;"
	listStyle     = "text-align: left; list-style-type: none;"
)

// Captions are the fixed, localized strings shown on slides.
type Captions struct {
	Slide   string
	Tagline string
}

func CaptionsFor(lang string) Captions {
	return Captions{
		Slide:   i18n.T(lang, "slide.caption"),
		Tagline: i18n.T(lang, "deck.tagline"),
	}
}

// SlideSection renders a single generated slide: background image plus an
// overlay with title, subtitle and bullets.
func SlideSection(s slides.GeneratedSlide, c Captions) *html.Node {
	section := backgroundSection(s.ImageURL)
	panel := panelNode()
	panel.AppendChild(textElement(atom.H2, s.Title, "margin-bottom: 10px;"))
	panel.AppendChild(textElement(atom.H3, s.Subtitle, subtitleStyle))
	panel.AppendChild(bulletList(s.Bullets))
	panel.AppendChild(captionNode(c.Slide))
	section.AppendChild(panel)
	if notes := NotesNode(s.Notes); notes != nil {
		section.AppendChild(notes)
	}
	return section
}

// DeckSlideSection renders a slide of a full deck, headed by its subtitle.
func DeckSlideSection(s slides.GeneratedSlide, c Captions) *html.Node {
	section := backgroundSection(s.ImageURL)
	panel := panelNode()
	panel.AppendChild(textElement(atom.H2, s.Subtitle, "margin-bottom: 10px;"))
	panel.AppendChild(bulletList(s.Bullets))
	panel.AppendChild(captionNode(c.Slide))
	section.AppendChild(panel)
	if notes := NotesNode(s.Notes); notes != nil {
		section.AppendChild(notes)
	}
	return section
}

// TitleSection renders the opening slide of a full deck.
func TitleSection(deck slides.PresentationDeck, c Captions) *html.Node {
	section := element(atom.Section)
	panel := panelNode()
	panel.AppendChild(textElement(atom.H1, deck.Title, "margin-bottom: 20px;"))
	panel.AppendChild(textElement(atom.H3, c.Tagline, "color: #8b5cf6;"))
	section.AppendChild(panel)
	return section
}

// Render serializes n.
func Render(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func backgroundSection(imageURL string) *html.Node {
	section := element(atom.Section)
	if safeURL(imageURL) {
		setAttr(section, "data-background-image", imageURL)
		setAttr(section, "data-background-size", "contain")
		setAttr(section, "data-background-position", "center")
	}
	return section
}

func panelNode() *html.Node {
	div := element(atom.Div)
	setAttr(div, "class", "slide-content")
	setAttr(div, "style", panelStyle)
	return div
}

func bulletList(bullets []string) *html.Node {
	ul := element(atom.Ul)
	setAttr(ul, "style", listStyle)
	for _, b := range bullets {
		li := element(atom.Li)
		li.AppendChild(text(b))
		ul.AppendChild(li)
	}
	return ul
}

func captionNode(caption string) *html.Node {
	p := element(atom.P)
	setAttr(p, "class", "desc")
	setAttr(p, "style", "font-size: 0.5em; color: white;")
	p.AppendChild(text(caption))
	return p
}

func textElement(a atom.Atom, s, style string) *html.Node {
	n := element(a)
	if style != "" {
		setAttr(n, "style", style)
	}
	n.AppendChild(text(s))
	return n
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func setAttr(n *html.Node, key, val string) {
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func safeURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
