package render

import (
	"strings"
	"testing"

	"github.com/gnemet/SlideKaraoke/internal/slides"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var captions = Captions{Slide: "AI-generated presentation slide", Tagline: "AI-Generated Tech Talk"}

func renderString(t *testing.T, s slides.GeneratedSlide) string {
	t.Helper()
	out, err := Render(SlideSection(s, captions))
	require.NoError(t, err)
	return out
}

func TestSlideSection(t *testing.T) {
	out := renderString(t, slides.GeneratedSlide{
		Title:    "Blockchain for Houseplants",
		Subtitle: "Photosynthesis as a Service",
		Bullets:  []string{"Ferns mine coins", "Cacti validate blocks"},
		ImageURL: "https://replicate.delivery/img.webp",
	})

	assert.True(t, strings.HasPrefix(out, `<section data-background-image="https://replicate.delivery/img.webp" data-background-size="contain" data-background-position="center">`))
	assert.Contains(t, out, `<h2 style="margin-bottom: 10px;">Blockchain for Houseplants</h2>`)
	assert.Contains(t, out, ">Photosynthesis as a Service</h3>")
	assert.Contains(t, out, "<li>Ferns mine coins</li><li>Cacti validate blocks</li>")
	assert.Contains(t, out, "AI-generated presentation slide")
	assert.NotContains(t, out, "aside")
}

func TestSlideSectionEscapesModelText(t *testing.T) {
	out := renderString(t, slides.GeneratedSlide{
		Title:    `<script>alert("x")</script>`,
		Bullets:  []string{`<img src=x onerror=alert(1)>`},
		ImageURL: `https://img/"><script>`,
	})

	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<img")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, `data-background-image="https://img/&#34;&gt;&lt;script&gt;"`)
}

func TestSlideSectionRejectsScriptURL(t *testing.T) {
	out := renderString(t, slides.GeneratedSlide{Title: "x", ImageURL: "javascript:alert(1)"})
	assert.NotContains(t, out, "data-background-image")
}

func TestNotesNode(t *testing.T) {
	assert.Nil(t, NotesNode("  "))

	out, err := Render(NotesNode("Say **loudly**: <b onclick=x>hi</b>\n\n- one\n- [link](javascript:alert(1))"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `<aside class="notes">`))
	assert.Contains(t, out, "<strong>loudly</strong>")
	assert.Contains(t, out, "<li>one</li>")
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "<a")
	assert.NotContains(t, out, "javascript")
}

func TestDeckSections(t *testing.T) {
	deck := slides.PresentationDeck{Title: "The Last Algorithm", Slides: []slides.GeneratedSlide{
		{Subtitle: "Overview", Bullets: []string{"a"}, ImageURL: "https://img/1"},
	}}

	title, err := Render(TitleSection(deck, captions))
	require.NoError(t, err)
	assert.Contains(t, title, "<h1")
	assert.Contains(t, title, "The Last Algorithm")
	assert.Contains(t, title, "AI-Generated Tech Talk")
	assert.NotContains(t, title, "data-background-image")

	body, err := Render(DeckSlideSection(deck.Slides[0], captions))
	require.NoError(t, err)
	assert.Contains(t, body, ">Overview</h2>")
	assert.Contains(t, body, `data-background-image="https://img/1"`)
}

type recordingPresenter struct {
	events []string
}

func (p *recordingPresenter) Appended(string) { p.events = append(p.events, "append") }
func (p *recordingPresenter) Cleared()        { p.events = append(p.events, "clear") }
func (p *recordingPresenter) Sync()           { p.events = append(p.events, "sync") }
func (p *recordingPresenter) Slide(int)       { p.events = append(p.events, "slide") }

func TestContainer(t *testing.T) {
	p := &recordingPresenter{}
	c := NewContainer(p)

	require.NoError(t, c.Append(SlideSection(slides.GeneratedSlide{Title: "one"}, captions)))
	require.NoError(t, c.Append(SlideSection(slides.GeneratedSlide{Title: "two"}, captions)))
	assert.Equal(t, 2, c.Len())
	assert.Len(t, c.Sections(), 2)

	h := c.HTML()
	assert.Less(t, strings.Index(h, "one"), strings.Index(h, "two"))

	c.Clear()
	assert.Zero(t, c.Len())
	c.Slide(0)
	assert.Equal(t, []string{"append", "sync", "append", "sync", "clear", "slide"}, p.events)
}

func TestCaptionsFor(t *testing.T) {
	assert.Equal(t, "AI-Generated Tech Talk", CaptionsFor("en").Tagline)
	assert.NotEqual(t, CaptionsFor("en").Slide, CaptionsFor("hu").Slide)
}
