package render

import (
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Presenter mirrors container changes into the slide library (reveal.js).
type Presenter interface {
	Appended(section string)
	Cleared()
	// Sync asks the library to rebuild its slide index and navigation.
	Sync()
	// Slide navigates to the slide at index.
	Slide(index int)
}

type nopPresenter struct{}

func (nopPresenter) Appended(string) {}
func (nopPresenter) Cleared()        {}
func (nopPresenter) Sync()           {}
func (nopPresenter) Slide(int)       {}

// Container holds the generated slide sections in display order. Sections
// are only ever appended, except by Clear when a whole deck is regenerated.
type Container struct {
	mu        sync.Mutex
	sections  []*html.Node
	rendered  []string
	presenter Presenter
}

func NewContainer(p Presenter) *Container {
	if p == nil {
		p = nopPresenter{}
	}
	return &Container{presenter: p}
}

// Append adds a section after the existing ones and resyncs the presenter.
func (c *Container) Append(section *html.Node) error {
	out, err := Render(section)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.sections = append(c.sections, section)
	c.rendered = append(c.rendered, out)
	c.mu.Unlock()

	c.presenter.Appended(out)
	c.presenter.Sync()
	return nil
}

// Clear removes every section.
func (c *Container) Clear() {
	c.mu.Lock()
	c.sections = nil
	c.rendered = nil
	c.mu.Unlock()

	c.presenter.Cleared()
}

func (c *Container) Sync() {
	c.presenter.Sync()
}

func (c *Container) Slide(index int) {
	c.presenter.Slide(index)
}

func (c *Container) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sections)
}

// HTML returns the serialized sections in order.
func (c *Container) HTML() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.rendered, "\n")
}

// Sections returns the serialized sections in order.
func (c *Container) Sections() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.rendered))
	copy(out, c.rendered)
	return out
}
