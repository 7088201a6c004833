package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"log"
	"strings"
	"text/template"
)

// CatalogFS contains the prompt templates.
//
//go:embed catalog/*.tmpl
var CatalogFS embed.FS

const (
	TitleSystem       = "title_system"
	TitleUser         = "title_user"
	SlideSystem       = "slide_system"
	ImagePromptSystem = "image_prompt_system"
	ImagePromptUser   = "image_prompt_user"
	OutlineSystem     = "outline_system"
)

// Data is the template input. Unused fields are ignored by each template.
type Data struct {
	Theme              string
	Title              string
	PresentationNumber string
	SlideCount         int
	WithBullets        bool
}

var funcs = template.FuncMap{
	"sub": func(a, b int) int { return a - b },
}

// fallbacks are used when a template is missing or fails to render.
var fallbacks = map[string]func(Data) string{
	TitleSystem: func(Data) string {
		return "You are a creative conference talk title generator. Generate a funny, engaging title for a tech talk."
	},
	TitleUser: func(Data) string {
		return "Generate a tech conference talk title"
	},
	SlideSystem: func(d Data) string {
		return fmt.Sprintf(`Write one slide for a tech talk titled "%s". Reply with JSON: {"subtitle": string, "bullets": [string], "imagePrompt": string}`, d.Title)
	},
	ImagePromptSystem: func(Data) string {
		return "Generate a creative image prompt based on the given title that would work well for a presentation slide."
	},
	ImagePromptUser: func(d Data) string {
		return "Generate an image prompt for the talk title: " + d.Title
	},
	OutlineSystem: func(d Data) string {
		return fmt.Sprintf(`Create a presentation structure of %d slides for a tech talk titled "%s". Reply with JSON: {"slides": [{"subtitle": string, "bullets": [string], "imagePrompt": string}]}`, d.SlideCount, d.Title)
	},
}

// Catalog renders prompts from the embedded template set. Templates are
// parsed once; the catalog is read-only afterwards.
type Catalog struct {
	tmpl map[string]*template.Template
}

func NewCatalog() *Catalog {
	c := &Catalog{tmpl: make(map[string]*template.Template)}
	names, err := Names()
	if err != nil {
		log.Printf("prompts: reading catalog: %v", err)
		return c
	}
	for _, name := range names {
		t, err := parse(name)
		if err != nil {
			log.Printf("prompts: %v", err)
			continue
		}
		c.tmpl[name] = t
	}
	return c
}

// Names returns the prompt names found in the embedded catalog.
func Names() ([]string, error) {
	entries, err := CatalogFS.ReadDir("catalog")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, strings.TrimSuffix(e.Name(), ".tmpl"))
		}
	}
	return names, nil
}

// Render executes the named template. A missing or broken template falls
// back to a built-in prompt.
func (c *Catalog) Render(name string, data Data) string {
	err := fmt.Errorf("no template named %s", name)
	if t, ok := c.tmpl[name]; ok {
		var buf bytes.Buffer
		if err = t.Execute(&buf, data); err == nil {
			return strings.TrimSpace(buf.String())
		}
	}
	log.Printf("prompts: using fallback for %s: %v", name, err)
	if fb, ok := fallbacks[name]; ok {
		return fb(data)
	}
	return ""
}

func parse(name string) (*template.Template, error) {
	fileName := fmt.Sprintf("catalog/%s.tmpl", name)
	content, err := CatalogFS.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("could not read embedded prompt %s: %w", fileName, err)
	}
	return template.New(name).Funcs(funcs).Parse(string(content))
}
