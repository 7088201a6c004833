package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gnemet/SlideKaraoke/internal/render"
	"github.com/gnemet/SlideKaraoke/internal/slides"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "(empty)", maskKey(""))
	assert.Equal(t, "****", maskKey("r8_short"))
	assert.Equal(t, "r8_a...wxyz", maskKey("r8_abcdefghijklmnopqrstuvwxyz"))
}

func TestWriteDeck(t *testing.T) {
	container := render.NewContainer(nil)
	require.NoError(t, container.Append(render.SlideSection(slides.GeneratedSlide{
		Title:    "Kubernetes for Cats",
		ImageURL: "https://replicate.delivery/cat.webp",
	}, render.CaptionsFor("en"))))

	outputPath = filepath.Join(t.TempDir(), "deck.html")
	lang = "en"
	t.Cleanup(func() { outputPath = "" })

	require.NoError(t, writeDeck(container, 15000))
	b, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Kubernetes for Cats")
	assert.Contains(t, string(b), "15000")
}

func TestRequestConfigFromFlags(t *testing.T) {
	t.Cleanup(func() {
		slideCount = slides.DefaultSlideCount
		delaySeconds = slides.DefaultDelaySeconds
	})

	slideCount, delaySeconds = -3, slides.MaxDelaySeconds+1
	rc := requestConfig(50)
	assert.Equal(t, 0, rc.SlideCount)
	assert.Equal(t, slides.DefaultDelaySeconds*1000, rc.DelayMs)

	slideCount, delaySeconds = 80, -1
	rc = requestConfig(50)
	assert.Equal(t, 50, rc.SlideCount)
	assert.Equal(t, slides.DefaultDelaySeconds*1000, rc.DelayMs)

	slideCount, delaySeconds = 4, 2
	assert.Equal(t, slides.RequestConfig{SlideCount: 4, DelayMs: 2000}, requestConfig(0))
}
