package generator

import (
	"context"
	"testing"

	"github.com/gnemet/SlideKaraoke/internal/apperr"
	"github.com/gnemet/SlideKaraoke/internal/config"
	"github.com/gnemet/SlideKaraoke/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromConfigWithoutCredentials(t *testing.T) {
	g, cleanup, err := NewFromConfig(context.Background(), config.Default(), database.NewLedger(nil))
	require.NoError(t, err)
	defer cleanup()

	_, err = g.Title(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindConfig, apperr.From(err).Kind)

	_, err = g.Generate(context.Background(), Request{})
	assert.Equal(t, 503, apperr.From(err).Status())
}

func TestNewFromConfigUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.AI.ActiveProvider = "mystery"
	cfg.AI.Providers["mystery"] = config.ProviderSettings{Driver: "mystery", Key: "k"}

	_, _, err := NewFromConfig(context.Background(), cfg, nil)
	assert.Error(t, err)
}
