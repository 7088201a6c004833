// Package ui embeds the page templates and static assets.
package ui

import "embed"

//go:embed templates/*.html
var Templates embed.FS

//go:embed static
var Static embed.FS
