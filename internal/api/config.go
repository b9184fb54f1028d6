package api

import (
	"github.com/FocuswithJustin/glyphmark/core/glyphs"
	"github.com/FocuswithJustin/glyphmark/internal/history"
)

// Config holds server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string // CORS and WebSocket origins (empty = allow all)
	MaxBodyBytes   int64    // request body cap (0 = unlimited)
	Registry       *glyphs.Registry
	History        *history.Store // optional run history
}
