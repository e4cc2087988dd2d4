package middleware

import (
	"io"
	"net/http"

	"github.com/andybalholm/brotli"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// compressibleTypes are the content types worth encoding.
var compressibleTypes = []string{
	"text/html",
	"text/plain",
	"application/json",
	"application/xml",
	"application/manifest+json",
	"application/problem+json",
}

// Compress returns chi's compressor with brotli preferred over gzip and
// deflate.
func Compress(level int) func(http.Handler) http.Handler {
	c := chimiddleware.NewCompressor(level, compressibleTypes...)
	c.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	return c.Handler
}
