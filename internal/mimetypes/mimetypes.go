// Package mimetypes holds the mime-type allow-list for uploads.
// Anything absent or outside the list is stored as the safe default so
// the browser never sniffs attacker-controlled content types.
package mimetypes

// Default is the fallback content type for unknown or disallowed types
const Default = "application/octet-stream"

var allowed = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"image/webp":      true,
	"image/svg+xml":   false, // scriptable, never trusted
	"video/mp4":       true,
	"video/webm":      true,
	"audio/mpeg":      true,
	"audio/ogg":       true,
	"audio/wav":       true,
	"text/plain":      true,
	"application/pdf": true,
	"application/zip": true,
}

// Allowed reports whether the given content type may be served as-is
func Allowed(mimeType string) bool {
	return allowed[mimeType]
}

// Sanitize returns a pointer to the type to persist: the type itself
// when allow-listed, the safe default otherwise (including empty or
// nil input).
func Sanitize(mimeType *string) *string {
	if mimeType == nil || *mimeType == "" || !Allowed(*mimeType) {
		def := Default
		return &def
	}
	return mimeType
}
