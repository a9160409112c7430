package profile

import (
	"encoding/base64"
	"net/http"
	"strings"
	"sync"

	"finitefield.org/nutricart/internal/format"
)

// DefaultMaxUploadBytes caps profile image uploads.
const DefaultMaxUploadBytes int64 = 5 * 1024 * 1024

// ValidateUpload checks an upload's size against max (DefaultMaxUploadBytes when max <= 0).
// Exactly max bytes is accepted.
func ValidateUpload(size, max int64) error {
	if max <= 0 {
		max = DefaultMaxUploadBytes
	}
	if size <= 0 {
		return &ValidationError{Field: "image", Message: "Please select a file first"}
	}
	if size > max {
		return &ValidationError{
			Field:   "image",
			Message: "File size too large. Maximum size is " + maxLabel(max),
		}
	}
	return nil
}

func maxLabel(max int64) string {
	return strings.ReplaceAll(format.FileSize(max), " ", "")
}

// Describe renders the "name (size)" label shown next to a chosen file.
func Describe(filename string, size int64) string {
	return filename + " (" + format.FileSize(size) + ")"
}

// DataURL encodes raw image bytes as a base64 data URL. An empty contentType is sniffed.
func DataURL(contentType string, data []byte) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ImageState tracks which image source a visitor sees. Begin dims the current image while an
// upload is in flight; a failed upload restores the source shown before it started.
type ImageState struct {
	mu       sync.Mutex
	original string
	current  string
	pending  bool
}

// NewImageState starts from the given source.
func NewImageState(src string) *ImageState {
	return &ImageState{original: src, current: src}
}

// Preview switches to a locally chosen image without committing it.
func (s *ImageState) Preview(src string) {
	s.mu.Lock()
	s.current = src
	s.mu.Unlock()
}

// Begin marks an upload in flight.
func (s *ImageState) Begin() {
	s.mu.Lock()
	s.pending = true
	s.mu.Unlock()
}

// Succeed commits src as the new original.
func (s *ImageState) Succeed(src string) {
	s.mu.Lock()
	s.original = src
	s.current = src
	s.pending = false
	s.mu.Unlock()
}

// Fail reverts to the original source.
func (s *ImageState) Fail() {
	s.mu.Lock()
	s.current = s.original
	s.pending = false
	s.mu.Unlock()
}

// Source returns the image currently shown.
func (s *ImageState) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Pending reports whether an upload is in flight.
func (s *ImageState) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}
