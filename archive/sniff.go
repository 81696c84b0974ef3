package archive

import (
	"bytes"
	"strings"
)

// SniffLen is how many leading bytes DetectExtension wants to see.
const SniffLen = 32

var extByMIME = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
	"video/mpeg": ".mpeg",
}

// DetectExtension determines the real extension of a snapshot from its
// leading bytes. Archived captures are regularly served with a generic
// or wrong Content-Type, so magic bytes always beat the declared type,
// and the declared type beats fallback (the extension the capture was
// found under).
func DetectExtension(chunk []byte, contentType, fallback string) string {
	switch {
	case bytes.HasPrefix(chunk, []byte("GIF8")):
		return ".gif"
	case bytes.HasPrefix(chunk, []byte("\x89PNG")):
		return ".png"
	case bytes.HasPrefix(chunk, []byte("\xff\xd8")):
		return ".jpg"
	}

	head := chunk
	if len(head) > 20 {
		head = head[:20]
	}
	if bytes.Contains(head, []byte("ftyp")) {
		return ".mp4"
	}

	mediaType, _, _ := strings.Cut(contentType, ";")
	if ext, ok := extByMIME[strings.TrimSpace(mediaType)]; ok {
		return ext
	}
	return fallback
}
