package archive

import (
	"bytes"
	"testing"
)

func padded(head []byte) []byte {
	out := make([]byte, SniffLen)
	copy(out, head)
	return out
}

func TestDetectExtension_MagicBytesBeatContentType(t *testing.T) {
	cases := []struct {
		name        string
		chunk       []byte
		contentType string
		want        string
	}{
		{"gif89a over video/mp4", padded([]byte("GIF89a")), "video/mp4", ".gif"},
		{"gif87a", padded([]byte("GIF87a")), "", ".gif"},
		{"png", padded([]byte("\x89PNG\r\n\x1a\n")), "image/gif", ".png"},
		{"jpeg", padded([]byte("\xff\xd8\xff\xe0")), "image/png", ".jpg"},
		{"ftyp box", padded(append(bytes.Repeat([]byte{0}, 4), []byte("ftypisom")...)), "image/jpeg", ".mp4"},
	}

	for _, tc := range cases {
		if got := DetectExtension(tc.chunk, tc.contentType, ".bin"); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestDetectExtension_FtypOnlyWithinFirst20Bytes(t *testing.T) {
	chunk := make([]byte, SniffLen)
	copy(chunk[24:], "ftyp")

	if got := DetectExtension(chunk, "", ".jpg"); got != ".jpg" {
		t.Fatalf("ftyp past byte 20 should not match, got %q", got)
	}
}

func TestDetectExtension_ContentTypeFallback(t *testing.T) {
	junk := padded([]byte("no signature here"))

	if got := DetectExtension(junk, "image/png", ".jpg"); got != ".png" {
		t.Fatalf("declared image/png should win over fallback, got %q", got)
	}
	if got := DetectExtension(junk, "video/webm; codecs=vp9", ".jpg"); got != ".webm" {
		t.Fatalf("content-type parameters should be ignored, got %q", got)
	}
}

func TestDetectExtension_UnknownEverythingReturnsFallback(t *testing.T) {
	junk := padded([]byte("no signature here"))

	if got := DetectExtension(junk, "application/octet-stream", ".gifv"); got != ".gifv" {
		t.Fatalf("expected fallback .gifv, got %q", got)
	}
}
