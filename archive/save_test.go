package archive

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func serveBody(t *testing.T, contentType string, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSave_WritesFullBody(t *testing.T) {
	body := append([]byte("GIF89a"), bytes.Repeat([]byte{0xab}, 4000)...)
	srv := serveBody(t, "", body)
	dir := t.TempDir()

	res, err := NewWriter().Save(context.Background(), srv.URL, dir, "abc123", ".jpg")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if res.Bytes != int64(len(body)) {
		t.Fatalf("reported %d bytes, want %d", res.Bytes, len(body))
	}
	got, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("file content differs from response body")
	}
}

func TestSave_MagicBytesOverrideFallback(t *testing.T) {
	srv := serveBody(t, "image/jpeg", append([]byte("GIF89a"), bytes.Repeat([]byte{0}, 64)...))
	dir := t.TempDir()

	res, err := NewWriter().Save(context.Background(), srv.URL, dir, "abc123", ".jpg")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if res.Extension != ".gif" {
		t.Fatalf("extension = %s, want .gif", res.Extension)
	}
	if filepath.Base(res.Path) != "abc123.gif" {
		t.Fatalf("path = %s, want abc123.gif", res.Path)
	}
}

func TestSave_CollisionSuffixes(t *testing.T) {
	srv := serveBody(t, "image/png", append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{1}, 64)...))
	dir := t.TempDir()

	for _, name := range []string{"abc123.png", "abc123_2.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("earlier"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	res, err := NewWriter().Save(context.Background(), srv.URL, dir, "abc123", ".png")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Base(res.Path) != "abc123_3.png" {
		t.Fatalf("path = %s, want abc123_3.png", res.Path)
	}
	// The earlier files must be untouched.
	for _, name := range []string{"abc123.png", "abc123_2.png"} {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "earlier" {
			t.Fatalf("%s was overwritten", name)
		}
	}
}

func TestSave_EmptyBody(t *testing.T) {
	srv := serveBody(t, "image/png", nil)

	_, err := NewWriter().Save(context.Background(), srv.URL, t.TempDir(), "abc123", ".png")
	if !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
}

func TestSave_ShortBodyStillSaved(t *testing.T) {
	// Shorter than the sniff window but non-empty.
	srv := serveBody(t, "", []byte("GIF89a"))
	dir := t.TempDir()

	res, err := NewWriter().Save(context.Background(), srv.URL, dir, "tiny00", ".jpg")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if res.Bytes != 6 || res.Extension != ".gif" {
		t.Fatalf("got %d bytes ext %s, want 6 bytes .gif", res.Bytes, res.Extension)
	}
}

func TestUniquePath_PropagatesStatError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "plain"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Stat through a regular file fails with ENOTDIR, which must not be
	// confused with a taken name.
	_, err := uniquePath(filepath.Join(dir, "plain", "sub"), "abc123", ".png")
	if err == nil {
		t.Fatal("expected an error when the destination cannot be inspected")
	}
}

func TestSave_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dir := t.TempDir()
	_, err := NewWriter().Save(context.Background(), srv.URL, dir, "abc123", ".png")
	if err == nil {
		t.Fatal("expected an error for a 404 snapshot")
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("no file should be created on a failed fetch, found %d", len(entries))
	}
}
