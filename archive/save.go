package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"imgur-archive-hunter/tr"
)

// DefaultDownloadTimeout bounds the whole snapshot fetch, which can be
// much larger than a CDX lookup.
const DefaultDownloadTimeout = 30 * time.Second

// ErrEmptyBody means the archive served a capture with no content.
var ErrEmptyBody = errors.New("empty file")

// SaveResult describes one file written to disk.
type SaveResult struct {
	Path      string
	Bytes     int64
	Extension string
}

// Writer streams archive snapshots to local files under deterministic,
// collision-avoiding names.
type Writer struct {
	Client *http.Client
}

func NewWriter() *Writer {
	return &Writer{Client: &http.Client{Timeout: DefaultDownloadTimeout}}
}

// Save downloads remoteURL into destDir as baseName plus the detected
// extension. The first SniffLen bytes seed extension detection, with
// fallbackExt used when neither magic bytes nor the declared type are
// recognized. When the candidate path exists the name gets an _2, _3,
// ... suffix; an earlier download is never overwritten. A failure while
// writing propagates; a partial file may remain on disk but the caller
// must not treat the item as saved.
func (w *Writer) Save(ctx context.Context, remoteURL, destDir, baseName, fallbackExt string) (res SaveResult, err error) {
	ctx, span := tracer.Start(ctx, "save_snapshot")
	defer tr.End(span, &err)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return SaveResult{}, fmt.Errorf("create destination %s: %w", destDir, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return SaveResult{}, fmt.Errorf("building snapshot request: %w", err)
	}
	resp, err := w.Client.Do(req)
	if err != nil {
		return SaveResult{}, fmt.Errorf("fetching snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SaveResult{}, fmt.Errorf("unexpected status fetching snapshot: %s", resp.Status)
	}

	chunk := make([]byte, SniffLen)
	n, err := io.ReadFull(resp.Body, chunk)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return SaveResult{}, fmt.Errorf("reading snapshot head: %w", err)
	}
	if n == 0 {
		return SaveResult{}, ErrEmptyBody
	}

	ext := DetectExtension(chunk[:n], resp.Header.Get("Content-Type"), fallbackExt)
	path, err := uniquePath(destDir, baseName, ext)
	if err != nil {
		return SaveResult{}, err
	}
	span.SetAttributes(attribute.String("path", path))

	out, err := os.Create(path)
	if err != nil {
		return SaveResult{}, fmt.Errorf("create file %s: %w", path, err)
	}

	if _, err := out.Write(chunk[:n]); err != nil {
		out.Close()
		return SaveResult{}, fmt.Errorf("write file %s: %w", path, err)
	}
	copied, err := io.Copy(out, resp.Body)
	if err != nil {
		out.Close()
		return SaveResult{}, fmt.Errorf("write file %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return SaveResult{}, fmt.Errorf("close file %s: %w", path, err)
	}

	return SaveResult{
		Path:      path,
		Bytes:     int64(n) + copied,
		Extension: ext,
	}, nil
}

// uniquePath appends _2, _3, ... until the name is free. A stat
// failure other than "does not exist" aborts the search; treating it
// as a taken name would loop forever.
func uniquePath(dir, base, ext string) (string, error) {
	path := filepath.Join(dir, base+ext)
	for n := 2; ; n++ {
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking %s: %w", path, err)
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, n, ext))
	}
}
