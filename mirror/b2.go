package mirror

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/url"
	"path/filepath"

	blazer "github.com/Backblaze/blazer/b2"
)

const maxUploadSize = 500 * 1024 * 1024

var _ Destination = (*B2Destination)(nil)

// B2Destination uploads snapshots to a Backblaze B2 bucket.
type B2Destination struct {
	bucket *blazer.Bucket
}

func NewB2(ctx context.Context, config *url.URL) (*B2Destination, error) {
	keyID := config.User.Username()
	appKey, _ := config.User.Password()
	bucketName := config.Hostname()

	client, err := blazer.NewClient(ctx, keyID, appKey)
	if err != nil {
		return nil, fmt.Errorf("creating blazer/b2 client: %w", err)
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("getting b2 bucket: %w", err)
	}

	return &B2Destination{bucket: bucket}, nil
}

func (b2 *B2Destination) String() string {
	return fmt.Sprintf("b2 %q bucket", b2.bucket.Name())
}

func (b2 *B2Destination) Close() error {
	return nil
}

func (b2 *B2Destination) Upload(ctx context.Context, name string, content []byte) error {
	if err := validateSimpleFilename(name); err != nil {
		return err
	}

	uploadAttrs := blazer.Attrs{}
	ext := filepath.Ext(name)
	if ext == "" {
		return fmt.Errorf("expecting extension for b2 file upload: %s", name)
	}
	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		uploadAttrs.ContentType = mimeType
	}

	// Single-chunk uploads only; snapshots are far below this.
	writer := b2.bucket.Object(name).NewWriter(ctx, blazer.WithAttrsOption(&uploadAttrs))
	writer.ChunkSize = maxUploadSize + 1
	writer.UseFileBuffer = false

	if _, err := writer.ReadFrom(bytes.NewReader(content)); err != nil {
		writer.Close()
		return fmt.Errorf("copying file to b2: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing b2 file: %w", err)
	}
	return nil
}
