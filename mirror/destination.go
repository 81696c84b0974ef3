// Package mirror gives successfully downloaded snapshots an off-box
// copy. Destinations are configured by URL: fs://relative/or/abs/path
// or b2://keyID:applicationKey@bucket.
package mirror

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
)

// Destination receives a copy of every successfully saved snapshot.
type Destination interface {
	io.Closer
	fmt.Stringer
	Upload(ctx context.Context, name string, content []byte) error
}

func NewDestination(ctx context.Context, config *url.URL) (Destination, error) {
	switch config.Scheme {
	case "fs":
		return NewFS(config)
	case "b2":
		return NewB2(ctx, config)
	default:
		return nil, fmt.Errorf("unknown mirror destination: %s", config.Scheme)
	}
}

func validateSimpleFilename(filename string) error {
	if filepath.Base(filename) != filename {
		return fmt.Errorf("filename %q must not contain path separators", filename)
	}
	return nil
}
