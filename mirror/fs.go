package mirror

import (
	"context"
	"fmt"
	"net/url"
	"os"
)

var _ Destination = (*FSDestination)(nil)

// FSDestination copies snapshots into a second local directory, for
// example a mounted network share.
type FSDestination struct {
	root *os.Root
}

func NewFS(config *url.URL) (*FSDestination, error) {
	path := config.Host + config.Path
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating mirror directory: %w", err)
	}
	root, err := os.OpenRoot(path)
	if err != nil {
		return nil, fmt.Errorf("opening root: %w", err)
	}
	return &FSDestination{root: root}, nil
}

func (fs *FSDestination) String() string {
	return fmt.Sprintf("filesystem mirror at %s", fs.root.Name())
}

func (fs *FSDestination) Close() error {
	return fs.root.Close()
}

func (fs *FSDestination) Upload(ctx context.Context, name string, content []byte) error {
	if err := validateSimpleFilename(name); err != nil {
		return err
	}
	return fs.root.WriteFile(name, content, os.FileMode(0644))
}
