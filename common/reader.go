package common

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/whosonfirst/go-reader/v2"
)

var readers = make(map[string]reader.Reader)
var readers_mu = new(sync.RWMutex)

// NewReader returns a whosonfirst/go-reader.Reader instance. Instances
// are cached in memory for repeat lookups.
func NewReader(ctx context.Context, uri string) (reader.Reader, error) {

	readers_mu.Lock()
	defer readers_mu.Unlock()

	r, ok := readers[uri]

	if ok {
		return r, nil
	}

	r, err := reader.NewReader(ctx, uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to create reader for '%s', %w", uri, err)
	}

	readers[uri] = r
	return r, nil
}

// ReadFile reads the entire contents of the local file at 'path' using an fs:// reader
// rooted at the file's parent directory.
func ReadFile(ctx context.Context, path string) ([]byte, error) {

	root, fname, err := splitPath(path)

	if err != nil {
		return nil, err
	}

	r, err := NewReader(ctx, fmt.Sprintf("fs://%s", root))

	if err != nil {
		return nil, err
	}

	fh, err := r.Read(ctx, fname)

	if err != nil {
		return nil, fmt.Errorf("Failed to open %s for reading, %w", path, err)
	}

	defer fh.Close()

	body, err := io.ReadAll(fh)

	if err != nil {
		return nil, fmt.Errorf("Failed to read %s, %w", path, err)
	}

	return body, nil
}

func splitPath(path string) (string, string, error) {

	abs_path, err := filepath.Abs(path)

	if err != nil {
		return "", "", fmt.Errorf("Failed to derive absolute path for %s, %w", path, err)
	}

	return filepath.Dir(abs_path), filepath.Base(abs_path), nil
}
