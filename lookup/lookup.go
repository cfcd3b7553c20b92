// Package lookup provides access to the directory of media files that a feature collection refers to.
// Directories are either local filesystem paths or gocloud.dev/blob bucket URIs.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// LookerUpper enumerates the media files in a directory.
type LookerUpper interface {
	// Stems returns the sorted list of names, minus the extension, of every file ending in the extension.
	Stems(context.Context, string) ([]string, error)
}

// Mover moves a media file to a new name within the same directory.
type Mover interface {
	Move(context.Context, string, string) error
}

// Checker reports whether a name is already taken in a directory.
type Checker interface {
	// Exists reports whether any entry (file, directory or link) is present at the name.
	Exists(context.Context, string) (bool, error)
}

// Directory is a LookerUpper, Mover and Checker for a single directory of media files.
type Directory interface {
	LookerUpper
	Mover
	Checker
	// URI returns the location of the directory.
	URI() string
	Close() error
}

// ErrTargetExists is returned by Mover implementations when the target name is already taken.
var ErrTargetExists = errors.New("Target already exists")

// NewDirectory returns a Directory for 'uri'. Values containing "://" are treated as
// gocloud.dev/blob bucket URIs, everything else as a local filesystem path.
func NewDirectory(ctx context.Context, uri string) (Directory, error) {

	if strings.Contains(uri, "://") {
		return NewBlobDirectory(ctx, uri)
	}

	return NewLocalDirectory(ctx, uri)
}

// StemsSet returns the stems of the files in 'l' ending in 'ext' as a set.
func StemsSet(ctx context.Context, l LookerUpper, ext string) (map[string]bool, error) {

	stems, err := l.Stems(ctx, ext)

	if err != nil {
		return nil, fmt.Errorf("Failed to list files, %w", err)
	}

	set := make(map[string]bool, len(stems))

	for _, s := range stems {
		set[s] = true
	}

	return set, nil
}

func stemFromName(name string, ext string) (string, bool) {

	if !strings.HasSuffix(name, ext) || len(name) == len(ext) {
		return "", false
	}

	return strings.TrimSuffix(name, ext), true
}
