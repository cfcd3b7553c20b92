package lookup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Replaced in tests to simulate rename failures.
var renameFunc = os.Rename

// LocalDirectory is a Directory for a path on the local filesystem. Files are moved with os.Rename.
type LocalDirectory struct {
	Directory
	root string
}

// NewLocalDirectory returns a LocalDirectory for 'root' which must be an existing directory.
func NewLocalDirectory(ctx context.Context, root string) (Directory, error) {

	info, err := os.Stat(root)

	if err != nil {
		return nil, fmt.Errorf("Failed to stat %s, %w", root, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	d := &LocalDirectory{
		root: root,
	}

	return d, nil
}

func (d *LocalDirectory) URI() string {
	return d.root
}

func (d *LocalDirectory) Stems(ctx context.Context, ext string) ([]string, error) {

	entries, err := os.ReadDir(d.root)

	if err != nil {
		return nil, err
	}

	stems := make([]string, 0)

	for _, e := range entries {

		if e.IsDir() {
			continue
		}

		stem, ok := stemFromName(e.Name(), ext)

		if !ok {
			continue
		}

		stems = append(stems, stem)
	}

	sort.Strings(stems)
	return stems, nil
}

func (d *LocalDirectory) Exists(ctx context.Context, name string) (bool, error) {

	_, err := os.Lstat(filepath.Join(d.root, name))

	if err == nil {
		return true, nil
	}

	if os.IsNotExist(err) {
		return false, nil
	}

	return false, fmt.Errorf("Failed to stat %s, %w", name, err)
}

func (d *LocalDirectory) Move(ctx context.Context, old_name string, new_name string) error {

	old_path := filepath.Join(d.root, old_name)
	new_path := filepath.Join(d.root, new_name)

	exists, err := d.Exists(ctx, new_name)

	if err != nil {
		return err
	}

	if exists {
		return fmt.Errorf("Failed to move %s to %s, %w", old_name, new_name, ErrTargetExists)
	}

	err = renameFunc(old_path, new_path)

	if err != nil {
		return fmt.Errorf("Failed to move %s to %s, %w", old_name, new_name, err)
	}

	return nil
}

func (d *LocalDirectory) Close() error {
	return nil
}
