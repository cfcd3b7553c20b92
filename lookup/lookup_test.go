package lookup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gocloud.dev/blob/memblob"
)

func touch(t *testing.T, path string, body string) {
	t.Helper()

	err := os.WriteFile(path, []byte(body), 0644)

	if err != nil {
		t.Fatalf("Failed to write %s, %v", path, err)
	}
}

func TestLocalDirectoryStems(t *testing.T) {

	ctx := context.Background()
	root := t.TempDir()

	touch(t, filepath.Join(root, "hill.webp"), "h")
	touch(t, filepath.Join(root, "beach.webp"), "b")
	touch(t, filepath.Join(root, "a.b.webp"), "ab")
	touch(t, filepath.Join(root, "notes.txt"), "n")
	touch(t, filepath.Join(root, "UPPER.WEBP"), "u")
	touch(t, filepath.Join(root, "hill.webp.bak"), "h")

	err := os.Mkdir(filepath.Join(root, "dir.webp"), 0755)

	if err != nil {
		t.Fatalf("Failed to create directory, %v", err)
	}

	d, err := NewDirectory(ctx, root)

	if err != nil {
		t.Fatalf("Failed to create directory, %v", err)
	}

	defer d.Close()

	stems, err := d.Stems(ctx, ".webp")

	if err != nil {
		t.Fatalf("Failed to list stems, %v", err)
	}

	expected := []string{"a.b", "beach", "hill"}

	if !reflect.DeepEqual(stems, expected) {
		t.Fatalf("Unexpected stems %v, expected %v", stems, expected)
	}
}

func TestNewLocalDirectoryInvalid(t *testing.T) {

	ctx := context.Background()
	root := t.TempDir()

	_, err := NewDirectory(ctx, filepath.Join(root, "missing"))

	if err == nil {
		t.Fatalf("Expected an error for a missing directory")
	}

	path := filepath.Join(root, "file.webp")
	touch(t, path, "x")

	_, err = NewDirectory(ctx, path)

	if err == nil {
		t.Fatalf("Expected an error for a file")
	}
}

func TestLocalDirectoryMove(t *testing.T) {

	ctx := context.Background()
	root := t.TempDir()

	touch(t, filepath.Join(root, "hill.webp"), "h")
	touch(t, filepath.Join(root, "beach.webp"), "b")

	d, err := NewLocalDirectory(ctx, root)

	if err != nil {
		t.Fatalf("Failed to create directory, %v", err)
	}

	err = d.Move(ctx, "hill.webp", "img_001.webp")

	if err != nil {
		t.Fatalf("Failed to move file, %v", err)
	}

	body, err := os.ReadFile(filepath.Join(root, "img_001.webp"))

	if err != nil || string(body) != "h" {
		t.Fatalf("Expected moved file to have original contents, %v", err)
	}

	err = d.Move(ctx, "beach.webp", "img_001.webp")

	if !errors.Is(err, ErrTargetExists) {
		t.Fatalf("Expected ErrTargetExists, got %v", err)
	}

	body, err = os.ReadFile(filepath.Join(root, "img_001.webp"))

	if err != nil || string(body) != "h" {
		t.Fatalf("Existing target should not have been replaced, %v", err)
	}
}

func TestLocalDirectoryExists(t *testing.T) {

	ctx := context.Background()
	root := t.TempDir()

	touch(t, filepath.Join(root, "hill.webp"), "h")

	err := os.Mkdir(filepath.Join(root, "img_001.webp"), 0755)

	if err != nil {
		t.Fatalf("Failed to create directory, %v", err)
	}

	d, err := NewLocalDirectory(ctx, root)

	if err != nil {
		t.Fatalf("Failed to create directory, %v", err)
	}

	for name, expected := range map[string]bool{
		"hill.webp":    true,
		"img_001.webp": true,
		"img_002.webp": false,
	} {

		exists, err := d.Exists(ctx, name)

		if err != nil {
			t.Fatalf("Failed to check %s, %v", name, err)
		}

		if exists != expected {
			t.Fatalf("Expected Exists(%s) to be %t", name, expected)
		}
	}

	// directories are not files but still block a move
	err = d.Move(ctx, "hill.webp", "img_001.webp")

	if !errors.Is(err, ErrTargetExists) {
		t.Fatalf("Expected ErrTargetExists, got %v", err)
	}
}

func TestLocalDirectoryMoveFailure(t *testing.T) {

	ctx := context.Background()
	root := t.TempDir()

	touch(t, filepath.Join(root, "hill.webp"), "h")

	old := renameFunc

	renameFunc = func(old_path string, new_path string) error {
		return os.ErrPermission
	}

	defer func() { renameFunc = old }()

	d, err := NewLocalDirectory(ctx, root)

	if err != nil {
		t.Fatalf("Failed to create directory, %v", err)
	}

	err = d.Move(ctx, "hill.webp", "img_001.webp")

	if !errors.Is(err, os.ErrPermission) {
		t.Fatalf("Expected wrapped permission error, got %v", err)
	}
}

func TestBlobDirectory(t *testing.T) {

	ctx := context.Background()

	bucket := memblob.OpenBucket(nil)

	for key, body := range map[string]string{
		"hill.webp":        "h",
		"beach.webp":       "b",
		"notes.txt":        "n",
		"nested/deep.webp": "d",
	} {

		err := bucket.WriteAll(ctx, key, []byte(body), nil)

		if err != nil {
			t.Fatalf("Failed to write %s, %v", key, err)
		}
	}

	d, err := NewBlobDirectoryWithBucket(ctx, "mem://", bucket)

	if err != nil {
		t.Fatalf("Failed to create directory, %v", err)
	}

	defer d.Close()

	set, err := StemsSet(ctx, d, ".webp")

	if err != nil {
		t.Fatalf("Failed to list stems, %v", err)
	}

	if len(set) != 2 || !set["hill"] || !set["beach"] {
		t.Fatalf("Unexpected stems: %v", set)
	}

	err = d.Move(ctx, "hill.webp", "img_001.webp")

	if err != nil {
		t.Fatalf("Failed to move blob, %v", err)
	}

	exists, err := d.Exists(ctx, "img_001.webp")

	if err != nil || !exists {
		t.Fatalf("Expected moved blob to exist (%v)", err)
	}

	exists, err = bucket.Exists(ctx, "hill.webp")

	if err != nil || exists {
		t.Fatalf("Expected original blob to be removed (%v)", err)
	}

	body, err := bucket.ReadAll(ctx, "img_001.webp")

	if err != nil || string(body) != "h" {
		t.Fatalf("Expected moved blob to have original contents (%v)", err)
	}

	err = d.Move(ctx, "beach.webp", "img_001.webp")

	if !errors.Is(err, ErrTargetExists) {
		t.Fatalf("Expected ErrTargetExists, got %v", err)
	}
}
