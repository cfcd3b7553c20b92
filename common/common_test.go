package common

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadWriteFile(t *testing.T) {

	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")

	err := os.WriteFile(path, []byte(`{"a":1}`), 0644)

	if err != nil {
		t.Fatalf("Failed to seed %s, %v", path, err)
	}

	body, err := ReadFile(ctx, path)

	if err != nil {
		t.Fatalf("Failed to read %s, %v", path, err)
	}

	if string(body) != `{"a":1}` {
		t.Fatalf("Unexpected body: %s", body)
	}

	err = WriteFile(ctx, path, []byte(`{"a":2}`))

	if err != nil {
		t.Fatalf("Failed to write %s, %v", path, err)
	}

	body, err = os.ReadFile(path)

	if err != nil {
		t.Fatalf("Failed to re-read %s, %v", path, err)
	}

	if string(body) != `{"a":2}` {
		t.Fatalf("Unexpected body after write: %s", body)
	}
}

func TestFingerprintReader(t *testing.T) {

	fp, err := FingerprintReader(strings.NewReader("hello"))

	if err != nil {
		t.Fatalf("Failed to fingerprint, %v", err)
	}

	if fp != "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d" {
		t.Fatalf("Unexpected fingerprint: %s", fp)
	}
}

func TestImageHashesWithImage(t *testing.T) {

	ctx := context.Background()

	im := image.NewRGBA(image.Rect(0, 0, 32, 32))

	for x := 0; x < 32; x++ {
		for y := 0; y < 32; y++ {

			c := color.RGBA{0, 0, 0, 255}

			if x > 16 {
				c = color.RGBA{255, 255, 255, 255}
			}

			im.Set(x, y, c)
		}
	}

	a, err := ImageHashesWithImage(ctx, im)

	if err != nil {
		t.Fatalf("Failed to hash image, %v", err)
	}

	if len(a) != 2 {
		t.Fatalf("Expected 2 hashes, got %d", len(a))
	}

	if a[0].Approach != "avg" || a[1].Approach != "diff" {
		t.Fatalf("Unexpected approach order: %s, %s", a[0].Approach, a[1].Approach)
	}

	b, err := ImageHashesWithImage(ctx, im)

	if err != nil {
		t.Fatalf("Failed to hash image a second time, %v", err)
	}

	if !EqualImageHashes(a, b) {
		t.Fatalf("Expected identical hashes for identical images")
	}

	if EqualImageHashes(a, b[:1]) {
		t.Fatalf("Expected hash lists of different lengths to differ")
	}
}

func TestImageHashesIncomplete(t *testing.T) {

	ctx := context.Background()

	// every approach fails for a nil image
	hashes, err := ImageHashesWithImage(ctx, nil)

	if err != nil {
		t.Fatalf("Unexpected error, %v", err)
	}

	if CompleteImageHashes(hashes) {
		t.Fatalf("Expected incomplete hashes, got %d", len(hashes))
	}

	if EqualImageHashes(hashes, hashes) {
		t.Fatalf("Expected empty hash lists not to compare as equal")
	}
}
