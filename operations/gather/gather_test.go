package gather

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"reflect"
	"sync"
	"testing"

	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"
)

func seedBucket(t *testing.T, ctx context.Context) *blob.Bucket {
	t.Helper()

	bucket := memblob.OpenBucket(nil)

	im := image.NewRGBA(image.Rect(0, 0, 16, 16))
	im.Set(4, 4, color.White)

	var buf bytes.Buffer

	err := png.Encode(&buf, im)

	if err != nil {
		t.Fatalf("Failed to encode PNG, %v", err)
	}

	files := map[string][]byte{
		"a.png":         buf.Bytes(),
		"sub/b.png":     buf.Bytes(),
		"c.webp":        []byte("RIFF"),
		"c.webp.bak":    []byte("RIFF"),
		"notes.txt":     []byte("hello"),
		"sub/deep/d.JP": []byte("?"),
	}

	for key, body := range files {

		err := bucket.WriteAll(ctx, key, body, nil)

		if err != nil {
			t.Fatalf("Failed to write %s, %v", key, err)
		}
	}

	return bucket
}

func TestListImages(t *testing.T) {

	ctx := context.Background()
	bucket := seedBucket(t, ctx)

	defer bucket.Close()

	paths, err := ListImages(ctx, bucket)

	if err != nil {
		t.Fatalf("Failed to list images, %v", err)
	}

	expected := []string{"a.png", "c.webp", "sub/b.png"}

	if !reflect.DeepEqual(paths, expected) {
		t.Fatalf("Unexpected paths %v, expected %v", paths, expected)
	}

	paths, err = ListImages(ctx, bucket, ".webp")

	if err != nil {
		t.Fatalf("Failed to list images, %v", err)
	}

	if !reflect.DeepEqual(paths, []string{"c.webp"}) {
		t.Fatalf("Unexpected filtered paths %v", paths)
	}
}

func TestGatherImages(t *testing.T) {

	ctx := context.Background()
	bucket := seedBucket(t, ctx)

	defer bucket.Close()

	mu := new(sync.Mutex)
	gathered := make(map[string]*GatherImagesResponse)

	cb := func(rsp *GatherImagesResponse) error {
		mu.Lock()
		defer mu.Unlock()
		gathered[rsp.Path] = rsp
		return nil
	}

	opts := &GatherImagesOptions{
		Callback:   cb,
		HashImages: true,
		Extensions: []string{".png"},
	}

	err := GatherImagesWithOptions(ctx, bucket, opts)

	if err != nil {
		t.Fatalf("Failed to gather images, %v", err)
	}

	if len(gathered) != 2 {
		t.Fatalf("Expected 2 images, got %d", len(gathered))
	}

	a := gathered["a.png"]
	b := gathered["sub/b.png"]

	if a == nil || b == nil {
		t.Fatalf("Missing gathered images: %v", gathered)
	}

	if a.MimeType != "image/png" {
		t.Fatalf("Unexpected mimetype %s", a.MimeType)
	}

	if a.Fingerprint == "" || a.Fingerprint != b.Fingerprint {
		t.Fatalf("Expected identical non-empty fingerprints, got %s and %s", a.Fingerprint, b.Fingerprint)
	}

	if len(a.ImageHashes) != 2 {
		t.Fatalf("Expected 2 image hashes, got %d", len(a.ImageHashes))
	}
}
