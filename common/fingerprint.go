package common

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"

	"gocloud.dev/blob"
)

// Generate a SHA-1 hash of a file stored in a blob.Bucket instance.
func FingerprintFile(ctx context.Context, bucket *blob.Bucket, path string) (string, error) {

	fh, err := bucket.NewReader(ctx, path, nil)

	if err != nil {
		return "", err
	}

	defer fh.Close()

	return FingerprintReader(fh)
}

// Generate a SHA-1 hash of the contents of an io.Reader.
func FingerprintReader(r io.Reader) (string, error) {

	// h := sha256.New()
	h := sha1.New()

	_, err := io.Copy(h, r)

	if err != nil {
		return "", err
	}

	hash := h.Sum(nil)
	str := hex.EncodeToString(hash[:])

	return str, nil
}
