package lookup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/sfomuseum/go-geojson-media/common"
	"gocloud.dev/blob"
)

// BlobDirectory is a Directory for the top level of a gocloud.dev/blob bucket. Buckets have no rename
// operation so files are moved by copying, confirming the copy's fingerprint and deleting the original.
type BlobDirectory struct {
	Directory
	uri    string
	bucket *blob.Bucket
}

func NewBlobDirectory(ctx context.Context, uri string) (Directory, error) {

	bucket, err := blob.OpenBucket(ctx, uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to open bucket %s, %w", uri, err)
	}

	return NewBlobDirectoryWithBucket(ctx, uri, bucket)
}

func NewBlobDirectoryWithBucket(ctx context.Context, uri string, bucket *blob.Bucket) (Directory, error) {

	d := &BlobDirectory{
		uri:    uri,
		bucket: bucket,
	}

	return d, nil
}

func (d *BlobDirectory) URI() string {
	return d.uri
}

func (d *BlobDirectory) Stems(ctx context.Context, ext string) ([]string, error) {

	iter := d.bucket.List(&blob.ListOptions{
		Delimiter: "/",
	})

	stems := make([]string, 0)

	for {
		obj, err := iter.Next(ctx)

		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, err
		}

		if obj.IsDir {
			continue
		}

		stem, ok := stemFromName(obj.Key, ext)

		if !ok {
			continue
		}

		stems = append(stems, stem)
	}

	sort.Strings(stems)
	return stems, nil
}

func (d *BlobDirectory) Exists(ctx context.Context, name string) (bool, error) {

	exists, err := d.bucket.Exists(ctx, name)

	if err != nil {
		return false, fmt.Errorf("Failed to determine if %s exists, %w", name, err)
	}

	return exists, nil
}

func (d *BlobDirectory) Move(ctx context.Context, old_name string, new_name string) error {

	logger := slog.Default()
	logger = logger.With("old", old_name, "new", new_name)

	exists, err := d.Exists(ctx, new_name)

	if err != nil {
		return err
	}

	if exists {
		return fmt.Errorf("Failed to move %s to %s, %w", old_name, new_name, ErrTargetExists)
	}

	err = d.bucket.Copy(ctx, new_name, old_name, nil)

	if err != nil {
		return fmt.Errorf("Failed to copy %s to %s, %w", old_name, new_name, err)
	}

	old_fp, err := common.FingerprintFile(ctx, d.bucket, old_name)

	if err != nil {
		return fmt.Errorf("Failed to fingerprint %s, %w", old_name, err)
	}

	new_fp, err := common.FingerprintFile(ctx, d.bucket, new_name)

	if err != nil {
		return fmt.Errorf("Failed to fingerprint %s, %w", new_name, err)
	}

	if old_fp != new_fp {

		err := d.bucket.Delete(ctx, new_name)

		if err != nil {
			logger.Error("Failed to remove mismatched copy", "error", err)
		}

		return fmt.Errorf("Copy of %s has fingerprint %s, expected %s", old_name, new_fp, old_fp)
	}

	err = d.bucket.Delete(ctx, old_name)

	if err != nil {
		return fmt.Errorf("Failed to delete %s after copying to %s, %w", old_name, new_name, err)
	}

	logger.Debug("Moved blob", "fingerprint", new_fp)
	return nil
}

func (d *BlobDirectory) Close() error {
	return d.bucket.Close()
}
