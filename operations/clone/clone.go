// Package clone copies a single image within, or between, gocloud.dev/blob buckets.
package clone

import (
	"context"
	"errors"
	"io"

	"gocloud.dev/blob"
)

type CloneImageOptions struct {
	Source *blob.Bucket
	Target *blob.Bucket
	// The key of the image in Source.
	Filename string
	// The key to write in Target. If empty Filename is used.
	TargetFilename string
	// If false an existing key in Target is left untouched.
	Force bool
}

// CloneImage copies an image and returns the key it was written to (or the existing key that
// was left alone) and a boolean indicating whether anything was written.
func CloneImage(ctx context.Context, opts *CloneImageOptions) (string, bool, error) {

	if opts.Source == nil || opts.Target == nil {
		return "", false, errors.New("Missing source or target bucket")
	}

	target_path := opts.TargetFilename

	if target_path == "" {
		target_path = opts.Filename
	}

	select {
	case <-ctx.Done():
		return "", false, nil
	default:
		// pass
	}

	if !opts.Force {

		exists, err := opts.Target.Exists(ctx, target_path)

		if err != nil {
			return target_path, false, err
		}

		if exists {
			return target_path, false, nil
		}
	}

	source_fh, err := opts.Source.NewReader(ctx, opts.Filename, nil)

	if err != nil {
		return target_path, false, err
	}

	defer source_fh.Close()

	target_wr, err := opts.Target.NewWriter(ctx, target_path, nil)

	if err != nil {
		return target_path, false, err
	}

	_, err = io.Copy(target_wr, source_fh)

	if err != nil {
		target_wr.Close()
		opts.Target.Delete(ctx, target_path)
		return target_path, false, err
	}

	err = target_wr.Close()

	if err != nil {
		return target_path, false, err
	}

	return target_path, true, nil
}
