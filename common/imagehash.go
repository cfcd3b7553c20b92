package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/corona10/goimagehash"
	"gocloud.dev/blob"
)

// ImageHashRsp is a struct representing the results of an image hashing operation.
type ImageHashRsp struct {
	// String label describing the image hashing procedure used.
	Approach string
	// The hexidecimal hash of an image.
	Hash string
}

var hash_approaches = []string{
	"avg",
	"diff",
	// don't bother with this for now since it appears to return the same string hash as "avg" : "ext",
}

// Generate a list of ImageHashRsp instances for a file stored in a blob.Bucket instance
// using the corona10/goimagehash package.
func ImageHashes(ctx context.Context, bucket *blob.Bucket, im_path string) ([]*ImageHashRsp, error) {

	body, err := bucket.ReadAll(ctx, im_path)

	if err != nil {
		return nil, fmt.Errorf("Failed to read %s, %w", im_path, err)
	}

	return ImageHashesWithBytes(ctx, body)
}

// Generate a list of ImageHashRsp instances for an encoded image. The decoders for the image's
// format must have been registered (for example by importing golang.org/x/image/webp).
func ImageHashesWithBytes(ctx context.Context, body []byte) ([]*ImageHashRsp, error) {

	im, _, err := image.Decode(bytes.NewReader(body))

	if err != nil {
		return nil, fmt.Errorf("Failed to decode image, %w", err)
	}

	return ImageHashesWithImage(ctx, im)
}

// Generate a list of ImageHashRsp instances for a decoded image. Results are sorted in the
// same order as the hashing approaches so they can be compared directly.
func ImageHashesWithImage(ctx context.Context, im image.Image) ([]*ImageHashRsp, error) {

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done_ch := make(chan bool)
	err_ch := make(chan error)
	rsp_ch := make(chan *ImageHashRsp)

	for _, a := range hash_approaches {

		go func(ctx context.Context, im image.Image, a string) {

			defer func() {
				done_ch <- true
			}()

			rsp, err := imageHash(ctx, im, a)

			if err != nil {
				err_ch <- err
				return
			}

			if rsp != nil {
				rsp_ch <- rsp
			}

		}(ctx, im, a)

	}

	remaining := len(hash_approaches)
	by_approach := make(map[string]*ImageHashRsp)

	for remaining > 0 {

		select {

		case <-done_ch:
			remaining -= 1
		case err := <-err_ch:
			slog.Error("Image hash channel received error", "error", err)
		case rsp := <-rsp_ch:
			by_approach[rsp.Approach] = rsp
		}
	}

	hashes := make([]*ImageHashRsp, 0, len(by_approach))

	for _, a := range hash_approaches {

		rsp, ok := by_approach[a]

		if ok {
			hashes = append(hashes, rsp)
		}
	}

	return hashes, nil
}

// CompleteImageHashes reports whether 'hashes' has a result for every hashing approach. Approaches
// that fail are logged and left out by ImageHashesWithImage.
func CompleteImageHashes(hashes []*ImageHashRsp) bool {
	return len(hashes) == len(hash_approaches)
}

// EqualImageHashes reports whether 'a' and 'b' contain the same approaches with identical hashes.
// Two empty lists are not equal since nothing was compared.
func EqualImageHashes(a []*ImageHashRsp, b []*ImageHashRsp) bool {

	if len(a) == 0 || len(a) != len(b) {
		return false
	}

	for i, h := range a {

		if h.Approach != b[i].Approach || h.Hash != b[i].Hash {
			return false
		}
	}

	return true
}

func imageHash(ctx context.Context, im image.Image, approach string) (*ImageHashRsp, error) {

	select {
	case <-ctx.Done():
		return nil, nil
	default:
		// pass
	}

	var h *goimagehash.ImageHash
	var err error

	switch approach {
	case "avg":
		h, err = goimagehash.AverageHash(im)
	case "diff":
		h, err = goimagehash.DifferenceHash(im)
	default:
		err = errors.New("Unknown approach")
	}

	if err != nil {
		return nil, fmt.Errorf("Failed to process image hash appoach '%s', %w", approach, err)
	}

	rsp := &ImageHashRsp{
		Approach: approach,
		Hash:     h.ToString(),
	}

	return rsp, nil
}
