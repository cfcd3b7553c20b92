package gather

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sfomuseum/go-geojson-media/common"
	"gocloud.dev/blob"
)

type GatherImagesResponse struct {
	Path        string
	Fingerprint string
	MimeType    string
	ImageHashes []*common.ImageHashRsp
}

type GatherImageCallbackFunc func(*GatherImagesResponse) error

type GatherImagesOptions struct {
	Callback   GatherImageCallbackFunc
	HashImages bool
	// If not empty, only files with one of these (case-sensitive) extensions are gathered.
	// Otherwise any file whose extension maps to an image/* mimetype is.
	Extensions []string
}

func GatherImages(ctx context.Context, bucket *blob.Bucket, cb GatherImageCallbackFunc) error {

	opts := &GatherImagesOptions{
		Callback:   cb,
		HashImages: true,
	}

	return GatherImagesWithOptions(ctx, bucket, opts)
}

func GatherImagesWithOptions(ctx context.Context, bucket *blob.Bucket, opts *GatherImagesOptions) error {

	gather_ch := make(chan *GatherImagesResponse)

	done_ch := make(chan bool)
	err_ch := make(chan error)

	go func() {

		err := CrawlImages(ctx, bucket, opts, gather_ch)

		if err != nil {
			err_ch <- err
		}

		done_ch <- true
	}()

	gathering := true
	wg := new(sync.WaitGroup)

	for {
		select {

		case <-done_ch:
			gathering = false
		case err := <-err_ch:
			return err
		case gather_rsp := <-gather_ch:

			wg.Add(1)

			go func(rsp *GatherImagesResponse) {

				defer wg.Done()

				err := opts.Callback(rsp)

				if err != nil {
					slog.Error("Failed to process image", "path", rsp.Path, "error", err)
				}

			}(gather_rsp)

		}

		if !gathering {
			break
		}
	}

	wg.Wait()
	return nil
}

// Iterate through all the images stored in a blob.Bucket instance, generate a GatherImagesResponse for each
// and dispatch that response to a user-defined channel.
func CrawlImages(ctx context.Context, bucket *blob.Bucket, opts *GatherImagesOptions, rsp_ch chan *GatherImagesResponse) error {

	paths, err := ListImages(ctx, bucket, opts.Extensions...)

	if err != nil {
		return err
	}

	for _, path := range paths {

		select {
		case <-ctx.Done():
			return nil
		default:
			// pass
		}

		rsp, err := GatherImageResponseWithPath(ctx, bucket, path, opts.HashImages)

		if err != nil {
			return err
		}

		rsp_ch <- rsp
	}

	return nil
}

// ListImages returns the sorted keys of every image in a blob.Bucket instance, descending in to
// "directories". If 'extensions' is not empty only keys ending in one of them are included.
func ListImages(ctx context.Context, bucket *blob.Bucket, extensions ...string) ([]string, error) {

	paths := make([]string, 0)

	var list func(context.Context, *blob.Bucket, string) error

	list = func(ctx context.Context, b *blob.Bucket, prefix string) error {

		iter := b.List(&blob.ListOptions{
			Delimiter: "/",
			Prefix:    prefix,
		})

		for {

			select {
			case <-ctx.Done():
				return nil
			default:
				// pass
			}

			obj, err := iter.Next(ctx)

			if err == io.EOF {
				break
			}

			if err != nil {
				return err
			}

			if obj.IsDir {

				err := list(ctx, b, obj.Key)

				if err != nil {
					return err
				}

				continue
			}

			if !isImage(obj.Key, extensions) {
				continue
			}

			paths = append(paths, obj.Key)
		}

		return nil
	}

	err := list(ctx, bucket, "")

	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

func GatherImageResponseWithPath(ctx context.Context, bucket *blob.Bucket, path string, hash_images bool) (*GatherImagesResponse, error) {

	t := mime.TypeByExtension(filepath.Ext(path))

	fp, err := common.FingerprintFile(ctx, bucket, path)

	if err != nil {
		return nil, err
	}

	rsp := &GatherImagesResponse{
		Path:        path,
		MimeType:    t,
		Fingerprint: fp,
	}

	if hash_images {

		hashes, err := common.ImageHashes(ctx, bucket, path)

		if err != nil {
			return nil, err
		}

		rsp.ImageHashes = hashes
	}

	return rsp, nil
}

func isImage(path string, extensions []string) bool {

	ext := filepath.Ext(path)

	if len(extensions) > 0 {

		for _, e := range extensions {
			if ext == e {
				return true
			}
		}

		return false
	}

	t := mime.TypeByExtension(ext)
	return strings.HasPrefix(t, "image/")
}
