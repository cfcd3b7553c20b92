// gather emits a JSON record (path, fingerprint, mimetype and perceptual hashes) for every image in
// one or more gocloud.dev/blob buckets.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"log/slog"
	"strings"

	"github.com/sfomuseum/go-geojson-media/operations/gather"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/s3blob"
	_ "golang.org/x/image/webp"
)

func main() {

	var extensions string
	var hash_images bool

	flag.StringVar(&extensions, "extensions", "", "A comma-separated list of extensions to gather. If empty, any image file is gathered.")
	flag.BoolVar(&hash_images, "hash", true, "Derive perceptual hashes for each image.")

	flag.Parse()

	ctx := context.Background()

	cb := func(rsp *gather.GatherImagesResponse) error {

		enc, err := json.Marshal(rsp)

		if err != nil {
			return err
		}

		fmt.Println(string(enc))
		return nil
	}

	opts := &gather.GatherImagesOptions{
		Callback:   cb,
		HashImages: hash_images,
	}

	if extensions != "" {
		opts.Extensions = strings.Split(extensions, ",")
	}

	for _, uri := range flag.Args() {

		slog.Debug("Gather images", "uri", uri)

		bucket, err := blob.OpenBucket(ctx, uri)

		if err != nil {
			log.Fatal(err)
		}

		err = gather.GatherImagesWithOptions(ctx, bucket, opts)

		bucket.Close()

		if err != nil {
			log.Fatal(err)
		}
	}
}
