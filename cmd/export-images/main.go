// export-images writes the filename, ID and dimensions of every image in a Cloudflare Images
// account to a JSON file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/sfomuseum/go-geojson-media/operations/export"
)

func main() {

	// A missing .env file is not an error.
	_ = godotenv.Load(".env")

	var account_id string
	var api_token string
	var output string
	var per_page int
	var verbose bool

	flag.StringVar(&account_id, "account-id", os.Getenv("CLOUDFLARE_ACCOUNT_ID"), "The Cloudflare account ID. Defaults to the CLOUDFLARE_ACCOUNT_ID environment variable.")
	flag.StringVar(&api_token, "api-token", os.Getenv("CLOUDFLARE_API_TOKEN"), "A Cloudflare API token with Images read access. Defaults to the CLOUDFLARE_API_TOKEN environment variable.")
	flag.StringVar(&output, "output", "cloudflare_images.json", "The path to write the image listing to.")
	flag.IntVar(&per_page, "per-page", export.DEFAULT_PER_PAGE, "The number of images to request per page.")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose (debug) logging.")

	flag.Parse()

	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	ctx := context.Background()

	c, err := export.NewClient(account_id, api_token)

	if err != nil {
		log.Fatalf("Failed to create client, %v", err)
	}

	opts := &export.ExportImagesOptions{
		PerPage: per_page,
		Output:  os.Stdout,
	}

	images, export_err := export.ExportImages(ctx, c, opts)

	if export_err != nil {
		slog.Error("Export did not complete", "error", export_err, "gathered", len(images))
	}

	err = export.WriteImageListing(ctx, output, images)

	if err != nil {
		log.Fatalf("Failed to write %s, %v", output, err)
	}

	fmt.Printf("\nExported %d images to %s\n", len(images), output)

	if len(images) > 0 {
		e := images[0]
		fmt.Printf("Sample entry:\n  filename: %s\n  image_id: %s\n  scale: %s\n", e.Filename, e.ImageID, e.Scale)
	}

	if export_err != nil {
		os.Exit(1)
	}
}
