// Package export writes the list of images stored in a Cloudflare Images account to a JSON document.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/sfomuseum/go-geojson-media/common"
)

const DEFAULT_PER_PAGE int = 100

// The scale recorded for images whose dimensions could not be determined.
const UNKNOWN_SCALE string = "unknown"

// ExportedImage is a single entry in an image listing.
type ExportedImage struct {
	Filename string `json:"filename"`
	ImageID  string `json:"image_id"`
	Scale    string `json:"scale"`
}

// ImageListing is the document written by WriteImageListing.
type ImageListing struct {
	TotalImages int              `json:"total_images"`
	Images      []*ExportedImage `json:"images"`
}

type ExportImagesOptions struct {
	// The number of images requested per page.
	PerPage int
	// Where human-readable progress is written. If nil, output is discarded.
	Output io.Writer
}

// ExportImages pages through every image in the account. When an image's list entry lacks its
// dimensions they are fetched individually; if that fails the image's scale is recorded as "unknown".
// If a page request fails, the images gathered so far are returned along with the error.
func ExportImages(ctx context.Context, c *Client, opts *ExportImagesOptions) ([]*ExportedImage, error) {

	per_page := opts.PerPage

	if per_page < 1 {
		per_page = DEFAULT_PER_PAGE
	}

	output := opts.Output

	if output == nil {
		output = io.Discard
	}

	logger := slog.Default()

	exported := make([]*ExportedImage, 0)

	fmt.Fprintln(output, "Fetching images from Cloudflare...")

	for page := 1; ; page++ {

		images, err := c.ListImages(ctx, page, per_page)

		if err != nil {
			return exported, fmt.Errorf("Failed to fetch page %d, %w", page, err)
		}

		if len(images) == 0 {
			break
		}

		for _, im := range images {

			width := im.Width
			height := im.Height

			if width == 0 || height == 0 {

				details, err := c.ImageDetails(ctx, im.ID)

				if err != nil {
					logger.Warn("Could not fetch image details", "id", im.ID, "error", err)
				} else {

					if details.Width != 0 {
						width = details.Width
					}

					if details.Height != 0 {
						height = details.Height
					}
				}
			}

			e := &ExportedImage{
				Filename: im.Filename,
				ImageID:  im.ID,
				Scale:    Scale(width, height),
			}

			exported = append(exported, e)
		}

		fmt.Fprintf(output, "  Fetched page %d: %d images (total: %d)\n", page, len(images), len(exported))

		if len(images) < per_page {
			break
		}
	}

	return exported, nil
}

// Scale returns "{width}x{height}", or "unknown" if either dimension is zero.
func Scale(width int64, height int64) string {

	if width == 0 || height == 0 {
		return UNKNOWN_SCALE
	}

	return fmt.Sprintf("%dx%d", width, height)
}

// MarshalImageListing encodes 'images' as an ImageListing indented with two spaces. Non-ASCII and
// HTML characters are not escaped.
func MarshalImageListing(images []*ExportedImage) ([]byte, error) {

	listing := &ImageListing{
		TotalImages: len(images),
		Images:      images,
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	err := enc.Encode(listing)

	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// WriteImageListing writes 'images' to the local file at 'path'.
func WriteImageListing(ctx context.Context, path string, images []*ExportedImage) error {

	body, err := MarshalImageListing(images)

	if err != nil {
		return fmt.Errorf("Failed to encode image listing, %w", err)
	}

	return common.WriteFile(ctx, path, body)
}
