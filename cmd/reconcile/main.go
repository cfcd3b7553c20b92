// reconcile renames the media files referenced by a GeoJSON feature collection to a sequential
// "{prefix}_{NNN}{extension}" scheme and updates the collection's "filename" properties to match.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/sfomuseum/go-geojson-media/lookup"
	"github.com/sfomuseum/go-geojson-media/operations/reconcile"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/s3blob"
)

func main() {

	var geojson_path string
	var media_uri string
	var prefix string
	var extension string
	var width int
	var dryrun bool
	var verbose bool

	flag.StringVar(&geojson_path, "geojson", "viewphoto.geojson", "The path to the GeoJSON feature collection to update.")
	flag.StringVar(&media_uri, "media", "webp", "A local directory or gocloud.dev/blob bucket URI containing media files.")
	flag.StringVar(&prefix, "prefix", reconcile.DEFAULT_PREFIX, "The prefix for new filenames.")
	flag.StringVar(&extension, "extension", reconcile.DEFAULT_EXTENSION, "The extension, including the leading '.', of media files.")
	flag.IntVar(&width, "width", reconcile.DEFAULT_WIDTH, "The minimum number of digits in new filenames.")
	flag.BoolVar(&dryrun, "dryrun", false, "Report the rename plan without changing anything.")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose (debug) logging.")

	flag.Parse()

	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
		slog.Debug("Verbose logging enabled")
	}

	ctx := context.Background()

	dir, err := lookup.NewDirectory(ctx, media_uri)

	if err != nil {
		log.Fatalf("Failed to open media directory, %v", err)
	}

	defer dir.Close()

	r, err := reconcile.NewReconciler(dir)

	if err != nil {
		log.Fatalf("Failed to create reconciler, %v", err)
	}

	r.Prefix = prefix
	r.Extension = extension
	r.Width = width
	r.Dryrun = dryrun
	r.Output = os.Stdout

	_, err = r.Reconcile(ctx, geojson_path)

	if err != nil {
		log.Fatalf("Failed to reconcile %s, %v", geojson_path, err)
	}
}
