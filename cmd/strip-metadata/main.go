// strip-metadata removes EXIF, XMP, IPTC and comment metadata (and by default ICC profiles) from the
// WebP and JPEG images in a directory without re-encoding them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/sfomuseum/go-geojson-media/operations/strip"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/s3blob"
)

type multiString []string

func (m *multiString) String() string {
	return strings.Join(*m, ",")
}

func (m *multiString) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func main() {

	var directory string
	var extensions multiString
	var backup bool
	var keep_icc bool
	var verify bool
	var dryrun bool
	var verbose bool

	flag.StringVar(&directory, "directory", "webp", "A local directory or gocloud.dev/blob bucket URI containing images. May also be passed as the first argument.")
	flag.Var(&extensions, "extension", "The extension of images to process. May be passed multiple times. Default is .webp.")
	flag.BoolVar(&backup, "backup", false, "Copy each image to '{name}.bak' before modifying it.")
	flag.BoolVar(&keep_icc, "keep-icc", false, "Keep embedded ICC colour profiles.")
	flag.BoolVar(&verify, "verify", false, "Refuse to write images whose perceptual hashes change.")
	flag.BoolVar(&dryrun, "dryrun", false, "Report what would be removed without writing anything.")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose (debug) logging.")

	flag.Parse()

	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	if flag.NArg() > 0 {
		directory = flag.Arg(0)
	}

	ctx := context.Background()

	bucket_uri, err := bucketURI(directory)

	if err != nil {
		log.Fatal(err)
	}

	bucket, err := blob.OpenBucket(ctx, bucket_uri)

	if err != nil {
		log.Fatalf("Failed to open %s, %v", bucket_uri, err)
	}

	defer bucket.Close()

	s, err := strip.NewStripper(bucket)

	if err != nil {
		log.Fatalf("Failed to create stripper, %v", err)
	}

	if len(extensions) > 0 {
		s.Extensions = extensions
	}

	s.Backup = backup
	s.KeepICC = keep_icc
	s.Verify = verify
	s.Dryrun = dryrun
	s.Output = os.Stdout

	report, err := s.StripBucket(ctx)

	if err != nil {
		log.Fatalf("Failed to strip metadata, %v", err)
	}

	if report.Errors > 0 {
		os.Exit(1)
	}
}

// bucketURI returns 'directory' unchanged if it is already a URI. Otherwise it must be an existing
// local directory and a fileblob URI for it is returned.
func bucketURI(directory string) (string, error) {

	if strings.Contains(directory, "://") {
		return directory, nil
	}

	info, err := os.Stat(directory)

	if err != nil {
		return "", fmt.Errorf("Directory '%s' not found, %w", directory, err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("'%s' is not a directory", directory)
	}

	abs_path, err := filepath.Abs(directory)

	if err != nil {
		return "", fmt.Errorf("Failed to derive absolute path for %s, %w", directory, err)
	}

	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(abs_path),
		RawQuery: "metadata=skip",
	}

	return u.String(), nil
}
