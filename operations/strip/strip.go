// Package strip removes embedded metadata (EXIF, XMP, IPTC, comments and optionally ICC profiles)
// from WebP and JPEG images without re-encoding their pixel data.
package strip

import (
	"context"
	"errors"
	"fmt"
	_ "image/jpeg"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sfomuseum/go-geojson-media/common"
	"github.com/sfomuseum/go-geojson-media/operations/clone"
	"github.com/sfomuseum/go-geojson-media/operations/gather"
	"gocloud.dev/blob"
	_ "golang.org/x/image/webp"
)

// The suffix appended to an image's key to derive its backup key.
const BACKUP_SUFFIX string = ".bak"

// ErrVerificationFailed is returned when an image looks different after its metadata was removed,
// or when it could not be hashed well enough to tell.
var ErrVerificationFailed = errors.New("Image hashes differ after stripping metadata")

// Replaced in tests to simulate hashing failures.
var imageHashesFunc = common.ImageHashesWithBytes

// Stripper removes metadata from every image in a gocloud.dev/blob bucket.
type Stripper struct {
	// The bucket containing images.
	Bucket *blob.Bucket
	// The (case-sensitive) extensions of images to process.
	Extensions []string
	// If true, copy each image to "{key}.bak" before modifying it. Existing backups are never replaced.
	Backup bool
	// If true, embedded ICC colour profiles are retained.
	KeepICC bool
	// If true, decode each image before and after stripping and refuse to write it if their
	// perceptual hashes differ.
	Verify bool
	// If true, report what would be removed without writing anything.
	Dryrun bool
	// Where human-readable progress is written. If nil, output is discarded.
	Output io.Writer
}

// StripReport tallies the outcome of StripBucket.
type StripReport struct {
	// Images read and parsed without error.
	Processed int
	// Images that had metadata removed.
	Stripped int
	// Images that had no metadata to remove.
	Unchanged int
	// Images that could not be processed.
	Errors int
	// Total bytes of metadata removed.
	BytesRemoved int64
}

func NewStripper(bucket *blob.Bucket) (*Stripper, error) {

	if bucket == nil {
		return nil, errors.New("Missing bucket")
	}

	s := &Stripper{
		Bucket:     bucket,
		Extensions: []string{".webp"},
		Backup:     false,
		KeepICC:    false,
		Verify:     false,
		Dryrun:     false,
	}

	return s, nil
}

func (s *Stripper) printf(msg string, args ...interface{}) {

	if s.Output == nil {
		return
	}

	fmt.Fprintf(s.Output, msg, args...)
}

// StripBucket removes metadata from every matching image in the bucket, in key order. Failures for
// individual images are reported and counted but do not stop processing.
func (s *Stripper) StripBucket(ctx context.Context) (*StripReport, error) {

	keys, err := gather.ListImages(ctx, s.Bucket, s.Extensions...)

	if err != nil {
		return nil, fmt.Errorf("Failed to list images, %w", err)
	}

	report := &StripReport{}

	if len(keys) == 0 {
		s.printf("No %s files found\n", strings.Join(s.Extensions, ", "))
		return report, nil
	}

	s.printf("Found %d image file(s)\n", len(keys))

	if s.Backup {
		s.printf("Backup mode: ON (creating %s files)\n", BACKUP_SUFFIX)
	} else {
		s.printf("Backup mode: OFF\n")
	}

	s.printf("\nStripping metadata...\n")

	for _, key := range keys {

		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
			// pass
		}

		s.printf("  Processing: %s\n", key)

		rsp, err := s.StripImage(ctx, key)

		if err != nil {
			s.printf("  Error processing %s: %v\n", key, err)
			report.Errors += 1
			continue
		}

		report.Processed += 1

		if len(rsp.Removed) == 0 {
			report.Unchanged += 1
			continue
		}

		report.Stripped += 1
		report.BytesRemoved += int64(rsp.BytesRemoved)
	}

	s.printf("\nDone!\n")
	s.printf("  Successfully processed: %d\n", report.Processed)
	s.printf("  Metadata removed from %d file(s), %s total\n", report.Stripped, humanize.Bytes(uint64(report.BytesRemoved)))

	if report.Errors > 0 {
		s.printf("  Errors: %d\n", report.Errors)
	}

	return report, nil
}

// StripImage removes metadata from the image stored at 'key'. Images without metadata are not rewritten.
func (s *Stripper) StripImage(ctx context.Context, key string) (*StripResult, error) {

	logger := slog.Default()
	logger = logger.With("key", key)

	body, err := s.Bucket.ReadAll(ctx, key)

	if err != nil {
		return nil, fmt.Errorf("Failed to read %s, %w", key, err)
	}

	opts := &StripOptions{
		KeepICC: s.KeepICC,
	}

	stripped, rsp, err := Strip(body, opts)

	if err != nil {
		return nil, fmt.Errorf("Failed to strip %s, %w", key, err)
	}

	if len(rsp.Removed) == 0 {
		logger.Debug("No metadata to remove")
		return rsp, nil
	}

	if rsp.Exif != nil {
		logger.Debug("Removing EXIF data", "gps", rsp.Exif.HasGPS, "datetime", rsp.Exif.DateTimeOriginal, "model", rsp.Exif.Model)
	}

	if s.Verify {

		err := verify(ctx, body, stripped)

		if err != nil {
			return nil, fmt.Errorf("Failed to verify %s, %w", key, err)
		}
	}

	if s.Dryrun {
		logger.Info("[dryrun] Strip metadata", "removed", strings.Join(rsp.Removed, ","), "bytes", rsp.BytesRemoved)
		return rsp, nil
	}

	if s.Backup {

		clone_opts := &clone.CloneImageOptions{
			Source:         s.Bucket,
			Target:         s.Bucket,
			Filename:       key,
			TargetFilename: key + BACKUP_SUFFIX,
			Force:          false,
		}

		backup_key, written, err := clone.CloneImage(ctx, clone_opts)

		if err != nil {
			return nil, fmt.Errorf("Failed to back up %s, %w", key, err)
		}

		logger.Debug("Backup", "backup", backup_key, "written", written)
	}

	wr_opts := &blob.WriterOptions{
		ContentType: mime.TypeByExtension(filepath.Ext(key)),
	}

	err = s.Bucket.WriteAll(ctx, key, stripped, wr_opts)

	if err != nil {
		return nil, fmt.Errorf("Failed to write %s, %w", key, err)
	}

	logger.Debug("Stripped metadata", "removed", strings.Join(rsp.Removed, ","), "bytes", rsp.BytesRemoved)
	return rsp, nil
}

func verify(ctx context.Context, before []byte, after []byte) error {

	before_hashes, err := imageHashesFunc(ctx, before)

	if err != nil {
		return fmt.Errorf("Failed to hash original image, %w", err)
	}

	if !common.CompleteImageHashes(before_hashes) {
		return fmt.Errorf("Only %d hashes derived for original image, %w", len(before_hashes), ErrVerificationFailed)
	}

	after_hashes, err := imageHashesFunc(ctx, after)

	if err != nil {
		return fmt.Errorf("Failed to hash stripped image, %w", err)
	}

	if !common.CompleteImageHashes(after_hashes) {
		return fmt.Errorf("Only %d hashes derived for stripped image, %w", len(after_hashes), ErrVerificationFailed)
	}

	if !common.EqualImageHashes(before_hashes, after_hashes) {
		return ErrVerificationFailed
	}

	return nil
}
