// Package reconcile renames the media files referenced by a GeoJSON feature collection to a sequential
// naming scheme and rewrites the collection's "filename" properties to match.
//
// A run is made of ordered passes: load the collection, match records to files, plan new names,
// apply the renames and persist the collection. Match and NewPlan are pure functions; only Apply
// and the final write touch storage, and neither runs unless the plan is free of conflicts.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sfomuseum/go-geojson-media/lookup"
	"github.com/sfomuseum/go-geojson-media/media"
)

const DEFAULT_PREFIX string = "wkcd"

const DEFAULT_EXTENSION string = ".webp"

const DEFAULT_WIDTH int = 3

// Reconciler joins a feature collection to a directory of media files.
type Reconciler struct {
	// The directory containing media files.
	Directory lookup.Directory
	// The prefix for new file stems.
	Prefix string
	// The filename extension, including the leading ".", of the media files to consider.
	Extension string
	// The minimum number of digits in new file stems.
	Width int
	// If true, stop after reporting the plan.
	Dryrun bool
	// Where human-readable progress is written. If nil, output is discarded.
	Output io.Writer
}

// ReconcileResponse describes the outcome of a run. Fields for passes that did not run are nil.
type ReconcileResponse struct {
	Match   *MatchResult
	Plan    *Plan
	Applied *ApplyResult
}

// NewReconciler returns a Reconciler for 'dir' with the default prefix, extension and width.
func NewReconciler(dir lookup.Directory) (*Reconciler, error) {

	if dir == nil {
		return nil, errors.New("Missing directory")
	}

	r := &Reconciler{
		Directory: dir,
		Prefix:    DEFAULT_PREFIX,
		Extension: DEFAULT_EXTENSION,
		Width:     DEFAULT_WIDTH,
		Dryrun:    false,
	}

	return r, nil
}

// Reconcile runs every pass against the feature collection stored at 'path'. The collection is
// rewritten in place only if every rename succeeds.
func (r *Reconciler) Reconcile(ctx context.Context, path string) (*ReconcileResponse, error) {

	if !strings.HasPrefix(r.Extension, ".") || len(r.Extension) < 2 {
		return nil, fmt.Errorf("Invalid extension '%s'", r.Extension)
	}

	logger := slog.Default()
	logger = logger.With("path", path, "directory", r.Directory.URI())

	report := NewReporter(r.Output, r.Extension)

	fc, err := media.ReadFeatureCollection(ctx, path)

	if err != nil {
		return nil, fmt.Errorf("Failed to load feature collection, %w", err)
	}

	records, err := fc.Records()

	if err != nil {
		return nil, err
	}

	report.Loaded(len(records))

	stems, err := lookup.StemsSet(ctx, r.Directory, r.Extension)

	if err != nil {
		return nil, err
	}

	m := Match(records, stems)

	logger.Debug("Matched records", "matched", len(m.Matched), "unmatched", len(m.Unmatched), "unreferenced", len(m.Unreferenced))
	report.Matched(m, r.Directory.URI())

	rsp := &ReconcileResponse{
		Match: m,
	}

	if len(m.Matched) == 0 {
		report.NothingToDo()
		return rsp, nil
	}

	plan_opts := &PlanOptions{
		Prefix:    r.Prefix,
		Extension: r.Extension,
		Width:     r.Width,
	}

	p, err := NewPlan(m, stems, plan_opts)

	if err == nil {
		err = CheckTargets(ctx, p, r.Directory)
	}

	if err != nil {

		var conflict_err *ConflictError

		if errors.As(err, &conflict_err) {
			report.Conflicts(conflict_err)
		}

		return rsp, err
	}

	rsp.Plan = p
	report.Plan(p)

	if r.Dryrun {
		report.Dryrun()
		return rsp, nil
	}

	applied, err := Apply(ctx, p, r.Directory)
	rsp.Applied = applied

	if err != nil {

		var io_err *RenameIOError

		if errors.As(err, &io_err) {
			report.RenameFailed(io_err)
		}

		return rsp, err
	}

	err = UpdateFeatureCollection(fc, p)

	if err != nil {
		return rsp, err
	}

	err = fc.Write(ctx, path)

	if err != nil {
		return rsp, fmt.Errorf("Failed to save feature collection, %w", err)
	}

	logger.Debug("Reconciled feature collection", "renamed", len(applied.Applied), "unchanged", len(applied.Skipped))
	report.Done(applied, path)

	return rsp, nil
}
