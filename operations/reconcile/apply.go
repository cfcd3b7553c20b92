package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sfomuseum/go-geojson-media/lookup"
	"github.com/sfomuseum/go-geojson-media/media"
)

// ApplyResult records which renames in a plan were carried out.
type ApplyResult struct {
	// Renames that moved a file.
	Applied []*Rename
	// Renames whose new name equals the old name. No filesystem call is made for these.
	Skipped []*Rename
}

// RenameIOError is returned when a file move fails part way through a plan. Moves that completed
// before the failure are not undone.
type RenameIOError struct {
	Rename    *Rename
	OldName   string
	NewName   string
	Completed int
	Err       error
}

func (e *RenameIOError) Error() string {
	return fmt.Sprintf("Failed to rename fid %d (%s -> %s) after %d completed renames, %v", e.Rename.Fid, e.OldName, e.NewName, e.Completed, e.Err)
}

func (e *RenameIOError) Unwrap() error {
	return e.Err
}

// IsRenameIO reports whether 'err' is (or wraps) a RenameIOError.
func IsRenameIO(err error) bool {
	var e *RenameIOError
	return errors.As(err, &e)
}

// Apply moves the files in 'p' in plan order using 'mv'. It stops at the first failure, returning
// the renames completed so far along with a RenameIOError.
func Apply(ctx context.Context, p *Plan, mv lookup.Mover) (*ApplyResult, error) {

	logger := slog.Default()

	rsp := &ApplyResult{
		Applied: make([]*Rename, 0),
		Skipped: make([]*Rename, 0),
	}

	for _, r := range p.Renames {

		if r.IsNoop() {
			rsp.Skipped = append(rsp.Skipped, r)
			continue
		}

		old_name := p.OldName(r)
		new_name := p.NewName(r)

		err := mv.Move(ctx, old_name, new_name)

		if err != nil {

			io_err := &RenameIOError{
				Rename:    r,
				OldName:   old_name,
				NewName:   new_name,
				Completed: len(rsp.Applied),
				Err:       err,
			}

			return rsp, io_err
		}

		logger.Debug("Renamed file", "fid", r.Fid, "old", old_name, "new", new_name)
		rsp.Applied = append(rsp.Applied, r)
	}

	return rsp, nil
}

// UpdateFeatureCollection assigns the new stem of every rename in 'p' to the corresponding
// feature's "filename" property. Features not in the plan are left untouched.
func UpdateFeatureCollection(fc *media.FeatureCollection, p *Plan) error {

	for _, r := range p.Renames {

		err := fc.SetFilename(r.Index, r.NewStem)

		if err != nil {
			return fmt.Errorf("Failed to update fid %d, %w", r.Fid, err)
		}
	}

	return nil
}
