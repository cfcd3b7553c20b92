package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sfomuseum/go-geojson-media/lookup"
)

// PlanOptions defines how new names are derived.
type PlanOptions struct {
	// The string prepended to each new stem, separated from the sequence number by an underscore.
	Prefix string
	// The filename extension, including the leading ".", shared by every media file.
	Extension string
	// The minimum number of digits in the zero-padded sequence number.
	Width int
}

// Rename maps a single feature record from its current stem to its new stem.
type Rename struct {
	Fid     int64
	Index   int
	OldStem string
	NewStem string
}

// IsNoop reports whether the rename leaves the file name unchanged.
func (r *Rename) IsNoop() bool {
	return r.OldStem == r.NewStem
}

// Plan is a validated, conflict-free list of renames in ascending fid order.
type Plan struct {
	Extension string
	Renames   []*Rename
}

// OldName returns the current filename (with extension) for 'r'.
func (p *Plan) OldName(r *Rename) string {
	return r.OldStem + p.Extension
}

// NewName returns the new filename (with extension) for 'r'.
func (p *Plan) NewName(r *Rename) string {
	return r.NewStem + p.Extension
}

// Changes returns the number of renames that will change a filename.
func (p *Plan) Changes() int {

	count := 0

	for _, r := range p.Renames {
		if !r.IsNoop() {
			count += 1
		}
	}

	return count
}

// The new name is already taken by a file, directory or other entry.
const CONFLICT_TARGET_EXISTS string = "target exists"

// The old name is also claimed by an earlier record in the plan.
const CONFLICT_SHARED_FILE string = "shared file"

// Conflict describes a planned rename that cannot be carried out without clobbering or losing a file.
type Conflict struct {
	Fid     int64
	OldStem string
	NewStem string
	// One of CONFLICT_TARGET_EXISTS or CONFLICT_SHARED_FILE.
	Reason string
	// For CONFLICT_SHARED_FILE, the fid of the record that claimed the file first.
	OwnerFid int64
}

// ConflictError is returned when one or more planned renames conflict with the current state of
// the directory or with each other. No files are touched when a plan fails with a ConflictError.
type ConflictError struct {
	Extension string
	Conflicts []*Conflict
}

func (e *ConflictError) Error() string {

	names := make([]string, len(e.Conflicts))

	for i, c := range e.Conflicts {

		switch c.Reason {
		case CONFLICT_SHARED_FILE:
			names[i] = fmt.Sprintf("%s%s (fids %d and %d)", c.OldStem, e.Extension, c.OwnerFid, c.Fid)
		default:
			names[i] = fmt.Sprintf("%s%s (already exists)", c.NewStem, e.Extension)
		}
	}

	return fmt.Sprintf("%d conflicting renames: %s", len(e.Conflicts), strings.Join(names, ", "))
}

// IsConflict reports whether 'err' is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// NewStem returns the stem assigned to the record at (1-based) position 'seq' in the plan.
func NewStem(prefix string, width int, seq int) string {
	return fmt.Sprintf("%s_%0*d", prefix, width, seq)
}

// NewPlan assigns a new stem to every matched record in ascending fid order, numbered from 1, and checks
// the result against the current directory listing 'stems'. If any new stem is already used by a file
// other than the one being renamed, or two records name the same file, a ConflictError listing every
// conflict is returned instead.
func NewPlan(m *MatchResult, stems map[string]bool, opts *PlanOptions) (*Plan, error) {

	width := opts.Width

	if width < 1 {
		width = 3
	}

	// m.Matched is already in fid order; NewPlan must not reorder the caller's slice
	renames := make([]*Rename, len(m.Matched))
	conflicts := make([]*Conflict, 0)

	owners := make(map[string]int64)

	for i, rec := range m.Matched {

		r := &Rename{
			Fid:     rec.Fid,
			Index:   rec.Index,
			OldStem: rec.Filename,
			NewStem: NewStem(opts.Prefix, width, i+1),
		}

		owner, claimed := owners[r.OldStem]

		if claimed {

			c := &Conflict{
				Fid:      r.Fid,
				OldStem:  r.OldStem,
				NewStem:  r.NewStem,
				Reason:   CONFLICT_SHARED_FILE,
				OwnerFid: owner,
			}

			conflicts = append(conflicts, c)
		} else {
			owners[r.OldStem] = r.Fid
		}

		if stems[r.NewStem] && !r.IsNoop() {

			c := &Conflict{
				Fid:     r.Fid,
				OldStem: r.OldStem,
				NewStem: r.NewStem,
				Reason:  CONFLICT_TARGET_EXISTS,
			}

			conflicts = append(conflicts, c)
		}

		renames[i] = r
	}

	if len(conflicts) > 0 {
		return nil, &ConflictError{Extension: opts.Extension, Conflicts: conflicts}
	}

	p := &Plan{
		Extension: opts.Extension,
		Renames:   renames,
	}

	return p, nil
}

// CheckTargets asks 'c' whether the new name of every rename in 'p' that changes a filename is free.
// The stem listing only covers files with the plan's extension, so this catches directories and other
// entries already sitting at a target name. Every taken name is reported in a single ConflictError.
func CheckTargets(ctx context.Context, p *Plan, c lookup.Checker) error {

	conflicts := make([]*Conflict, 0)

	for _, r := range p.Renames {

		if r.IsNoop() {
			continue
		}

		exists, err := c.Exists(ctx, p.NewName(r))

		if err != nil {
			return fmt.Errorf("Failed to check target for fid %d, %w", r.Fid, err)
		}

		if exists {

			conflict := &Conflict{
				Fid:     r.Fid,
				OldStem: r.OldStem,
				NewStem: r.NewStem,
				Reason:  CONFLICT_TARGET_EXISTS,
			}

			conflicts = append(conflicts, conflict)
		}
	}

	if len(conflicts) > 0 {
		return &ConflictError{Extension: p.Extension, Conflicts: conflicts}
	}

	return nil
}
