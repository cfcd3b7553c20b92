package reconcile

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// The maximum number of unmatched or unreferenced entries listed individually.
const max_samples = 10

// Reporter writes human-readable progress and summaries for a reconcile run. Its output is
// not meant to be parsed.
type Reporter struct {
	writer    io.Writer
	extension string
	style     table.Style
}

// NewReporter returns a Reporter writing to 'wr'. Plan tables use rounded box drawing when 'wr'
// is a terminal and plain ASCII otherwise.
func NewReporter(wr io.Writer, extension string) *Reporter {

	if wr == nil {
		wr = io.Discard
	}

	style := table.StyleDefault

	if isTerminal(wr) {
		style = table.StyleRounded
	}

	r := &Reporter{
		writer:    wr,
		extension: extension,
		style:     style,
	}

	return r
}

func (r *Reporter) printf(msg string, args ...interface{}) {
	fmt.Fprintf(r.writer, msg, args...)
}

// Loaded reports the number of features found in a feature collection.
func (r *Reporter) Loaded(count int) {
	r.printf("Found %d features in feature collection\n", count)
}

// Matched reports the outcome of a match pass, with up to 10 examples each of unmatched records
// and unreferenced files.
func (r *Reporter) Matched(m *MatchResult, dir string) {

	r.printf("\nFound %d matching %s files\n", len(m.Matched), r.extension)

	unmatched := len(m.Unmatched)

	if unmatched > 0 {

		r.printf("Warning: %d files from the feature collection not found in %s:\n", unmatched, dir)

		for _, rec := range m.Unmatched[:min(unmatched, max_samples)] {
			r.printf("  - fid %d: %s%s\n", rec.Fid, rec.Filename, r.extension)
		}

		r.more(unmatched)
	}

	unreferenced := len(m.Unreferenced)

	if unreferenced > 0 {

		r.printf("\nInfo: %d %s files in %s not referenced in the feature collection:\n", unreferenced, r.extension, dir)

		for _, stem := range m.Unreferenced[:min(unreferenced, max_samples)] {
			r.printf("  - %s%s\n", stem, r.extension)
		}

		r.more(unreferenced)
		r.printf("  (These will not be renamed)\n")
	}
}

func (r *Reporter) more(count int) {

	if count > max_samples {
		r.printf("  ... and %d more\n", count-max_samples)
	}
}

// NothingToDo reports that no records matched a file.
func (r *Reporter) NothingToDo() {
	r.printf("\nNo matching files found. Nothing to rename.\n")
}

// Conflicts reports every conflict in 'err'.
func (r *Reporter) Conflicts(err *ConflictError) {

	r.printf("\nError: %d conflicting renames, nothing was changed!\n", len(err.Conflicts))

	for _, c := range err.Conflicts {

		switch c.Reason {
		case CONFLICT_SHARED_FILE:
			r.printf("  - %s%s is named by both fid %d and fid %d\n", c.OldStem, r.extension, c.OwnerFid, c.Fid)
		default:
			r.printf("  - %s%s already exists (wanted by fid %d, currently %s%s)\n", c.NewStem, r.extension, c.Fid, c.OldStem, r.extension)
		}
	}
}

// Plan renders 'p' as a table.
func (r *Reporter) Plan(p *Plan) {

	tw := table.NewWriter()
	tw.SetStyle(r.style)

	tw.AppendHeader(table.Row{"fid", "old", "new", ""})

	for _, rn := range p.Renames {

		status := ""

		if rn.IsNoop() {
			status = "unchanged"
		}

		tw.AppendRow(table.Row{strconv.FormatInt(rn.Fid, 10), p.OldName(rn), p.NewName(rn), status})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	r.printf("\nRename plan (%d files, %d changes):\n", len(p.Renames), p.Changes())
	r.printf("%s\n", tw.Render())
}

// RenameFailed reports a mid-batch rename failure.
func (r *Reporter) RenameFailed(err *RenameIOError) {
	r.printf("\nError renaming %s -> %s: %v\n", err.OldName, err.NewName, err.Err)
	r.printf("%d files were already renamed; the feature collection has NOT been updated.\n", err.Completed)
}

// Dryrun reports that no changes were made.
func (r *Reporter) Dryrun() {
	r.printf("\nDry run: no files renamed, feature collection not updated.\n")
}

// Done reports the final tallies of a successful run.
func (r *Reporter) Done(rsp *ApplyResult, path string) {
	r.printf("\nDone!\n")
	r.printf("Renamed %d files (%d already had their new name)\n", len(rsp.Applied), len(rsp.Skipped))
	r.printf("Updated %d entries in %s\n", len(rsp.Applied)+len(rsp.Skipped), path)
}

func isTerminal(wr io.Writer) bool {

	f, ok := wr.(*os.File)

	if !ok {
		return false
	}

	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
