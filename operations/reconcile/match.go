package reconcile

import (
	"sort"

	"github.com/sfomuseum/go-geojson-media/media"
)

// MatchResult partitions feature records and media files by comparing "filename" properties to file stems.
type MatchResult struct {
	// Records whose filename matches a file stem, sorted by ascending fid.
	Matched []*media.FeatureRecord
	// Records whose filename does not match any file stem, in document order.
	Unmatched []*media.FeatureRecord
	// Sorted file stems that no record refers to.
	Unreferenced []string
}

// Match partitions 'records' against the set of file 'stems'. Comparisons are exact and case-sensitive.
// Match does not modify its inputs.
func Match(records []*media.FeatureRecord, stems map[string]bool) *MatchResult {

	matched := make([]*media.FeatureRecord, 0)
	unmatched := make([]*media.FeatureRecord, 0)

	claimed := make(map[string]bool)

	for _, rec := range records {

		if stems[rec.Filename] {
			matched = append(matched, rec)
			claimed[rec.Filename] = true
		} else {
			unmatched = append(unmatched, rec)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Fid < matched[j].Fid
	})

	unreferenced := make([]string, 0)

	for stem := range stems {

		if !claimed[stem] {
			unreferenced = append(unreferenced, stem)
		}
	}

	sort.Strings(unreferenced)

	m := &MatchResult{
		Matched:      matched,
		Unmatched:    unmatched,
		Unreferenced: unreferenced,
	}

	return m
}
