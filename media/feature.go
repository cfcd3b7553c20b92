package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/sfomuseum/go-geojson-media/common"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// FeatureRecord is the subset of a GeoJSON Feature's properties used to join a feature to a media file.
type FeatureRecord struct {
	// The position of the feature in the collection's "features" list.
	Index int
	// The value of the feature's properties.fid property.
	Fid int64
	// The value of the feature's properties.filename property (a stem, without extension).
	Filename string
}

// MalformedInputError is returned when a feature collection is missing required fields or
// violates the uniqueness of "fid" properties.
type MalformedInputError struct {
	Index  int
	Reason string
}

func (e *MalformedInputError) Error() string {

	if e.Index < 0 {
		return fmt.Sprintf("Malformed feature collection: %s", e.Reason)
	}

	return fmt.Sprintf("Malformed feature at index %d: %s", e.Index, e.Reason)
}

// IsMalformedInput reports whether 'err' is (or wraps) a MalformedInputError.
func IsMalformedInput(err error) bool {
	var e *MalformedInputError
	return errors.As(err, &e)
}

// FeatureCollection wraps the raw bytes of a GeoJSON FeatureCollection document. Updates are
// applied in place to the raw bytes so that every property other than the ones being changed
// is preserved exactly, including key order.
type FeatureCollection struct {
	body []byte
}

// NewFeatureCollection returns a FeatureCollection for 'body' after checking that it is valid
// JSON with a "features" list.
func NewFeatureCollection(body []byte) (*FeatureCollection, error) {

	if !gjson.ValidBytes(body) {
		return nil, &MalformedInputError{Index: -1, Reason: "invalid JSON"}
	}

	features_rsp := gjson.GetBytes(body, "features")

	if !features_rsp.IsArray() {
		return nil, &MalformedInputError{Index: -1, Reason: "missing features list"}
	}

	fc := &FeatureCollection{
		body: body,
	}

	return fc, nil
}

// ReadFeatureCollection reads and parses the feature collection stored at the local path 'path'.
func ReadFeatureCollection(ctx context.Context, path string) (*FeatureCollection, error) {

	body, err := common.ReadFile(ctx, path)

	if err != nil {
		return nil, err
	}

	return NewFeatureCollection(body)
}

// Records returns a FeatureRecord for every feature in the collection, in document order.
func (fc *FeatureCollection) Records() ([]*FeatureRecord, error) {

	features := gjson.GetBytes(fc.body, "features").Array()

	records := make([]*FeatureRecord, len(features))
	seen := make(map[int64]int)

	for idx, f := range features {

		fid_rsp := f.Get("properties.fid")

		if !fid_rsp.Exists() {
			return nil, &MalformedInputError{Index: idx, Reason: "missing properties.fid"}
		}

		if fid_rsp.Type != gjson.Number || float64(fid_rsp.Int()) != fid_rsp.Float() {
			return nil, &MalformedInputError{Index: idx, Reason: fmt.Sprintf("properties.fid is not an integer (%s)", fid_rsp.Raw)}
		}

		fname_rsp := f.Get("properties.filename")

		if !fname_rsp.Exists() {
			return nil, &MalformedInputError{Index: idx, Reason: "missing properties.filename"}
		}

		if fname_rsp.Type != gjson.String {
			return nil, &MalformedInputError{Index: idx, Reason: fmt.Sprintf("properties.filename is not a string (%s)", fname_rsp.Raw)}
		}

		fid := fid_rsp.Int()

		other, exists := seen[fid]

		if exists {
			return nil, &MalformedInputError{Index: idx, Reason: fmt.Sprintf("duplicate fid %d (also at index %d)", fid, other)}
		}

		seen[fid] = idx

		records[idx] = &FeatureRecord{
			Index:    idx,
			Fid:      fid,
			Filename: fname_rsp.String(),
		}
	}

	return records, nil
}

// SetFilename assigns 'filename' to the properties.filename property of the feature at 'index'.
func (fc *FeatureCollection) SetFilename(index int, filename string) error {

	enc, err := common.MarshalString(filename)

	if err != nil {
		return fmt.Errorf("Failed to encode filename '%s', %w", filename, err)
	}

	path := fmt.Sprintf("features.%d.properties.filename", index)

	body, err := sjson.SetRawBytes(fc.body, path, enc)

	if err != nil {
		return fmt.Errorf("Failed to assign %s property, %w", path, err)
	}

	fc.body = body
	return nil
}

// Bytes returns the feature collection pretty-printed with a single space indent, keys in
// their original order.
func (fc *FeatureCollection) Bytes() []byte {
	return common.FormatJSON(fc.body, " ")
}

// Write persists the feature collection to the local path 'path', replacing any existing file.
func (fc *FeatureCollection) Write(ctx context.Context, path string) error {
	return common.WriteFile(ctx, path, fc.Bytes())
}
