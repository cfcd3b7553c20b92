// Package species reformats JSON datasets of tree species records for display: scientific names
// are wrapped in HTML italics and every record is given a 1-based "index" property.
package species

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sfomuseum/go-geojson-media/common"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// The property containing a record's scientific name.
const SPECIES_PROPERTY string = "Species"

// The property assigned a record's 1-based position.
const INDEX_PROPERTY string = "index"

// FormatScientificName wraps 'name' in <i></i> tags, as required for scientific plant names by the ICN.
// Surrounding whitespace is removed. Empty names and names that are already wrapped are returned as-is.
func FormatScientificName(name string) string {

	name = strings.TrimSpace(name)

	if name == "" {
		return name
	}

	if strings.HasPrefix(name, "<i>") && strings.HasSuffix(name, "</i>") {
		return name
	}

	return fmt.Sprintf("<i>%s</i>", name)
}

// FormatRecords formats every record in 'body', which must be a JSON list of objects, and returns the
// updated document and the number of records. Records whose "Species" property is missing or not a
// string are only assigned an index.
func FormatRecords(body []byte) ([]byte, int, error) {

	if !gjson.ValidBytes(body) {
		return nil, 0, errors.New("Invalid JSON")
	}

	root := gjson.ParseBytes(body)

	if !root.IsArray() {
		return nil, 0, errors.New("Expected a list of species records")
	}

	items := root.Array()

	for i, item := range items {

		if !item.IsObject() {
			return nil, 0, fmt.Errorf("Record %d is not an object", i)
		}

		species_rsp := item.Get(SPECIES_PROPERTY)

		if species_rsp.Type == gjson.String {

			enc, err := common.MarshalString(FormatScientificName(species_rsp.String()))

			if err != nil {
				return nil, 0, fmt.Errorf("Failed to encode species for record %d, %w", i, err)
			}

			path := fmt.Sprintf("%d.%s", i, SPECIES_PROPERTY)
			body, err = sjson.SetRawBytes(body, path, enc)

			if err != nil {
				return nil, 0, fmt.Errorf("Failed to assign %s, %w", path, err)
			}
		}

		path := fmt.Sprintf("%d.%s", i, INDEX_PROPERTY)

		var err error
		body, err = sjson.SetBytes(body, path, i+1)

		if err != nil {
			return nil, 0, fmt.Errorf("Failed to assign %s, %w", path, err)
		}
	}

	return common.FormatJSON(body, "  "), len(items), nil
}

// FormatFile reads the species records stored at 'input', formats them and writes the result to
// 'output' (which may be the same path). It returns the number of records written.
func FormatFile(ctx context.Context, input string, output string) (int, error) {

	body, err := common.ReadFile(ctx, input)

	if err != nil {
		return 0, err
	}

	body, count, err := FormatRecords(body)

	if err != nil {
		return 0, fmt.Errorf("Failed to format %s, %w", input, err)
	}

	err = common.WriteFile(ctx, output, body)

	if err != nil {
		return 0, err
	}

	return count, nil
}
