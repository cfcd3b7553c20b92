package common

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/pretty"
)

// MarshalString encodes 's' as a JSON string. Unlike json.Marshal, HTML characters ('<', '>', '&')
// are left as-is so that values like "<i>Ficus</i>" survive a round trip unchanged. Non-ASCII
// characters are never escaped.
func MarshalString(s string) ([]byte, error) {

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	err := enc.Encode(s)

	if err != nil {
		return nil, err
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// FormatJSON pretty-prints 'body' using 'indent' for each level of nesting. Keys are kept in
// their input order and string values are copied verbatim.
func FormatJSON(body []byte, indent string) []byte {

	opts := &pretty.Options{
		Width:    0,
		Prefix:   "",
		Indent:   indent,
		SortKeys: false,
	}

	return pretty.PrettyOptions(body, opts)
}
