package strip

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
)

func init() {
	exif.RegisterParsers(mknote.All...)
}

// ErrUnsupportedFormat is returned for images that are neither WebP nor JPEG.
var ErrUnsupportedFormat = errors.New("Unsupported image format")

// VP8X feature flags
const (
	vp8x_flag_icc  byte = 0x20
	vp8x_flag_exif byte = 0x08
	vp8x_flag_xmp  byte = 0x04
)

// StripOptions controls which metadata is removed.
type StripOptions struct {
	// If true, embedded ICC colour profiles are retained.
	KeepICC bool
}

// ExifSummary describes notable fields found in an EXIF block before it was removed.
type ExifSummary struct {
	HasGPS           bool
	Latitude         float64
	Longitude        float64
	DateTimeOriginal string
	Model            string
}

// StripResult describes the metadata removed from a single image.
type StripResult struct {
	// "webp" or "jpeg".
	Format string
	// Labels for each chunk or segment removed, in file order.
	Removed []string
	// The difference in size between the input and the output.
	BytesRemoved int
	// A summary of the removed EXIF block, if there was one and it could be parsed.
	Exif *ExifSummary
}

// Strip removes metadata from a WebP or JPEG image. The format is detected from the image's
// contents rather than its name. If nothing is removed the input is returned unchanged.
func Strip(body []byte, opts *StripOptions) ([]byte, *StripResult, error) {

	if opts == nil {
		opts = &StripOptions{}
	}

	switch {
	case isWebP(body):
		return StripWebP(body, opts)
	case isJPEG(body):
		return StripJPEG(body, opts)
	default:
		return nil, nil, ErrUnsupportedFormat
	}
}

func isWebP(body []byte) bool {
	return len(body) >= 12 && string(body[0:4]) == "RIFF" && string(body[8:12]) == "WEBP"
}

func isJPEG(body []byte) bool {
	return len(body) >= 2 && body[0] == 0xFF && body[1] == 0xD8
}

// StripWebP removes EXIF and XMP chunks (and ICCP chunks unless opts.KeepICC is set) from a
// WebP image, clears the corresponding VP8X feature flags and rewrites the RIFF size. Image
// data chunks are copied verbatim.
func StripWebP(body []byte, opts *StripOptions) ([]byte, *StripResult, error) {

	if !isWebP(body) {
		return nil, nil, fmt.Errorf("Not a WebP image, %w", ErrUnsupportedFormat)
	}

	rsp := &StripResult{
		Format:  "webp",
		Removed: make([]string, 0),
	}

	end := 8 + int(binary.LittleEndian.Uint32(body[4:8]))

	if end > len(body) {
		return nil, nil, fmt.Errorf("Truncated RIFF container, expected %d bytes but have %d", end, len(body))
	}

	out := make([]byte, 12, len(body))
	copy(out, body[0:12])

	vp8x_offset := -1
	var clear_flags byte

	offset := 12

	for offset < end {

		if offset+8 > end {
			return nil, nil, fmt.Errorf("Truncated chunk header at offset %d", offset)
		}

		fourcc := string(body[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(body[offset+4 : offset+8]))

		chunk_end := offset + 8 + size + (size & 1)

		if chunk_end > end {

			// tolerate a missing pad byte on the final chunk
			if offset+8+size != end {
				return nil, nil, fmt.Errorf("Chunk %q at offset %d overruns container", fourcc, offset)
			}

			chunk_end = end
		}

		var flag byte

		switch fourcc {
		case "EXIF":
			flag = vp8x_flag_exif
			rsp.Exif = inspectExif(body[offset+8 : offset+8+size])
		case "XMP ":
			flag = vp8x_flag_xmp
		case "ICCP":
			if !opts.KeepICC {
				flag = vp8x_flag_icc
			}
		}

		if flag != 0 {
			clear_flags |= flag
			rsp.Removed = append(rsp.Removed, fourcc)
		} else {

			if fourcc == "VP8X" && size >= 1 {
				vp8x_offset = len(out)
			}

			out = append(out, body[offset:chunk_end]...)
		}

		offset = chunk_end
	}

	if len(rsp.Removed) == 0 {
		return body, rsp, nil
	}

	if vp8x_offset >= 0 {
		out[vp8x_offset+8] &^= clear_flags
	}

	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))

	rsp.BytesRemoved = len(body) - len(out)
	return out, rsp, nil
}

// StripJPEG removes APP1 (EXIF, XMP), APP13 (IPTC) and COM segments, and APP2 ICC profile
// segments unless opts.KeepICC is set, from a JPEG image. Everything from the start of scan
// onwards is copied verbatim.
func StripJPEG(body []byte, opts *StripOptions) ([]byte, *StripResult, error) {

	if !isJPEG(body) {
		return nil, nil, fmt.Errorf("Not a JPEG image, %w", ErrUnsupportedFormat)
	}

	rsp := &StripResult{
		Format:  "jpeg",
		Removed: make([]string, 0),
	}

	out := make([]byte, 0, len(body))
	out = append(out, body[0:2]...)

	i := 2

	for i < len(body) {

		if body[i] != 0xFF || i+1 >= len(body) {
			return nil, nil, fmt.Errorf("Expected marker at offset %d", i)
		}

		marker := body[i+1]

		// fill bytes
		if marker == 0xFF {
			i += 1
			continue
		}

		if marker == 0xDA || marker == 0xD9 {
			out = append(out, body[i:]...)
			break
		}

		if (marker >= 0xD0 && marker <= 0xD7) || marker == 0x01 {
			out = append(out, body[i:i+2]...)
			i += 2
			continue
		}

		if i+4 > len(body) {
			return nil, nil, fmt.Errorf("Truncated segment header at offset %d", i)
		}

		length := int(binary.BigEndian.Uint16(body[i+2 : i+4]))
		seg_end := i + 2 + length

		if length < 2 || seg_end > len(body) {
			return nil, nil, fmt.Errorf("Invalid segment length %d at offset %d", length, i)
		}

		payload := body[i+4 : seg_end]
		label := ""

		switch marker {
		case 0xE1:

			label = "APP1"

			if bytes.HasPrefix(payload, []byte("Exif\x00")) {
				label = "APP1:Exif"
				rsp.Exif = inspectExif(payload)
			} else if bytes.HasPrefix(payload, []byte("http://ns.adobe.com/")) {
				label = "APP1:XMP"
			}

		case 0xED:
			label = "APP13"
		case 0xFE:
			label = "COM"
		case 0xE2:
			if !opts.KeepICC && bytes.HasPrefix(payload, []byte("ICC_PROFILE\x00")) {
				label = "APP2:ICC"
			}
		}

		if label != "" {
			rsp.Removed = append(rsp.Removed, label)
		} else {
			out = append(out, body[i:seg_end]...)
		}

		i = seg_end
	}

	if len(rsp.Removed) == 0 {
		return body, rsp, nil
	}

	rsp.BytesRemoved = len(body) - len(out)
	return out, rsp, nil
}

func inspectExif(payload []byte) *ExifSummary {

	x, err := exif.Decode(bytes.NewReader(payload))

	if err != nil {
		return nil
	}

	s := &ExifSummary{}

	lat, lon, err := x.LatLong()

	if err == nil {
		s.HasGPS = true
		s.Latitude = lat
		s.Longitude = lon
	}

	tag, err := x.Get(exif.DateTimeOriginal)

	if err == nil {
		s.DateTimeOriginal, _ = tag.StringVal()
	}

	tag, err = x.Get(exif.Model)

	if err == nil {
		s.Model, _ = tag.StringVal()
	}

	return s
}
