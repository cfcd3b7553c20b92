package export

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/ratelimit"
)

type testImage struct {
	id       string
	filename string
	width    int
	height   int
}

func newTestServer(t *testing.T, images []testImage, fail_page int, details map[string]string) *httptest.Server {

	mux := http.NewServeMux()

	mux.HandleFunc("/accounts/acct/images/v1", func(w http.ResponseWriter, r *http.Request) {

		if r.Header.Get("Authorization") != "Bearer s3cr3t" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"success":false,"errors":[{"code":10000,"message":"Authentication error"}]}`)
			return
		}

		var page int
		var per_page int

		fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)
		fmt.Sscanf(r.URL.Query().Get("per_page"), "%d", &per_page)

		if page == fail_page {
			fmt.Fprint(w, `{"success":false,"errors":[{"code":5400,"message":"Bad request"}],"result":null}`)
			return
		}

		start := (page - 1) * per_page
		end := start + per_page

		if start > len(images) {
			start = len(images)
		}

		if end > len(images) {
			end = len(images)
		}

		entries := make([]string, 0)

		for _, im := range images[start:end] {

			e := fmt.Sprintf(`{"id":%q,"filename":%q`, im.id, im.filename)

			if im.width > 0 {
				e = fmt.Sprintf(`%s,"width":%d,"height":%d`, e, im.width, im.height)
			}

			entries = append(entries, e+"}")
		}

		fmt.Fprintf(w, `{"success":true,"errors":[],"result":{"images":[%s]}}`, strings.Join(entries, ","))
	})

	mux.HandleFunc("/accounts/acct/images/v1/", func(w http.ResponseWriter, r *http.Request) {

		id := strings.TrimPrefix(r.URL.Path, "/accounts/acct/images/v1/")
		body, ok := details[id]

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"success":false,"errors":[{"code":5404,"message":"Image not found"}]}`)
			return
		}

		fmt.Fprint(w, body)
	})

	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, base_url string) *Client {

	c, err := NewClient("acct", "s3cr3t")

	if err != nil {
		t.Fatalf("Failed to create client, %v", err)
	}

	c.BaseURL = base_url
	c.Limiter = ratelimit.NewUnlimited()
	return c
}

func TestNewClientRequiresCredentials(t *testing.T) {

	_, err := NewClient("", "token")

	if err == nil {
		t.Fatalf("Expected error for missing account ID")
	}

	_, err = NewClient("acct", "")

	if err == nil {
		t.Fatalf("Expected error for missing token")
	}
}

func TestExportImages(t *testing.T) {

	ctx := context.Background()

	images := []testImage{
		{"a1", "wkcd_001.webp", 800, 600},
		{"a2", "wkcd_002.webp", 0, 0},
		{"a3", "wkcd_003.webp", 0, 0},
		{"a4", "wkcd_004.webp", 1024, 768},
		{"a5", "樹_005.webp", 640, 480},
	}

	details := map[string]string{
		"a2": `{"success":true,"errors":[],"result":{"id":"a2","filename":"wkcd_002.webp","width":300,"height":200,"variants":["https://example.com/a2/public"]}}`,
	}

	ts := newTestServer(t, images, 0, details)
	defer ts.Close()

	c := newTestClient(t, ts.URL)

	exported, err := ExportImages(ctx, c, &ExportImagesOptions{PerPage: 2})

	if err != nil {
		t.Fatalf("Failed to export images, %v", err)
	}

	if len(exported) != len(images) {
		t.Fatalf("Expected %d images, got %d", len(images), len(exported))
	}

	expected := []string{"800x600", "300x200", UNKNOWN_SCALE, "1024x768", "640x480"}

	for i, e := range exported {

		if e.Scale != expected[i] {
			t.Fatalf("Unexpected scale for %s: %s (expected %s)", e.ImageID, e.Scale, expected[i])
		}

		if e.ImageID != images[i].id || e.Filename != images[i].filename {
			t.Fatalf("Unexpected entry %d: %v", i, e)
		}
	}
}

func TestExportImagesPartialOnError(t *testing.T) {

	ctx := context.Background()

	images := []testImage{
		{"a1", "one.webp", 10, 10},
		{"a2", "two.webp", 20, 20},
		{"a3", "three.webp", 30, 30},
	}

	ts := newTestServer(t, images, 2, nil)
	defer ts.Close()

	c := newTestClient(t, ts.URL)

	exported, err := ExportImages(ctx, c, &ExportImagesOptions{PerPage: 2})

	if err == nil {
		t.Fatalf("Expected API error")
	}

	if !IsAPIError(err) {
		t.Fatalf("Expected APIError, got %v", err)
	}

	if len(exported) != 2 {
		t.Fatalf("Expected 2 images gathered before the error, got %d", len(exported))
	}
}

func TestExportImagesUnauthorized(t *testing.T) {

	ctx := context.Background()

	ts := newTestServer(t, nil, 0, nil)
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	c.Token = "wrong"

	_, err := ExportImages(ctx, c, &ExportImagesOptions{})

	if !IsAPIError(err) {
		t.Fatalf("Expected APIError, got %v", err)
	}

	if !strings.Contains(err.Error(), "Authentication error") {
		t.Fatalf("Expected error message to be propagated, got %v", err)
	}
}

func TestScale(t *testing.T) {

	if Scale(3, 2) != "3x2" {
		t.Fatalf("Unexpected scale %s", Scale(3, 2))
	}

	if Scale(0, 2) != UNKNOWN_SCALE {
		t.Fatalf("Expected unknown scale")
	}
}

func TestWriteImageListing(t *testing.T) {

	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "cloudflare_images.json")

	images := []*ExportedImage{
		{Filename: "樹 <1>.webp", ImageID: "a1", Scale: "3x2"},
	}

	err := WriteImageListing(ctx, path, images)

	if err != nil {
		t.Fatalf("Failed to write listing, %v", err)
	}

	body, err := os.ReadFile(path)

	if err != nil {
		t.Fatalf("Failed to read listing, %v", err)
	}

	if !strings.Contains(string(body), `"filename": "樹 <1>.webp"`) {
		t.Fatalf("Expected unescaped filename, got %s", string(body))
	}

	if !strings.HasPrefix(string(body), "{\n  \"total_images\": 1,") {
		t.Fatalf("Unexpected layout, got %s", string(body))
	}

	var listing ImageListing

	err = json.Unmarshal(body, &listing)

	if err != nil {
		t.Fatalf("Failed to parse listing, %v", err)
	}

	if listing.TotalImages != 1 || listing.Images[0].ImageID != "a1" {
		t.Fatalf("Unexpected listing %v", listing)
	}
}
