package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/ratelimit"
)

const DEFAULT_BASE_URL string = "https://api.cloudflare.com/client/v4"

// The API allows 1200 requests every five minutes.
const DEFAULT_REQUESTS_PER_SECOND int = 4

// Image is the subset of a Cloudflare Images record used by this package. Width and Height are
// zero when the API did not report them.
type Image struct {
	ID       string
	Filename string
	Width    int64
	Height   int64
	FileSize int64
	Variants []string
}

// APIError is returned when the API responds with an HTTP error or "success": false.
type APIError struct {
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {

	if len(e.Messages) == 0 {
		return fmt.Sprintf("API request failed with status %d", e.StatusCode)
	}

	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

// IsAPIError reports whether 'err' is (or wraps) an APIError.
func IsAPIError(err error) bool {
	var e *APIError
	return errors.As(err, &e)
}

// Client is a minimal read-only client for the Cloudflare Images API.
type Client struct {
	AccountID  string
	Token      string
	BaseURL    string
	HTTPClient *http.Client
	// Every request waits on Limiter before it is sent.
	Limiter ratelimit.Limiter
}

func NewClient(account_id string, token string) (*Client, error) {

	if account_id == "" {
		return nil, errors.New("Missing account ID")
	}

	if token == "" {
		return nil, errors.New("Missing API token")
	}

	c := &Client{
		AccountID: account_id,
		Token:     token,
		BaseURL:   DEFAULT_BASE_URL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Limiter: ratelimit.New(DEFAULT_REQUESTS_PER_SECOND),
	}

	return c, nil
}

func (c *Client) imagesURL(parts ...string) string {

	u := fmt.Sprintf("%s/accounts/%s/images/v1", strings.TrimRight(c.BaseURL, "/"), url.PathEscape(c.AccountID))

	for _, p := range parts {
		u = fmt.Sprintf("%s/%s", u, url.PathEscape(p))
	}

	return u
}

// ListImages returns one page of images. Pages are numbered from 1.
func (c *Client) ListImages(ctx context.Context, page int, per_page int) ([]*Image, error) {

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(per_page))

	body, err := c.get(ctx, c.imagesURL()+"?"+q.Encode())

	if err != nil {
		return nil, err
	}

	results := gjson.GetBytes(body, "result.images").Array()
	images := make([]*Image, len(results))

	for i, r := range results {
		images[i] = parseImage(r)
	}

	return images, nil
}

// ImageDetails returns the full record for a single image.
func (c *Client) ImageDetails(ctx context.Context, id string) (*Image, error) {

	body, err := c.get(ctx, c.imagesURL(id))

	if err != nil {
		return nil, err
	}

	return parseImage(gjson.GetBytes(body, "result")), nil
}

func (c *Client) get(ctx context.Context, uri string) ([]byte, error) {

	if c.Limiter != nil {
		c.Limiter.Take()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)

	if err != nil {
		return nil, fmt.Errorf("Failed to create request, %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	req.Header.Set("Content-Type", "application/json")

	rsp, err := c.HTTPClient.Do(req)

	if err != nil {
		return nil, fmt.Errorf("Failed to execute request, %w", err)
	}

	defer rsp.Body.Close()

	body, err := io.ReadAll(rsp.Body)

	if err != nil {
		return nil, fmt.Errorf("Failed to read response, %w", err)
	}

	if !gjson.ValidBytes(body) {

		if rsp.StatusCode >= 300 {
			return nil, &APIError{StatusCode: rsp.StatusCode}
		}

		return nil, errors.New("Failed to parse response, invalid JSON")
	}

	if rsp.StatusCode >= 300 || !gjson.GetBytes(body, "success").Bool() {

		messages := make([]string, 0)

		for _, e := range gjson.GetBytes(body, "errors").Array() {
			messages = append(messages, fmt.Sprintf("%d %s", e.Get("code").Int(), e.Get("message").String()))
		}

		return nil, &APIError{StatusCode: rsp.StatusCode, Messages: messages}
	}

	return body, nil
}

func parseImage(r gjson.Result) *Image {

	variants := make([]string, 0)

	for _, v := range r.Get("variants").Array() {
		variants = append(variants, v.String())
	}

	im := &Image{
		ID:       r.Get("id").String(),
		Filename: r.Get("filename").String(),
		Width:    r.Get("width").Int(),
		Height:   r.Get("height").Int(),
		FileSize: r.Get("file_size").Int(),
		Variants: variants,
	}

	return im
}
