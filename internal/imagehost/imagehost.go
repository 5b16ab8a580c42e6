// Package imagehost uploads avatar images to the external image host.
package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/webp"
)

const MaxUploadSize = 5 << 20

var (
	ErrNotConfigured   = errors.New("image host not configured")
	ErrEmptyUpload     = errors.New("image is empty")
	ErrTooLarge        = fmt.Errorf("image exceeds %d bytes", MaxUploadSize)
	ErrUnsupportedType = errors.New("image must be png, jpeg or webp")
	ErrInvalidImage    = errors.New("image data is corrupt")
	ErrTooManyPixels   = fmt.Errorf("image exceeds %d pixels", MaxPixels)
)

// MaxPixels caps width*height so a small compressed upload cannot expand
// into a huge decoded image.
const MaxPixels = 4096 * 4096

type format struct {
	config func(io.Reader) (image.Config, error)
	decode func(io.Reader) (image.Image, error)
}

var formats = map[string]format{
	"image/png":  {config: png.DecodeConfig, decode: png.Decode},
	"image/jpeg": {config: jpeg.DecodeConfig, decode: jpeg.Decode},
	"image/webp": {config: webp.DecodeConfig, decode: webp.Decode},
}

// HostError is a non-2xx response. Its message is the host's body verbatim.
type HostError struct {
	StatusCode int
	Body       string
}

func (e *HostError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("image host returned %d", e.StatusCode)
	}
	return e.Body
}

type Client struct {
	url    string
	apiKey string
	http   *http.Client
}

func NewClient(url, apiKey string) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Check validates data before any network call and returns its MIME type.
func Check(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyUpload
	}
	if len(data) > MaxUploadSize {
		return "", ErrTooLarge
	}

	mtype := mimetype.Detect(data).String()
	f, ok := formats[mtype]
	if !ok {
		return "", fmt.Errorf("%w: got %s", ErrUnsupportedType, mtype)
	}

	// Dimensions come from the header alone; decode only once they fit.
	cfg, err := f.config(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", fmt.Errorf("%w: %dx%d", ErrInvalidImage, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return "", fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}
	if _, err := f.decode(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return mtype, nil
}

// Upload sends data under pathHint and returns the stable URL the host
// assigned.
func (c *Client) Upload(ctx context.Context, data []byte, pathHint string) (string, error) {
	if c.url == "" {
		return "", ErrNotConfigured
	}

	mtype, err := Check(data)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("path", pathHint); err != nil {
		return "", fmt.Errorf("writing path field: %w", err)
	}
	part, err := mw.CreateFormFile("file", fileName(pathHint, mtype))
	if err != nil {
		return "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("writing file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return "", fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading image: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("reading upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &HostError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if out.URL == "" {
		return "", errors.New("image host returned no url")
	}
	return out.URL, nil
}

func fileName(pathHint, mtype string) string {
	name := pathHint
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		name = "upload"
	}
	return name + "." + strings.TrimPrefix(mtype, "image/")
}
