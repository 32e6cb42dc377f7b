package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// DefaultServiceURL is where the extraction sidecar listens by default.
const DefaultServiceURL = "http://localhost:8081"

// ServiceClient talks to an HTTP extraction sidecar.
//
// The sidecar accepts an upload at POST /documents and answers with an
// id and page count, serves each page at GET /documents/{id}/pages/{n},
// and forgets the upload on DELETE /documents/{id}. Failures carry a JSON
// body with an "error" field.
type ServiceClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// ClientOption configures a ServiceClient.
type ClientOption func(*ServiceClient) error

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *ServiceClient) error {
		if client == nil {
			return errors.New("http client is nil")
		}
		c.client = client
		return nil
	}
}

// WithRateLimit throttles requests to the sidecar.
func WithRateLimit(requestsPerSecond float64, burst int) ClientOption {
	return func(c *ServiceClient) error {
		if requestsPerSecond <= 0 || burst < 1 {
			return fmt.Errorf("rate limit must be positive, got %v/s burst %d", requestsPerSecond, burst)
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
		return nil
	}
}

// WithLogger sets the logger. A nil logger selects slog.Default().
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *ServiceClient) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger.With("component", "extract")
		return nil
	}
}

// NewServiceClient creates a client for the sidecar at baseURL. An empty
// baseURL selects DefaultServiceURL.
func NewServiceClient(baseURL string, opts ...ClientOption) (*ServiceClient, error) {
	if baseURL == "" {
		baseURL = DefaultServiceURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid service url: %w", err)
	}

	c := &ServiceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(rate.Inf, 0),
		logger:  slog.Default().With("component", "extract"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// File returns a Source that uploads the file at path when opened.
func (c *ServiceClient) File(path string) Source {
	return &fileSource{client: c, path: path}
}

// Health reports whether the sidecar answers its health check.
func (c *ServiceClient) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil, "")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

type uploadResponse struct {
	ID        string `json:"id"`
	PageCount int    `json:"page_count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type fileSource struct {
	client *ServiceClient
	path   string
}

func (s *fileSource) Open(ctx context.Context) (Document, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	resp, err := s.client.do(ctx, http.MethodPost, "/documents", f, filepath.Base(s.path))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var upload uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&upload); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	if upload.ID == "" || upload.PageCount < 0 {
		return nil, fmt.Errorf("%w: malformed upload response", ErrService)
	}

	s.client.logger.Debug("document uploaded", "file", s.path, "remote_id", upload.ID, "pages", upload.PageCount)
	return &remoteDocument{client: s.client, id: upload.ID, pageCount: upload.PageCount}, nil
}

type remoteDocument struct {
	client    *ServiceClient
	id        string
	pageCount int
	closed    atomic.Bool
}

func (d *remoteDocument) PageCount() int {
	return d.pageCount
}

func (d *remoteDocument) Page(ctx context.Context, number int) (*Page, error) {
	if d.closed.Load() {
		return nil, ErrDocumentClosed
	}
	if number < 1 || number > d.pageCount {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, number, d.pageCount)
	}

	resp, err := d.client.do(ctx, http.MethodGet, d.path("pages", strconv.Itoa(number)), nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var page Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding page %d: %w", number, err)
	}
	page.Number = number
	return &page, nil
}

func (d *remoteDocument) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	resp, err := d.client.do(context.Background(), http.MethodDelete, d.path(), nil, "")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (d *remoteDocument) path(parts ...string) string {
	return "/documents/" + url.PathEscape(d.id) + strings.Join(append([]string{""}, parts...), "/")
}

// do sends one request and turns non-2xx answers into errors.
func (c *ServiceClient) do(ctx context.Context, method, path string, body io.Reader, fileName string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	if fileName != "" {
		req.Header.Set("X-File-Name", fileName)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling extraction service: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	msg := resp.Status
	var failure errorResponse
	if data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); json.Unmarshal(data, &failure) == nil && failure.Error != "" {
		msg = failure.Error
	}
	return nil, fmt.Errorf("%w: %s %s: %s", ErrService, method, path, msg)
}
