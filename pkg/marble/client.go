package marble

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Nabla7/mujoco-experiments/internal/tracing"
	"github.com/Nabla7/mujoco-experiments/pkg/domain"
)

// DefaultBaseURL is the production World Labs API endpoint.
const DefaultBaseURL = "https://api.worldlabs.ai"

const apiKeyHeader = "WLT-Api-Key"

// Client is a stateless REST client for the Marble world-generation API.
// Each call is a single synchronous request/response; no connection state is
// shared between calls beyond the underlying http.Client pool.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	uploader   *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer

	// injectable for poller tests
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the client used for JSON API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUploadClient replaces the client used for raw asset transfer. Uploads
// and downloads move whole files, so it carries a longer timeout.
func WithUploadClient(hc *http.Client) Option {
	return func(c *Client) { c.uploader = hc }
}

// WithLogger sets the logger for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		uploader:   &http.Client{Timeout: 5 * time.Minute},
		logger:     slog.Default(),
		tracer:     otel.Tracer("marble/client"),
		now:        time.Now,
		sleep:      sleepContext,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// request performs one API call and returns the raw response body.
// Transport failures and non-2xx statuses come back as typed errors.
func (c *Client) request(ctx context.Context, method, path string, body any) ([]byte, error) {
	var buf *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		buf = bytes.NewReader(b)
	} else {
		buf = bytes.NewReader(nil)
	}

	u := c.baseURL + path
	ctx, span := c.tracer.Start(ctx, "marble.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, u, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	tracing.InjectHeaders(ctx, req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &TransportError{Method: method, URL: u, Err: err}
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		span.SetStatus(codes.Error, resp.Status)
		return nil, &HTTPError{Method: method, URL: u, StatusCode: resp.StatusCode, Body: string(out)}
	}
	return out, nil
}

// requestJSON decodes the response body into a generic mapping. An empty
// body decodes to an empty map.
func (c *Client) requestJSON(ctx context.Context, method, path string, body any) (map[string]any, error) {
	out, err := c.request(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, method, path, err)
	}
	return m, nil
}

// PrepareUpload registers a media asset and returns the pre-signed upload
// target for its bytes.
func (c *Client) PrepareUpload(ctx context.Context, req *domain.PrepareUploadRequest) (*domain.PrepareUploadResponse, error) {
	if req == nil || strings.TrimSpace(req.FileName) == "" {
		return nil, fmt.Errorf("%w: file name is required", ErrInvalidArgument)
	}
	if req.Kind == "" {
		return nil, fmt.Errorf("%w: media kind is required", ErrInvalidArgument)
	}

	out, err := c.request(ctx, http.MethodPost, "/marble/v1/media-assets:prepare_upload", req)
	if err != nil {
		return nil, err
	}
	var resp domain.PrepareUploadResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, fmt.Errorf("%w: prepare_upload: %v", ErrMalformedResponse, err)
	}
	if resp.MediaAsset.MediaAssetID == "" || resp.UploadInfo.UploadURL == "" {
		return nil, fmt.Errorf("%w: unexpected prepare_upload response: %s", ErrMalformedResponse, out)
	}
	return &resp, nil
}

// UploadParams describes the pre-signed target returned by PrepareUpload.
type UploadParams struct {
	UploadURL       string
	RequiredHeaders map[string]string
	ContentType     string
}

// UploadBytes PUTs raw bytes to a pre-signed URL. Server-dictated headers are
// merged in; ContentType applies only when the server did not dictate one.
func (c *Client) UploadBytes(ctx context.Context, p UploadParams, data []byte) error {
	if strings.TrimSpace(p.UploadURL) == "" {
		return fmt.Errorf("%w: upload url is required", ErrInvalidArgument)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.UploadURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	for k, v := range p.RequiredHeaders {
		req.Header.Set(k, v)
	}
	if p.ContentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", p.ContentType)
	}

	resp, err := c.uploader.Do(req)
	if err != nil {
		return &TransportError{Method: http.MethodPut, URL: p.UploadURL, Err: err}
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Method: http.MethodPut, URL: p.UploadURL, StatusCode: resp.StatusCode, Body: string(out)}
	}
	return nil
}

// GenerateWorld starts a world generation and returns the operation handle.
func (c *Client) GenerateWorld(ctx context.Context, req *domain.GenerateRequest) (*domain.GenerateResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: generate request is required", ErrInvalidArgument)
	}
	if req.Model == "" {
		req.Model = domain.ModelMarblePlus
	}

	out, err := c.request(ctx, http.MethodPost, "/marble/v1/worlds:generate", req)
	if err != nil {
		return nil, err
	}
	var resp domain.GenerateResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, fmt.Errorf("%w: worlds:generate: %v", ErrMalformedResponse, err)
	}
	if resp.OperationID == "" {
		return nil, fmt.Errorf("%w: unexpected worlds:generate response: %s", ErrMalformedResponse, out)
	}
	return &resp, nil
}

// GetOperation fetches the current state of an operation.
func (c *Client) GetOperation(ctx context.Context, operationID string) (*domain.OperationResult, error) {
	if strings.TrimSpace(operationID) == "" {
		return nil, fmt.Errorf("%w: operation id is required", ErrInvalidArgument)
	}
	raw, err := c.requestJSON(ctx, http.MethodGet, "/marble/v1/operations/"+url.PathEscape(operationID), nil)
	if err != nil {
		return nil, err
	}
	return domain.OperationResultFromRaw(raw, operationID), nil
}

// GetWorld fetches a generated world. The API has returned both enveloped
// ({"world": {...}}) and flat shapes; both are accepted.
func (c *Client) GetWorld(ctx context.Context, worldID string) (*domain.World, error) {
	if strings.TrimSpace(worldID) == "" {
		return nil, fmt.Errorf("%w: world id is required", ErrInvalidArgument)
	}
	raw, err := c.requestJSON(ctx, http.MethodGet, "/marble/v1/worlds/"+url.PathEscape(worldID), nil)
	if err != nil {
		return nil, err
	}

	payload := raw
	if inner, ok := raw["world"].(map[string]any); ok {
		payload = inner
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: world payload: %v", ErrMalformedResponse, err)
	}
	var w domain.World
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("%w: world payload: %v", ErrMalformedResponse, err)
	}
	if w.WorldID == "" {
		w.WorldID = worldID
	}
	return &w, nil
}

// DownloadAsset opens a streaming GET against a (typically pre-signed) asset
// URL. The caller owns the returned body. Size is -1 when unknown.
func (c *Client) DownloadAsset(ctx context.Context, assetURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.uploader.Do(req)
	if err != nil {
		return nil, 0, &TransportError{Method: http.MethodGet, URL: assetURL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		out, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, 0, &HTTPError{Method: http.MethodGet, URL: assetURL, StatusCode: resp.StatusCode, Body: string(out)}
	}
	return resp.Body, resp.ContentLength, nil
}

// GuessContentType maps a file extension to the MIME type used as the upload
// Content-Type default.
func GuessContentType(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "mp4":
		return "video/mp4"
	case "mov":
		return "video/quicktime"
	case "mkv":
		return "video/x-matroska"
	default:
		return "application/octet-stream"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
