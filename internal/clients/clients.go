package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mergington/signup/internal/metrics"
)

// Clients groups the typed clients of the activity service. Both share one
// http.Client.
type Clients struct {
	HTTP       *http.Client
	Activities *ActivityClient
	Auth       *AuthClient
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger) (*Clients, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid service url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("invalid_service_url")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := &http.Client{Timeout: timeout}
	t := &transport{
		http:    httpClient,
		baseURL: base,
		logger:  logger.Named("clients"),
	}
	return &Clients{
		HTTP:       httpClient,
		Activities: &ActivityClient{t: t},
		Auth:       &AuthClient{t: t},
	}, nil
}

func (c *Clients) Close() {
	if c == nil || c.HTTP == nil {
		return
	}
	c.HTTP.CloseIdleConnections()
}

type transport struct {
	http    *http.Client
	baseURL string
	logger  *zap.Logger
}

type request struct {
	endpoint    string
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	token       string
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// do sends req and decodes a 2xx body into out when out is non-nil.
func (t *transport) do(ctx context.Context, req request, out interface{}) error {
	target := t.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", req.endpoint, err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	start := time.Now()
	resp, err := t.http.Do(httpReq)
	if err != nil {
		metrics.TrackServiceCall(req.endpoint, 0, time.Since(start).Seconds())
		t.logger.Warn("service call failed",
			zap.String("endpoint", req.endpoint),
			zap.String("request_id", requestID),
			zap.Error(err))
		return fmt.Errorf("%w: %s: %v", ErrTransport, req.endpoint, err)
	}
	defer resp.Body.Close()
	metrics.TrackServiceCall(req.endpoint, resp.StatusCode, time.Since(start).Seconds())

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %v", ErrTransport, req.endpoint, err)
	}

	t.logger.Debug("service call",
		zap.String("endpoint", req.endpoint),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Endpoint: req.endpoint,
			Status:   resp.StatusCode,
			Detail:   detailString(data),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: decode body: %v", ErrTransport, req.endpoint, err)
	}
	return nil
}

// detailString extracts a string "detail" field. Structured details, such as
// validation error lists, are not surfaced.
func detailString(data []byte) string {
	var payload errorBody
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err != nil {
		return ""
	}
	return strings.TrimSpace(detail)
}

func activityPath(name, action string) string {
	return "/activities/" + url.PathEscape(name) + "/" + action
}
