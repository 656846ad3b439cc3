package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/exp/slog"
)

const nodesPath = "/api/v1/nodes"

// HTTPFlatStore is a FlatStore backed by the flat-store server API.
type HTTPFlatStore struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	apiKey    string
	userAgent string
}

// NodesResponse is the body of GET /api/v1/nodes.
type NodesResponse struct {
	Status string         `json:"status"`
	Nodes  map[string]any `json:"nodes,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func NewHTTPFlatStore(baseURL, apiKey string, log *slog.Logger) *HTTPFlatStore {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &HTTPFlatStore{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		log:       log.With("component", "flat_http_client"),
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		userAgent: "iotsync-agent/1.0",
	}
}

// HealthCheck reports whether the server answers.
func (h *HTTPFlatStore) HealthCheck(ctx context.Context) error {
	resp, err := h.doRequest(ctx, http.MethodGet, "/api/v1/health", nil)
	if err != nil {
		return err
	}
	return h.parseResponse(resp, nil)
}

func (h *HTTPFlatStore) GetAll(ctx context.Context, path string) (map[string]any, error) {
	resp, err := h.doRequest(ctx, http.MethodGet, nodesPath+"?path="+url.QueryEscape(JoinPath(path)), nil)
	if err != nil {
		return nil, err
	}

	var body NodesResponse
	if err := h.parseResponse(resp, &body); err != nil {
		return nil, err
	}
	if len(body.Nodes) == 0 {
		return nil, nil
	}
	return body.Nodes, nil
}

func (h *HTTPFlatStore) Set(ctx context.Context, path string, value map[string]any) error {
	resp, err := h.doRequest(ctx, http.MethodPut, nodesPath+"?path="+url.QueryEscape(JoinPath(path)), value)
	if err != nil {
		return err
	}
	return h.parseResponse(resp, nil)
}

func (h *HTTPFlatStore) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	h.log.Debug("request", "method", method, "path", path)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (h *HTTPFlatStore) parseResponse(resp *http.Response, v any) error {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if v == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
