package main

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
)

// apiClient talks to a running careercoach server.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable at %s: %w", c.baseURL, err)
	}
	return resp, nil
}

func (c *apiClient) analyze(ctx context.Context, userID, profileURL, targetJob string) (*analysisResponse, error) {
	req := map[string]string{"linkedin_url": profileURL, "user_id": userID}
	if targetJob != "" {
		req["target_job_title"] = targetJob
	}
	resp, err := c.do(ctx, http.MethodPost, "/analyze", req)
	if err != nil {
		return nil, err
	}
	var out analysisResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) chat(ctx context.Context, userID, message string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/chat", map[string]string{"user_id": userID, "message": message})
	if err != nil {
		return "", err
	}
	var out struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *apiClient) memories(ctx context.Context, userID string, limit int) ([]memoryEntry, error) {
	path := fmt.Sprintf("/users/%s/memories?limit=%d", url.PathEscape(userID), limit)
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Memories []memoryEntry `json:"memories"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out.Memories, nil
}

func (c *apiClient) health(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return "", err
	}
	var out map[string]string
	if err := decodeJSON(resp, &out); err != nil {
		return "", err
	}
	return out["status"], nil
}

type analysisResponse struct {
	Profile struct {
		Name     string `json:"name"`
		Headline string `json:"headline"`
	} `json:"profile"`
	MatchScore        *float64                   `json:"match_score"`
	Recommendations   []string                   `json:"recommendations"`
	RewrittenSections map[string]json.RawMessage `json:"rewritten_sections"`
}

type memoryEntry struct {
	ID        string                 `json:"id"`
	Text      string                 `json:"text"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
}

// decodeJSON decodes a successful response, or turns the server's
// {"detail": ...} body into an error.
func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
		}
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &detail) == nil && detail.Detail != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, detail.Detail)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
