package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hyperjump/imi/internal/models"
	"github.com/hyperjump/imi/internal/server"
)

// searchViaHTTP posts query to a running server.
func searchViaHTTP(ctx context.Context, serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	var response models.SearchResponse
	if err := doJSON(ctx, http.MethodPost, serverURL, "/api/v1/search", body, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// statusViaHTTP fetches GET /api/v1/status from a running server.
func statusViaHTTP(ctx context.Context, serverURL string) (*server.StatusResponse, error) {
	var st server.StatusResponse
	if err := doJSON(ctx, http.MethodGet, serverURL, "/api/v1/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func doJSON(ctx context.Context, method, baseURL, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(baseURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
