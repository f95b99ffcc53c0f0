// Package client is a small Go client for the back-office API. Its main
// feature is Watcher, which polls a sync job until it reaches a terminal
// status.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mrcosta/backoffice/models"
	"github.com/mrcosta/backoffice/repository"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	AuthToken  string
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// StatusResponse mirrors the sync status endpoint payload.
type StatusResponse struct {
	RunningSync *models.SyncJob       `json:"runningSync"`
	RecentSyncs []models.SyncJob      `json:"recentSyncs"`
	Stats       *repository.SyncStats `json:"stats"`
}

// Helper to execute requests
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.AuthToken != "" {
		req.Header.Set("Cookie", "access_token="+c.AuthToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("api error (%d): %s", resp.StatusCode, string(respBytes))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// StartSync launches a sync job of the given kind.
func (c *Client) StartSync(ctx context.Context, kind string) (*models.SyncJob, error) {
	var job models.SyncJob
	body := map[string]string{"kind": kind}
	if err := c.doRequest(ctx, "POST", "/api/v1/sync/start", body, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// GetSyncJob fetches one sync job by id.
func (c *Client) GetSyncJob(ctx context.Context, jobID string) (*models.SyncJob, error) {
	var job models.SyncJob
	if err := c.doRequest(ctx, "GET", "/api/v1/sync/"+jobID, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// StopSync requests cancellation of a running sync job.
func (c *Client) StopSync(ctx context.Context, jobID string) error {
	return c.doRequest(ctx, "POST", "/api/v1/sync/"+jobID+"/stop", nil, nil)
}

// SyncStatus fetches the running job, recent history and stats.
func (c *Client) SyncStatus(ctx context.Context, kind string) (*StatusResponse, error) {
	path := "/api/v1/sync/status"
	if kind != "" {
		path += "?kind=" + kind
	}
	var status StatusResponse
	if err := c.doRequest(ctx, "GET", path, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
