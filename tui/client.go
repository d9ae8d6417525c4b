package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"digestbot/types"
)

// PanelClient is a thin HTTP client for the control panel API
type PanelClient struct {
	baseURL string
	client  *http.Client
}

// NewPanelClient creates a client for the panel at baseURL
func NewPanelClient(baseURL string) *PanelClient {
	return &PanelClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetStatus fetches the current run status
func (c *PanelClient) GetStatus() (*types.StatusResponse, error) {
	resp, err := c.client.Get(c.baseURL + "/api/status")
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var status types.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &status, nil
}

// StartRun asks the panel to start a run with default options
func (c *PanelClient) StartRun() error {
	resp, err := c.client.Post(c.baseURL+"/api/run", "application/json", bytes.NewReader([]byte("{}")))
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Reason string `json:"reason"`
			Error  string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		reason := body.Reason
		if reason == "" {
			reason = body.Error
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, reason)
	}
	return nil
}
