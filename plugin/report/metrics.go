package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Gthulhu/scx_serverless/plugin/serverless"
)

// Snapshot is the metrics payload pushed to the API server.
type Snapshot struct {
	SessionID string `json:"session_id"` // Identifies one scheduler bootstrap
	Mode      string `json:"mode"`       // Active slice profile
	Timestamp uint64 `json:"timestamp"`  // Nanoseconds since the epoch
	serverless.Stats
}

// MetricsResponse represents the response structure from the API server
type MetricsResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// MetricsClient handles sending metrics to the API server
type MetricsClient struct {
	httpClient  *http.Client
	metricsURL  string
	token       string
	minInterval time.Duration

	mu           sync.Mutex
	lastSentTime time.Time
}

// NewMetricsClient creates a new metrics client. An empty token sends no
// Authorization header.
func NewMetricsClient(apiBaseURL, token string, minInterval time.Duration) *MetricsClient {
	return &MetricsClient{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		metricsURL:  apiBaseURL + "/api/v1/metrics",
		token:       token,
		minInterval: minInterval,
	}
}

// SendMetrics posts data to the API server. Calls closer together than the
// minimum interval are skipped and return false.
func (c *MetricsClient) SendMetrics(ctx context.Context, data Snapshot) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Rate limiting: don't send too frequently
	if !c.lastSentTime.IsZero() && time.Since(c.lastSentTime) < c.minInterval {
		return false, nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("failed to marshal metrics data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.metricsURL, bytes.NewReader(jsonData))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to send metrics request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("metrics request failed with status code: %d", resp.StatusCode)
	}

	var body MetricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && !body.Success {
		return false, fmt.Errorf("metrics rejected: %s", body.Message)
	}

	c.lastSentTime = time.Now()
	return true, nil
}
