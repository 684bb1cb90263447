package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Detector counts faces in an encoded image. The photo validator needs
// exactly one face for a photo to be usable.
type Detector interface {
	CountFaces(ctx context.Context, imageData []byte) (int, error)
}

// Client talks to a remote face-detection API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type detectResponse struct {
	Faces []struct {
		X      int     `json:"x"`
		Y      int     `json:"y"`
		Width  int     `json:"width"`
		Height int     `json:"height"`
		Score  float64 `json:"score"`
	} `json:"faces"`
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CountFaces submits the image and returns how many faces the service found.
func (c *Client) CountFaces(ctx context.Context, imageData []byte) (int, error) {
	url := c.baseURL + "/v1/detect"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(imageData))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to detect faces: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result detectResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	return len(result.Faces), nil
}
