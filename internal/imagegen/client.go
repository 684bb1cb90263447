package imagegen

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

// Generator produces a stylized character image from a reference photo.
type Generator interface {
	GenerateCharacter(ctx context.Context, photoURL, promptSuffix string) ([]byte, error)
}

// Client drives a prediction-style image generation API: create a
// prediction, poll it until it settles, download the output.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	// PollInterval is how often WaitForPrediction re-checks a running
	// prediction.
	PollInterval time.Duration
}

// PredictionInput is the model input for a character generation run.
type PredictionInput struct {
	Prompt         string `json:"prompt"`
	MainFaceImage  string `json:"main_face_image"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

type PredictionIn struct {
	Version string          `json:"version,omitempty"`
	Model   string          `json:"model,omitempty"`
	Input   PredictionInput `json:"input"`
}

type PredictionOut struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Output []string `json:"output"`
	Error  string   `json:"error,omitempty"`
}

const defaultNegativePrompt = "photorealistic, real photo, skin texture, pores, ugly, deformed, blurry, low quality"

func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		PollInterval: 2 * time.Second,
	}
}

// CreatePrediction starts a generation run.
func (c *Client) CreatePrediction(ctx context.Context, input PredictionInput) (*PredictionOut, error) {
	if input.NegativePrompt == "" {
		input.NegativePrompt = defaultNegativePrompt
	}
	reqBody := PredictionIn{
		Model: c.model,
		Input: input,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/predictions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("failed to create prediction: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result PredictionOut
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	return &result, nil
}

// GetPrediction fetches the current state of a run.
func (c *Client) GetPrediction(ctx context.Context, predictionID string) (*PredictionOut, error) {
	url := c.baseURL + "/predictions/" + predictionID
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get prediction: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result PredictionOut
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	return &result, nil
}

// WaitForPrediction polls until the run settles or ctx expires.
func (c *Client) WaitForPrediction(ctx context.Context, predictionID string) (*PredictionOut, error) {
	for {
		pred, err := c.GetPrediction(ctx, predictionID)
		if err != nil {
			return nil, err
		}

		switch pred.Status {
		case "succeeded":
			return pred, nil
		case "failed", "canceled":
			return nil, fmt.Errorf("prediction %s %s: %s", predictionID, pred.Status, pred.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.PollInterval):
		}
	}
}

// GenerateCharacter runs the full flow and returns the generated image
// bytes. Rate-limited creates are retried with backoff.
func (c *Client) GenerateCharacter(ctx context.Context, photoURL, promptSuffix string) ([]byte, error) {
	input := PredictionInput{
		Prompt:        fmt.Sprintf("illustration of a happy child, %s", promptSuffix),
		MainFaceImage: photoURL,
	}

	var pred *PredictionOut
	err := c.RetryWithBackoff(func() error {
		var err error
		pred, err = c.CreatePrediction(ctx, input)
		return err
	}, 3)
	if err != nil {
		return nil, err
	}

	done, err := c.WaitForPrediction(ctx, pred.ID)
	if err != nil {
		return nil, err
	}

	if len(done.Output) == 0 {
		return nil, fmt.Errorf("prediction %s succeeded with no output", pred.ID)
	}

	return c.downloadOutput(ctx, done.Output[0])
}

func (c *Client) downloadOutput(ctx context.Context, outputURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", outputURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to download output: status %d, body: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// RetryWithBackoff executes fn with exponential backoff between attempts.
func (c *Client) RetryWithBackoff(fn func() error, maxRetries int) error {
	backoffs := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if i < len(backoffs) {
			time.Sleep(backoffs[i])
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
