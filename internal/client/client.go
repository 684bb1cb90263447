// Package client is the Go consumer of the storybook API: a typed HTTP
// client, an order status poller, the photo upload flow, and the order
// form model.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// Client wraps the storybook service API.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetAuthToken attaches a bearer token to every request. Needed for the
// admin operations when the service runs with an admin secret.
func (c *Client) SetAuthToken(token string) {
	c.authToken = token
}

// APIError carries the service's error body for non-2xx responses.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

type StoryPage struct {
	PageNumber       int     `json:"page_number"`
	TemplateImageURL string  `json:"template_image_url"`
	FaceX            int     `json:"face_x"`
	FaceY            int     `json:"face_y"`
	FaceWidth        int     `json:"face_width"`
	FaceAngle        float64 `json:"face_angle"`
}

type Story struct {
	ID                      string      `json:"id"`
	Title                   string      `json:"title"`
	Description             *string     `json:"description,omitempty"`
	CoverImageURL           *string     `json:"cover_image_url,omitempty"`
	Price                   float64     `json:"price"`
	RequiresSecondCharacter bool        `json:"requires_second_character"`
	Pages                   []StoryPage `json:"pages"`
}

type OrderPage struct {
	PageNumber int    `json:"page_number"`
	ImageURL   string `json:"image_url"`
}

type Order struct {
	ID             string      `json:"id"`
	Status         string      `json:"status"`
	StoryID        *string     `json:"story_id,omitempty"`
	ChildName      string      `json:"child_name"`
	MomName        *string     `json:"mom_name,omitempty"`
	PDFURL         *string     `json:"pdf_url,omitempty"`
	FailureReason  *string     `json:"failure_reason,omitempty"`
	GeneratedPages []OrderPage `json:"generated_pages"`
	CreatedAt      time.Time   `json:"created_at"`
}

type ValidationChecks struct {
	FaceDetected bool   `json:"face_detected"`
	IsSharp      bool   `json:"is_sharp"`
	IsHighRes    bool   `json:"is_high_res"`
	FaceCount    int    `json:"face_count"`
	BlurScore    int    `json:"blur_score"`
	Resolution   string `json:"resolution"`
}

type UploadResult struct {
	URL    string            `json:"url"`
	Valid  bool              `json:"valid"`
	Reason string            `json:"reason,omitempty"`
	Checks *ValidationChecks `json:"checks,omitempty"`
}

type CreateOrderParams struct {
	StoryID     string `json:"story_id,omitempty"`
	ChildName   string `json:"child_name"`
	PhotoURL    string `json:"photo_url"`
	MomName     string `json:"mom_name,omitempty"`
	MomPhotoURL string `json:"mom_photo_url,omitempty"`
}

type SeedResult struct {
	Message string `json:"message"`
	StoryID string `json:"story_id"`
}

// GetStories fetches the story catalog.
func (c *Client) GetStories(ctx context.Context) ([]Story, error) {
	var stories []Story
	if err := c.doJSON(ctx, "GET", "/api/v1/stories", nil, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

func (c *Client) GetStory(ctx context.Context, storyID string) (*Story, error) {
	var story Story
	if err := c.doJSON(ctx, "GET", "/api/v1/stories/"+storyID, nil, &story); err != nil {
		return nil, err
	}
	return &story, nil
}

func (c *Client) SeedStories(ctx context.Context) (*SeedResult, error) {
	var result SeedResult
	if err := c.doJSON(ctx, "POST", "/api/v1/stories/seed", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateOrder submits the order form. The returned order starts in
// PENDING; use a Poller to follow it to a terminal status.
func (c *Client) CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error) {
	var order Order
	if err := c.doJSON(ctx, "POST", "/api/v1/orders/create", params, &order); err != nil {
		return nil, err
	}
	sortPages(order.GeneratedPages)
	return &order, nil
}

// GetOrder fetches the order's current state. Generated pages are
// returned sorted by page number regardless of server ordering.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.doJSON(ctx, "GET", "/api/v1/orders/"+orderID, nil, &order); err != nil {
		return nil, err
	}
	sortPages(order.GeneratedPages)
	return &order, nil
}

// NewStoryPage describes one template page of a story being created.
type NewStoryPage struct {
	PageNumber int
	Image      []byte
	FaceX      int
	FaceY      int
	FaceWidth  int
	FaceAngle  float64
}

// CreateStoryParams is the multipart story-creation form.
type CreateStoryParams struct {
	Title                   string
	Description             string
	Price                   float64
	RequiresSecondCharacter bool
	CoverImage              []byte
	Pages                   []NewStoryPage
}

// CreateStory adds a story to the catalog with its template pages and
// face slots. Admin operation.
func (c *Client) CreateStory(ctx context.Context, params CreateStoryParams) (*Story, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	_ = writer.WriteField("title", params.Title)
	_ = writer.WriteField("description", params.Description)
	_ = writer.WriteField("price", strconv.FormatFloat(params.Price, 'f', 2, 64))
	if params.RequiresSecondCharacter {
		_ = writer.WriteField("requires_second_character", "true")
	}

	if len(params.CoverImage) > 0 {
		part, err := createImagePart(writer, "cover_image", "cover.png")
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(params.CoverImage); err != nil {
			return nil, fmt.Errorf("failed to write cover image: %w", err)
		}
	}

	specs := make([]map[string]interface{}, 0, len(params.Pages))
	for _, page := range params.Pages {
		part, err := createImagePart(writer, "page_images", fmt.Sprintf("page_%d.png", page.PageNumber))
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(page.Image); err != nil {
			return nil, fmt.Errorf("failed to write page %d image: %w", page.PageNumber, err)
		}
		specs = append(specs, map[string]interface{}{
			"page_number": page.PageNumber,
			"face_x":      page.FaceX,
			"face_y":      page.FaceY,
			"face_width":  page.FaceWidth,
			"face_angle":  page.FaceAngle,
		})
	}

	specsJSON, err := json.Marshal(specs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal page specs: %w", err)
	}
	_ = writer.WriteField("pages_json", string(specsJSON))

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/stories", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var story Story
	if err := c.do(req, &story); err != nil {
		return nil, err
	}
	return &story, nil
}

func createImagePart(writer *multipart.Writer, field, filename string) (io.Writer, error) {
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename)}
	header["Content-Type"] = []string{"image/png"}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create form part %s: %w", field, err)
	}
	return part, nil
}

// UploadPhoto sends one photo for validation and storage. A valid=false
// result is not an error; the checks explain what failed.
func (c *Client) UploadPhoto(ctx context.Context, filename string, data []byte, contentType string) (*UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename="%s"`, filepath.Base(filename))}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/orders/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var detail struct {
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(data, &detail); err == nil {
			apiErr.Detail = detail.Detail
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

func sortPages(pages []OrderPage) {
	sort.Slice(pages, func(i, j int) bool {
		return pages[i].PageNumber < pages[j].PageNumber
	})
}
