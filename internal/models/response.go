package models

import "time"

// ErrorResponse is the error body for every non-2xx response. Clients read
// Detail as the human-facing message.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

type StoryPageResponse struct {
	ID               string  `json:"id"`
	StoryID          string  `json:"story_id"`
	PageNumber       int     `json:"page_number"`
	TemplateImageURL string  `json:"template_image_url"`
	FaceX            int     `json:"face_x"`
	FaceY            int     `json:"face_y"`
	FaceWidth        int     `json:"face_width"`
	FaceAngle        float64 `json:"face_angle"`
}

type StoryResponse struct {
	ID                      string              `json:"id"`
	Title                   string              `json:"title"`
	Description             *string             `json:"description"`
	CoverImageURL           *string             `json:"cover_image_url"`
	Price                   float64             `json:"price"`
	RequiresSecondCharacter bool                `json:"requires_second_character"`
	CreatedAt               time.Time           `json:"created_at"`
	Pages                   []StoryPageResponse `json:"pages,omitempty"`
}

type SeedResponse struct {
	Message string `json:"message"`
	StoryID string `json:"story_id"`
}

type OrderPageResponse struct {
	PageNumber int    `json:"page_number"`
	ImageURL   string `json:"image_url"`
}

type OrderResponse struct {
	ID                string              `json:"id"`
	Status            string              `json:"status"`
	CreatedAt         time.Time           `json:"created_at"`
	ChildName         string              `json:"child_name"`
	PhotoURL          string              `json:"photo_url"`
	StoryID           *string             `json:"story_id"`
	MomName           *string             `json:"mom_name,omitempty"`
	MomPhotoURL       *string             `json:"mom_photo_url,omitempty"`
	CharacterAssetURL *string             `json:"character_asset_url"`
	PDFURL            *string             `json:"pdf_url"`
	FailureReason     *string             `json:"failure_reason"`
	GeneratedPages    []OrderPageResponse `json:"generated_pages,omitempty"`
}

// ValidationChecks is the per-signal breakdown returned with every upload.
type ValidationChecks struct {
	FaceDetected bool   `json:"face_detected"`
	IsSharp      bool   `json:"is_sharp"`
	IsHighRes    bool   `json:"is_high_res"`
	FaceCount    int    `json:"face_count"`
	BlurScore    int    `json:"blur_score"`
	Resolution   string `json:"resolution"`
}

type UploadResponse struct {
	URL    string            `json:"url"`
	Valid  bool              `json:"valid"`
	Reason string            `json:"reason,omitempty"`
	Checks *ValidationChecks `json:"checks,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// NewStoryResponse converts a stored story into its wire shape.
func NewStoryResponse(s *Story) StoryResponse {
	resp := StoryResponse{
		ID:                      s.ID.String(),
		Title:                   s.Title,
		Price:                   s.Price,
		RequiresSecondCharacter: s.RequiresSecondCharacter,
		CreatedAt:               s.CreatedAt,
	}
	if s.Description.Valid {
		resp.Description = &s.Description.String
	}
	if s.CoverImageURL.Valid {
		resp.CoverImageURL = &s.CoverImageURL.String
	}
	for _, p := range s.Pages {
		resp.Pages = append(resp.Pages, StoryPageResponse{
			ID:               p.ID.String(),
			StoryID:          p.StoryID.String(),
			PageNumber:       p.PageNumber,
			TemplateImageURL: p.TemplateImageURL,
			FaceX:            p.FaceX,
			FaceY:            p.FaceY,
			FaceWidth:        p.FaceWidth,
			FaceAngle:        p.FaceAngle,
		})
	}
	return resp
}

// NewOrderResponse converts a stored order into its wire shape.
func NewOrderResponse(o *Order) OrderResponse {
	resp := OrderResponse{
		ID:        o.ID.String(),
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		ChildName: o.ChildName,
		PhotoURL:  o.PhotoURL,
	}
	if o.StoryID.Valid {
		resp.StoryID = &o.StoryID.String
	}
	if o.MomName.Valid {
		resp.MomName = &o.MomName.String
	}
	if o.MomPhotoURL.Valid {
		resp.MomPhotoURL = &o.MomPhotoURL.String
	}
	if o.CharacterAssetURL.Valid {
		resp.CharacterAssetURL = &o.CharacterAssetURL.String
	}
	if o.PDFURL.Valid {
		resp.PDFURL = &o.PDFURL.String
	}
	if o.FailureReason.Valid {
		resp.FailureReason = &o.FailureReason.String
	}
	for _, p := range o.GeneratedPages {
		resp.GeneratedPages = append(resp.GeneratedPages, OrderPageResponse{
			PageNumber: p.PageNumber,
			ImageURL:   p.ImageURL,
		})
	}
	return resp
}
