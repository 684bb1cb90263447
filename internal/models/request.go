package models

type CreateOrderRequest struct {
	ChildName   string `json:"child_name" binding:"required"`
	PhotoURL    string `json:"photo_url" binding:"required"`
	StoryID     string `json:"story_id,omitempty"`
	MomName     string `json:"mom_name,omitempty"`
	MomPhotoURL string `json:"mom_photo_url,omitempty"`
}
