package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Story is a purchasable book template. Pages carry the face slot each
// generated character is composited into.
type Story struct {
	ID                      uuid.UUID
	Title                   string
	Description             sql.NullString
	CoverImageURL           sql.NullString
	Price                   float64
	RequiresSecondCharacter bool
	CreatedAt               time.Time
	Pages                   []StoryPage
}

type StoryPage struct {
	ID               uuid.UUID
	StoryID          uuid.UUID
	PageNumber       int
	TemplateImageURL string
	FaceX            int
	FaceY            int
	FaceWidth        int
	FaceAngle        float64
}
