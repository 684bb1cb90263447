package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Order lifecycle. Transitions only move forward:
// PENDING -> PROCESSING -> COMPLETED | FAILED.
const (
	OrderStatusPending    = "PENDING"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusCompleted  = "COMPLETED"
	OrderStatusFailed     = "FAILED"
)

// IsTerminalStatus reports whether no further transition can occur.
func IsTerminalStatus(status string) bool {
	return status == OrderStatusCompleted || status == OrderStatusFailed
}

type Order struct {
	ID                uuid.UUID
	Status            string
	StoryID           sql.NullString
	ChildName         string
	PhotoURL          string
	MomName           sql.NullString
	MomPhotoURL       sql.NullString
	CharacterAssetURL sql.NullString
	PDFURL            sql.NullString
	FailureReason     sql.NullString
	CreatedAt         time.Time
	GeneratedPages    []OrderPage
}

// OrderPage is one generated page of a completed (or in-flight) order.
type OrderPage struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	PageNumber int
	ImageURL   string
}
