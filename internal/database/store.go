package database

import (
	"errors"

	"github.com/google/uuid"
	"storybook-service/internal/models"
)

// ErrNotFound is returned when a story or order does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence surface the handlers and worker depend on.
// Postgres backs it in deployments; the memory implementation backs tests
// and DATABASE_URL-less development runs.
type Store interface {
	CreateStory(story *models.Story) error
	GetStory(storyID uuid.UUID) (*models.Story, error)
	GetStoryByTitle(title string) (*models.Story, error)
	ListStories() ([]models.Story, error)
	UpdateStory(story *models.Story) error
	UpsertStoryPage(page *models.StoryPage) error

	CreateOrder(order *models.Order) error
	GetOrder(orderID uuid.UUID) (*models.Order, error)
	ListOrders(limit, offset int) ([]models.Order, error)
	UpdateOrderStatus(orderID uuid.UUID, status string) error
	UpdateOrderCharacterAsset(orderID uuid.UUID, assetURL string) error
	UpdateOrderPDF(orderID uuid.UUID, pdfURL string) error
	UpdateOrderFailure(orderID uuid.UUID, reason string) error
	CreateOrderPage(page *models.OrderPage) error
	GetOrderPages(orderID uuid.UUID) ([]models.OrderPage, error)

	Close() error
}
