package database

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"storybook-service/internal/models"
)

// MemoryStore keeps everything in process memory. It backs tests and
// development runs without a DATABASE_URL.
type MemoryStore struct {
	mu      sync.RWMutex
	stories map[uuid.UUID]*models.Story
	orders  map[uuid.UUID]*models.Order
	pages   map[uuid.UUID][]models.OrderPage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stories: make(map[uuid.UUID]*models.Story),
		orders:  make(map[uuid.UUID]*models.Order),
		pages:   make(map[uuid.UUID][]models.OrderPage),
	}
}

func (s *MemoryStore) CreateStory(story *models.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if story.CreatedAt.IsZero() {
		story.CreatedAt = time.Now().UTC()
	}
	cp := *story
	cp.Pages = append([]models.StoryPage(nil), story.Pages...)
	s.stories[story.ID] = &cp
	return nil
}

func (s *MemoryStore) GetStory(storyID uuid.UUID) (*models.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	story, ok := s.stories[storyID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *story
	cp.Pages = append([]models.StoryPage(nil), story.Pages...)
	return &cp, nil
}

func (s *MemoryStore) GetStoryByTitle(title string) (*models.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, story := range s.stories {
		if story.Title == title {
			cp := *story
			cp.Pages = append([]models.StoryPage(nil), story.Pages...)
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListStories() ([]models.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stories := make([]models.Story, 0, len(s.stories))
	for _, story := range s.stories {
		cp := *story
		cp.Pages = nil
		stories = append(stories, cp)
	}
	return stories, nil
}

func (s *MemoryStore) UpdateStory(story *models.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.stories[story.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Title = story.Title
	existing.Description = story.Description
	existing.CoverImageURL = story.CoverImageURL
	existing.Price = story.Price
	existing.RequiresSecondCharacter = story.RequiresSecondCharacter
	return nil
}

func (s *MemoryStore) UpsertStoryPage(page *models.StoryPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	story, ok := s.stories[page.StoryID]
	if !ok {
		return ErrNotFound
	}
	if page.ID == uuid.Nil {
		page.ID = uuid.New()
	}
	for i := range story.Pages {
		if story.Pages[i].PageNumber == page.PageNumber {
			story.Pages[i] = *page
			return nil
		}
	}
	story.Pages = append(story.Pages, *page)
	return nil
}

func (s *MemoryStore) CreateOrder(order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	cp := *order
	s.orders[order.ID] = &cp
	return nil
}

func (s *MemoryStore) GetOrder(orderID uuid.UUID) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *order
	cp.GeneratedPages = append([]models.OrderPage(nil), s.pages[orderID]...)
	return &cp, nil
}

func (s *MemoryStore) ListOrders(limit, offset int) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]models.Order, 0, len(s.orders))
	for _, order := range s.orders {
		orders = append(orders, *order)
	}
	if offset >= len(orders) {
		return nil, nil
	}
	orders = orders[offset:]
	if limit > 0 && limit < len(orders) {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *MemoryStore) UpdateOrderStatus(orderID uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	return nil
}

func (s *MemoryStore) UpdateOrderCharacterAsset(orderID uuid.UUID, assetURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	order.CharacterAssetURL.String = assetURL
	order.CharacterAssetURL.Valid = true
	return nil
}

func (s *MemoryStore) UpdateOrderPDF(orderID uuid.UUID, pdfURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	order.PDFURL.String = pdfURL
	order.PDFURL.Valid = true
	return nil
}

func (s *MemoryStore) UpdateOrderFailure(orderID uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	order.Status = models.OrderStatusFailed
	order.FailureReason.String = reason
	order.FailureReason.Valid = true
	return nil
}

func (s *MemoryStore) CreateOrderPage(page *models.OrderPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[page.OrderID]; !ok {
		return ErrNotFound
	}
	if page.ID == uuid.Nil {
		page.ID = uuid.New()
	}
	s.pages[page.OrderID] = append(s.pages[page.OrderID], *page)
	return nil
}

func (s *MemoryStore) GetOrderPages(orderID uuid.UUID) ([]models.OrderPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.OrderPage(nil), s.pages[orderID]...), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
