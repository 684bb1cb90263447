package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"storybook-service/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreateStory(story *models.Story) error {
	err := s.db.QueryRow(`
		INSERT INTO stories (id, title, description, cover_image_url, price, requires_second_character)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, story.ID, story.Title, story.Description, story.CoverImageURL, story.Price,
		story.RequiresSecondCharacter).Scan(&story.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create story: %w", err)
	}

	for i := range story.Pages {
		if err := s.UpsertStoryPage(&story.Pages[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) GetStory(storyID uuid.UUID) (*models.Story, error) {
	var story models.Story
	err := s.db.QueryRow(`
		SELECT id, title, description, cover_image_url, price, requires_second_character, created_at
		FROM stories
		WHERE id = $1
	`, storyID).Scan(
		&story.ID, &story.Title, &story.Description, &story.CoverImageURL,
		&story.Price, &story.RequiresSecondCharacter, &story.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get story: %w", err)
	}

	pages, err := s.getStoryPages(storyID)
	if err != nil {
		return nil, err
	}
	story.Pages = pages

	return &story, nil
}

func (s *PostgresStore) GetStoryByTitle(title string) (*models.Story, error) {
	var storyID uuid.UUID
	err := s.db.QueryRow(`SELECT id FROM stories WHERE title = $1`, title).Scan(&storyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get story by title: %w", err)
	}
	return s.GetStory(storyID)
}

func (s *PostgresStore) ListStories() ([]models.Story, error) {
	rows, err := s.db.Query(`
		SELECT id, title, description, cover_image_url, price, requires_second_character, created_at
		FROM stories
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	defer rows.Close()

	var stories []models.Story
	for rows.Next() {
		var story models.Story
		err := rows.Scan(
			&story.ID, &story.Title, &story.Description, &story.CoverImageURL,
			&story.Price, &story.RequiresSecondCharacter, &story.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		stories = append(stories, story)
	}

	return stories, rows.Err()
}

func (s *PostgresStore) UpdateStory(story *models.Story) error {
	_, err := s.db.Exec(`
		UPDATE stories
		SET title = $1, description = $2, cover_image_url = $3, price = $4, requires_second_character = $5
		WHERE id = $6
	`, story.Title, story.Description, story.CoverImageURL, story.Price,
		story.RequiresSecondCharacter, story.ID)
	if err != nil {
		return fmt.Errorf("failed to update story: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertStoryPage(page *models.StoryPage) error {
	if page.ID == uuid.Nil {
		page.ID = uuid.New()
	}
	_, err := s.db.Exec(`
		INSERT INTO story_pages (id, story_id, page_number, template_image_url, face_x, face_y, face_width, face_angle)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (story_id, page_number) DO UPDATE
		SET template_image_url = EXCLUDED.template_image_url,
		    face_x = EXCLUDED.face_x,
		    face_y = EXCLUDED.face_y,
		    face_width = EXCLUDED.face_width,
		    face_angle = EXCLUDED.face_angle
	`, page.ID, page.StoryID, page.PageNumber, page.TemplateImageURL,
		page.FaceX, page.FaceY, page.FaceWidth, page.FaceAngle)
	if err != nil {
		return fmt.Errorf("failed to upsert story page: %w", err)
	}
	return nil
}

func (s *PostgresStore) getStoryPages(storyID uuid.UUID) ([]models.StoryPage, error) {
	rows, err := s.db.Query(`
		SELECT id, story_id, page_number, template_image_url, face_x, face_y, face_width, face_angle
		FROM story_pages
		WHERE story_id = $1
		ORDER BY page_number ASC
	`, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get story pages: %w", err)
	}
	defer rows.Close()

	var pages []models.StoryPage
	for rows.Next() {
		var page models.StoryPage
		err := rows.Scan(
			&page.ID, &page.StoryID, &page.PageNumber, &page.TemplateImageURL,
			&page.FaceX, &page.FaceY, &page.FaceWidth, &page.FaceAngle,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan story page: %w", err)
		}
		pages = append(pages, page)
	}

	return pages, rows.Err()
}

func (s *PostgresStore) CreateOrder(order *models.Order) error {
	err := s.db.QueryRow(`
		INSERT INTO orders (id, status, story_id, child_name, photo_url, mom_name, mom_photo_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, order.ID, order.Status, order.StoryID, order.ChildName, order.PhotoURL,
		order.MomName, order.MomPhotoURL).Scan(&order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOrder(orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.QueryRow(`
		SELECT id, status, story_id, child_name, photo_url, mom_name, mom_photo_url,
		       character_asset_url, pdf_url, failure_reason, created_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(
		&order.ID, &order.Status, &order.StoryID, &order.ChildName, &order.PhotoURL,
		&order.MomName, &order.MomPhotoURL, &order.CharacterAssetURL,
		&order.PDFURL, &order.FailureReason, &order.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	pages, err := s.GetOrderPages(orderID)
	if err != nil {
		return nil, err
	}
	order.GeneratedPages = pages

	return &order, nil
}

func (s *PostgresStore) ListOrders(limit, offset int) ([]models.Order, error) {
	rows, err := s.db.Query(`
		SELECT id, status, story_id, child_name, photo_url, mom_name, mom_photo_url,
		       character_asset_url, pdf_url, failure_reason, created_at
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID, &order.Status, &order.StoryID, &order.ChildName, &order.PhotoURL,
			&order.MomName, &order.MomPhotoURL, &order.CharacterAssetURL,
			&order.PDFURL, &order.FailureReason, &order.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

func (s *PostgresStore) UpdateOrderStatus(orderID uuid.UUID, status string) error {
	_, err := s.db.Exec(`
		UPDATE orders
		SET status = $1
		WHERE id = $2
	`, status, orderID)
	return err
}

func (s *PostgresStore) UpdateOrderCharacterAsset(orderID uuid.UUID, assetURL string) error {
	_, err := s.db.Exec(`
		UPDATE orders
		SET character_asset_url = $1
		WHERE id = $2
	`, assetURL, orderID)
	return err
}

func (s *PostgresStore) UpdateOrderPDF(orderID uuid.UUID, pdfURL string) error {
	_, err := s.db.Exec(`
		UPDATE orders
		SET pdf_url = $1
		WHERE id = $2
	`, pdfURL, orderID)
	return err
}

func (s *PostgresStore) UpdateOrderFailure(orderID uuid.UUID, reason string) error {
	_, err := s.db.Exec(`
		UPDATE orders
		SET status = $1, failure_reason = $2
		WHERE id = $3
	`, models.OrderStatusFailed, reason, orderID)
	return err
}

func (s *PostgresStore) CreateOrderPage(page *models.OrderPage) error {
	if page.ID == uuid.Nil {
		page.ID = uuid.New()
	}
	_, err := s.db.Exec(`
		INSERT INTO order_pages (id, order_id, page_number, image_url)
		VALUES ($1, $2, $3, $4)
	`, page.ID, page.OrderID, page.PageNumber, page.ImageURL)
	if err != nil {
		return fmt.Errorf("failed to create order page: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOrderPages(orderID uuid.UUID) ([]models.OrderPage, error) {
	rows, err := s.db.Query(`
		SELECT id, order_id, page_number, image_url
		FROM order_pages
		WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order pages: %w", err)
	}
	defer rows.Close()

	var pages []models.OrderPage
	for rows.Next() {
		var page models.OrderPage
		if err := rows.Scan(&page.ID, &page.OrderID, &page.PageNumber, &page.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan order page: %w", err)
		}
		pages = append(pages, page)
	}

	return pages, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
