package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log"

	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"storybook-service/internal/compositor"
	"storybook-service/internal/database"
	"storybook-service/internal/imagegen"
	"storybook-service/internal/models"
	"storybook-service/internal/queue"
	"storybook-service/internal/storage"
)

// PageComposer is the subset of the compositor the pipeline needs.
type PageComposer interface {
	FetchImage(ctx context.Context, url string) (image.Image, error)
	ComposePage(template image.Image, placements []compositor.Placement) ([]byte, error)
}

// Pool runs order generation jobs pulled from the queue.
type Pool struct {
	store     database.Store
	storage   storage.Store
	generator imagegen.Generator
	composer  PageComposer
	queue     queue.Queue
	workers   int
}

func NewPool(store database.Store, storageStore storage.Store, generator imagegen.Generator, composer PageComposer, q queue.Queue, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		store:     store,
		storage:   storageStore,
		generator: generator,
		composer:  composer,
		queue:     q,
		workers:   workers,
	}
}

// Run consumes jobs until the context is canceled.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		worker := i + 1
		g.Go(func() error {
			for {
				job, err := p.queue.Dequeue(ctx)
				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, queue.ErrClosed) {
						return nil
					}
					return err
				}
				log.Printf("worker %d: processing order %s", worker, job.OrderID)
				if err := p.ProcessOrder(ctx, job.OrderID); err != nil {
					log.Printf("worker %d: order %s failed: %v", worker, job.OrderID, err)
				}
			}
		})
	}
	return g.Wait()
}

// ProcessOrder runs the full generation pipeline for one order. Any error
// moves the order to FAILED with the reason recorded and removes the
// assets uploaded so far.
func (p *Pool) ProcessOrder(ctx context.Context, orderID uuid.UUID) error {
	var uploaded []string
	if err := p.processOrder(ctx, orderID, &uploaded); err != nil {
		p.cleanupAssets(orderID, uploaded)
		if dbErr := p.store.UpdateOrderFailure(orderID, err.Error()); dbErr != nil {
			log.Printf("failed to record failure for order %s: %v", orderID, dbErr)
		}
		return err
	}
	return nil
}

func (p *Pool) cleanupAssets(orderID uuid.UUID, paths []string) {
	for _, path := range paths {
		if err := p.storage.Delete(path); err != nil {
			log.Printf("failed to remove %s for order %s: %v", path, orderID, err)
		}
	}
}

func (p *Pool) processOrder(ctx context.Context, orderID uuid.UUID, uploaded *[]string) error {
	order, err := p.store.GetOrder(orderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}

	if err := p.store.UpdateOrderStatus(orderID, models.OrderStatusProcessing); err != nil {
		return fmt.Errorf("failed to mark order processing: %w", err)
	}

	if !order.StoryID.Valid {
		return fmt.Errorf("order has no story")
	}
	storyID, err := uuid.Parse(order.StoryID.String)
	if err != nil {
		return fmt.Errorf("invalid story id: %w", err)
	}
	story, err := p.store.GetStory(storyID)
	if err != nil {
		return fmt.Errorf("failed to load story: %w", err)
	}
	if len(story.Pages) == 0 {
		return fmt.Errorf("story %q has no pages", story.Title)
	}

	childChar, err := p.generateCharacter(ctx, orderID, order.PhotoURL, "character.png", uploaded)
	if err != nil {
		return err
	}

	var momChar image.Image
	if story.RequiresSecondCharacter && order.MomPhotoURL.Valid {
		momChar, err = p.generateCharacter(ctx, orderID, order.MomPhotoURL.String, "character_mom.png", uploaded)
		if err != nil {
			return err
		}
	}

	pagePNGs := make([][]byte, 0, len(story.Pages))
	for _, page := range story.Pages {
		rendered, err := p.composePage(ctx, page, childChar, momChar)
		if err != nil {
			return fmt.Errorf("failed to compose page %d: %w", page.PageNumber, err)
		}

		path := fmt.Sprintf("orders/%s/pages/page_%d.png", orderID, page.PageNumber)
		url, err := p.storage.Upload(path, "image/png", rendered)
		if err != nil {
			return fmt.Errorf("failed to upload page %d: %w", page.PageNumber, err)
		}
		*uploaded = append(*uploaded, path)
		if err := p.store.CreateOrderPage(&models.OrderPage{
			ID:         uuid.New(),
			OrderID:    orderID,
			PageNumber: page.PageNumber,
			ImageURL:   url,
		}); err != nil {
			return fmt.Errorf("failed to save page %d: %w", page.PageNumber, err)
		}
		pagePNGs = append(pagePNGs, rendered)
	}

	pdfData, err := assembleBookPDF(pagePNGs)
	if err != nil {
		return err
	}
	pdfPath := fmt.Sprintf("orders/%s/book.pdf", orderID)
	pdfURL, err := p.storage.Upload(pdfPath, "application/pdf", pdfData)
	if err != nil {
		return fmt.Errorf("failed to upload pdf: %w", err)
	}
	*uploaded = append(*uploaded, pdfPath)
	if err := p.store.UpdateOrderPDF(orderID, pdfURL); err != nil {
		return fmt.Errorf("failed to save pdf url: %w", err)
	}

	if err := p.store.UpdateOrderStatus(orderID, models.OrderStatusCompleted); err != nil {
		return fmt.Errorf("failed to mark order completed: %w", err)
	}
	log.Printf("order %s completed with %d pages", orderID, len(pagePNGs))
	return nil
}

// generateCharacter produces a character asset from a photo, stores it,
// and returns the decoded image for compositing. The first generated
// asset is recorded on the order.
func (p *Pool) generateCharacter(ctx context.Context, orderID uuid.UUID, photoURL, filename string, uploaded *[]string) (image.Image, error) {
	data, err := p.generator.GenerateCharacter(ctx, photoURL, "")
	if err != nil {
		return nil, fmt.Errorf("character generation failed: %w", err)
	}

	path := fmt.Sprintf("orders/%s/%s", orderID, filename)
	url, err := p.storage.Upload(path, "image/png", data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload character asset: %w", err)
	}
	*uploaded = append(*uploaded, path)
	if filename == "character.png" {
		if err := p.store.UpdateOrderCharacterAsset(orderID, url); err != nil {
			return nil, fmt.Errorf("failed to save character asset url: %w", err)
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode generated character: %w", err)
	}
	return img, nil
}

func (p *Pool) composePage(ctx context.Context, page models.StoryPage, childChar, momChar image.Image) ([]byte, error) {
	template, err := p.composer.FetchImage(ctx, page.TemplateImageURL)
	if err != nil {
		return nil, err
	}

	placements := []compositor.Placement{{
		Character: childChar,
		X:         page.FaceX,
		Y:         page.FaceY,
		Width:     page.FaceWidth,
		Angle:     page.FaceAngle,
	}}
	if momChar != nil {
		// Second character sits beside the child in the same slot row.
		placements = append(placements, compositor.Placement{
			Character: momChar,
			X:         page.FaceX + page.FaceWidth,
			Y:         page.FaceY,
			Width:     page.FaceWidth,
			Angle:     page.FaceAngle,
		})
	}

	return p.composer.ComposePage(template, placements)
}
