package worker_test

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storybook-service/internal/compositor"
	"storybook-service/internal/database"
	"storybook-service/internal/models"
	"storybook-service/internal/queue"
	"storybook-service/internal/worker"
)

type memoryStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: make(map[string][]byte)}
}

func (s *memoryStorage) Upload(path, contentType string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
	return "http://cdn/" + path, nil
}

func (s *memoryStorage) PublicURL(path string) string { return "http://cdn/" + path }

func (s *memoryStorage) Download(path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (s *memoryStorage) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
	return nil
}

type stubGenerator struct {
	err   error
	calls int
}

func (g *stubGenerator) GenerateCharacter(ctx context.Context, photoURL, promptSuffix string) ([]byte, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return smallPNG(color.NRGBA{R: 200, G: 100, B: 50, A: 255}), nil
}

type stubComposer struct{}

func (c *stubComposer) FetchImage(ctx context.Context, url string) (image.Image, error) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	return img, nil
}

func (c *stubComposer) ComposePage(template image.Image, placements []compositor.Placement) ([]byte, error) {
	return smallPNG(color.NRGBA{R: 10, G: 120, B: 10, A: 255}), nil
}

type failingComposer struct {
	stubComposer
}

func (c *failingComposer) ComposePage(template image.Image, placements []compositor.Placement) ([]byte, error) {
	return nil, errors.New("render failed")
}

func smallPNG(c color.NRGBA) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func seedOrder(t *testing.T, store database.Store, pages int) *models.Order {
	t.Helper()

	story := &models.Story{
		ID:    uuid.New(),
		Title: "The Space Adventure",
		Price: 19.99,
	}
	require.NoError(t, store.CreateStory(story))
	for i := 1; i <= pages; i++ {
		require.NoError(t, store.UpsertStoryPage(&models.StoryPage{
			ID:               uuid.New(),
			StoryID:          story.ID,
			PageNumber:       i,
			TemplateImageURL: fmt.Sprintf("http://cdn/stories/page_%d.png", i),
			FaceX:            380,
			FaceY:            125,
			FaceWidth:        385,
		}))
	}

	order := &models.Order{
		ID:        uuid.New(),
		Status:    models.OrderStatusPending,
		StoryID:   sql.NullString{String: story.ID.String(), Valid: true},
		ChildName: "Mia",
		PhotoURL:  "http://cdn/photos/mia.png",
	}
	require.NoError(t, store.CreateOrder(order))
	return order
}

func TestProcessOrder_Completes(t *testing.T) {
	store := database.NewMemoryStore()
	storageStore := newMemoryStorage()
	generator := &stubGenerator{}
	pool := worker.NewPool(store, storageStore, generator, &stubComposer{}, queue.NewMemoryQueue(1), 1)

	order := seedOrder(t, store, 4)

	require.NoError(t, pool.ProcessOrder(context.Background(), order.ID))

	got, err := store.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, got.Status)
	assert.True(t, got.CharacterAssetURL.Valid)
	assert.True(t, got.PDFURL.Valid)
	assert.Len(t, got.GeneratedPages, 4)
	assert.Equal(t, 1, generator.calls)

	// The PDF and every page PNG were stored.
	_, err = storageStore.Download(fmt.Sprintf("orders/%s/book.pdf", order.ID))
	assert.NoError(t, err)
	_, err = storageStore.Download(fmt.Sprintf("orders/%s/pages/page_1.png", order.ID))
	assert.NoError(t, err)
}

func TestProcessOrder_GeneratorFailureMarksFailed(t *testing.T) {
	store := database.NewMemoryStore()
	generator := &stubGenerator{err: errors.New("model unavailable")}
	pool := worker.NewPool(store, newMemoryStorage(), generator, &stubComposer{}, queue.NewMemoryQueue(1), 1)

	order := seedOrder(t, store, 2)

	err := pool.ProcessOrder(context.Background(), order.ID)
	require.Error(t, err)

	got, dbErr := store.GetOrder(order.ID)
	require.NoError(t, dbErr)
	assert.Equal(t, models.OrderStatusFailed, got.Status)
	assert.True(t, got.FailureReason.Valid)
	assert.Contains(t, got.FailureReason.String, "character generation failed")
}

func TestProcessOrder_FailureRemovesUploadedAssets(t *testing.T) {
	store := database.NewMemoryStore()
	storageStore := newMemoryStorage()
	pool := worker.NewPool(store, storageStore, &stubGenerator{}, &failingComposer{}, queue.NewMemoryQueue(1), 1)

	order := seedOrder(t, store, 2)

	err := pool.ProcessOrder(context.Background(), order.ID)
	require.Error(t, err)

	got, dbErr := store.GetOrder(order.ID)
	require.NoError(t, dbErr)
	assert.Equal(t, models.OrderStatusFailed, got.Status)

	// The character asset uploaded before the failure was removed.
	_, err = storageStore.Download(fmt.Sprintf("orders/%s/character.png", order.ID))
	assert.Error(t, err)
}

func TestProcessOrder_StoryWithoutPagesFails(t *testing.T) {
	store := database.NewMemoryStore()
	pool := worker.NewPool(store, newMemoryStorage(), &stubGenerator{}, &stubComposer{}, queue.NewMemoryQueue(1), 1)

	order := seedOrder(t, store, 0)

	err := pool.ProcessOrder(context.Background(), order.ID)
	require.Error(t, err)

	got, dbErr := store.GetOrder(order.ID)
	require.NoError(t, dbErr)
	assert.Equal(t, models.OrderStatusFailed, got.Status)
}

func TestRun_ConsumesQueuedJobs(t *testing.T) {
	store := database.NewMemoryStore()
	q := queue.NewMemoryQueue(4)
	pool := worker.NewPool(store, newMemoryStorage(), &stubGenerator{}, &stubComposer{}, q, 2)

	order := seedOrder(t, store, 1)
	require.NoError(t, q.Enqueue(context.Background(), queue.Job{OrderID: order.ID}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	require.Eventually(t, func() bool {
		got, err := store.GetOrder(order.ID)
		return err == nil && models.IsTerminalStatus(got.Status)
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	got, err := store.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, got.Status)
}
