package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storybook-service/internal/database"
	"storybook-service/internal/handlers"
	"storybook-service/internal/models"
)

// fakeStorage records uploads and produces deterministic URLs.
type fakeStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{files: make(map[string][]byte)}
}

func (s *fakeStorage) Upload(path, contentType string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
	return "http://cdn/" + path, nil
}

func (s *fakeStorage) PublicURL(path string) string { return "http://cdn/" + path }

func (s *fakeStorage) Download(path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (s *fakeStorage) Delete(path string) error { return nil }

func storiesRouter(store database.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewStoriesHandler(store, newFakeStorage())
	router := gin.New()
	router.GET("/api/v1/stories", handler.ListStories)
	router.GET("/api/v1/stories/:story_id", handler.GetStory)
	router.PUT("/api/v1/stories/:story_id", handler.UpdateStory)
	router.POST("/api/v1/stories/seed", handler.SeedStories)
	return router
}

func TestSeedStories_CreatesDemoStory(t *testing.T) {
	store := database.NewMemoryStore()
	router := storiesRouter(store)

	req, _ := http.NewRequest("POST", "/api/v1/stories/seed", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var seed models.SeedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &seed))

	story, err := store.GetStory(uuid.MustParse(seed.StoryID))
	require.NoError(t, err)
	assert.Equal(t, "The Space Adventure", story.Title)
	assert.Equal(t, 19.99, story.Price)
	require.Len(t, story.Pages, 4)
	for i, page := range story.Pages {
		assert.Equal(t, i+1, page.PageNumber)
		assert.Equal(t, 380, page.FaceX)
		assert.Equal(t, 125, page.FaceY)
		assert.Equal(t, 385, page.FaceWidth)
	}
}

func TestSeedStories_Idempotent(t *testing.T) {
	store := database.NewMemoryStore()
	router := storiesRouter(store)

	var first, second models.SeedResponse
	for _, out := range []*models.SeedResponse{&first, &second} {
		req, _ := http.NewRequest("POST", "/api/v1/stories/seed", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}

	assert.Equal(t, first.StoryID, second.StoryID)

	stories, err := store.ListStories()
	require.NoError(t, err)
	assert.Len(t, stories, 1)
}

func TestUpdateStory_UpdatesFieldsAndPageSlots(t *testing.T) {
	store := database.NewMemoryStore()
	story := &models.Story{ID: uuid.New(), Title: "Old Title", Price: 19.99}
	require.NoError(t, store.CreateStory(story))
	require.NoError(t, store.UpsertStoryPage(&models.StoryPage{
		StoryID:          story.ID,
		PageNumber:       1,
		TemplateImageURL: "http://cdn/stories/page_1.png",
		FaceX:            380,
		FaceY:            125,
		FaceWidth:        385,
	}))
	router := storiesRouter(store)

	body := `{"title":"New Title","price":24.99,"requires_second_character":true,` +
		`"pages":[{"page_number":1,"face_x":400,"face_y":150,"face_width":300,"face_angle":5}]}`
	req, _ := http.NewRequest("PUT", "/api/v1/stories/"+story.ID.String(), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	updated, err := store.GetStory(story.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, 24.99, updated.Price)
	assert.True(t, updated.RequiresSecondCharacter)
	require.Len(t, updated.Pages, 1)
	assert.Equal(t, 400, updated.Pages[0].FaceX)
	assert.Equal(t, 150, updated.Pages[0].FaceY)
	assert.Equal(t, 300, updated.Pages[0].FaceWidth)
	assert.Equal(t, 5.0, updated.Pages[0].FaceAngle)
	// The template image stays untouched on a slot update.
	assert.Equal(t, "http://cdn/stories/page_1.png", updated.Pages[0].TemplateImageURL)
}

func TestUpdateStory_RejectsUnknownPage(t *testing.T) {
	store := database.NewMemoryStore()
	story := &models.Story{ID: uuid.New(), Title: "A Story", Price: 19.99}
	require.NoError(t, store.CreateStory(story))
	router := storiesRouter(store)

	body := `{"pages":[{"page_number":7,"face_x":1,"face_y":2,"face_width":3,"face_angle":0}]}`
	req, _ := http.NewRequest("PUT", "/api/v1/stories/"+story.ID.String(), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no page 7")
}

func TestUpdateStory_NotFound(t *testing.T) {
	router := storiesRouter(database.NewMemoryStore())

	req, _ := http.NewRequest("PUT", "/api/v1/stories/"+uuid.NewString(), strings.NewReader(`{"title":"X"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStory_NotFound(t *testing.T) {
	router := storiesRouter(database.NewMemoryStore())

	req, _ := http.NewRequest("GET", "/api/v1/stories/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"detail"`)
}

func TestListStories_IncludesSecondCharacterFlag(t *testing.T) {
	store := database.NewMemoryStore()
	require.NoError(t, store.CreateStory(&models.Story{
		ID:                      uuid.New(),
		Title:                   "A Day With Mom",
		Price:                   24.99,
		RequiresSecondCharacter: true,
	}))
	router := storiesRouter(store)

	req, _ := http.NewRequest("GET", "/api/v1/stories", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var stories []models.StoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stories))
	require.Len(t, stories, 1)
	assert.True(t, stories[0].RequiresSecondCharacter)
}
