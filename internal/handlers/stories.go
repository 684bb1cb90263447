package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storybook-service/internal/database"
	"storybook-service/internal/models"
	"storybook-service/internal/storage"
)

type StoriesHandler struct {
	store   database.Store
	storage storage.Store
}

func NewStoriesHandler(store database.Store, storageStore storage.Store) *StoriesHandler {
	return &StoriesHandler{
		store:   store,
		storage: storageStore,
	}
}

// ListStories returns the story catalog, pages included.
func (h *StoriesHandler) ListStories(c *gin.Context) {
	stories, err := h.store.ListStories()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "failed to load stories"})
		return
	}

	responses := make([]models.StoryResponse, 0, len(stories))
	for i := range stories {
		responses = append(responses, models.NewStoryResponse(&stories[i]))
	}
	c.JSON(http.StatusOK, responses)
}

func (h *StoriesHandler) GetStory(c *gin.Context) {
	storyID, err := uuid.Parse(c.Param("story_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "invalid story id"})
		return
	}

	story, err := h.store.GetStory(storyID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Detail: "Story not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "failed to load story"})
		return
	}

	c.JSON(http.StatusOK, models.NewStoryResponse(story))
}

type storyPageSpec struct {
	PageNumber int     `json:"page_number"`
	FaceX      int     `json:"face_x"`
	FaceY      int     `json:"face_y"`
	FaceWidth  int     `json:"face_width"`
	FaceAngle  float64 `json:"face_angle"`
}

// CreateStory accepts a multipart form with the story fields, a cover
// image, and one template image per page. pages_json carries the face
// slot for each page, in page order.
func (h *StoriesHandler) CreateStory(c *gin.Context) {
	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "title is required"})
		return
	}

	price, err := strconv.ParseFloat(c.PostForm("price"), 64)
	if err != nil || price < 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "invalid price"})
		return
	}

	var pageSpecs []storyPageSpec
	if raw := c.PostForm("pages_json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &pageSpecs); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "invalid pages_json"})
			return
		}
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "invalid multipart form"})
		return
	}
	pageFiles := form.File["page_images"]
	if len(pageFiles) != len(pageSpecs) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Detail: fmt.Sprintf("pages_json describes %d pages but %d page images were uploaded", len(pageSpecs), len(pageFiles)),
		})
		return
	}

	story := &models.Story{
		ID:                      uuid.New(),
		Title:                   title,
		Price:                   price,
		RequiresSecondCharacter: c.PostForm("requires_second_character") == "true",
	}
	if desc := c.PostForm("description"); desc != "" {
		story.Description = sql.NullString{String: desc, Valid: true}
	}

	if covers := form.File["cover_image"]; len(covers) > 0 {
		url, err := h.storeTemplate(covers[0], fmt.Sprintf("stories/%s/cover%s", story.ID, safeExt(covers[0].Filename)))
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "failed to store cover image"})
			return
		}
		story.CoverImageURL = sql.NullString{String: url, Valid: true}
	}

	if err := h.store.CreateStory(story); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "failed to create story"})
		return
	}

	for i, spec := range pageSpecs {
		url, err := h.storeTemplate(pageFiles[i], fmt.Sprintf("stories/%s/page_%d%s", story.ID, spec.PageNumber, safeExt(pageFiles[i].Filename)))
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: fmt.Sprintf("failed to store page %d", spec.PageNumber)})
			return
		}
		page := &models.StoryPage{
			ID:               uuid.New(),
			StoryID:          story.ID,
			PageNumber:       spec.PageNumber,
			TemplateImageURL: url,
			FaceX:            spec.FaceX,
			FaceY:            spec.FaceY,
			FaceWidth:        spec.FaceWidth,
			FaceAngle:        spec.FaceAngle,
		}
		if err := h.store.UpsertStoryPage(page); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: fmt.Sprintf("failed to save page %d", spec.PageNumber)})
			return
		}
		story.Pages = append(story.Pages, *page)
	}

	c.JSON(http.StatusCreated, models.NewStoryResponse(story))
}

type updateStoryRequest struct {
	Title                   *string         `json:"title"`
	Description             *string         `json:"description"`
	Price                   *float64        `json:"price"`
	RequiresSecondCharacter *bool           `json:"requires_second_character"`
	Pages                   []storyPageSpec `json:"pages"`
}

// UpdateStory applies a partial update to a story. Page entries adjust
// the face slot of an existing page; template images are not replaced
// here.
func (h *StoriesHandler) UpdateStory(c *gin.Context) {
	storyID, err := uuid.Parse(c.Param("story_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "invalid story id"})
		return
	}

	story, err := h.store.GetStory(storyID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Detail: "Story not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "failed to load story"})
		return
	}

	var req updateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "invalid request body"})
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "title cannot be empty"})
			return
		}
		story.Title = title
	}
	if req.Description != nil {
		story.Description = sql.NullString{String: *req.Description, Valid: *req.Description != ""}
	}
	if req.Price != nil {
		if *req.Price < 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "invalid price"})
			return
		}
		story.Price = *req.Price
	}
	if req.RequiresSecondCharacter != nil {
		story.RequiresSecondCharacter = *req.RequiresSecondCharacter
	}

	if err := h.store.UpdateStory(story); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "failed to update story"})
		return
	}

	for _, spec := range req.Pages {
		var page *models.StoryPage
		for i := range story.Pages {
			if story.Pages[i].PageNumber == spec.PageNumber {
				page = &story.Pages[i]
				break
			}
		}
		if page == nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Detail: fmt.Sprintf("story has no page %d", spec.PageNumber),
			})
			return
		}
		page.FaceX = spec.FaceX
		page.FaceY = spec.FaceY
		page.FaceWidth = spec.FaceWidth
		page.FaceAngle = spec.FaceAngle
		if err := h.store.UpsertStoryPage(page); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: fmt.Sprintf("failed to update page %d", spec.PageNumber)})
			return
		}
	}

	updated, err := h.store.GetStory(storyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "failed to load story"})
		return
	}
	c.JSON(http.StatusOK, models.NewStoryResponse(updated))
}

const seedStoryTitle = "The Space Adventure"

// SeedStories installs the demo story. Running it again refreshes the
// existing story in place instead of duplicating it.
func (h *StoriesHandler) SeedStories(c *gin.Context) {
	story, err := h.store.GetStoryByTitle(seedStoryTitle)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "failed to check existing stories"})
			return
		}
		story = &models.Story{
			ID:          uuid.New(),
			Title:       seedStoryTitle,
			Description: sql.NullString{String: "Join your child on a journey through the stars.", Valid: true},
			Price:       19.99,
		}
		if err := h.store.CreateStory(story); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "failed to create seed story"})
			return
		}
	}

	for pageNum := 1; pageNum <= 4; pageNum++ {
		page := &models.StoryPage{
			ID:               uuid.New(),
			StoryID:          story.ID,
			PageNumber:       pageNum,
			TemplateImageURL: h.storage.PublicURL(fmt.Sprintf("stories/space-adventure/page_%d.png", pageNum)),
			FaceX:            380,
			FaceY:            125,
			FaceWidth:        385,
			FaceAngle:        0,
		}
		if err := h.store.UpsertStoryPage(page); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: fmt.Sprintf("failed to seed page %d", pageNum)})
			return
		}
	}

	c.JSON(http.StatusOK, models.SeedResponse{
		Message: "Stories seeded successfully",
		StoryID: story.ID.String(),
	})
}

func (h *StoriesHandler) storeTemplate(file *multipart.FileHeader, path string) (string, error) {
	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return h.storage.Upload(path, contentType, data)
}

func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png":
		return ext
	default:
		return ".png"
	}
}
