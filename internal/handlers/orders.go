package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storybook-service/internal/database"
	"storybook-service/internal/models"
	"storybook-service/internal/queue"
	"storybook-service/internal/storage"
)

type OrdersHandler struct {
	store   database.Store
	storage storage.Store
	queue   queue.Queue
}

func NewOrdersHandler(store database.Store, storageStore storage.Store, q queue.Queue) *OrdersHandler {
	return &OrdersHandler{
		store:   store,
		storage: storageStore,
		queue:   q,
	}
}

// CreateOrder validates the order form, persists the order as PENDING,
// and hands it to the generation workers.
func (h *OrdersHandler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "child_name and photo_url are required"})
		return
	}

	story, err := h.resolveStory(req.StoryID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Detail: "Story not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "failed to load story"})
		return
	}

	if story.RequiresSecondCharacter && (req.MomName == "" || req.MomPhotoURL == "") {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Detail: "This story requires a second character: mom_name and mom_photo_url must be provided",
		})
		return
	}

	order := &models.Order{
		ID:        uuid.New(),
		Status:    models.OrderStatusPending,
		StoryID:   sql.NullString{String: story.ID.String(), Valid: true},
		ChildName: req.ChildName,
		PhotoURL:  req.PhotoURL,
	}
	if story.RequiresSecondCharacter {
		order.MomName = sql.NullString{String: req.MomName, Valid: true}
		order.MomPhotoURL = sql.NullString{String: req.MomPhotoURL, Valid: true}
	}

	if err := h.store.CreateOrder(order); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "failed to create order"})
		return
	}

	if err := h.queue.Enqueue(c.Request.Context(), queue.Job{OrderID: order.ID}); err != nil {
		log.Printf("failed to enqueue order %s: %v", order.ID, err)
		if dbErr := h.store.UpdateOrderFailure(order.ID, "failed to queue generation job"); dbErr != nil {
			log.Printf("failed to record failure for order %s: %v", order.ID, dbErr)
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "failed to queue generation job"})
		return
	}

	c.JSON(http.StatusCreated, models.NewOrderResponse(order))
}

// GetOrder reports the order's current status. Polled by clients until
// the order reaches a terminal status.
func (h *OrdersHandler) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "invalid order id"})
		return
	}

	order, err := h.store.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Detail: "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "failed to load order"})
		return
	}

	c.JSON(http.StatusOK, models.NewOrderResponse(order))
}

// DownloadBook streams the assembled PDF for a completed order.
func (h *OrdersHandler) DownloadBook(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "invalid order id"})
		return
	}

	order, err := h.store.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Detail: "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "failed to load order"})
		return
	}

	if order.Status != models.OrderStatusCompleted || !order.PDFURL.Valid {
		c.JSON(http.StatusConflict, models.ErrorResponse{Detail: "Book is not ready yet"})
		return
	}

	data, err := h.storage.Download(fmt.Sprintf("orders/%s/book.pdf", orderID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "failed to load book file"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "book_"+orderID.String()+".pdf"))
	c.Data(http.StatusOK, "application/pdf", data)
}

// ListOrders is the admin view over recent orders.
func (h *OrdersHandler) ListOrders(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	orders, err := h.store.ListOrders(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "failed to load orders"})
		return
	}

	responses := make([]models.OrderResponse, 0, len(orders))
	for i := range orders {
		responses = append(responses, models.NewOrderResponse(&orders[i]))
	}
	c.JSON(http.StatusOK, responses)
}

// resolveStory falls back to the seeded story when the request does not
// name one, so demo clients can order without browsing the catalog.
func (h *OrdersHandler) resolveStory(storyID string) (*models.Story, error) {
	if storyID != "" {
		id, err := uuid.Parse(storyID)
		if err != nil {
			return nil, database.ErrNotFound
		}
		return h.store.GetStory(id)
	}

	if story, err := h.store.GetStoryByTitle(seedStoryTitle); err == nil {
		return story, nil
	}

	stories, err := h.store.ListStories()
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return nil, database.ErrNotFound
	}
	return h.store.GetStory(stories[0].ID)
}
