package book

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"minilibrary-session-svc/src/internal/config"
	"minilibrary-session-svc/src/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Handler interface {
	CreateBook(c *gin.Context)
	GetBook(c *gin.Context)
	ListBooks(c *gin.Context)
	UpdateProgress(c *gin.Context)
	UpdateStatus(c *gin.Context)
	SetGoal(c *gin.Context)
	GoalProgress(c *gin.Context)
	DeleteBook(c *gin.Context)
}

type handler struct {
	config  *config.Configuration
	service Service
}

func NewHandler(cfg *config.Configuration, service Service) Handler {
	return &handler{
		config:  cfg,
		service: service,
	}
}

type updateProgressRequest struct {
	CurrentPage *int `json:"currentPage" binding:"required"`
}

type updateStatusRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

type setGoalRequest struct {
	Type  *string `json:"type"`
	Pages *int    `json:"pages"`
}

func (h *handler) CreateBook(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := c.GetString("user_id")

	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	book, err := h.service.CreateBook(ctx, userID, &req)
	if err != nil {
		h.handleBookError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    book,
		"message": "Book created successfully",
	})
}

func (h *handler) GetBook(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := c.GetString("user_id")

	bookID, ok := h.parseBookID(c)
	if !ok {
		return
	}

	book, err := h.service.GetBook(ctx, userID, bookID)
	if err != nil {
		h.handleBookError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    book,
		"message": "Book retrieved successfully",
	})
}

func (h *handler) ListBooks(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := c.GetString("user_id")
	page := parseIntParam(c, "page", 1)
	limit := parseIntParam(c, "limit", 20)

	response, err := h.service.ListBooks(ctx, userID, page, limit)
	if err != nil {
		h.handleBookError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    response,
		"message": "Books retrieved successfully",
	})
}

func (h *handler) UpdateProgress(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := c.GetString("user_id")

	bookID, ok := h.parseBookID(c)
	if !ok {
		return
	}

	var req updateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	logrus.WithFields(logrus.Fields{
		"user_id":      userID,
		"book_id":      bookID.Hex(),
		"current_page": *req.CurrentPage,
	}).Info("UpdateProgress request received")

	book, err := h.service.UpdateProgress(ctx, userID, bookID, *req.CurrentPage)
	if err != nil {
		h.handleBookError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    book,
		"message": "Book progress updated successfully",
	})
}

func (h *handler) UpdateStatus(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := c.GetString("user_id")

	bookID, ok := h.parseBookID(c)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	book, err := h.service.UpdateStatus(ctx, userID, bookID, *req.Completed)
	if err != nil {
		h.handleBookError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    book,
		"message": "Book status updated successfully",
	})
}

func (h *handler) SetGoal(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := c.GetString("user_id")

	bookID, ok := h.parseBookID(c)
	if !ok {
		return
	}

	var req setGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	book, err := h.service.SetGoal(ctx, userID, bookID, req.Type, req.Pages)
	if err != nil {
		h.handleBookError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    book,
		"message": "Reading goal updated successfully",
	})
}

func (h *handler) GoalProgress(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := c.GetString("user_id")

	bookID, ok := h.parseBookID(c)
	if !ok {
		return
	}

	progress, err := h.service.GoalProgress(ctx, userID, bookID)
	if err != nil {
		h.handleBookError(c, err)
		return
	}

	if progress == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"pagesRead": *progress},
		"message": "Goal progress retrieved successfully",
	})
}

func (h *handler) DeleteBook(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := c.GetString("user_id")

	bookID, ok := h.parseBookID(c)
	if !ok {
		return
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"book_id": bookID.Hex(),
	}).Info("DeleteBook request received")

	if err := h.service.DeleteBook(ctx, userID, bookID); err != nil {
		h.handleBookError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func (h *handler) parseBookID(c *gin.Context) (primitive.ObjectID, bool) {
	bookID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid book ID", "Please provide a valid book ID")
		return primitive.NilObjectID, false
	}
	return bookID, true
}

func parseIntParam(c *gin.Context, param string, defaultValue int) int {
	value := c.Query(param)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"param": param,
			"value": value,
			"error": err,
		}).Warn("Invalid integer parameter, using default")

		return defaultValue
	}
	return parsed
}

func (h *handler) handleBookError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrBookNotFound):
		h.sendErrorResponse(c, http.StatusNotFound, "Book not found", "No book found with the provided ID")
	case errors.Is(err, models.ErrNegativePage),
		errors.Is(err, models.ErrPageBeyondTotal),
		errors.Is(err, models.ErrInvalidGoalType),
		errors.Is(err, models.ErrInvalidGoalPages):
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request", err.Error())
	default:
		logrus.WithError(err).Error("Book operation failed")
		h.sendErrorResponse(c, http.StatusInternalServerError, "Book operation failed", err.Error())
	}
}

func (h *handler) sendErrorResponse(c *gin.Context, statusCode int, error, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error":   error,
		"message": message,
	})
}
