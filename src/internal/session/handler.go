package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"minilibrary-session-svc/src/clients"
	"minilibrary-session-svc/src/internal/cache"
	"minilibrary-session-svc/src/internal/config"
	"minilibrary-session-svc/src/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Handler interface {
	StartSession(c *gin.Context)
	StopSession(c *gin.Context)
	PauseSession(c *gin.Context)
	ResumeSession(c *gin.Context)
	ExcludeTime(c *gin.Context)
	GetActiveSession(c *gin.Context)
	GetSessionsByBook(c *gin.Context)
}

type handler struct {
	config       *config.Configuration
	service      Service
	cacheService cache.Service
	activity     *clients.ActivityClient
}

func NewHandler(cfg *config.Configuration, service Service, cacheService cache.Service, activity *clients.ActivityClient) Handler {
	return &handler{
		config:       cfg,
		service:      service,
		cacheService: cacheService,
		activity:     activity,
	}
}

type startSessionRequest struct {
	BookID string `json:"bookId" binding:"required"`
}

type stopSessionRequest struct {
	EndTime *time.Time `json:"endTime"`
	EndPage *int       `json:"endPage"`
}

type excludeTimeRequest struct {
	Millis *int64 `json:"millis" binding:"required"`
}

func (h *handler) StartSession(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := c.GetString("user_id")

	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	bookID, err := primitive.ObjectIDFromHex(req.BookID)
	if err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid book ID", "Please provide a valid book ID")
		return
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"book_id": req.BookID,
	}).Info("StartSession request received")

	session, err := h.service.StartSession(ctx, userID, bookID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	h.refreshCache(ctx, userID, session)
	h.publishActivity(userID, session, models.ActionSessionStarted)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    session,
		"message": "Reading session started",
	})
}

func (h *handler) StopSession(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := c.GetString("user_id")

	// The stop body is optional: an empty body completes the session
	// with endTime = now and no page progress.
	var req stopSessionRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}
	}

	logrus.WithField("user_id", userID).Info("StopSession request received")

	session, err := h.service.StopSession(ctx, userID, req.EndTime, req.EndPage)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	h.refreshCache(ctx, userID, session)
	h.publishActivity(userID, session, models.ActionSessionStopped)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    session,
		"message": "Reading session stopped",
	})
}

func (h *handler) PauseSession(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := c.GetString("user_id")
	logrus.WithField("user_id", userID).Info("PauseSession request received")

	session, err := h.service.PauseSession(ctx, userID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	h.refreshCache(ctx, userID, session)
	h.publishActivity(userID, session, models.ActionSessionPaused)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    session,
		"message": "Reading session paused",
	})
}

func (h *handler) ResumeSession(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := c.GetString("user_id")
	logrus.WithField("user_id", userID).Info("ResumeSession request received")

	session, err := h.service.ResumeSession(ctx, userID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	h.refreshCache(ctx, userID, session)
	h.publishActivity(userID, session, models.ActionSessionResumed)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    session,
		"message": "Reading session resumed",
	})
}

func (h *handler) ExcludeTime(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := c.GetString("user_id")

	var req excludeTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"millis":  *req.Millis,
	}).Info("ExcludeTime request received")

	session, err := h.service.ExcludeTime(ctx, userID, *req.Millis)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	h.refreshCache(ctx, userID, session)
	h.publishActivity(userID, session, models.ActionTimeExcluded)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    session,
		"message": "Idle time excluded from session",
	})
}

func (h *handler) GetActiveSession(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := c.GetString("user_id")

	if cached, err := h.cacheService.GetActiveSession(ctx, userID); err == nil && cached != nil {
		logrus.WithField("user_id", userID).Debug("Active session served from cache")
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    cached,
			"message": "Active session retrieved successfully (from cache)",
		})
		return
	}

	session, err := h.service.GetActiveSession(ctx, userID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	if session == nil {
		c.Status(http.StatusNoContent)
		return
	}

	h.cacheService.CacheActiveSession(ctx, userID, session)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    session,
		"message": "Active session retrieved successfully",
	})
}

func (h *handler) GetSessionsByBook(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := c.GetString("user_id")

	bookID, err := primitive.ObjectIDFromHex(c.Param("bookId"))
	if err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid book ID", "Please provide a valid book ID")
		return
	}

	sessions, err := h.service.GetSessionsByBook(ctx, userID, bookID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	if sessions == nil {
		sessions = []*models.ReadingSession{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sessions,
		"message": "Sessions retrieved successfully",
	})
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

// refreshCache keeps the active-session cache in step with the store:
// open sessions are re-cached, completed ones drop the entry.
func (h *handler) refreshCache(ctx context.Context, userID string, session *models.ReadingSession) {
	if session.IsOpen() {
		h.cacheService.CacheActiveSession(ctx, userID, session)
		return
	}
	h.cacheService.InvalidateActiveSession(ctx, userID)
}

func (h *handler) publishActivity(userID string, session *models.ReadingSession, action string) {
	if h.activity == nil {
		return
	}
	if err := h.activity.PublishSessionActivity(userID, session.ID.Hex(), session.BookID.Hex(), action); err != nil {
		logrus.WithError(err).WithField("action", action).Warn("Failed to publish session activity")
	}
}

func (h *handler) handleSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrBookNotFound):
		h.sendErrorResponse(c, http.StatusNotFound, "Book not found", "No book found with the provided ID")
	case errors.Is(err, models.ErrSessionNotFound):
		h.sendErrorResponse(c, http.StatusNotFound, "No open session", "No active or paused reading session found")
	case errors.Is(err, models.ErrNoActiveSession), errors.Is(err, models.ErrNoPausedSession):
		h.sendErrorResponse(c, http.StatusConflict, "Session state conflict", err.Error())
	case errors.Is(err, models.ErrNegativeMillis):
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid millis", err.Error())
	case errors.Is(err, models.ErrNegativePage), errors.Is(err, models.ErrPageBeyondTotal):
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid page", err.Error())
	default:
		logrus.WithError(err).Error("Session operation failed")
		h.sendErrorResponse(c, http.StatusInternalServerError, "Session operation failed", err.Error())
	}
}

func (h *handler) sendErrorResponse(c *gin.Context, statusCode int, error, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error":   error,
		"message": message,
	})
}
