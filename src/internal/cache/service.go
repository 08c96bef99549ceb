package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"minilibrary-session-svc/src/internal/config"
	"minilibrary-session-svc/src/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Service caches the user's open reading session so the active-session
// poll (the hottest read in the system) can skip the database. Lifecycle
// mutations refresh or drop the entry through this service.
type Service interface {
	GetActiveSession(ctx context.Context, userID string) (*models.ReadingSession, error)
	CacheActiveSession(ctx context.Context, userID string, session *models.ReadingSession) error
	InvalidateActiveSession(ctx context.Context, userID string) error
}

type cacheService struct {
	client *redis.Client
	cfg    *config.CacheConfig
}

func NewCacheService(client *redis.Client, cfg *config.Configuration) Service {
	return &cacheService{
		client: client,
		cfg:    &cfg.Cache,
	}
}

func (c *cacheService) key(userID string) string {
	return fmt.Sprintf(c.cfg.ActiveSessionKey, userID)
}

func (c *cacheService) GetActiveSession(ctx context.Context, userID string) (*models.ReadingSession, error) {
	key := c.key(userID)

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logrus.WithField("key", key).Debug("Active session not found in cache")
			return nil, nil // Not an error, just not found
		}
		logrus.WithError(err).WithField("key", key).Error("Failed to get active session from cache")
		return nil, models.ErrRedisGet
	}

	var session models.ReadingSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to unmarshal active session from cache")
		return nil, models.ErrRedisGet
	}

	logrus.WithField("key", key).Debug("Active session retrieved from cache")
	return &session, nil
}

func (c *cacheService) CacheActiveSession(ctx context.Context, userID string, session *models.ReadingSession) error {
	key := c.key(userID)

	data, err := json.Marshal(session)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to marshal active session for cache")
		return models.ErrRedisSet
	}

	expiration := time.Duration(c.cfg.SessionExpirationMinutes) * time.Minute
	if err := c.client.Set(ctx, key, data, expiration).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to cache active session")
		return models.ErrRedisSet
	}

	logrus.WithField("key", key).Debug("Active session cached")
	return nil
}

func (c *cacheService) InvalidateActiveSession(ctx context.Context, userID string) error {
	key := c.key(userID)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to invalidate active session cache")
		return models.ErrRedisDelete
	}

	logrus.WithField("key", key).Debug("Active session cache invalidated")
	return nil
}
