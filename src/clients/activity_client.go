package clients

import (
	"encoding/json"
	"fmt"
	"time"

	"minilibrary-session-svc/src/internal/config"
	"minilibrary-session-svc/src/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// ActivityClient publishes reading-activity events to the activity exchange.
// Publishing is fire-and-forget from the caller's point of view; a broker
// failure never fails the originating request.
type ActivityClient struct {
	channel *amqp.Channel
	cfg     *config.RabbitMQConfig
}

func NewActivityClient(cfg *config.Configuration, channel *amqp.Channel) *ActivityClient {
	return &ActivityClient{
		channel: channel,
		cfg:     &cfg.Queue.RabbitMQ,
	}
}

// PublishSessionActivity publishes a lifecycle event for a reading session.
func (c *ActivityClient) PublishSessionActivity(userID, sessionID, bookID, action string) error {
	return c.publish(models.ActivityMessage{
		EventID:   uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		BookID:    bookID,
		Action:    action,
		Timestamp: time.Now(),
	})
}

func (c *ActivityClient) publish(message models.ActivityMessage) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal activity message: %w", err)
	}

	err = c.channel.Publish(
		c.cfg.Exchange,
		c.cfg.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)

	if err != nil {
		logrus.WithError(err).Error("Failed to publish activity message")
		return fmt.Errorf("failed to publish activity message: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"event_id":    message.EventID,
		"user_id":     message.UserID,
		"session_id":  message.SessionID,
		"action":      message.Action,
		"exchange":    c.cfg.Exchange,
		"routing_key": c.cfg.RoutingKey,
	}).Debug("Activity message published")

	return nil
}
