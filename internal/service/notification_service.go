package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/models"
	"github.com/regod-app/regod-api/internal/repository"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService stores and lists per-user notifications. Events
// published on NATS by other nodes are persisted too, so every replica sees
// the same inbox.
type NotificationService interface {
	Notify(ctx context.Context, userID, kind, message string) error
	List(ctx context.Context, userID string, unreadOnly bool) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, userID string, id uint) error
	MarkAllRead(ctx context.Context, userID string) error
	UnreadCount(ctx context.Context, userID string) (int64, error)
	Start(ctx context.Context)
}

type notificationService struct {
	repo        repository.NotificationRepository
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
}

type notificationEvent struct {
	UserID  string `json:"user_id"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewNotificationService builds the notification service.
func NewNotificationService(repo repository.NotificationRepository, natsConn *nats.Conn, logger zerolog.Logger) NotificationService {
	return &notificationService{
		repo:        repo,
		nats:        natsConn,
		natsSubject: "regod.notifications",
		logger:      logger.With().Str("component", "notification_service").Logger(),
	}
}

func (s *notificationService) Start(ctx context.Context) {
	if s.nats == nil {
		return
	}

	sub, err := s.nats.QueueSubscribe(s.natsSubject, "regod-notifications", func(msg *nats.Msg) {
		var event notificationEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			s.logger.Warn().Err(err).Msg("invalid notification event")
			return
		}
		if event.UserID == "" || event.Message == "" {
			return
		}

		notification := models.Notification{
			UserID:  event.UserID,
			Type:    event.Type,
			Message: event.Message,
		}
		if err := s.repo.Create(context.Background(), &notification); err != nil {
			s.logger.Error().Err(err).Str("user_id", event.UserID).Msg("failed to store notification event")
		}
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to notification subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification subscription")
		}
	}()
}

func (s *notificationService) Notify(ctx context.Context, userID, kind, message string) error {
	notification := models.Notification{
		UserID:  userID,
		Type:    kind,
		Message: message,
	}
	if err := s.repo.Create(ctx, &notification); err != nil {
		return err
	}

	if s.nats != nil {
		payload, err := json.Marshal(notificationEvent{UserID: userID, Type: kind, Message: message})
		if err == nil {
			if err := s.nats.Publish(s.natsSubject+".fanout", payload); err != nil {
				s.logger.Warn().Err(err).Msg("failed to publish notification event")
			}
		}
	}

	return nil
}

func (s *notificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]dto.NotificationResponse, error) {
	notifications, err := s.repo.ListByUser(ctx, userID, unreadOnly)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		responses = append(responses, dto.NotificationResponse{
			ID:        notification.ID,
			Type:      notification.Type,
			Message:   notification.Message,
			Read:      notification.Read,
			CreatedAt: notification.CreatedAt,
		})
	}

	return responses, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID string, id uint) error {
	if err := s.repo.MarkRead(ctx, userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
