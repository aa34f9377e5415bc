// Package event publishes user lifecycle events to Kafka so downstream
// services (feeds, notifications, moderation) learn about account changes.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/karciss/red-social-backend/internal/domain"
	pkgkafka "github.com/karciss/red-social-backend/pkg/kafka"
)

// Kafka topics for user lifecycle events.
var (
	TopicUserRegistered  = pkgkafka.Topic("user", "registered")
	TopicUserDeactivated = pkgkafka.Topic("user", "deactivated")
)

// Aggregate type constant.
const AggregateTypeUser = "user"

// Source identifier for events originating from the auth service.
const SourceAuthService = "auth-service"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// UserDeactivatedData is the payload for a user.deactivated event.
type UserDeactivatedData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Producer publishes user lifecycle events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the auth service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// PublishUserDeactivated publishes a user.deactivated event.
func (p *Producer) PublishUserDeactivated(ctx context.Context, user *domain.User) error {
	data := UserDeactivatedData{
		ID:    user.ID,
		Email: user.Email,
	}

	event, err := pkgkafka.NewEvent(TopicUserDeactivated, user.ID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create user.deactivated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserDeactivated, event); err != nil {
		return fmt.Errorf("publish user.deactivated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.deactivated event",
		slog.String("user_id", user.ID),
	)

	return nil
}
