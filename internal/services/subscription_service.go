package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	stderrors "errors"

	"github.com/moynul/taptosell-server/internal/infrastructure/kafka"
	"github.com/moynul/taptosell-server/internal/models"
	"github.com/moynul/taptosell-server/internal/repository"
	pkgerrors "github.com/moynul/taptosell-server/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

type SubscriptionService interface {
	Create(ctx context.Context, vendorID int64, planType string, amount int64, startDate time.Time, durationDays int) (*models.Subscription, error)
	FindActive(ctx context.Context, vendorID int64) (*models.Subscription, error)
	SetStatus(ctx context.Context, id int64, newStatus models.SubscriptionStatus) error
	Cancel(ctx context.Context, id int64) error
	ListExpired(ctx context.Context, now time.Time) ([]models.Subscription, error)
}

type subscriptionService struct {
	subscriptionRepo repository.SubscriptionRepository
	kafkaProducer    kafka.KafkaProducer
}

func NewSubscriptionService(subscriptionRepo repository.SubscriptionRepository, kafkaProducer kafka.KafkaProducer) *subscriptionService {
	return &subscriptionService{
		subscriptionRepo: subscriptionRepo,
		kafkaProducer:    kafkaProducer,
	}
}

func (s *subscriptionService) Create(ctx context.Context, vendorID int64, planType string, amount int64, startDate time.Time, durationDays int) (*models.Subscription, error) {
	tracer := otel.Tracer("subscription-service")
	ctx, span := tracer.Start(ctx, "CreateSubscription")
	defer span.End()

	if vendorID <= 0 {
		span.SetStatus(codes.Error, "invalid vendor id")
		return nil, fmt.Errorf("%w: invalid vendor id", pkgerrors.ErrValidation)
	}
	if planType == "" {
		span.SetStatus(codes.Error, "empty plan type")
		return nil, fmt.Errorf("%w: plan type is required", pkgerrors.ErrValidation)
	}
	if amount <= 0 {
		span.SetStatus(codes.Error, "invalid amount")
		return nil, fmt.Errorf("%w: amount must be positive", pkgerrors.ErrValidation)
	}
	if durationDays <= 0 {
		span.SetStatus(codes.Error, "invalid duration")
		return nil, fmt.Errorf("%w: duration must be positive", pkgerrors.ErrValidation)
	}
	if startDate.IsZero() {
		startDate = time.Now().UTC()
	}

	sub := &models.Subscription{
		VendorID:  vendorID,
		PlanType:  planType,
		Amount:    amount,
		StartDate: startDate,
		EndDate:   startDate.AddDate(0, 0, durationDays),
		Status:    models.SubStatusActive,
	}

	if _, err := s.subscriptionRepo.Create(ctx, sub); err != nil {
		if stderrors.Is(err, pkgerrors.ErrActiveSubscriptionExists) {
			span.SetStatus(codes.Error, "duplicate active subscription")
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "subscription creation failed")
		slog.Error("failed to create subscription", "vendor_id", vendorID, "error", err)
		return nil, fmt.Errorf("%w: failed to create subscription", pkgerrors.ErrInternal)
	}

	s.publishSubscriptionEvent(ctx, "subscription_created", sub)
	slog.Info("subscription created", "subscription_id", sub.ID, "vendor_id", vendorID, "plan_type", planType, "end_date", sub.EndDate)
	return sub, nil
}

func (s *subscriptionService) FindActive(ctx context.Context, vendorID int64) (*models.Subscription, error) {
	tracer := otel.Tracer("subscription-service")
	ctx, span := tracer.Start(ctx, "FindActiveSubscription")
	defer span.End()

	sub, err := s.subscriptionRepo.FindActive(ctx, vendorID)
	if err != nil {
		if !stderrors.Is(err, pkgerrors.ErrSubscriptionNotFound) {
			span.RecordError(err)
			slog.Error("failed to find active subscription", "vendor_id", vendorID, "error", err)
		}
		return nil, err
	}
	return sub, nil
}

// SetStatus applies active→expired or active→cancelled. Re-applying a
// transition that already happened is treated as success, so sweepers can
// race safely; every other transition is rejected.
func (s *subscriptionService) SetStatus(ctx context.Context, id int64, newStatus models.SubscriptionStatus) error {
	tracer := otel.Tracer("subscription-service")
	ctx, span := tracer.Start(ctx, "SetSubscriptionStatus")
	defer span.End()

	if newStatus != models.SubStatusExpired && newStatus != models.SubStatusCancelled {
		span.SetStatus(codes.Error, "illegal target status")
		return fmt.Errorf("%w: cannot transition to %s", pkgerrors.ErrInvalidTransition, newStatus)
	}

	applied, err := s.subscriptionRepo.UpdateStatus(ctx, id, models.SubStatusActive, newStatus)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to update subscription status", "subscription_id", id, "error", err)
		return fmt.Errorf("%w: failed to update status", pkgerrors.ErrInternal)
	}
	if applied {
		sub, err := s.subscriptionRepo.GetByID(ctx, id)
		if err == nil {
			event := "subscription_expired"
			if newStatus == models.SubStatusCancelled {
				event = "subscription_cancelled"
			}
			s.publishSubscriptionEvent(ctx, event, sub)
		}
		slog.Info("subscription status changed", "subscription_id", id, "status", newStatus)
		return nil
	}

	// zero rows: either already in the target state (fine) or an illegal jump
	sub, err := s.subscriptionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sub.Status == newStatus {
		slog.Info("subscription status already applied", "subscription_id", id, "status", newStatus)
		return nil
	}
	span.SetStatus(codes.Error, "invalid transition")
	slog.Warn("invalid subscription transition", "subscription_id", id, "current", sub.Status, "target", newStatus)
	return fmt.Errorf("%w: %s to %s", pkgerrors.ErrInvalidTransition, sub.Status, newStatus)
}

func (s *subscriptionService) Cancel(ctx context.Context, id int64) error {
	return s.SetStatus(ctx, id, models.SubStatusCancelled)
}

func (s *subscriptionService) ListExpired(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	return s.subscriptionRepo.ListExpired(ctx, now)
}

func (s *subscriptionService) publishSubscriptionEvent(ctx context.Context, eventType string, sub *models.Subscription) {
	event := map[string]interface{}{
		"event_type":      eventType,
		"subscription_id": sub.ID,
		"vendor_id":       sub.VendorID,
		"plan_type":       sub.PlanType,
		"status":          string(sub.Status),
		"end_date":        sub.EndDate.UTC().Format(time.RFC3339),
		"created_at":      time.Now().UTC().Format(time.RFC3339),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal subscription event", "subscription_id", sub.ID, "error", err)
		return
	}
	if err := s.kafkaProducer.Send(ctx, "subscriptions", fmt.Sprintf("%d", sub.VendorID), eventBytes); err != nil {
		slog.Error("failed to send subscription event", "subscription_id", sub.ID, "error", err)
	}
}
