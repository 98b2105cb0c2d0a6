package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	stderrors "errors"

	"github.com/moynul/taptosell-server/internal/infrastructure/auth"
	"github.com/moynul/taptosell-server/internal/infrastructure/kafka"
	"github.com/moynul/taptosell-server/internal/infrastructure/redis"
	"github.com/moynul/taptosell-server/internal/models"
	"github.com/moynul/taptosell-server/internal/repository"
	pkgerrors "github.com/moynul/taptosell-server/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Register(ctx context.Context, phone, name, password string) (*models.Vendor, error)
	Login(ctx context.Context, phone, password string) (string, error)
}

type authService struct {
	vendorRepo    repository.VendorRepository
	redisClient   redis.RedisClient
	kafkaProducer kafka.KafkaProducer
	jwtSecret     string
}

func NewAuthService(vendorRepo repository.VendorRepository, redisClient redis.RedisClient, kafkaProducer kafka.KafkaProducer, jwtSecret string) *authService {
	return &authService{
		vendorRepo:    vendorRepo,
		redisClient:   redisClient,
		kafkaProducer: kafkaProducer,
		jwtSecret:     jwtSecret,
	}
}

func (s *authService) Register(ctx context.Context, phone, name, password string) (*models.Vendor, error) {
	tracer := otel.Tracer("auth-service")
	ctx, span := tracer.Start(ctx, "Register")
	defer span.End()

	if !phoneRe.MatchString(phone) {
		span.SetStatus(codes.Error, "invalid phone")
		return nil, fmt.Errorf("%w: invalid phone number", pkgerrors.ErrValidation)
	}
	if name == "" || password == "" {
		span.SetStatus(codes.Error, "empty name or password")
		return nil, fmt.Errorf("%w: name and password are required", pkgerrors.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to hash password", "phone", phone, "error", err)
		return nil, fmt.Errorf("%w: failed to hash password", pkgerrors.ErrInternal)
	}

	vendor := &models.Vendor{
		Phone:        phone,
		Name:         name,
		PasswordHash: string(hash),
	}
	if err := s.vendorRepo.Create(ctx, vendor); err != nil {
		if stderrors.Is(err, pkgerrors.ErrVendorExists) {
			span.SetStatus(codes.Error, "vendor exists")
			return nil, err
		}
		span.RecordError(err)
		slog.Error("failed to create vendor", "phone", phone, "error", err)
		return nil, fmt.Errorf("%w: failed to create vendor", pkgerrors.ErrInternal)
	}

	event := map[string]interface{}{
		"event_type": "vendor_registered",
		"vendor_id":  vendor.ID,
		"phone":      phone,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	if eventBytes, err := json.Marshal(event); err == nil {
		if err := s.kafkaProducer.Send(ctx, "vendors", fmt.Sprintf("%d", vendor.ID), eventBytes); err != nil {
			slog.Error("failed to send vendor registration event", "vendor_id", vendor.ID, "error", err)
		}
	}

	slog.Info("vendor registered", "vendor_id", vendor.ID, "phone", phone)
	return vendor, nil
}

func (s *authService) Login(ctx context.Context, phone, password string) (string, error) {
	tracer := otel.Tracer("auth-service")
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	vendor, err := s.vendorRepo.GetByPhone(ctx, phone)
	if err != nil {
		slog.Warn("login failed", "phone", phone, "error", err)
		return "", pkgerrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(vendor.PasswordHash), []byte(password)); err != nil {
		slog.Warn("invalid password", "phone", phone)
		return "", pkgerrors.ErrInvalidCredentials
	}

	token, err := auth.GenerateJWT(vendor.ID, s.jwtSecret)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to generate JWT", "vendor_id", vendor.ID, "error", err)
		return "", fmt.Errorf("%w: failed to generate token", pkgerrors.ErrInternal)
	}

	if err := s.redisClient.Set(ctx, fmt.Sprintf("vendor:%d:token", vendor.ID), token, time.Hour); err != nil {
		slog.Error("failed to cache JWT", "vendor_id", vendor.ID, "error", err)
	}

	slog.Info("vendor logged in", "vendor_id", vendor.ID, "phone", phone)
	return token, nil
}
