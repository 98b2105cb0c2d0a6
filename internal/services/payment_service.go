package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	stderrors "errors"

	"github.com/cenkalti/backoff/v4"
	"github.com/moynul/taptosell-server/internal/fees"
	"github.com/moynul/taptosell-server/internal/gateway"
	"github.com/moynul/taptosell-server/internal/infrastructure/kafka"
	"github.com/moynul/taptosell-server/internal/infrastructure/observability"
	"github.com/moynul/taptosell-server/internal/infrastructure/redis"
	"github.com/moynul/taptosell-server/internal/models"
	"github.com/moynul/taptosell-server/internal/reference"
	"github.com/moynul/taptosell-server/internal/repository"
	pkgerrors "github.com/moynul/taptosell-server/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// phoneRe accepts E.164-style numbers: optional +, 9 to 15 digits.
var phoneRe = regexp.MustCompile(`^\+?[0-9]{9,15}$`)

type TransferRequest struct {
	FromPhone string
	ToPhone   string
	Amount    int64
	Service   string
	// RequestID is the caller-supplied idempotency token. Optional; when
	// present a repeated request is rejected instead of re-executed.
	RequestID string
}

type TransferResult struct {
	Reference   string                   `json:"reference"`
	Status      models.TransactionStatus `json:"status"`
	Amount      int64                    `json:"amount"`
	Fee         int64                    `json:"fee"`
	Net         int64                    `json:"net"`
	GatewayTxID string                   `json:"gateway_tx_id,omitempty"`
	Retries     int                      `json:"retries"`
	Reason      string                   `json:"reason,omitempty"`
}

type PaymentService interface {
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	VerifyTransfer(ctx context.Context, ref string) (*models.Transaction, error)
	Balance(ctx context.Context, phone string) (int64, error)
	History(ctx context.Context, phone string) ([]models.Transaction, error)
}

type paymentService struct {
	transactionRepo repository.TransactionRepository
	gateway         gateway.PaymentGateway
	calculator      *fees.Calculator
	redisClient     redis.RedisClient
	kafkaProducer   kafka.KafkaProducer
	maxRetries      int
	backoffBase     time.Duration
}

func NewPaymentService(
	transactionRepo repository.TransactionRepository,
	gw gateway.PaymentGateway,
	calculator *fees.Calculator,
	redisClient redis.RedisClient,
	kafkaProducer kafka.KafkaProducer,
	maxRetries int,
	backoffBase time.Duration,
) *paymentService {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if backoffBase <= 0 {
		backoffBase = 200 * time.Millisecond
	}
	return &paymentService{
		transactionRepo: transactionRepo,
		gateway:         gw,
		calculator:      calculator,
		redisClient:     redisClient,
		kafkaProducer:   kafkaProducer,
		maxRetries:      maxRetries,
		backoffBase:     backoffBase,
	}
}

func (s *paymentService) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "Transfer")
	defer span.End()

	if err := validateTransfer(req); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		slog.Warn("transfer rejected", "from", req.FromPhone, "to", req.ToPhone, "error", err)
		return nil, err
	}

	if req.RequestID != "" {
		requestKey := fmt.Sprintf("request:%s", req.RequestID)
		ok, err := s.redisClient.SetNX(ctx, requestKey, "pending", 24*time.Hour)
		if err != nil {
			span.RecordError(err)
			slog.Error("failed to set request key", "request_id", req.RequestID, "error", err)
			return nil, fmt.Errorf("%w: idempotency check failed", pkgerrors.ErrInternal)
		}
		if !ok {
			span.SetStatus(codes.Error, "request already processed")
			slog.Warn("request already processed", "request_id", req.RequestID, "from", req.FromPhone)
			return nil, pkgerrors.ErrRequestAlreadyProcessed
		}
	}

	breakdown, err := s.calculator.Compute(req.Amount)
	if err != nil {
		span.SetStatus(codes.Error, "fee computation failed")
		return nil, err
	}

	ref := reference.Generate()
	tx := &models.Transaction{
		Reference: ref,
		FromPhone: req.FromPhone,
		ToPhone:   req.ToPhone,
		Amount:    breakdown.Total,
		Fee:       breakdown.Fee,
		Net:       breakdown.Net,
		Service:   req.Service,
		Status:    models.StatusInitiated,
	}
	if _, err := s.transactionRepo.Create(ctx, tx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction persist failed")
		slog.Error("failed to persist transaction", "reference", ref, "error", err)
		return nil, fmt.Errorf("%w: failed to persist transaction", pkgerrors.ErrInternal)
	}

	res, retries, gwErr := s.initiateWithRetry(ctx, req, ref)

	result := &TransferResult{
		Reference: ref,
		Amount:    breakdown.Total,
		Fee:       breakdown.Fee,
		Net:       breakdown.Net,
		Retries:   retries,
	}

	switch {
	case gwErr == nil:
		now := time.Now().UTC()
		if _, err := s.transactionRepo.UpdateStatus(ctx, ref, models.StatusInitiated, models.StatusCompleted, res.TransactionID, &now); err != nil {
			span.RecordError(err)
			slog.Error("failed to mark transaction completed", "reference", ref, "error", err)
			return nil, fmt.Errorf("%w: failed to record completion", pkgerrors.ErrInternal)
		}
		result.Status = models.StatusCompleted
		result.GatewayTxID = res.TransactionID
		observability.TransfersTotal.WithLabelValues(string(models.StatusCompleted)).Inc()
		s.publishTransferEvent(ctx, "transfer_completed", tx, result)
		slog.Info("transfer completed", "reference", ref, "gateway_tx_id", res.TransactionID, "retries", retries)
		return result, nil

	case stderrors.Is(gwErr, pkgerrors.ErrGatewayRejected):
		if _, err := s.transactionRepo.UpdateStatus(ctx, ref, models.StatusInitiated, models.StatusFailed, "", nil); err != nil {
			slog.Error("failed to mark transaction failed", "reference", ref, "error", err)
		}
		result.Status = models.StatusFailed
		result.Reason = gwErr.Error()
		observability.TransfersTotal.WithLabelValues(string(models.StatusFailed)).Inc()
		s.publishTransferEvent(ctx, "transfer_failed", tx, result)
		span.SetStatus(codes.Error, "gateway rejected")
		slog.Warn("transfer rejected by gateway", "reference", ref, "error", gwErr)
		return result, gwErr

	default:
		// transient failure not resolved within the retry budget, or an
		// ambiguous timeout; the transaction must be reconciled via
		// VerifyTransfer, never re-initiated
		if _, err := s.transactionRepo.UpdateStatus(ctx, ref, models.StatusInitiated, models.StatusPendingVerification, "", nil); err != nil {
			slog.Error("failed to mark transaction pending verification", "reference", ref, "error", err)
		}
		result.Status = models.StatusPendingVerification
		result.Reason = gwErr.Error()
		observability.TransfersTotal.WithLabelValues(string(models.StatusPendingVerification)).Inc()
		s.publishTransferEvent(ctx, "transfer_pending_verification", tx, result)
		span.SetStatus(codes.Error, "pending verification")
		slog.Warn("transfer pending verification", "reference", ref, "retries", retries, "error", gwErr)
		return result, nil
	}
}

// initiateWithRetry calls the gateway with the reference as idempotency
// key. Only GatewayUnavailable is retried; a timeout is ambiguous and must
// never be blindly resent, and a rejection is terminal.
func (s *paymentService) initiateWithRetry(ctx context.Context, req TransferRequest, ref string) (*gateway.Result, int, error) {
	var res *gateway.Result
	attempts := 0

	op := func() error {
		attempts++
		if attempts > 1 {
			observability.GatewayRetries.Inc()
		}
		r, err := s.gateway.Initiate(ctx, req.FromPhone, req.ToPhone, req.Amount, req.Service, ref)
		if err != nil {
			if stderrors.Is(err, pkgerrors.ErrGatewayUnavailable) {
				slog.Warn("gateway unavailable, will retry", "reference", ref, "attempt", attempts)
				return err
			}
			return backoff.Permanent(err)
		}
		res = r
		return nil
	}

	bo := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(s.backoffBase),
		backoff.WithMultiplier(2),
	)
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(s.maxRetries)), ctx))
	return res, attempts - 1, err
}

func (s *paymentService) VerifyTransfer(ctx context.Context, ref string) (*models.Transaction, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "VerifyTransfer")
	defer span.End()

	tx, err := s.transactionRepo.GetByReference(ctx, ref)
	if err != nil {
		span.SetStatus(codes.Error, "transaction lookup failed")
		return nil, err
	}

	// only the ambiguous state is reconciled; anything else is already final
	if tx.Status != models.StatusPendingVerification {
		return tx, nil
	}

	v, err := s.gateway.Verify(ctx, ref)
	if err != nil {
		span.RecordError(err)
		slog.Error("gateway verification failed", "reference", ref, "error", err)
		return nil, err
	}

	target := models.StatusFailed
	var completedAt *time.Time
	if v.Verified && v.Status == "success" {
		target = models.StatusCompleted
		now := time.Now().UTC()
		completedAt = &now
	}

	applied, err := s.transactionRepo.UpdateStatus(ctx, ref, models.StatusPendingVerification, target, "", completedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve transaction", pkgerrors.ErrInternal)
	}
	if !applied {
		// a concurrent reconciler already resolved it
		slog.Info("verification already applied elsewhere", "reference", ref)
	} else {
		observability.TransfersTotal.WithLabelValues(string(target)).Inc()
		slog.Info("transaction reconciled", "reference", ref, "status", target, "verified", v.Verified)
	}

	return s.transactionRepo.GetByReference(ctx, ref)
}

func (s *paymentService) Balance(ctx context.Context, phone string) (int64, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "Balance")
	defer span.End()

	if !phoneRe.MatchString(phone) {
		span.SetStatus(codes.Error, "invalid phone")
		return 0, fmt.Errorf("%w: invalid phone number", pkgerrors.ErrValidation)
	}

	bal, err := s.gateway.CheckBalance(ctx, phone)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to check balance", "phone", phone, "error", err)
		return 0, err
	}
	return bal.Amount, nil
}

func (s *paymentService) History(ctx context.Context, phone string) ([]models.Transaction, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "History")
	defer span.End()

	if !phoneRe.MatchString(phone) {
		span.SetStatus(codes.Error, "invalid phone")
		return nil, fmt.Errorf("%w: invalid phone number", pkgerrors.ErrValidation)
	}

	transactions, err := s.transactionRepo.ListByPhone(ctx, phone)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to get transaction history", "phone", phone, "error", err)
		return nil, err
	}
	return transactions, nil
}

func (s *paymentService) publishTransferEvent(ctx context.Context, eventType string, tx *models.Transaction, result *TransferResult) {
	event := map[string]interface{}{
		"event_type": eventType,
		"reference":  tx.Reference,
		"from_phone": tx.FromPhone,
		"to_phone":   tx.ToPhone,
		"amount":     tx.Amount,
		"fee":        tx.Fee,
		"net":        tx.Net,
		"service":    tx.Service,
		"status":     string(result.Status),
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal transfer event", "reference", tx.Reference, "error", err)
		return
	}
	if err := s.kafkaProducer.Send(ctx, "transactions", tx.Reference, eventBytes); err != nil {
		slog.Error("failed to send transfer event", "reference", tx.Reference, "error", err)
	}
}

func validateTransfer(req TransferRequest) error {
	if !phoneRe.MatchString(req.FromPhone) {
		return fmt.Errorf("%w: invalid sender phone", pkgerrors.ErrValidation)
	}
	if !phoneRe.MatchString(req.ToPhone) {
		return fmt.Errorf("%w: invalid receiver phone", pkgerrors.ErrValidation)
	}
	if req.FromPhone == req.ToPhone {
		return fmt.Errorf("%w: cannot transfer to the same account", pkgerrors.ErrValidation)
	}
	if req.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", pkgerrors.ErrValidation)
	}
	if req.Service == "" {
		return fmt.Errorf("%w: service tag is required", pkgerrors.ErrValidation)
	}
	return nil
}
