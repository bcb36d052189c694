package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/corrigo/corrigo/internal/common"
	"github.com/corrigo/corrigo/internal/logging"
	sc "github.com/corrigo/corrigo/internal/server/config"
	"github.com/corrigo/corrigo/internal/server/mail"
	"github.com/corrigo/corrigo/internal/server/models"
	"github.com/corrigo/corrigo/internal/server/payment"
	"github.com/corrigo/corrigo/internal/server/repositories/repomanager"
)

const webhookProvider = "stripe"

// WebhookService consumes payment-gateway notifications. On a completed
// checkout session it creates the (still inactive) account for the order
// holder, issues the activation token and mails the activation link.
type WebhookService struct {
	db         *sql.DB
	repos      repomanager.RepositoryManager
	verifier   payment.WebhookVerifier
	activation *ActivationService
	mailer     mail.Mailer
	logger     logging.Logger
	cfg        *sc.Config
}

func NewWebhookService(db *sql.DB, repos repomanager.RepositoryManager, verifier payment.WebhookVerifier,
	activation *ActivationService, mailer mail.Mailer, cfg *sc.Config, logger logging.Logger) *WebhookService {
	return &WebhookService{
		db:         db,
		repos:      repos,
		verifier:   verifier,
		activation: activation,
		mailer:     mailer,
		cfg:        cfg,
		logger:     logger.With("module", "webhook_service"),
	}
}

// HandlePaymentEvent verifies and processes one webhook delivery. Events are
// deduplicated by provider event id, so re-deliveries are acknowledged
// without running the pipeline again. A nil return acknowledges the event.
func (s *WebhookService) HandlePaymentEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := s.verifier.VerifyEvent(payload, signatureHeader)
	if err != nil {
		s.logger.Warn(ctx, "webhook signature rejected", "error", err)
		return common.ErrWebhookSignature
	}

	inserted, err := s.repos.WebhookEvents(s.db).Insert(ctx, webhookProvider, event.ID, event.Type)
	if err != nil {
		return fmt.Errorf("error recording webhook event: %w", err)
	}
	if !inserted {
		s.logger.Info(ctx, "duplicate webhook event acknowledged", "event_id", event.ID)
		return nil
	}

	var processingError string
	if event.Type == payment.EventTypeCheckoutCompleted {
		if err := s.handleCheckoutCompleted(ctx, event); err != nil {
			processingError = err.Error()
			s.logger.Error(ctx, "webhook processing failed",
				"event_id", event.ID, "session_id", event.CheckoutSessionID, "error", err)
		}
	}

	if err := s.repos.WebhookEvents(s.db).MarkProcessed(ctx, webhookProvider, event.ID, processingError); err != nil {
		s.logger.Warn(ctx, "webhook event bookkeeping failed", "event_id", event.ID, "error", err)
	}

	return nil
}

// handleCheckoutCompleted links or creates the account for the paid pending
// order and sends the activation link.
func (s *WebhookService) handleCheckoutCompleted(ctx context.Context, event *payment.Event) error {
	order, err := s.repos.PendingOrders(s.db).GetBySessionID(ctx, event.CheckoutSessionID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Data-integrity problem upstream; nothing to retry against.
			return fmt.Errorf("no pending order for session %s", event.CheckoutSessionID)
		}
		return fmt.Errorf("error loading pending order: %w", err)
	}

	if order.Processed {
		s.logger.Info(ctx, "pending order already processed, ignoring event",
			"pending_order_id", order.ID, "event_id", event.ID)
		return nil
	}

	user, err := s.ensureUser(ctx, order)
	if err != nil {
		return err
	}

	token, err := s.activation.IssueToken(order.ID)
	if err != nil {
		return fmt.Errorf("error issuing activation token: %w", err)
	}

	activationURL := fmt.Sprintf("%s/%s", s.cfg.ActivationBaseURL, token)
	if err := s.mailer.SendActivationLink(ctx, order.Email, order.FirstName, activationURL); err != nil {
		// Fire-and-forget: the payment went through, so the event is
		// consumed either way. No retry or dead-letter here.
		s.logger.Warn(ctx, "activation mail failed",
			"pending_order_id", order.ID, "email", order.Email, "error", err)
	}

	s.logger.Info(ctx, "checkout completed",
		"pending_order_id", order.ID, "user_id", user.ID,
		"token_prefix", common.TokenPrefix(token))

	return nil
}

// ensureUser returns the account linked to the order, creating the inactive
// surrogate if none exists yet. A concurrent creation loses against the
// unique email index and falls back to the existing row.
func (s *WebhookService) ensureUser(ctx context.Context, order *models.PendingOrder) (*models.User, error) {
	userRepo := s.repos.Users(s.db)

	if order.UserID != nil {
		user, err := userRepo.GetByID(ctx, *order.UserID)
		if err != nil {
			return nil, fmt.Errorf("error loading linked user: %w", err)
		}
		return user, nil
	}

	user, err := userRepo.GetByEmail(ctx, order.Email)
	if errors.Is(err, common.ErrNotFound) {
		user, err = userRepo.Create(ctx, &models.User{
			ID:        uuid.NewString(),
			FirstName: order.FirstName,
			LastName:  order.LastName,
			Email:     order.Email,
			Active:    false,
			Role:      models.RoleClient,
		})
		if errors.Is(err, common.ErrDuplicateEmail) {
			user, err = userRepo.GetByEmail(ctx, order.Email)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("error ensuring user: %w", err)
	}

	if err := s.repos.PendingOrders(s.db).LinkUser(ctx, order.ID, user.ID); err != nil {
		return nil, fmt.Errorf("error linking user: %w", err)
	}

	return user, nil
}
