package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/corrigo/corrigo/internal/common"
	"github.com/corrigo/corrigo/internal/logging"
	sc "github.com/corrigo/corrigo/internal/server/config"
	"github.com/corrigo/corrigo/internal/server/models"
	"github.com/corrigo/corrigo/internal/server/payment"
	"github.com/corrigo/corrigo/internal/server/repositories/repomanager"
)

// OrderService runs the guest-order half of the pipeline: intake validation,
// pending-order capture, temp file custody and checkout-session opening.
type OrderService struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	gateway   payment.CheckoutGateway
	custodian *FileCustodian
	logger    logging.Logger
	cfg       *sc.Config
}

func NewOrderService(db *sql.DB, repos repomanager.RepositoryManager, gateway payment.CheckoutGateway,
	custodian *FileCustodian, cfg *sc.Config, logger logging.Logger) *OrderService {
	return &OrderService{
		db:        db,
		repos:     repos,
		gateway:   gateway,
		custodian: custodian,
		cfg:       cfg,
		logger:    logger.With("module", "order_service"),
	}
}

// OrderResult is returned to the guest after a successful submission.
type OrderResult struct {
	PendingOrderID string
	SessionID      string
	CheckoutURL    string
	UploadedFiles  int
}

// CreateGuestOrder validates the submission, captures a pending order,
// stores attachments under the sentinel custodian and opens a checkout
// session. If the gateway call fails, the pending order and the temp custody
// artifacts stored for it are deleted before the error is surfaced: nothing
// referencing the order may survive a failed checkout-session open.
func (s *OrderService) CreateGuestOrder(ctx context.Context, sub OrderSubmission, attachments []Attachment) (*OrderResult, error) {

	if verr := ValidateOrderSubmission(&sub); verr != nil {
		return nil, verr
	}

	offering, err := s.repos.Offerings(s.db).GetActiveByID(ctx, sub.OfferingID)
	if err != nil {
		if errors.Is(err, common.ErrServiceNotFound) {
			return nil, common.ErrServiceNotFound
		}
		return nil, fmt.Errorf("error resolving offering: %w", err)
	}

	userRepo := s.repos.Users(s.db)
	if _, err := userRepo.GetByEmail(ctx, sub.Email); err == nil {
		return nil, common.ErrDuplicateEmail
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("error checking email: %w", err)
	}

	order := &models.PendingOrder{
		ID:          uuid.NewString(),
		FirstName:   sub.FirstName,
		LastName:    sub.LastName,
		Email:       sub.Email,
		Phone:       sub.Phone,
		OfferingID:  offering.ID,
		Pages:       sub.Pages,
		Description: sub.Description,
		Consent:     sub.Consent,
	}

	if _, err := s.repos.PendingOrders(s.db).Create(ctx, order); err != nil {
		return nil, fmt.Errorf("error creating pending order: %w", err)
	}

	uploaded := s.custodian.StoreTempFiles(ctx, order.ID, attachments)

	session, err := s.openCheckoutSession(ctx, order, offering, sub.Price)
	if err != nil {
		s.custodian.DiscardTempFiles(ctx, order.ID)
		s.rollbackPendingOrder(ctx, order.ID)
		s.logger.Warn(ctx, "checkout session open failed",
			"pending_order_id", order.ID, "email", order.Email, "error", err)
		return nil, common.ErrPaymentGateway
	}

	if err := s.repos.PendingOrders(s.db).AttachCheckoutSession(ctx, order.ID, session.ID); err != nil {
		return nil, fmt.Errorf("error attaching checkout session: %w", err)
	}

	s.logger.Info(ctx, "guest order captured",
		"pending_order_id", order.ID, "session_id", session.ID, "uploaded_files", uploaded)

	return &OrderResult{
		PendingOrderID: order.ID,
		SessionID:      session.ID,
		CheckoutURL:    session.URL,
		UploadedFiles:  uploaded,
	}, nil
}

// GetPendingOrder reads one pending order by id.
func (s *OrderService) GetPendingOrder(ctx context.Context, id string) (*models.PendingOrder, error) {
	return s.repos.PendingOrders(s.db).GetByID(ctx, id)
}

func (s *OrderService) openCheckoutSession(ctx context.Context, order *models.PendingOrder,
	offering *models.ServiceOffering, price *float64) (*payment.CheckoutSession, error) {

	params := payment.CheckoutParams{
		PendingOrderID: order.ID,
		CustomerEmail:  order.Email,
		ProductName:    offering.Name,
		Currency:       s.cfg.Currency,
		SuccessURL:     s.cfg.CheckoutSuccessURL,
		CancelURL:      s.cfg.CheckoutCancelURL,
	}

	amount, planID := resolvePrice(offering, price, order.Pages)
	params.AmountCents = amount
	params.PricePlanID = planID
	if planID != "" && order.Pages != nil {
		params.Quantity = int64(*order.Pages)
	}

	return s.gateway.CreateCheckoutSession(ctx, params)
}

// resolvePrice picks the amount to charge. A client-computed price together
// with a declared page count wins and is converted to minor units; otherwise
// an offering without an external price plan charges its stored minor-unit
// price; otherwise the external price plan id is used as-is.
func resolvePrice(offering *models.ServiceOffering, price *float64, pages *int) (int64, string) {
	if price != nil && pages != nil {
		return int64(math.Round(*price * 100)), ""
	}
	if offering.PricePlanID == nil {
		return offering.PriceCents, ""
	}
	return 0, *offering.PricePlanID
}

// rollbackPendingOrder is the compensating delete after a failed checkout
// open. A failed delete is a data-integrity problem and is logged as such,
// but must not mask the original gateway error.
func (s *OrderService) rollbackPendingOrder(ctx context.Context, id string) {
	if err := s.repos.PendingOrders(s.db).Delete(ctx, id); err != nil {
		s.logger.Error(ctx, "data integrity: pending order rollback failed",
			"pending_order_id", id, "error", err)
	}
}
