package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/corrigo/corrigo/internal/common"
	"github.com/corrigo/corrigo/internal/dbx"
	"github.com/corrigo/corrigo/internal/logging"
	"github.com/corrigo/corrigo/internal/server/auth"
	sc "github.com/corrigo/corrigo/internal/server/config"
	"github.com/corrigo/corrigo/internal/server/mail"
	"github.com/corrigo/corrigo/internal/server/models"
	"github.com/corrigo/corrigo/internal/server/repositories/repomanager"
)

// ActivationService turns a paid pending order into a live account: it
// validates the single-use activation token, consumes it, activates the
// user, materializes the paid order and hands custody of uploaded files
// over to the new owner.
type ActivationService struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	custodian *FileCustodian
	mailer    mail.Mailer
	logger    logging.Logger
	cfg       *sc.Config
}

func NewActivationService(db *sql.DB, repos repomanager.RepositoryManager, custodian *FileCustodian,
	mailer mail.Mailer, cfg *sc.Config, logger logging.Logger) *ActivationService {
	return &ActivationService{
		db:        db,
		repos:     repos,
		custodian: custodian,
		mailer:    mailer,
		cfg:       cfg,
		logger:    logger.With("module", "activation_service"),
	}
}

// PublicUser is the sanitized account profile returned to clients.
type PublicUser struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Active    bool   `json:"active"`
}

func publicUser(u *models.User) *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Active:    u.Active,
	}
}

// VerificationResult is the non-consuming pre-check answer for the UI.
type VerificationResult struct {
	Valid           bool
	User            *PublicUser
	IsAlreadyActive bool
	ExpiresAt       time.Time
}

// ActivationResult is returned after a successful activation.
type ActivationResult struct {
	User         *PublicUser
	SessionToken string
	RedirectURL  string
}

// IssueToken mints the single-use, time-limited activation token for a
// pending order.
func (s *ActivationService) IssueToken(pendingOrderID string) (string, error) {
	return auth.GenerateToken(pendingOrderID, auth.AudienceActivation,
		[]byte(s.cfg.SecretKey), s.cfg.ActivationTokenValidityDuration)
}

// resolveToken parses the token and loads the pending order and the user it
// refers to. Shared by Verify and Activate; mutates nothing.
func (s *ActivationService) resolveToken(ctx context.Context, token string) (*models.PendingOrder, *models.User, time.Time, error) {
	pendingOrderID, expiresAt, err := auth.ParseToken(token, auth.AudienceActivation, []byte(s.cfg.SecretKey))
	if err != nil {
		return nil, nil, time.Time{}, err
	}

	order, err := s.repos.PendingOrders(s.db).GetByID(ctx, pendingOrderID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Token outlived its order; indistinguishable from a forged one.
			return nil, nil, time.Time{}, common.ErrTokenInvalid
		}
		return nil, nil, time.Time{}, fmt.Errorf("error loading pending order: %w", err)
	}

	if order.Processed {
		return nil, nil, time.Time{}, common.ErrTokenAlreadyUsed
	}

	user, err := s.lookupUser(ctx, order)
	if err != nil {
		return nil, nil, time.Time{}, err
	}

	return order, user, expiresAt, nil
}

func (s *ActivationService) lookupUser(ctx context.Context, order *models.PendingOrder) (*models.User, error) {
	userRepo := s.repos.Users(s.db)

	var user *models.User
	var err error
	if order.UserID != nil {
		user, err = userRepo.GetByID(ctx, *order.UserID)
	} else {
		user, err = userRepo.GetByEmail(ctx, order.Email)
	}
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

// Verify is the non-consuming read variant used for UI pre-checks.
func (s *ActivationService) Verify(ctx context.Context, token string) (*VerificationResult, error) {
	_, user, expiresAt, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return &VerificationResult{
		Valid:           true,
		User:            publicUser(user),
		IsAlreadyActive: user.Active,
		ExpiresAt:       expiresAt,
	}, nil
}

// Activate consumes the token and materializes the account. An empty
// password leaves any existing hash untouched.
//
// Consumption and activation run in one transaction with the conditional
// MarkProcessed first: of two racing requests exactly one commits, the other
// rolls back before touching the user. File reassignment and notification
// are best-effort enhancements after the commit; their failure never rolls
// back the activation.
func (s *ActivationService) Activate(ctx context.Context, token, password string) (*ActivationResult, error) {
	order, user, _, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if user.Active {
		return nil, common.ErrAlreadyActivated
	}

	var passwordHash *string
	if password != "" {
		if verr := ValidatePassword(password); verr != nil {
			return nil, verr
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
		h := string(hash)
		passwordHash = &h
	}

	materialized := &models.Order{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		OfferingID:     order.OfferingID,
		PendingOrderID: order.ID,
		Pages:          order.Pages,
		AmountCents:    s.paidAmount(ctx, order),
		Status:         models.OrderStatusPaid,
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.PendingOrders(tx).MarkProcessed(ctx, order.ID); err != nil {
			return err
		}
		if order.UserID == nil {
			if err := s.repos.PendingOrders(tx).LinkUser(ctx, order.ID, user.ID); err != nil {
				return err
			}
		}
		if err := s.repos.Users(tx).Activate(ctx, user.ID, passwordHash); err != nil {
			return err
		}
		if _, err := s.repos.Orders(tx).Create(ctx, materialized); err != nil {
			return err
		}
		return nil
	}); err != nil {
		if errors.Is(err, common.ErrAlreadyProcessed) {
			return nil, common.ErrAlreadyProcessed
		}
		return nil, fmt.Errorf("error activating account: %w", err)
	}

	user.Active = true

	// Best-effort from here on: the activation is durable.
	if moved, err := s.custodian.Reassign(ctx, order.ID, user.ID, materialized.ID); err != nil {
		s.logger.Warn(ctx, "file reassignment failed",
			"pending_order_id", order.ID, "user_id", user.ID, "error", err)
	} else if moved > 0 {
		s.logger.Info(ctx, "files reassigned",
			"pending_order_id", order.ID, "user_id", user.ID, "count", moved)
	}

	s.notifyAdmin(ctx, user, order)

	sessionToken, err := auth.GenerateToken(user.ID, auth.AudienceSession,
		[]byte(s.cfg.SecretKey), s.cfg.SessionTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}

	s.logger.Info(ctx, "account activated", "user_id", user.ID, "pending_order_id", order.ID)

	return &ActivationResult{
		User:         publicUser(user),
		SessionToken: sessionToken,
		RedirectURL:  s.cfg.PostActivationRedirectURL,
	}, nil
}

// paidAmount recomputes the charged amount for the order record. For
// plan-priced offerings the gateway owns the figure; the stored amount is
// then zero.
func (s *ActivationService) paidAmount(ctx context.Context, order *models.PendingOrder) int64 {
	offering, err := s.repos.Offerings(s.db).GetActiveByID(ctx, order.OfferingID)
	if err != nil {
		s.logger.Warn(ctx, "offering lookup failed for order amount",
			"pending_order_id", order.ID, "offering_id", order.OfferingID, "error", err)
		return 0
	}
	amount, _ := resolvePrice(offering, nil, order.Pages)
	return amount
}

func (s *ActivationService) notifyAdmin(ctx context.Context, user *models.User, order *models.PendingOrder) {
	subject := "Neues aktiviertes Konto"
	body := fmt.Sprintf("Konto %s %s <%s> wurde aktiviert (Auftrag %s).",
		user.FirstName, user.LastName, user.Email, order.ID)
	if err := s.mailer.SendAdminNotification(ctx, subject, body); err != nil {
		s.logger.Warn(ctx, "admin notification failed", "user_id", user.ID, "error", err)
	}
}
