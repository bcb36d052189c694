package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/corrigo/corrigo/internal/common"
	"github.com/corrigo/corrigo/internal/server/auth"
	"github.com/corrigo/corrigo/internal/server/models"
)

type activationFixture struct {
	service *ActivationService
	repos   *fakeRepoManager
	mailer  *fakeMailer
	mock    sqlmock.Sqlmock
	order   *models.PendingOrder
	user    *models.User
}

// newActivationFixture seeds an unprocessed pending order linked to an
// inactive user, plus the offering it refers to.
func newActivationFixture(t *testing.T) *activationFixture {
	t.Helper()
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repos := newFakeRepoManager(fixedOffering())
	mailer := &fakeMailer{}
	custodian := NewFileCustodian(db, repos, newFakeBlobStore(), testLogger())
	service := NewActivationService(db, repos, custodian, mailer, testConfig(), testLogger())

	user, err := repos.userRepo.Create(ctx, &models.User{
		ID:        "user-1",
		FirstName: "Anna",
		LastName:  "Schmidt",
		Email:     "anna@example.com",
		Role:      models.RoleClient,
	})
	require.NoError(t, err)

	userID := user.ID
	order, err := repos.pendingRepo.Create(ctx, &models.PendingOrder{
		ID:         "po-1",
		FirstName:  "Anna",
		LastName:   "Schmidt",
		Email:      "anna@example.com",
		UserID:     &userID,
		OfferingID: "svc-1",
		Pages:      intPtr(10),
		Consent:    true,
	})
	require.NoError(t, err)

	return &activationFixture{
		service: service,
		repos:   repos,
		mailer:  mailer,
		mock:    mock,
		order:   order,
		user:    user,
	}
}

func (f *activationFixture) token(t *testing.T) string {
	t.Helper()
	token, err := f.service.IssueToken(f.order.ID)
	require.NoError(t, err)
	return token
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		f := newActivationFixture(t)

		result, err := f.service.Verify(ctx, f.token(t))

		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.False(t, result.IsAlreadyActive)
		assert.Equal(t, "anna@example.com", result.User.Email)
		assert.WithinDuration(t, time.Now().Add(72*time.Hour), result.ExpiresAt, time.Minute)
	})

	t.Run("garbage token", func(t *testing.T) {
		f := newActivationFixture(t)

		_, err := f.service.Verify(ctx, "not.a.token")

		assert.ErrorIs(t, err, common.ErrTokenInvalid)
	})

	t.Run("expired token", func(t *testing.T) {
		f := newActivationFixture(t)
		token, err := auth.GenerateToken(f.order.ID, auth.AudienceActivation, []byte("test-secret"), -time.Hour)
		require.NoError(t, err)

		_, err = f.service.Verify(ctx, token)

		assert.ErrorIs(t, err, common.ErrTokenExpired)
	})

	t.Run("wrong audience", func(t *testing.T) {
		f := newActivationFixture(t)
		token, err := auth.GenerateToken(f.order.ID, auth.AudienceSession, []byte("test-secret"), time.Hour)
		require.NoError(t, err)

		_, err = f.service.Verify(ctx, token)

		assert.ErrorIs(t, err, common.ErrTokenInvalid)
	})

	t.Run("order gone", func(t *testing.T) {
		f := newActivationFixture(t)
		token, err := auth.GenerateToken("missing-order", auth.AudienceActivation, []byte("test-secret"), time.Hour)
		require.NoError(t, err)

		_, err = f.service.Verify(ctx, token)

		assert.ErrorIs(t, err, common.ErrTokenInvalid)
	})

	t.Run("already processed order", func(t *testing.T) {
		f := newActivationFixture(t)
		require.NoError(t, f.repos.pendingRepo.MarkProcessed(ctx, f.order.ID))

		_, err := f.service.Verify(ctx, f.token(t))

		assert.ErrorIs(t, err, common.ErrTokenAlreadyUsed)
	})

	t.Run("user missing", func(t *testing.T) {
		f := newActivationFixture(t)
		require.NoError(t, f.repos.pendingRepo.LinkUser(ctx, f.order.ID, "nobody"))

		_, err := f.service.Verify(ctx, f.token(t))

		assert.ErrorIs(t, err, common.ErrUserNotFound)
	})

	t.Run("already active user reported, not consumed", func(t *testing.T) {
		f := newActivationFixture(t)
		require.NoError(t, f.repos.userRepo.Activate(ctx, f.user.ID, nil))

		result, err := f.service.Verify(ctx, f.token(t))

		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.True(t, result.IsAlreadyActive)
	})
}

func TestActivate(t *testing.T) {
	ctx := context.Background()

	t.Run("success without password", func(t *testing.T) {
		f := newActivationFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()

		result, err := f.service.Activate(ctx, f.token(t), "")

		require.NoError(t, err)
		assert.True(t, result.User.Active)
		assert.Equal(t, "/dashboard", result.RedirectURL)

		subject, _, err := auth.ParseToken(result.SessionToken, auth.AudienceSession, []byte("test-secret"))
		require.NoError(t, err)
		assert.Equal(t, f.user.ID, subject)

		stored, err := f.repos.userRepo.GetByID(ctx, f.user.ID)
		require.NoError(t, err)
		assert.True(t, stored.Active)
		assert.Nil(t, stored.PasswordHash)

		order, err := f.repos.pendingRepo.GetByID(ctx, f.order.ID)
		require.NoError(t, err)
		assert.True(t, order.Processed)

		require.Len(t, f.repos.orderRepo.orders, 1)
		materialized := f.repos.orderRepo.orders[0]
		assert.Equal(t, f.user.ID, materialized.UserID)
		assert.Equal(t, f.order.ID, materialized.PendingOrderID)
		assert.Equal(t, int64(24900), materialized.AmountCents)
		assert.Equal(t, models.OrderStatusPaid, materialized.Status)

		assert.Len(t, f.mailer.adminSubjects, 1)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("success with password", func(t *testing.T) {
		f := newActivationFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()

		_, err := f.service.Activate(ctx, f.token(t), "s3cret-enough")

		require.NoError(t, err)
		stored, err := f.repos.userRepo.GetByID(ctx, f.user.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*stored.PasswordHash), []byte("s3cret-enough")))
	})

	t.Run("password too short", func(t *testing.T) {
		f := newActivationFixture(t)

		_, err := f.service.Activate(ctx, f.token(t), "short")

		var verr *common.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "password")

		stored, err := f.repos.userRepo.GetByID(ctx, f.user.ID)
		require.NoError(t, err)
		assert.False(t, stored.Active)
	})

	t.Run("already active", func(t *testing.T) {
		f := newActivationFixture(t)
		require.NoError(t, f.repos.userRepo.Activate(ctx, f.user.ID, nil))

		_, err := f.service.Activate(ctx, f.token(t), "")

		assert.ErrorIs(t, err, common.ErrAlreadyActivated)
	})

	t.Run("second activation rejected", func(t *testing.T) {
		f := newActivationFixture(t)
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()

		token := f.token(t)
		_, err := f.service.Activate(ctx, token, "")
		require.NoError(t, err)

		_, err = f.service.Activate(ctx, token, "")

		assert.ErrorIs(t, err, common.ErrTokenAlreadyUsed)
	})

	t.Run("lost mark race rolls back", func(t *testing.T) {
		f := newActivationFixture(t)
		f.repos.pendingRepo.markProcessedErr = common.ErrAlreadyProcessed
		f.mock.ExpectBegin()
		f.mock.ExpectRollback()

		_, err := f.service.Activate(ctx, f.token(t), "")

		assert.ErrorIs(t, err, common.ErrAlreadyProcessed)

		stored, gerr := f.repos.userRepo.GetByID(ctx, f.user.ID)
		require.NoError(t, gerr)
		assert.False(t, stored.Active)
		assert.Empty(t, f.repos.orderRepo.orders)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("racing consumers see exactly one success", func(t *testing.T) {
		repo := newFakePendingOrderRepo()
		_, err := repo.Create(ctx, &models.PendingOrder{ID: "po-race"})
		require.NoError(t, err)

		const callers = 16
		results := make(chan error, callers)

		var ready, done sync.WaitGroup
		ready.Add(1)
		for i := 0; i < callers; i++ {
			done.Add(1)
			go func() {
				defer done.Done()
				ready.Wait()
				results <- repo.MarkProcessed(ctx, "po-race")
			}()
		}
		ready.Done()
		done.Wait()
		close(results)

		var succeeded, alreadyProcessed int
		for err := range results {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, common.ErrAlreadyProcessed):
				alreadyProcessed++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, callers-1, alreadyProcessed)
	})

	t.Run("unlinked order gets linked", func(t *testing.T) {
		f := newActivationFixture(t)
		f.repos.pendingRepo.orders[f.order.ID].UserID = nil
		f.order.UserID = nil
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()

		_, err := f.service.Activate(ctx, f.token(t), "")

		require.NoError(t, err)
		order, err := f.repos.pendingRepo.GetByID(ctx, f.order.ID)
		require.NoError(t, err)
		require.NotNil(t, order.UserID)
		assert.Equal(t, f.user.ID, *order.UserID)
	})

	t.Run("files handed over", func(t *testing.T) {
		f := newActivationFixture(t)
		orderID := f.order.ID
		_, err := f.repos.fileRepo.Create(ctx, &models.UploadedFile{
			ID:             "file-1",
			OwnerID:        models.SentinelCustodianID,
			PendingOrderID: &orderID,
		})
		require.NoError(t, err)
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()

		_, err = f.service.Activate(ctx, f.token(t), "")

		require.NoError(t, err)
		file := f.repos.fileRepo.files["file-1"]
		assert.Equal(t, f.user.ID, file.OwnerID)
		assert.Nil(t, file.PendingOrderID)
		require.NotNil(t, file.OrderID)
	})
}
