package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"

	"github.com/corrigo/corrigo/internal/common"
	"github.com/corrigo/corrigo/internal/dbx"
	"github.com/corrigo/corrigo/internal/logging"
	"github.com/corrigo/corrigo/internal/server/models"
	"github.com/corrigo/corrigo/internal/server/payment"
	"github.com/corrigo/corrigo/internal/server/repositories/files"
	"github.com/corrigo/corrigo/internal/server/repositories/offerings"
	"github.com/corrigo/corrigo/internal/server/repositories/orders"
	"github.com/corrigo/corrigo/internal/server/repositories/pendingorders"
	"github.com/corrigo/corrigo/internal/server/repositories/users"
	"github.com/corrigo/corrigo/internal/server/repositories/webhookevents"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// In-memory repositories. They ignore the DBTX handle, so transactional and
// plain calls hit the same state.

type fakeUserRepo struct {
	mu        sync.Mutex
	users     map[string]*models.User
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*models.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, common.ErrDuplicateEmail
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return &clone, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeUserRepo) Activate(ctx context.Context, id string, passwordHash *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return common.ErrNotFound
	}
	u.Active = true
	if passwordHash != nil {
		u.PasswordHash = passwordHash
	}
	return nil
}

type fakePendingOrderRepo struct {
	mu               sync.Mutex
	orders           map[string]*models.PendingOrder
	createErr        error
	deleteErr        error
	markProcessedErr error
	deleted          []string
}

func newFakePendingOrderRepo() *fakePendingOrderRepo {
	return &fakePendingOrderRepo{orders: map[string]*models.PendingOrder{}}
}

func (r *fakePendingOrderRepo) Create(ctx context.Context, order *models.PendingOrder) (*models.PendingOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	clone := *order
	r.orders[order.ID] = &clone
	return &clone, nil
}

func (r *fakePendingOrderRepo) GetByID(ctx context.Context, id string) (*models.PendingOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (r *fakePendingOrderRepo) GetByEmail(ctx context.Context, email string) (*models.PendingOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.Email == email && !o.Processed {
			clone := *o
			return &clone, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakePendingOrderRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.PendingOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.CheckoutSessionID != nil && *o.CheckoutSessionID == sessionID {
			clone := *o
			return &clone, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakePendingOrderRepo) AttachCheckoutSession(ctx context.Context, id, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return common.ErrNotFound
	}
	o.CheckoutSessionID = &sessionID
	return nil
}

func (r *fakePendingOrderRepo) LinkUser(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return common.ErrNotFound
	}
	o.UserID = &userID
	return nil
}

func (r *fakePendingOrderRepo) MarkProcessed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markProcessedErr != nil {
		return r.markProcessedErr
	}
	o, ok := r.orders[id]
	if !ok {
		return common.ErrNotFound
	}
	if o.Processed {
		return common.ErrAlreadyProcessed
	}
	o.Processed = true
	return nil
}

func (r *fakePendingOrderRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.orders[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.orders, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type fakeFileRepo struct {
	mu        sync.Mutex
	files     map[string]*models.UploadedFile
	createErr error
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: map[string]*models.UploadedFile{}}
}

func (r *fakeFileRepo) Create(ctx context.Context, file *models.UploadedFile) (*models.UploadedFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	clone := *file
	r.files[file.ID] = &clone
	return &clone, nil
}

func (r *fakeFileRepo) ListByPendingOrder(ctx context.Context, pendingOrderID string) ([]*models.UploadedFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.UploadedFile
	for _, f := range r.files {
		if f.PendingOrderID != nil && *f.PendingOrderID == pendingOrderID {
			clone := *f
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) DeleteByPendingOrder(ctx context.Context, pendingOrderID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for id, f := range r.files {
		if f.PendingOrderID != nil && *f.PendingOrderID == pendingOrderID {
			delete(r.files, id)
			removed++
		}
	}
	return removed, nil
}

func (r *fakeFileRepo) Reassign(ctx context.Context, pendingOrderID, ownerID, orderID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var moved int64
	for _, f := range r.files {
		if f.PendingOrderID != nil && *f.PendingOrderID == pendingOrderID {
			f.OwnerID = ownerID
			f.OrderID = &orderID
			f.PendingOrderID = nil
			moved++
		}
	}
	return moved, nil
}

type fakeOfferingRepo struct {
	offerings map[string]*models.ServiceOffering
}

func newFakeOfferingRepo(items ...*models.ServiceOffering) *fakeOfferingRepo {
	r := &fakeOfferingRepo{offerings: map[string]*models.ServiceOffering{}}
	for _, o := range items {
		r.offerings[o.ID] = o
	}
	return r
}

func (r *fakeOfferingRepo) GetActiveByID(ctx context.Context, id string) (*models.ServiceOffering, error) {
	o, ok := r.offerings[id]
	if !ok || !o.Active {
		return nil, common.ErrServiceNotFound
	}
	clone := *o
	return &clone, nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders []*models.Order
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *order
	r.orders = append(r.orders, &clone)
	return &clone, nil
}

type fakeWebhookEventRepo struct {
	mu        sync.Mutex
	seen      map[string]bool
	processed map[string]string
}

func newFakeWebhookEventRepo() *fakeWebhookEventRepo {
	return &fakeWebhookEventRepo{seen: map[string]bool{}, processed: map[string]string{}}
}

func (r *fakeWebhookEventRepo) Insert(ctx context.Context, provider, eventID, eventType string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := provider + ":" + eventID
	if r.seen[key] {
		return false, nil
	}
	r.seen[key] = true
	return true, nil
}

func (r *fakeWebhookEventRepo) MarkProcessed(ctx context.Context, provider, eventID, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed[provider+":"+eventID] = processingError
	return nil
}

// fakeRepoManager vends the in-memory repositories regardless of the handle.
type fakeRepoManager struct {
	userRepo     *fakeUserRepo
	pendingRepo  *fakePendingOrderRepo
	fileRepo     *fakeFileRepo
	offeringRepo *fakeOfferingRepo
	orderRepo    *fakeOrderRepo
	eventRepo    *fakeWebhookEventRepo
}

func newFakeRepoManager(items ...*models.ServiceOffering) *fakeRepoManager {
	return &fakeRepoManager{
		userRepo:     newFakeUserRepo(),
		pendingRepo:  newFakePendingOrderRepo(),
		fileRepo:     newFakeFileRepo(),
		offeringRepo: newFakeOfferingRepo(items...),
		orderRepo:    &fakeOrderRepo{},
		eventRepo:    newFakeWebhookEventRepo(),
	}
}

func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                  { return m.userRepo }
func (m *fakeRepoManager) PendingOrders(db dbx.DBTX) pendingorders.Repository  { return m.pendingRepo }
func (m *fakeRepoManager) Files(db dbx.DBTX) files.Repository                  { return m.fileRepo }
func (m *fakeRepoManager) Offerings(db dbx.DBTX) offerings.Repository          { return m.offeringRepo }
func (m *fakeRepoManager) Orders(db dbx.DBTX) orders.Repository                { return m.orderRepo }
func (m *fakeRepoManager) WebhookEvents(db dbx.DBTX) webhookevents.Repository  { return m.eventRepo }

// External collaborator fakes.

type fakeGateway struct {
	session    *payment.CheckoutSession
	err        error
	lastParams payment.CheckoutParams
	calls      int
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, params payment.CheckoutParams) (*payment.CheckoutSession, error) {
	g.calls++
	g.lastParams = params
	if g.err != nil {
		return nil, g.err
	}
	return g.session, nil
}

type fakeVerifier struct {
	event *payment.Event
	err   error
}

func (v *fakeVerifier) VerifyEvent(payload []byte, signatureHeader string) (*payment.Event, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.event, nil
}

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string]string
	putErr  error
	deleted []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string]string{}}
}

func (b *fakeBlobStore) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return b.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.objects[key] = string(data)
	return nil
}

func (b *fakeBlobStore) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

type fakeMailer struct {
	mu             sync.Mutex
	activationTo   []string
	activationURLs []string
	adminSubjects  []string
	sendErr        error
}

func (m *fakeMailer) SendActivationLink(ctx context.Context, to, firstName, activationURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.activationTo = append(m.activationTo, to)
	m.activationURLs = append(m.activationURLs, activationURL)
	return nil
}

func (m *fakeMailer) SendAdminNotification(ctx context.Context, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.adminSubjects = append(m.adminSubjects, subject)
	return nil
}
