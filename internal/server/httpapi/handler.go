// Package httpapi exposes the public HTTP surface of the pipeline: guest
// order submission, pending-order lookup, activation and the payment
// webhook. All routes are unauthenticated by design.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/corrigo/corrigo/internal/common"
	"github.com/corrigo/corrigo/internal/logging"
	"github.com/corrigo/corrigo/internal/server/models"
	"github.com/corrigo/corrigo/internal/server/services"
)

// Request size limits.
const (
	maxMultipartMemory = 32 << 20  // 32 MiB buffered in memory, rest spills to disk
	maxWebhookBody     = 256 << 10 // 256 KiB
)

var filePartPattern = regexp.MustCompile(`^file_(\d+)$`)

// Handler holds the service dependencies of the HTTP surface.
type Handler struct {
	orders     *services.OrderService
	activation *services.ActivationService
	webhook    *services.WebhookService
	logger     logging.Logger
}

func NewHandler(orders *services.OrderService, activation *services.ActivationService,
	webhook *services.WebhookService, logger logging.Logger) *Handler {
	return &Handler{
		orders:     orders,
		activation: activation,
		webhook:    webhook,
		logger:     logger.With("module", "httpapi"),
	}
}

// CreateOrder accepts the multipart guest order submission.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart payload"})
		return
	}

	sub, verr := decodeOrderForm(r)
	if verr != nil {
		h.writeError(r, w, verr)
		return
	}

	attachments, closers, err := collectAttachments(r)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid attachment"})
		return
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	result, err := h.orders.CreateGuestOrder(r.Context(), *sub, attachments)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"pendingOrderId": result.PendingOrderID,
		"sessionId":      result.SessionID,
		"checkoutUrl":    result.CheckoutURL,
		"uploadedFiles":  result.UploadedFiles,
	})
}

// GetOrder returns a sanitized snapshot of a pending order.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing order id"})
		return
	}

	order, err := h.orders.GetPendingOrder(r.Context(), id)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, sanitizeOrder(order))
}

// Activate consumes the activation token without setting a password.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	h.activate(w, r, "")
}

// SetPassword consumes the activation token and stores a client-chosen
// password.
func (h *Handler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if verr := services.ValidatePassword(req.Password); verr != nil {
		h.writeError(r, w, verr)
		return
	}
	h.activate(w, r, req.Password)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request, password string) {
	token := chi.URLParam(r, "token")
	if token == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing token"})
		return
	}

	result, err := h.activation.Activate(r.Context(), token, password)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"user":        result.User,
		"token":       result.SessionToken,
		"redirectUrl": result.RedirectURL,
	})
}

// VerifyToken is the non-consuming pre-check for the activation UI.
func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing token"})
		return
	}

	result, err := h.activation.Verify(r.Context(), token)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"valid":           result.Valid,
		"user":            result.User,
		"isAlreadyActive": result.IsAlreadyActive,
		"expiresAt":       result.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// PaymentWebhook receives gateway notifications.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable payload"})
		return
	}

	if err := h.webhook.HandlePaymentEvent(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		h.writeError(r, w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// decodeOrderForm coerces the multipart form fields into a submission.
// Wire-level coercion failures are reported per field, like validation
// failures.
func decodeOrderForm(r *http.Request) (*services.OrderSubmission, error) {
	sub := &services.OrderSubmission{
		FirstName:   r.FormValue("firstName"),
		LastName:    r.FormValue("lastName"),
		Email:       r.FormValue("email"),
		Phone:       r.FormValue("phone"),
		OfferingID:  r.FormValue("serviceId"),
		Description: r.FormValue("description"),
	}

	fields := map[string]string{}

	if v := r.FormValue("pages"); v != "" {
		pages, err := strconv.Atoi(v)
		if err != nil {
			fields["pages"] = "must be a number"
		} else {
			sub.Pages = &pages
		}
	}
	if v := r.FormValue("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fields["price"] = "must be a number"
		} else {
			sub.Price = &price
		}
	}
	if v := r.FormValue("consent"); v != "" {
		consent, err := strconv.ParseBool(v)
		if err != nil {
			fields["consent"] = "must be a boolean"
		} else {
			sub.Consent = consent
		}
	}

	if len(fields) > 0 {
		return nil, common.NewValidationError(fields)
	}
	return sub, nil
}

// collectAttachments gathers file parts named file_<i> together with their
// out-of-band metadata fields file_<i>_title / file_<i>_description. The
// index in the field name, not the part order, pairs file and metadata.
func collectAttachments(r *http.Request) ([]services.Attachment, []io.Closer, error) {
	if r.MultipartForm == nil {
		return nil, nil, nil
	}

	seen := map[int]bool{}
	var indexes []int
	for name := range r.MultipartForm.File {
		if m := filePartPattern.FindStringSubmatch(name); m != nil {
			idx, _ := strconv.Atoi(m[1])
			if !seen[idx] {
				seen[idx] = true
				indexes = append(indexes, idx)
			}
		}
	}
	sort.Ints(indexes)

	var attachments []services.Attachment
	var closers []io.Closer
	for _, idx := range indexes {
		headers := r.MultipartForm.File[fmt.Sprintf("file_%d", idx)]
		if len(headers) == 0 {
			continue
		}
		header := headers[0]

		f, err := header.Open()
		if err != nil {
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, nil, err
		}
		closers = append(closers, f)

		attachments = append(attachments, services.Attachment{
			Filename:    header.Filename,
			MimeType:    header.Header.Get("Content-Type"),
			SizeBytes:   header.Size,
			Title:       r.FormValue(fmt.Sprintf("file_%d_title", idx)),
			Description: r.FormValue(fmt.Sprintf("file_%d_description", idx)),
			Content:     f,
		})
	}

	return attachments, closers, nil
}

// sanitizeOrder strips internal fields from a pending-order snapshot.
func sanitizeOrder(order *models.PendingOrder) map[string]any {
	return map[string]any{
		"id":          order.ID,
		"firstName":   order.FirstName,
		"lastName":    order.LastName,
		"email":       order.Email,
		"phone":       order.Phone,
		"serviceId":   order.OfferingID,
		"pages":       order.Pages,
		"description": order.Description,
		"processed":   order.Processed,
		"createdAt":   order.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps pipeline errors onto the HTTP contract. Anything
// unexpected is logged with context and collapsed to a generic 500.
func (h *Handler) writeError(r *http.Request, w http.ResponseWriter, err error) {
	var verr *common.ValidationError
	if errors.As(err, &verr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, common.ErrDuplicateEmail):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, common.ErrServiceNotFound),
		errors.Is(err, common.ErrUserNotFound),
		errors.Is(err, common.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, common.ErrTokenInvalid),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenAlreadyUsed),
		errors.Is(err, common.ErrAlreadyProcessed),
		errors.Is(err, common.ErrAlreadyActivated),
		errors.Is(err, common.ErrWebhookSignature):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, common.ErrPaymentGateway):
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		h.logger.Error(r.Context(), "unexpected error", "path", r.URL.Path, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
