// Package services contains server-side business logic for the guest-order
// to activated-account pipeline.
package services

import (
	"regexp"
	"strings"

	"github.com/corrigo/corrigo/internal/common"
)

// Bounds for guest order submissions.
const (
	MaxPages             = 1000
	MaxDescriptionLength = 2000
	MinPasswordLength    = 8
	MaxPasswordLength    = 100
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// OrderSubmission is a raw guest order as decoded from the wire. Numeric and
// boolean coercions from their wire representations are the caller's job.
type OrderSubmission struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	OfferingID  string
	Pages       *int
	Description string
	// Price is an optional client-computed total in major currency units.
	Price   *float64
	Consent bool
}

// ValidateOrderSubmission checks and normalizes a submission in place.
// It returns a ValidationError enumerating every violated field, or nil.
// No side effects.
func ValidateOrderSubmission(sub *OrderSubmission) *common.ValidationError {
	fields := map[string]string{}

	sub.FirstName = strings.TrimSpace(sub.FirstName)
	sub.LastName = strings.TrimSpace(sub.LastName)
	sub.Email = common.NormalizeEmail(sub.Email)
	sub.Phone = strings.TrimSpace(sub.Phone)
	sub.Description = strings.TrimSpace(sub.Description)

	if sub.FirstName == "" {
		fields["firstName"] = "required"
	}
	if sub.LastName == "" {
		fields["lastName"] = "required"
	}
	if sub.Email == "" {
		fields["email"] = "required"
	} else if !emailPattern.MatchString(sub.Email) {
		fields["email"] = "invalid email address"
	}
	if sub.OfferingID == "" {
		fields["serviceId"] = "required"
	}
	if sub.Pages != nil && (*sub.Pages < 1 || *sub.Pages > MaxPages) {
		fields["pages"] = "must be between 1 and 1000"
	}
	if len(sub.Description) > MaxDescriptionLength {
		fields["description"] = "must not exceed 2000 characters"
	}
	if sub.Price != nil && *sub.Price < 0 {
		fields["price"] = "must not be negative"
	}
	if !sub.Consent {
		fields["consent"] = "consent is required"
	}

	if len(fields) > 0 {
		return common.NewValidationError(fields)
	}
	return nil
}

// ValidatePassword enforces the client-chosen password bounds for the
// set-password activation variant.
func ValidatePassword(password string) *common.ValidationError {
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return common.NewValidationError(map[string]string{
			"password": "must be between 8 and 100 characters",
		})
	}
	return nil
}
