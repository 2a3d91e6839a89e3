// Package apperr defines the failure taxonomy of an event submission.
//
// Every step failure is a *StepError carrying a classification kind, the
// remote resource it concerned and, where known, the submission-supplied
// name that identified the input (ticket name, coupon code, field name).
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kinds reported by Kind and carried by StepError.
const (
	KindStatusNotFound         = "status_not_found"
	KindAddressCreateFailed    = "address_create_failed"
	KindEventCreateFailed      = "event_create_failed"
	KindAttachmentCreateFailed = "attachment_create_failed"
	KindUploadFailed           = "upload_failed"
	KindBannerUpdateFailed     = "banner_update_failed"
	KindCategoryCreateFailed   = "category_create_failed"
	KindTicketCreateFailed     = "ticket_create_failed"
	KindCheckoutFieldFailed    = "checkout_field_create_failed"
	KindCustomFieldsFailed     = "custom_fields_create_failed"
	KindCouponCreateFailed     = "coupon_create_failed"
	KindRelationCreateFailed   = "relation_create_failed"
	KindUnknownTicket          = "unknown_ticket"
	KindInvalidInput           = "invalid_input"
	KindGatewayUnavailable     = "gateway_unavailable"
	KindTimeout                = "timeout"
	KindCanceled               = "canceled"
	KindInternal               = "internal"
)

// Sentinels for errors.Is checks. A StepError matches the sentinel of its kind.
var (
	ErrStatusNotFound         = &StepError{Kind: KindStatusNotFound}
	ErrAddressCreateFailed    = &StepError{Kind: KindAddressCreateFailed}
	ErrEventCreateFailed      = &StepError{Kind: KindEventCreateFailed}
	ErrAttachmentCreateFailed = &StepError{Kind: KindAttachmentCreateFailed}
	ErrUploadFailed           = &StepError{Kind: KindUploadFailed}
	ErrBannerUpdateFailed     = &StepError{Kind: KindBannerUpdateFailed}
	ErrCategoryCreateFailed   = &StepError{Kind: KindCategoryCreateFailed}
	ErrTicketCreateFailed     = &StepError{Kind: KindTicketCreateFailed}
	ErrCheckoutFieldFailed    = &StepError{Kind: KindCheckoutFieldFailed}
	ErrCustomFieldsFailed     = &StepError{Kind: KindCustomFieldsFailed}
	ErrCouponCreateFailed     = &StepError{Kind: KindCouponCreateFailed}
	ErrRelationCreateFailed   = &StepError{Kind: KindRelationCreateFailed}
	ErrUnknownTicket          = &StepError{Kind: KindUnknownTicket}
	ErrInvalidInput           = &StepError{Kind: KindInvalidInput}

	// ErrGatewayUnavailable is returned by the gateway client while its
	// circuit breaker is open.
	ErrGatewayUnavailable = errors.New("gateway unavailable")
)

// StepError is a classified failure of one submission step.
type StepError struct {
	Kind     string
	Resource string
	Name     string
	Err      error
}

// New builds a StepError of the given kind.
func New(kind, resource, name string, cause error) *StepError {
	return &StepError{Kind: kind, Resource: resource, Name: name, Err: cause}
}

func (e *StepError) Error() string {
	msg := e.Kind
	if e.Resource != "" {
		msg += " (" + e.Resource
		if e.Name != "" {
			msg += fmt.Sprintf(" %q", e.Name)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *StepError) Unwrap() error { return e.Err }

// Is reports whether target is a StepError of the same kind.
func (e *StepError) Is(target error) bool {
	t, ok := target.(*StepError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Kind returns the classification of err.
//
// The outermost StepError wins, so a wrapping CustomFieldsCreateFailed is
// reported instead of the CheckoutFieldCreateFailed it wraps.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var se *StepError
	if errors.As(err, &se) {
		return se.Kind
	}
	switch {
	case errors.Is(err, ErrGatewayUnavailable):
		return KindGatewayUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindInternal
	}
}
