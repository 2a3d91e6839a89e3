package gateway

import (
	"context"
	"net/url"
)

// Remote resource collections.
const (
	ResourceAddress           = "address"
	ResourceEvent             = "event"
	ResourceEvents            = "events"
	ResourceAttachment        = "event-attachment"
	ResourceUpload            = "upload"
	ResourceTicket            = "ticket"
	ResourceTickets           = "tickets"
	ResourceTicketCategory    = "ticket-event-category"
	ResourceCheckoutField     = "event-checkout-field"
	ResourceCheckoutFieldLink = "event-checkout-field-ticket"
	ResourceCoupon            = "coupon"
	ResourceCouponTicket      = "coupon-ticket"
	ResourceStatuses          = "statuses"
)

// Gateway performs single named operations against remote collections.
// Transport failures are returned as errors; domain failures are carried
// by the envelope and left to Classify.
type Gateway interface {
	Create(ctx context.Context, resource string, payload any) (*Envelope, error)
	Update(ctx context.Context, resource, id string, payload any) (*Envelope, error)
	Delete(ctx context.Context, resource, id string) (*Envelope, error)
	Search(ctx context.Context, resource string, query url.Values) (*Envelope, error)
	Upload(ctx context.Context, attachmentID string, file File) (*Envelope, error)
}

// File is binary content sent as multipart form data.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// Where builds the where[field][v]=value filter understood by search endpoints.
func Where(pairs ...string) url.Values {
	q := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		q.Set("where["+pairs[i]+"][v]", pairs[i+1])
	}
	return q
}
