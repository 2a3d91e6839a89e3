// Package model defines the request and response payloads used by the API.
// It keeps transport-level types in one place for reuse.
package model

// EventTypeOnline marks an event with no physical venue.
const EventTypeOnline = "Online"

// EventSubmission is the flat "new event" payload fanned out by the pipeline.
// It is treated as immutable for the duration of one run.
type EventSubmission struct {
	Name              string             `json:"name" validate:"required"`
	Description       string             `json:"description,omitempty"`
	EventType         string             `json:"event_type" validate:"required"` // "Online" | "Presencial" | "Hibrido"
	CategoryID        string             `json:"category_id,omitempty"`
	StartDate         string             `json:"start_date" validate:"required,datetime=2006-01-02"`
	StartTime         string             `json:"start_time" validate:"required,datetime=15:04"`
	EndDate           string             `json:"end_date" validate:"required,datetime=2006-01-02"`
	EndTime           string             `json:"end_time" validate:"required,datetime=15:04"`
	MaxTicketsPerUser int                `json:"max_tickets_per_user,omitempty" validate:"gte=0"`
	GeneralInfo       string             `json:"general_information,omitempty"`
	Address           *AddressInput      `json:"address,omitempty"`
	Banner            *BannerInput       `json:"banner,omitempty"`
	Tickets           []TicketInput      `json:"tickets,omitempty" validate:"dive"`
	CustomFields      []CustomFieldInput `json:"custom_fields,omitempty" validate:"dive"`
	Coupons           []CouponInput      `json:"coupons,omitempty" validate:"dive"`
}

// IsOnline reports whether the event has no physical address.
func (s EventSubmission) IsOnline() bool { return s.EventType == EventTypeOnline }

// AddressInput is the venue of a non-online event.
type AddressInput struct {
	Street       string   `json:"street" validate:"required"`
	Number       string   `json:"number" validate:"required"`
	Neighborhood string   `json:"neighborhood" validate:"required"`
	City         string   `json:"city" validate:"required"`
	State        string   `json:"state" validate:"required"`
	Zip          string   `json:"zip" validate:"required"`
	Complement   string   `json:"complement,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

// BannerInput carries the binary banner image. Content is base64 in JSON.
type BannerInput struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Content     []byte `json:"content"`
}

// TicketInput describes one ticket to create. Names are unique per submission.
type TicketInput struct {
	Name         string `json:"name" validate:"required"`
	Price        string `json:"price" validate:"required"` // locale decimal, "10,50"
	Quantity     int    `json:"quantity" validate:"gt=0"`
	MinPurchase  int    `json:"min_purchase" validate:"gt=0"`
	MaxPurchase  int    `json:"max_purchase,omitempty" validate:"gte=0"`
	StartDate    string `json:"start_date" validate:"required,datetime=2006-01-02"`
	StartTime    string `json:"start_time" validate:"required,datetime=15:04"`
	EndDate      string `json:"end_date" validate:"required,datetime=2006-01-02"`
	EndTime      string `json:"end_time" validate:"required,datetime=15:04"`
	Availability string `json:"availability,omitempty"`
	Category     string `json:"category,omitempty"`
	DisplayOrder int    `json:"display_order,omitempty"`
}

// Checkout field option flags.
const (
	OptionRequired        = "required"
	OptionVisibleOnTicket = "visible_on_ticket"
	OptionUnique          = "is_unique"
)

// CustomFieldInput is a checkout question asked per assigned person type.
// Display order follows the order of fields and person types in the submission.
type CustomFieldInput struct {
	Name        string   `json:"name" validate:"required"`
	Type        string   `json:"type" validate:"required"`
	PersonTypes []string `json:"person_types" validate:"min=1"`
	Options     []string `json:"options,omitempty"`
	Tickets     []string `json:"tickets,omitempty"`
}

// HasOption reports whether the named option flag is set.
func (f CustomFieldInput) HasOption(name string) bool {
	for _, o := range f.Options {
		if o == name {
			return true
		}
	}
	return false
}

// Discount types accepted for coupons.
const (
	DiscountPercentage = "PERCENTAGE"
	DiscountFixed      = "FIXED"
)

// CouponInput is a discount code, global when Tickets is empty.
type CouponInput struct {
	Code          string   `json:"code" validate:"required"`
	DiscountType  string   `json:"discount_type" validate:"required,oneof=PERCENTAGE FIXED"`
	DiscountValue string   `json:"discount_value" validate:"required"` // locale decimal
	MaxUses       int      `json:"max_uses" validate:"gt=0"`
	StartDate     string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	StartTime     string   `json:"start_time" validate:"required,datetime=15:04"`
	EndDate       string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	EndTime       string   `json:"end_time" validate:"required,datetime=15:04"`
	Tickets       []string `json:"tickets,omitempty"`
}

// IsGlobal reports whether the coupon applies event-wide.
func (c CouponInput) IsGlobal() bool { return len(c.Tickets) == 0 }
