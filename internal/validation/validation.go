// Package validation checks an event submission before any remote call is made.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/apperr"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/model"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/shared"
)

// Result lists every problem found in a submission.
type Result struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors,omitempty"`
}

// Err returns nil for a valid result and an invalid_input StepError wrapping
// an *Error otherwise.
func (r Result) Err(name string) error {
	if r.IsValid {
		return nil
	}
	return apperr.New(apperr.KindInvalidInput, "submission", name, &Error{Messages: r.Errors})
}

// Error carries the validation messages of a rejected submission.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return "invalid submission: " + strings.Join(e.Messages, "; ")
}

// Messages returns the validation messages carried by err, if any.
func Messages(err error) []string {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Messages
	}
	return nil
}

// Validator applies struct tags and the cross-field rules of a submission.
// It is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator reporting fields by their JSON names.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Validate checks sub and collects every failure rather than stopping at the first.
func (v *Validator) Validate(sub model.EventSubmission) Result {
	var errs []string
	if err := v.v.Struct(sub); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return Result{Errors: []string{err.Error()}}
		}
		for _, fe := range ves {
			errs = append(errs, format(fe))
		}
	}

	errs = append(errs, checkEvent(sub)...)
	names, ticketErrs := checkTickets(sub.Tickets)
	errs = append(errs, ticketErrs...)
	errs = append(errs, checkFields(sub.CustomFields, names)...)
	errs = append(errs, checkCoupons(sub.Coupons, names)...)

	return Result{IsValid: len(errs) == 0, Errors: errs}
}

// ValidateTicket checks a ticket added to an existing event.
func (v *Validator) ValidateTicket(in model.TicketInput) Result {
	var errs []string
	if err := v.v.Struct(in); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return Result{Errors: []string{err.Error()}}
		}
		for _, fe := range ves {
			errs = append(errs, format(fe))
		}
	}
	_, ticketErrs := checkTickets([]model.TicketInput{in})
	errs = append(errs, ticketErrs...)
	return Result{IsValid: len(errs) == 0, Errors: errs}
}

func format(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must match %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func checkEvent(sub model.EventSubmission) []string {
	var errs []string
	if !sub.IsOnline() && sub.Address == nil {
		errs = append(errs, "address is required for non-online events")
	}
	if sub.Banner != nil && len(sub.Banner.Content) > 0 && sub.Banner.Filename == "" {
		errs = append(errs, "banner.filename is required")
	}
	if msg := checkWindow(sub.StartDate, sub.StartTime, sub.EndDate, sub.EndTime); msg != "" {
		errs = append(errs, "event: "+msg)
	}
	return errs
}

func checkTickets(tickets []model.TicketInput) (map[string]bool, []string) {
	var errs []string
	names := make(map[string]bool, len(tickets))
	for i, t := range tickets {
		label := fmt.Sprintf("ticket %d", i+1)
		if names[t.Name] {
			errs = append(errs, fmt.Sprintf("ticket %q is duplicated", t.Name))
		}
		names[t.Name] = true
		if strings.TrimSpace(t.Name) == "" {
			errs = append(errs, label+": name is required")
		}

		if t.Price != "" {
			if price, err := shared.ParseAmount(t.Price); err != nil {
				errs = append(errs, fmt.Sprintf("%s: price %q is not a number", label, t.Price))
			} else if price < 0 {
				errs = append(errs, label+": price must be greater than or equal to zero")
			}
		}
		if t.MaxPurchase > 0 && t.MaxPurchase < t.MinPurchase {
			errs = append(errs, label+": max purchase must not be lower than min purchase")
		}
		if msg := checkWindow(t.StartDate, t.StartTime, t.EndDate, t.EndTime); msg != "" {
			errs = append(errs, label+": "+msg)
		}
	}
	return names, errs
}

func checkFields(fields []model.CustomFieldInput, tickets map[string]bool) []string {
	var errs []string
	for i, f := range fields {
		for _, name := range f.Tickets {
			if !tickets[name] {
				errs = append(errs, fmt.Sprintf("custom field %d: unknown ticket %q", i+1, name))
			}
		}
	}
	return errs
}

func checkCoupons(coupons []model.CouponInput, tickets map[string]bool) []string {
	var errs []string
	codes := make(map[string]bool, len(coupons))
	for i, c := range coupons {
		label := fmt.Sprintf("coupon %d", i+1)
		if codes[c.Code] {
			errs = append(errs, fmt.Sprintf("coupon %q is duplicated", c.Code))
		}
		codes[c.Code] = true

		if c.DiscountValue != "" {
			value, err := shared.ParseAmount(c.DiscountValue)
			switch {
			case err != nil:
				errs = append(errs, fmt.Sprintf("%s: discount value %q is not a number", label, c.DiscountValue))
			case value <= 0:
				errs = append(errs, label+": discount value must be greater than zero")
			case c.DiscountType == model.DiscountPercentage && value > 100:
				errs = append(errs, label+": percentage discount cannot exceed 100")
			}
		}
		if msg := checkWindow(c.StartDate, c.StartTime, c.EndDate, c.EndTime); msg != "" {
			errs = append(errs, label+": "+msg)
		}
		for _, name := range c.Tickets {
			if !tickets[name] {
				errs = append(errs, fmt.Sprintf("%s: unknown ticket %q", label, name))
			}
		}
	}
	return errs
}

// checkWindow reports an end that is not after the start. Missing or
// malformed parts are left to the struct tags.
func checkWindow(startDate, startTime, endDate, endTime string) string {
	start, err := time.Parse("2006-01-02T15:04", startDate+"T"+startTime)
	if err != nil {
		return ""
	}
	end, err := time.Parse("2006-01-02T15:04", endDate+"T"+endTime)
	if err != nil {
		return ""
	}
	if !end.After(start) {
		return "end must be after start"
	}
	return ""
}
