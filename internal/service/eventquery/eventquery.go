// Package eventquery reads events and their tickets back from the remote API.
//
// Unlike the submission pipeline, lookups here never fail: any error is logged
// and answered with a FIND_NOTFOUND result.
package eventquery

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/gateway"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/logging"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/shared"
)

var eventPreloads = []string{
	"rating",
	"tickets:status",
	"status",
	"address:city:state",
	"category",
	"attachments",
}

// Result is a lookup answer. Code is SEARCH_SUCCESS or FIND_NOTFOUND.
type Result[T any] struct {
	Code  gateway.Code `json:"code"`
	Data  T            `json:"data"`
	Total int          `json:"total"`
}

// Found reports whether the lookup succeeded.
func (r Result[T]) Found() bool { return r.Code == gateway.CodeSearchSuccess }

// Named is a preloaded record referenced by id and name.
type Named struct {
	ID   gateway.ID `json:"id"`
	Name string     `json:"name"`
}

// Address is the preloaded venue of an event.
type Address struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Neighborhood string `json:"neighborhood"`
	City         struct {
		Name  string `json:"name"`
		State struct {
			Name string `json:"name"`
		} `json:"state"`
	} `json:"city"`
}

// Attachment is a file linked to an event.
type Attachment struct {
	ID   gateway.ID `json:"id"`
	Type string     `json:"type"`
	URL  string     `json:"url"`
}

// Event is one event record with its derived location.
type Event struct {
	ID          gateway.ID   `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	EventType   string       `json:"event_type,omitempty"`
	StartDate   string       `json:"start_date,omitempty"`
	EndDate     string       `json:"end_date,omitempty"`
	Status      *Named       `json:"status,omitempty"`
	Category    *Named       `json:"category,omitempty"`
	Address     *Address     `json:"address,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Location    string       `json:"location,omitempty"`
}

// Category is a ticket category in option form.
type Category struct {
	ID    gateway.ID `json:"id"`
	Value string     `json:"value"`
	Text  string     `json:"text"`
}

// Ticket is a stored ticket with its timestamps split back into date and time.
type Ticket struct {
	ID           gateway.ID `json:"id"`
	Name         string     `json:"name"`
	Price        float64    `json:"price"`
	Quantity     int        `json:"quantity"`
	MinPurchase  int        `json:"min_purchase"`
	MaxPurchase  int        `json:"max_purchase"`
	Availability string     `json:"availability,omitempty"`
	DisplayOrder int        `json:"display_order"`
	Category     *Category  `json:"category"`
	StartDate    string     `json:"start_date"`
	StartTime    string     `json:"start_time"`
	EndDate      string     `json:"end_date"`
	EndTime      string     `json:"end_time"`
}

type storedTicket struct {
	ID                 gateway.ID `json:"id"`
	Name               string     `json:"name"`
	Price              float64    `json:"price"`
	TotalQuantity      int        `json:"total_quantity"`
	MinQuantityPerUser int        `json:"min_quantity_per_user"`
	MaxQuantityPerUser int        `json:"max_quantity_per_user"`
	Availability       string     `json:"availability"`
	DisplayOrder       int        `json:"display_order"`
	StartDate          string     `json:"start_date"`
	EndDate            string     `json:"end_date"`
	Category           *Named     `json:"category"`
}

// Service answers event and ticket lookups.
type Service struct {
	gw     gateway.Gateway
	logger *zap.Logger
}

// New returns a Service. A nil logger discards failure logs.
func New(gw gateway.Gateway, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{gw: gw, logger: logger}
}

// List returns every event ordered by name.
func (s *Service) List(ctx context.Context) Result[[]Event] {
	q := preloaded()
	q.Add("orderBy[]", "name:asc")

	var events []Event
	if err := s.search(ctx, gateway.ResourceEvents, q, &events); err != nil {
		logging.Warn(ctx, s.logger, "list events failed", zap.Error(err))
		return Result[[]Event]{Code: gateway.CodeFindNotFound}
	}
	for i := range events {
		events[i].Location = events[i].Address.Location()
	}
	return Result[[]Event]{Code: gateway.CodeSearchSuccess, Data: events, Total: len(events)}
}

// Get returns the event with id.
func (s *Service) Get(ctx context.Context, id string) Result[*Event] {
	q := preloaded()
	for k, v := range gateway.Where("id", id) {
		q[k] = v
	}

	var events []Event
	err := s.search(ctx, gateway.ResourceEvents, q, &events)
	if err == nil && len(events) == 0 {
		err = fmt.Errorf("event %s not found", id)
	}
	if err != nil {
		logging.Warn(ctx, s.logger, "get event failed", zap.String("event_id", id), zap.Error(err))
		return Result[*Event]{Code: gateway.CodeFindNotFound}
	}
	ev := events[0]
	ev.Location = ev.Address.Location()
	return Result[*Event]{Code: gateway.CodeSearchSuccess, Data: &ev, Total: 1}
}

// Tickets returns the tickets of an event with their categories.
func (s *Service) Tickets(ctx context.Context, eventID string) Result[[]Ticket] {
	q := gateway.Where("event_id", eventID)
	q.Add("preloads[]", "category")

	var stored []storedTicket
	if err := s.search(ctx, gateway.ResourceTickets, q, &stored); err != nil {
		logging.Warn(ctx, s.logger, "list tickets failed", zap.String("event_id", eventID), zap.Error(err))
		return Result[[]Ticket]{Code: gateway.CodeFindNotFound}
	}

	tickets := make([]Ticket, 0, len(stored))
	for _, st := range stored {
		t := Ticket{
			ID:           st.ID,
			Name:         st.Name,
			Price:        st.Price,
			Quantity:     st.TotalQuantity,
			MinPurchase:  st.MinQuantityPerUser,
			MaxPurchase:  st.MaxQuantityPerUser,
			Availability: st.Availability,
			DisplayOrder: st.DisplayOrder,
		}
		if st.Category != nil {
			t.Category = &Category{ID: st.Category.ID, Value: st.Category.Name, Text: st.Category.Name}
		}
		t.StartDate, t.StartTime = shared.SplitDateTime(st.StartDate)
		t.EndDate, t.EndTime = shared.SplitDateTime(st.EndDate)
		tickets = append(tickets, t)
	}
	return Result[[]Ticket]{Code: gateway.CodeSearchSuccess, Data: tickets, Total: len(tickets)}
}

// Location renders "street, number - neighborhood, city - state", or "" for
// an event without an address.
func (a *Address) Location() string {
	if a == nil {
		return ""
	}
	return fmt.Sprintf("%s, %s - %s, %s - %s", a.Street, a.Number, a.Neighborhood, a.City.Name, a.City.State.Name)
}

func (s *Service) search(ctx context.Context, resource string, q url.Values, v any) error {
	env, err := s.gw.Search(ctx, resource, q)
	if err != nil {
		return err
	}
	return gateway.Classify(env, gateway.CodeSearchSuccess).Records(v)
}

func preloaded() url.Values {
	q := url.Values{}
	for _, p := range eventPreloads {
		q.Add("preloads[]", p)
	}
	return q
}
