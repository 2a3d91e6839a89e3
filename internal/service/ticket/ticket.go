// Package ticket creates the tickets of an event together with the ticket
// categories they name.
package ticket

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/errgroup"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/apperr"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/gateway"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/model"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/namemap"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/shared"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/status"
)

type payload struct {
	EventID            string  `json:"event_id"`
	Name               string  `json:"name"`
	TotalQuantity      int     `json:"total_quantity"`
	RemainingQuantity  int     `json:"remaining_quantity"`
	Price              float64 `json:"price"`
	StatusID           string  `json:"status_id"`
	StartDate          string  `json:"start_date"`
	EndDate            string  `json:"end_date"`
	Availability       string  `json:"availability,omitempty"`
	MinQuantityPerUser int     `json:"min_quantity_per_user"`
	MaxQuantityPerUser int     `json:"max_quantity_per_user,omitempty"`
	CategoryID         *string `json:"ticket_event_category_id"`
	DisplayOrder       int     `json:"display_order"`
}

type categoryPayload struct {
	EventID string `json:"event_id"`
	Name    string `json:"name"`
}

// StatusResolver resolves status ids by module and name.
type StatusResolver interface {
	Resolve(ctx context.Context, module, name string) (string, error)
}

// Result holds the ids created by CreateAll, keyed by submitted name.
type Result struct {
	Tickets    map[string]string
	Categories map[string]string
}

// Step creates tickets in the available status.
type Step struct {
	gw              gateway.Gateway
	statuses        StatusResolver
	availableStatus string
}

// New returns a ticket Step resolving availableStatus in the ticket module.
func New(gw gateway.Gateway, statuses StatusResolver, availableStatus string) *Step {
	return &Step{gw: gw, statuses: statuses, availableStatus: availableStatus}
}

// CreateAll creates every ticket concurrently and waits for all of them.
//
// Categories are created on first use and shared by name, so N tickets naming
// M distinct categories issue exactly M category creates. Any failure fails
// the whole step; tickets still in flight run to completion and are dropped
// from the result.
func (s *Step) CreateAll(ctx context.Context, eventID string, tickets []model.TicketInput) (Result, error) {
	if len(tickets) == 0 {
		return Result{Tickets: map[string]string{}, Categories: map[string]string{}}, nil
	}

	statusID, err := s.statuses.Resolve(ctx, status.ModuleTicket, s.availableStatus)
	if err != nil {
		return Result{}, err
	}

	var (
		g          errgroup.Group
		ids        namemap.Map
		categories namemap.Registry
	)
	for i, in := range tickets {
		i, in := i, in
		g.Go(func() error {
			categoryID, err := s.category(ctx, &categories, eventID, in.Category)
			if err != nil {
				return err
			}
			p, err := build(eventID, statusID, categoryID, in, i)
			if err != nil {
				return err
			}
			p.StartDate = shared.RawUTC(in.StartDate, in.StartTime)
			p.EndDate = shared.RawUTC(in.EndDate, in.EndTime)

			id, err := s.create(ctx, p)
			if err != nil {
				return err
			}
			ids.Set(in.Name, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return Result{Tickets: ids.Snapshot(), Categories: categories.Snapshot()}, nil
}

// CreateOne adds a single ticket to an existing event. position is the
// ticket's 0-based place in the event's list, used when DisplayOrder is unset.
// Its timestamps carry the remote offset, and a named category is reused when
// the event already has one.
func (s *Step) CreateOne(ctx context.Context, eventID string, in model.TicketInput, position int) (string, error) {
	statusID, err := s.statuses.Resolve(ctx, status.ModuleTicket, s.availableStatus)
	if err != nil {
		return "", err
	}

	var categories namemap.Registry
	if in.Category != "" {
		existing, err := s.findCategory(ctx, eventID, in.Category)
		if err != nil {
			return "", err
		}
		if existing != "" {
			categories.Set(in.Category, existing)
		}
	}
	categoryID, err := s.category(ctx, &categories, eventID, in.Category)
	if err != nil {
		return "", err
	}

	p, err := build(eventID, statusID, categoryID, in, position)
	if err != nil {
		return "", err
	}
	if p.StartDate, err = shared.OffsetRewritten(in.StartDate, in.StartTime); err != nil {
		return "", apperr.New(apperr.KindTicketCreateFailed, gateway.ResourceTicket, in.Name, err)
	}
	if p.EndDate, err = shared.OffsetRewritten(in.EndDate, in.EndTime); err != nil {
		return "", apperr.New(apperr.KindTicketCreateFailed, gateway.ResourceTicket, in.Name, err)
	}
	return s.create(ctx, p)
}

func build(eventID, statusID, categoryID string, in model.TicketInput, position int) (payload, error) {
	price, err := shared.ParseAmount(in.Price)
	if err != nil {
		return payload{}, apperr.New(apperr.KindTicketCreateFailed, gateway.ResourceTicket, in.Name, err)
	}
	order := in.DisplayOrder
	if order == 0 {
		order = position + 1
	}
	p := payload{
		EventID:            eventID,
		Name:               in.Name,
		TotalQuantity:      in.Quantity,
		RemainingQuantity:  in.Quantity,
		Price:              price,
		StatusID:           statusID,
		Availability:       in.Availability,
		MinQuantityPerUser: in.MinPurchase,
		MaxQuantityPerUser: in.MaxPurchase,
		DisplayOrder:       order,
	}
	if categoryID != "" {
		p.CategoryID = &categoryID
	}
	return p, nil
}

func (s *Step) create(ctx context.Context, p payload) (string, error) {
	env, err := s.gw.Create(ctx, gateway.ResourceTicket, p)
	if err != nil {
		return "", apperr.New(apperr.KindTicketCreateFailed, gateway.ResourceTicket, p.Name, err)
	}
	id, err := gateway.Classify(env, gateway.CodeCreateSuccess).ID()
	if err != nil {
		return "", apperr.New(apperr.KindTicketCreateFailed, gateway.ResourceTicket, p.Name, err)
	}
	return id, nil
}

// category returns "" for an unnamed category.
func (s *Step) category(ctx context.Context, reg *namemap.Registry, eventID, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	return reg.Resolve(name, func() (string, error) {
		env, err := s.gw.Create(ctx, gateway.ResourceTicketCategory, categoryPayload{EventID: eventID, Name: name})
		if err != nil {
			return "", apperr.New(apperr.KindCategoryCreateFailed, gateway.ResourceTicketCategory, name, err)
		}
		id, err := gateway.Classify(env, gateway.CodeCreateSuccess).ID()
		if err != nil {
			return "", apperr.New(apperr.KindCategoryCreateFailed, gateway.ResourceTicketCategory, name, err)
		}
		return id, nil
	})
}

func (s *Step) findCategory(ctx context.Context, eventID, name string) (string, error) {
	env, err := s.gw.Search(ctx, gateway.ResourceTicketCategory, gateway.Where("event_id", eventID, "name", name))
	if err != nil {
		return "", apperr.New(apperr.KindCategoryCreateFailed, gateway.ResourceTicketCategory, name, err)
	}
	var recs []struct {
		ID json.RawMessage `json:"id"`
	}
	if err := gateway.Classify(env, gateway.CodeSearchSuccess).Records(&recs); err != nil || len(recs) == 0 {
		return "", nil
	}
	// An unreadable id is treated as no match and a new category is created.
	id, _ := gateway.DecodeID(recs[0].ID)
	return id, nil
}
