// Package checkout creates the custom checkout fields of an event.
package checkout

import (
	"context"
	"fmt"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/apperr"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/gateway"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/model"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/namemap"
)

type payload struct {
	EventID         string `json:"event_id"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	PersonType      string `json:"person_type"`
	Required        bool   `json:"required"`
	VisibleOnTicket bool   `json:"visible_on_ticket"`
	IsUnique        bool   `json:"is_unique"`
	DisplayOrder    int    `json:"display_order"`
}

// FieldTicketMap maps a ticket name to the ids of the fields attached to it.
type FieldTicketMap = map[string][]string

// Step creates one checkout field per (field, person type) pair.
type Step struct {
	gw gateway.Gateway
}

// New returns a checkout Step.
func New(gw gateway.Gateway) *Step {
	return &Step{gw: gw}
}

// CreateAll posts the fields in submission order, one person type at a time.
// display_order is the 1-based position of the pair in that iteration, so the
// calls are never issued concurrently.
func (s *Step) CreateAll(ctx context.Context, eventID string, fields []model.CustomFieldInput) (FieldTicketMap, error) {
	var links namemap.Multi
	order := 0
	for _, f := range fields {
		for _, personType := range f.PersonTypes {
			order++
			id, err := s.create(ctx, payload{
				EventID:         eventID,
				Name:            f.Name,
				Type:            f.Type,
				PersonType:      personType,
				Required:        f.HasOption(model.OptionRequired),
				VisibleOnTicket: f.HasOption(model.OptionVisibleOnTicket),
				IsUnique:        f.HasOption(model.OptionUnique),
				DisplayOrder:    order,
			})
			if err != nil {
				return nil, apperr.New(apperr.KindCustomFieldsFailed, gateway.ResourceCheckoutField, f.Name, err)
			}
			links.Add(id, f.Tickets...)
		}
	}
	return links.Snapshot(), nil
}

func (s *Step) create(ctx context.Context, p payload) (string, error) {
	name := fmt.Sprintf("%s/%s", p.Name, p.PersonType)
	env, err := s.gw.Create(ctx, gateway.ResourceCheckoutField, p)
	if err != nil {
		return "", apperr.New(apperr.KindCheckoutFieldFailed, gateway.ResourceCheckoutField, name, err)
	}
	id, err := gateway.Classify(env, gateway.CodeCreateSuccess).ID()
	if err != nil {
		return "", apperr.New(apperr.KindCheckoutFieldFailed, gateway.ResourceCheckoutField, name, err)
	}
	return id, nil
}
