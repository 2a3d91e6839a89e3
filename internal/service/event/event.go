// Package event contains the event record creation step. The id it returns
// anchors every later step of a submission.
package event

import (
	"context"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/apperr"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/gateway"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/model"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/shared"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/status"
)

type payload struct {
	Name              string  `json:"name"`
	Description       string  `json:"description,omitempty"`
	EventType         string  `json:"event_type"`
	CategoryID        string  `json:"category_id,omitempty"`
	StartDate         string  `json:"start_date"`
	EndDate           string  `json:"end_date"`
	AddressID         *string `json:"address_id"`
	StatusID          string  `json:"status_id"`
	MaxTicketsPerUser int     `json:"max_tickets_per_user,omitempty"`
	GeneralInfo       string  `json:"general_information,omitempty"`
}

// StatusResolver resolves status ids by module and name.
type StatusResolver interface {
	Resolve(ctx context.Context, module, name string) (string, error)
}

// Step creates the event resource in its draft status.
type Step struct {
	gw          gateway.Gateway
	statuses    StatusResolver
	draftStatus string
}

// New returns an event Step resolving draftStatus in the event module.
func New(gw gateway.Gateway, statuses StatusResolver, draftStatus string) *Step {
	return &Step{gw: gw, statuses: statuses, draftStatus: draftStatus}
}

// Create posts the event and returns its id. An empty addressID is sent as null.
// Timestamps are raw UTC joins of the submitted date and time.
func (s *Step) Create(ctx context.Context, sub model.EventSubmission, addressID string) (string, error) {
	statusID, err := s.statuses.Resolve(ctx, status.ModuleEvent, s.draftStatus)
	if err != nil {
		return "", err
	}

	p := payload{
		Name:              sub.Name,
		Description:       sub.Description,
		EventType:         sub.EventType,
		CategoryID:        sub.CategoryID,
		StartDate:         shared.RawUTC(sub.StartDate, sub.StartTime),
		EndDate:           shared.RawUTC(sub.EndDate, sub.EndTime),
		StatusID:          statusID,
		MaxTicketsPerUser: sub.MaxTicketsPerUser,
		GeneralInfo:       sub.GeneralInfo,
	}
	if addressID != "" {
		p.AddressID = &addressID
	}

	env, err := s.gw.Create(ctx, gateway.ResourceEvent, p)
	if err != nil {
		return "", apperr.New(apperr.KindEventCreateFailed, gateway.ResourceEvent, sub.Name, err)
	}
	id, err := gateway.Classify(env, gateway.CodeCreateSuccess).ID()
	if err != nil {
		return "", apperr.New(apperr.KindEventCreateFailed, gateway.ResourceEvent, sub.Name, err)
	}
	return id, nil
}
