// Package address contains the venue creation step of an event submission.
package address

import (
	"context"
	"errors"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/apperr"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/gateway"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/model"
)

type payload struct {
	Street       string   `json:"street"`
	Number       string   `json:"number"`
	Neighborhood string   `json:"neighborhood"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	ZipCode      string   `json:"zip_code"`
	Complement   string   `json:"complement,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

// Step creates the address of a non-online event.
type Step struct {
	gw gateway.Gateway
}

// New returns an address Step.
func New(gw gateway.Gateway) *Step {
	return &Step{gw: gw}
}

// Create returns the new address id, or "" without any remote call when the
// event is online.
func (s *Step) Create(ctx context.Context, sub model.EventSubmission) (string, error) {
	if sub.IsOnline() {
		return "", nil
	}
	in := sub.Address
	if in == nil {
		return "", apperr.New(apperr.KindAddressCreateFailed, gateway.ResourceAddress, "",
			errors.New("address is required for non-online events"))
	}

	env, err := s.gw.Create(ctx, gateway.ResourceAddress, payload{
		Street:       in.Street,
		Number:       in.Number,
		Neighborhood: in.Neighborhood,
		City:         in.City,
		State:        in.State,
		ZipCode:      in.Zip,
		Complement:   in.Complement,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
	})
	if err != nil {
		return "", apperr.New(apperr.KindAddressCreateFailed, gateway.ResourceAddress, "", err)
	}
	id, err := gateway.Classify(env, gateway.CodeCreateSuccess).ID()
	if err != nil {
		return "", apperr.New(apperr.KindAddressCreateFailed, gateway.ResourceAddress, "", err)
	}
	return id, nil
}
