// Package relation creates the join records between tickets and the fields
// or coupons attached to them.
package relation

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/apperr"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/gateway"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/namemap"
)

type fieldLink struct {
	FieldID  string `json:"event_checkout_field_id"`
	TicketID string `json:"ticket_id"`
}

type couponLink struct {
	CouponID string `json:"coupon_id"`
	TicketID string `json:"ticket_id"`
}

// Pair is one (foreign id, ticket id) join to create.
type Pair struct {
	ForeignID  string
	TicketName string
	TicketID   string
}

// Step creates relation records concurrently.
type Step struct {
	gw gateway.Gateway
}

// New returns a relation Step.
func New(gw gateway.Gateway) *Step {
	return &Step{gw: gw}
}

// LinkFields relates every field id in fields to the ticket named by its key.
// It returns the number of relations created.
func (s *Step) LinkFields(ctx context.Context, tickets map[string]string, fields map[string][]string) (int, error) {
	return s.link(ctx, gateway.ResourceCheckoutFieldLink, tickets, fields, func(p Pair) any {
		return fieldLink{FieldID: p.ForeignID, TicketID: p.TicketID}
	})
}

// LinkCoupons relates every coupon id in coupons to the ticket named by its key.
func (s *Step) LinkCoupons(ctx context.Context, tickets map[string]string, coupons map[string][]string) (int, error) {
	return s.link(ctx, gateway.ResourceCouponTicket, tickets, coupons, func(p Pair) any {
		return couponLink{CouponID: p.ForeignID, TicketID: p.TicketID}
	})
}

func (s *Step) link(ctx context.Context, resource string, tickets map[string]string, foreign map[string][]string, body func(Pair) any) (int, error) {
	if len(tickets) == 0 || len(foreign) == 0 {
		return 0, nil
	}
	pairs, err := Flatten(tickets, foreign)
	if err != nil {
		return 0, err
	}

	var g errgroup.Group
	for _, p := range pairs {
		p := p
		g.Go(func() error {
			name := p.ForeignID + "/" + p.TicketName
			env, err := s.gw.Create(ctx, resource, body(p))
			if err != nil {
				return apperr.New(apperr.KindRelationCreateFailed, resource, name, err)
			}
			if err := gateway.Classify(env, gateway.CodeCreateSuccess).Err(); err != nil {
				return apperr.New(apperr.KindRelationCreateFailed, resource, name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(pairs), nil
}

// Flatten expands a ticket name to ids map into one Pair per (id, ticket),
// ordered by ticket name and then by position in the id list. A ticket name
// without a created ticket is an UnknownTicket error.
func Flatten(tickets map[string]string, foreign map[string][]string) ([]Pair, error) {
	var pairs []Pair
	for _, name := range namemap.SortedKeys(foreign) {
		ticketID, ok := tickets[name]
		if !ok {
			return nil, apperr.New(apperr.KindUnknownTicket, gateway.ResourceTicket, name,
				fmt.Errorf("no ticket named %q was created", name))
		}
		for _, id := range foreign[name] {
			pairs = append(pairs, Pair{ForeignID: id, TicketName: name, TicketID: ticketID})
		}
	}
	return pairs, nil
}
