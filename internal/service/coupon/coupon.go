// Package coupon creates the discount coupons of an event.
package coupon

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/apperr"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/gateway"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/model"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/namemap"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/shared"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/status"
)

type payload struct {
	EventID       string  `json:"event_id"`
	StatusID      string  `json:"status_id"`
	Code          string  `json:"code"`
	DiscountValue float64 `json:"discount_value"`
	DiscountType  string  `json:"discount_type"`
	MaxUses       int     `json:"max_uses"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
}

// CouponTicketMap maps a ticket name to the ids of the coupons restricted to it.
type CouponTicketMap = map[string][]string

// StatusResolver resolves status ids by module and name.
type StatusResolver interface {
	Resolve(ctx context.Context, module, name string) (string, error)
}

// Result lists the created coupons. Targets holds only targeted coupons.
type Result struct {
	Targets CouponTicketMap
	Codes   map[string]string
}

// Step creates coupons in the available status.
type Step struct {
	gw              gateway.Gateway
	statuses        StatusResolver
	availableStatus string
}

// New returns a coupon Step resolving availableStatus in the coupon module.
func New(gw gateway.Gateway, statuses StatusResolver, availableStatus string) *Step {
	return &Step{gw: gw, statuses: statuses, availableStatus: availableStatus}
}

// CreateAll splits coupons into targeted and global partitions and creates
// both at once, each coupon in its own goroutine. Every targeted coupon id is
// recorded under each of its ticket names.
func (s *Step) CreateAll(ctx context.Context, eventID string, coupons []model.CouponInput) (Result, error) {
	if len(coupons) == 0 {
		return Result{Targets: CouponTicketMap{}, Codes: map[string]string{}}, nil
	}

	statusID, err := s.statuses.Resolve(ctx, status.ModuleCoupon, s.availableStatus)
	if err != nil {
		return Result{}, err
	}

	var targeted, global []model.CouponInput
	for _, c := range coupons {
		if c.IsGlobal() {
			global = append(global, c)
		} else {
			targeted = append(targeted, c)
		}
	}

	var (
		g       errgroup.Group
		targets namemap.Multi
		codes   namemap.Map
	)
	g.Go(func() error {
		return s.partition(ctx, eventID, statusID, targeted, func(c model.CouponInput, id string) {
			codes.Set(c.Code, id)
			targets.Add(id, c.Tickets...)
		})
	})
	g.Go(func() error {
		return s.partition(ctx, eventID, statusID, global, func(c model.CouponInput, id string) {
			codes.Set(c.Code, id)
		})
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return Result{Targets: targets.Snapshot(), Codes: codes.Snapshot()}, nil
}

func (s *Step) partition(ctx context.Context, eventID, statusID string, coupons []model.CouponInput, done func(model.CouponInput, string)) error {
	var g errgroup.Group
	for _, c := range coupons {
		c := c
		g.Go(func() error {
			id, err := s.create(ctx, eventID, statusID, c)
			if err != nil {
				return err
			}
			done(c, id)
			return nil
		})
	}
	return g.Wait()
}

func (s *Step) create(ctx context.Context, eventID, statusID string, c model.CouponInput) (string, error) {
	fail := func(err error) (string, error) {
		return "", apperr.New(apperr.KindCouponCreateFailed, gateway.ResourceCoupon, c.Code, err)
	}

	value, err := shared.ParseAmount(c.DiscountValue)
	if err != nil {
		return fail(err)
	}
	start, err := shared.OffsetRewritten(c.StartDate, c.StartTime)
	if err != nil {
		return fail(err)
	}
	end, err := shared.OffsetRewritten(c.EndDate, c.EndTime)
	if err != nil {
		return fail(err)
	}

	env, err := s.gw.Create(ctx, gateway.ResourceCoupon, payload{
		EventID:       eventID,
		StatusID:      statusID,
		Code:          c.Code,
		DiscountValue: value,
		DiscountType:  c.DiscountType,
		MaxUses:       c.MaxUses,
		StartDate:     start,
		EndDate:       end,
	})
	if err != nil {
		return fail(err)
	}
	id, err := gateway.Classify(env, gateway.CodeCreateSuccess).ID()
	if err != nil {
		return fail(err)
	}
	return id, nil
}
