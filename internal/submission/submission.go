// Package submission turns one event submission into the ordered set of
// remote creates that make up a published event.
package submission

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/apperr"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/gateway"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/journal"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/logging"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/model"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/address"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/banner"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/checkout"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/coupon"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/event"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/relation"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/status"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/ticket"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/telemetry"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/validation"
)

// Step names reported in Outcome.Steps, in execution order.
const (
	StepAddress         = "address"
	StepEvent           = "event"
	StepBanner          = "banner"
	StepTickets         = "tickets"
	StepCustomFields    = "custom_fields"
	StepFieldRelations  = "field_relations"
	StepCoupons         = "coupons"
	StepCouponRelations = "coupon_relations"
)

const defaultCompensationTimeout = 30 * time.Second

// StatusNames are the status records attached to new resources.
type StatusNames struct {
	EventDraft      string
	TicketAvailable string
	CouponAvailable string
}

// Observer records the outcome of finished runs.
type Observer interface {
	ObserveSubmission(state, kind string, d time.Duration)
}

// Recorder stores finished runs.
type Recorder interface {
	Record(ctx context.Context, run journal.Run) error
}

// Options configures a Service. Zero values disable the optional parts.
type Options struct {
	Statuses StatusNames
	// Timeout bounds one Submit call.
	Timeout time.Duration
	// Compensate deletes the records of a failed run, newest first.
	Compensate          bool
	CompensationTimeout time.Duration

	Logger    *zap.Logger
	Metrics   Observer
	Journal   Recorder
	Validator *validation.Validator
}

// Outcome describes a finished run. On failure it holds whatever was created
// before the failing step.
type Outcome struct {
	RunID        string
	State        State
	Kind         string
	EventID      string
	AddressID    string
	AttachmentID string
	BannerURL    string
	Tickets      map[string]string
	Categories   map[string]string
	// Fields and Coupons map a ticket name to the ids attached to it.
	Fields          map[string][]string
	Coupons         map[string][]string
	CouponCodes     map[string]string
	FieldRelations  int
	CouponRelations int
	Steps           []model.StepResult
	Created         []journal.Resource
	Compensated     bool
}

// Service runs submissions against a gateway.
type Service struct {
	gw   gateway.Gateway
	opts Options
}

// New returns a Service. It panics on a nil gateway.
func New(gw gateway.Gateway, opts Options) *Service {
	if gw == nil {
		panic("submission.New: nil gateway")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Validator == nil {
		opts.Validator = validation.New()
	}
	if opts.CompensationTimeout <= 0 {
		opts.CompensationTimeout = defaultCompensationTimeout
	}
	return &Service{gw: gw, opts: opts}
}

// Submit validates sub and runs every step it needs, in dependency order.
// The returned error is the first step failure.
func (s *Service) Submit(ctx context.Context, sub model.EventSubmission) (Outcome, error) {
	r := &run{
		svc:     s,
		id:      uuid.NewString(),
		started: time.Now(),
		ledger:  newLedger(s.gw),
	}

	ctx, span := telemetry.Tracer().Start(ctx, "submission.Submit", trace.WithAttributes(
		attribute.String("submission.run_id", r.id),
		attribute.String("event.name", sub.Name),
	))
	defer span.End()

	if err := s.opts.Validator.Validate(sub).Err(sub.Name); err != nil {
		return r.finish(ctx, sub, err)
	}

	runCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	err := r.execute(runCtx, sub)
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		err = apperr.New(apperr.KindTimeout, "submission", sub.Name, err)
	case errors.Is(err, context.Canceled):
		err = apperr.New(apperr.KindCanceled, "submission", sub.Name, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.Kind(err))
	}
	return r.finish(ctx, sub, err)
}

// AddTicket creates one ticket on an existing event. position is the
// ticket's 0-based place among the event's tickets.
func (s *Service) AddTicket(ctx context.Context, eventID string, in model.TicketInput, position int) (string, error) {
	if err := s.opts.Validator.ValidateTicket(in).Err(in.Name); err != nil {
		return "", err
	}
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	return ticket.New(s.gw, status.New(s.gw), s.opts.Statuses.TicketAvailable).CreateOne(ctx, eventID, in, position)
}

// run is the state of one Submit call. Steps execute one at a time, so only
// the ledger is shared with fanned-out goroutines.
type run struct {
	svc     *Service
	id      string
	started time.Time
	ledger  *ledger
	state   State
	steps   []model.StepResult
	out     Outcome
}

func (r *run) execute(ctx context.Context, sub model.EventSubmission) error {
	var (
		gw       = r.ledger
		statuses = status.New(gw)
		names    = r.svc.opts.Statuses
		out      = &r.out
	)

	if sub.IsOnline() {
		r.skip(StepAddress)
	} else if err := r.step(ctx, StateAddressPending, StepAddress, func(ctx context.Context) (err error) {
		out.AddressID, err = address.New(gw).Create(ctx, sub)
		return err
	}); err != nil {
		return err
	}

	if err := r.step(ctx, StateEventPending, StepEvent, func(ctx context.Context) (err error) {
		out.EventID, err = event.New(gw, statuses, names.EventDraft).Create(ctx, sub, out.AddressID)
		return err
	}); err != nil {
		return err
	}

	if sub.Banner == nil || len(sub.Banner.Content) == 0 {
		r.skip(StepBanner)
	} else if err := r.step(ctx, StateBannerPending, StepBanner, func(ctx context.Context) (err error) {
		out.AttachmentID, out.BannerURL, err = banner.New(gw).Attach(ctx, out.EventID, sub.Banner)
		return err
	}); err != nil {
		return err
	}

	if err := r.step(ctx, StateTicketsPending, StepTickets, func(ctx context.Context) error {
		res, err := ticket.New(gw, statuses, names.TicketAvailable).CreateAll(ctx, out.EventID, sub.Tickets)
		out.Tickets, out.Categories = res.Tickets, res.Categories
		return err
	}); err != nil {
		return err
	}

	links := relation.New(gw)
	if len(sub.CustomFields) == 0 {
		r.skip(StepCustomFields)
	} else if err := r.step(ctx, StateCustomFieldsPending, StepCustomFields, func(ctx context.Context) (err error) {
		out.Fields, err = checkout.New(gw).CreateAll(ctx, out.EventID, sub.CustomFields)
		return err
	}); err != nil {
		return err
	}

	if len(out.Tickets) == 0 || len(out.Fields) == 0 {
		r.skip(StepFieldRelations)
	} else if err := r.step(ctx, StateFieldRelationsPending, StepFieldRelations, func(ctx context.Context) (err error) {
		out.FieldRelations, err = links.LinkFields(ctx, out.Tickets, out.Fields)
		return err
	}); err != nil {
		return err
	}

	if err := r.step(ctx, StateCouponsPending, StepCoupons, func(ctx context.Context) error {
		res, err := coupon.New(gw, statuses, names.CouponAvailable).CreateAll(ctx, out.EventID, sub.Coupons)
		out.Coupons, out.CouponCodes = res.Targets, res.Codes
		return err
	}); err != nil {
		return err
	}

	if len(out.Tickets) == 0 || len(out.Coupons) == 0 {
		r.skip(StepCouponRelations)
	} else if err := r.step(ctx, StateCouponRelationsPending, StepCouponRelations, func(ctx context.Context) (err error) {
		out.CouponRelations, err = links.LinkCoupons(ctx, out.Tickets, out.Coupons)
		return err
	}); err != nil {
		return err
	}
	return nil
}

func (r *run) step(ctx context.Context, state State, name string, fn func(context.Context) error) error {
	r.transition(ctx, state)

	ctx, span := telemetry.Tracer().Start(ctx, "submission.step."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	res := model.StepResult{
		Name:       name,
		Status:     "ok",
		DurationMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		res.Status = "error"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			res.Status = "canceled"
		}
		res.Detail = apperr.Kind(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, res.Detail)
		logging.Error(ctx, r.svc.opts.Logger, "submission step failed",
			zap.String("run_id", r.id),
			zap.String("step", name),
			zap.String("kind", res.Detail),
			zap.Error(err),
		)
	}
	r.steps = append(r.steps, res)
	return err
}

func (r *run) skip(name string) {
	r.steps = append(r.steps, model.StepResult{Name: name, Status: "skipped"})
}

func (r *run) transition(ctx context.Context, to State) {
	from := r.state
	r.state = to
	trace.SpanFromContext(ctx).AddEvent("transition", trace.WithAttributes(
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
	logging.Info(ctx, r.svc.opts.Logger, "submission transition",
		zap.String("run_id", r.id),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
}

func (r *run) finish(ctx context.Context, sub model.EventSubmission, err error) (Outcome, error) {
	opts := r.svc.opts
	out := r.out
	out.RunID = r.id
	out.Steps = r.steps
	out.Created = r.ledger.resources()

	if err == nil {
		r.transition(ctx, StateSucceeded)
	} else {
		r.transition(ctx, StateFailed)
		out.Kind = apperr.Kind(err)
		if opts.Compensate && len(out.Created) > 0 {
			out.Compensated = r.compensate(ctx, len(out.Created))
		}
	}
	out.State = r.state

	elapsed := time.Since(r.started)
	if opts.Metrics != nil {
		opts.Metrics.ObserveSubmission(out.State.String(), out.Kind, elapsed)
	}
	if opts.Journal != nil {
		entry := journal.Run{
			ID:          r.id,
			EventName:   sub.Name,
			EventID:     out.EventID,
			State:       out.State.String(),
			FailureKind: out.Kind,
			Resources:   out.Created,
			Compensated: out.Compensated,
			StartedAt:   r.started,
			FinishedAt:  r.started.Add(elapsed),
		}
		if err != nil {
			entry.Message = err.Error()
		}
		if jerr := opts.Journal.Record(context.WithoutCancel(ctx), entry); jerr != nil {
			logging.Warn(ctx, opts.Logger, "journal record failed", zap.String("run_id", r.id), zap.Error(jerr))
		}
	}
	return out, err
}

// compensate runs on a context that outlives the caller's cancellation.
func (r *run) compensate(ctx context.Context, n int) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.svc.opts.CompensationTimeout)
	defer cancel()

	if err := r.ledger.compensate(ctx); err != nil {
		logging.Error(ctx, r.svc.opts.Logger, "compensation incomplete", zap.String("run_id", r.id), zap.Error(err))
		return false
	}
	logging.Info(ctx, r.svc.opts.Logger, "compensation complete",
		zap.String("run_id", r.id),
		zap.Int("deleted", n),
	)
	return true
}
