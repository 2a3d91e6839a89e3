// Package httptransport implements the HTTP transport layer
// for event submission.
package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/apperr"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/journal"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/logging"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/model"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/eventquery"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/submission"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/validation"
)

const defaultMaxBodyBytes = 10 << 20

type submitter interface {
	Submit(ctx context.Context, sub model.EventSubmission) (submission.Outcome, error)
	AddTicket(ctx context.Context, eventID string, in model.TicketInput, position int) (string, error)
}

type runReader interface {
	Get(ctx context.Context, id string) (journal.Run, error)
	Failed(ctx context.Context, limit int) ([]journal.Run, error)
}

type eventReader interface {
	List(ctx context.Context) eventquery.Result[[]eventquery.Event]
	Get(ctx context.Context, id string) eventquery.Result[*eventquery.Event]
	Tickets(ctx context.Context, eventID string) eventquery.Result[[]eventquery.Ticket]
}

// Options configures a Handler.
type Options struct {
	// RequestTimeout bounds the reads. Submissions carry their own deadline.
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	Logger         *zap.Logger
	// Runs serves the run journal routes. They are not registered when nil.
	Runs           runReader
}

// Handler handles HTTP requests to the event pipeline.
type Handler struct {
	submitter      submitter
	events         eventReader
	runs           runReader
	requestTimeout time.Duration
	maxBodyBytes   int64
	logger         *zap.Logger
}

// New returns a Handler for the given submitter and event reader.
//
// It panics if either is nil. Non-positive limits fall back to defaults.
func New(s submitter, events eventReader, opts Options) *Handler {
	if s == nil {
		panic("httptransport.New: nil submitter")
	}
	if events == nil {
		panic("httptransport.New: nil event reader")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Handler{
		submitter:      s,
		events:         events,
		runs:           opts.Runs,
		requestTimeout: opts.RequestTimeout,
		maxBodyBytes:   opts.MaxBodyBytes,
		logger:         opts.Logger,
	}
}

// Register adds the event routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /events", h.HandleSubmit)
	mux.HandleFunc("GET /events", h.HandleList)
	mux.HandleFunc("GET /events/{id}", h.HandleGet)
	mux.HandleFunc("GET /events/{id}/tickets", h.HandleTickets)
	mux.HandleFunc("POST /events/{id}/tickets", h.HandleAddTicket)
	mux.HandleFunc("GET /health", HandleHealth)
	if h.runs != nil {
		mux.HandleFunc("GET /runs/failed", h.HandleFailedRuns)
		mux.HandleFunc("GET /runs/{id}", h.HandleRun)
	}
}

// HandleSubmit runs one event submission.
//
// The body must be a single JSON EventSubmission. The response always
// contains a structured SubmissionResponse, including the per-step results.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub model.EventSubmission
	if !h.decode(w, r, &sub) {
		return
	}

	out, err := h.submitter.Submit(r.Context(), sub)

	resp := model.SubmissionResponse{
		Status:     "ok",
		RunID:      out.RunID,
		EventID:    out.EventID,
		AddressID:  out.AddressID,
		BannerURL:  out.BannerURL,
		Tickets:    out.Tickets,
		Categories: out.Categories,
		Fields:     out.Fields,
		Coupons:    out.Coupons,
		Steps:      out.Steps,
	}
	if err != nil {
		resp.Status = "error"
		resp.Error = &model.ErrorPayload{
			Kind:    errorKind(err),
			Message: "event submission failed",
			Errors:  validation.Messages(err),
		}
		logging.Warn(r.Context(), h.logger, "event submission failed",
			zap.String("run_id", out.RunID),
			zap.String("kind", resp.Error.Kind),
			zap.Error(err),
		)
	}
	writeJSON(w, httpStatus(err), resp)
}

// HandleAddTicket adds one ticket to an existing event.
func (h *Handler) HandleAddTicket(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	var in model.TicketInput
	if !h.decode(w, r, &in) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	if !h.events.Get(ctx, eventID).Found() {
		writeJSON(w, http.StatusNotFound, model.TicketResponse{
			Status: "error",
			Error:  &model.ErrorPayload{Kind: "not_found", Message: "event not found"},
		})
		return
	}
	// A failed ticket lookup places the new ticket first.
	position := 0
	if existing := h.events.Tickets(ctx, eventID); existing.Found() {
		position = existing.Total
	}

	id, err := h.submitter.AddTicket(ctx, eventID, in, position)
	if err != nil {
		writeJSON(w, httpStatus(err), model.TicketResponse{
			Status: "error",
			Error: &model.ErrorPayload{
				Kind:    errorKind(err),
				Message: "ticket creation failed",
				Errors:  validation.Messages(err),
			},
		})
		return
	}
	writeJSON(w, http.StatusCreated, model.TicketResponse{Status: "ok", TicketID: id})
}

// HandleList returns every event.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()
	res := h.events.List(ctx)
	writeJSON(w, lookupStatus(res.Found()), res)
}

// HandleGet returns one event.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()
	res := h.events.Get(ctx, r.PathValue("id"))
	writeJSON(w, lookupStatus(res.Found()), res)
}

// HandleTickets returns the tickets of one event.
func (h *Handler) HandleTickets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()
	res := h.events.Tickets(ctx, r.PathValue("id"))
	writeJSON(w, lookupStatus(res.Found()), res)
}

// HandleFailedRuns lists failed, uncompensated runs, newest first.
// The optional limit query parameter caps the result.
func (h *Handler) HandleFailedRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, model.ErrorPayload{Kind: "bad_request", Message: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()
	runs, err := h.runs.Failed(ctx, limit)
	if err != nil {
		logging.Error(ctx, h.logger, "list failed runs", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, model.ErrorPayload{Kind: apperr.KindInternal, Message: "journal unavailable"})
		return
	}
	if runs == nil {
		runs = []journal.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "total": len(runs)})
}

// HandleRun returns one journal entry.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()
	run, err := h.runs.Get(ctx, r.PathValue("id"))
	switch {
	case errors.Is(err, journal.ErrNotFound):
		writeJSON(w, http.StatusNotFound, model.ErrorPayload{Kind: "not_found", Message: "run not found"})
	case err != nil:
		logging.Error(ctx, h.logger, "get run", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, model.ErrorPayload{Kind: apperr.KindInternal, Message: "journal unavailable"})
	default:
		writeJSON(w, http.StatusOK, run)
	}
}

// HandleHealth reports liveness.
func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// decode reads exactly one JSON value into v, writing a 400 or 413 and
// returning false when the body is not acceptable.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err == nil && dec.Decode(&struct{}{}) != io.EOF {
		err = errors.New("trailing data")
	}
	if err == nil {
		return true
	}

	status := http.StatusBadRequest
	msg := "invalid JSON"
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
		msg = "request body too large"
	}
	writeJSON(w, status, model.SubmissionResponse{
		Status: "error",
		Error:  &model.ErrorPayload{Kind: "bad_request", Message: msg},
	})
	return false
}

func lookupStatus(found bool) int {
	if found {
		return http.StatusOK
	}
	return http.StatusNotFound
}

// writeJSON writes v as a JSON response with the given status code.
// The Content-Type is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
