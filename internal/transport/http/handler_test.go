package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/apperr"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/gateway"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/gateway/gatewaytest"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/journal"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/model"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/eventquery"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/submission"
)

// --- stubs for unit tests ---

type stubSubmitter struct {
	out      submission.Outcome
	err      error
	ticketID string
	position int
	calls    int
}

func (s *stubSubmitter) Submit(_ context.Context, _ model.EventSubmission) (submission.Outcome, error) {
	return s.out, s.err
}

func (s *stubSubmitter) AddTicket(_ context.Context, _ string, _ model.TicketInput, position int) (string, error) {
	s.position = position
	s.calls++
	return s.ticketID, s.err
}

type stubReader struct {
	events  eventquery.Result[[]eventquery.Event]
	event   eventquery.Result[*eventquery.Event]
	tickets eventquery.Result[[]eventquery.Ticket]
}

func (s *stubReader) List(context.Context) eventquery.Result[[]eventquery.Event] { return s.events }

func (s *stubReader) Get(context.Context, string) eventquery.Result[*eventquery.Event] {
	return s.event
}

func (s *stubReader) Tickets(context.Context, string) eventquery.Result[[]eventquery.Ticket] {
	return s.tickets
}

func notFound() *stubReader {
	return &stubReader{
		events:  eventquery.Result[[]eventquery.Event]{Code: gateway.CodeFindNotFound},
		event:   eventquery.Result[*eventquery.Event]{Code: gateway.CodeFindNotFound},
		tickets: eventquery.Result[[]eventquery.Ticket]{Code: gateway.CodeFindNotFound},
	}
}

func serve(h *Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.Register(mux)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

const validBody = `{
	"name": "Festival",
	"event_type": "Online",
	"start_date": "2025-02-01", "start_time": "10:00",
	"end_date": "2025-02-01", "end_time": "22:00",
	"tickets": [{
		"name": "T1", "price": "10,50", "quantity": 10, "min_purchase": 1,
		"start_date": "2025-01-01", "start_time": "08:00",
		"end_date": "2025-02-01", "end_time": "09:00"
	}]
}`

// --- unit tests (stub-based) ---

func TestHandleSubmitRequestValidation(t *testing.T) {
	t.Parallel()

	h := New(&stubSubmitter{}, notFound(), Options{MaxBodyBytes: 1024})

	tests := []struct {
		name       string
		method     string
		body       []byte
		wantStatus int
		wantKind   string
	}{
		{
			name:       "method_not_allowed",
			method:     http.MethodPut,
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "invalid_json",
			method:     http.MethodPost,
			body:       []byte(`{"name":`),
			wantStatus: http.StatusBadRequest,
			wantKind:   "bad_request",
		},
		{
			name:       "unknown_field",
			method:     http.MethodPost,
			body:       []byte(`{"order_id":"o-1"}`),
			wantStatus: http.StatusBadRequest,
			wantKind:   "bad_request",
		},
		{
			name:       "custom_field_display_order",
			method:     http.MethodPost,
			body:       []byte(`{"name":"a","custom_fields":[{"name":"CPF","type":"text","person_types":["buyer"],"display_order":7}]}`),
			wantStatus: http.StatusBadRequest,
			wantKind:   "bad_request",
		},
		{
			name:       "trailing_data",
			method:     http.MethodPost,
			body:       []byte(`{"name":"a"}{"name":"b"}`),
			wantStatus: http.StatusBadRequest,
			wantKind:   "bad_request",
		},
		{
			name:       "too_large",
			method:     http.MethodPost,
			body:       []byte(`{"name":"` + strings.Repeat("x", 2048) + `"}`),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantKind:   "bad_request",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := serve(h, tt.method, "/events", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantKind == "" {
				return
			}

			var out model.SubmissionResponse
			if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if out.Error == nil || out.Error.Kind != tt.wantKind {
				t.Fatalf("expected error.kind=%s, got %+v", tt.wantKind, out.Error)
			}
		})
	}
}

func TestHandleSubmit_Success(t *testing.T) {
	t.Parallel()

	stub := &stubSubmitter{out: submission.Outcome{
		RunID:   "run-1",
		State:   submission.StateSucceeded,
		EventID: "event-1",
		Tickets: map[string]string{"T1": "ticket-1"},
		Steps: []model.StepResult{
			{Name: "event", Status: "ok", DurationMS: 10},
			{Name: "tickets", Status: "ok", DurationMS: 20},
		},
	}}
	h := New(stub, notFound(), Options{})

	w := serve(h, http.MethodPost, "/events", []byte(validBody))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var out model.SubmissionResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != "ok" || out.EventID != "event-1" || out.RunID != "run-1" {
		t.Fatalf("unexpected response %+v", out)
	}
	if out.Tickets["T1"] != "ticket-1" {
		t.Fatalf("expected ticket map, got %+v", out.Tickets)
	}
	if len(out.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(out.Steps))
	}
}

func TestHandleSubmit_StepError(t *testing.T) {
	t.Parallel()

	stub := &stubSubmitter{
		out: submission.Outcome{
			RunID:   "run-2",
			EventID: "event-1",
			Steps:   []model.StepResult{{Name: "tickets", Status: "error", Detail: apperr.KindTicketCreateFailed}},
		},
		err: apperr.New(apperr.KindTicketCreateFailed, "ticket", "T2", nil),
	}
	h := New(stub, notFound(), Options{})

	w := serve(h, http.MethodPost, "/events", []byte(validBody))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}

	var out model.SubmissionResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != "error" || out.Error == nil || out.Error.Kind != apperr.KindTicketCreateFailed {
		t.Fatalf("expected ticket_create_failed, got %+v", out.Error)
	}
	if out.EventID != "event-1" {
		t.Fatalf("expected partial event id, got %q", out.EventID)
	}
}

const lateTicketBody = `{"name":"Late","price":"5","quantity":1,"min_purchase":1,
	"start_date":"2025-01-01","start_time":"08:00","end_date":"2025-01-02","end_time":"08:00"}`

func TestHandleAddTicket(t *testing.T) {
	t.Parallel()

	reader := notFound()
	reader.event = eventquery.Result[*eventquery.Event]{Code: gateway.CodeSearchSuccess, Data: &eventquery.Event{ID: "event-1"}, Total: 1}
	reader.tickets = eventquery.Result[[]eventquery.Ticket]{
		Code:  gateway.CodeSearchSuccess,
		Data:  []eventquery.Ticket{{Name: "A"}, {Name: "B"}},
		Total: 2,
	}
	stub := &stubSubmitter{ticketID: "ticket-9"}
	h := New(stub, reader, Options{})

	w := serve(h, http.MethodPost, "/events/event-1/tickets", []byte(lateTicketBody))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var out model.TicketResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.TicketID != "ticket-9" || stub.position != 2 {
		t.Fatalf("unexpected response %+v position=%d", out, stub.position)
	}
}

// An unknown event answers an empty but successful ticket search, so the
// event itself has to be looked up.
func TestHandleAddTicket_UnknownEvent(t *testing.T) {
	t.Parallel()

	reader := notFound()
	reader.tickets = eventquery.Result[[]eventquery.Ticket]{Code: gateway.CodeSearchSuccess, Data: []eventquery.Ticket{}}
	stub := &stubSubmitter{ticketID: "ticket-9"}

	w := serve(New(stub, reader, Options{}), http.MethodPost, "/events/missing/tickets", []byte(lateTicketBody))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown event, got %d", w.Code)
	}
	if stub.calls != 0 {
		t.Fatalf("expected no ticket creation, got %d", stub.calls)
	}
}

type stubRuns struct {
	runs []journal.Run
	err  error
}

func (s *stubRuns) Get(_ context.Context, id string) (journal.Run, error) {
	for _, r := range s.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return journal.Run{}, journal.ErrNotFound
}

func (s *stubRuns) Failed(_ context.Context, limit int) ([]journal.Run, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit > 0 && limit < len(s.runs) {
		return s.runs[:limit], nil
	}
	return s.runs, nil
}

func TestHandleRuns(t *testing.T) {
	t.Parallel()

	runs := &stubRuns{runs: []journal.Run{
		{ID: "run-2", State: "Failed", FailureKind: apperr.KindTicketCreateFailed},
		{ID: "run-1", State: "Failed", FailureKind: apperr.KindCouponCreateFailed},
	}}
	h := New(&stubSubmitter{}, notFound(), Options{Runs: runs})

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantIDs    string
	}{
		{"failed", "/runs/failed", http.StatusOK, "run-2,run-1"},
		{"failed_limit", "/runs/failed?limit=1", http.StatusOK, "run-2"},
		{"bad_limit", "/runs/failed?limit=x", http.StatusBadRequest, ""},
		{"one", "/runs/run-1", http.StatusOK, "run-1"},
		{"unknown", "/runs/nope", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := serve(h, http.MethodGet, tt.target, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantIDs == "" {
				return
			}
			var out struct {
				ID   string        `json:"id"`
				Runs []journal.Run `json:"runs"`
			}
			if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			ids := []string{}
			if out.ID != "" {
				ids = append(ids, out.ID)
			}
			for _, r := range out.Runs {
				ids = append(ids, r.ID)
			}
			if got := strings.Join(ids, ","); got != tt.wantIDs {
				t.Fatalf("expected runs %s, got %s", tt.wantIDs, got)
			}
		})
	}
}

func TestHandleRuns_NotRegisteredWithoutJournal(t *testing.T) {
	t.Parallel()

	w := serve(New(&stubSubmitter{}, notFound(), Options{}), http.MethodGet, "/runs/failed", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a journal, got %d", w.Code)
	}
}

func TestHandleRuns_JournalError(t *testing.T) {
	t.Parallel()

	h := New(&stubSubmitter{}, notFound(), Options{Runs: &stubRuns{err: errors.New("disk full")}})
	w := serve(h, http.MethodGet, "/runs/failed", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestHandleLookups(t *testing.T) {
	t.Parallel()

	found := &stubReader{
		events:  eventquery.Result[[]eventquery.Event]{Code: gateway.CodeSearchSuccess, Data: []eventquery.Event{{ID: "1", Name: "A"}}, Total: 1},
		event:   eventquery.Result[*eventquery.Event]{Code: gateway.CodeSearchSuccess, Data: &eventquery.Event{ID: "1"}, Total: 1},
		tickets: eventquery.Result[[]eventquery.Ticket]{Code: gateway.CodeSearchSuccess},
	}

	tests := []struct {
		name       string
		reader     *stubReader
		target     string
		wantStatus int
		wantCode   gateway.Code
	}{
		{"list", found, "/events", http.StatusOK, gateway.CodeSearchSuccess},
		{"get", found, "/events/1", http.StatusOK, gateway.CodeSearchSuccess},
		{"tickets", found, "/events/1/tickets", http.StatusOK, gateway.CodeSearchSuccess},
		{"list_not_found", notFound(), "/events", http.StatusNotFound, gateway.CodeFindNotFound},
		{"get_not_found", notFound(), "/events/9", http.StatusNotFound, gateway.CodeFindNotFound},
		{"tickets_not_found", notFound(), "/events/9/tickets", http.StatusNotFound, gateway.CodeFindNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := serve(New(&stubSubmitter{}, tt.reader, Options{}), http.MethodGet, tt.target, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			var out struct {
				Code gateway.Code `json:"code"`
			}
			if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if out.Code != tt.wantCode {
				t.Fatalf("expected code %s, got %s", tt.wantCode, out.Code)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	w := serve(New(&stubSubmitter{}, notFound(), Options{}), http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", w.Code, w.Body.String())
	}
}

func TestNew_NilDependenciesPanic(t *testing.T) {
	t.Parallel()

	for name, fn := range map[string]func(){
		"submitter": func() { New(nil, notFound(), Options{}) },
		"reader":    func() { New(&stubSubmitter{}, nil, Options{}) },
	} {
		fn := fn
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			defer func() {
				if r := recover(); r == nil {
					t.Fatal("expected panic")
				}
			}()
			fn()
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	h := New(&stubSubmitter{}, notFound(), Options{})
	if h.requestTimeout != 10*time.Second {
		t.Fatalf("expected default timeout 10s, got %v", h.requestTimeout)
	}
	if h.maxBodyBytes != defaultMaxBodyBytes {
		t.Fatalf("expected default body limit, got %d", h.maxBodyBytes)
	}
}

// --- integration tests (real services) ---

var statuses = map[string]string{
	"event/Rascunho":    "st-draft",
	"ticket/Disponível": "st-ticket",
	"coupon/Disponível": "st-coupon",
}

func newIntegrationHandler(gw gateway.Gateway) *Handler {
	svc := submission.New(gw, submission.Options{Statuses: submission.StatusNames{
		EventDraft:      "Rascunho",
		TicketAvailable: "Disponível",
		CouponAvailable: "Disponível",
	}})
	return New(svc, eventquery.New(gw, nil), Options{})
}

func TestSubmit_InvalidSubmissionMakesNoCalls(t *testing.T) {
	t.Parallel()

	gw := gatewaytest.New(statuses)
	body := strings.Replace(validBody, `"quantity": 10`, `"quantity": 0`, 1)
	w := serve(newIntegrationHandler(gw), http.MethodPost, "/events", []byte(body))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var out model.SubmissionResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Error == nil || out.Error.Kind != apperr.KindInvalidInput || len(out.Error.Errors) == 0 {
		t.Fatalf("expected invalid_input with messages, got %+v", out.Error)
	}
	if n := len(gw.Calls()); n != 0 {
		t.Fatalf("expected no gateway calls, got %d", n)
	}
}

func TestSubmit_StatusMissing(t *testing.T) {
	t.Parallel()

	w := serve(newIntegrationHandler(gatewaytest.New(nil)), http.MethodPost, "/events", []byte(validBody))
	if w.Code != http.StatusFailedDependency {
		t.Fatalf("expected 424, got %d", w.Code)
	}
}

func TestAddTicket_RealLookups(t *testing.T) {
	t.Parallel()

	t.Run("unknown_event", func(t *testing.T) {
		t.Parallel()

		gw := gatewaytest.New(statuses)
		w := serve(newIntegrationHandler(gw), http.MethodPost, "/events/does-not-exist/tickets", []byte(lateTicketBody))
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
		}
		if n := gw.Count(gatewaytest.OpSearch, gateway.ResourceEvents); n != 1 {
			t.Fatalf("expected 1 event search, got %d", n)
		}
		if n := gw.Count(gatewaytest.OpCreate, gateway.ResourceTicket); n != 0 {
			t.Fatalf("expected no ticket creates, got %d", n)
		}
	})

	t.Run("existing_event", func(t *testing.T) {
		t.Parallel()

		gw := gatewaytest.New(statuses)
		gw.Records = map[string][]map[string]any{
			gateway.ResourceEvents:  {{"id": "event-7", "name": "Festival"}},
			gateway.ResourceTickets: {{"id": "ticket-a", "name": "A"}},
		}
		w := serve(newIntegrationHandler(gw), http.MethodPost, "/events/event-7/tickets", []byte(lateTicketBody))
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
		creates := gw.CallsTo(gatewaytest.OpCreate, gateway.ResourceTicket)
		if len(creates) != 1 || creates[0].Payload["event_id"] != "event-7" {
			t.Fatalf("expected one ticket on event-7, got %+v", creates)
		}
	})
}

func TestHandler_Stress(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in short mode")
	}

	gw := gatewaytest.New(statuses)
	gw.Respond = func(c gatewaytest.Call) (*gateway.Envelope, error) {
		if c.Op == gatewaytest.OpCreate && c.Resource == gateway.ResourceEvent {
			if name, _ := c.Payload["name"].(string); strings.HasSuffix(name, "-fail") {
				return gatewaytest.Failure("CREATE_FAILED"), nil
			}
		}
		return nil, nil
	}
	h := newIntegrationHandler(gw)

	const workers = 20
	const iterations = 25

	var wg sync.WaitGroup
	errCh := make(chan error, workers*iterations)

	for w := 0; w < workers; w++ {
		worker := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				idx := worker*iterations + i
				name := fmt.Sprintf("event-%d", idx)
				expected := http.StatusOK
				if idx%5 == 0 {
					name += "-fail"
					expected = http.StatusBadGateway
				}
				body := strings.Replace(validBody, `"Festival"`, fmt.Sprintf("%q", name), 1)

				rec := serve(h, http.MethodPost, "/events", []byte(body))
				if rec.Code != expected {
					errCh <- fmt.Errorf("%s: expected %d, got %d", name, expected, rec.Code)
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Error(err)
	}
	if got, want := gw.Count(gatewaytest.OpCreate, gateway.ResourceEvent), workers*iterations; got != want {
		t.Fatalf("expected %d event creates, got %d", want, got)
	}
}
