package eventquery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/gateway"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/gateway/gatewaytest"
)

func venue() map[string]any {
	return map[string]any{
		"street":       "Rua A",
		"number":       "10",
		"neighborhood": "Centro",
		"city":         map[string]any{"name": "Recife", "state": map[string]any{"name": "PE"}},
	}
}

func TestList(t *testing.T) {
	t.Parallel()

	gw := gatewaytest.New(nil)
	gw.Records = map[string][]map[string]any{
		gateway.ResourceEvents: {
			{"id": 1, "name": "A", "address": venue()},
			{"id": "e-2", "name": "B"},
		},
	}

	res := New(gw, nil).List(context.Background())
	require.True(t, res.Found())
	require.Len(t, res.Data, 2)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, gateway.ID("1"), res.Data[0].ID)
	assert.Equal(t, "Rua A, 10 - Centro, Recife - PE", res.Data[0].Location)
	assert.Empty(t, res.Data[1].Location)

	calls := gw.CallsTo(gatewaytest.OpSearch, gateway.ResourceEvents)
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"name:asc"}, calls[0].Query["orderBy[]"])
	assert.Contains(t, calls[0].Query["preloads[]"], "address:city:state")
}

func TestListNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		respond func(gatewaytest.Call) (*gateway.Envelope, error)
	}{
		{"transport_error", func(gatewaytest.Call) (*gateway.Envelope, error) { return nil, errors.New("boom") }},
		{"wrong_code", func(gatewaytest.Call) (*gateway.Envelope, error) { return gatewaytest.Failure("SEARCH_FAILED"), nil }},
		{"no_body", func(gatewaytest.Call) (*gateway.Envelope, error) { return &gateway.Envelope{}, nil }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gw := gatewaytest.New(nil)
			gw.Respond = tt.respond
			res := New(gw, nil).List(context.Background())
			assert.False(t, res.Found())
			assert.Equal(t, gateway.CodeFindNotFound, res.Code)
			assert.Zero(t, res.Total)
		})
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	gw := gatewaytest.New(nil)
	gw.Records = map[string][]map[string]any{
		gateway.ResourceEvents: {{"id": "e-1", "name": "A", "address": venue()}},
	}

	res := New(gw, nil).Get(context.Background(), "e-1")
	require.True(t, res.Found())
	assert.Equal(t, "A", res.Data.Name)
	assert.Equal(t, "Rua A, 10 - Centro, Recife - PE", res.Data.Location)
	assert.Equal(t, "e-1", gw.Calls()[0].Query.Get("where[id][v]"))
}

func TestGetMissing(t *testing.T) {
	t.Parallel()

	res := New(gatewaytest.New(nil), nil).Get(context.Background(), "e-9")
	assert.False(t, res.Found())
	assert.Nil(t, res.Data)
}

func TestTickets(t *testing.T) {
	t.Parallel()

	gw := gatewaytest.New(nil)
	gw.Records = map[string][]map[string]any{
		gateway.ResourceTickets: {
			{
				"id": 5, "name": "VIP", "price": 10.5, "total_quantity": 100,
				"min_quantity_per_user": 1, "max_quantity_per_user": 4, "display_order": 1,
				"start_date": "2025-02-01T10:00:00.000-0300", "end_date": "2025-02-01T12:30:00.000-0300",
				"category": map[string]any{"id": 3, "name": "Premium"},
			},
			{"id": 6, "name": "Free", "start_date": "2025-02-01T10:00:00.000Z", "end_date": "2025-02-01"},
		},
	}

	res := New(gw, nil).Tickets(context.Background(), "e-1")
	require.True(t, res.Found())
	require.Len(t, res.Data, 2)

	vip := res.Data[0]
	assert.Equal(t, gateway.ID("5"), vip.ID)
	assert.Equal(t, 100, vip.Quantity)
	assert.Equal(t, 4, vip.MaxPurchase)
	assert.Equal(t, "2025-02-01", vip.StartDate)
	assert.Equal(t, "10:00", vip.StartTime)
	assert.Equal(t, "12:30", vip.EndTime)
	assert.Equal(t, &Category{ID: "3", Value: "Premium", Text: "Premium"}, vip.Category)

	free := res.Data[1]
	assert.Nil(t, free.Category)
	assert.Equal(t, "2025-02-01", free.EndDate)
	assert.Empty(t, free.EndTime)

	q := gw.Calls()[0].Query
	assert.Equal(t, "e-1", q.Get("where[event_id][v]"))
	assert.Equal(t, "category", q.Get("preloads[]"))
}
