package coupon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/apperr"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/gateway"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/gateway/gatewaytest"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/model"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/status"
)

var statuses = map[string]string{"coupon/Disponível": "st-coupon"}

func couponInput(code string, tickets ...string) model.CouponInput {
	return model.CouponInput{
		Code:          code,
		DiscountType:  model.DiscountFixed,
		DiscountValue: "5,00",
		MaxUses:       10,
		StartDate:     "2025-02-01",
		StartTime:     "10:00",
		EndDate:       "2025-02-10",
		EndTime:       "23:59",
		Tickets:       tickets,
	}
}

func newStep(gw *gatewaytest.Fake) *Step {
	return New(gw, status.New(gw), "Disponível")
}

func TestCreateAll(t *testing.T) {
	t.Parallel()

	gw := gatewaytest.New(statuses)
	res, err := newStep(gw).CreateAll(context.Background(), "event-1", []model.CouponInput{
		couponInput("VIP10", "T1", "T2"),
		couponInput("ALL5"),
		couponInput("EARLY", "T1"),
	})
	require.NoError(t, err)

	calls := gw.CallsTo(gatewaytest.OpCreate, gateway.ResourceCoupon)
	require.Len(t, calls, 3)
	for _, c := range calls {
		assert.EqualValues(t, 5, c.Payload["discount_value"])
		assert.Equal(t, "st-coupon", c.Payload["status_id"])
		assert.Equal(t, "2025-02-01T10:00:00.000-0300", c.Payload["start_date"])
		assert.Equal(t, "2025-02-10T23:59:00.000-0300", c.Payload["end_date"])
	}

	require.Len(t, res.Codes, 3)
	assert.ElementsMatch(t, []string{res.Codes["VIP10"], res.Codes["EARLY"]}, res.Targets["T1"])
	assert.Equal(t, []string{res.Codes["VIP10"]}, res.Targets["T2"])
	assert.Len(t, res.Targets, 2)
}

func TestCreateAllPartitionsOverlap(t *testing.T) {
	t.Parallel()

	// Each create blocks until both partitions have issued one call.
	var wg sync.WaitGroup
	wg.Add(2)
	gw := gatewaytest.New(statuses)
	gw.Before = func(c gatewaytest.Call) {
		if c.Resource != gateway.ResourceCoupon {
			return
		}
		wg.Done()
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("coupon partitions did not run concurrently")
		}
	}

	_, err := newStep(gw).CreateAll(context.Background(), "event-1", []model.CouponInput{
		couponInput("T1ONLY", "T1"),
		couponInput("GLOBAL"),
	})
	require.NoError(t, err)
}

func TestCreateAllEmpty(t *testing.T) {
	t.Parallel()

	gw := gatewaytest.New(nil)
	res, err := newStep(gw).CreateAll(context.Background(), "event-1", nil)
	require.NoError(t, err)
	assert.Empty(t, res.Targets)
	assert.Empty(t, gw.Calls())
}

func TestCreateAllGlobalFails(t *testing.T) {
	t.Parallel()

	gw := gatewaytest.New(statuses)
	gw.Respond = func(c gatewaytest.Call) (*gateway.Envelope, error) {
		if c.Op == gatewaytest.OpCreate && c.Payload["code"] == "ALL5" {
			return gatewaytest.Failure("CREATE_FAILED"), nil
		}
		return nil, nil
	}

	res, err := newStep(gw).CreateAll(context.Background(), "event-1", []model.CouponInput{
		couponInput("VIP10", "T1"),
		couponInput("ALL5"),
	})
	assert.True(t, errors.Is(err, apperr.ErrCouponCreateFailed))
	assert.Nil(t, res.Targets)
	assert.Equal(t, 2, gw.Count(gatewaytest.OpCreate, gateway.ResourceCoupon))
}

func TestCreateAllBadDiscount(t *testing.T) {
	t.Parallel()

	in := couponInput("BAD")
	in.DiscountValue = "five"
	gw := gatewaytest.New(statuses)
	_, err := newStep(gw).CreateAll(context.Background(), "event-1", []model.CouponInput{in})
	assert.True(t, errors.Is(err, apperr.ErrCouponCreateFailed))
	assert.Equal(t, 0, gw.Count(gatewaytest.OpCreate, gateway.ResourceCoupon))
}
