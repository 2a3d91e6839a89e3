// Package status resolves status record ids by module and name.
package status

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/apperr"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/gateway"
)

// Modules that own status records.
const (
	ModuleEvent  = "event"
	ModuleTicket = "ticket"
	ModuleCoupon = "coupon"
)

// Resolver looks up status ids. Results are never cached; each run
// resolves again.
type Resolver struct {
	gw gateway.Gateway
}

// New returns a Resolver backed by gw.
func New(gw gateway.Gateway) *Resolver {
	if gw == nil {
		panic("status.New: nil gateway")
	}
	return &Resolver{gw: gw}
}

// Resolve returns the id of the first status matching module and name.
func (r *Resolver) Resolve(ctx context.Context, module, name string) (string, error) {
	env, err := r.gw.Search(ctx, gateway.ResourceStatuses, gateway.Where("module", module, "name", name))
	if err != nil {
		return "", apperr.New(apperr.KindStatusNotFound, module, name, err)
	}

	var recs []struct {
		ID json.RawMessage `json:"id"`
	}
	if err := gateway.Classify(env, gateway.CodeSearchSuccess).Records(&recs); err != nil {
		return "", apperr.New(apperr.KindStatusNotFound, module, name, err)
	}
	if len(recs) == 0 {
		return "", apperr.New(apperr.KindStatusNotFound, module, name, errors.New("no matching status"))
	}
	id, err := gateway.DecodeID(recs[0].ID)
	if err != nil {
		return "", apperr.New(apperr.KindStatusNotFound, module, name, err)
	}
	return id, nil
}
