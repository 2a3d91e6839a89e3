package submission

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/gateway"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/journal"
)

// ledger is a Gateway that remembers every record it created, in creation
// order, so a failed run can report or delete what it left behind.
type ledger struct {
	gateway.Gateway

	mu      sync.Mutex
	created []journal.Resource
}

func newLedger(gw gateway.Gateway) *ledger {
	return &ledger{Gateway: gw}
}

func (l *ledger) Create(ctx context.Context, resource string, payload any) (*gateway.Envelope, error) {
	env, err := l.Gateway.Create(ctx, resource, payload)
	if err != nil {
		return env, err
	}
	if id, idErr := gateway.Classify(env, gateway.CodeCreateSuccess).ID(); idErr == nil {
		l.mu.Lock()
		l.created = append(l.created, journal.Resource{Resource: resource, ID: id})
		l.mu.Unlock()
	}
	return env, nil
}

func (l *ledger) resources() []journal.Resource {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]journal.Resource(nil), l.created...)
}

// compensate deletes the created records newest first. It keeps going past
// individual failures and returns them joined.
func (l *ledger) compensate(ctx context.Context) error {
	created := l.resources()
	var errs []error
	for i := len(created) - 1; i >= 0; i-- {
		r := created[i]
		env, err := l.Gateway.Delete(ctx, r.Resource, r.ID)
		if err == nil {
			err = gateway.Classify(env, gateway.CodeDeleteSuccess).Err()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("delete %s %s: %w", r.Resource, r.ID, err))
		}
	}
	return errors.Join(errs...)
}
