// Package gatewaytest provides an in-memory, recording Gateway for tests.
package gatewaytest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/gateway"
)

// Op names a gateway operation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpSearch Op = "search"
	OpUpload Op = "upload"
)

// Call is one recorded gateway invocation.
type Call struct {
	Op       Op
	Resource string
	ID       string
	Payload  map[string]any
	Query    url.Values
	File     gateway.File
}

// Fake answers every call with a success envelope unless Respond overrides it.
// Created ids are "<resource>-<n>" with n counting per resource from 1.
type Fake struct {
	// Statuses maps "module/name" to a status id served by the statuses search.
	Statuses map[string]string
	// Records holds search results for collections other than statuses.
	Records map[string][]map[string]any
	// Respond may return a replacement envelope or error; nil, nil keeps the default.
	Respond func(Call) (*gateway.Envelope, error)
	// Before runs before the response is built, outside the lock.
	Before func(Call)

	mu    sync.Mutex
	calls []Call
	seq   map[string]int
}

var _ gateway.Gateway = (*Fake)(nil)

// New returns a Fake serving the given statuses.
func New(statuses map[string]string) *Fake {
	return &Fake{Statuses: statuses}
}

func (f *Fake) Create(ctx context.Context, resource string, payload any) (*gateway.Envelope, error) {
	return f.handle(ctx, Call{Op: OpCreate, Resource: resource, Payload: toMap(payload)})
}

func (f *Fake) Update(ctx context.Context, resource, id string, payload any) (*gateway.Envelope, error) {
	return f.handle(ctx, Call{Op: OpUpdate, Resource: resource, ID: id, Payload: toMap(payload)})
}

func (f *Fake) Delete(ctx context.Context, resource, id string) (*gateway.Envelope, error) {
	return f.handle(ctx, Call{Op: OpDelete, Resource: resource, ID: id})
}

func (f *Fake) Search(ctx context.Context, resource string, query url.Values) (*gateway.Envelope, error) {
	return f.handle(ctx, Call{Op: OpSearch, Resource: resource, Query: query})
}

func (f *Fake) Upload(ctx context.Context, attachmentID string, file gateway.File) (*gateway.Envelope, error) {
	return f.handle(ctx, Call{Op: OpUpload, Resource: gateway.ResourceUpload, ID: attachmentID, File: file})
}

func (f *Fake) handle(ctx context.Context, c Call) (*gateway.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	if f.Before != nil {
		f.Before(c)
	}
	if f.Respond != nil {
		env, err := f.Respond(c)
		if env != nil || err != nil {
			return env, err
		}
	}

	switch c.Op {
	case OpCreate:
		return Success(gateway.CodeCreateSuccess, map[string]any{"id": f.nextID(c.Resource)}), nil
	case OpUpdate:
		return Success(gateway.CodeUpdateSuccess, map[string]any{"id": c.ID}), nil
	case OpDelete:
		return Success(gateway.CodeDeleteSuccess, nil), nil
	case OpUpload:
		return Success(gateway.CodeCreateSuccess, map[string]any{"url": "https://cdn.test/" + c.File.Name}), nil
	default:
		return f.search(c), nil
	}
}

func (f *Fake) search(c Call) *gateway.Envelope {
	data := []map[string]any{}
	if c.Resource == gateway.ResourceStatuses {
		key := c.Query.Get("where[module][v]") + "/" + c.Query.Get("where[name][v]")
		if id, ok := f.Statuses[key]; ok {
			data = append(data, map[string]any{"id": id})
		}
	} else if recs, ok := f.Records[c.Resource]; ok {
		data = recs
	}
	return Success(gateway.CodeSearchSuccess, map[string]any{"data": data})
}

func (f *Fake) nextID(resource string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seq == nil {
		f.seq = make(map[string]int)
	}
	f.seq[resource]++
	return fmt.Sprintf("%s-%d", resource, f.seq[resource])
}

// Calls returns a copy of every recorded call in arrival order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the recorded calls matching op and resource.
func (f *Fake) CallsTo(op Op, resource string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Op == op && c.Resource == resource {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of calls matching op and resource.
func (f *Fake) Count(op Op, resource string) int {
	return len(f.CallsTo(op, resource))
}

// Success builds an envelope carrying code and result.
func Success(code gateway.Code, result any) *gateway.Envelope {
	raw, _ := json.Marshal(result)
	return &gateway.Envelope{Body: &gateway.Body{Code: code, Result: raw}}
}

// Failure builds an envelope carrying a non-success code.
func Failure(code gateway.Code) *gateway.Envelope {
	return &gateway.Envelope{Body: &gateway.Body{Code: code, Message: "rejected"}}
}

func toMap(payload any) map[string]any {
	if payload == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
