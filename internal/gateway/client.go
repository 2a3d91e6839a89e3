package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/apperr"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/pool"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/tracker"
)

const maxResponseBytes = 10 << 20

var errServerStatus = errors.New("gateway server error")

// CallObserver records the outcome of each remote call.
type CallObserver interface {
	ObserveCall(resource, op, outcome string, d time.Duration)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration

	// BreakerFailures consecutive transport failures open the breaker for
	// BreakerCooldown.
	BreakerFailures uint32
	BreakerCooldown time.Duration

	Limiter    *pool.Pool
	Tracker    *tracker.Tracker
	Observer   CallObserver
	Logger     *zap.Logger
	HTTPClient *http.Client
}

// Client is the JSON-over-HTTP Gateway.
type Client struct {
	base     *url.URL
	token    string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	limiter  *pool.Pool
	tracker  *tracker.Tracker
	observer CallObserver
	logger   *zap.Logger
}

var _ Gateway = (*Client)(nil)

// NewClient returns a Client for opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("gateway base url %q must be absolute", opts.BaseURL)
	}

	// The caller's client is copied so its transport is wrapped only here.
	hc := &http.Client{Timeout: opts.Timeout}
	if opts.HTTPClient != nil {
		copied := *opts.HTTPClient
		hc = &copied
	}
	transport := hc.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	hc.Transport = otelhttp.NewTransport(transport)

	if opts.Limiter == nil {
		opts.Limiter = pool.New(16)
	}
	if opts.Tracker == nil {
		opts.Tracker = &tracker.Tracker{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "gateway",
		Timeout: opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			opts.Logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		base:     base,
		token:    opts.Token,
		http:     hc,
		breaker:  cb,
		limiter:  opts.Limiter,
		tracker:  opts.Tracker,
		observer: opts.Observer,
		logger:   opts.Logger,
	}, nil
}

// Create posts payload to the resource collection.
func (c *Client) Create(ctx context.Context, resource string, payload any) (*Envelope, error) {
	return c.do(ctx, "create", resource, func() (*http.Request, error) {
		return c.jsonRequest(ctx, http.MethodPost, c.base.JoinPath(resource), payload)
	})
}

// Update replaces fields of one resource record.
func (c *Client) Update(ctx context.Context, resource, id string, payload any) (*Envelope, error) {
	return c.do(ctx, "update", resource, func() (*http.Request, error) {
		return c.jsonRequest(ctx, http.MethodPut, c.base.JoinPath(resource, id), payload)
	})
}

// Delete removes one resource record.
func (c *Client) Delete(ctx context.Context, resource, id string) (*Envelope, error) {
	return c.do(ctx, "delete", resource, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodDelete, c.base.JoinPath(resource, id), nil, "")
	})
}

// Search queries a collection with filter parameters.
func (c *Client) Search(ctx context.Context, resource string, query url.Values) (*Envelope, error) {
	return c.do(ctx, "search", resource, func() (*http.Request, error) {
		u := c.base.JoinPath(resource)
		u.RawQuery = query.Encode()
		return c.newRequest(ctx, http.MethodGet, u, nil, "")
	})
}

// Upload sends file as multipart form data keyed to attachmentID.
func (c *Client) Upload(ctx context.Context, attachmentID string, file File) (*Envelope, error) {
	return c.do(ctx, "upload", ResourceUpload, func() (*http.Request, error) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		if err := w.WriteField("attachment_id", attachmentID); err != nil {
			return nil, err
		}

		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return c.newRequest(ctx, http.MethodPost, c.base.JoinPath(ResourceUpload), &buf, w.FormDataContentType())
	})
}

func (c *Client) do(ctx context.Context, op, resource string, build func() (*http.Request, error)) (*Envelope, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.limiter.Release()

	c.tracker.Inc()
	defer c.tracker.Dec()

	req, err := build()
	if err != nil {
		return nil, fmt.Errorf("%s %s: build request: %w", op, resource, err)
	}

	start := time.Now()
	env, err := executeWithBreaker(c.breaker, func() (*Envelope, error) {
		return c.roundTrip(req)
	})
	elapsed := time.Since(start)

	outcome := "transport_error"
	switch {
	case err != nil:
	case env.Body == nil:
		outcome = "no_body"
	default:
		outcome = string(env.Body.Code)
	}
	if c.observer != nil {
		c.observer.ObserveCall(resource, op, outcome, elapsed)
	}
	c.logger.Debug("gateway call",
		zap.String("op", op),
		zap.String("resource", resource),
		zap.String("outcome", outcome),
		zap.Duration("duration", elapsed),
	)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s %s: %w", op, resource, apperr.ErrGatewayUnavailable)
		}
		return nil, fmt.Errorf("%s %s: %w", op, resource, err)
	}
	return env, nil
}

func (c *Client) roundTrip(req *http.Request) (*Envelope, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", errServerStatus, resp.StatusCode)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode < http.StatusBadRequest {
			return nil, fmt.Errorf("decode envelope: %w", err)
		}
		// Non-JSON client errors classify as a missing body.
		return &Envelope{}, nil
	}
	return &env, nil
}

func (c *Client) jsonRequest(ctx context.Context, method string, u *url.URL, payload any) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return c.newRequest(ctx, method, u, bytes.NewReader(data), "application/json")
}

func (c *Client) newRequest(ctx context.Context, method string, u *url.URL, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func executeWithBreaker[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return *new(T), err
	}
	return res.(T), nil
}
