// Package generation calls the content proxy and returns raw model text.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/studycards/internal/domain/content"
	"github.com/yungbote/studycards/internal/observability"
	"github.com/yungbote/studycards/internal/platform/ctxutil"
	"github.com/yungbote/studycards/internal/platform/logger"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultRetryDelay = 1 * time.Second
	DefaultPath       = "/api/gemini"

	RequestIDHeader = "X-Request-Id"
)

type Options struct {
	BaseURL    string
	Path       string
	Timeout    time.Duration
	RetryDelay time.Duration
	HTTPClient *http.Client
	Logger     *logger.Logger
	Metrics    *observability.Metrics
}

type Client struct {
	baseURL    string
	path       string
	timeout    time.Duration
	retryDelay time.Duration
	httpClient *http.Client
	log        *logger.Logger
	metrics    *observability.Metrics
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	delay := opts.RetryDelay
	switch {
	case delay == 0:
		delay = DefaultRetryDelay
	case delay < 0:
		delay = 0
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL:    baseURL,
		path:       path,
		timeout:    timeout,
		retryDelay: delay,
		httpClient: hc,
		log:        log.With("service", "GenerationClient"),
		metrics:    opts.Metrics,
	}, nil
}

func (c *Client) Endpoint() string { return c.baseURL + c.path }

type generateResponse struct {
	Text *string `json:"text"`
}

// Generate sends one content request to the proxy. A timed-out attempt is retried
// exactly once after the retry delay; every other failure is returned immediately.
func (c *Client) Generate(ctx context.Context, action content.Action, payload content.Payload) (string, error) {
	ctx, span := otel.Tracer("studycards/generation").Start(ctx, "generation.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("generation.action", string(action)))
	start := time.Now()

	body, err := json.Marshal(content.Request{Action: action, Payload: payload})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	text, err := c.attempt(ctx, body)
	if errors.Is(err, ErrTimeout) {
		c.log.Warn("generation attempt timed out, retrying", "action", action, "delay", c.retryDelay.String())
		span.AddEvent("retry")
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(c.retryDelay):
			text, err = c.attempt(ctx, body)
		}
	}
	c.metrics.ObserveGeneration(string(action), outcome(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return text, nil
}

func outcome(err error) string {
	var se *ServerError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.As(err, &se):
		return "server"
	default:
		return "canceled"
	}
}

func (c *Client) attempt(ctx context.Context, body []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := ctxutil.RequestID(ctx); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.classify(ctx, attemptCtx, err)
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	_ = resp.Body.Close()
	if readErr != nil {
		return "", c.classify(ctx, attemptCtx, readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", parseServerError(resp.StatusCode, raw)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil || out.Text == nil {
		if err == nil {
			err = errors.New("missing text field")
		}
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}
	return *out.Text, nil
}

// classify maps a transport error onto the package taxonomy. Caller cancellation
// is passed through untouched so it is never retried.
func (c *Client) classify(parent, attemptCtx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
