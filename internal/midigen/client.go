package midigen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"mess-o-midi-backend/internal/apperr"
	"mess-o-midi-backend/internal/logger"
	"mess-o-midi-backend/internal/metrics"
	"mess-o-midi-backend/internal/models"
)

const (
	healthTimeout  = 5 * time.Second
	connectTimeout = 10 * time.Second
	requestTimeout = 30 * time.Second
)

// Kind is a generator exposed by the service.
type Kind string

const (
	KindBass          Kind = models.FileTypeBass
	KindSimpleChords  Kind = models.FileTypeSimpleChords
	KindComplexChords Kind = models.FileTypeComplexChords
)

var endpoints = map[Kind]string{
	KindBass:          "/api/generate/bass",
	KindSimpleChords:  "/api/generate/simple-chords",
	KindComplexChords: "/api/generate/complex-chords",
}

// ParseKind accepts the canonical names plus the aliases older clients send.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bass", "bassline":
		return KindBass, nil
	case "simple_chords", "simple-chords":
		return KindSimpleChords, nil
	case "complex_chords", "complex-chords":
		return KindComplexChords, nil
	}
	return "", apperr.Validation(fmt.Sprintf("unknown generation type %q", s))
}

// Options are the optional musical inputs. Nil slices are omitted.
type Options struct {
	Scale  []int `json:"scale,omitempty"`
	Rhythm []int `json:"rhythm,omitempty"`
}

type generateRequest struct {
	Filename string `json:"filename"`
	Options
}

type generateResponse struct {
	Success  *bool  `json:"success"`
	FilePath string `json:"filepath"`
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// Result describes a file the service wrote.
type Result struct {
	FilePath string
	Filename string
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*Result]
	log        *logger.Logger
}

// NewClient builds a client for the generation service at baseURL. timeout
// bounds each generation call; zero means 30s.
func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = requestTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		log: log,
	}

	c.breaker = gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        "midi-generation",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Bad input reported by the service is not an outage, and neither is
		// a caller that stopped waiting.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, apperr.ErrValidation) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.GenerationBreakerState.Set(float64(to))
			c.log.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return c
}

// BreakerState reports "closed", "half-open" or "open".
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// IsAvailable probes GET /health with a short timeout.
func (c *Client) IsAvailable(ctx context.Context) bool {
	if c.breaker.State() == gobreaker.StateOpen {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("Generation service health check failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// Generate asks the service to write filename. Every failure, including an
// open breaker, is reported as apperr.ErrUpstream.
func (c *Client) Generate(ctx context.Context, kind Kind, filename string, opts Options) (*Result, error) {
	endpoint, ok := endpoints[kind]
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("unknown generation type %q", kind))
	}

	result, err := c.breaker.Execute(func() (*Result, error) {
		return c.generate(ctx, endpoint, filename, opts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit breaker %v", apperr.ErrUpstream, err)
		}
		return nil, err
	}
	return result, nil
}

func (c *Client) generate(ctx context.Context, endpoint, filename string, opts Options) (*Result, error) {
	body, err := json.Marshal(generateRequest{Filename: filename, Options: opts})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", apperr.ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Only the caller's own context is kept in the chain; a client
		// timeout stays opaque and still counts against the breaker.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: request abandoned: %w", apperr.ErrUpstream, ctxErr)
		}
		return nil, fmt.Errorf("%w: failed to execute request: %v", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: request abandoned: %w", apperr.ErrUpstream, ctxErr)
		}
		return nil, fmt.Errorf("%w: failed to read response body: %v", apperr.ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: service returned HTTP %d: %s", apperr.ErrUpstream, resp.StatusCode, truncate(respBody))
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil || result.Success == nil {
		return nil, fmt.Errorf("%w: invalid response from generation service: %s", apperr.ErrUpstream, truncate(respBody))
	}
	if !*result.Success {
		msg := result.Error
		if msg == "" {
			msg = "unknown error from generation service"
		}
		return nil, fmt.Errorf("%w: %s", apperr.ErrUpstream, msg)
	}
	if result.FilePath == "" {
		return nil, fmt.Errorf("%w: response is missing filepath", apperr.ErrUpstream)
	}

	filename = result.Filename
	if filename == "" {
		filename = result.FilePath[strings.LastIndexAny(result.FilePath, `/\`)+1:]
	}
	return &Result{FilePath: result.FilePath, Filename: filename}, nil
}

// Download fetches a generated file over HTTP, for deployments where the
// service's output directory is not shared with this process.
func (c *Client) Download(ctx context.Context, filename string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/download/"+url.PathEscape(filename), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", apperr.ErrUpstream, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute request: %v", apperr.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: download returned HTTP %d", apperr.ErrUpstream, resp.StatusCode)
	}
	return resp.Body, nil
}

func truncate(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
