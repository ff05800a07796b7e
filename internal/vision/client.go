// Package vision sends stool photos to a multimodal model and returns its
// raw output. It holds backend credentials and only runs server side.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pet-triage-backend/internal/shared/apperr"
	"pet-triage-backend/internal/shared/telemetry"
	"pet-triage-backend/internal/shared/trust"
)

const (
	defaultTimeout  = 60 * time.Second
	maxResponseSize = 4 << 20
)

// Config configures a Client.
type Config struct {
	Backend  Backend
	Endpoint string
	APIKey   string
	Model    string
	Prompt   string
	Timeout  time.Duration
	// Referer and Title are sent to chat-completions routers that rank apps.
	Referer string
	Title   string
}

// RawOutput is the unparsed backend response.
type RawOutput struct {
	Backend     Backend
	Model       string
	StatusCode  int
	Payload     json.RawMessage
	Placeholder bool
}

// request is implemented once per wire format.
type request interface {
	build(ctx context.Context, c *Client, image []byte, contentType string) (*http.Request, error)
}

// Client calls the configured vision backend.
type Client struct {
	cfg        Config
	wire       request
	httpClient *http.Client
}

// New builds a client for cfg. A client without endpoint or key is valid
// and answers with the placeholder outside end-user requests.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = cfg.Backend.DefaultModel()
	}
	if strings.TrimSpace(cfg.Prompt) == "" {
		cfg.Prompt = PromptFor("keyword")
	}
	if cfg.Referer == "" {
		cfg.Referer = "https://localhost:3001"
	}
	if cfg.Title == "" {
		cfg.Title = "Pet Health Analysis App"
	}
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")

	var wire request
	switch cfg.Backend {
	case BackendChatCompletions:
		wire = chatCompletions{}
	case BackendDashScope:
		wire = dashScope{}
	case BackendMultipart:
		wire = multipartForm{}
	case BackendNone:
	default:
		return nil, apperr.Configuration("unknown vision backend %q", cfg.Backend)
	}
	return &Client{
		cfg:        cfg,
		wire:       wire,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Configured reports whether a backend, endpoint and key are all present.
func (c *Client) Configured() bool {
	return c != nil && c.wire != nil && c.cfg.Endpoint != "" && strings.TrimSpace(c.cfg.APIKey) != ""
}

// Backend returns the selected backend.
func (c *Client) Backend() Backend { return c.cfg.Backend }

type endUserKey struct{}

// WithEndUserRequest marks ctx as serving an end-user request. Missing
// configuration is then an error instead of a placeholder.
func WithEndUserRequest(ctx context.Context) context.Context {
	return context.WithValue(ctx, endUserKey{}, true)
}

// IsEndUserRequest reports whether ctx was marked by WithEndUserRequest.
func IsEndUserRequest(ctx context.Context) bool {
	v, _ := ctx.Value(endUserKey{}).(bool)
	return v
}

// Analyze sends one image to the backend. Transport failures return an
// *apperr.UpstreamError and never synthetic data.
func (c *Client) Analyze(ctx context.Context, image []byte, contentType string) (RawOutput, error) {
	if err := trust.Check("vision client"); err != nil {
		return RawOutput{}, err
	}
	if !c.Configured() {
		if IsEndUserRequest(ctx) {
			return RawOutput{}, apperr.Configuration("vision backend is not configured: set VISION_API_ENDPOINT and VISION_API_KEY")
		}
		telemetry.Warn("vision.placeholder", map[string]any{"reason": "backend not configured"})
		return RawOutput{Placeholder: true}, nil
	}

	req, err := c.wire.build(ctx, c, image, contentType)
	if err != nil {
		return RawOutput{}, fmt.Errorf("build %s request: %w", c.cfg.Backend, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		telemetry.Error("vision.transport_error", map[string]any{
			"backend": string(c.cfg.Backend),
			"error":   err.Error(),
		})
		return RawOutput{}, &apperr.UpstreamError{Backend: string(c.cfg.Backend), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return RawOutput{}, &apperr.UpstreamError{Backend: string(c.cfg.Backend), StatusCode: resp.StatusCode, Err: err}
	}

	fields := map[string]any{
		"backend":     string(c.cfg.Backend),
		"model":       c.cfg.Model,
		"status":      resp.StatusCode,
		"bytes":       len(body),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fields["body"] = string(body)
		telemetry.Error("vision.bad_status", fields)
		return RawOutput{}, &apperr.UpstreamError{Backend: string(c.cfg.Backend), StatusCode: resp.StatusCode, Body: string(body)}
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		telemetry.Error("vision.empty_body", fields)
		return RawOutput{}, &apperr.UpstreamError{
			Backend: string(c.cfg.Backend), StatusCode: resp.StatusCode, Err: fmt.Errorf("empty response body"),
		}
	}
	if !json.Valid(trimmed) {
		fields["body"] = string(body)
		telemetry.Error("vision.invalid_json", fields)
		return RawOutput{}, &apperr.UpstreamError{
			Backend: string(c.cfg.Backend), StatusCode: resp.StatusCode, Body: string(body), Err: fmt.Errorf("invalid JSON response"),
		}
	}
	telemetry.Info("vision.response", fields)

	return RawOutput{
		Backend:    c.cfg.Backend,
		Model:      c.cfg.Model,
		StatusCode: resp.StatusCode,
		Payload:    json.RawMessage(trimmed),
	}, nil
}
