// =============================================================================
// Ollama Provider
// =============================================================================
// Non-streaming text generation against a local Ollama instance.
//   POST /api/generate  completion
//   GET  /api/tags      health check
// =============================================================================

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/methodflow/internal/tlsutil"
	"github.com/BaSui01/methodflow/llm"
	"github.com/BaSui01/methodflow/types"
)

// ProviderName is the name reported by the provider.
const ProviderName = "ollama"

// Config holds the Ollama connection and generation defaults.
type Config struct {
	// BaseURL is the Ollama API root, e.g. "http://localhost:11434".
	BaseURL string

	// Model is used when the request does not name one.
	Model string

	// Timeout bounds each HTTP call. Defaults to 30s.
	Timeout time.Duration

	// Temperature applies when the request carries none; MaxTokens when the request leaves it zero.
	Temperature float32
	MaxTokens   int
}

// Provider implements llm.Provider over the Ollama REST API.
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates an Ollama provider.
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("provider", ProviderName)),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

type generateOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error"`
}

func (p *Provider) endpoint(path string) string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + path
}

// Complete performs a non-streaming generation.
func (p *Provider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	start := time.Now()

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	body := generateRequest{
		Model:  firstNonEmpty(req.Model, p.cfg.Model),
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
		Options: generateOptions{
			Temperature: p.cfg.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}
	if req.Temperature != nil {
		body.Options.Temperature = *req.Temperature
	}
	if body.Options.NumPredict == 0 {
		body.Options.NumPredict = p.cfg.MaxTokens
	}
	if body.Model == "" {
		return nil, types.NewError(types.ErrPlanner, "no model configured")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, types.WrapError(err, types.ErrPlanner, "encode generate request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint("/api/generate"), bytes.NewReader(payload))
	if err != nil {
		return nil, types.WrapError(err, types.ErrPlanner, "build generate request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, p.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readErrorMessage(resp.Body)
		return nil, types.Errorf(types.ErrPlanner, "ollama generate failed: status=%d msg=%s", resp.StatusCode, msg).
			WithHTTPStatus(resp.StatusCode).
			WithRetryable(resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.WrapError(err, types.ErrPlanner, "decode generate response")
	}
	if out.Error != "" {
		return nil, types.Errorf(types.ErrPlanner, "ollama generate failed: %s", out.Error)
	}

	duration := time.Since(start)
	p.logger.Debug("completion finished",
		zap.String("model", out.Model),
		zap.Int("prompt_tokens", out.PromptEvalCount),
		zap.Int("completion_tokens", out.EvalCount),
		zap.Duration("duration", duration))

	return &llm.CompletionResponse{
		Text:             out.Response,
		Model:            firstNonEmpty(out.Model, body.Model),
		PromptTokens:     out.PromptEvalCount,
		CompletionTokens: out.EvalCount,
		Duration:         duration,
	}, nil
}

// HealthCheck verifies Ollama is reachable via GET /api/tags.
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint("/api/tags"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &llm.HealthStatus{Healthy: false, Latency: latency},
			fmt.Errorf("ollama health check failed: status=%d", resp.StatusCode)
	}
	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

func (p *Provider) transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return types.WrapError(context.DeadlineExceeded, types.ErrPlanner, "ollama generate timed out")
	}
	return types.WrapError(err, types.ErrPlanner, "ollama unreachable").WithRetryable(true)
}

// readErrorMessage extracts {"error": "..."} or the raw body text.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "failed to read error response"
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
