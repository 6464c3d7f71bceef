package gemini

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/domain/entity"
	"github.com/brandlens/brandlens/internal/domain/service"
	domaintool "github.com/brandlens/brandlens/internal/domain/tool"
	"github.com/brandlens/brandlens/internal/infrastructure/llm"
	"github.com/brandlens/brandlens/pkg/errors"
)

// Provider implements the Google Gemini API natively.
type Provider struct {
	baseURL string
	apiKey  string
	model   string
	cfg     llm.Config
	client  *http.Client
	logger  *zap.Logger
}

// New creates a Gemini provider. The API key must be present; the lazy
// wrapper surfaces this on first use.
func New(cfg llm.Config, logger *zap.Logger) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewInternalError("LLM API key is not configured")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 300 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}

	return &Provider{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		cfg:     cfg,
		client:  &http.Client{Transport: transport},
		logger:  logger.With(zap.String("provider", "gemini"), zap.String("model", model)),
	}, nil
}

var _ service.LLMClient = (*Provider)(nil)

// GenerateStream implements service.LLMClient with Gemini SSE streaming.
// Cancelling ctx force-closes the response body so the upstream request is
// torn down, not merely abandoned.
func (p *Provider) GenerateStream(ctx context.Context, system string, history []entity.Turn, tools []domaintool.Definition, deltaCh chan<- service.StreamPart) (*entity.Turn, error) {
	apiReq := p.buildAPIRequest(system, history, tools)

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse&key=%s", p.baseURL, p.model, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Classify(ctx.Err())
		}
		return nil, errors.NewUpstreamError("LLM request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, errors.NewUpstreamError(
			fmt.Sprintf("Gemini API error %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	streamDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.logger.Info("Context cancelled, force-closing Gemini SSE stream",
				zap.Error(ctx.Err()))
			resp.Body.Close()
		case <-streamDone:
		}
	}()

	final, err := ParseSSEStream(ctx, resp.Body, deltaCh, p.logger)
	close(streamDone)
	if err != nil && ctx.Err() != nil {
		return nil, errors.Classify(ctx.Err())
	}
	return final, err
}

// buildAPIRequest maps the domain history onto the Gemini wire format.
func (p *Provider) buildAPIRequest(system string, history []entity.Turn, tools []domaintool.Definition) *Request {
	apiReq := &Request{
		GenerationConfig: &GenerationConfig{
			Temperature:     p.cfg.Temperature,
			MaxOutputTokens: p.cfg.MaxOutputTokens,
			ThinkingConfig:  &ThinkingConfig{IncludeThoughts: true},
		},
	}

	if system != "" {
		apiReq.SystemInstruction = &Content{Parts: []Part{{Text: system}}}
	}

	for _, turn := range history {
		role := "user"
		if turn.Role == entity.RoleModel {
			role = "model"
		}
		content := Content{Role: role}
		for _, part := range turn.Parts {
			content.Parts = append(content.Parts, toAPIPart(part))
		}
		if len(content.Parts) > 0 {
			apiReq.Contents = append(apiReq.Contents, content)
		}
	}

	if len(tools) > 0 {
		decls := make([]FunctionDeclarationSpec, 0, len(tools))
		for _, td := range tools {
			decls = append(decls, FunctionDeclarationSpec{
				Name:        td.Name,
				Description: td.Description,
				Parameters:  ConvertSchema(td.Parameters),
			})
		}
		apiReq.Tools = []ToolDeclaration{{FunctionDeclarations: decls}}
	}

	return apiReq
}

func toAPIPart(part entity.Part) Part {
	switch {
	case part.FunctionCall != nil:
		return Part{FunctionCall: &FunctionCall{
			Name: part.FunctionCall.Name,
			Args: part.FunctionCall.Args,
		}}
	case part.FunctionResponse != nil:
		return Part{FunctionResponse: &FunctionResponse{
			Name:     part.FunctionResponse.Name,
			Response: part.FunctionResponse.Response,
		}}
	case part.Thought:
		flag := true
		return Part{Text: part.Text, Thought: &flag}
	default:
		return Part{Text: part.Text}
	}
}
