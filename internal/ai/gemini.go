package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	appErr "github.com/xxxsen/askgate/internal/pkg/errors"
)

type geminiConfig struct {
	APIKeys string `json:"api_keys"`
}

type geminiProvider struct {
	keys *KeyRing
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) client(ctx context.Context) (*genai.Client, error) {
	apiKey := p.keys.Next()
	if apiKey == "" {
		return nil, appErr.New(appErr.ErrUpstreamUnavailable, "gemini: no api key configured")
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func (p *geminiProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	client, err := p.client(ctx)
	if err != nil {
		return "", err
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		nil,
	)
	if err != nil {
		return "", classifyGeminiError("gemini generate", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (p *geminiProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	client, err := p.client(ctx)
	if err != nil {
		return nil, err
	}
	var config *genai.EmbedContentConfig
	if taskType != "" {
		config = &genai.EmbedContentConfig{TaskType: taskType}
	}
	resp, err := client.Models.EmbedContent(
		ctx,
		model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		config,
	)
	if err != nil {
		return nil, classifyGeminiError("gemini embed", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, appErr.Wrap(appErr.ErrUpstreamUnavailable, "gemini embed", fmt.Errorf("no embedding values returned"))
	}
	return resp.Embeddings[0].Values, nil
}

func classifyGeminiError(action string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return appErr.Wrap(appErr.ErrUpstreamTimeout, action, err)
	}
	var apiErr genai.APIError
	if stderrors.As(err, &apiErr) {
		return appErr.Wrap(classifyStatus(apiErr.Code), action, err)
	}
	return appErr.Wrap(appErr.ErrUpstreamUnavailable, action, err)
}

func createGeminiFactory(args interface{}) (IProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &geminiProvider{keys: NewKeyRing(cfg.APIKeys)}, nil
}

func init() {
	Register("gemini", createGeminiFactory)
}
