package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hasiru/metrics"

	"google.golang.org/genai"
)

// Turn is one message of a conversation; Role is "user" or "model".
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// GenerateOptions mirrors the sampling knobs of the generative API.
type GenerateOptions struct {
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int32
	JSON            bool
}

// TextGenerator produces a model reply to prompt, given earlier turns.
type TextGenerator interface {
	Generate(ctx context.Context, history []Turn, prompt string, opts GenerateOptions) (string, error)
}

var ErrEmptyCompletion = errors.New("generative API returned no text")

// GeminiService generates text with Google's Gemini API.
type GeminiService struct {
	client *genai.Client
	model  string
}

func NewGeminiService(ctx context.Context, apiKey, model string) (*GeminiService, error) {
	if apiKey == "" {
		return nil, errors.New("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiService{client: client, model: model}, nil
}

func (g *GeminiService) Generate(ctx context.Context, history []Turn, prompt string, opts GenerateOptions) (string, error) {
	contents := buildContents(history, prompt)

	done := metrics.TimeCall("gemini", "generate_content")
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, generateConfig(opts))
	done(err == nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// buildContents maps chat turns onto Gemini contents and appends prompt as the user turn.
func buildContents(history []Turn, prompt string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		var role genai.Role = genai.RoleUser
		if t.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}
	return append(contents, genai.NewContentFromText(prompt, genai.RoleUser))
}

func generateConfig(opts GenerateOptions) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: opts.MaxOutputTokens,
	}
	if opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(opts.Temperature)
	}
	if opts.TopP > 0 {
		cfg.TopP = genai.Ptr(opts.TopP)
	}
	if opts.TopK > 0 {
		cfg.TopK = genai.Ptr(opts.TopK)
	}
	if opts.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}
