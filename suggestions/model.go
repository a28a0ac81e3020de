// Package suggestions drafts and revises plan documents with a generative model.
package suggestions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultTemperature = 0.4

// Model completes a prompt with a JSON plan document.
type Model interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var errEmptyResponse = errors.New("empty model response")

// Gemini is a Model backed by the Gemini API, constrained to the plan schema.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	response, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](defaultTemperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   PlanSchema(),
	})
	if err != nil {
		return "", err
	}

	var txt string
	for _, candidate := range response.Candidates {
		if candidate.Content != nil && len(candidate.Content.Parts) > 0 {
			txt = candidate.Content.Parts[0].Text
			break
		}
	}
	if strings.TrimSpace(txt) == "" {
		return "", errEmptyResponse
	}
	return txt, nil
}
