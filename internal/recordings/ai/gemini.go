package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/genai"
)

// Gemini is a summarization-only provider. It has no speech-to-text
// endpoint, so Transcribe always fails and organizations using Gemini as
// default need another provider for transcription.
type Gemini struct {
	apiKey string
	model  string
}

func NewGemini(apiKey, model string) *Gemini {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Gemini{apiKey: apiKey, model: model}
}

func (g *Gemini) Name() string { return "gemini" }

// Transcribe is unsupported on Gemini.
func (g *Gemini) Transcribe(_ context.Context, _ io.Reader, _ string) (string, error) {
	return "", errors.New("gemini does not support audio transcription")
}

// Complete runs a single-turn generation.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("create gemini client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generation: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini returned empty response")
	}
	return text, nil
}
