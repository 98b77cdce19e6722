// Package ai holds the transcription and summarization provider clients
// used by the recordings pipeline.
package ai

import (
	"context"
	"io"
)

// Provider is a speech-to-text plus chat-completion backend. Implementations
// return raw model output; response parsing happens in the recordings
// package.
type Provider interface {
	// Name returns the provider identifier (groq, openai, gemini).
	Name() string
	// Transcribe converts call audio to text. Providers without a
	// speech-to-text endpoint return an error.
	Transcribe(ctx context.Context, audio io.Reader, fileName string) (string, error)
	// Complete runs a single-turn chat completion and returns the raw text.
	Complete(ctx context.Context, prompt string) (string, error)
}
