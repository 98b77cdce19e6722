package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// OpenAICompatible is a chat + transcription client for any provider
// exposing the OpenAI API shape. Groq and OpenAI itself both do.
type OpenAICompatible struct {
	name            string
	baseURL         string
	apiKey          string
	chatModel       string
	transcribeModel string
	client          *http.Client
}

// NewGroq builds a Groq-backed provider (Whisper for speech-to-text, Llama
// for summarization).
func NewGroq(apiKey, model string) *OpenAICompatible {
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return &OpenAICompatible{
		name:            "groq",
		baseURL:         "https://api.groq.com/openai/v1",
		apiKey:          apiKey,
		chatModel:       model,
		transcribeModel: "whisper-large-v3",
		client:          &http.Client{Timeout: 5 * time.Minute},
	}
}

// NewOpenAI builds an OpenAI-backed provider.
func NewOpenAI(apiKey, model string) *OpenAICompatible {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAICompatible{
		name:            "openai",
		baseURL:         "https://api.openai.com/v1",
		apiKey:          apiKey,
		chatModel:       model,
		transcribeModel: "whisper-1",
		client:          &http.Client{Timeout: 5 * time.Minute},
	}
}

func (p *OpenAICompatible) Name() string { return p.name }

type transcriptionResponse struct {
	Text  string      `json:"text"`
	Error interface{} `json:"error"`
}

// Transcribe uploads the audio to the provider's transcription endpoint.
func (p *OpenAICompatible) Transcribe(ctx context.Context, audio io.Reader, fileName string) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("buffer audio: %w", err)
	}
	if err := writer.WriteField("model", p.transcribeModel); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s transcription request: %w", p.name, err)
	}
	defer resp.Body.Close()

	var result transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode %s transcription response: %w", p.name, err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("%s api error: %v", p.name, result.Error)
	}
	if result.Text == "" {
		return "", fmt.Errorf("%s returned empty transcript", p.name)
	}
	return result.Text, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error interface{} `json:"error"`
}

// Complete runs a single-turn chat completion.
func (p *OpenAICompatible) Complete(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model":       p.chatModel,
		"messages":    []chatMessage{{Role: "user", Content: prompt}},
		"temperature": 0.2,
	}

	jsonBody, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s chat request: %w", p.name, err)
	}
	defer resp.Body.Close()

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode %s chat response: %w", p.name, err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("%s api error: %v", p.name, result.Error)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%s api error: empty choices", p.name)
	}
	return result.Choices[0].Message.Content, nil
}
