package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// openAI talks to any OpenAI-compatible embeddings endpoint:
// POST {base_url}/embeddings with {"model": ..., "input": ...}.
type openAI struct {
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
	dim     int
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewOpenAI constructs an OpenAI-compatible embeddings provider from cfg.
func NewOpenAI(cfg *Config) Provider {
	return &openAI{
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *openAI) ModelID() string { return "openai:" + p.model }

func (p *openAI) Dim() int { return p.dim }

func (p *openAI) Embed(ctx context.Context, text string) ([]float32, error) {
	switch {
	case p.model == "":
		return nil, fmt.Errorf("embeddings model is not configured (set MBED_EMBEDDINGS_MODEL)")
	case p.apiKey == "":
		return nil, fmt.Errorf("embeddings API key is not configured (set MBED_EMBEDDINGS_API_KEY)")
	case strings.TrimSpace(text) == "":
		return nil, fmt.Errorf("cannot embed empty text")
	}

	payload, err := json.Marshal(embeddingRequest{Model: p.model, Input: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embeddings request failed: HTTP %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("cannot parse embeddings response: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embeddings response missing embedding")
	}

	vec := parsed.Data[0].Embedding
	p.dim = len(vec)
	return vec, nil
}
