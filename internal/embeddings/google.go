package embeddings

import (
	"context"
	"fmt"
	"net/http"
)

const googleBatchEmbedURL = "https://generativelanguage.googleapis.com/v1beta/models/%s:batchEmbedContents"

// GoogleModel is a Gemini embedding model name.
type GoogleModel string

const (
	ModelGeminiEmbedding001 GoogleModel = "gemini-embedding-001"
	ModelTextEmbedding004   GoogleModel = "text-embedding-004"
)

func (m GoogleModel) dimensions() int {
	if m == ModelTextEmbedding004 {
		return 768
	}
	return 3072
}

// GoogleEmbedder uses the Generative Language batch embedding API.
type GoogleEmbedder struct {
	apiKey     string
	model      GoogleModel
	endpoint   string
	httpClient *http.Client
}

func NewGoogleEmbedder(apiKey string, model GoogleModel) *GoogleEmbedder {
	return &GoogleEmbedder{
		apiKey:     apiKey,
		model:      model,
		endpoint:   fmt.Sprintf(googleBatchEmbedURL, model),
		httpClient: &http.Client{},
	}
}

func (e *GoogleEmbedder) Name() string    { return "google/" + string(e.model) }
func (e *GoogleEmbedder) Dimensions() int { return e.model.dimensions() }

type googleBatchRequest struct {
	Requests []googleEmbedRequest `json:"requests"`
}

type googleEmbedRequest struct {
	Model   string        `json:"model"`
	Content googleContent `json:"content"`
}

type googleContent struct {
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleBatchResponse struct {
	Embeddings []struct {
		Values Vector `json:"values"`
	} `json:"embeddings"`
}

func (e *GoogleEmbedder) Embed(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batch := googleBatchRequest{Requests: make([]googleEmbedRequest, len(texts))}
	for i, text := range texts {
		batch.Requests[i] = googleEmbedRequest{
			Model:   "models/" + string(e.model),
			Content: googleContent{Parts: []googlePart{{Text: text}}},
		}
	}

	var resp googleBatchResponse
	headers := map[string]string{"x-goog-api-key": e.apiKey}
	if err := postJSON(ctx, e.httpClient, e.endpoint, headers, batch, &resp); err != nil {
		return nil, fmt.Errorf("google embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("google embed: got %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([]Vector, len(texts))
	for i, emb := range resp.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}
