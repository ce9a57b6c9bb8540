package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/yanqian/askcache/internal/domain/qacache"
	"github.com/yanqian/askcache/internal/infra/llm/chatgpt"
)

type embeddingsAPI interface {
	New(ctx context.Context, body openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error)
}

// ChatGPTEmbedder calls an OpenAI-compatible embeddings API.
type ChatGPTEmbedder struct {
	api        embeddingsAPI
	model      string
	dimensions int
	logger     *slog.Logger
}

// NewChatGPTEmbedder constructs an embedder. dimensions is forwarded to models
// that support shortened vectors; zero leaves the model default.
func NewChatGPTEmbedder(client *chatgpt.Client, model string, dimensions int, logger *slog.Logger) *ChatGPTEmbedder {
	return newChatGPTEmbedder(client.Embeddings(), model, dimensions, logger)
}

func newChatGPTEmbedder(api embeddingsAPI, model string, dimensions int, logger *slog.Logger) *ChatGPTEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatGPTEmbedder{
		api:        api,
		model:      strings.TrimSpace(model),
		dimensions: dimensions,
		logger:     logger.With("component", "embedder.chatgpt"),
	}
}

// Embed returns the vector for text.
func (e *ChatGPTEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	input := strings.TrimSpace(text)
	if input == "" {
		return nil, errors.New("embedding input is empty")
	}
	params := openai.EmbeddingNewParams{
		Model: e.model,
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(input),
		},
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}
	resp, err := e.api.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if resp == nil || len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("embedding response empty")
	}
	if len(resp.Data) > 1 {
		e.logger.Warn("embedding result count mismatch", "expected", 1, "got", len(resp.Data))
	}
	vector := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}

var _ qacache.Embedder = (*ChatGPTEmbedder)(nil)
