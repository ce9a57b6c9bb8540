package answerer

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/yanqian/askcache/internal/domain/qacache"
	"github.com/yanqian/askcache/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/askcache/pkg/errors"
)

// DefaultPrompt frames the model as a classroom assistant inside a VR lesson.
const DefaultPrompt = "Sen VR içindeki öğretmensin. Cevapları HER ZAMAN Türkçe ver. Kısa ve net ol."

// Config tunes how questions are sent to the model.
type Config struct {
	Model       string
	Prompt      string
	Temperature float32
}

type completionsAPI interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

type searcher interface {
	Search(ctx context.Context, instructions, question string) (string, error)
}

// ChatAnswerer sends questions to a chat completions model and, when asked for
// retrieval, to a web-search capable model first.
type ChatAnswerer struct {
	cfg    Config
	chat   completionsAPI
	web    searcher
	logger *slog.Logger
}

// NewChatAnswerer constructs the answerer. web may be nil to disable retrieval.
func NewChatAnswerer(cfg Config, client *chatgpt.Client, web *WebSearch, logger *slog.Logger) *ChatAnswerer {
	var s searcher
	if web != nil {
		s = web
	}
	return newChatAnswerer(cfg, client.Completions(), s, logger)
}

func newChatAnswerer(cfg Config, chat completionsAPI, web searcher, logger *slog.Logger) *ChatAnswerer {
	if strings.TrimSpace(cfg.Prompt) == "" {
		cfg.Prompt = DefaultPrompt
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatAnswerer{
		cfg:    cfg,
		chat:   chat,
		web:    web,
		logger: logger.With("component", "answerer.chat"),
	}
}

// Answer implements qacache.Answerer.
func (a *ChatAnswerer) Answer(ctx context.Context, question string, useRetrieval bool) (qacache.Answer, error) {
	if useRetrieval && a.web != nil {
		text, err := a.web.Search(ctx, a.cfg.Prompt, question)
		if err == nil {
			return qacache.Answer{Text: text, Retrieval: true}, nil
		}
		a.logger.Warn("web search answer failed, falling back to chat", "error", err)
	}

	params := openai.ChatCompletionNewParams{
		Model: a.cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(a.cfg.Prompt),
			openai.UserMessage(question),
		},
	}
	if a.cfg.Temperature > 0 {
		params.Temperature = openai.Float(float64(a.cfg.Temperature))
	}
	resp, err := a.chat.New(ctx, params)
	if err != nil {
		return qacache.Answer{}, apperrors.Wrap(apperrors.CodeLLM, "chatgpt request failed", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return qacache.Answer{}, apperrors.Wrap(apperrors.CodeLLM, "chatgpt returned no choices", errors.New("empty choices"))
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return qacache.Answer{}, apperrors.Wrap(apperrors.CodeLLM, "chatgpt response empty", nil)
	}
	return qacache.Answer{Text: text}, nil
}

// Unconfigured reports a missing API key for every question.
type Unconfigured struct{}

// Answer implements qacache.Answerer.
func (Unconfigured) Answer(context.Context, string, bool) (qacache.Answer, error) {
	return qacache.Answer{}, apperrors.Wrap(apperrors.CodeLLM, "llm api key is not configured", nil)
}

var (
	_ qacache.Answerer = (*ChatAnswerer)(nil)
	_ qacache.Answerer = Unconfigured{}
)
