package answerer

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/openai/openai-go/v2/responses"

	"github.com/yanqian/askcache/internal/infra/llm/chatgpt"
)

type responsesAPI interface {
	New(ctx context.Context, body responses.ResponseNewParams, opts ...option.RequestOption) (*responses.Response, error)
}

// WebSearch answers with live context through the Responses API web search tool.
type WebSearch struct {
	api   responsesAPI
	model string
}

// NewWebSearch answers through the Responses API of the shared client.
func NewWebSearch(client *chatgpt.Client, model string) *WebSearch {
	return &WebSearch{api: client.Responses(), model: model}
}

// Search asks the model with the web_search_preview tool enabled.
func (w *WebSearch) Search(ctx context.Context, instructions, question string) (string, error) {
	params := responses.ResponseNewParams{
		Model: w.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(question),
		},
		Tools: []responses.ToolUnionParam{{
			OfWebSearchPreview: &responses.WebSearchToolParam{
				Type: responses.WebSearchToolTypeWebSearchPreview,
			},
		}},
	}
	if instructions != "" {
		params.Instructions = param.NewOpt(instructions)
	}
	resp, err := w.api.New(ctx, params)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.OutputText())
	if text == "" {
		return "", errors.New("web search response empty")
	}
	return text, nil
}
