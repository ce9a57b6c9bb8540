package chatgpt

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/responses"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client holds the one OpenAI SDK client shared by chat answers, embeddings
// and web search.
type Client struct {
	sdk     openai.Client
	baseURL string
}

// NewClient constructs a client for an OpenAI-compatible API. A zero timeout
// selects 60s. Retries are left to the caller.
func NewClient(apiKey, baseURL string, timeout time.Duration) (*Client, error) {
	return NewClientWithHTTP(apiKey, baseURL, &http.Client{Timeout: withDefaultTimeout(timeout)})
}

// NewClientWithHTTP is NewClient with a caller-supplied transport.
func NewClientWithHTTP(apiKey, baseURL string, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("chatgpt api key cannot be empty")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: withDefaultTimeout(0)}
	}
	sdk := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL+"/"),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)
	return &Client{sdk: sdk, baseURL: baseURL}, nil
}

func withDefaultTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 60 * time.Second
	}
	return timeout
}

// BaseURL reports the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Completions exposes the chat completions service.
func (c *Client) Completions() *openai.ChatCompletionService {
	return &c.sdk.Chat.Completions
}

// Embeddings exposes the embeddings service.
func (c *Client) Embeddings() *openai.EmbeddingService {
	return &c.sdk.Embeddings
}

// Responses exposes the Responses API used for web search.
func (c *Client) Responses() *responses.ResponseService {
	return &c.sdk.Responses
}
