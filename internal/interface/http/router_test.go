package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/askcache/internal/domain/qacache"
	"github.com/yanqian/askcache/internal/infra/config"
	apperrors "github.com/yanqian/askcache/pkg/errors"
	"github.com/yanqian/askcache/pkg/metrics"
)

func TestRouter_AskSuccess(t *testing.T) {
	resp := qacache.Response{Answer: "Paris", Cached: true, Mode: qacache.ModeExact, Similarity: 1}
	svc := &stubService{
		askFn: func(ctx context.Context, req qacache.Request) (qacache.Response, error) {
			require.Equal(t, "What is the capital of France?", req.Question)
			return resp, nil
		},
	}

	recorder := performRequest(http.MethodPost, "/ask", `{"question":"What is the capital of France?"}`, newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NotEmpty(t, recorder.Header().Get(requestIDHeader))

	var got qacache.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, resp, got)
}

func TestRouter_AskVersionedPath(t *testing.T) {
	svc := &stubService{
		askFn: func(ctx context.Context, req qacache.Request) (qacache.Response, error) {
			return qacache.Response{Answer: "ok", Mode: qacache.ModeLLM}, nil
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/ask", `{"question":"hi"}`, newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestRouter_AskInvalidJSON(t *testing.T) {
	recorder := performRequest(http.MethodPost, "/ask", `{"question":123}`, newRouterUnderTest(t, &stubService{}))
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
	require.NotEmpty(t, errBody["error"]["message"])
}

func TestRouter_AskEmptyQuestion(t *testing.T) {
	svc := &stubService{
		askFn: func(ctx context.Context, req qacache.Request) (qacache.Response, error) {
			return qacache.Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "question cannot be empty", nil)
		},
	}

	recorder := performRequest(http.MethodPost, "/ask", `{"question":"  "}`, newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
	require.Contains(t, errBody["error"]["message"], "question cannot be empty")
}

func TestRouter_AskInternalFailure(t *testing.T) {
	svc := &stubService{
		askFn: func(ctx context.Context, req qacache.Request) (qacache.Response, error) {
			return qacache.Response{}, errors.New("boom")
		},
	}

	recorder := performRequest(http.MethodPost, "/ask", `{"question":"hi"}`, newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	require.Equal(t, 1, svc.askCalls)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "internal_error", errBody["error"]["code"])
	require.Equal(t, "something went wrong", errBody["error"]["message"])
}

func TestRouter_Health(t *testing.T) {
	recorder := performRequest(http.MethodGet, "/health", "", newRouterUnderTest(t, &stubService{}))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"ok":true}`, recorder.Body.String())
}

func TestRouter_DBCheck(t *testing.T) {
	recorder := performRequest(http.MethodGet, "/dbcheck", "", newRouterUnderTest(t, &stubService{}))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"ok":true,"backend":"memory"}`, recorder.Body.String())
}

func TestRouter_DBCheckUnavailable(t *testing.T) {
	svc := &stubService{
		checkFn: func(ctx context.Context) error {
			return apperrors.Wrap(apperrors.CodeStore, "store unavailable", errors.New("connection refused"))
		},
	}

	recorder := performRequest(http.MethodGet, "/dbcheck", "", newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	require.Equal(t, 1, svc.checkCalls)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "store_unavailable", errBody["error"]["code"])
}

func TestRouter_Trending(t *testing.T) {
	svc := &stubService{
		trendingFn: func(ctx context.Context) ([]qacache.TrendingQuery, error) {
			return []qacache.TrendingQuery{{Query: "weather today", Count: 3}}, nil
		},
	}

	recorder := performRequest(http.MethodGet, "/api/v1/trending", "", newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"trending":[{"query":"weather today","count":3}]}`, recorder.Body.String())
}

func TestRouter_TrendingRetriesTransientFailure(t *testing.T) {
	svc := &stubService{}
	svc.trendingFn = func(ctx context.Context) ([]qacache.TrendingQuery, error) {
		if svc.trendingCalls == 1 {
			return nil, errors.New("flaky")
		}
		return []qacache.TrendingQuery{}, nil
	}

	recorder := performRequest(http.MethodGet, "/api/v1/trending", "", newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, 2, svc.trendingCalls)
}

func TestRouter_PreflightAllowsAnyOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/ask", nil)
	req.Header.Set("Origin", "https://example.org")
	rec := httptest.NewRecorder()
	newRouterUnderTest(t, &stubService{}).Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RateLimit(t *testing.T) {
	svc := &stubService{}
	cfg := testConfig()
	cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	server := NewRouter(cfg, NewHandler(svc, "memory", newTestLogger()), nil)

	first := performRequest(http.MethodPost, "/ask", `{"question":"hi"}`, server)
	require.Equal(t, http.StatusOK, first.Code)

	second := performRequest(http.MethodPost, "/ask", `{"question":"hi"}`, server)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.Equal(t, "rate_limit_exceeded", decodeErrorBody(t, second.Body.Bytes())["error"]["code"])
}

func TestRouter_RateLimitSharedAcrossAskPaths(t *testing.T) {
	svc := &stubService{}
	cfg := testConfig()
	cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	server := NewRouter(cfg, NewHandler(svc, "memory", newTestLogger()), nil)

	first := performRequest(http.MethodPost, "/ask", `{"question":"hi"}`, server)
	require.Equal(t, http.StatusOK, first.Code)

	second := performRequest(http.MethodPost, "/api/v1/ask", `{"question":"hi"}`, server)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.Equal(t, "60", second.Header().Get("Retry-After"))
	require.Equal(t, 1, svc.askCalls)
}

func TestRouter_CORSAllowList(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.AllowedOrigins = []string{"https://vr.example", "https://admin.example"}
	server := NewRouter(cfg, NewHandler(&stubService{}, "memory", newTestLogger()), nil)

	req := httptest.NewRequest(http.MethodOptions, "/ask", nil)
	req.Header.Set("Origin", "https://admin.example")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://admin.example", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics = config.MetricsConfig{Enabled: true, Path: "/metrics"}
	recorder := metrics.NewRecorder()
	server := NewRouter(cfg, NewHandler(&stubService{}, "memory", newTestLogger()), recorder)

	performRequest(http.MethodGet, "/health", "", server)
	rec := performRequest(http.MethodGet, "/metrics", "", server)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "askcache_http_request_seconds")
}

func performRequest(method, path, body string, server *http.Server) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			Retry:        config.RetryConfig{Enabled: true, MaxAttempts: 2},
		},
	}
}

func newRouterUnderTest(t *testing.T, svc qacache.Service) *http.Server {
	t.Helper()
	return NewRouter(testConfig(), NewHandler(svc, "memory", newTestLogger()), nil)
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type stubService struct {
	askFn      func(ctx context.Context, req qacache.Request) (qacache.Response, error)
	trendingFn func(ctx context.Context) ([]qacache.TrendingQuery, error)
	checkFn    func(ctx context.Context) error

	askCalls      int
	trendingCalls int
	checkCalls    int
}

func (s *stubService) Ask(ctx context.Context, req qacache.Request) (qacache.Response, error) {
	s.askCalls++
	if s.askFn != nil {
		return s.askFn(ctx, req)
	}
	return qacache.Response{Answer: "stub", Mode: qacache.ModeLLM}, nil
}

func (s *stubService) Trending(ctx context.Context) ([]qacache.TrendingQuery, error) {
	s.trendingCalls++
	if s.trendingFn != nil {
		return s.trendingFn(ctx)
	}
	return []qacache.TrendingQuery{}, nil
}

func (s *stubService) CheckStore(ctx context.Context) error {
	s.checkCalls++
	if s.checkFn != nil {
		return s.checkFn(ctx)
	}
	return nil
}

func (s *stubService) Drain(ctx context.Context) error { return nil }

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}
