package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/askcache/internal/domain/qacache"
)

// Handler wires the HTTP transport to the question cache.
type Handler struct {
	svc     qacache.Service
	backend string
	logger  *slog.Logger
}

// NewHandler constructs the root HTTP handler. backend names the store
// implementation reported by /dbcheck.
func NewHandler(svc qacache.Service, backend string, logger *slog.Logger) *Handler {
	return &Handler{
		svc:     svc,
		backend: backend,
		logger:  logger.With("component", "http.handler"),
	}
}

// Ask answers a question from the cache or the model.
func (h *Handler) Ask(c *gin.Context) {
	var req qacache.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", err.Error(), err))
		return
	}

	resp, err := h.svc.Ask(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Health reports process liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DBCheck pings the cache store.
func (h *Handler) DBCheck(c *gin.Context) {
	if err := h.svc.CheckStore(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "backend": h.backend})
}

// Trending returns the most frequently asked questions.
func (h *Handler) Trending(c *gin.Context) {
	items, err := h.svc.Trending(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trending": items})
}
