package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/askcache/pkg/errors"
)

// HTTPError is the transport form of a failure: status plus the code and
// message written into the error envelope.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError builds an HTTPError for failures detected in the transport itself.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// domainStatus maps cache error codes to a status and envelope code.
var domainStatus = map[string]struct {
	status int
	code   string
}{
	apperrors.CodeInvalidInput: {http.StatusBadRequest, "invalid_request"},
	apperrors.CodeStore:        {http.StatusServiceUnavailable, "store_unavailable"},
	apperrors.CodeEmbedding:    {http.StatusBadGateway, "embedding_unavailable"},
	apperrors.CodeLLM:          {http.StatusBadGateway, "llm_unavailable"},
}

// asHTTPError resolves err into an HTTPError. Coded domain errors keep their
// message; anything else is reported as an opaque internal error.
func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	if mapped, ok := domainStatus[apperrors.CodeOf(err)]; ok {
		return &HTTPError{Status: mapped.status, Code: mapped.code, Message: err.Error(), Err: err}
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

// abortWithError records err for errorHandlingMiddleware and stops the chain.
func abortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
