package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/askgate/internal/pkg/errcode"
	appErr "github.com/xxxsen/askgate/internal/pkg/errors"
	"github.com/xxxsen/askgate/internal/pkg/response"
)

// handleError maps a service error kind onto a wire code. Internal detail
// stays in the log; the client only sees the kind.
func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case appErr.IsInvalid(err):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case appErr.IsNotFound(err):
		response.Error(c, errcode.ErrNotFound, "not found")
	case appErr.IsStorage(err):
		response.Error(c, errcode.ErrStorage, "storage error")
	case errors.Is(err, appErr.ErrUpstreamTimeout):
		response.Error(c, errcode.ErrUpstreamTimeout, "upstream timeout")
	case errors.Is(err, appErr.ErrUpstreamRateLimited):
		response.Error(c, errcode.ErrUpstreamRateLimited, "upstream rate limited")
	case appErr.IsUpstream(err):
		response.Error(c, errcode.ErrUpstreamUnavailable, "upstream unavailable")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
