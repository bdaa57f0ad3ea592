package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/goal-tracker/internal/goals"
)

const (
	kindConflict    = "conflict"
	kindUnavailable = "unavailable"
	kindUpstream    = "upstream"
)

type errorResponse struct {
	Error   string                 `json:"error"`
	Kind    string                 `json:"kind"`
	Field   string                 `json:"field,omitempty"`
	Stage   string                 `json:"stage,omitempty"`
	Deleted *goals.CascadeProgress `json:"deleted,omitempty"`
}

func statusFor(kind string) int {
	switch kind {
	case goals.KindValidation:
		return http.StatusBadRequest
	case goals.KindNotFound:
		return http.StatusNotFound
	case kindConflict:
		return http.StatusConflict
	case kindUnavailable:
		return http.StatusServiceUnavailable
	case kindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as JSON with a status derived from its kind.
func (s *Server) fail(c *gin.Context, err error) {
	s.failKind(c, goals.ErrorKind(err), err)
}

func (s *Server) failKind(c *gin.Context, kind string, err error) {
	resp := errorResponse{Error: err.Error(), Kind: kind}

	var validation *goals.ValidationError
	if errors.As(err, &validation) {
		resp.Field = validation.Field
	}
	var partial *goals.PartialCascadeError
	if errors.As(err, &partial) {
		resp.Stage = partial.Stage
		resp.Deleted = &partial.Deleted
	}

	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}

	c.AbortWithStatusJSON(status, resp)
}

func badRequest(field string, err error) error {
	return &goals.ValidationError{Field: field, Reason: err.Error()}
}
