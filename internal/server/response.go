package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/content"
	"github.com/abhisek/tutorly/internal/quiz"
	"github.com/abhisek/tutorly/internal/session"
	"github.com/abhisek/tutorly/internal/store"
	"github.com/abhisek/tutorly/internal/tutor"
)

// Response is the envelope for every API reply.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: "success", Data: data})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{Code: http.StatusCreated, Message: "created", Data: data})
}

func fail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, Response{Code: code, Message: message})
}

func badRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, message)
}

// statusFor maps domain errors to HTTP status codes. Unknown errors are
// internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSessionActive),
		errors.Is(err, session.ErrSubmitted),
		errors.Is(err, session.ErrNotStarted),
		errors.Is(err, session.ErrNotConfiguring),
		errors.Is(err, session.ErrAbandoned),
		errors.Is(err, session.ErrRetryNotAllowed):
		return http.StatusConflict
	case errors.Is(err, session.ErrUnknownQuestion),
		errors.Is(err, ErrInvalidConfig),
		errors.Is(err, session.ErrInvalidOption),
		errors.Is(err, session.ErrNotSecure),
		errors.Is(err, session.ErrUnknownKind),
		errors.Is(err, tutor.ErrEmptyConversation),
		errors.Is(err, tutor.ErrInvalidMode),
		errors.Is(err, content.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, quiz.ErrNoQuestions):
		return http.StatusUnprocessableEntity
	case errors.Is(err, tutor.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, tutor.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fromError renders err. Internal errors are logged and hidden from the
// client.
func (s *Server) fromError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("user_id", c.GetString(ctxUserID)),
			zap.Error(err),
		)
		fail(c, code, "internal server error")
		return
	}
	fail(c, code, err.Error())
}
