package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduportal-backend/internal/repository"
	"github.com/stemsi/eduportal-backend/internal/response"
	"github.com/stemsi/eduportal-backend/internal/service"
)

// statusOf maps domain errors to an HTTP status and error code.
// ok is false for errors with no public meaning.
func statusOf(err error) (status int, code response.ErrCode, ok bool) {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		return http.StatusNotFound, response.ErrExamNotFound, true
	case errors.Is(err, service.ErrExamNotAssigned):
		return http.StatusNotFound, response.ErrExamNotAssigned, true
	case errors.Is(err, service.ErrAttemptNotFound):
		return http.StatusNotFound, response.ErrAttemptNotFound, true
	case errors.Is(err, service.ErrStudentNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound, true

	case errors.Is(err, service.ErrNotExamAuthor):
		return http.StatusForbidden, response.ErrForbidden, true
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, response.ErrInvalidCredentials, true

	case errors.Is(err, service.ErrAttemptAlreadySubmitted):
		return http.StatusConflict, response.ErrAttemptSubmitted, true
	case errors.Is(err, service.ErrAttemptExpired):
		return http.StatusConflict, response.ErrAttemptExpired, true
	case errors.Is(err, service.ErrExamNotDraft):
		return http.StatusConflict, response.ErrExamNotDraft, true
	case errors.Is(err, service.ErrNoQuestions):
		return http.StatusConflict, response.ErrNoQuestions, true
	case errors.Is(err, service.ErrSessionAlreadyActive):
		return http.StatusConflict, response.ErrSessionActive, true
	case errors.Is(err, service.ErrSelfDelete):
		return http.StatusConflict, response.ErrSelfDelete, true
	case errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict, response.ErrConflict, true
	case errors.Is(err, repository.ErrReferenced):
		return http.StatusConflict, response.ErrDependencyExists, true

	case errors.Is(err, service.ErrUnknownQuestion):
		return http.StatusBadRequest, response.ErrUnknownQuestion, true
	case errors.Is(err, service.ErrImportUnreadable):
		return http.StatusBadRequest, response.ErrImportUnreadable, true
	}
	return http.StatusInternalServerError, response.ErrInternal, false
}

// fail writes the error response for err. Field-level errors become 400
// VALIDATION_ERROR; anything unmapped is logged and reported as 500 without
// its detail.
func fail(c *gin.Context, err error) {
	var fe *service.FieldError
	if errors.As(err, &fe) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{fe.Field: fe.Message})
		return
	}
	var ie *service.ImportError
	if errors.As(err, &ie) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrImportInvalidRows, ie.Fields())
		return
	}

	status, code, ok := statusOf(err)
	if !ok {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Request failed")
	}
	response.Fail(c, status, code)
}
