package handlers

import (
	"net/http"

	"github.com/upb/wedding-platform/middleware"
	"github.com/upb/wedding-platform/services"
	"github.com/upb/wedding-platform/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses.
// Store and unexpected failures are logged and answered with a generic message.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	message := services.GetErrorMessage(err)
	details := services.GetErrorDetails(err)

	var writeErr error
	switch services.GetErrorCode(err) {
	case services.CodeNotFound:
		writeErr = utils.WriteNotFound(w, message, details)
	case services.CodeValidation:
		writeErr = utils.WriteBadRequest(w, message, details)
	case services.CodeUnauthorized:
		writeErr = utils.WriteUnauthorized(w, message)
	case services.CodeInsufficientPermissions:
		writeErr = utils.WriteForbidden(w, message, details)
	case services.CodeConflict:
		writeErr = utils.WriteConflict(w, message, details)
	case services.CodeRateLimited:
		writeErr = utils.WriteTooManyRequests(w, message, details)
	case services.CodeDatabaseError, services.CodeUnknownError:
		logger.Error("internal server error",
			zap.String("code", string(services.GetErrorCode(err))),
			zap.Error(err))
		writeErr = utils.WriteError(w, http.StatusInternalServerError, string(services.GetErrorCode(err)), "An internal error occurred", nil)
	default:
		logger.Error("unhandled error type", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "An unexpected error occurred")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// ServiceErrorHandler adapts HandleServiceError for middleware.AccessMiddleware
func ServiceErrorHandler(logger *zap.Logger) middleware.ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		HandleServiceError(w, err, logger.With(
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context()))))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
