package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

type ErrorResponse struct {
	Code          string `json:"code"` // UUID from PlatformError
	Error         string `json:"error"`
	ErrorInstance error  `json:"-"`
	RequestID     string `json:"request_id,omitempty"`
}

// HandleError writes err as JSON. The status code is derived from the
// platform error type; other errors map to 500.
func HandleError(reqCtx *gin.Context, err error, message string) {
	var domainErr *platformerrors.PlatformError
	if errors.As(err, &domainErr) {
		HandleErrorWithStatus(reqCtx, platformerrors.ErrorTypeToHTTPStatus(domainErr.Type), err, message)
		return
	}
	HandleErrorWithStatus(reqCtx, http.StatusInternalServerError, err, message)
}

// HandleErrorWithStatus writes err as JSON with an explicit status code.
func HandleErrorWithStatus(reqCtx *gin.Context, statusCode int, err error, message string) {
	errResp := ErrorResponse{
		Error:         message,
		ErrorInstance: err,
		RequestID:     platformerrors.RequestIDFromContext(reqCtx.Request.Context()),
	}
	var domainErr *platformerrors.PlatformError
	if errors.As(err, &domainErr) {
		errResp.Code = domainErr.UUID
		if domainErr.RequestID != "" {
			errResp.RequestID = domainErr.RequestID
		}
	}
	if err != nil {
		_ = reqCtx.Error(err)
	}
	reqCtx.AbortWithStatusJSON(statusCode, errResp)
}

// HandleNewError creates a route level error and writes it.
func HandleNewError(reqCtx *gin.Context, errorType platformerrors.ErrorType, message string, uuid string) {
	err := platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerRoute, errorType, message, nil, uuid)
	HandleErrorWithStatus(reqCtx, platformerrors.ErrorTypeToHTTPStatus(errorType), err, message)
}
