package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	buildModel "github.com/festy23/mergequeue/internal/build/model"
	pullrequestModel "github.com/festy23/mergequeue/internal/pullrequest/model"
)

// ErrorResponse represents error response structure.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// errorResponse writes an error response.
func errorResponse(c *gin.Context, code string, message string, statusCode int) {
	resp := ErrorResponse{}
	resp.Error.Code = code
	resp.Error.Message = message
	c.JSON(statusCode, resp)
}

// notFoundResponse creates 404 error response.
func notFoundResponse(c *gin.Context, message string) {
	errorResponse(c, "NOT_FOUND", message, http.StatusNotFound)
}

var validationErrors = []error{
	pullrequestModel.ErrInvalidRepository,
	pullrequestModel.ErrInvalidNumber,
	pullrequestModel.ErrInvalidBaseBranch,
	pullrequestModel.ErrInvalidApprover,
	pullrequestModel.ErrInvalidCommitSHA,
	pullrequestModel.ErrInvalidBranch,
	pullrequestModel.ErrInvalidPriority,
	buildModel.ErrUnknownValue,
}

// serviceErrorResponse maps service errors to HTTP responses. It reports
// whether the error was a server side failure.
func serviceErrorResponse(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, pullrequestModel.ErrPullRequestNotFound):
		notFoundResponse(c, "pull request not found")
	case errors.Is(err, buildModel.ErrBuildNotFound):
		notFoundResponse(c, "build not found")
	case errors.Is(err, buildModel.ErrBuildFinished):
		errorResponse(c, "BUILD_FINISHED", err.Error(), http.StatusConflict)
	case errors.Is(err, pullrequestModel.ErrNoTryBuild):
		errorResponse(c, "NO_TRY_BUILD", "pull request has no try build", http.StatusConflict)
	case errors.Is(err, pullrequestModel.ErrNoPreviousBuild):
		errorResponse(c, "NO_PREVIOUS_BUILD", "parent \"last\" needs a previous try build", http.StatusConflict)
	case errors.Is(err, pullrequestModel.ErrDelegationUnsupported):
		errorResponse(c, "DELEGATION_UNSUPPORTED", "delegation is not supported by the database schema",
			http.StatusConflict)
	case errors.Is(err, buildModel.ErrSchemaMismatch):
		errorResponse(c, "SCHEMA_MISMATCH", "stored data cannot be decoded", http.StatusInternalServerError)
		return true
	case isValidationError(err):
		errorResponse(c, "INVALID_REQUEST", err.Error(), http.StatusBadRequest)
	default:
		errorResponse(c, "INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
		return true
	}
	return false
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
