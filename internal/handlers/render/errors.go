package render

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/postboard/internal/apperrors"
)

const InternalErrorMessage = "Internal server error"

var errorResponses = []struct {
	err     error
	code    int
	message string
}{
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{apperrors.ErrWrongTokenType, http.StatusUnauthorized, "Wrong token type"},
	{apperrors.ErrMalformedToken, http.StatusUnauthorized, "Malformed token"},
	{apperrors.ErrInvalidToken, http.StatusUnauthorized, "Invalid token"},
	{apperrors.ErrInvalidSignature, http.StatusUnauthorized, "Invalid token"},
	{apperrors.ErrExpiredSignature, http.StatusUnauthorized, "Signature has expired"},
	{apperrors.ErrExpiredToken, http.StatusUnauthorized, "Refresh token has expired"},
	{apperrors.ErrNotAuthenticated, http.StatusUnauthorized, "Not authenticated"},
	{apperrors.ErrActionNotAllowed, http.StatusBadRequest, "Action not allowed"},
	{apperrors.ErrAlreadyRegistered, http.StatusConflict, "User already registered"},
	{apperrors.ErrPostNotFound, http.StatusNotFound, "Post not found"},
	{apperrors.ErrUserNotFound, http.StatusNotFound, "User not found"},
}

// ErrorStatus maps application error to response status and message
// Unknown errors are internal: message never contains error details
func ErrorStatus(err error) (int, string) {
	for _, r := range errorResponses {
		if errors.Is(err, r.err) {
			return r.code, r.message
		}
	}
	return http.StatusInternalServerError, InternalErrorMessage
}

// AppError renders application error as ServiceError
func AppError(w http.ResponseWriter, err error) {
	code, message := ErrorStatus(err)
	ServiceError(w, message, code)
}
