package errmsg

import (
	"errors"
	"net/http"
)

type HTTPError struct {
	Code    int
	Message error
}

func NewHTTPError(code int, message error) HTTPError {
	return HTTPError{Code: code, Message: message}
}

func (e *HTTPError) Error() string {
	return e.Message.Error()
}

func Validation(err error) HTTPError {
	return NewHTTPError(http.StatusBadRequest, err)
}

func Conflict(err error) HTTPError {
	return NewHTTPError(http.StatusConflict, err)
}

func NotFound(err error) HTTPError {
	return NewHTTPError(http.StatusNotFound, err)
}

func Forbidden(err error) HTTPError {
	return NewHTTPError(http.StatusForbidden, err)
}

func Unauthorized(err error) HTTPError {
	return NewHTTPError(http.StatusUnauthorized, err)
}

var (
	ErrRequestPayloadEmpty = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request payload is empty"),
	)

	ErrRequestPayloadInvalid = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request payload is invalid"),
	)

	ErrQueryParamInvalid = NewHTTPError(
		http.StatusBadRequest,
		errors.New("query parameter is invalid"),
	)
)

var (
	ErrAuthenticationRequired = NewHTTPError(
		http.StatusUnauthorized,
		errors.New("authentication required"),
	)

	ErrTokenInvalid = NewHTTPError(
		http.StatusUnauthorized,
		errors.New("invalid or expired token"),
	)

	ErrAdminRequired = NewHTTPError(
		http.StatusForbidden,
		errors.New("admin access required"),
	)

	ErrTooManyRequests = NewHTTPError(
		http.StatusTooManyRequests,
		errors.New("too many requests, try again later"),
	)
)

var (
	// ErrInternal hides dependency failures from clients; the cause is logged server side.
	ErrInternal = NewHTTPError(
		http.StatusInternalServerError,
		errors.New("internal server error"),
	)

	ErrStorageUnavailable = NewHTTPError(
		http.StatusInternalServerError,
		errors.New("storage is unavailable"),
	)
)
