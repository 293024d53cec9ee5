package error

import "net/http"

// GenericError is implemented by every error kind the REST layer knows how
// to translate into an HTTP response.
type GenericError interface {
	Error() string
	ErrCode() string
	StatusCode() int
}

type ValidationError string

func (err ValidationError) Error() string   { return string(err) }
func (err ValidationError) ErrCode() string { return "VALIDATION_ERROR" }
func (err ValidationError) StatusCode() int { return http.StatusBadRequest }

type NotFoundError string

func (err NotFoundError) Error() string   { return string(err) }
func (err NotFoundError) ErrCode() string { return "NOT_FOUND_ERROR" }
func (err NotFoundError) StatusCode() int { return http.StatusNotFound }

// RateLimitedError is returned when the human-behavior manager rejects an
// outbound action and the caller did not ask for critical priority.
type RateLimitedError string

func (err RateLimitedError) Error() string   { return string(err) }
func (err RateLimitedError) ErrCode() string { return "RATE_LIMITED" }
func (err RateLimitedError) StatusCode() int { return http.StatusTooManyRequests }

type InternalServerError string

func (err InternalServerError) Error() string   { return string(err) }
func (err InternalServerError) ErrCode() string { return "INTERNAL_SERVER_ERROR" }
func (err InternalServerError) StatusCode() int { return http.StatusInternalServerError }

// ServiceUnavailableError is used when an optional integration (image CDN)
// is not configured.
type ServiceUnavailableError string

func (err ServiceUnavailableError) Error() string   { return string(err) }
func (err ServiceUnavailableError) ErrCode() string { return "SERVICE_UNAVAILABLE" }
func (err ServiceUnavailableError) StatusCode() int { return http.StatusServiceUnavailable }
