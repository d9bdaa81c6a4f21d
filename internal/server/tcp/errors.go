package tcp

import (
	"errors"
	"fmt"

	"siwb/internal/usecases"
)

var (
	// Protocol errors
	ErrInvalidProtocol = errors.New("invalid protocol format")
	ErrMessageTooLarge = errors.New("message exceeds size limit")
	ErrInvalidLogin    = errors.New("sign-in rejected")

	// Connection errors
	ErrConnectionClosed = errors.New("connection closed")
	ErrReadTimeout      = errors.New("read operation timeout")
	ErrWriteTimeout     = errors.New("write operation timeout")

	// Challenge errors
	ErrChallengeFailed   = errors.New("failed to generate challenge")
	ErrChallengeDelivery = errors.New("failed to deliver challenge")

	// System errors
	ErrServerShutdown = errors.New("server is shutting down")
)

type ServerError struct {
	Op   string // Operation that failed
	Err  error  // Original error
	Info string // Additional context
}

func (e *ServerError) Error() string {
	if e.Info != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Info)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServerError) Unwrap() error {
	return e.Err
}

func NewConnectionError(op string, err error, info string) error {
	return &ServerError{
		Op:   op,
		Err:  err,
		Info: info,
	}
}

func IsTimeoutError(err error) bool {
	return errors.Is(err, ErrReadTimeout) || errors.Is(err, ErrWriteTimeout)
}

func IsProtocolError(err error) bool {
	return errors.Is(err, ErrInvalidProtocol) || errors.Is(err, ErrMessageTooLarge)
}

func IsUnavailableError(err error) bool {
	return errors.Is(err, ErrChallengeFailed) ||
		errors.Is(err, ErrServerShutdown) ||
		errors.Is(err, usecases.ErrChallengeUnavailable) ||
		errors.Is(err, usecases.ErrStoreUnavailable)
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var (
	ErrRespInvalidFormat = ErrorResponse{
		Code:    "INVALID_FORMAT",
		Message: "Invalid message format",
	}
	ErrRespTimeout = ErrorResponse{
		Code:    "TIMEOUT",
		Message: "Operation timed out",
	}
	// Every rejected sign-in gets the same response.
	ErrRespInvalidSignature = ErrorResponse{
		Code:    "INVALID_SIGNATURE",
		Message: "Sign-in rejected",
	}
	ErrRespUnavailable = ErrorResponse{
		Code:    "UNAVAILABLE",
		Message: "Service temporarily unavailable",
	}
	ErrRespInternal = ErrorResponse{
		Code:    "INTERNAL_ERROR",
		Message: "An internal error occurred",
	}
)

func ToErrorResponse(err error) ErrorResponse {
	switch {
	case IsProtocolError(err):
		return ErrRespInvalidFormat
	case IsTimeoutError(err):
		return ErrRespTimeout
	case errors.Is(err, ErrInvalidLogin):
		return ErrRespInvalidSignature
	case IsUnavailableError(err):
		return ErrRespUnavailable
	default:
		return ErrRespInternal
	}
}
