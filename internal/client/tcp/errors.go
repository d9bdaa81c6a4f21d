package tcp

import (
	"errors"
	"fmt"
)

var (
	// Protocol errors
	ErrInvalidProtocol    = errors.New("invalid protocol format")
	ErrInvalidMessageSize = errors.New("invalid message size")

	// Connection errors
	ErrConnectFailed    = errors.New("connection failed")
	ErrConnectionClosed = errors.New("connection closed")
	ErrReadTimeout      = errors.New("read operation timeout")
	ErrWriteTimeout     = errors.New("write operation timeout")

	// Challenge errors
	ErrInvalidChallenge = errors.New("invalid challenge format")
	ErrSigningFailed    = errors.New("failed to sign challenge")

	// System errors
	ErrMaxRetriesExceeded = errors.New("maximum retry attempts exceeded")
)

// Response codes the server may answer with.
const (
	CodeInvalidSignature = "INVALID_SIGNATURE"
	CodeInvalidFormat    = "INVALID_FORMAT"
	CodeTimeout          = "TIMEOUT"
	CodeUnavailable      = "UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

type ClientError struct {
	Op   string
	Err  error
	Info string
}

func (e *ClientError) Error() string {
	if e.Info != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Info)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

func NewClientError(op string, err error, info string) error {
	return &ClientError{
		Op:   op,
		Err:  err,
		Info: info,
	}
}

// ResponseError is an ERROR line sent by the server.
type ResponseError struct {
	Code    string
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("server error %s: %s", e.Code, e.Message)
}

// IsRejected reports whether the server refused the signature itself.
func IsRejected(err error) bool {
	var respErr *ResponseError
	return errors.As(err, &respErr) && respErr.Code == CodeInvalidSignature
}

func IsRetryableError(err error) bool {
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		return false
	}

	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.Code == CodeTimeout || respErr.Code == CodeUnavailable
	}

	switch {
	case errors.Is(err, ErrConnectFailed):
		return true
	case errors.Is(err, ErrConnectionClosed):
		return true
	case errors.Is(err, ErrReadTimeout):
		return true
	case errors.Is(err, ErrWriteTimeout):
		return true
	default:
		return false
	}
}
