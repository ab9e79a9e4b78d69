package domain

import (
	"errors"
	"fmt"
)

var (
	ErrTransport      = errors.New("transport error")
	ErrNetwork        = errors.New("network error")
	ErrTimeout        = errors.New("timed out")
	ErrProtocol       = errors.New("protocol error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrMissingBeacon  = fmt.Errorf("%w: ad descriptor missing tracking beacons", ErrProtocol)
	ErrSecretNotFound = errors.New("secret not found")
)

type ConnectErrorKind string

const (
	ConnectHandshake      ConnectErrorKind = "handshake"
	ConnectMissingSession ConnectErrorKind = "missing_session"
	ConnectDial           ConnectErrorKind = "dial"
	ConnectTimeout        ConnectErrorKind = "timeout"
	ConnectUnauthorized   ConnectErrorKind = "unauthorized"
)

type ConnectError struct {
	Kind     ConnectErrorKind
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connect %s: %s", e.Endpoint, e.Kind)
	}
	return fmt.Sprintf("connect %s: %s: %v", e.Endpoint, e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

func (e *ConnectError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return true
	case ErrUnauthorized:
		return e.Kind == ConnectUnauthorized
	case ErrTimeout:
		return e.Kind == ConnectTimeout
	default:
		return false
	}
}

// Terminal reports whether retrying with the same credentials is pointless.
func (e *ConnectError) Terminal() bool {
	return e.Kind == ConnectUnauthorized
}

func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrProtocol) {
		return false
	}
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout)
}
