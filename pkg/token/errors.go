package token

import (
	"errors"
	"fmt"
)

var (
	// ErrCredentialsMissing is returned when the API key or secret is empty.
	// It is a configuration error and is never retried.
	ErrCredentialsMissing = errors.New("livekit api credentials not set")

	// ErrSigning matches any *SigningError via errors.Is.
	ErrSigning = errors.New("token signing failed")
)

// SigningError wraps a failure raised while encoding or signing a token.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("%s: %v", ErrSigning.Error(), e.Err)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrSigning) match without losing the cause.
func (e *SigningError) Is(target error) bool {
	return target == ErrSigning
}
