package connector

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConnectionError covers dial, TLS negotiation and protocol-level transport
// failures. It is run-aborting: the sync state machine moves to its failed
// terminal state when one surfaces.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("imap connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthenticationError reports rejected credentials specifically. It is also
// run-aborting, but callers can distinguish it from transport failures.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("imap authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// IsAuthentication reports whether err is credential rejection.
func IsAuthentication(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

// IsFatal reports whether err aborts a whole sync run. Only connection-tier
// failures qualify; content-tier failures are isolated per message or folder.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var connErr *ConnectionError
	return errors.As(err, &connErr) || IsAuthentication(err)
}
