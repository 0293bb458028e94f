package grant

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind classifies a token acquisition failure
type Kind int

const (
	// KindUnknown is returned by KindOf for errors not produced by this package
	KindUnknown Kind = iota
	// KindClock means the system time cannot be expressed as seconds since the epoch
	KindClock
	// KindSigning means the assertion could not be produced
	KindSigning
	// KindTransport means the token endpoint could not be reached
	KindTransport
	// KindDecode means the token response is not valid JSON or lacks required fields
	KindDecode
	// KindServer means the token endpoint returned a non-2xx status
	KindServer
)

var kindNames = map[Kind]string{
	KindUnknown:   "unknown",
	KindClock:     "clock",
	KindSigning:   "signing",
	KindTransport: "transport",
	KindDecode:    "decode",
	KindServer:    "server",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the single error type returned by Client.GetToken
type Error struct {
	Kind Kind
	// StatusCode of the token endpoint response, for KindServer
	StatusCode int
	// Code is the OAuth2 `error` value, for KindServer
	Code string
	// Description is the OAuth2 `error_description` value, for KindServer
	Description string

	err error
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, err: err}
}

// Error implements error
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	if e.Kind == KindServer {
		fmt.Fprintf(&b, "status %d", e.StatusCode)
		if e.Code != "" {
			fmt.Fprintf(&b, ", %s", e.Code)
		}
		if e.Description != "" {
			fmt.Fprintf(&b, ": %s", e.Description)
		}
		return b.String()
	}
	if e.err != nil {
		b.WriteString(e.err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.err
}

// KindOf returns the Kind of the first *Error in err's chain,
// or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
