package errors

import (
	"fmt"
	"net/http"
)

// ConnectionFailed reports a failed attempt to establish a transport channel.
func ConnectionFailed(transport, endpoint string, cause error) *Error {
	msg := fmt.Sprintf("failed to connect via %s", transport)
	if endpoint != "" {
		msg = fmt.Sprintf("failed to connect to %s via %s", endpoint, transport)
	}
	return Wrap(cause, CodeConnectionFailed, msg, CategoryConnection, SeverityError).
		WithContext(&Context{Transport: transport, Endpoint: endpoint, Operation: "open"})
}

// ConnectionLost reports a connection dropped while in use. All pending
// requests fail with this error when the channel goes away.
func ConnectionLost(transport string, cause error) *Error {
	return Wrap(cause, CodeConnectionLost, fmt.Sprintf("%s connection lost", transport),
		CategoryConnection, SeverityError).
		WithContext(&Context{Transport: transport})
}

// ConnectionTimeout reports an open attempt that exceeded its deadline.
func ConnectionTimeout(transport, endpoint string) *Error {
	return New(CodeConnectionTimeout, fmt.Sprintf("connecting via %s timed out", transport),
		CategoryConnection, SeverityError).
		WithContext(&Context{Transport: transport, Endpoint: endpoint, Operation: "open"})
}

// SendFailed reports a failed transmit on an open channel.
func SendFailed(transport string, cause error) *Error {
	return Wrap(cause, CodeTransportError, fmt.Sprintf("%s send failed", transport),
		CategoryConnection, SeverityError).
		WithContext(&Context{Transport: transport, Operation: "send"})
}

// TransportClosed reports use of a transport after Close.
func TransportClosed(transport string) *Error {
	return New(CodeTransportClosed, fmt.Sprintf("%s transport is closed", transport),
		CategoryConnection, SeverityWarning).
		WithContext(&Context{Transport: transport})
}

// CallTimeout reports a request whose per-call deadline passed with no
// matching response.
func CallTimeout(method string, timeoutMillis int64) *Error {
	return Newf(CodeCallTimeout, CategoryTimeout, SeverityError,
		"call %s timed out after %dms", method, timeoutMillis).
		WithContext(&Context{Method: method})
}

// CallCancelled reports a request abandoned because the caller's context
// ended before a response arrived.
func CallCancelled(method string, cause error) *Error {
	return Wrap(cause, CodeCallCancelled, fmt.Sprintf("call %s cancelled", method),
		CategoryTimeout, SeverityWarning).
		WithContext(&Context{Method: method})
}

// AuthRejected reports a credential rejected by the remote side. Never
// retried automatically.
func AuthRejected(transport, detail string) *Error {
	e := New(CodeAuthRejected, "credential rejected", CategoryAuth, SeverityCritical).
		WithContext(&Context{Transport: transport})
	if detail != "" {
		e = e.WithDetail(detail)
	}
	return e
}

// RateLimited reports a throttling signal from the server. Retryable with
// backoff.
func RateLimited(transport string) *Error {
	return New(CodeRateLimited, "rate limited by server", CategoryRateLimit, SeverityWarning).
		WithContext(&Context{Transport: transport})
}

// MalformedEnvelope reports wire bytes that do not form a valid protocol
// envelope. Never retried.
func MalformedEnvelope(detail string, cause error) *Error {
	e := Wrap(cause, CodeMalformedEnvelope, "malformed protocol envelope",
		CategoryProtocol, SeverityError)
	if detail != "" {
		e = e.WithDetail(detail)
	}
	return e
}

// VersionMismatch reports an envelope carrying an unsupported protocol
// version tag.
func VersionMismatch(got string) *Error {
	return Newf(CodeVersionMismatch, CategoryProtocol, SeverityError,
		"unsupported protocol version %q", got)
}

// ServerFault reports a remote-side internal failure.
func ServerFault(code int, message string) *Error {
	return New(code, message, CategoryServer, SeverityError)
}

// FromCode builds a classified error from a remote JSON-RPC error object's
// code and message, so that callers always observe taxonomy errors rather
// than raw wire errors.
func FromCode(code int, message string) *Error {
	cat := CategoryForCode(code)
	sev := SeverityError
	if cat == CategoryAuth {
		sev = SeverityCritical
	}
	return New(code, message, cat, sev)
}

// FromHTTPStatus classifies a non-2xx HTTP status from a transport exchange.
func FromHTTPStatus(transport string, status int) *Error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return AuthRejected(transport, http.StatusText(status))
	case status == http.StatusTooManyRequests:
		return RateLimited(transport)
	case status >= 500:
		return ServerFault(CodeServerFault, fmt.Sprintf("server returned %d %s", status, http.StatusText(status)))
	default:
		return New(CodeTransportError, fmt.Sprintf("unexpected HTTP status %d", status),
			CategoryConnection, SeverityError).
			WithContext(&Context{Transport: transport})
	}
}

// IsRetryable reports whether the client may transparently retry after err.
// Connection, rate-limit and server failures are retryable; auth and
// protocol errors never are; timeouts are the caller's decision and are
// reported as non-retryable here.
func IsRetryable(err error) bool {
	e, ok := As(err)
	if !ok {
		return false
	}
	switch e.Category() {
	case CategoryConnection, CategoryRateLimit, CategoryServer:
		return true
	default:
		return false
	}
}
