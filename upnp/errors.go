package upnp

import "fmt"

// Kind classifies a transport failure. The retry policy keys off it.
type Kind int

const (
	KindOther Kind = iota
	KindTimeout
	KindConnectionRefused
	KindConnectionReset
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnectionRefused:
		return "connection refused"
	case KindConnectionReset:
		return "connection reset"
	case KindCancelled:
		return "cancelled"
	default:
		return "other"
	}
}

// retryable reports whether a failure of this kind is worth another attempt.
// Refused means the device is actively rejecting, Cancelled means the caller
// gave up, Other is unknown territory.
func (k Kind) retryable() bool {
	return k == KindTimeout || k == KindConnectionReset
}

// TransportError is a network-layer failure talking to the device.
type TransportError struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// InvalidRequestError is a caller input error: unknown service or action, or
// an argument set that does not match the action's declared inputs. Detected
// before any network I/O and never retried.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Reason
}
