package types

import (
	"context"
	"io"
	"time"
)

// Request is one HTTP request relative to the host a Conn is bound to.
type Request struct {
	Method string
	// Path is already percent-encoded.
	Path    string
	Query   string
	Headers map[string]string
	Body    io.Reader
	// ContentLength of -1 means unknown and the body is sent chunked.
	ContentLength int64
}

// Response is one HTTP response. Callers must close Body.
type Response struct {
	Status  int
	Reason  string
	Headers Headers
	Body    io.ReadCloser
}

// Record returns the status, reason and headers of r.
func (r *Response) Record() ResponseRecord {
	return ResponseRecord{Status: r.Status, Reason: r.Reason, Headers: r.Headers}
}

// Conn performs HTTP exchanges against a single scheme and host.
type Conn interface {
	Do(ctx context.Context, req *Request) (*Response, error)
	Close() error
}

// Transport opens connections.
type Transport interface {
	Open(baseURL string) (Conn, error)
}

// Authenticator obtains a storage URL and token.
type Authenticator interface {
	Authenticate(ctx context.Context) (storageURL, token string, err error)
}

// Exchange describes one completed HTTP round trip.
type Exchange struct {
	Operation string
	Method    string
	URL       string
	Headers   map[string]string
	Status    int
	Reason    string
	Response  Headers
	Duration  time.Duration
	Err       error
}

// Observer is notified after every HTTP exchange.
type Observer interface {
	ObserveExchange(ex Exchange)
}

// RetryEvent describes a decision to try a call again.
type RetryEvent struct {
	Operation string
	Attempt   int
	Reason    string
	Backoff   time.Duration
	Reauth    bool
}

// RetryObserver is notified before each backoff sleep.
type RetryObserver interface {
	ObserveRetry(ev RetryEvent)
}

// CallEvent describes the outcome of a whole orchestrated call.
type CallEvent struct {
	Operation string
	Attempts  int
	Duration  time.Duration
	Err       error
}

// CallObserver is notified once per orchestrated call.
type CallObserver interface {
	ObserveCall(ev CallEvent)
}

// MultiObserver fans notifications out to several observers.
type MultiObserver []Observer

func (m MultiObserver) ObserveExchange(ex Exchange) {
	for _, o := range m {
		o.ObserveExchange(ex)
	}
}

func (m MultiObserver) ObserveRetry(ev RetryEvent) {
	for _, o := range m {
		if ro, ok := o.(RetryObserver); ok {
			ro.ObserveRetry(ev)
		}
	}
}

func (m MultiObserver) ObserveCall(ev CallEvent) {
	for _, o := range m {
		if co, ok := o.(CallObserver); ok {
			co.ObserveCall(ev)
		}
	}
}
