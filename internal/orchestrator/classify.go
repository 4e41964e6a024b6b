package orchestrator

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/objectfs/swiftclient/pkg/errors"
	"github.com/objectfs/swiftclient/pkg/retry"
)

// StatusRateLimited is the non-standard status Swift proxies return when
// rate limiting.
const StatusRateLimited = 498

// Decision is what to do after a failed attempt.
type Decision struct {
	// Retry is false when the error must be returned to the caller.
	Retry bool
	// ClearSession forgets the storage URL and token.
	ClearSession bool
	// DropConnection discards the transport handle.
	DropConnection bool
	// Reauth marks that this retry spends the call's single re-authentication.
	Reauth bool
	// Reason is a short label for logs and metrics.
	Reason string
}

// Classify decides how a failed attempt is handled. attempts is the number of
// attempts made so far, including the one that produced err.
func Classify(err error, authRetried, credsComplete bool, policy retry.Policy, attempts int) Decision {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return Decision{Reason: "cancelled"}
	}

	e, ok := errors.As(err)
	if !ok {
		return Decision{Reason: "unclassified"}
	}
	exhausted := attempts > policy.Retries

	switch e.Code {
	case errors.ErrCodeCertificateInvalid:
		return Decision{Reason: "certificate"}

	case errors.ErrCodeTransport:
		if exhausted {
			return Decision{Reason: "transport", DropConnection: true}
		}
		return Decision{Retry: true, DropConnection: true, Reason: "transport"}

	case errors.ErrCodeOperationFailed:
		if e.HTTP == nil {
			return Decision{Reason: "local"}
		}
		status := errors.HTTPStatus(err)
		if exhausted {
			return Decision{Reason: "exhausted", ClearSession: status == http.StatusUnauthorized}
		}
		switch {
		case status == http.StatusUnauthorized:
			d := Decision{ClearSession: true, Reason: "unauthorized"}
			if !authRetried && credsComplete {
				d.Retry = true
				d.Reauth = true
			}
			return d
		case status == http.StatusRequestTimeout:
			return Decision{Retry: true, DropConnection: true, Reason: "timeout"}
		case status >= 500:
			return Decision{Retry: true, Reason: "server_error"}
		case status == StatusRateLimited:
			return Decision{Retry: policy.RetryOnRateLimit, Reason: "rate_limited"}
		}
		return Decision{Reason: "client_error"}
	}

	return Decision{Reason: string(e.Category)}
}
