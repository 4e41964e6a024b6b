// Package orchestrator runs resource operations with authentication,
// connection reuse, classification of failures and exponential backoff.
package orchestrator

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/objectfs/swiftclient/internal/resource"
	"github.com/objectfs/swiftclient/pkg/errors"
	"github.com/objectfs/swiftclient/pkg/retry"
	"github.com/objectfs/swiftclient/pkg/types"
)

// Operation is one logical call. Do may be invoked several times; it must
// fill rec with the response it received, if any.
type Operation struct {
	Name string
	Do   func(ctx context.Context, t resource.Target, rec *types.ResponseRecord) error

	// Reset rewinds an upload body before a retry. A non-nil error from it
	// ends the call.
	Reset func() error

	// Log, when set, receives one record per attempt that got a response.
	Log *types.ResponseLog
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSleeper replaces the backoff sleep.
func WithSleeper(s retry.Sleeper) Option {
	return func(o *Orchestrator) { o.sleep = s }
}

// WithObserver receives exchange, retry and call notifications.
func WithObserver(obs types.Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithSession starts the orchestrator with an existing storage URL and token.
// A 401 clears it like any other session.
func WithSession(storageURL, token string) Option {
	return func(o *Orchestrator) { o.storageURL, o.token = storageURL, token }
}

// WithStats records retry statistics into sc.
func WithStats(sc *retry.StatsCollector) Option {
	return func(o *Orchestrator) { o.stats = sc }
}

// Orchestrator owns the session (storage URL and token) and the transport
// handle of one connection. It is not safe for concurrent use.
type Orchestrator struct {
	auth          types.Authenticator
	transport     types.Transport
	credsComplete bool
	policy        retry.Policy

	sleep    retry.Sleeper
	observer types.Observer
	stats    *retry.StatsCollector
	logger   logrus.FieldLogger

	state      State
	storageURL string
	token      string
	authTime   time.Time
	conn       types.Conn
}

// New creates an Orchestrator. credsComplete reports whether the
// credentials allow re-authentication after a 401.
func New(auth types.Authenticator, transport types.Transport, policy retry.Policy, credsComplete bool, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		auth:          auth,
		transport:     transport,
		credsComplete: credsComplete,
		policy:        policy,
		sleep:         retry.Sleep,
		stats:         retry.NewStatsCollector(),
		logger:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.WithField("component", "orchestrator")
	return o
}

// State returns the state reached by the most recent call.
func (o *Orchestrator) State() State {
	return o.state
}

// Session returns the current storage URL and token, empty when none.
func (o *Orchestrator) Session() (string, string) {
	return o.storageURL, o.token
}

// AuthTime is when the current session was obtained.
func (o *Orchestrator) AuthTime() time.Time {
	return o.authTime
}

// Stats returns accumulated retry statistics.
func (o *Orchestrator) Stats() retry.Stats {
	return o.stats.GetStats()
}

// Authenticate obtains a fresh session without retrying and drops the
// transport handle.
func (o *Orchestrator) Authenticate(ctx context.Context) (string, string, error) {
	o.state = StateNeedAuth
	storageURL, token, err := o.auth.Authenticate(ctx)
	if err != nil {
		return "", "", err
	}
	o.storageURL, o.token = storageURL, token
	o.authTime = time.Now()
	o.dropConnection()
	o.state = StateNeedConnection
	return storageURL, token, nil
}

// Close releases the transport handle. The session is kept.
func (o *Orchestrator) Close() error {
	if o.conn == nil {
		return nil
	}
	err := o.conn.Close()
	o.conn = nil
	return err
}

// Call runs op until it succeeds or a failure is classified as fatal, and
// returns the last error unchanged.
func (o *Orchestrator) Call(ctx context.Context, op Operation) error {
	callID := strings.ReplaceAll(uuid.NewString(), "-", "")
	ctx = types.WithCallID(ctx, callID)
	logger := o.logger.WithFields(logrus.Fields{
		"call_id":   callID,
		"operation": op.Name,
	})
	start := time.Now()
	backoff := o.policy.NewBackoff()
	attempts := 0
	authRetried := false
	var lastErr error

	for attempts <= o.policy.Retries {
		attempts++
		invoked, err := o.attempt(ctx, op)
		if err == nil {
			o.state = StateSuccess
			o.finish(logger, op.Name, attempts, start, nil)
			return nil
		}
		lastErr = err

		d := Classify(err, authRetried, o.credsComplete, o.policy, attempts)
		if e, ok := errors.As(err); ok {
			e.WithRetryable(d.Retry)
		}
		if d.ClearSession {
			o.storageURL, o.token = "", ""
			o.dropConnection()
		}
		if d.DropConnection {
			o.dropConnection()
		}
		if !d.Retry {
			o.state = StateFatal
			o.finish(logger, op.Name, attempts, start, err)
			return err
		}
		if d.Reauth {
			authRetried = true
		}
		o.state = StateRetryable

		if invoked && op.Reset != nil {
			if rerr := op.Reset(); rerr != nil {
				if _, ok := errors.As(rerr); !ok {
					rerr = errors.NewResetError(fmt.Sprintf("%s: failed to reset contents: %v", op.Name, rerr)).
						WithCause(rerr)
				}
				o.state = StateFatal
				o.finish(logger, op.Name, attempts, start, rerr)
				return rerr
			}
		}

		delay := backoff.Next()
		o.stats.RecordRetry(delay, d.Reauth)
		if ro, ok := o.observer.(types.RetryObserver); ok {
			ro.ObserveRetry(types.RetryEvent{
				Operation: op.Name,
				Attempt:   attempts,
				Reason:    d.Reason,
				Backoff:   delay,
				Reauth:    d.Reauth,
			})
		}
		logger.WithFields(logrus.Fields{
			"attempt": attempts,
			"reason":  d.Reason,
			"backoff": delay,
			"error":   err,
		}).Warn("Retrying call")

		if err := o.sleep(ctx, delay); err != nil {
			o.state = StateFatal
			o.finish(logger, op.Name, attempts, start, err)
			return err
		}
	}

	o.state = StateFatal
	o.finish(logger, op.Name, attempts, start, lastErr)
	return lastErr
}

// Direct runs op once against baseURL on a throwaway connection, without
// authentication or retries.
func (o *Orchestrator) Direct(ctx context.Context, baseURL string, op Operation) error {
	conn, err := o.transport.Open(baseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	var rec types.ResponseRecord
	target := resource.Target{StorageURL: baseURL, Conn: observe(conn, hostBase(baseURL), op.Name, o.observer)}
	err = op.Do(ctx, target, &rec)
	if rec.Status != 0 {
		op.Log.Add(rec)
	}
	return err
}

// attempt runs one pass through the state machine. invoked reports whether
// op.Do ran, and so whether an upload body may have been consumed.
func (o *Orchestrator) attempt(ctx context.Context, op Operation) (invoked bool, err error) {
	if o.storageURL == "" || o.token == "" {
		if _, _, err := o.Authenticate(ctx); err != nil {
			return false, err
		}
	}
	if o.conn == nil {
		o.state = StateNeedConnection
		conn, err := o.transport.Open(o.storageURL)
		if err != nil {
			return false, err
		}
		o.conn = conn
	}

	o.state = StateCalling
	var rec types.ResponseRecord
	target := resource.Target{
		StorageURL: o.storageURL,
		Token:      o.token,
		Conn:       observe(o.conn, hostBase(o.storageURL), op.Name, o.observer),
	}
	err = op.Do(ctx, target, &rec)
	if rec.Status != 0 {
		op.Log.Add(rec)
	}
	return true, err
}

func (o *Orchestrator) dropConnection() {
	if o.conn != nil {
		_ = o.conn.Close()
		o.conn = nil
	}
}

func (o *Orchestrator) finish(logger logrus.FieldLogger, name string, attempts int, start time.Time, err error) {
	o.stats.RecordCall(attempts, err == nil)
	if co, ok := o.observer.(types.CallObserver); ok {
		co.ObserveCall(types.CallEvent{
			Operation: name,
			Attempts:  attempts,
			Duration:  time.Since(start),
			Err:       err,
		})
	}
	entry := logger.WithFields(logrus.Fields{
		"attempts": attempts,
		"duration": time.Since(start),
	})
	if err != nil {
		entry.WithError(err).Debug("Call failed")
		return
	}
	entry.Debug("Call completed")
}

// hostBase returns the scheme and host of raw.
func hostBase(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Scheme + "://" + u.Host
}
