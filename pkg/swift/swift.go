// Package swift is a client for Swift-style object storage.
//
// A Connection authenticates lazily, keeps one HTTP connection to the storage
// URL and retries failed calls with exponential backoff. It re-authenticates
// at most once per call when the token is rejected.
//
//	conn, err := swift.New(swift.Options{
//		Credentials: types.Credentials{
//			AuthURL:     "https://auth.example.com/auth/v1.0",
//			User:        "account:user",
//			Key:         "secret",
//			AuthVersion: "1.0",
//		},
//	})
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	_, containers, err := conn.GetAccount(ctx, types.ListOptions{FullListing: true})
//
// A Connection is not safe for concurrent use. Use one per goroutine.
package swift

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/objectfs/swiftclient/internal/auth"
	"github.com/objectfs/swiftclient/internal/httplog"
	"github.com/objectfs/swiftclient/internal/metrics"
	"github.com/objectfs/swiftclient/internal/orchestrator"
	"github.com/objectfs/swiftclient/internal/resource"
	"github.com/objectfs/swiftclient/internal/transport"
	"github.com/objectfs/swiftclient/pkg/config"
	"github.com/objectfs/swiftclient/pkg/errors"
	"github.com/objectfs/swiftclient/pkg/retry"
	"github.com/objectfs/swiftclient/pkg/types"
)

// Options configure a Connection.
type Options struct {
	Credentials types.Credentials

	// Retry defaults to retry.DefaultPolicy() when nil.
	Retry *retry.Policy

	// Network configures the default HTTP transport. Ignored when Transport is set.
	Network config.NetworkConfig

	// Transport replaces the HTTP transport.
	Transport types.Transport

	// DetectContentType sniffs uploads sent without a Content-Type.
	DetectContentType bool

	// Checksum compares upload ETags with a locally computed MD5.
	Checksum bool

	// ChunkSize is the read size for streamed uploads, 64 KiB when zero.
	ChunkSize int

	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger

	// HTTPDebug logs every exchange as a curl command.
	HTTPDebug bool

	// Observer is notified of exchanges, retries and calls.
	Observer types.Observer

	// Metrics, when set, is exported through MetricsHandler.
	Metrics *metrics.Collector

	// Sleeper replaces the backoff sleep.
	Sleeper retry.Sleeper
}

// Connection is a client session against one account.
type Connection struct {
	creds   types.Credentials
	orch    *orchestrator.Orchestrator
	ops     *resource.Ops
	metrics *metrics.Collector
	logger  logrus.FieldLogger
}

// New creates a Connection. No network I/O happens until the first call.
func New(opts Options) (*Connection, error) {
	policy := retry.DefaultPolicy()
	if opts.Retry != nil {
		policy = *opts.Retry
	}
	if err := policy.Validate(); err != nil {
		return nil, errors.NewError(errors.ErrCodeInvalidConfig, err.Error()).WithComponent("swift")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	tr := opts.Transport
	if tr == nil {
		httpTransport, err := transport.New(transport.Config{
			Insecure:       opts.Network.Insecure,
			CACert:         opts.Network.CACert,
			Proxy:          opts.Network.Proxy,
			UserAgent:      opts.Network.UserAgent,
			ConnectTimeout: opts.Network.ConnectTimeout,
			Timeout:        opts.Network.Timeout,
			MaxIdleConns:   opts.Network.MaxIdleConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create transport: %w", err)
		}
		tr = httpTransport
	}

	var observers types.MultiObserver
	if opts.Observer != nil {
		observers = append(observers, opts.Observer)
	}
	if opts.Metrics != nil {
		observers = append(observers, opts.Metrics)
	}
	if opts.HTTPDebug {
		observers = append(observers, httplog.New(logger))
	}
	var observer types.Observer
	if len(observers) > 0 {
		observer = observers
	}

	authenticator := auth.New(opts.Credentials,
		orchestrator.ObserveTransport(tr, "get_auth", observer),
		auth.WithLogger(logger))

	orchOpts := []orchestrator.Option{orchestrator.WithLogger(logger)}
	if observer != nil {
		orchOpts = append(orchOpts, orchestrator.WithObserver(observer))
	}
	if opts.Sleeper != nil {
		orchOpts = append(orchOpts, orchestrator.WithSleeper(opts.Sleeper))
	}
	if opts.Credentials.Preauthenticated() {
		orchOpts = append(orchOpts, orchestrator.WithSession(
			opts.Credentials.Options.ObjectStorageURL, opts.Credentials.Options.AuthToken))
	}

	return &Connection{
		creds: opts.Credentials,
		orch:  orchestrator.New(authenticator, tr, policy, opts.Credentials.Complete(), orchOpts...),
		ops: resource.New(resource.Config{
			DetectContentType: opts.DetectContentType,
			Checksum:          opts.Checksum,
			ChunkSize:         opts.ChunkSize,
		}, logger),
		metrics: opts.Metrics,
		logger:  logger.WithField("component", "swift"),
	}, nil
}

// NewFromConfig creates a Connection from a loaded configuration, building
// its logger and, when enabled, its metrics collector.
func NewFromConfig(cfg *config.Configuration) (*Connection, error) {
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	chunkSize, err := cfg.ChunkSizeBytes()
	if err != nil {
		return nil, err
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector, err = metrics.NewCollector(&metrics.Config{
			Enabled:   true,
			Namespace: cfg.Metrics.Namespace,
			Subsystem: cfg.Metrics.Subsystem,
			Labels:    cfg.Metrics.Labels,
		})
		if err != nil {
			return nil, err
		}
	}

	policy := cfg.Retry
	return New(Options{
		Credentials:       cfg.Auth,
		Retry:             &policy,
		Network:           cfg.Network,
		DetectContentType: cfg.Transfer.DetectContentType,
		Checksum:          cfg.Transfer.Checksum,
		ChunkSize:         chunkSize,
		Logger:            logger,
		HTTPDebug:         cfg.Logging.HTTPDebug,
		Metrics:           collector,
	})
}

// GetAuth returns the storage URL and token, authenticating if there is no
// current session. It does not retry.
func (c *Connection) GetAuth(ctx context.Context) (string, string, error) {
	if u, tok := c.orch.Session(); u != "" && tok != "" {
		return u, tok, nil
	}
	return c.orch.Authenticate(ctx)
}

// Close releases the HTTP connection. The session is kept, so the
// Connection can still be used afterwards.
func (c *Connection) Close() error {
	return c.orch.Close()
}

// Stats returns retry statistics accumulated over all calls.
func (c *Connection) Stats() retry.Stats {
	return c.orch.Stats()
}

// State returns where the most recent call ended in the request state machine.
func (c *Connection) State() orchestrator.State {
	return c.orch.State()
}

// MetricsHandler serves Prometheus metrics, or 404 when metrics are off.
func (c *Connection) MetricsHandler() http.Handler {
	if c.metrics == nil {
		return http.NotFoundHandler()
	}
	return c.metrics.Handler()
}

// CallOption adjusts a single call.
type CallOption func(*callOptions)

type callOptions struct {
	log *types.ResponseLog
}

// WithResponseLog collects the status, reason and headers of every attempt.
func WithResponseLog(log *types.ResponseLog) CallOption {
	return func(o *callOptions) { o.log = log }
}

func (c *Connection) call(ctx context.Context, name string, do func(context.Context, resource.Target, *types.ResponseRecord) error, reset func() error, opts []CallOption) error {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}
	return c.orch.Call(ctx, orchestrator.Operation{
		Name:  name,
		Do:    do,
		Reset: reset,
		Log:   co.log,
	})
}
