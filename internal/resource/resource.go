// Package resource implements single-shot account, container and object
// operations against a storage URL. Retrying is the orchestrator's job.
package resource

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/objectfs/swiftclient/internal/transport"
	"github.com/objectfs/swiftclient/pkg/errors"
	"github.com/objectfs/swiftclient/pkg/types"
	"github.com/objectfs/swiftclient/pkg/utils"
)

// Target is the authenticated endpoint an operation runs against.
type Target struct {
	StorageURL string
	Token      string
	Conn       types.Conn
}

// Config controls optional behaviour of the operations.
type Config struct {
	// DetectContentType sniffs uploads that carry no Content-Type.
	DetectContentType bool
	// Checksum verifies the returned ETag of uploads against a local MD5.
	Checksum bool
	// ChunkSize is the default read size for streamed uploads.
	ChunkSize int
}

// Ops runs resource operations.
type Ops struct {
	config Config
	logger logrus.FieldLogger
}

// New creates Ops. A nil logger uses the logrus standard logger.
func New(config Config, logger logrus.FieldLogger) *Ops {
	if config.ChunkSize <= 0 {
		config.ChunkSize = utils.DefaultChunkSize
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Ops{config: config, logger: logger.WithField("component", "resource")}
}

type call struct {
	name    string
	target  Target
	base    *url.URL
	method  string
	path    string
	query   string
	headers map[string]string
	body    io.Reader
	length  int64
}

func newCall(t Target, name, method string) (*call, error) {
	base, err := url.Parse(t.StorageURL)
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("invalid storage URL %q: %v", t.StorageURL, err)).
			WithComponent("resource").WithOperation(name)
	}
	return &call{
		name:    name,
		target:  t,
		base:    base,
		method:  method,
		path:    strings.TrimRight(base.EscapedPath(), "/"),
		headers: map[string]string{},
	}, nil
}

// segment appends a quoted container or object name. Empty names are skipped
// so callers may put the container in the storage URL itself.
func (c *call) segment(name string) *call {
	if name != "" {
		c.path += "/" + utils.Quote(name)
	}
	return c
}

func (c *call) withHeaders(h map[string]string) *call {
	for k, v := range h {
		c.headers[k] = v
	}
	return c
}

func (c *call) do(ctx context.Context, rec *types.ResponseRecord) (*types.Response, error) {
	if c.target.Token != "" {
		c.headers["X-Auth-Token"] = c.target.Token
	}
	if id := types.CallID(ctx); id != "" {
		if _, ok := c.headers["X-Trans-Id-Extra"]; !ok {
			c.headers["X-Trans-Id-Extra"] = id
		}
	}
	resp, err := c.target.Conn.Do(ctx, &types.Request{
		Method:        c.method,
		Path:          c.path,
		Query:         c.query,
		Headers:       c.headers,
		Body:          c.body,
		ContentLength: c.length,
	})
	if err != nil {
		return nil, err
	}
	if rec != nil {
		*rec = resp.Record()
	}
	return resp, nil
}

// expect runs the call and returns an OPERATION_FAILED error for non-2xx
// responses. On success the caller owns resp.Body.
func (c *call) expect(ctx context.Context, rec *types.ResponseRecord, failure string) (*types.Response, error) {
	resp, err := c.do(ctx, rec)
	if err != nil {
		return nil, err
	}
	if resp.Status < 200 || resp.Status >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		transport.DrainAndClose(resp.Body)
		return nil, c.failure(failure, resp, body)
	}
	return resp, nil
}

func (c *call) failure(msg string, resp *types.Response, body []byte) *errors.Error {
	return errors.NewOperationError(msg, &errors.HTTPInfo{
		Scheme: c.base.Scheme,
		Host:   c.base.Host,
		Path:   c.path,
		Query:  c.query,
		Status: resp.Status,
		Reason: resp.Reason,
		Body:   body,
	}).WithComponent("resource").WithOperation(c.name).WithRequestID(resp.Headers.Get("x-trans-id"))
}

// headersOnly runs the call, discards the body and returns the headers.
func (c *call) headersOnly(ctx context.Context, rec *types.ResponseRecord, failure string) (types.Headers, error) {
	resp, err := c.expect(ctx, rec, failure)
	if err != nil {
		return nil, err
	}
	transport.DrainAndClose(resp.Body)
	return resp.Headers, nil
}

func addQuery(q *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	if q.Len() > 0 {
		q.WriteByte('&')
	}
	q.WriteString(key)
	q.WriteByte('=')
	q.WriteString(utils.Quote(value))
}
