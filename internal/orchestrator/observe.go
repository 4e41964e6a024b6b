package orchestrator

import (
	"context"
	"time"

	"github.com/objectfs/swiftclient/pkg/types"
)

// observedConn reports every exchange on conn to an Observer.
type observedConn struct {
	conn      types.Conn
	base      string
	operation string
	observer  types.Observer
}

func (c *observedConn) Do(ctx context.Context, req *types.Request) (*types.Response, error) {
	start := time.Now()
	resp, err := c.conn.Do(ctx, req)

	target := c.base + req.Path
	if req.Query != "" {
		target += "?" + req.Query
	}
	ex := types.Exchange{
		Operation: c.operation,
		Method:    req.Method,
		URL:       target,
		Headers:   req.Headers,
		Duration:  time.Since(start),
		Err:       err,
	}
	if resp != nil {
		ex.Status = resp.Status
		ex.Reason = resp.Reason
		ex.Response = resp.Headers
	}
	c.observer.ObserveExchange(ex)
	return resp, err
}

func (c *observedConn) Close() error {
	return c.conn.Close()
}

func observe(conn types.Conn, base, operation string, observer types.Observer) types.Conn {
	if observer == nil {
		return conn
	}
	return &observedConn{conn: conn, base: base, operation: operation, observer: observer}
}

// observedTransport wraps every connection it opens.
type observedTransport struct {
	transport types.Transport
	operation string
	observer  types.Observer
}

// ObserveTransport returns a Transport whose connections report their
// exchanges to observer under the given operation name. A nil observer
// returns t unchanged.
func ObserveTransport(t types.Transport, operation string, observer types.Observer) types.Transport {
	if observer == nil {
		return t
	}
	return &observedTransport{transport: t, operation: operation, observer: observer}
}

func (t *observedTransport) Open(baseURL string) (types.Conn, error) {
	conn, err := t.transport.Open(baseURL)
	if err != nil {
		return nil, err
	}
	return observe(conn, hostBase(baseURL), t.operation, t.observer), nil
}
