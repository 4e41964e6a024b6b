// Package transport implements the HTTP exchange layer on top of net/http.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/objectfs/swiftclient/pkg/errors"
	"github.com/objectfs/swiftclient/pkg/types"
)

// DefaultUserAgent is sent when the caller supplies no User-Agent header.
const DefaultUserAgent = "swiftclient-go/1.0"

// Config holds HTTP transport settings.
type Config struct {
	Insecure       bool
	CACert         string
	Proxy          string
	UserAgent      string
	ConnectTimeout time.Duration
	Timeout        time.Duration
	MaxIdleConns   int
}

// HTTPTransport opens connections backed by a dedicated pooled http.Transport.
type HTTPTransport struct {
	config    Config
	tlsConfig *tls.Config
	proxy     func(*http.Request) (*url.URL, error)
}

// New creates a transport from config.
func New(config Config) (*HTTPTransport, error) {
	t := &HTTPTransport{config: config, proxy: http.ProxyFromEnvironment}
	if t.config.UserAgent == "" {
		t.config.UserAgent = DefaultUserAgent
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if config.Insecure {
		tlsConfig.InsecureSkipVerify = true // #nosec G402 -- explicitly requested
	}
	if config.CACert != "" {
		pem, err := os.ReadFile(config.CACert)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.NewError(errors.ErrCodeInvalidConfig, "no certificates found in "+config.CACert).
				WithComponent("transport")
		}
		tlsConfig.RootCAs = pool
	}
	t.tlsConfig = tlsConfig

	if config.Proxy != "" {
		proxyURL, err := url.Parse(config.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		t.proxy = http.ProxyURL(proxyURL)
	}

	return t, nil
}

// WithTLSConfig replaces the TLS configuration, mostly for tests against
// self-signed servers.
func (t *HTTPTransport) WithTLSConfig(cfg *tls.Config) *HTTPTransport {
	t.tlsConfig = cfg
	return t
}

// Open returns a connection bound to the scheme and host of baseURL.
func (t *HTTPTransport) Open(baseURL string) (types.Conn, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("invalid URL %q: %v", baseURL, err)).
			WithComponent("transport")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.NewValidationError(fmt.Sprintf("unsupported scheme %q in URL %q", u.Scheme, baseURL)).
			WithComponent("transport")
	}
	if u.Host == "" {
		return nil, errors.NewValidationError(fmt.Sprintf("missing host in URL %q", baseURL)).
			WithComponent("transport")
	}

	httpTransport := cleanhttp.DefaultPooledTransport()
	httpTransport.TLSClientConfig = t.tlsConfig.Clone()
	httpTransport.Proxy = t.proxy
	if t.config.ConnectTimeout > 0 {
		httpTransport.DialContext = (&net.Dialer{
			Timeout:   t.config.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext
	}
	if t.config.MaxIdleConns > 0 {
		httpTransport.MaxIdleConnsPerHost = t.config.MaxIdleConns
	}

	return &conn{
		client: &http.Client{
			Transport: httpTransport,
			Timeout:   t.config.Timeout,
			// Redirects are returned to the caller as-is.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		transport: httpTransport,
		scheme:    u.Scheme,
		host:      u.Host,
		userAgent: t.config.UserAgent,
	}, nil
}

type conn struct {
	client    *http.Client
	transport *http.Transport
	scheme    string
	host      string
	userAgent string
}

func (c *conn) Do(ctx context.Context, req *types.Request) (*types.Response, error) {
	if err := ValidateHeaders(req.Headers); err != nil {
		return nil, err
	}

	target := c.scheme + "://" + c.host + req.Path
	if req.Query != "" {
		target += "?" + req.Query
	}

	body := req.Body
	if body == nil || req.ContentLength == 0 {
		body = http.NoBody
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("error creating request %s %s: %v", req.Method, target, err)).
			WithComponent("transport")
	}
	httpReq.ContentLength = req.ContentLength
	if req.ContentLength < 0 {
		httpReq.ContentLength = -1
		httpReq.TransferEncoding = []string{"chunked"}
	}

	for k, v := range req.Headers {
		if strings.EqualFold(k, "Content-Length") {
			continue
		}
		httpReq.Header.Set(k, v)
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classify(req.Method, target, err)
	}

	return &types.Response{
		Status:  resp.StatusCode,
		Reason:  reason(resp),
		Headers: normalizeHeaders(resp.Header),
		Body:    resp.Body,
	}, nil
}

func (c *conn) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

// ValidateHeaders rejects header names or values containing CR or LF.
func ValidateHeaders(headers map[string]string) error {
	for k, v := range headers {
		if strings.ContainsAny(k, "\r\n") || strings.ContainsAny(v, "\r\n") {
			return errors.NewValidationError(fmt.Sprintf("invalid header %q: contains a line break", k)).
				WithComponent("transport")
		}
	}
	return nil
}

// DrainAndClose discards what is left of body so the connection can be reused.
func DrainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

func normalizeHeaders(h http.Header) types.Headers {
	out := make(types.Headers, len(h))
	for k, values := range h {
		out[strings.ToLower(k)] = strings.Join(values, ", ")
	}
	return out
}

func reason(resp *http.Response) string {
	r := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	r = strings.TrimSpace(r)
	if r == "" {
		r = http.StatusText(resp.StatusCode)
	}
	return r
}

func classify(method, target string, err error) error {
	var (
		unknownAuthority x509.UnknownAuthorityError
		hostname         x509.HostnameError
		invalid          x509.CertificateInvalidError
		verification     *tls.CertificateVerificationError
	)
	if stderrors.As(err, &unknownAuthority) || stderrors.As(err, &hostname) ||
		stderrors.As(err, &invalid) || stderrors.As(err, &verification) {
		return errors.NewCertificateError(err).WithComponent("transport").
			WithDetail("url", target)
	}
	return errors.NewTransportError(fmt.Sprintf("%s %s failed", method, target), err).
		WithComponent("transport").WithDetail("url", target)
}
