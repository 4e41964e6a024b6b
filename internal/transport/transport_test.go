package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/swiftclient/pkg/errors"
	"github.com/objectfs/swiftclient/pkg/types"
)

func TestConn_Do(t *testing.T) {
	var gotPath, gotQuery, gotAgent, gotMeta string
	var gotLength int64
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.RawQuery
		gotAgent = r.Header.Get("User-Agent")
		gotMeta = r.Header.Get("X-Object-Meta-Color")
		gotLength = r.ContentLength
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Add("X-Trans-Id", "tx1")
		w.Header().Add("X-Multi", "a")
		w.Header().Add("X-Multi", "b")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	tr, err := New(Config{})
	require.NoError(t, err)
	c, err := tr.Open(server.URL + "/v1/AUTH_test")
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Do(context.Background(), &types.Request{
		Method:        http.MethodPut,
		Path:          "/v1/AUTH_test/c/o%20bj",
		Query:         "multipart-manifest=put",
		Headers:       map[string]string{"X-Object-Meta-Color": "blue"},
		Body:          strings.NewReader("hello"),
		ContentLength: 5,
	})
	require.NoError(t, err)
	defer DrainAndClose(resp.Body)

	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "Created", resp.Reason)
	assert.Equal(t, "tx1", resp.Headers["x-trans-id"])
	assert.Equal(t, "a, b", resp.Headers["x-multi"])

	assert.Equal(t, "/v1/AUTH_test/c/o%20bj", gotPath)
	assert.Equal(t, "multipart-manifest=put", gotQuery)
	assert.Equal(t, DefaultUserAgent, gotAgent)
	assert.Equal(t, "blue", gotMeta)
	assert.Equal(t, int64(5), gotLength)
	assert.Equal(t, "hello", string(gotBody))
}

func TestConn_DoChunked(t *testing.T) {
	var encoding []string
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encoding = r.TransferEncoding
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	tr, err := New(Config{UserAgent: "custom/2"})
	require.NoError(t, err)
	c, err := tr.Open(server.URL)
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), &types.Request{
		Method:        http.MethodPut,
		Path:          "/v1/a/c/o",
		Body:          io.NopCloser(strings.NewReader(strings.Repeat("z", 1000))),
		ContentLength: -1,
	})
	require.NoError(t, err)
	DrainAndClose(resp.Body)

	assert.Equal(t, []string{"chunked"}, encoding)
	assert.Len(t, body, 1000)
}

func TestConn_DoEmptyBodySendsZeroLength(t *testing.T) {
	var length string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		length = r.Header.Get("Content-Length")
		if r.ContentLength == 0 {
			length = "0"
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	tr, _ := New(Config{})
	c, err := tr.Open(server.URL)
	require.NoError(t, err)
	resp, err := c.Do(context.Background(), &types.Request{Method: http.MethodPost, Path: "/v1/a/c"})
	require.NoError(t, err)
	DrainAndClose(resp.Body)
	assert.Equal(t, "0", length)
}

func TestConn_RejectsHeaderInjection(t *testing.T) {
	tr, _ := New(Config{})
	c, err := tr.Open("http://127.0.0.1:1")
	require.NoError(t, err)

	_, err = c.Do(context.Background(), &types.Request{
		Method:  http.MethodPost,
		Path:    "/v1/a",
		Headers: map[string]string{"X-Account-Meta-Evil": "a\r\nX-Injected: 1"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
}

func TestOpen_RejectsBadURLs(t *testing.T) {
	tr, _ := New(Config{})

	for _, u := range []string{"ftp://example.com/v1", "http://", "::bad"} {
		_, err := tr.Open(u)
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed), "url %q: %v", u, err)
	}
}

func TestConn_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := server.URL
	server.Close()

	tr, _ := New(Config{})
	c, err := tr.Open(addr)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), &types.Request{Method: http.MethodHead, Path: "/v1/a"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTransport))
}

func TestConn_CertificateError(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	tr, _ := New(Config{})
	c, err := tr.Open(server.URL)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), &types.Request{Method: http.MethodHead, Path: "/v1/a"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCertificateInvalid), "got %v", err)

	insecure, _ := New(Config{Insecure: true})
	c, err = insecure.Open(server.URL)
	require.NoError(t, err)
	resp, err := c.Do(context.Background(), &types.Request{Method: http.MethodHead, Path: "/v1/a"})
	require.NoError(t, err)
	DrainAndClose(resp.Body)
	assert.Equal(t, http.StatusNoContent, resp.Status)
}

func TestNew_MissingCACert(t *testing.T) {
	_, err := New(Config{CACert: "/nonexistent/ca.pem"})
	assert.Error(t, err)
}
