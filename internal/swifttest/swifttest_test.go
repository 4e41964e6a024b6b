package swifttest

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/swiftclient/pkg/tempurl"
)

func TestListParamsApply(t *testing.T) {
	names := []string{"b/2", "a", "b/1", "c", "d/x/y"}

	tests := []struct {
		name string
		p    listParams
		want []listEntry
	}{
		{"all", listParams{limit: 10}, []listEntry{{name: "a"}, {name: "b/1"}, {name: "b/2"}, {name: "c"}, {name: "d/x/y"}}},
		{"limit and marker", listParams{marker: "a", limit: 2}, []listEntry{{name: "b/1"}, {name: "b/2"}}},
		{"end marker", listParams{endMarker: "b/2", limit: 10}, []listEntry{{name: "a"}, {name: "b/1"}}},
		{"prefix", listParams{prefix: "b/", limit: 10}, []listEntry{{name: "b/1"}, {name: "b/2"}}},
		{"delimiter", listParams{delimiter: "/", limit: 10}, []listEntry{{name: "a"}, {name: "b/", subdir: true}, {name: "c"}, {name: "d/", subdir: true}}},
		{"delimiter after subdir marker", listParams{delimiter: "/", marker: "b/", limit: 10}, []listEntry{{name: "c"}, {name: "d/", subdir: true}}},
		{"path", listParams{path: "d/x", limit: 10}, []listEntry{{name: "d/x/y"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.apply(append([]string(nil), names...)))
		})
	}
}

func TestAuthAndStorage(t *testing.T) {
	s := New()
	defer s.Close()

	req, err := http.NewRequest(http.MethodGet, s.AuthURL(), nil)
	require.NoError(t, err)
	req.Header.Set("X-Auth-User", DefaultUser)
	req.Header.Set("X-Auth-Key", DefaultKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, s.StorageURL(), resp.Header.Get("X-Storage-Url"))
	token := resp.Header.Get("X-Auth-Token")
	assert.Equal(t, s.Token(), token)
	assert.Equal(t, 1, s.AuthCount())

	do := func(method, path string) *http.Response {
		req, err := http.NewRequest(method, s.StorageURL()+path, nil)
		require.NoError(t, err)
		req.Header.Set("X-Auth-Token", token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	assert.Equal(t, http.StatusCreated, do(http.MethodPut, "/c").StatusCode)
	assert.Equal(t, http.StatusNoContent, do(http.MethodGet, "/c?format=json").StatusCode)

	s.FailNext(503)
	assert.Equal(t, http.StatusServiceUnavailable, do(http.MethodHead, "/c").StatusCode)
	assert.Equal(t, http.StatusNoContent, do(http.MethodHead, "/c").StatusCode)

	s.ExpireToken()
	resp = do(http.MethodHead, "/c")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trans-Id"))
}

func TestTempURL(t *testing.T) {
	s := New()
	defer s.Close()
	s.PutObject("c", "o", []byte("hello"))
	s.accountMeta["X-Account-Meta-Temp-Url-Key"] = "secret"

	signed, err := tempurl.Generate("/v1/AUTH_test/c/o", 60, "secret", http.MethodGet, false)
	require.NoError(t, err)

	resp, err := http.Get(s.URL + signed)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	tampered := strings.Replace(signed, "temp_url_expires=", "temp_url_expires=1", 1)
	resp, err = http.Get(s.URL + tampered)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	past, err := tempurl.Generate("/v1/AUTH_test/c/o", time.Now().Add(-time.Hour).Unix(), "secret", http.MethodGet, true)
	require.NoError(t, err)
	resp, err = http.Get(s.URL + past)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
