package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/swiftclient/internal/transport"
	"github.com/objectfs/swiftclient/pkg/errors"
	"github.com/objectfs/swiftclient/pkg/types"
)

func newTransport(t *testing.T) types.Transport {
	t.Helper()
	tr, err := transport.New(transport.Config{})
	require.NoError(t, err)
	return tr
}

func TestAuthV1(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1.0", r.URL.Path)
		if r.Header.Get("X-Auth-User") != "test:tester" || r.Header.Get("X-Auth-Key") != "testing" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("X-Storage-Url", "http://storage.example.com/v1/AUTH_test")
		w.Header().Set("X-Auth-Token", "AUTH_tk123")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	creds := types.Credentials{AuthURL: server.URL + "/auth/v1.0", User: "test:tester", Key: "testing", AuthVersion: "1.0"}

	t.Run("returns url and falls back to x-auth-token", func(t *testing.T) {
		u, tok, err := New(creds, newTransport(t)).Authenticate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "http://storage.example.com/v1/AUTH_test", u)
		assert.Equal(t, "AUTH_tk123", tok)
	})

	t.Run("snet prefixes the host", func(t *testing.T) {
		c := creds
		c.SNet = true
		u, _, err := New(c, newTransport(t)).Authenticate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "http://snet-storage.example.com/v1/AUTH_test", u)
	})

	t.Run("storage url override", func(t *testing.T) {
		c := creds
		c.Options.ObjectStorageURL = "http://override.example.com/v1/AUTH_x"
		u, tok, err := New(c, newTransport(t)).Authenticate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "http://override.example.com/v1/AUTH_x", u)
		assert.Equal(t, "AUTH_tk123", tok)
	})

	t.Run("cached token is not reused when credentials are complete", func(t *testing.T) {
		c := creds
		c.Options.ObjectStorageURL = "http://override.example.com/v1/AUTH_x"
		c.Options.AuthToken = "stale"
		u, tok, err := New(c, newTransport(t)).Authenticate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "http://override.example.com/v1/AUTH_x", u)
		assert.Equal(t, "AUTH_tk123", tok)
	})

	t.Run("bad key fails", func(t *testing.T) {
		c := creds
		c.Key = "wrong"
		_, _, err := New(c, newTransport(t)).Authenticate(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeAuthFailed))
		assert.Equal(t, 401, errors.HTTPStatus(err))
		assert.Contains(t, err.Error(), "Auth GET failed")
	})
}

func TestAuthV1_BodyWithoutStorageURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>not an auth service</html>"))
	}))
	defer server.Close()

	creds := types.Credentials{AuthURL: server.URL + "/wrong", User: "u", Key: "k"}
	_, _, err := New(creds, newTransport(t)).Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAuthFailed))
	assert.Equal(t, 200, errors.HTTPStatus(err))
}

func TestAuthV1_StorageToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storage-Url", "http://s/v1/AUTH_a")
		w.Header().Set("X-Storage-Token", "storage-token")
		w.Header().Set("X-Auth-Token", "auth-token")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	_, tok, err := New(types.Credentials{AuthURL: server.URL, User: "u", Key: "k"}, newTransport(t)).
		Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "storage-token", tok)
}

func TestPreauthenticated(t *testing.T) {
	creds := types.Credentials{
		AuthURL:     "http://127.0.0.1:1/unreachable",
		AuthVersion: "2.0",
		Options: types.AuthOptions{
			ObjectStorageURL: "http://storage/v1/AUTH_pre",
			AuthToken:        "pre-token",
		},
	}
	u, tok, err := New(creds, newTransport(t)).Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://storage/v1/AUTH_pre", u)
	assert.Equal(t, "pre-token", tok)
}

func TestUnknownVersion(t *testing.T) {
	_, _, err := New(types.Credentials{AuthVersion: "3"}, newTransport(t)).Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
	assert.Contains(t, err.Error(), "Unknown auth_version 3 specified.")
}

type fakeIdentity struct {
	got    IdentityRequest
	access *Access
	err    error
}

func (f *fakeIdentity) Authenticate(_ context.Context, req IdentityRequest) (*Access, error) {
	f.got = req
	return f.access, f.err
}

func catalog() []CatalogEntry {
	return []CatalogEntry{
		{Type: "compute", Endpoints: []Endpoint{{Region: "RegionOne", PublicURL: "http://nova"}}},
		{Type: "object-store", Endpoints: []Endpoint{
			{Region: "RegionOne", PublicURL: "http://one/v1/AUTH_t", InternalURL: "http://one-int/v1/AUTH_t"},
			{Region: "RegionTwo", PublicURL: "http://two/v1/AUTH_t"},
		}},
	}
}

func TestAuthV2(t *testing.T) {
	t.Run("splits tenant from user", func(t *testing.T) {
		id := &fakeIdentity{access: &Access{Token: "tok", Catalog: catalog()}}
		creds := types.Credentials{AuthURL: "http://keystone/v2.0", User: "demo:alice", Key: "pw", AuthVersion: "2.0"}

		u, tok, err := New(creds, newTransport(t), WithIdentityClient(id)).Authenticate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "http://one/v1/AUTH_t", u)
		assert.Equal(t, "tok", tok)
		assert.Equal(t, "demo", id.got.TenantName)
		assert.Equal(t, "alice", id.got.User)
	})

	t.Run("region and endpoint type", func(t *testing.T) {
		id := &fakeIdentity{access: &Access{Token: "tok", Catalog: catalog()}}
		creds := types.Credentials{
			AuthURL: "http://keystone/v2.0", User: "alice", Key: "pw", AuthVersion: "2", TenantName: "demo",
			Options: types.AuthOptions{RegionName: "RegionOne", EndpointType: "internalURL"},
		}
		u, _, err := New(creds, newTransport(t), WithIdentityClient(id)).Authenticate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "http://one-int/v1/AUTH_t", u)
	})

	t.Run("missing region endpoint", func(t *testing.T) {
		id := &fakeIdentity{access: &Access{Token: "tok", Catalog: catalog()}}
		creds := types.Credentials{
			AuthURL: "http://keystone/v2.0", User: "alice", Key: "pw", AuthVersion: "2", TenantName: "demo",
			Options: types.AuthOptions{RegionName: "RegionNine"},
		}
		_, _, err := New(creds, newTransport(t), WithIdentityClient(id)).Authenticate(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeEndpointNotFound))
		assert.Contains(t, err.Error(), "Endpoint for object-store not found - have you specified a region?")
	})

	t.Run("no tenant", func(t *testing.T) {
		creds := types.Credentials{AuthURL: "http://keystone/v2.0", User: "alice", Key: "pw", AuthVersion: "2"}
		_, _, err := New(creds, newTransport(t), WithIdentityClient(&fakeIdentity{})).Authenticate(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "No tenant specified")
	})
}

func TestKeystoneClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2.0/tokens" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req tokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Auth.PasswordCredentials.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if req.Auth.TenantName != "demo" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access": {"token": {"id": "ks-token"},
			"serviceCatalog": [{"type": "object-store", "name": "swift",
			"endpoints": [{"region": "RegionOne", "publicURL": "http://swift/v1/AUTH_demo"}]}]}}`))
	}))
	defer server.Close()

	client := NewKeystoneClient(newTransport(t))

	access, err := client.Authenticate(context.Background(), IdentityRequest{
		AuthURL: server.URL + "/v2.0/", User: "alice", Key: "pw", TenantName: "demo",
	})
	require.NoError(t, err)
	assert.Equal(t, "ks-token", access.Token)
	u, ok := access.EndpointFor("object-store", "publicURL", "")
	assert.True(t, ok)
	assert.Equal(t, "http://swift/v1/AUTH_demo", u)

	_, err = client.Authenticate(context.Background(), IdentityRequest{
		AuthURL: server.URL + "/v2.0", User: "alice", Key: "bad", TenantName: "demo",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorised. Check username, password and tenant name/id")

	_, err = client.Authenticate(context.Background(), IdentityRequest{
		AuthURL: server.URL + "/v2.0", User: "alice", Key: "pw", TenantName: "other",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Authorization Failure.")
	assert.Equal(t, 403, errors.HTTPStatus(err))
}
