// Package auth obtains storage URLs and tokens from v1 and v2 auth services.
package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/objectfs/swiftclient/internal/transport"
	"github.com/objectfs/swiftclient/pkg/errors"
	"github.com/objectfs/swiftclient/pkg/types"
)

// Authenticator implements types.Authenticator for both protocol versions.
type Authenticator struct {
	creds     types.Credentials
	transport types.Transport
	identity  IdentityClient
	logger    logrus.FieldLogger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithIdentityClient replaces the v2 identity client.
func WithIdentityClient(c IdentityClient) Option {
	return func(a *Authenticator) { a.identity = c }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Authenticator) { a.logger = l }
}

// New creates an authenticator. HTTP exchanges go through t.
func New(creds types.Credentials, t types.Transport, opts ...Option) *Authenticator {
	a := &Authenticator{
		creds:     creds,
		transport: t,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.identity == nil {
		a.identity = NewKeystoneClient(t)
	}
	a.logger = a.logger.WithField("component", "auth")
	return a
}

// Authenticate returns a storage URL and token. A supplied storage URL and
// token are returned as-is only when the credentials cannot authenticate;
// otherwise the service is asked for a fresh token.
func (a *Authenticator) Authenticate(ctx context.Context) (string, string, error) {
	opts := a.creds.Options
	if a.creds.Preauthenticated() && !a.creds.Complete() {
		a.logger.Debug("using preauthenticated storage URL and token")
		return opts.ObjectStorageURL, opts.AuthToken, nil
	}

	var storageURL, token string
	var err error
	switch a.creds.AuthVersion {
	case "", "1", "1.0":
		storageURL, token, err = a.authV1(ctx)
	case "2", "2.0":
		storageURL, token, err = a.authV2(ctx)
	default:
		return "", "", errors.NewValidationError(fmt.Sprintf("Unknown auth_version %s specified.", a.creds.AuthVersion)).
			WithComponent("auth")
	}
	if err != nil {
		return "", "", err
	}

	if opts.ObjectStorageURL != "" {
		storageURL = opts.ObjectStorageURL
	}
	if storageURL == "" || token == "" {
		return "", "", errors.NewAuthError("auth response is missing a storage URL or token", nil).
			WithComponent("auth")
	}

	a.logger.WithField("storage_url", storageURL).Debug("authenticated")
	return storageURL, token, nil
}

func (a *Authenticator) authV1(ctx context.Context) (string, string, error) {
	u, err := url.Parse(a.creds.AuthURL)
	if err != nil {
		return "", "", errors.NewValidationError(fmt.Sprintf("invalid auth URL %q: %v", a.creds.AuthURL, err)).
			WithComponent("auth")
	}
	conn, err := a.transport.Open(a.creds.AuthURL)
	if err != nil {
		return "", "", err
	}
	defer conn.Close()

	resp, err := conn.Do(ctx, &types.Request{
		Method: http.MethodGet,
		Path:   u.EscapedPath(),
		Query:  u.RawQuery,
		Headers: map[string]string{
			"X-Auth-User": a.creds.User,
			"X-Auth-Key":  a.creds.Key,
		},
	})
	if err != nil {
		return "", "", err
	}
	body, err := io.ReadAll(resp.Body)
	transport.DrainAndClose(resp.Body)
	if err != nil {
		return "", "", errors.NewTransportError("reading auth response", err).WithComponent("auth")
	}

	storageURL := resp.Headers.Get("x-storage-url")

	// Some v1 services answer a bad path with a 200 and an HTML page.
	if resp.Status < 200 || resp.Status >= 300 || (len(body) > 0 && storageURL == "") {
		return "", "", errors.NewAuthError("Auth GET failed", &errors.HTTPInfo{
			Scheme: u.Scheme,
			Host:   u.Host,
			Path:   u.Path,
			Status: resp.Status,
			Reason: resp.Reason,
		}).WithComponent("auth")
	}

	if a.creds.SNet && storageURL != "" {
		storageURL, err = snetURL(storageURL)
		if err != nil {
			return "", "", err
		}
	}

	token := resp.Headers.Get("x-storage-token")
	if token == "" {
		token = resp.Headers.Get("x-auth-token")
	}
	return storageURL, token, nil
}

func (a *Authenticator) authV2(ctx context.Context) (string, string, error) {
	user := a.creds.User
	tenantName := a.creds.TenantName
	if tenantName == "" && a.creds.TenantID == "" && strings.Contains(user, ":") {
		parts := strings.SplitN(user, ":", 2)
		tenantName, user = parts[0], parts[1]
	}
	if tenantName == "" && a.creds.TenantID == "" {
		return "", "", errors.NewError(errors.ErrCodeCredentialsMissing, "No tenant specified").
			WithComponent("auth")
	}

	access, err := a.identity.Authenticate(ctx, IdentityRequest{
		AuthURL:    a.creds.AuthURL,
		User:       user,
		Key:        a.creds.Key,
		TenantName: tenantName,
		TenantID:   a.creds.TenantID,
	})
	if err != nil {
		return "", "", err
	}

	serviceType := a.creds.Options.ServiceType
	if serviceType == "" {
		serviceType = DefaultServiceType
	}
	endpointType := a.creds.Options.EndpointType
	if endpointType == "" {
		endpointType = DefaultEndpointType
	}
	endpoint, ok := access.EndpointFor(serviceType, endpointType, a.creds.Options.RegionName)
	if !ok {
		return "", "", errors.NewError(errors.ErrCodeEndpointNotFound,
			fmt.Sprintf("Endpoint for %s not found - have you specified a region?", serviceType)).
			WithComponent("auth")
	}
	return endpoint, access.Token, nil
}

func snetURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.NewAuthError(fmt.Sprintf("invalid storage URL %q", raw), nil).
			WithComponent("auth").WithCause(err)
	}
	u.Host = "snet-" + u.Host
	return u.String(), nil
}
