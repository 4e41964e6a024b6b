package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/objectfs/swiftclient/internal/transport"
	"github.com/objectfs/swiftclient/pkg/errors"
	"github.com/objectfs/swiftclient/pkg/types"
)

const (
	DefaultServiceType  = "object-store"
	DefaultEndpointType = "publicURL"
)

// IdentityRequest carries v2 password credentials.
type IdentityRequest struct {
	AuthURL    string
	User       string
	Key        string
	TenantName string
	TenantID   string
}

// Endpoint is one regional entry of a catalog service.
type Endpoint struct {
	Region      string `json:"region"`
	PublicURL   string `json:"publicURL"`
	InternalURL string `json:"internalURL"`
	AdminURL    string `json:"adminURL"`
}

// URL returns the address for an endpoint type such as "publicURL".
func (e Endpoint) URL(endpointType string) string {
	switch endpointType {
	case "internalURL":
		return e.InternalURL
	case "adminURL":
		return e.AdminURL
	default:
		return e.PublicURL
	}
}

// CatalogEntry is one service of the catalog.
type CatalogEntry struct {
	Type      string     `json:"type"`
	Name      string     `json:"name"`
	Endpoints []Endpoint `json:"endpoints"`
}

// Access is a token together with its service catalog.
type Access struct {
	Token   string
	Catalog []CatalogEntry
}

// EndpointFor finds the first endpoint of serviceType, restricted to region
// when one is given.
func (a *Access) EndpointFor(serviceType, endpointType, region string) (string, bool) {
	for _, svc := range a.Catalog {
		if svc.Type != serviceType {
			continue
		}
		for _, ep := range svc.Endpoints {
			if region != "" && ep.Region != region {
				continue
			}
			if u := ep.URL(endpointType); u != "" {
				return u, true
			}
		}
	}
	return "", false
}

// IdentityClient exchanges v2 credentials for a token and catalog.
type IdentityClient interface {
	Authenticate(ctx context.Context, req IdentityRequest) (*Access, error)
}

// KeystoneClient speaks the identity v2 "POST /tokens" protocol.
type KeystoneClient struct {
	transport types.Transport
}

// NewKeystoneClient creates an identity client using t.
func NewKeystoneClient(t types.Transport) *KeystoneClient {
	return &KeystoneClient{transport: t}
}

type tokenRequest struct {
	Auth struct {
		PasswordCredentials struct {
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"passwordCredentials"`
		TenantName string `json:"tenantName,omitempty"`
		TenantID   string `json:"tenantId,omitempty"`
	} `json:"auth"`
}

type tokenResponse struct {
	Access struct {
		Token struct {
			ID string `json:"id"`
		} `json:"token"`
		ServiceCatalog []CatalogEntry `json:"serviceCatalog"`
	} `json:"access"`
}

// Authenticate implements IdentityClient.
func (k *KeystoneClient) Authenticate(ctx context.Context, req IdentityRequest) (*Access, error) {
	u, err := url.Parse(req.AuthURL)
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("invalid auth URL %q: %v", req.AuthURL, err)).
			WithComponent("auth")
	}

	var body tokenRequest
	body.Auth.PasswordCredentials.Username = req.User
	body.Auth.PasswordCredentials.Password = req.Key
	body.Auth.TenantName = req.TenantName
	body.Auth.TenantID = req.TenantID
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshalling token request: %w", err)
	}

	conn, err := k.transport.Open(req.AuthURL)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	path := strings.TrimRight(u.EscapedPath(), "/") + "/tokens"
	resp, err := conn.Do(ctx, &types.Request{
		Method: http.MethodPost,
		Path:   path,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		Body:          bytes.NewReader(payload),
		ContentLength: int64(len(payload)),
	})
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	transport.DrainAndClose(resp.Body)
	if err != nil {
		return nil, errors.NewTransportError("reading token response", err).WithComponent("auth")
	}

	info := &errors.HTTPInfo{
		Scheme: u.Scheme,
		Host:   u.Host,
		Path:   path,
		Status: resp.Status,
		Reason: resp.Reason,
	}
	switch {
	case resp.Status == http.StatusUnauthorized:
		return nil, errors.NewAuthError("Unauthorised. Check username, password and tenant name/id", info).
			WithComponent("auth")
	case resp.Status < 200 || resp.Status >= 300:
		return nil, errors.NewAuthError(fmt.Sprintf("Authorization Failure. %d %s", resp.Status, resp.Reason), info).
			WithComponent("auth")
	}

	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil || tr.Access.Token.ID == "" {
		return nil, errors.NewAuthError("Authorization Failure. Invalid token response", info).
			WithComponent("auth").WithCause(err)
	}

	return &Access{Token: tr.Access.Token.ID, Catalog: tr.Access.ServiceCatalog}, nil
}
