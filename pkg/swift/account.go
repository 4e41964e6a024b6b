package swift

import (
	"context"

	"github.com/objectfs/swiftclient/internal/orchestrator"
	"github.com/objectfs/swiftclient/internal/resource"
	"github.com/objectfs/swiftclient/pkg/types"
)

// GetAccount returns the account headers and its container listing. With
// FullListing set, pages are followed until the listing is exhausted.
func (c *Connection) GetAccount(ctx context.Context, opts types.ListOptions, callOpts ...CallOption) (types.Headers, []types.AccountEntry, error) {
	var (
		headers types.Headers
		entries []types.AccountEntry
	)
	err := c.call(ctx, "get_account", func(ctx context.Context, t resource.Target, rec *types.ResponseRecord) error {
		var err error
		headers, entries, err = c.ops.GetAccount(ctx, t, opts, rec)
		return err
	}, nil, callOpts)
	return headers, entries, err
}

// HeadAccount returns the account headers.
func (c *Connection) HeadAccount(ctx context.Context, headers map[string]string, callOpts ...CallOption) (types.Headers, error) {
	var out types.Headers
	err := c.call(ctx, "head_account", func(ctx context.Context, t resource.Target, rec *types.ResponseRecord) error {
		var err error
		out, err = c.ops.HeadAccount(ctx, t, headers, rec)
		return err
	}, nil, callOpts)
	return out, err
}

// PostAccount updates account metadata.
func (c *Connection) PostAccount(ctx context.Context, headers map[string]string, callOpts ...CallOption) (types.Headers, error) {
	var out types.Headers
	err := c.call(ctx, "post_account", func(ctx context.Context, t resource.Target, rec *types.ResponseRecord) error {
		var err error
		out, err = c.ops.PostAccount(ctx, t, headers, rec)
		return err
	}, nil, callOpts)
	return out, err
}

// GetCapabilities fetches the cluster's /info document. An empty url derives
// the endpoint from the storage URL, authenticating first if needed. The
// request is sent once, without a token.
func (c *Connection) GetCapabilities(ctx context.Context, url string) (types.Capabilities, error) {
	if url == "" {
		storageURL, _, err := c.GetAuth(ctx)
		if err != nil {
			return nil, err
		}
		url = storageURL
	}

	var caps types.Capabilities
	err := c.orch.Direct(ctx, url, orchestrator.Operation{
		Name: "get_capabilities",
		Do: func(ctx context.Context, t resource.Target, rec *types.ResponseRecord) error {
			var err error
			caps, err = c.ops.GetCapabilities(ctx, t, rec)
			return err
		},
	})
	return caps, err
}
