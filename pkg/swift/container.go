package swift

import (
	"context"

	"github.com/objectfs/swiftclient/internal/resource"
	"github.com/objectfs/swiftclient/pkg/types"
)

// GetContainer returns the container headers and its object listing.
func (c *Connection) GetContainer(ctx context.Context, container string, opts types.ContainerListOptions, callOpts ...CallOption) (types.Headers, []types.ObjectEntry, error) {
	var (
		headers types.Headers
		entries []types.ObjectEntry
	)
	err := c.call(ctx, "get_container", func(ctx context.Context, t resource.Target, rec *types.ResponseRecord) error {
		var err error
		headers, entries, err = c.ops.GetContainer(ctx, t, container, opts, rec)
		return err
	}, nil, callOpts)
	return headers, entries, err
}

// HeadContainer returns the container headers.
func (c *Connection) HeadContainer(ctx context.Context, container string, headers map[string]string, callOpts ...CallOption) (types.Headers, error) {
	var out types.Headers
	err := c.call(ctx, "head_container", func(ctx context.Context, t resource.Target, rec *types.ResponseRecord) error {
		var err error
		out, err = c.ops.HeadContainer(ctx, t, container, headers, rec)
		return err
	}, nil, callOpts)
	return out, err
}

// PutContainer creates a container, or updates its metadata if it exists.
func (c *Connection) PutContainer(ctx context.Context, container string, headers map[string]string, callOpts ...CallOption) (types.Headers, error) {
	var out types.Headers
	err := c.call(ctx, "put_container", func(ctx context.Context, t resource.Target, rec *types.ResponseRecord) error {
		var err error
		out, err = c.ops.PutContainer(ctx, t, container, headers, rec)
		return err
	}, nil, callOpts)
	return out, err
}

// PostContainer updates container metadata.
func (c *Connection) PostContainer(ctx context.Context, container string, headers map[string]string, callOpts ...CallOption) (types.Headers, error) {
	var out types.Headers
	err := c.call(ctx, "post_container", func(ctx context.Context, t resource.Target, rec *types.ResponseRecord) error {
		var err error
		out, err = c.ops.PostContainer(ctx, t, container, headers, rec)
		return err
	}, nil, callOpts)
	return out, err
}

// DeleteContainer removes an empty container.
func (c *Connection) DeleteContainer(ctx context.Context, container string, headers map[string]string, callOpts ...CallOption) error {
	return c.call(ctx, "delete_container", func(ctx context.Context, t resource.Target, rec *types.ResponseRecord) error {
		return c.ops.DeleteContainer(ctx, t, container, headers, rec)
	}, nil, callOpts)
}
