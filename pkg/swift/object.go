package swift

import (
	"context"
	"fmt"

	"github.com/objectfs/swiftclient/internal/resource"
	"github.com/objectfs/swiftclient/pkg/errors"
	"github.com/objectfs/swiftclient/pkg/types"
)

// GetObject downloads an object. With opts.ChunkSize set the body is returned
// as a chunk iterator that the caller must Close.
func (c *Connection) GetObject(ctx context.Context, container, name string, opts types.GetObjectOptions, callOpts ...CallOption) (types.Headers, types.ObjectBody, error) {
	var (
		headers types.Headers
		body    types.ObjectBody
	)
	err := c.call(ctx, "get_object", func(ctx context.Context, t resource.Target, rec *types.ResponseRecord) error {
		var err error
		headers, body, err = c.ops.GetObject(ctx, t, container, name, opts, rec)
		return err
	}, nil, callOpts)
	return headers, body, err
}

// HeadObject returns the object headers.
func (c *Connection) HeadObject(ctx context.Context, container, name string, headers map[string]string, callOpts ...CallOption) (types.Headers, error) {
	var out types.Headers
	err := c.call(ctx, "head_object", func(ctx context.Context, t resource.Target, rec *types.ResponseRecord) error {
		var err error
		out, err = c.ops.HeadObject(ctx, t, container, name, headers, rec)
		return err
	}, nil, callOpts)
	return out, err
}

// PutObject uploads contents and returns the ETag reported by the server.
//
// Streams are re-sent on retry only when contents can be reset. Otherwise a
// failed attempt ends the call with a RESET_FAILED error.
func (c *Connection) PutObject(ctx context.Context, container, name string, contents types.Contents, opts types.PutObjectOptions, callOpts ...CallOption) (string, error) {
	reset := contents.Reset
	if !contents.Replayable() {
		reset = func() error {
			return errors.NewResetError(fmt.Sprintf(
				"put_object(%q, %q, ...) failure and no ability to reset contents for reupload.", container, name))
		}
	}

	var etag string
	err := c.call(ctx, "put_object", func(ctx context.Context, t resource.Target, rec *types.ResponseRecord) error {
		var err error
		etag, err = c.ops.PutObject(ctx, t, container, name, contents, opts, rec)
		return err
	}, reset, callOpts)
	return etag, err
}

// PostObject updates object metadata.
func (c *Connection) PostObject(ctx context.Context, container, name string, headers map[string]string, callOpts ...CallOption) error {
	return c.call(ctx, "post_object", func(ctx context.Context, t resource.Target, rec *types.ResponseRecord) error {
		return c.ops.PostObject(ctx, t, container, name, headers, rec)
	}, nil, callOpts)
}

// DeleteObject removes an object.
func (c *Connection) DeleteObject(ctx context.Context, container, name string, opts types.DeleteObjectOptions, callOpts ...CallOption) error {
	return c.call(ctx, "delete_object", func(ctx context.Context, t resource.Target, rec *types.ResponseRecord) error {
		return c.ops.DeleteObject(ctx, t, container, name, opts, rec)
	}, nil, callOpts)
}
