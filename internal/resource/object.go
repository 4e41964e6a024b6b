package resource

import (
	"bytes"
	"context"
	"crypto/md5" // #nosec G501 -- object ETags are MD5
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"

	"github.com/objectfs/swiftclient/internal/transport"
	"github.com/objectfs/swiftclient/pkg/errors"
	"github.com/objectfs/swiftclient/pkg/types"
	"github.com/objectfs/swiftclient/pkg/utils"
)

// sniffLimit is how much of an upload is buffered for content type detection.
const sniffLimit = 3072

// GetObject downloads an object. With ChunkSize > 0 the body is returned as a
// lazy iterator the caller must drain or close before the next request.
func (o *Ops) GetObject(ctx context.Context, t Target, container, name string, opts types.GetObjectOptions, rec *types.ResponseRecord) (types.Headers, types.ObjectBody, error) {
	c, err := newCall(t, "get_object", http.MethodGet)
	if err != nil {
		return nil, types.ObjectBody{}, err
	}
	c.segment(container).segment(name).withHeaders(opts.Headers)
	c.query = opts.QueryString

	resp, err := c.expect(ctx, rec, "Object GET failed")
	if err != nil {
		return nil, types.ObjectBody{}, err
	}
	if opts.ChunkSize > 0 {
		return resp.Headers, types.ObjectBody{Chunks: utils.NewChunkReader(resp.Body, opts.ChunkSize, false)}, nil
	}

	defer transport.DrainAndClose(resp.Body)
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.ObjectBody{}, errors.NewTransportError("reading object body", err).
			WithComponent("resource").WithOperation(c.name)
	}
	return resp.Headers, types.ObjectBody{Data: data}, nil
}

// HeadObject returns the object headers.
func (o *Ops) HeadObject(ctx context.Context, t Target, container, name string, headers map[string]string, rec *types.ResponseRecord) (types.Headers, error) {
	c, err := newCall(t, "head_object", http.MethodHead)
	if err != nil {
		return nil, err
	}
	return c.segment(container).segment(name).withHeaders(headers).headersOnly(ctx, rec, "Object HEAD failed")
}

// PostObject replaces object metadata.
func (o *Ops) PostObject(ctx context.Context, t Target, container, name string, headers map[string]string, rec *types.ResponseRecord) error {
	c, err := newCall(t, "post_object", http.MethodPost)
	if err != nil {
		return err
	}
	_, err = c.segment(container).segment(name).withHeaders(headers).headersOnly(ctx, rec, "Object POST failed")
	return err
}

// DeleteObject removes an object. Empty container or name leave the storage
// URL path as given.
func (o *Ops) DeleteObject(ctx context.Context, t Target, container, name string, opts types.DeleteObjectOptions, rec *types.ResponseRecord) error {
	c, err := newCall(t, "delete_object", http.MethodDelete)
	if err != nil {
		return err
	}
	c.segment(container).segment(name).withHeaders(opts.Headers)
	c.query = opts.QueryString
	_, err = c.headersOnly(ctx, rec, "Object DELETE failed")
	return err
}

// PutObject uploads contents and returns the server's ETag without quotes.
//
// Byte contents are sent as-is. A reader with a known length, from the
// contents or from opts, is bounded to exactly that many bytes. Any other
// reader is sent with chunked transfer encoding.
func (o *Ops) PutObject(ctx context.Context, t Target, container, name string, contents types.Contents, opts types.PutObjectOptions, rec *types.ResponseRecord) (string, error) {
	c, err := newCall(t, "put_object", http.MethodPut)
	if err != nil {
		return "", err
	}
	c.segment(container).segment(name).withHeaders(opts.Headers)
	c.query = opts.QueryString

	if opts.ETag != "" {
		c.headers["ETag"] = strings.Trim(opts.ETag, `"`)
	}
	length, err := declaredLength(c.headers, opts.ContentLength)
	if err != nil {
		return "", err
	}
	if opts.ContentType != "" {
		c.headers["Content-Type"] = opts.ContentType
	}

	var digest func() string
	switch {
	case contents.Kind == types.ContentsEmpty,
		contents.Kind == types.ContentsBytes && len(contents.Data) == 0,
		contents.Kind != types.ContentsBytes && contents.Reader == nil:
		c.length = 0
		digest = func() string { return utils.EmptyETag }

	case contents.Kind == types.ContentsBytes:
		if opts.ChunkSize != 0 {
			o.logger.WithField("chunk_size", opts.ChunkSize).Warn("bytes contents have no read method, ignoring chunk_size")
		}
		c.body = bytes.NewReader(contents.Data)
		c.length = int64(len(contents.Data))
		o.sniff(c, contents.Data)
		digest = func() string {
			sum := md5.Sum(contents.Data) // #nosec G401
			return hex.EncodeToString(sum[:])
		}

	default:
		if length < 0 && contents.Kind == types.ContentsSized {
			length = contents.Length
		}
		chunkSize := opts.ChunkSize
		if chunkSize <= 0 {
			chunkSize = o.config.ChunkSize
		}
		var body io.Reader
		if length >= 0 {
			lr := utils.NewLengthReader(contents.Reader, length, o.config.Checksum)
			body, c.length, digest = lr, length, lr.MD5Sum
		} else {
			cr := utils.NewChunkReader(contents.Reader, chunkSize, o.config.Checksum)
			body, c.length, digest = cr, -1, cr.MD5Sum
		}
		c.body, err = o.sniffReader(c, body)
		if err != nil {
			return "", err
		}
	}

	resp, err := c.expect(ctx, rec, "Object PUT failed")
	if err != nil {
		return "", err
	}
	transport.DrainAndClose(resp.Body)

	etag := strings.Trim(resp.Headers.Get("etag"), `"`)
	if o.config.Checksum && etag != "" {
		if local := digest(); local != "" && local != etag {
			return etag, errors.NewError(errors.ErrCodeOperationFailed,
				fmt.Sprintf("Object PUT checksum mismatch: local %s, server %s", local, etag)).
				WithComponent("resource").WithOperation(c.name).
				WithRequestID(resp.Headers.Get("x-trans-id"))
		}
	}
	return etag, nil
}

// declaredLength returns the explicit content length, or one found in the
// caller's headers, or -1.
func declaredLength(headers map[string]string, explicit *int64) (int64, error) {
	if explicit != nil {
		headers["Content-Length"] = strconv.FormatInt(*explicit, 10)
		return *explicit, nil
	}
	for k, v := range headers {
		if !strings.EqualFold(k, "Content-Length") {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || n < 0 {
			return 0, errors.NewError(errors.ErrCodeInvalidType,
				fmt.Sprintf("invalid Content-Length header %q", v)).WithComponent("resource")
		}
		return n, nil
	}
	return -1, nil
}

func hasContentType(c *call) bool {
	for k := range c.headers {
		if strings.EqualFold(k, "Content-Type") {
			return true
		}
	}
	return false
}

func (o *Ops) sniff(c *call, prefix []byte) {
	if !o.config.DetectContentType || hasContentType(c) {
		return
	}
	mime := mimetype.Detect(prefix)
	c.headers["Content-Type"] = mime.String()
	o.logger.WithFields(logrus.Fields{
		"path":         c.path,
		"content_type": mime.String(),
	}).Debug("Detected content type")
}

// sniffReader buffers the head of body for detection and returns a reader
// that replays it.
func (o *Ops) sniffReader(c *call, body io.Reader) (io.Reader, error) {
	if !o.config.DetectContentType || hasContentType(c) {
		return body, nil
	}
	prefix := make([]byte, sniffLimit)
	n, err := io.ReadFull(body, prefix)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, errors.NewError(errors.ErrCodeOperationFailed, "reading upload contents").
			WithComponent("resource").WithOperation(c.name).WithCause(err)
	}
	prefix = prefix[:n]
	o.sniff(c, prefix)
	return io.MultiReader(bytes.NewReader(prefix), body), nil
}
