package resource

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/objectfs/swiftclient/pkg/types"
	"github.com/objectfs/swiftclient/pkg/utils"
)

// GetContainer lists the objects in container. Under FullListing the marker
// for the next page is the last entry's name, or its subdir when a delimiter
// groups entries into pseudo-directories.
func (o *Ops) GetContainer(ctx context.Context, t Target, container string, opts types.ContainerListOptions, rec *types.ResponseRecord) (types.Headers, []types.ObjectEntry, error) {
	fetch := func(marker string) (types.Headers, []types.ObjectEntry, error) {
		c, err := newCall(t, "get_container", http.MethodGet)
		if err != nil {
			return nil, nil, err
		}
		c.segment(container)
		c.query = listingQuery(opts.ListOptions, marker, func(q *strings.Builder) {
			addQuery(q, "delimiter", opts.Delimiter)
		})
		if opts.Path != "" {
			c.query += "&path=" + utils.Quote(opts.Path)
		}
		c.withHeaders(opts.Headers)

		var page []types.ObjectEntry
		headers, err := fetchPage(ctx, c, rec, "Container GET failed", &page)
		return headers, page, err
	}

	headers, first, err := fetch(opts.Marker)
	if err != nil || !opts.FullListing {
		return headers, first, err
	}
	markerOf := func(e types.ObjectEntry) string {
		if opts.Delimiter != "" && e.Name == "" {
			return e.Subdir
		}
		return e.Name
	}
	all, err := collectAll(first, markerOf, func(marker string) ([]types.ObjectEntry, error) {
		_, page, err := fetch(marker)
		return page, err
	})
	if err != nil {
		return nil, nil, err
	}
	o.logger.WithFields(logrus.Fields{
		"container": container,
		"objects":   len(all),
	}).Debug("Full container listing complete")
	return headers, all, nil
}

// HeadContainer returns the container headers.
func (o *Ops) HeadContainer(ctx context.Context, t Target, container string, headers map[string]string, rec *types.ResponseRecord) (types.Headers, error) {
	c, err := newCall(t, "head_container", http.MethodHead)
	if err != nil {
		return nil, err
	}
	return c.segment(container).withHeaders(headers).headersOnly(ctx, rec, "Container HEAD failed")
}

// PutContainer creates container, or updates its metadata if it exists.
func (o *Ops) PutContainer(ctx context.Context, t Target, container string, headers map[string]string, rec *types.ResponseRecord) (types.Headers, error) {
	c, err := newCall(t, "put_container", http.MethodPut)
	if err != nil {
		return nil, err
	}
	c.segment(container).withHeaders(headers)
	setZeroLength(c)
	return c.headersOnly(ctx, rec, "Container PUT failed")
}

// PostContainer updates container metadata.
func (o *Ops) PostContainer(ctx context.Context, t Target, container string, headers map[string]string, rec *types.ResponseRecord) (types.Headers, error) {
	c, err := newCall(t, "post_container", http.MethodPost)
	if err != nil {
		return nil, err
	}
	c.segment(container).withHeaders(headers)
	setZeroLength(c)
	return c.headersOnly(ctx, rec, "Container POST failed")
}

// DeleteContainer removes an empty container.
func (o *Ops) DeleteContainer(ctx context.Context, t Target, container string, headers map[string]string, rec *types.ResponseRecord) error {
	c, err := newCall(t, "delete_container", http.MethodDelete)
	if err != nil {
		return err
	}
	_, err = c.segment(container).withHeaders(headers).headersOnly(ctx, rec, "Container DELETE failed")
	return err
}

// setZeroLength sends an explicit zero Content-Length unless the caller set one.
func setZeroLength(c *call) {
	for k := range c.headers {
		if strings.EqualFold(k, "Content-Length") {
			return
		}
	}
	c.headers["Content-Length"] = "0"
}
