package resource

import (
	"context"
	"net/http"

	"github.com/objectfs/swiftclient/pkg/types"
)

// GetAccount lists the containers of the account. With FullListing set the
// listing is followed page by page; the headers are those of the first page
// and rec holds the last exchange.
func (o *Ops) GetAccount(ctx context.Context, t Target, opts types.ListOptions, rec *types.ResponseRecord) (types.Headers, []types.AccountEntry, error) {
	fetch := func(marker string) (types.Headers, []types.AccountEntry, error) {
		c, err := newCall(t, "get_account", http.MethodGet)
		if err != nil {
			return nil, nil, err
		}
		c.query = listingQuery(opts, marker, nil)
		c.withHeaders(opts.Headers)

		var page []types.AccountEntry
		headers, err := fetchPage(ctx, c, rec, "Account GET failed", &page)
		return headers, page, err
	}

	headers, first, err := fetch(opts.Marker)
	if err != nil || !opts.FullListing {
		return headers, first, err
	}
	all, err := collectAll(first, func(e types.AccountEntry) string { return e.Name },
		func(marker string) ([]types.AccountEntry, error) {
			_, page, err := fetch(marker)
			return page, err
		})
	if err != nil {
		return nil, nil, err
	}
	o.logger.WithField("containers", len(all)).Debug("Full account listing complete")
	return headers, all, nil
}

// HeadAccount returns the account headers.
func (o *Ops) HeadAccount(ctx context.Context, t Target, headers map[string]string, rec *types.ResponseRecord) (types.Headers, error) {
	c, err := newCall(t, "head_account", http.MethodHead)
	if err != nil {
		return nil, err
	}
	return c.withHeaders(headers).headersOnly(ctx, rec, "Account HEAD failed")
}

// PostAccount updates account metadata.
func (o *Ops) PostAccount(ctx context.Context, t Target, headers map[string]string, rec *types.ResponseRecord) (types.Headers, error) {
	c, err := newCall(t, "post_account", http.MethodPost)
	if err != nil {
		return nil, err
	}
	return c.withHeaders(headers).headersOnly(ctx, rec, "Account POST failed")
}
