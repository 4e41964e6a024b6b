package resource

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/objectfs/swiftclient/internal/transport"
	"github.com/objectfs/swiftclient/pkg/errors"
	"github.com/objectfs/swiftclient/pkg/types"
)

func listingQuery(opts types.ListOptions, marker string, extra func(*strings.Builder)) string {
	var q strings.Builder
	q.WriteString("format=json")
	addQuery(&q, "marker", marker)
	if opts.Limit > 0 {
		q.WriteString("&limit=" + strconv.Itoa(opts.Limit))
	}
	addQuery(&q, "prefix", opts.Prefix)
	if extra != nil {
		extra(&q)
	}
	addQuery(&q, "end_marker", opts.EndMarker)
	return q.String()
}

// fetchPage runs a listing call and decodes its JSON array into out. A 204
// leaves out empty.
func fetchPage(ctx context.Context, c *call, rec *types.ResponseRecord, failure string, out interface{}) (types.Headers, error) {
	resp, err := c.expect(ctx, rec, failure)
	if err != nil {
		return nil, err
	}
	defer transport.DrainAndClose(resp.Body)

	if resp.Status == http.StatusNoContent {
		return resp.Headers, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransportError("reading listing", err).WithComponent("resource").WithOperation(c.name)
	}
	if len(body) == 0 {
		return resp.Headers, nil
	}
	if err := parseAPIResponse(resp.Headers, body, out); err != nil {
		return nil, errors.NewError(errors.ErrCodeDecodeFailed, failure+": invalid listing").
			WithComponent("resource").WithOperation(c.name).WithCause(err)
	}
	return resp.Headers, nil
}

// parseAPIResponse decodes body as JSON, honouring a charset in Content-Type.
func parseAPIResponse(headers types.Headers, body []byte, out interface{}) error {
	charset := "utf-8"
	if ct := headers.Get("content-type"); strings.Contains(ct, "; charset=") {
		charset = strings.SplitN(strings.SplitN(ct, "; charset=", 2)[1], ";", 2)[0]
	}
	if !strings.EqualFold(charset, "utf-8") && !strings.EqualFold(charset, "utf8") {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return err
		}
		body, err = enc.NewDecoder().Bytes(body)
		if err != nil {
			return err
		}
	}
	return json.Unmarshal(body, out)
}

// collectAll keeps fetching pages after first, using the marker of the last
// entry, until a page comes back empty.
func collectAll[T any](first []T, markerOf func(T) string, fetch func(marker string) ([]T, error)) ([]T, error) {
	all := first
	page := first
	for len(page) > 0 {
		next, err := fetch(markerOf(page[len(page)-1]))
		if err != nil {
			return nil, err
		}
		all = append(all, next...)
		page = next
	}
	return all, nil
}
