package resource

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/objectfs/swiftclient/internal/transport"
	"github.com/objectfs/swiftclient/pkg/errors"
	"github.com/objectfs/swiftclient/pkg/types"
)

// GetCapabilities fetches /info from the scheme and host of t.StorageURL.
// The request carries no token.
func (o *Ops) GetCapabilities(ctx context.Context, t Target, rec *types.ResponseRecord) (types.Capabilities, error) {
	c, err := newCall(Target{StorageURL: t.StorageURL, Conn: t.Conn}, "get_capabilities", http.MethodGet)
	if err != nil {
		return nil, err
	}
	c.path = "/info"

	resp, err := c.expect(ctx, rec, "Capabilities GET failed")
	if err != nil {
		return nil, err
	}
	defer transport.DrainAndClose(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransportError("reading capabilities", err).
			WithComponent("resource").WithOperation(c.name)
	}
	var caps types.Capabilities
	if err := json.Unmarshal(body, &caps); err != nil {
		return nil, errors.NewError(errors.ErrCodeDecodeFailed, "Capabilities GET returned invalid JSON").
			WithComponent("resource").WithOperation(c.name).WithCause(err)
	}
	return caps, nil
}
