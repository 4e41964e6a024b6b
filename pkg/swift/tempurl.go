package swift

import (
	"context"
	"net/url"
	"strings"

	"github.com/objectfs/swiftclient/pkg/errors"
	"github.com/objectfs/swiftclient/pkg/tempurl"
	"github.com/objectfs/swiftclient/pkg/utils"
)

const tempURLKeyHeader = "x-account-meta-temp-url-key"

// TempURL returns an absolute URL granting method access to one object for
// seconds from now. An empty key is read from the account metadata.
func (c *Connection) TempURL(ctx context.Context, container, object, method string, seconds int64, key string) (string, error) {
	storageURL, _, err := c.GetAuth(ctx)
	if err != nil {
		return "", err
	}

	if key == "" {
		headers, err := c.HeadAccount(ctx, nil)
		if err != nil {
			return "", err
		}
		key = headers.Get(tempURLKeyHeader)
		if key == "" {
			return "", errors.NewValidationError("account has no temp URL key").
				WithComponent("swift").WithDetail("header", tempURLKeyHeader)
		}
	}

	u, err := url.Parse(storageURL)
	if err != nil {
		return "", errors.NewValidationError("invalid storage URL: " + err.Error()).WithComponent("swift")
	}
	path := strings.TrimRight(u.Path, "/") + "/" + container + "/" + object

	signed, err := tempurl.Generate(path, seconds, key, method, false)
	if err != nil {
		return "", err
	}
	query := signed[strings.IndexByte(signed, '?'):]
	return u.Scheme + "://" + u.Host + utils.Quote(path) + query, nil
}
