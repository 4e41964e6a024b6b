// Package tempurl signs temporary URLs that grant unauthenticated access to a
// single object for a bounded time.
package tempurl

import (
	"crypto/hmac"
	"crypto/sha1" // #nosec G505 -- the server verifies HMAC-SHA1
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/objectfs/swiftclient/pkg/errors"
)

var standardMethods = map[string]bool{
	"GET":    true,
	"PUT":    true,
	"HEAD":   true,
	"POST":   true,
	"DELETE": true,
}

// Signer produces temporary URLs. The zero value uses the wall clock and the
// standard logrus logger.
type Signer struct {
	Now    func() time.Time
	Logger logrus.FieldLogger
}

// Generate signs path with key using the package default Signer.
func Generate(path string, seconds int64, key, method string, absolute bool) (string, error) {
	return Signer{}.Generate(path, seconds, key, method, absolute)
}

// Generate returns path with temp_url_sig and temp_url_expires appended.
//
// The expiry is now+seconds, or seconds itself when absolute is set. The
// signature is the hex HMAC-SHA1 of "METHOD\nexpires\npath" under key.
func (s Signer) Generate(path string, seconds int64, key, method string, absolute bool) (string, error) {
	if seconds < 0 {
		return "", errors.NewValidationError("seconds must be a positive integer").
			WithComponent("tempurl").WithDetail("seconds", seconds)
	}

	expiration := seconds
	if !absolute {
		expiration = s.now().Unix() + seconds
	}

	method = strings.ToUpper(method)
	if !standardMethods[method] {
		s.logger().WithField("method", method).
			Warn("Non default HTTP method for tempurl specified, possibly an error")
	}

	mac := hmac.New(sha1.New, []byte(key))
	fmt.Fprintf(mac, "%s\n%d\n%s", method, expiration, path)
	sig := hex.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("%s?temp_url_sig=%s&temp_url_expires=%d", path, sig, expiration), nil
}

// ParseSeconds converts a textual TTL, failing with INVALID_TYPE when it is
// not an integer.
func ParseSeconds(value string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, errors.NewError(errors.ErrCodeInvalidType, "seconds must be an integer").
			WithComponent("tempurl").WithCause(err)
	}
	return n, nil
}

func (s Signer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Signer) logger() logrus.FieldLogger {
	if s.Logger != nil {
		return s.Logger
	}
	return logrus.StandardLogger()
}
