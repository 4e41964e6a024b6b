// Package httplog logs every HTTP exchange as an equivalent curl command
// followed by the response status and headers.
package httplog

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/objectfs/swiftclient/pkg/types"
)

const redacted = "<redacted>"

var secretHeaders = map[string]bool{
	"x-auth-token":    true,
	"x-auth-key":      true,
	"x-storage-token": true,
	"x-subject-token": true,
	"x-service-token": true,
}

// Logger is a types.Observer. Successful exchanges log at debug level and
// failures at info level.
type Logger struct {
	logger      logrus.FieldLogger
	showSecrets bool
}

// Option configures a Logger.
type Option func(*Logger)

// WithSecrets stops tokens and keys from being redacted.
func WithSecrets() Option {
	return func(l *Logger) { l.showSecrets = true }
}

// New creates a Logger writing to logger.
func New(logger logrus.FieldLogger, opts ...Option) *Logger {
	l := &Logger{logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ObserveExchange logs ex.
func (l *Logger) ObserveExchange(ex types.Exchange) {
	entry := l.logger.WithFields(logrus.Fields{
		"operation": ex.Operation,
		"duration":  ex.Duration,
	})
	logf := entry.Infof
	if ex.Err == nil && ex.Status < 300 {
		logf = entry.Debugf
	}

	logf("REQ: %s", l.Curl(ex))
	if ex.Err != nil && ex.Status == 0 {
		logf("RESP ERROR: %v", ex.Err)
		return
	}
	logf("RESP STATUS: %d %s", ex.Status, ex.Reason)
	logf("RESP HEADERS: %s", l.formatHeaders(ex.Response))
}

// Curl renders the request of ex as a curl command line.
func (l *Logger) Curl(ex types.Exchange) string {
	var b strings.Builder
	b.WriteString("curl -i")
	if ex.Method == http.MethodHead {
		b.WriteString(" -I")
	} else {
		fmt.Fprintf(&b, " -X %s", ex.Method)
	}
	fmt.Fprintf(&b, " %s", ex.URL)

	for _, k := range sortedKeys(ex.Headers) {
		fmt.Fprintf(&b, ` -H "%s: %s"`, k, l.value(k, ex.Headers[k]))
	}
	return b.String()
}

func (l *Logger) formatHeaders(h types.Headers) string {
	parts := make([]string, 0, len(h))
	for _, k := range sortedKeys(h) {
		parts = append(parts, fmt.Sprintf("%s: %s", k, l.value(k, h[k])))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (l *Logger) value(name, value string) string {
	if !l.showSecrets && secretHeaders[strings.ToLower(name)] {
		return redacted
	}
	return value
}

func sortedKeys[M ~map[string]string](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
