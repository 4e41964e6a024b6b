package tempurl

import (
	"crypto/hmac"
	"crypto/sha1" // #nosec G505
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/swiftclient/pkg/errors"
)

const objectPath = "/v1/AUTH_account/c/o"

func expectedSig(key, body string) string {
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestGenerate_Relative(t *testing.T) {
	s := Signer{Now: func() time.Time { return time.Unix(1400000000, 0) }}

	url, err := s.Generate(objectPath, 60, "secret", "get", false)
	require.NoError(t, err)

	sig := expectedSig("secret", "GET\n1400000060\n"+objectPath)
	assert.Equal(t, fmt.Sprintf("%s?temp_url_sig=%s&temp_url_expires=1400000060", objectPath, sig), url)
}

func TestGenerate_Absolute(t *testing.T) {
	url, err := Generate(objectPath, 2146636800, "secret", "PUT", true)
	require.NoError(t, err)

	sig := expectedSig("secret", "PUT\n2146636800\n"+objectPath)
	assert.Equal(t, objectPath+"?temp_url_sig="+sig+"&temp_url_expires=2146636800", url)
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := Generate(objectPath, 1500000000, "k", "GET", true)
	require.NoError(t, err)
	b, err := Generate(objectPath, 1500000000, "k", "GET", true)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Generate(objectPath, 1500000000, "other", "GET", true)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestGenerate_NegativeSeconds(t *testing.T) {
	_, err := Generate(objectPath, -1, "k", "GET", false)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
}

func TestGenerate_NonStandardMethodWarns(t *testing.T) {
	logger, hook := test.NewNullLogger()
	s := Signer{Logger: logger}

	_, err := s.Generate(objectPath, 10, "k", "copy", false)
	require.NoError(t, err)

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "COPY", hook.LastEntry().Data["method"])

	hook.Reset()
	_, err = s.Generate(objectPath, 10, "k", "DELETE", false)
	require.NoError(t, err)
	assert.Empty(t, hook.Entries)
}

func TestParseSeconds(t *testing.T) {
	n, err := ParseSeconds(" 3600 ")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), n)

	_, err = ParseSeconds("an hour")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidType))
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}
