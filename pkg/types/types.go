package types

import (
	"strings"
)

// Headers holds response headers keyed by lower-cased name.
type Headers map[string]string

// Get looks a header up case-insensitively.
func (h Headers) Get(name string) string {
	return h[strings.ToLower(name)]
}

// Clone returns a copy of h.
func (h Headers) Clone() Headers {
	out := make(Headers, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// ResponseRecord captures status, reason and headers of one response.
type ResponseRecord struct {
	Status  int     `json:"status"`
	Reason  string  `json:"reason"`
	Headers Headers `json:"headers"`
}

// ResponseLog accumulates one record per attempt of a call. The embedded
// record always mirrors the latest attempt.
type ResponseLog struct {
	ResponseRecord
	Attempts []ResponseRecord `json:"response_dicts"`
}

// Add appends rec and makes it the latest view. A nil log ignores the call.
func (l *ResponseLog) Add(rec ResponseRecord) {
	if l == nil {
		return
	}
	l.ResponseRecord = rec
	l.Attempts = append(l.Attempts, rec)
}

// AuthOptions are the optional authentication parameters.
type AuthOptions struct {
	ServiceType      string `yaml:"service_type" json:"service_type,omitempty"`
	EndpointType     string `yaml:"endpoint_type" json:"endpoint_type,omitempty"`
	RegionName       string `yaml:"region_name" json:"region_name,omitempty"`
	ObjectStorageURL string `yaml:"object_storage_url" json:"object_storage_url,omitempty" validate:"omitempty,url"`
	AuthToken        string `yaml:"auth_token" json:"auth_token,omitempty"`
}

// Credentials identify the caller to the auth service.
type Credentials struct {
	AuthURL     string      `yaml:"auth_url" json:"auth_url" validate:"omitempty,url"`
	User        string      `yaml:"user" json:"user"`
	Key         string      `yaml:"key" json:"-"`
	AuthVersion string      `yaml:"auth_version" json:"auth_version"`
	TenantName  string      `yaml:"tenant_name" json:"tenant_name,omitempty"`
	TenantID    string      `yaml:"tenant_id" json:"tenant_id,omitempty"`
	SNet        bool        `yaml:"snet" json:"snet,omitempty"`
	Options     AuthOptions `yaml:"options" json:"options"`
}

// Complete reports whether the credentials can be used to re-authenticate.
func (c Credentials) Complete() bool {
	return c.AuthURL != "" && c.User != "" && c.Key != ""
}

// Preauthenticated reports whether a storage URL and token were supplied up front.
func (c Credentials) Preauthenticated() bool {
	return c.Options.ObjectStorageURL != "" && c.Options.AuthToken != ""
}

// AccountEntry is one container in an account listing.
type AccountEntry struct {
	Name         string `json:"name"`
	Count        int64  `json:"count"`
	Bytes        int64  `json:"bytes"`
	LastModified string `json:"last_modified,omitempty"`
}

// ObjectEntry is one object, or one pseudo-directory when Subdir is set, in a
// container listing.
type ObjectEntry struct {
	Name         string `json:"name,omitempty"`
	Subdir       string `json:"subdir,omitempty"`
	Bytes        int64  `json:"bytes"`
	Hash         string `json:"hash,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	ContentType  string `json:"content_type,omitempty"`
}

// Capabilities is the decoded /info document.
type Capabilities map[string]interface{}

// ListOptions control account and container listings.
type ListOptions struct {
	Marker      string
	Limit       int
	Prefix      string
	EndMarker   string
	FullListing bool
	Headers     map[string]string
}

// ContainerListOptions add the container-only listing parameters.
type ContainerListOptions struct {
	ListOptions
	Delimiter string
	Path      string
}

// GetObjectOptions control object downloads.
type GetObjectOptions struct {
	// ChunkSize > 0 returns the body as a lazy chunk iterator.
	ChunkSize   int
	QueryString string
	Headers     map[string]string
}

// PutObjectOptions control object uploads.
type PutObjectOptions struct {
	ContentLength *int64
	ETag          string
	ChunkSize     int
	ContentType   string
	Headers       map[string]string
	QueryString   string
}

// DeleteObjectOptions control object deletion.
type DeleteObjectOptions struct {
	QueryString string
	Headers     map[string]string
}

// ChunkIterator yields a body in fixed-size pieces. Next returns io.EOF once drained.
type ChunkIterator interface {
	Next() ([]byte, error)
	Close() error
}

// ObjectBody is a downloaded object. Exactly one of Data or Chunks is set.
type ObjectBody struct {
	Data   []byte
	Chunks ChunkIterator
}
