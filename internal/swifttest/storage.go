package swifttest

import (
	"crypto/md5" // #nosec G501 -- ETags are MD5
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/objectfs/swiftclient/pkg/tempurl"
)

const timeFormat = "2006-01-02T15:04:05.000000"

type object struct {
	data         []byte
	etag         string
	contentType  string
	lastModified time.Time
	meta         map[string]string
}

type container struct {
	objects map[string]*object
	meta    map[string]string
}

func (c *container) bytesUsed() int64 {
	var n int64
	for _, o := range c.objects {
		n += int64(len(o.data))
	}
	return n
}

// PutObject stores an object directly, creating the container if needed.
func (s *Server) PutObject(containerName, name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.containers[containerName]
	if c == nil {
		c = &container{objects: map[string]*object{}, meta: map[string]string{}}
		s.containers[containerName] = c
	}
	c.objects[name] = newObject(data, "application/octet-stream", nil)
}

// Object returns the stored bytes of an object.
func (s *Server) Object(containerName, name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.containers[containerName]
	if c == nil {
		return nil, false
	}
	o := c.objects[name]
	if o == nil {
		return nil, false
	}
	return append([]byte(nil), o.data...), true
}

func newObject(data []byte, contentType string, meta map[string]string) *object {
	sum := md5.Sum(data) // #nosec G401
	if meta == nil {
		meta = map[string]string{}
	}
	return &object{
		data:         data,
		etag:         hex.EncodeToString(sum[:]),
		contentType:  contentType,
		lastModified: time.Now().UTC(),
		meta:         meta,
	}
}

func (s *Server) serveAccount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.accountHeaders(w)
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		names := make([]string, 0, len(s.containers))
		for name := range s.containers {
			names = append(names, name)
		}
		p, err := s.listParams(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p.delimiter, p.path = "", ""
		var out []map[string]interface{}
		for _, e := range p.apply(names) {
			c := s.containers[e.name]
			out = append(out, map[string]interface{}{
				"name":  e.name,
				"count": len(c.objects),
				"bytes": c.bytesUsed(),
			})
		}
		writeListing(w, r, out, func(m map[string]interface{}) string { return m["name"].(string) })

	case http.MethodPost:
		updateMeta(s.accountMeta, r.Header, "X-Account-Meta-")
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) accountHeaders(w http.ResponseWriter) {
	var objects int
	var bytes int64
	for _, c := range s.containers {
		objects += len(c.objects)
		bytes += c.bytesUsed()
	}
	h := w.Header()
	h.Set("X-Account-Container-Count", strconv.Itoa(len(s.containers)))
	h.Set("X-Account-Object-Count", strconv.Itoa(objects))
	h.Set("X-Account-Bytes-Used", strconv.FormatInt(bytes, 10))
	for k, v := range s.accountMeta {
		h.Set(k, v)
	}
}

func (s *Server) serveContainer(w http.ResponseWriter, r *http.Request) {
	name := unescape(mux.Vars(r)["container"])

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.containers[name]

	switch r.Method {
	case http.MethodPut:
		status := http.StatusAccepted
		if c == nil {
			c = &container{objects: map[string]*object{}, meta: map[string]string{}}
			s.containers[name] = c
			status = http.StatusCreated
		}
		updateMeta(c.meta, r.Header, "X-Container-Meta-")
		w.WriteHeader(status)
		return
	}

	if c == nil {
		drain(r)
		http.Error(w, "<html><h1>Not Found</h1></html>", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h := w.Header()
		h.Set("X-Container-Object-Count", strconv.Itoa(len(c.objects)))
		h.Set("X-Container-Bytes-Used", strconv.FormatInt(c.bytesUsed(), 10))
		for k, v := range c.meta {
			h.Set(k, v)
		}
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		p, err := s.listParams(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		names := make([]string, 0, len(c.objects))
		for n := range c.objects {
			names = append(names, n)
		}
		var out []map[string]interface{}
		for _, e := range p.apply(names) {
			if e.subdir {
				out = append(out, map[string]interface{}{"subdir": e.name})
				continue
			}
			o := c.objects[e.name]
			out = append(out, map[string]interface{}{
				"name":          e.name,
				"bytes":         len(o.data),
				"hash":          o.etag,
				"content_type":  o.contentType,
				"last_modified": o.lastModified.Format(timeFormat),
			})
		}
		writeListing(w, r, out, func(m map[string]interface{}) string {
			if n, ok := m["name"].(string); ok {
				return n
			}
			return m["subdir"].(string)
		})

	case http.MethodPost:
		updateMeta(c.meta, r.Header, "X-Container-Meta-")
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		if len(c.objects) > 0 {
			http.Error(w, "<html><h1>Conflict</h1></html>", http.StatusConflict)
			return
		}
		delete(s.containers, name)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) serveObject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	containerName, name := unescape(vars["container"]), unescape(vars["object"])

	var data []byte
	if r.Method == http.MethodPut {
		var err error
		if data, err = io.ReadAll(r.Body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.containers[containerName]
	if c == nil {
		drain(r)
		http.Error(w, "<html><h1>Not Found</h1></html>", http.StatusNotFound)
		return
	}
	o := c.objects[name]

	switch r.Method {
	case http.MethodPut:
		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		meta := map[string]string{}
		updateMeta(meta, r.Header, "X-Object-Meta-")
		obj := newObject(data, contentType, meta)
		if want := r.Header.Get("ETag"); want != "" && want != obj.etag {
			http.Error(w, "<html><h1>Unprocessable Entity</h1></html>", http.StatusUnprocessableEntity)
			return
		}
		c.objects[name] = obj
		w.Header().Set("Etag", fmt.Sprintf("%q", obj.etag))
		w.WriteHeader(http.StatusCreated)
		return
	}

	if o == nil {
		drain(r)
		http.Error(w, "<html><h1>Not Found</h1></html>", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h := w.Header()
		h.Set("Etag", o.etag)
		h.Set("Content-Type", o.contentType)
		h.Set("Content-Length", strconv.Itoa(len(o.data)))
		h.Set("Last-Modified", o.lastModified.Format(http.TimeFormat))
		for k, v := range o.meta {
			h.Set(k, v)
		}
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(o.data)
		}

	case http.MethodPost:
		o.meta = map[string]string{}
		updateMeta(o.meta, r.Header, "X-Object-Meta-")
		w.WriteHeader(http.StatusAccepted)

	case http.MethodDelete:
		delete(c.objects, name)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// validTempURL checks temp_url_sig and temp_url_expires against the account's
// temp URL key. It takes the lock itself.
func (s *Server) validTempURL(r *http.Request) bool {
	q := r.URL.Query()
	sig, expires := q.Get("temp_url_sig"), q.Get("temp_url_expires")
	if sig == "" || expires == "" {
		return false
	}
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil || exp < time.Now().Unix() {
		return false
	}

	s.mu.Lock()
	key := s.accountMeta["X-Account-Meta-Temp-Url-Key"]
	s.mu.Unlock()
	if key == "" {
		return false
	}

	signed, err := tempurl.Generate(r.URL.Path, exp, key, r.Method, true)
	if err != nil {
		return false
	}
	i := strings.IndexByte(signed, '?')
	want, err := url.ParseQuery(signed[i+1:])
	if err != nil {
		return false
	}
	return want.Get("temp_url_sig") == sig
}

type listEntry struct {
	name   string
	subdir bool
}

type listParams struct {
	marker, endMarker, prefix, delimiter, path string
	limit                                      int
}

func (s *Server) listParams(r *http.Request) (listParams, error) {
	q := r.URL.Query()
	p := listParams{
		marker:    q.Get("marker"),
		endMarker: q.Get("end_marker"),
		prefix:    q.Get("prefix"),
		delimiter: q.Get("delimiter"),
		path:      q.Get("path"),
		limit:     s.ListingLimit,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("invalid limit %q", v)
		}
		if n < p.limit {
			p.limit = n
		}
	}
	return p, nil
}

func (p listParams) apply(names []string) []listEntry {
	sort.Strings(names)
	prefix, delimiter := p.prefix, p.delimiter
	if p.path != "" {
		prefix, delimiter = strings.TrimSuffix(p.path, "/")+"/", "/"
	}

	var out []listEntry
	lastDir := ""
	for _, name := range names {
		if len(out) >= p.limit {
			break
		}
		if name <= p.marker {
			continue
		}
		if p.endMarker != "" && name >= p.endMarker {
			break
		}
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if delimiter != "" {
			rest := name[len(prefix):]
			if i := strings.Index(rest, delimiter); i >= 0 {
				dir := prefix + rest[:i+len(delimiter)]
				if p.path == "" && dir != p.marker && dir != lastDir {
					out = append(out, listEntry{name: dir, subdir: true})
				}
				lastDir = dir
				continue
			}
		}
		out = append(out, listEntry{name: name})
	}
	return out
}

func writeListing(w http.ResponseWriter, r *http.Request, entries []map[string]interface{}, name func(map[string]interface{}) string) {
	if len(entries) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, entries)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, e := range entries {
		_, _ = io.WriteString(w, name(e)+"\n")
	}
}

// updateMeta copies headers with prefix into meta. An empty value removes the key.
func updateMeta(meta map[string]string, h http.Header, prefix string) {
	for k, v := range h {
		k = http.CanonicalHeaderKey(k)
		if !strings.HasPrefix(k, prefix) || len(v) == 0 {
			continue
		}
		if v[0] == "" {
			delete(meta, k)
			continue
		}
		meta[k] = v[0]
	}
}

func drain(r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
}
