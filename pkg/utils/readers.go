package utils

import (
	"crypto/md5" // #nosec G501 -- object ETags are MD5
	"encoding/hex"
	"errors"
	"hash"
	"io"
)

// DefaultChunkSize is the read size used for chunked uploads and downloads.
const DefaultChunkSize = 65536

// LengthReader presents at most length bytes of an underlying reader and
// reports EOF once they are consumed, regardless of what remains upstream.
type LengthReader struct {
	r         io.Reader
	length    int64
	remaining int64
	sum       hash.Hash
}

// NewLengthReader bounds r to length bytes, optionally hashing what is read.
func NewLengthReader(r io.Reader, length int64, withMD5 bool) *LengthReader {
	lr := &LengthReader{r: r, length: length, remaining: length}
	if withMD5 {
		lr.sum = md5.New() // #nosec G401
	}
	return lr
}

// Len returns the declared length.
func (lr *LengthReader) Len() int64 {
	return lr.length
}

func (lr *LengthReader) Read(p []byte) (int, error) {
	if lr.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > lr.remaining {
		p = p[:lr.remaining]
	}
	n, err := lr.r.Read(p)
	lr.remaining -= int64(n)
	if lr.sum != nil && n > 0 {
		lr.sum.Write(p[:n])
	}
	return n, err
}

// MD5Sum returns the hex digest of bytes read so far, or "" when hashing is off.
func (lr *LengthReader) MD5Sum() string {
	if lr.sum == nil {
		return ""
	}
	return hex.EncodeToString(lr.sum.Sum(nil))
}

// ChunkReader splits a reader into pieces of at most chunkSize bytes.
type ChunkReader struct {
	r         io.Reader
	chunkSize int
	sum       hash.Hash
}

// NewChunkReader wraps r. A chunkSize <= 0 selects DefaultChunkSize.
func NewChunkReader(r io.Reader, chunkSize int, withMD5 bool) *ChunkReader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	cr := &ChunkReader{r: r, chunkSize: chunkSize}
	if withMD5 {
		cr.sum = md5.New() // #nosec G401
	}
	return cr
}

// Next returns the next chunk, or io.EOF once the reader is drained. Only the
// final chunk may be shorter than the chunk size.
func (cr *ChunkReader) Next() ([]byte, error) {
	buf := make([]byte, cr.chunkSize)
	n, err := io.ReadFull(cr.r, buf)
	if n > 0 {
		if cr.sum != nil {
			cr.sum.Write(buf[:n])
		}
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			err = nil
		}
		return buf[:n], err
	}
	if err == nil || errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return nil, err
}

// Read lets a ChunkReader be used directly as a request body.
func (cr *ChunkReader) Read(p []byte) (int, error) {
	if len(p) > cr.chunkSize {
		p = p[:cr.chunkSize]
	}
	n, err := cr.r.Read(p)
	if cr.sum != nil && n > 0 {
		cr.sum.Write(p[:n])
	}
	return n, err
}

// Close closes the underlying reader when it is an io.Closer.
func (cr *ChunkReader) Close() error {
	if c, ok := cr.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// MD5Sum returns the hex digest of bytes read so far, or "" when hashing is off.
func (cr *ChunkReader) MD5Sum() string {
	if cr.sum == nil {
		return ""
	}
	return hex.EncodeToString(cr.sum.Sum(nil))
}
