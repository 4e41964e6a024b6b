package types

import "io"

// ContentsKind discriminates the Contents union.
type ContentsKind int

const (
	ContentsEmpty ContentsKind = iota
	ContentsBytes
	ContentsSized
	ContentsStream
)

func (k ContentsKind) String() string {
	switch k {
	case ContentsEmpty:
		return "empty"
	case ContentsBytes:
		return "bytes"
	case ContentsSized:
		return "sized"
	case ContentsStream:
		return "stream"
	default:
		return "unknown"
	}
}

// Contents is an upload body.
type Contents struct {
	Kind   ContentsKind
	Data   []byte
	Reader io.Reader
	Length int64
	// Reset rewinds Reader so the body can be sent again. nil means the
	// stream can only be sent once.
	Reset func() error
}

// EmptyContents is a zero-length body.
func EmptyContents() Contents {
	return Contents{Kind: ContentsEmpty}
}

// BytesContents wraps an in-memory body.
func BytesContents(data []byte) Contents {
	return Contents{Kind: ContentsBytes, Data: data, Length: int64(len(data))}
}

// SizedContents wraps a reader of known length. Seekable readers are
// rewound to their current offset on retry.
func SizedContents(r io.Reader, length int64) Contents {
	c := Contents{Kind: ContentsSized, Reader: r, Length: length}
	c.Reset = resetFor(r)
	return c
}

// StreamContents wraps a reader of unknown length, sent chunked.
func StreamContents(r io.Reader) Contents {
	c := Contents{Kind: ContentsStream, Reader: r, Length: -1}
	c.Reset = resetFor(r)
	return c
}

// WithReset replaces the reset capability.
func (c Contents) WithReset(reset func() error) Contents {
	c.Reset = reset
	return c
}

// Replayable reports whether the body can be sent more than once.
func (c Contents) Replayable() bool {
	switch c.Kind {
	case ContentsEmpty, ContentsBytes:
		return true
	default:
		return c.Reset != nil
	}
}

// SeekableReset records the current offset of s and returns a function that
// seeks back to it.
func SeekableReset(s io.Seeker) (func() error, error) {
	pos, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	return func() error {
		_, err := s.Seek(pos, io.SeekStart)
		return err
	}, nil
}

func resetFor(r io.Reader) func() error {
	s, ok := r.(io.Seeker)
	if !ok {
		return nil
	}
	reset, err := SeekableReset(s)
	if err != nil {
		return nil
	}
	return reset
}
