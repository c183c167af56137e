// Package media uploads user images to object storage and removes them
// again when a later step of the caller fails.
package media

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/dmitrijs2005/mediashare/internal/filex"
)

// Source is a file to upload. Open may be called more than once; every
// returned reader is closed by the consumer.
type Source struct {
	Name        string
	ContentType string
	Size        int64
	// Origin identifies the content; two sources with the same non-empty
	// Origin hold the same bytes.
	Origin string
	Open   func() (io.ReadCloser, error)
}

// SameOrigin reports whether s and other are known to carry the same file.
func (s *Source) SameOrigin(other *Source) bool {
	if s == nil || other == nil {
		return false
	}
	return s.Origin != "" && s.Origin == other.Origin
}

// FileSource describes a file spooled on local disk.
func FileSource(path, name, contentType string) (*Source, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	sum, err := filex.SHA256(path)
	if err != nil {
		return nil, err
	}

	return &Source{
		Name:        name,
		ContentType: contentType,
		Size:        fi.Size(),
		Origin:      sum,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// BytesSource describes an in-memory file.
func BytesSource(name, contentType string, data []byte) *Source {
	sum := sha256.Sum256(data)
	return &Source{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Origin:      hex.EncodeToString(sum[:]),
		Open: func() (io.ReadCloser, error) {
			return readSeekNopCloser{bytes.NewReader(data)}, nil
		},
	}
}

type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error { return nil }
