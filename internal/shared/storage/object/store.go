package object

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"docuflow/internal/shared/util"
)

// ErrNotFound is returned by Open when the key does not exist.
var ErrNotFound = errors.New("object not found")

// Object describes a stored blob.
type Object struct {
	Key         string
	Size        int64
	ContentType string
	SHA256      string
}

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	// Save stores r under a generated key inside namespace and reports the
	// sniffed content type and SHA-256 of the bytes written.
	Save(ctx context.Context, namespace, fileName string, r io.Reader) (Object, error)
	SaveWithKey(ctx context.Context, key, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Upload is a prepared Save: the generated key, the sniffed content type and
// a body that counts and hashes what is read through it.
type Upload struct {
	Key         string
	ContentType string
	Body        *DigestReader
}

// Object returns the stored object description once Body was fully consumed.
func (u *Upload) Object() Object {
	return Object{
		Key:         u.Key,
		Size:        u.Body.N(),
		ContentType: u.ContentType,
		SHA256:      u.Body.Sum(),
	}
}

// PrepareUpload sanitizes fileName, builds a unique key under namespace and
// sniffs the first 512 bytes of r.
func PrepareUpload(namespace, fileName string, r io.Reader) (*Upload, error) {
	sanitizedName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return nil, fmt.Errorf("sanitize file name: %w", err)
	}

	var sniff [512]byte
	n, readErr := io.ReadFull(r, sniff[:])
	if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("read sniff: %w", readErr)
	}

	key := path.Join(strings.Trim(namespace, "/"), fmt.Sprintf("%s_%s", randomID(), sanitizedName))
	return &Upload{
		Key:         key,
		ContentType: http.DetectContentType(sniff[:n]),
		Body:        NewDigestReader(io.MultiReader(bytes.NewReader(sniff[:n]), r)),
	}, nil
}

// DigestReader counts and hashes bytes as they are read.
type DigestReader struct {
	r io.Reader
	h hash.Hash
	n int64
}

// NewDigestReader wraps r.
func NewDigestReader(r io.Reader) *DigestReader {
	return &DigestReader{r: r, h: sha256.New()}
}

func (d *DigestReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if n > 0 {
		d.h.Write(p[:n])
		d.n += int64(n)
	}
	return n, err
}

// N returns the number of bytes read so far.
func (d *DigestReader) N() int64 { return d.n }

// Sum returns the hex SHA-256 of the bytes read so far.
func (d *DigestReader) Sum() string { return hex.EncodeToString(d.h.Sum(nil)) }

func randomID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
