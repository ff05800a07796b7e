package object

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ObjectStore saves and retrieves uploaded stool images. Keys are opaque to
// callers; records only ever hold the key, never the bytes.
type ObjectStore interface {
	Save(ctx context.Context, ownerID string, contentType string, r io.Reader) (storageKey string, sizeBytes int64, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}

// NewKey builds a time-based unique key namespaced by the hashed owner:
// <owner-hash>/<yyyy>/<mm>/<unix-millis>-<random>.<ext>
func NewKey(ownerID string, now time.Time, contentType string) string {
	now = now.UTC()
	name := fmt.Sprintf("%d-%s%s", now.UnixMilli(), randomSuffix(), ExtensionFor(contentType))
	return path.Join(OwnerPrefix(ownerID), now.Format("2006"), now.Format("01"), name)
}

// OwnerPrefix is the hex SHA-256 of ownerID. Raw owner ids never appear in
// object keys.
func OwnerPrefix(ownerID string) string {
	sum := sha256.Sum256([]byte(ownerID))
	return hex.EncodeToString(sum[:])
}

// ExtensionFor returns the file extension for an image content type.
func ExtensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}

// ContentTypeFor maps a key's extension back to an image content type.
func ContentTypeFor(storageKey string) string {
	switch strings.ToLower(path.Ext(storageKey)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// ValidKey rejects keys that could escape the store root.
func ValidKey(storageKey string) bool {
	if storageKey == "" || strings.HasPrefix(storageKey, "/") {
		return false
	}
	for _, part := range strings.Split(storageKey, "/") {
		if part == ".." || part == "" {
			return false
		}
	}
	return true
}

// CountingReader counts bytes read through it.
type CountingReader struct {
	R io.Reader
	N int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.N += int64(n)
	return n, err
}

func randomSuffix() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
