package attachment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Prefix is prepended to every stored name to form the reference kept on
// borrow records.
const Prefix = "uploads/"

var (
	ErrEmpty            = errors.New("attachment is empty")
	ErrTooLarge         = errors.New("attachment is too large")
	ErrUnsupportedMedia = errors.New("only jpeg, png and gif images are accepted")
	ErrInvalidRef       = errors.New("invalid attachment reference")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// Manager turns raw image bytes into stored attachments and removes them
// again. Each attachment belongs to exactly one field of one borrow record.
type Manager struct {
	storage  Storage
	maxBytes int64
}

func NewManager(storage Storage, maxBytes int64) *Manager {
	return &Manager{storage: storage, maxBytes: maxBytes}
}

// Store validates raw against the image whitelist and writes it under a
// fresh name. declaredType may be empty, in which case the sniffed type is
// used.
func (m *Manager) Store(ctx context.Context, raw []byte, declaredType string) (string, error) {
	if len(raw) == 0 {
		return "", ErrEmpty
	}
	if m.maxBytes > 0 && int64(len(raw)) > m.maxBytes {
		return "", ErrTooLarge
	}
	detected := mimetype.Detect(raw)
	declared := normalizeType(declaredType)
	if declared == "" {
		declared = detected.String()
	}
	ext, ok := extensions[declared]
	if !ok {
		return "", fmt.Errorf("%w: got %s", ErrUnsupportedMedia, declared)
	}
	if !detected.Is(declared) {
		return "", fmt.Errorf("%w: content is %s, declared %s", ErrUnsupportedMedia, detected.String(), declared)
	}

	name := "proof_" + uuid.NewString() + ext
	if err := m.storage.Put(ctx, name, bytes.NewReader(raw), int64(len(raw)), declared); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return Prefix + name, nil
}

// Delete removes the attachment behind ref. A nil or empty ref, or one
// whose object is already gone, is not an error.
func (m *Manager) Delete(ctx context.Context, ref *string) error {
	if ref == nil || *ref == "" {
		return nil
	}
	key, err := keyOf(*ref)
	if err != nil {
		return err
	}
	return m.storage.Delete(ctx, key)
}

// Open streams the attachment behind ref together with its content type.
func (m *Manager) Open(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	key, err := keyOf(ref)
	if err != nil {
		return nil, "", err
	}
	rc, err := m.storage.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return rc, contentTypeOf(key), nil
}

// keyOf accepts either a full reference or a bare name.
func keyOf(ref string) (string, error) {
	key := strings.TrimPrefix(ref, Prefix)
	if !validKey(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return key, nil
}

func validKey(key string) bool {
	return key != "" && key != "." && key != ".." &&
		!strings.ContainsAny(key, `/\`) && !strings.HasPrefix(key, ".")
}

func normalizeType(t string) string {
	if t == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(t)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(t))
	}
	return mt
}

func contentTypeOf(key string) string {
	ext := path.Ext(key)
	for t, e := range extensions {
		if e == ext {
			return t
		}
	}
	return "application/octet-stream"
}
