// Package storage turns generated images into durable URLs owned by the
// service. Vendor URLs expire, so every result is copied or uploaded here
// before it is recorded.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// MaxObjectBytes caps uploads and remote copies.
const MaxObjectBytes = 20 << 20

var (
	ErrEmptyObject    = errors.New("storage: empty object")
	ErrObjectTooLarge = errors.New("storage: object too large")
	ErrNotImage       = errors.New("storage: content is not an image")
)

// Object is a durable stored file.
type Object struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	MIME string `json:"mime"`
	Size int    `json:"size"`
}

// Uploader is the durable upload contract used by generation.
type Uploader interface {
	Upload(ctx context.Context, data []byte, mime, prefix string) (Object, error)
	CopyFromURL(ctx context.Context, remoteURL, prefix string) (Object, error)
}

// Backend stores bytes at a key and reports the public URL for it.
type Backend interface {
	Put(ctx context.Context, key string, data []byte, mime string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Service implements Uploader over a Backend. Keys are content addressed so
// retrying an upload overwrites the same object.
type Service struct {
	backend Backend
	client  *http.Client
	logger  zerolog.Logger
}

type Options struct {
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

func NewService(backend Backend, opts Options) *Service {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Service{backend: backend, client: client, logger: opts.Logger}
}

func (s *Service) Upload(ctx context.Context, data []byte, mime, prefix string) (Object, error) {
	if len(data) == 0 {
		return Object{}, ErrEmptyObject
	}
	if len(data) > MaxObjectBytes {
		return Object{}, ErrObjectTooLarge
	}
	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return Object{}, fmt.Errorf("%w: detected %s", ErrNotImage, detected.String())
	}
	if strings.TrimSpace(mime) == "" || !strings.HasPrefix(mime, "image/") {
		mime = detected.String()
	}
	key, err := ObjectKey(prefix, data, detected.Extension())
	if err != nil {
		return Object{}, err
	}
	if err := s.backend.Put(ctx, key, data, mime); err != nil {
		return Object{}, fmt.Errorf("storage: put %s: %w", key, err)
	}
	s.logger.Debug().Str("key", key).Int("bytes", len(data)).Str("mime", mime).Msg("object stored")
	return Object{Key: key, URL: s.backend.URL(key), MIME: mime, Size: len(data)}, nil
}

func (s *Service) CopyFromURL(ctx context.Context, remoteURL, prefix string) (Object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return Object{}, fmt.Errorf("storage: build download request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Object{}, fmt.Errorf("storage: download: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return Object{}, fmt.Errorf("storage: download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxObjectBytes+1))
	if err != nil {
		return Object{}, fmt.Errorf("storage: read download: %w", err)
	}
	if len(data) > MaxObjectBytes {
		return Object{}, ErrObjectTooLarge
	}
	return s.Upload(ctx, data, resp.Header.Get("Content-Type"), prefix)
}

func (s *Service) Delete(ctx context.Context, key string) error {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	return s.backend.Delete(ctx, cleanKey)
}

// ObjectKey builds prefix/<sha256>.<ext>.
func ObjectKey(prefix string, data []byte, ext string) (string, error) {
	sum := sha256.Sum256(data)
	name := hex.EncodeToString(sum[:])
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext != "" {
		name += "." + ext
	}
	return sanitizeKey(path.Join(strings.TrimSpace(prefix), name))
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
